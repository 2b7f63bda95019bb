package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	sessionService "github.com/zhouzirui/moodmate/backend/internal/service/session"
	"github.com/zhouzirui/moodmate/backend/internal/service/turn"
	"github.com/zhouzirui/moodmate/backend/internal/view"
)

// 入站消息类型
const (
	TypeSubmit = "submit"
	TypeName   = "name"
	TypeTheme  = "theme"
)

// 出站消息类型
const (
	TypeRedraw = "redraw"
	TypeError  = "error"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 10 * time.Second
	maxFrameSize        = 64 << 10
	submitQueueSize     = 16
)

var errUnknownType = errors.New("unknown message type")

// Handler WebSocket 处理器：读循环驱动对话，写循环独占连接的写端。
type Handler struct {
	turns    *turn.Controller
	store    *sessionService.Store
	views    *view.Hub
	upgrader websocket.Upgrader
	logger   *log.Logger

	// pingInterval 必须小于 readTimeout，否则空闲连接会在收到 pong 前超时
	readTimeout  time.Duration
	pingInterval time.Duration
}

// New 创建WebSocket处理器
func New(turns *turn.Controller, store *sessionService.Store, views *view.Hub, logger *log.Logger) *Handler {
	return &Handler{
		turns: turns,
		store: store,
		views: views,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:       logging.Component(logger, "ws"),
		readTimeout:  defaultReadTimeout,
		pingInterval: defaultPingInterval,
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type outgoingMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	id, updates, unsubscribe := h.views.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.logger.Info("connection opened", "subscriber", id)
	defer h.logger.Info("connection closed", "subscriber", id)

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	outbound := make(chan outgoingMessage, 8)
	outbound <- outgoingMessage{Type: TypeRedraw, Data: h.views.Render(ctx, h.store.GetOrInit())}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		h.writeLoop(ctx, conn, updates, outbound)
	}()

	// 回合在独立的 goroutine 中顺序执行，读循环在补全期间继续处理 pong 与设置消息
	submits := make(chan string, submitQueueSize)
	go h.submitLoop(ctx, submits)

	h.readLoop(ctx, conn, outbound, submits)
	close(submits)
	cancel()
	<-done
}

// submitLoop 依次执行排队的回合。连接关闭后不再开始新的回合，进行中的回合照常完成。
func (h *Handler) submitLoop(ctx context.Context, submits <-chan string) {
	for text := range submits {
		if ctx.Err() != nil {
			continue
		}
		// 连接关闭不应中断已经开始的回合
		if _, ok := h.turns.Submit(context.WithoutCancel(ctx), text); !ok {
			h.logger.Debug("ignored empty submission")
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, outbound chan<- outgoingMessage, submits chan<- string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read error", "err", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		var msg inboundMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(ctx, outbound, "invalid message")
			continue
		}

		if err := h.handleMessage(ctx, msg, submits); err != nil {
			h.sendError(ctx, outbound, err.Error())
		}
	}
}

// handleMessage 处理一条入站消息。重绘由 Hub 推送，这里只负责修改状态。
func (h *Handler) handleMessage(ctx context.Context, msg inboundMessage, submits chan<- string) error {
	switch msg.Type {
	case TypeSubmit:
		select {
		case submits <- msg.Data:
		case <-ctx.Done():
		}
		return nil
	case TypeName:
		h.store.SetDisplayName(msg.Data)
	case TypeTheme:
		theme, err := chat.ParseTheme(msg.Data)
		if err != nil {
			return err
		}
		h.store.SetTheme(theme)
	default:
		return errUnknownType
	}

	h.views.Redraw(ctx, h.store.GetOrInit())
	return nil
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan view.View, outbound <-chan outgoingMessage) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		var msg outgoingMessage
		select {
		case <-ctx.Done():
			return
		case v := <-updates:
			msg = outgoingMessage{Type: TypeRedraw, Data: v}
		case msg = <-outbound:
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				h.logger.Debug("ping failed", "err", err)
				conn.Close()
				return
			}
			continue
		}

		if err := h.write(conn, msg); err != nil {
			h.logger.Warn("write failed", "type", msg.Type, "err", err)
			// 关闭连接以唤醒阻塞中的读循环
			conn.Close()
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, msg outgoingMessage) error {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *Handler) sendError(ctx context.Context, outbound chan<- outgoingMessage, message string) {
	select {
	case outbound <- outgoingMessage{Type: TypeError, Data: map[string]string{"message": message}}:
	case <-ctx.Done():
	}
}
