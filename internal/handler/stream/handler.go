package stream

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/moodmate/backend/internal/logging"
	sessionService "github.com/zhouzirui/moodmate/backend/internal/service/session"
	"github.com/zhouzirui/moodmate/backend/internal/view"
	"github.com/zhouzirui/moodmate/backend/pkg/utils"
)

// RedrawEvent 是推送视图时使用的 SSE 事件名。
const RedrawEvent = "redraw"

const defaultHeartbeat = 15 * time.Second

// Handler pushes every redraw to the browser over Server-Sent Events.
type Handler struct {
	store     *sessionService.Store
	views     *view.Hub
	heartbeat time.Duration
	logger    *log.Logger
}

// New creates a new stream handler. A non-positive heartbeat uses the default interval.
func New(store *sessionService.Store, views *view.Hub, heartbeat time.Duration, logger *log.Logger) *Handler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Handler{
		store:     store,
		views:     views,
		heartbeat: heartbeat,
		logger:    logging.Component(logger, "stream"),
	}
}

// RegisterRoutes 注册 SSE 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// 先订阅再渲染首帧，避免错过两者之间发生的重绘
	id, updates, cancel := h.views.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	h.logger.Info("opening event stream", "subscriber", id)
	defer h.logger.Info("closing event stream", "subscriber", id)

	if err := utils.SendSSEEvent(w, flusher, RedrawEvent, h.views.Render(ctx, h.store.GetOrInit())); err != nil {
		h.logger.Warn("failed to send initial view", "subscriber", id, "err", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-updates:
			if err := utils.SendSSEEvent(w, flusher, RedrawEvent, v); err != nil {
				h.logger.Warn("failed to send redraw", "subscriber", id, "err", err)
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat "+t.UTC().Format(time.RFC3339)); err != nil {
				h.logger.Debug("heartbeat failed", "subscriber", id, "err", err)
				return
			}
		}
	}
}
