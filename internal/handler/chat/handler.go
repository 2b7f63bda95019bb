package chat

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	sessionService "github.com/zhouzirui/moodmate/backend/internal/service/session"
	"github.com/zhouzirui/moodmate/backend/internal/service/turn"
	"github.com/zhouzirui/moodmate/backend/internal/view"
	"github.com/zhouzirui/moodmate/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	turns  *turn.Controller
	store  *sessionService.Store
	views  *view.Hub
	logger *log.Logger
}

// New 创建聊天处理器
func New(turns *turn.Controller, store *sessionService.Store, views *view.Hub, logger *log.Logger) *Handler {
	return &Handler{
		turns:  turns,
		store:  store,
		views:  views,
		logger: logging.Component(logger, "chat"),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleGetSession)
	r.Post("/messages", h.handleSubmit)
	r.Get("/mood", h.handleGetMood)
}

// submitResponse 是提交消息后的返回体，Turn 只在被接受时出现。
type submitResponse struct {
	Accepted bool       `json:"accepted"`
	Turn     *chat.Turn `json:"turn,omitempty"`
	View     view.View  `json:"view"`
}

// handleGetSession 返回当前会话的完整视图
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.views.Render(r.Context(), h.store.GetOrInit()))
}

// handleSubmit 驱动一次完整的对话回合
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// text 缺失或为 null 时与空字符串一样被忽略
	var payload struct {
		Text string `json:"text"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// 客户端断开不应把进行中的回合变成错误回复
	ctx := context.WithoutCancel(r.Context())

	resp := submitResponse{}
	if t, ok := h.turns.Submit(ctx, payload.Text); ok {
		resp.Accepted = true
		resp.Turn = &t
	} else {
		h.logger.Debug("ignored empty submission")
	}

	resp.View = h.views.Render(ctx, h.store.GetOrInit())
	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleGetMood 重新计算一次心情图表
func (h *Handler) handleGetMood(w http.ResponseWriter, r *http.Request) {
	v := h.views.Render(r.Context(), h.store.GetOrInit())
	utils.RespondJSON(w, http.StatusOK, v.Mood)
}
