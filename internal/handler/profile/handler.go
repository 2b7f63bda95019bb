package profile

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	sessionService "github.com/zhouzirui/moodmate/backend/internal/service/session"
	"github.com/zhouzirui/moodmate/backend/internal/view"
	"github.com/zhouzirui/moodmate/backend/pkg/utils"
)

// Handler 处理名字与主题设置。每次修改后都会触发一次全量重绘。
type Handler struct {
	store  *sessionService.Store
	views  *view.Hub
	logger *log.Logger
}

// New 创建设置处理器
func New(store *sessionService.Store, views *view.Hub, logger *log.Logger) *Handler {
	return &Handler{
		store:  store,
		views:  views,
		logger: logging.Component(logger, "profile"),
	}
}

// RegisterRoutes 注册设置相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Put("/profile/name", h.handleSetName)
	r.Put("/profile/theme", h.handleSetTheme)
}

func (h *Handler) handleSetName(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := h.store.SetDisplayName(payload.Name)
	h.logger.Info("display name updated", "name", name)
	h.redraw(w, r)
}

func (h *Handler) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Theme string `json:"theme"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	theme, err := chat.ParseTheme(payload.Theme)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.store.SetTheme(theme)
	h.logger.Info("theme updated", "theme", theme)
	h.redraw(w, r)
}

// redraw 广播新视图并把它作为响应返回
func (h *Handler) redraw(w http.ResponseWriter, r *http.Request) {
	v := h.views.Render(r.Context(), h.store.GetOrInit())
	h.views.Publish(v)
	utils.RespondJSON(w, http.StatusOK, v)
}
