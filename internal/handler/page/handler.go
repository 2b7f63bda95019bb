package page

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/moodmate/backend/internal/logging"
	"github.com/zhouzirui/moodmate/backend/internal/model/chat"
	sessionService "github.com/zhouzirui/moodmate/backend/internal/service/session"
	"github.com/zhouzirui/moodmate/backend/internal/view"
	"github.com/zhouzirui/moodmate/backend/pkg/utils"
)

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// pageData 模板渲染所需数据
type pageData struct {
	Title      string
	Icon       string
	Background template.CSS
	View       view.View
}

// Handler 渲染聊天页面。
type Handler struct {
	store  *sessionService.Store
	views  *view.Hub
	logger *log.Logger
}

// New 创建页面处理器
func New(store *sessionService.Store, views *view.Hub, logger *log.Logger) *Handler {
	return &Handler{
		store:  store,
		views:  views,
		logger: logging.Component(logger, "page"),
	}
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := h.views.Render(r.Context(), h.store.GetOrInit())

	data := pageData{
		Title:      v.Title,
		Icon:       v.Icon,
		Background: background(v.Session.Theme),
		View:       v,
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render page", "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write page", "err", err)
	}
}

func background(theme chat.Theme) template.CSS {
	if theme == chat.ThemeLight {
		return "#ffffff"
	}
	return "#0e1117"
}
