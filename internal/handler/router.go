package handler

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/moodmate/backend/internal/handler/chat"
	"github.com/zhouzirui/moodmate/backend/internal/handler/page"
	personaHandler "github.com/zhouzirui/moodmate/backend/internal/handler/persona"
	"github.com/zhouzirui/moodmate/backend/internal/handler/profile"
	"github.com/zhouzirui/moodmate/backend/internal/handler/stream"
	"github.com/zhouzirui/moodmate/backend/internal/handler/ws"
	"github.com/zhouzirui/moodmate/backend/internal/logging"
	middlewarePkg "github.com/zhouzirui/moodmate/backend/internal/middleware"
	"github.com/zhouzirui/moodmate/backend/internal/model/persona"
	sessionService "github.com/zhouzirui/moodmate/backend/internal/service/session"
	"github.com/zhouzirui/moodmate/backend/internal/service/turn"
	"github.com/zhouzirui/moodmate/backend/internal/view"
	"github.com/zhouzirui/moodmate/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(p persona.Persona, store *sessionService.Store, turns *turn.Controller, views *view.Hub, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = logging.Discard()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logging.Component(logger, "http").StandardLog(),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	page.New(store, views, logger).RegisterRoutes(r)
	r.Get("/healthz", handleHealth)

	r.Route("/api", func(api chi.Router) {
		personaHandler.New(p).RegisterRoutes(api)
		chat.New(turns, store, views, logger).RegisterRoutes(api)
		profile.New(store, views, logger).RegisterRoutes(api)
		stream.New(store, views, 0, logger).RegisterRoutes(api)
		ws.New(turns, store, views, logger).RegisterRoutes(api)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
