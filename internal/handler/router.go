package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/tgl-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/tgl-chat/backend/internal/handler/lead"
	middlewarePkg "github.com/zhouzirui/tgl-chat/backend/internal/middleware"
	aiService "github.com/zhouzirui/tgl-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/tgl-chat/backend/internal/service/chat"
	leadStore "github.com/zhouzirui/tgl-chat/backend/internal/store/lead"
	"github.com/zhouzirui/tgl-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, responder aiService.Responder, leads leadStore.Store, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	wsHandler := chat.NewWebSocketHandler(chatSvc, responder, logger.Named("ws"))
	chatHandler := chat.New(chatSvc)
	leadHandler := lead.New(leads, logger.Named("lead"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The widget connects to /ws/chat outside the /api prefix.
	wsHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		leadHandler.RegisterRoutes(api)
	})

	return r
}
