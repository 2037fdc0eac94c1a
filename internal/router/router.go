package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pdfchat-backend/internal/handlers"
	"pdfchat-backend/internal/middleware"
	"pdfchat-backend/internal/websocket"
)

func New(
	sessionAuth *middleware.SessionAuth,
	appHandler *handlers.AppHandler,
	sessionHandler *handlers.SessionHandler,
	chatHandler *handlers.ChatHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── App shell (public) ────
		r.Get("/app", appHandler.Info)
		r.Get("/app/logo", appHandler.Logo)
		r.Get("/models", appHandler.ListModels)

		r.Post("/sessions", sessionHandler.Create)

		// ──── Current session ────
		r.Route("/session", func(r chi.Router) {
			r.Use(sessionAuth.Middleware)
			r.Get("/", sessionHandler.Get)
			r.Delete("/", sessionHandler.Delete)
			r.Put("/settings", sessionHandler.UpdateSettings)
			r.Post("/reset", sessionHandler.Reset)
			r.Post("/messages", chatHandler.SendMessage)
			r.Post("/documents", chatHandler.UploadDocument)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
