package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pranayv/auction-backend/internal/hub"
	"github.com/pranayv/auction-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/rooms", CreateRoom(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h))
	r.Post("/signal", ws.SignalHandler(h))
	return r
}
