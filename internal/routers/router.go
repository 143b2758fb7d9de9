package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"interview/internal/api"
	"interview/internal/auth"
)

func New(h *api.Handlers, tokens *auth.Tokens) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/v1/healthz", h.Health)

	r.Route("/api/v1/interviews", func(r chi.Router) {
		r.Use(tokens.RequireUser)
		r.Post("/", h.CreateInterview)
		r.Get("/", h.ListInterviews)
		r.Get("/{id}", h.GetInterview)
		r.Get("/room/{roomId}", h.GetInterviewByRoom)
		r.Post("/{id}/accept", h.AcceptInterview)
		r.Post("/{id}/start", h.StartInterview)
		r.Post("/{id}/complete", h.CompleteInterview)
		r.Post("/{id}/cancel", h.CancelInterview)
		r.Delete("/{id}", h.DeleteInterview)
	})

	// Token auth happens inside the handler; browsers cannot set headers on
	// WebSocket dials.
	r.Get("/ws/room/{roomId}", h.RoomWS)

	return r
}
