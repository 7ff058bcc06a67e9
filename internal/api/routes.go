package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers collects the route targets.
type Handlers struct {
	Contact http.Handler
	Events  *EventsHandler
}

// SetupRoutes configures all API routes. The embedding site may live on
// any origin, so CORS is fully open; the allowed headers match what
// hosted-function clients send by default.
func SetupRoutes(h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		if h.Contact != nil {
			r.Method(http.MethodPost, "/submit-contact", h.Contact)
		}
		if h.Events != nil {
			r.Post("/events", h.Events.HandleEvent)
			r.Get("/events/beacon", h.Events.HandleBeacon)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
