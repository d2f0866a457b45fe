package api

import (
	"log/slog"
	"net/http"

	"itinerary-service/internal/api/handlers"
	"itinerary-service/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Travel   *services.TravelTimeService
	Engine   *services.ReconciliationEngine
	Versions *services.PlanVersionStore
	Planner  *services.ItineraryPlanner

	Log         *slog.Logger
	CORSOrigins []string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	travel := &handlers.TravelHandler{Travel: d.Travel}
	schedule := &handlers.ScheduleHandler{Engine: d.Engine, Planner: d.Planner}
	versions := &handlers.VersionHandler{Versions: d.Versions}
	days := &handlers.DayHandler{Planner: d.Planner}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(corsHandler(d.CORSOrigins))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", handlers.Health)

	r.Route("/travel", func(r chi.Router) {
		r.Post("/matrix", travel.Matrix)
		r.Post("/legs", travel.Legs)
	})

	r.Route("/schedule", func(r chi.Router) {
		r.Post("/reschedule", schedule.Reschedule)
		r.Post("/optimize", schedule.Optimize)
		r.Post("/generate", schedule.Generate)
		r.Post("/candidates", schedule.Candidates)
	})

	r.Route("/trips/{tripID}", func(r chi.Router) {
		r.Post("/versions", versions.Save)
		r.Get("/versions", versions.List)
		r.Post("/versions/{version}/adopt", versions.Adopt)
		r.Get("/adopted", versions.Adopted)

		r.Route("/days/{day}", func(r chi.Router) {
			r.Post("/stops", days.AddStop)
			r.Delete("/stops/{stopID}", days.RemoveStop)
			r.Post("/rebuild", days.Rebuild)
		})
	})

	return r
}
