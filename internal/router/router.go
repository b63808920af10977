// internal/router/router.go
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors" // Import CORS middleware if needed

	"github.com/serendib/go-location-intel/internal/api/analysis"
	"github.com/serendib/go-location-intel/internal/api/spatial"
	"github.com/serendib/go-location-intel/internal/api/staticmap"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AnalysisHandler  *analysis.Handler
	SpatialHandler   *spatial.Handler
	StaticMapHandler *staticmap.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Heartbeat/Health check endpoint
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analysis", cfg.AnalysisHandler.Analyze)
		r.Get("/cities/nearby", cfg.SpatialHandler.NearbyCities)
		r.Get("/staticmap", cfg.StaticMapHandler.Image)
	})

	return r
}
