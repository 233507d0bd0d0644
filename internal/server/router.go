package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leapstack-labs/leapml/internal/engine"
)

// APIKeyHeader carries the shared secret.
const APIKeyHeader = "X-API-Key"

// NewRouter builds the route table for eng.
func NewRouter(eng *engine.Engine, apiKey string, logger *slog.Logger) chi.Router {
	h := &handlers{engine: eng, logger: logger}

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(logger),
		middleware.Recoverer,
	)

	r.Handle("/metrics", eng.Metrics().Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Group(func(r chi.Router) {
			r.Use(requireAPIKey(apiKey))

			r.Route("/datasets", func(r chi.Router) {
				r.Get("/", h.listDatasets)
				r.Post("/upload", h.uploadDataset)
				r.Get("/{id}", h.getDataset)
			})

			r.Route("/pipeline", func(r chi.Router) {
				r.Post("/run", h.runPipeline)
				r.Post("/predict", h.predict)
				r.Get("/runs", h.listRuns)
				r.Get("/models", h.listModels)
				r.Get("/models/{id}/download", h.downloadModel)
				r.Get("/models/{id}/recipe", h.modelRecipe)
			})
		})
	})

	return r
}

func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeDetail(w, http.StatusUnauthorized, "Could not validate credentials", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
