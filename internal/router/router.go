package router

import (
	"net/http"

	"github.com/microservice-patterns/order-history-service/internal/history"
	"github.com/microservice-patterns/order-history-service/internal/logger"
	"github.com/microservice-patterns/order-history-service/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(historyH *history.Handler, jwtSecret []byte) chi.Router {
	r := chi.NewRouter()

	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.PrometheusMiddleware)

	r.Use(middleware.GzipHandler)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(jwtSecret))

		r.Mount("/api", historyH.Routes())
	})

	return r
}
