package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Routes(h *Handler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/create-schema", h.CreateSchema)
		r.Post("/get-schema", h.GetSchema)
		r.Get("/list-schemas", h.ListSchemas)
		r.Post("/delete-schema", h.DeleteSchema)

		r.Post("/extract", h.Extract)
		r.Post("/extract-batch", h.ExtractBatch)
		r.Post("/get-result", h.GetResult)
	})

	return r
}
