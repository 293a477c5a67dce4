package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MKhiriev/go-favsync/internal/app"
	"github.com/MKhiriev/go-favsync/internal/utils"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging)
	router.Use(middleware.Compress(5, "application/json"))

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Get("/api/ping", h.ping)
		r.Get("/api/version", h.getServerVersion)
	})

	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Get("/api/records/{type}/changes", h.changes)
		r.With(h.verifyHash).Put("/api/records/{type}/{id}", h.pushRecord)
		r.Delete("/api/records/{type}/{id}", h.deleteRecord)
	})

	// An unsupported method is reported like an unknown route so that the
	// client sees the same JSON error envelope for both.
	router.NotFound(h.notFound)
	router.MethodNotAllowed(h.notFound)

	return router
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	utils.WriteError(w, app.MsgNotFound, http.StatusNotFound)
}
