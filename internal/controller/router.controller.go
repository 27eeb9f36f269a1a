package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIDMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/registry", c.listRegistered)
		r.Route("/embeds", func(r chi.Router) {
			r.Get("/", c.listEmbeds)
			r.Post("/", c.createEmbed)
			r.Post("/markup", c.createEmbedsFromMarkup)
			r.Route("/{embed-id}", func(r chi.Router) {
				r.Use(c.embedIDMw)
				r.Get("/", c.getEmbed)
				r.Delete("/", c.removeEmbed)
				r.Post("/layout", c.layoutEmbed)
				r.Delete("/layout", c.unlayoutEmbed)
				r.Post("/pause", c.pauseEmbed)
				r.Put("/target", c.retargetEmbed)
			})
		})
		r.Route("/ws/embeds/{embed-id}", func(r chi.Router) {
			r.Use(c.embedIDMw)
			r.Get("/frame", c.attachFrame)
			r.Get("/host", c.subscribeHost)
		})
	})

	return r
}
