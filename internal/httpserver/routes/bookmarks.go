package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/handlers"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps, g Guards) {
	r.Route("/bookmarks", func(r chi.Router) {
		r.Get("/", handlers.Snapshot(d))
		r.Get("/export", handlers.Export(d))

		r.Get("/verses", handlers.ListVerses(d))
		r.With(g.Mutate).Put("/verses/{verseID}", handlers.PutVerse(d))
		r.With(g.Mutate).Delete("/verses/{verseID}", handlers.DeleteVerse(d))
		r.With(g.Mutate).Post("/verses/{verseID}/toggle", handlers.ToggleVerse(d))

		r.Get("/pages", handlers.ListPages(d))
		r.Get("/pages/{page}", handlers.GetPage(d))
		r.With(g.Mutate).Put("/pages/{page}", handlers.PutPage(d))
		r.With(g.Mutate).Delete("/pages/{page}", handlers.DeletePage(d))
		r.With(g.Mutate).Post("/pages/{page}/toggle", handlers.TogglePage(d))
	})
}
