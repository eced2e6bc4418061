package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/handlers"
)

func init() { Register(registerRefresh) }

func registerRefresh(r chi.Router, d deps.Deps, g Guards) {
	r.With(g.Mutate).Post("/refresh", handlers.Refresh(d))
}
