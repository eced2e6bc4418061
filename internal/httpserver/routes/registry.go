package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps, g Guards)
	Middleware = func(http.Handler) http.Handler
)

// Guards are built once per server so every route shares the same
// rate-limit buckets.
type Guards struct {
	Access []Middleware // CIDR allow-list and Host check, on every route
	Mutate Middleware   // per-client rate limit, on routes that write
}

var registry []Registrar

// Register adds a registrar. Called from init in each route file.
func Register(reg Registrar) {
	registry = append(registry, reg)
}

func newGuards(d deps.Deps) Guards {
	return Guards{
		Access: []Middleware{
			mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
			mw.EnforceHost(d.AllowedHosts, d.Logger),
		},
		Mutate: mw.RateLimit(mw.RateLimitConfig{
			Burst:       d.RateBurst,
			RefillPerIP: d.RatePerMin,
			TrustProxy:  d.TrustProxy,
		}),
	}
}

// RegisterAll mounts every registered route. Called once from server.New.
func RegisterAll(r chi.Router, d deps.Deps) {
	g := newGuards(d)
	r.Group(func(r chi.Router) {
		r.Use(g.Access...)
		for _, reg := range registry {
			reg(r, d, g)
		}
	})
}
