package mw

import (
	"net/http"
	"strings"

	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/utils"
)

// AllowOnlyCIDRS rejects clients outside allowed with 403. An empty list
// lets everything through. trustProxy makes the client address come from
// proxy headers, see utils.ClientIP.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	list, invalid := utils.ParseAddrList(allowed)
	for _, s := range invalid {
		log.Warn("ignoring invalid allow-list entry", logger.String("entry", s))
	}
	if list.Len() == 0 {
		log.Debug("AllowOnlyCIDRS: empty allow-list, passthrough mode")
		return passthrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !list.Contains(ip) {
				log.Warn("client address rejected",
					logger.String("ip", ip),
					logger.String("path", r.URL.Path))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EnforceHost only serves requests whose Host header matches one of
// allowedHosts, with or without port. "*.example.com" matches any subdomain.
// An empty list lets everything through.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedHosts) == 0 {
		log.Debug("EnforceHost: empty allowedHosts, passthrough mode")
		return passthrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, pattern := range allowedHosts {
				if matchHost(r.Host, pattern) {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Warn("host rejected", logger.String("host", r.Host))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func passthrough(next http.Handler) http.Handler { return next }

func matchHost(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)
	if host == pattern {
		return true
	}
	// A pattern without port accepts the host on any port.
	if !strings.Contains(pattern, ":") || strings.HasPrefix(pattern, "[") {
		host = utils.HostOnly(host)
		pattern = strings.Trim(pattern, "[]")
	}
	if host == pattern {
		return true
	}
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix) && len(host) > len(suffix)
	}
	return false
}
