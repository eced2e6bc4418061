package handlers

import (
	"net/http"

	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
)

type refreshResponse struct {
	Status string `json:"status"`
}

// Refresh schedules a reload of the presentation copy. Requests made while
// one is already pending are answered with 429; the pending reload covers them.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Refresher.Trigger() {
			d.Logger.Warn("refresh already pending", logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, refreshResponse{Status: "pending"})
			return
		}
		d.Logger.Info("manual refresh triggered", logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, refreshResponse{Status: "scheduled"})
	}
}
