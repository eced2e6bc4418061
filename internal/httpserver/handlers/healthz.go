package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go,omitempty"`
}

type healthzResponse struct {
	Status string    `json:"status"`
	Uptime float64   `json:"uptime_seconds"`
	Build  buildInfo `json:"build"`
}

// Healthz is the liveness probe: it never touches the store.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{Version: d.Version, Commit: d.Commit, Date: d.BuildDate, GoVersion: d.GoVersion}
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := now().Sub(d.StartTime).Seconds()
		writeJSON(w, http.StatusOK, healthzResponse{
			Status: "ok",
			Uptime: math.Round(uptime*1000) / 1000,
			Build:  build,
		})
	}
}
