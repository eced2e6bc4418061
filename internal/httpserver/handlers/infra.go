package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
)

type storeStatus struct {
	OK            bool   `json:"ok"`
	Backend       string `json:"backend"`
	SchemaVersion int    `json:"schema_version,omitempty"`
	Error         string `json:"error,omitempty"`
}

type busStatus struct {
	Transport string `json:"transport"`
}

type presentationStatus struct {
	State      string `json:"state"`
	Verses     int    `json:"verses"`
	Pages      int    `json:"pages"`
	Reloads    int64  `json:"reloads"`
	LastReload string `json:"last_reload"`
	LastError  string `json:"last_error,omitempty"`
}

type infraResponse struct {
	Status       string             `json:"status"` // ok | degraded
	Store        storeStatus        `json:"store"`
	Bus          busStatus          `json:"bus"`
	Presentation presentationStatus `json:"presentation"`
}

// Infra reports the store, the sync transport and the presentation copy.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := infraResponse{
			Status:       "ok",
			Store:        checkStore(r.Context(), d),
			Bus:          busStatus{Transport: d.BusTransport},
			Presentation: presentation(d),
		}
		if !resp.Store.OK || resp.Presentation.LastError != "" {
			resp.Status = "degraded"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func checkStore(parent context.Context, d deps.Deps) storeStatus {
	st := storeStatus{Backend: d.Store.Backend()}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		st.Error = err.Error()
		return st
	}
	v, err := d.Store.SchemaVersion(ctx)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.OK = true
	st.SchemaVersion = v
	return st
}

func presentation(d deps.Deps) presentationStatus {
	snap := d.Refresher.Snapshot()
	last := "never"
	if !snap.LastReload.IsZero() {
		last = snap.LastReload.UTC().Format(time.RFC3339)
	}
	return presentationStatus{
		State:      string(snap.State),
		Verses:     len(snap.Verses),
		Pages:      len(snap.Pages),
		Reloads:    snap.Reloads,
		LastReload: last,
		LastError:  snap.LastError,
	}
}
