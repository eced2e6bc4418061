package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quranfi-Project/quranfi-web/internal/bookmarks"
	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
	"github.com/Quranfi-Project/quranfi-web/internal/index"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/scheduler"
	"github.com/Quranfi-Project/quranfi-web/internal/sources/backup"
	"github.com/Quranfi-Project/quranfi-web/internal/store/memory"
)

type fixture struct {
	handler   http.Handler
	store     *memory.Store
	refresher *scheduler.Refresher
}

func newFixture(t *testing.T, tweak func(*deps.Deps)) *fixture {
	t.Helper()
	log := logger.New("error", false)
	st := memory.New()
	svc := bookmarks.New(st, nil, log)
	ref := scheduler.NewRefresher(svc, nil, index.NewMemoryIndex(), log, 0)
	ref.Start(context.Background())
	t.Cleanup(ref.Stop)

	d := deps.Deps{
		Logger:       log,
		StartTime:    time.Now(),
		Version:      "test",
		TimeNow:      time.Now,
		RateBurst:    100,
		RatePerMin:   100,
		Store:        st,
		BusTransport: "local",
		Bookmarks:    svc,
		Refresher:    ref,
	}
	if tweak != nil {
		tweak(&d)
	}
	return &fixture{handler: NewHandler(log, d), store: st, refresher: ref}
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestProbes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])

	w = f.do(http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)

	infra := decode[map[string]any](t, f.do(http.MethodGet, "/infra"))
	assert.Equal(t, "ok", infra["status"])
	assert.Equal(t, "memory", infra["store"].(map[string]any)["backend"])
	assert.EqualValues(t, 4, infra["store"].(map[string]any)["schema_version"])

	require.NoError(t, f.store.Close())
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/readyz").Code)
	infra = decode[map[string]any](t, f.do(http.MethodGet, "/infra"))
	assert.Equal(t, "degraded", infra["status"])

	w = f.do(http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quranfi_presentation_reload_duration_seconds")
}

func TestVerseBookmarkLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPut, "/bookmarks/verses/002:255")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "2:255", created["verse_id"])
	assert.Equal(t, "/surah/2#ayah-255", created["path"])

	list := decode[[]map[string]any](t, f.do(http.MethodGet, "/bookmarks/verses"))
	require.Len(t, list, 1)

	// The presentation copy follows the local mutation.
	require.Eventually(t, func() bool {
		snap := decode[map[string]any](t, f.do(http.MethodGet, "/bookmarks"))
		verses, _ := snap["verses"].([]any)
		return len(verses) == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/bookmarks/verses/2:255").Code)
	assert.Empty(t, decode[[]map[string]any](t, f.do(http.MethodGet, "/bookmarks/verses")))
}

func TestPageBookmarkLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/bookmarks/pages/255").Code)
	state := decode[map[string]any](t, f.do(http.MethodGet, "/bookmarks/pages/255"))
	assert.Equal(t, true, state["bookmarked"])

	pages := decode[[]map[string]any](t, f.do(http.MethodGet, "/bookmarks/pages"))
	require.Len(t, pages, 1)
	assert.Equal(t, "page:255", pages[0]["id"])
	assert.Equal(t, "/page/255", pages[0]["path"])

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/bookmarks/pages/255").Code)
	state = decode[map[string]any](t, f.do(http.MethodGet, "/bookmarks/pages/255"))
	assert.Equal(t, false, state["bookmarked"])
}

func TestToggleUpdatesPresentation(t *testing.T) {
	f := newFixture(t, nil)

	state := decode[map[string]any](t, f.do(http.MethodPost, "/bookmarks/pages/12/toggle"))
	assert.Equal(t, true, state["bookmarked"])
	snap := f.refresher.Snapshot()
	require.Len(t, snap.Pages, 1)

	state = decode[map[string]any](t, f.do(http.MethodPost, "/bookmarks/verses/36:1/toggle"))
	assert.Equal(t, "36:1", state["verse_id"])
	assert.Equal(t, true, state["bookmarked"])

	state = decode[map[string]any](t, f.do(http.MethodPost, "/bookmarks/pages/12/toggle"))
	assert.Equal(t, false, state["bookmarked"])
	assert.Empty(t, f.refresher.Snapshot().Pages)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodPut, "/bookmarks/verses/115:1", http.StatusBadRequest},
		{http.MethodPut, "/bookmarks/verses/1:8", http.StatusBadRequest},
		{http.MethodPut, "/bookmarks/pages/0", http.StatusBadRequest},
		{http.MethodPut, "/bookmarks/pages/605", http.StatusBadRequest},
		{http.MethodGet, "/bookmarks/pages/abc", http.StatusBadRequest},
		{http.MethodPost, "/bookmarks/pages/999/toggle", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := f.do(tt.method, tt.target)
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.target)
		assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
	}

	f.store.FailWith(errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, f.do(http.MethodGet, "/bookmarks/verses").Code)

	f.store.FailWith(nil)
	require.NoError(t, f.store.Close())
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodPut, "/bookmarks/pages/1").Code)
}

func TestExport(t *testing.T) {
	f := newFixture(t, nil)
	f.do(http.MethodPut, "/bookmarks/verses/18:10")
	f.do(http.MethodPut, "/bookmarks/pages/3")

	w := f.do(http.MethodGet, "/bookmarks/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))

	file, err := backup.Parse(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Verses, 1)
	assert.Equal(t, "18:10", file.Verses[0].VerseID)
	require.Len(t, file.Pages, 1)
	assert.Equal(t, 3, file.Pages[0].Page)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/refresh")
	assert.Contains(t, []int{http.StatusAccepted, http.StatusTooManyRequests}, w.Code)
	require.Eventually(t, func() bool { return f.refresher.Reloads() >= 2 }, 3*time.Second, 10*time.Millisecond)
}

func TestAccessRestrictions(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"127.0.0.1/32"}
	})
	// httptest requests come from 192.0.2.1.
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/bookmarks").Code)

	f = newFixture(t, func(d *deps.Deps) {
		d.AllowedHosts = []string{"quran.local"}
	})
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/healthz").Code)

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Host = "quran.local:8604"
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMutationsAreRateLimited(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.RateBurst = 2
		d.RatePerMin = 1
	})

	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/bookmarks/pages/1").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/bookmarks/pages/2").Code)
	w := f.do(http.MethodPut, "/bookmarks/pages/3")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/bookmarks/pages").Code)
	assert.True(t, strings.HasPrefix(f.do(http.MethodGet, "/healthz").Header().Get("Content-Type"), "application/json"))
}
