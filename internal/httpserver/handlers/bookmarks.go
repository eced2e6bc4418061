package handlers

import (
	"bytes"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/httpserver/deps"
	"github.com/Quranfi-Project/quranfi-web/internal/sources/backup"
)

type verseView struct {
	ID        string    `json:"id"`
	VerseID   string    `json:"verse_id"`
	Chapter   int       `json:"chapter"`
	Verse     int       `json:"verse"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

type pageView struct {
	ID        string    `json:"id"`
	Page      int       `json:"page"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

type verseState struct {
	VerseID    string `json:"verse_id"`
	Bookmarked bool   `json:"bookmarked"`
}

type pageState struct {
	Page       int  `json:"page"`
	Bookmarked bool `json:"bookmarked"`
}

type snapshotResponse struct {
	State      string      `json:"state"`
	Verses     []verseView `json:"verses"`
	Pages      []pageView  `json:"pages"`
	LastReload *time.Time  `json:"last_reload,omitempty"`
	Reloads    int64       `json:"reloads"`
	LastError  string      `json:"last_error,omitempty"`
}

func newVerseView(b domain.VerseBookmark) verseView {
	v := verseView{ID: b.ID, VerseID: b.VerseID, CreatedAt: b.CreatedAt}
	if ref, err := b.Ref(); err == nil {
		v.Chapter, v.Verse, v.Path = ref.Chapter, ref.Verse, ref.Path()
	}
	return v
}

func newPageView(b domain.PageBookmark) pageView {
	return pageView{ID: b.ID, Page: b.PageNumber, Path: b.Path(), CreatedAt: b.CreatedAt}
}

func verseViews(in []domain.VerseBookmark) []verseView {
	out := make([]verseView, 0, len(in))
	for _, b := range in {
		out = append(out, newVerseView(b))
	}
	return out
}

func pageViews(in []domain.PageBookmark) []pageView {
	out := make([]pageView, 0, len(in))
	for _, b := range in {
		out = append(out, newPageView(b))
	}
	return out
}

// verseParam returns the verse id route parameter, unescaping "%3A".
func verseParam(r *http.Request) string {
	raw := chi.URLParam(r, "verseID")
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}

// Snapshot serves the presentation copy kept by the refresher.
func Snapshot(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := d.Refresher.Snapshot()
		resp := snapshotResponse{
			State:     string(snap.State),
			Verses:    verseViews(snap.Verses),
			Pages:     pageViews(snap.Pages),
			Reloads:   snap.Reloads,
			LastError: snap.LastError,
		}
		if !snap.LastReload.IsZero() {
			resp.LastReload = &snap.LastReload
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ─────────────────────────────
// Verses
// ─────────────────────────────

func ListVerses(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verses, err := d.Bookmarks.ListVerseBookmarks(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, verseViews(verses))
	}
}

func PutVerse(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bm, err := d.Bookmarks.AddVerseBookmark(r.Context(), verseParam(r))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		d.Refresher.Trigger()
		writeJSON(w, http.StatusOK, newVerseView(bm))
	}
}

func DeleteVerse(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Bookmarks.RemoveVerseBookmark(r.Context(), verseParam(r)); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		d.Refresher.Trigger()
		w.WriteHeader(http.StatusNoContent)
	}
}

func ToggleVerse(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := verseParam(r)
		on, err := d.Refresher.ToggleVerse(r.Context(), id)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		ref, _ := domain.ParseVerseID(id)
		writeJSON(w, http.StatusOK, verseState{VerseID: ref.String(), Bookmarked: on})
	}
}

// ─────────────────────────────
// Pages
// ─────────────────────────────

func ListPages(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages, err := d.Bookmarks.ListPageBookmarks(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, pageViews(pages))
	}
}

func GetPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := domain.ParsePage(chi.URLParam(r, "page"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		on, err := d.Bookmarks.IsPageBookmarked(r.Context(), page)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, pageState{Page: page, Bookmarked: on})
	}
}

func PutPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := domain.ParsePage(chi.URLParam(r, "page"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		bm, err := d.Bookmarks.AddPageBookmark(r.Context(), page)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		d.Refresher.Trigger()
		writeJSON(w, http.StatusOK, newPageView(bm))
	}
}

func DeletePage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := domain.ParsePage(chi.URLParam(r, "page"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if err := d.Bookmarks.RemovePageBookmark(r.Context(), page); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		d.Refresher.Trigger()
		w.WriteHeader(http.StatusNoContent)
	}
}

func TogglePage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := domain.ParsePage(chi.URLParam(r, "page"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		on, err := d.Refresher.TogglePage(r.Context(), page)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, pageState{Page: page, Bookmarked: on})
	}
}

// Export streams every bookmark in the backup format.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verses, err := d.Bookmarks.ListVerseBookmarks(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		pages, err := d.Bookmarks.ListPageBookmarks(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		var buf bytes.Buffer
		if err := backup.Write(&buf, backup.NewMapper(d.TimeNow).FromDomain(verses, pages)); err != nil {
			writeError(w, d.Logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Content-Disposition", `attachment; filename="quranfi-bookmarks.yaml"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}
