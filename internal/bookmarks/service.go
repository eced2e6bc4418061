// Package bookmarks is the typed facade over the durable store.
//
// Every mutation is written to the store first and announced on the sync bus
// afterwards, so a receiver re-reading the store sees at least that write.
package bookmarks

import (
	"context"
	"fmt"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/metrics"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
	"github.com/Quranfi-Project/quranfi-web/internal/syncbus"
)

// Service holds no state between calls: every read goes to the store.
type Service struct {
	conn store.Conn
	bus  syncbus.Bus
	log  logger.Logger
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a service over conn. A nil bus disables change announcements.
func New(conn store.Conn, bus syncbus.Bus, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		conn: conn,
		bus:  bus,
		log:  log,
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────
// Verse bookmarks
// ─────────────────────────────────────────────────────────────────

// AddVerseBookmark bookmarks a verse. Bookmarking it again replaces the
// record, which resets createdAt.
func (s *Service) AddVerseBookmark(ctx context.Context, verseID string) (domain.VerseBookmark, error) {
	bm, err := domain.NewVerseBookmark(verseID, s.now())
	if err != nil {
		return domain.VerseBookmark{}, err
	}
	if err := s.conn.Verses().Put(ctx, bm); err != nil {
		return domain.VerseBookmark{}, err
	}
	metrics.Mutation(metrics.Verses, metrics.OpPut, 1)
	s.publish(ctx)
	return bm, nil
}

// RemoveVerseBookmark deletes a verse bookmark. Removing an absent one is not
// an error.
func (s *Service) RemoveVerseBookmark(ctx context.Context, verseID string) error {
	ref, err := domain.ParseVerseID(verseID)
	if err != nil {
		return err
	}
	if err := s.conn.Verses().Delete(ctx, ref.String()); err != nil {
		return err
	}
	metrics.Mutation(metrics.Verses, metrics.OpDelete, 1)
	s.publish(ctx)
	return nil
}

// ListVerseBookmarks returns verse bookmarks in reading order.
func (s *Service) ListVerseBookmarks(ctx context.Context) ([]domain.VerseBookmark, error) {
	recs, err := s.conn.Verses().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	store.SortVerses(recs)
	return recs, nil
}

// IsVerseBookmarked reports whether verseID is bookmarked.
func (s *Service) IsVerseBookmarked(ctx context.Context, verseID string) (bool, error) {
	ref, err := domain.ParseVerseID(verseID)
	if err != nil {
		return false, err
	}
	_, ok, err := s.conn.Verses().Get(ctx, ref.String())
	return ok, err
}

// ToggleVerseBookmark flips the bookmark on a verse. on reports the new
// state; bm is the created record when on is true.
func (s *Service) ToggleVerseBookmark(ctx context.Context, verseID string) (bm domain.VerseBookmark, on bool, err error) {
	on, err = s.IsVerseBookmarked(ctx, verseID)
	if err != nil {
		return bm, false, err
	}
	if on {
		return bm, false, s.RemoveVerseBookmark(ctx, verseID)
	}
	bm, err = s.AddVerseBookmark(ctx, verseID)
	if err != nil {
		return bm, false, err
	}
	return bm, true, nil
}

// ─────────────────────────────────────────────────────────────────
// Page bookmarks
// ─────────────────────────────────────────────────────────────────

// AddPageBookmark bookmarks a page in [1, domain.TotalPages].
func (s *Service) AddPageBookmark(ctx context.Context, page int) (domain.PageBookmark, error) {
	bm, err := domain.NewPageBookmark(page, s.now())
	if err != nil {
		return domain.PageBookmark{}, err
	}
	if err := s.conn.Pages().Put(ctx, bm); err != nil {
		return domain.PageBookmark{}, err
	}
	metrics.Mutation(metrics.Pages, metrics.OpPut, 1)
	s.publish(ctx)
	return bm, nil
}

func (s *Service) RemovePageBookmark(ctx context.Context, page int) error {
	if err := domain.ValidatePage(page); err != nil {
		return err
	}
	if err := s.conn.Pages().Delete(ctx, domain.PageKey(page)); err != nil {
		return err
	}
	metrics.Mutation(metrics.Pages, metrics.OpDelete, 1)
	s.publish(ctx)
	return nil
}

// ListPageBookmarks returns page bookmarks by page number.
func (s *Service) ListPageBookmarks(ctx context.Context) ([]domain.PageBookmark, error) {
	recs, err := s.conn.Pages().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	store.SortPages(recs)
	return recs, nil
}

func (s *Service) IsPageBookmarked(ctx context.Context, page int) (bool, error) {
	if err := domain.ValidatePage(page); err != nil {
		return false, err
	}
	_, ok, err := s.conn.Pages().Get(ctx, domain.PageKey(page))
	return ok, err
}

// TogglePageBookmark flips the bookmark on a page, see ToggleVerseBookmark.
func (s *Service) TogglePageBookmark(ctx context.Context, page int) (bm domain.PageBookmark, on bool, err error) {
	on, err = s.IsPageBookmarked(ctx, page)
	if err != nil {
		return bm, false, err
	}
	if on {
		return bm, false, s.RemovePageBookmark(ctx, page)
	}
	bm, err = s.AddPageBookmark(ctx, page)
	if err != nil {
		return bm, false, err
	}
	return bm, true, nil
}

// ─────────────────────────────────────────────────────────────────
// Backup
// ─────────────────────────────────────────────────────────────────

// ImportResult counts what Import wrote.
type ImportResult struct {
	Verses int
	Pages  int
}

// Import upserts restored records, keeping their createdAt. Records are
// validated up front: nothing is written if any of them is invalid.
// One change event is published when anything was written.
func (s *Service) Import(ctx context.Context, verses []domain.VerseBookmark, pages []domain.PageBookmark) (ImportResult, error) {
	var res ImportResult

	clean := make([]domain.VerseBookmark, 0, len(verses))
	for _, v := range verses {
		bm, err := domain.NewVerseBookmark(v.VerseID, v.CreatedAt)
		if err != nil {
			return res, err
		}
		clean = append(clean, bm)
	}
	for _, p := range pages {
		if err := domain.ValidatePage(p.PageNumber); err != nil {
			return res, err
		}
	}

	for _, v := range clean {
		if err := s.conn.Verses().Put(ctx, v); err != nil {
			return res, fmt.Errorf("failed to import verse %s: %w", v.ID, err)
		}
		res.Verses++
	}
	for _, p := range pages {
		bm, _ := domain.NewPageBookmark(p.PageNumber, p.CreatedAt)
		if err := s.conn.Pages().Put(ctx, bm); err != nil {
			return res, fmt.Errorf("failed to import page %d: %w", p.PageNumber, err)
		}
		res.Pages++
	}

	metrics.Mutation(metrics.Verses, metrics.OpImport, res.Verses)
	metrics.Mutation(metrics.Pages, metrics.OpImport, res.Pages)
	if res.Verses+res.Pages > 0 {
		s.publish(ctx)
	}
	return res, nil
}

// publish is fire-and-forget: the mutation already succeeded.
func (s *Service) publish(ctx context.Context) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, syncbus.BookmarksUpdated); err != nil {
		metrics.PublishFailed()
		s.log.Warn("failed to announce bookmark change", logger.Error(err))
	}
}
