package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Quranfi-Project/quranfi-web/internal/bookmarks"
	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/index"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/metrics"
	"github.com/Quranfi-Project/quranfi-web/internal/syncbus"
)

// State of the presentation copy.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
)

// Refresher keeps the memory index in step with the store.
//
// It reloads on start, on every bus signal, on manual triggers and, when an
// interval is set, periodically. Triggers arriving during a reload coalesce
// into a single follow-up reload.
type Refresher struct {
	svc      *bookmarks.Service
	bus      syncbus.Bus
	index    *index.MemoryIndex
	logger   logger.Logger
	interval time.Duration

	trigger     chan struct{}
	stopCh      chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
	unsubscribe func()

	// reloadMu serializes reloads against toggles so a toggle is never
	// overwritten by an older read.
	reloadMu sync.Mutex
	state    atomic.Value // State
	reloads  atomic.Int64
	lastErr  atomic.Value // string
}

// NewRefresher creates a refresher. bus may be nil; interval <= 0 disables
// periodic reloads.
func NewRefresher(
	svc *bookmarks.Service,
	bus syncbus.Bus,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
) *Refresher {
	r := &Refresher{
		svc:      svc,
		bus:      bus,
		index:    idx,
		logger:   log,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.state.Store(StateIdle)
	r.lastErr.Store("")
	return r
}

// Start loads immediately, then follows bus signals and triggers until ctx
// is cancelled or Stop is called. A failed initial load is logged and
// retried on the next trigger.
func (r *Refresher) Start(ctx context.Context) {
	if err := r.Reload(ctx); err != nil {
		r.logger.Warn("initial bookmark load failed", logger.Error(err))
	}

	if r.bus != nil {
		r.unsubscribe = r.bus.Subscribe(func(context.Context, syncbus.Event) {
			r.Trigger()
		})
	}

	var ticker *time.Ticker
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker = time.NewTicker(r.interval)
		tick = ticker.C
	}

	go func() {
		defer close(r.done)
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-tick:
				r.reloadLogged(ctx)
			case <-r.trigger:
				r.reloadLogged(ctx)
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop unsubscribes from the bus and waits for the loop to exit.
// Start must have been called.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		close(r.stopCh)
	})
	<-r.done
}

// Trigger requests a reload without blocking. At most one request is kept
// pending while a reload runs; false means one was already pending.
func (r *Refresher) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *Refresher) reloadLogged(ctx context.Context) {
	if err := r.Reload(ctx); err != nil {
		r.logger.Error("failed to reload bookmarks", logger.Error(err))
	}
}

// Reload reads both collections and replaces the index. On failure the index
// keeps its previous content.
func (r *Refresher) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.state.Store(StateLoading)
	defer r.state.Store(StateIdle)

	start := time.Now()
	verses, pages, err := r.read(ctx)
	metrics.Reload(time.Since(start), err, len(verses), len(pages))
	if err != nil {
		r.lastErr.Store(err.Error())
		return err
	}

	r.index.Replace(verses, pages)
	r.reloads.Add(1)
	r.lastErr.Store("")

	r.logger.Debug("bookmarks reloaded",
		logger.Int("verses", len(verses)),
		logger.Int("pages", len(pages)))
	return nil
}

func (r *Refresher) read(ctx context.Context) ([]domain.VerseBookmark, []domain.PageBookmark, error) {
	verses, err := r.svc.ListVerseBookmarks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load verse bookmarks: %w", err)
	}
	pages, err := r.svc.ListPageBookmarks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load page bookmarks: %w", err)
	}
	return verses, pages, nil
}

// ToggleVerse flips a verse bookmark. The index changes only once the store
// accepted the mutation.
func (r *Refresher) ToggleVerse(ctx context.Context, verseID string) (bool, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	bm, on, err := r.svc.ToggleVerseBookmark(ctx, verseID)
	if err != nil {
		return false, err
	}
	if on {
		r.index.PutVerse(bm)
	} else {
		ref, _ := domain.ParseVerseID(verseID)
		r.index.DeleteVerse(ref.String())
	}
	return on, nil
}

// TogglePage flips a page bookmark, see ToggleVerse.
func (r *Refresher) TogglePage(ctx context.Context, page int) (bool, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	bm, on, err := r.svc.TogglePageBookmark(ctx, page)
	if err != nil {
		return false, err
	}
	if on {
		r.index.PutPage(bm)
	} else {
		r.index.DeletePage(page)
	}
	return on, nil
}

// Snapshot is a consistent view for the presentation layer.
type Snapshot struct {
	State      State                  `json:"state"`
	Verses     []domain.VerseBookmark `json:"verses"`
	Pages      []domain.PageBookmark  `json:"pages"`
	LastReload time.Time              `json:"last_reload"`
	Reloads    int64                  `json:"reloads"`
	LastError  string                 `json:"last_error,omitempty"`
}

func (r *Refresher) Snapshot() Snapshot {
	return Snapshot{
		State:      r.State(),
		Verses:     r.index.Verses(),
		Pages:      r.index.Pages(),
		LastReload: r.index.GetLastReload(),
		Reloads:    r.reloads.Load(),
		LastError:  r.lastErr.Load().(string),
	}
}

func (r *Refresher) State() State {
	return r.state.Load().(State)
}

// Reloads counts successful reloads.
func (r *Refresher) Reloads() int64 {
	return r.reloads.Load()
}
