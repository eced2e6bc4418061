package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quranfi-Project/quranfi-web/internal/bookmarks"
	"github.com/Quranfi-Project/quranfi-web/internal/domain"
	"github.com/Quranfi-Project/quranfi-web/internal/index"
	"github.com/Quranfi-Project/quranfi-web/internal/logger"
	"github.com/Quranfi-Project/quranfi-web/internal/store"
	"github.com/Quranfi-Project/quranfi-web/internal/store/memory"
	"github.com/Quranfi-Project/quranfi-web/internal/syncbus"
)

// gatedStore blocks verse reads until released, to hold a reload in Loading.
type gatedStore struct {
	*memory.Store
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedStore) Verses() store.Collection[domain.VerseBookmark] {
	return &gatedVerses{Collection: g.Store.Verses(), g: g}
}

type gatedVerses struct {
	store.Collection[domain.VerseBookmark]
	g *gatedStore
}

func (c *gatedVerses) GetAll(ctx context.Context) ([]domain.VerseBookmark, error) {
	select {
	case c.g.entered <- struct{}{}:
	default:
	}
	<-c.g.gate
	return c.Collection.GetAll(ctx)
}

func TestStartLoadsAndFollowsSignals(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	hub := syncbus.NewHub()
	busA, busB := hub.Endpoint(), hub.Endpoint()
	t.Cleanup(func() { _ = busA.Close(); _ = busB.Close() })
	log := logger.New("error", false)

	writer := bookmarks.New(st, busA, log)
	_, err := writer.AddPageBookmark(ctx, 1)
	require.NoError(t, err)

	idx := index.NewMemoryIndex()
	r := NewRefresher(bookmarks.New(st, busB, log), busB, idx, log, 0)
	r.Start(ctx)
	t.Cleanup(r.Stop)

	assert.True(t, idx.HasPage(1), "Start should load immediately")
	assert.Equal(t, StateIdle, r.State())

	_, err = writer.AddPageBookmark(ctx, 42)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return idx.HasPage(42) }, 3*time.Second, 5*time.Millisecond)
}

func TestSignalsDuringLoadingCoalesce(t *testing.T) {
	ctx := context.Background()
	gs := &gatedStore{Store: memory.New(), gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	log := logger.New("error", false)
	r := NewRefresher(bookmarks.New(gs, nil, log), nil, index.NewMemoryIndex(), log, 0)

	close(gs.gate)
	r.Start(ctx)
	t.Cleanup(r.Stop)
	require.EqualValues(t, 1, r.Reloads())
	<-gs.entered

	// Hold the next reload in Loading.
	gs.gate = make(chan struct{})
	r.Trigger()
	<-gs.entered
	assert.Equal(t, StateLoading, r.State())

	for i := 0; i < 10; i++ {
		r.Trigger()
	}
	close(gs.gate)

	require.Eventually(t, func() bool { return r.Reloads() == 3 }, 3*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, r.Reloads(), "ten signals while loading should cause one more read")
	assert.Equal(t, StateIdle, r.State())
}

func TestFailedToggleLeavesIndexUnchanged(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	log := logger.New("error", false)
	idx := index.NewMemoryIndex()
	r := NewRefresher(bookmarks.New(st, nil, log), nil, idx, log, 0)

	on, err := r.TogglePage(ctx, 5)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, idx.HasPage(5))

	st.FailWith(errors.New("quota exceeded"))
	_, err = r.TogglePage(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrStorageIO)
	assert.True(t, idx.HasPage(5), "a failed toggle must not flip presentation state")

	_, err = r.ToggleVerse(ctx, "2:255")
	assert.Error(t, err)
	assert.False(t, idx.HasVerse("2:255"))

	st.FailWith(nil)
	on, err = r.ToggleVerse(ctx, "002:255")
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, idx.HasVerse("2:255"))

	on, err = r.ToggleVerse(ctx, "2:255")
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, idx.HasVerse("2:255"))
}

func TestFailedReloadKeepsIndex(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	log := logger.New("error", false)
	idx := index.NewMemoryIndex()
	svc := bookmarks.New(st, nil, log)
	r := NewRefresher(svc, nil, idx, log, 0)

	_, err := svc.AddVerseBookmark(ctx, "1:1")
	require.NoError(t, err)
	require.NoError(t, r.Reload(ctx))

	st.FailWith(errors.New("corrupt"))
	require.Error(t, r.Reload(ctx))
	assert.True(t, idx.HasVerse("1:1"))

	snap := r.Snapshot()
	assert.NotEmpty(t, snap.LastError)
	assert.Len(t, snap.Verses, 1)
	assert.EqualValues(t, 1, snap.Reloads)
}

func TestPeriodicReload(t *testing.T) {
	ctx := context.Background()
	log := logger.New("error", false)
	r := NewRefresher(bookmarks.New(memory.New(), nil, log), nil, index.NewMemoryIndex(), log, 10*time.Millisecond)

	r.Start(ctx)
	t.Cleanup(r.Stop)

	require.Eventually(t, func() bool { return r.Reloads() >= 3 }, 3*time.Second, 5*time.Millisecond)
}
