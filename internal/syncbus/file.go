package syncbus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Quranfi-Project/quranfi-web/internal/logger"
)

const (
	defaultDebounce     = 200 * time.Millisecond
	defaultPollInterval = 10 * time.Second
)

// FileOptions configures a FileBus.
type FileOptions struct {
	// Dir holds one signal file per endpoint and is shared by every
	// instance on the device.
	Dir string
	// Debounce merges bursts of file events into one scan.
	Debounce time.Duration
	// PollInterval rescans the directory when file events are missed or
	// watching is unavailable.
	PollInterval time.Duration
}

const signalExt = ".sig"

// FileBus signals through small files on the local device.
//
// Each endpoint owns "<dir>/<origin>.sig" and Publish replaces it with
// "<origin> <revision> <event>". Endpoints watch the directory and deliver
// every foreign revision they have not seen yet. Writers never share a file,
// so a publish cannot hide another endpoint's signal. Signals from one origin
// written in quick succession may collapse into the last one.
type FileBus struct {
	*dispatcher

	dir      string
	own      string
	debounce time.Duration
	poll     time.Duration
	log      logger.Logger

	seq atomic.Int64

	mu    sync.Mutex
	timer *time.Timer

	checkMu sync.Mutex
	seen    map[string]string // origin -> last delivered line

	cancel context.CancelFunc
	done   chan struct{}
}

// NewFileBus starts watching opts.Dir. If the watcher cannot be created the
// bus keeps working on polling alone.
func NewFileBus(opts FileOptions, log logger.Logger) (*FileBus, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("signal dir is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create signal dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &FileBus{
		dispatcher: newDispatcher(),
		dir:        opts.Dir,
		debounce:   opts.Debounce,
		poll:       opts.PollInterval,
		log:        log.With(logger.String("signal_dir", opts.Dir)),
		seen:       make(map[string]string),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	b.own = filepath.Join(opts.Dir, b.id+signalExt)

	// Signals written before this endpoint existed are not replayed.
	for origin, line := range b.scan() {
		b.seen[origin] = line
	}

	go b.run(ctx)
	return b, nil
}

// Publish writes a new revision to this endpoint's file atomically through a
// temp file and rename.
func (b *FileBus) Publish(_ context.Context, ev Event) error {
	if b.isClosed() {
		return ErrClosed
	}

	rev := strconv.FormatInt(time.Now().UnixNano(), 10) + "." + strconv.FormatInt(b.seq.Add(1), 10)
	line := b.id + " " + rev + " " + string(ev)

	tmp, err := os.CreateTemp(b.dir, "."+b.id+".*")
	if err != nil {
		return fmt.Errorf("failed to create signal temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(line); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write signal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write signal: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.own); err != nil {
		return fmt.Errorf("failed to publish signal: %w", err)
	}
	return nil
}

// Close stops watching, removes this endpoint's signal file and waits for
// handlers to return.
func (b *FileBus) Close() error {
	if !b.shutdown() {
		return nil
	}
	b.cancel()
	<-b.done

	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()

	if err := os.Remove(b.own); err != nil && !os.IsNotExist(err) {
		b.log.Debug("failed to remove signal file", logger.Error(err))
	}
	return nil
}

func (b *FileBus) run(ctx context.Context) {
	defer close(b.done)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		b.log.Warn("fsnotify unavailable, polling only", logger.Error(err))
	} else if err := watcher.Add(b.dir); err != nil {
		b.log.Warn("cannot watch signal dir, polling only", logger.Error(err))
		_ = watcher.Close()
		watcher = nil
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		defer watcher.Close()
		events, errs = watcher.Events, watcher.Errors
	}

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !isSignalFile(ev.Name) || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			b.triggerDebounced()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			b.log.Debug("signal watcher error", logger.Error(err))
		case <-ticker.C:
			b.check()
		}
	}
}

func (b *FileBus) triggerDebounced() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, b.check)
}

// check delivers one event per foreign origin whose revision changed since
// the last scan.
func (b *FileBus) check() {
	b.checkMu.Lock()
	defer b.checkMu.Unlock()

	for origin, line := range b.scan() {
		if origin == b.id || b.seen[origin] == line {
			continue
		}
		b.seen[origin] = line
		_, ev, _ := parseSignal(line)
		b.deliver(ev)
	}
}

// scan reads every well-formed signal file, keyed by origin.
func (b *FileBus) scan() map[string]string {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		b.log.Debug("failed to list signal dir", logger.Error(err))
		return nil
	}

	lines := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isSignalFile(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.dir, e.Name()))
		if err != nil {
			continue
		}
		line := strings.TrimSpace(string(data))
		origin, _, ok := parseSignal(line)
		if !ok {
			b.log.Debug("ignoring malformed signal", logger.String("file", e.Name()))
			continue
		}
		lines[origin] = line
	}
	return lines
}

func isSignalFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, signalExt) && !strings.HasPrefix(name, ".")
}

func parseSignal(line string) (origin string, ev Event, ok bool) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", "", false
	}
	return parts[0], Event(parts[2]), true
}
