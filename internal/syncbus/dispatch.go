package syncbus

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Quranfi-Project/quranfi-web/internal/metrics"
)

// dispatcher fans received events out to the subscriptions of one endpoint.
// Every transport embeds one.
type dispatcher struct {
	id string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

func newDispatcher() *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &dispatcher{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[uint64]*subscription),
	}
}

// subscription owns an unbounded FIFO drained by a single goroutine, so a
// slow handler never blocks the transport.
type subscription struct {
	handler Handler

	mu      sync.Mutex
	pending []Event

	wake chan struct{}
	quit chan struct{}
	stop sync.Once
}

func (d *dispatcher) Subscribe(h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return func() {}
	}

	id := d.nextID
	d.nextID++
	sub := &subscription{
		handler: h,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	d.subs[id] = sub

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sub.run(d.ctx)
	}()

	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
		sub.close()
	}
}

// deliver queues ev on every subscription. It never blocks.
func (d *dispatcher) deliver(ev Event) {
	metrics.SignalReceived(string(ev))

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, sub := range d.subs {
		sub.push(ev)
	}
}

func (d *dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// shutdown stops every subscription and waits for running handlers.
// It reports false when the dispatcher was already closed.
func (d *dispatcher) shutdown() bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.closed = true
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	d.cancel()
	d.wg.Wait()
	return true
}

func (s *subscription) push(ev Event) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) next() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return "", false
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, true
}

func (s *subscription) run(ctx context.Context) {
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}

		for {
			ev, ok := s.next()
			if !ok {
				break
			}
			select {
			case <-s.quit:
				return
			default:
			}
			s.handler(ctx, ev)
		}
	}
}

func (s *subscription) close() {
	s.stop.Do(func() { close(s.quit) })
}
