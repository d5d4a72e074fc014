package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultBufferSize      = 256
	DefaultDeliveryTimeout = time.Second
)

var (
	// ErrDeliveryFailed wraps every failure to hand an event to a subscriber.
	// It is reported to the producer for logging and must never abort the
	// operation that triggered the emission.
	ErrDeliveryFailed = errors.New("event delivery failed")

	// ErrBusCompleted indicates the bus no longer accepts events.
	ErrBusCompleted = errors.New("event bus completed")
)

// Option customises a Bus.
type Option func(*Bus)

// WithBufferSize sets the per-subscriber buffer and the warm-up backlog capacity.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithDeliveryTimeout bounds how long Publish waits on a full subscriber buffer.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// Bus is a multicast event stream. Each subscriber receives every event
// published after it subscribed, in publish order. Events published while
// nobody listens are held in a backlog, up to the buffer size, and handed to
// the first subscriber.
type Bus struct {
	mu         sync.Mutex
	bufferSize int
	timeout    time.Duration
	subs       map[uint64]*Subscription
	nextID     uint64
	backlog    []Event
	completed  bool
}

// NewBus constructs an open bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		bufferSize: DefaultBufferSize,
		timeout:    DefaultDeliveryTimeout,
		subs:       make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription is a live view on a Bus.
type Subscription struct {
	id   uint64
	bus  *Bus
	ch   chan Event
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	stop func() bool
}

// Events returns the channel carrying events. It is closed once the
// subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Cancel ends the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.bus.remove(s)
	})
}

// Subscribe registers a subscriber. The subscription is cancelled when ctx is done.
func (b *Bus) Subscribe(ctx context.Context) *Subscription {
	b.mu.Lock()
	b.nextID++
	sub := &Subscription{
		id:   b.nextID,
		bus:  b,
		ch:   make(chan Event, b.bufferSize),
		done: make(chan struct{}),
	}
	for _, e := range b.backlog {
		sub.ch <- e
	}
	b.backlog = nil
	if b.completed {
		close(sub.ch)
		b.mu.Unlock()
		return sub
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	if ctx != nil {
		stop := context.AfterFunc(ctx, sub.Cancel)
		sub.mu.Lock()
		sub.stop = stop
		sub.mu.Unlock()
	}
	return sub
}

// Publish hands e to every subscriber. A subscriber whose buffer stays full
// for longer than the delivery timeout, or that has been cancelled, makes
// Publish return an error wrapping ErrDeliveryFailed; the remaining
// subscribers still receive the event.
func (b *Bus) Publish(e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.completed {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, ErrBusCompleted)
	}

	if len(b.subs) == 0 {
		if len(b.backlog) >= b.bufferSize {
			return fmt.Errorf("%w: backlog full (%d events)", ErrDeliveryFailed, b.bufferSize)
		}
		b.backlog = append(b.backlog, e)
		return nil
	}

	var errs []error
	for _, sub := range b.subs {
		if err := b.deliverLocked(sub, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) deliverLocked(sub *Subscription, e Event) error {
	select {
	case <-sub.done:
		b.dropLocked(sub)
		return fmt.Errorf("%w: subscriber %d cancelled", ErrDeliveryFailed, sub.id)
	default:
	}

	select {
	case sub.ch <- e:
		return nil
	default:
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case sub.ch <- e:
		return nil
	case <-sub.done:
		b.dropLocked(sub)
		return fmt.Errorf("%w: subscriber %d cancelled", ErrDeliveryFailed, sub.id)
	case <-timer.C:
		return fmt.Errorf("%w: subscriber %d did not accept event within %s", ErrDeliveryFailed, sub.id, b.timeout)
	}
}

// Complete closes every subscription. Later publishes fail with ErrBusCompleted.
func (b *Bus) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.completed {
		return
	}
	b.completed = true
	for _, sub := range b.subs {
		b.dropLocked(sub)
	}
}

// Completed reports whether Complete has been called.
func (b *Bus) Completed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completed
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked(sub)
}

func (b *Bus) dropLocked(sub *Subscription) {
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
}
