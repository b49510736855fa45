package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/fystack/walletcore/pkg/logger"
)

var (
	// ErrAlreadyRunning reports a second Run call on the same ingress. The
	// queue supports exactly one consumer for the lifetime of the process,
	// so this is a configuration error and fatal at startup.
	ErrAlreadyRunning = errors.New("bridge ingress consumer already running")
)

// Handler processes one event. It runs on the consumer goroutine; spawning
// further work is fine, blocking the loop is not.
type Handler func(Event)

// Ingress is an unbounded, ordered, multi-producer/single-consumer event
// queue. Producers are host boundary callbacks running on threads the core
// does not own; Publish never blocks and never drops. Events published before
// the consumer starts are held until Run drains them.
//
// Construct one ingress per process and thread the handle through explicitly.
type Ingress struct {
	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	running bool
}

func NewIngress() *Ingress {
	return &Ingress{
		wake: make(chan struct{}, 1),
	}
}

// Publish enqueues an event. Safe to call from any goroutine at any time
// after construction.
func (in *Ingress) Publish(ev Event) {
	in.mu.Lock()
	in.pending = append(in.pending, ev)
	in.mu.Unlock()

	select {
	case in.wake <- struct{}{}:
	default:
	}
}

// Len reports the number of events waiting to be consumed.
func (in *Ingress) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pending)
}

// Run drains the queue, invoking handler for each event strictly in arrival
// order, until the context is canceled. Only one Run may ever be active.
func (in *Ingress) Run(ctx context.Context, handler Handler) error {
	in.mu.Lock()
	if in.running {
		in.mu.Unlock()
		return ErrAlreadyRunning
	}
	in.running = true
	in.mu.Unlock()

	logger.Info("BridgeIngress: consumer started")

	for {
		batch := in.take()
		for _, ev := range batch {
			handler(ev)
		}

		select {
		case <-ctx.Done():
			// Drain whatever arrived during the final batch so nothing is
			// silently lost on shutdown.
			for _, ev := range in.take() {
				handler(ev)
			}
			logger.Info("BridgeIngress: consumer stopped")
			return ctx.Err()
		case <-in.wake:
		}
	}
}

// take removes and returns all currently pending events.
func (in *Ingress) take() []Event {
	in.mu.Lock()
	defer in.mu.Unlock()
	batch := in.pending
	in.pending = nil
	return batch
}
