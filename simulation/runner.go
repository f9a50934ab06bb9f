package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rlsim/atomic_float"
	"rlsim/reinforcement"

	channerics "github.com/niceyeti/channerics/channels"
)

// ErrRunnerStopped is returned by commands sent after Run has returned.
var ErrRunnerStopped = errors.New("runner stopped")

type response struct {
	state EngineState
	err   error
}

type request struct {
	apply func() (EngineState, error)
	reply chan response
}

// Runner ticks an Engine once per frame on a single goroutine. Commands are
// queued and executed between ticks, so a tick is never interleaved with a
// reset or a re-initialization. Snapshots are fanned out to subscribers, each
// of which only ever holds the latest one.
type Runner struct {
	engine   *Engine
	frame    time.Duration
	requests chan request
	stopped  chan struct{}
	// epsilon is the latest requested exploration rate; applied is what the
	// engine currently uses. Both change only between ticks.
	epsilon *atomic_float.AtomicFloat64
	applied float64
	paused  bool

	mu          sync.Mutex
	cfg         Config
	last        EngineState
	subscribers map[chan EngineState]struct{}
}

func NewRunner(engine *Engine, frame time.Duration) *Runner {
	cfg := engine.Config()
	return &Runner{
		engine:      engine,
		frame:       frame,
		requests:    make(chan request),
		stopped:     make(chan struct{}),
		epsilon:     atomic_float.NewAtomicFloat64(cfg.Epsilon),
		applied:     cfg.Epsilon,
		cfg:         cfg,
		last:        engine.State(),
		subscribers: map[chan EngineState]struct{}{},
	}
}

// Run drives the engine until ctx is cancelled. It must be called once.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.stopped)

	ticker := channerics.NewTicker(ctx.Done(), r.frame)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-r.requests:
			state, err := req.apply()
			if err == nil {
				r.publish(state)
			}
			req.reply <- response{state: r.Snapshot(), err: err}
		case <-ticker:
			changed := r.applyEpsilon()
			if !r.paused {
				r.publish(r.engine.Tick())
			} else if changed {
				r.publish(r.engine.State())
			}
		}
	}
}

// applyEpsilon hands the latest requested epsilon to the engine.
func (r *Runner) applyEpsilon() bool {
	eps := r.epsilon.AtomicRead()
	if eps == r.applied {
		return false
	}
	if err := r.engine.SetEpsilon(eps); err != nil {
		// Re-initialized to a fixed-epsilon demo after the request was made.
		r.epsilon.AtomicStore(r.applied)
		return false
	}
	r.applied = eps

	r.mu.Lock()
	r.cfg = r.engine.Config()
	r.mu.Unlock()
	return true
}

// publish records the snapshot and offers it to every subscriber, replacing
// any snapshot the subscriber has not consumed yet.
func (r *Runner) publish(state EngineState) {
	state.Paused = r.paused

	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = state
	for sub := range r.subscribers {
		select {
		case sub <- state:
		default:
			select {
			case <-sub:
			default:
			}
			sub <- state
		}
	}
}

// Snapshot returns the most recently published state.
func (r *Runner) Snapshot() EngineState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Config returns the configuration of the engine.
func (r *Runner) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Subscribe returns a channel of snapshots, starting with the latest one.
// Slow readers miss intermediate snapshots. The channel is closed when ctx is done.
func (r *Runner) Subscribe(ctx context.Context) <-chan EngineState {
	sub := make(chan EngineState, 1)

	r.mu.Lock()
	sub <- r.last
	r.subscribers[sub] = struct{}{}
	r.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-r.stopped:
		}
		r.mu.Lock()
		delete(r.subscribers, sub)
		close(sub)
		r.mu.Unlock()
	}()
	return sub
}

// do queues fn to run between ticks and waits for its result.
func (r *Runner) do(ctx context.Context, fn func() (EngineState, error)) (EngineState, error) {
	req := request{
		apply: fn,
		reply: make(chan response, 1),
	}

	select {
	case r.requests <- req:
	case <-r.stopped:
		return EngineState{}, ErrRunnerStopped
	case <-ctx.Done():
		return EngineState{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp.state, resp.err
	case <-ctx.Done():
		return EngineState{}, ctx.Err()
	}
}

// Reset discards all learning, keeping the configuration.
func (r *Runner) Reset(ctx context.Context) (EngineState, error) {
	return r.do(ctx, func() (EngineState, error) {
		return r.engine.Reset(), nil
	})
}

// Initialize rebuilds the engine from cfg. An invalid cfg leaves it untouched.
func (r *Runner) Initialize(ctx context.Context, cfg Config) (EngineState, error) {
	return r.do(ctx, func() (EngineState, error) {
		state, err := r.engine.Initialize(cfg)
		if err != nil {
			return state, err
		}

		r.applied = r.engine.Config().Epsilon
		r.epsilon.AtomicStore(r.applied)
		r.mu.Lock()
		r.cfg = r.engine.Config()
		r.mu.Unlock()
		return state, nil
	})
}

// Pause stops ticking; commands are still served.
func (r *Runner) Pause(ctx context.Context) (EngineState, error) {
	return r.do(ctx, func() (EngineState, error) {
		r.paused = true
		return r.engine.State(), nil
	})
}

func (r *Runner) Resume(ctx context.Context) (EngineState, error) {
	return r.do(ctx, func() (EngineState, error) {
		r.paused = false
		return r.engine.State(), nil
	})
}

// SetEpsilon requests a new exploration rate, applied before the next tick.
// When called repeatedly between ticks, the latest value wins.
func (r *Runner) SetEpsilon(epsilon float64) error {
	r.mu.Lock()
	kind := r.cfg.Kind
	r.mu.Unlock()

	if kind != Traffic {
		return ErrEpsilonFixed
	}
	if epsilon < 0 || epsilon > 1 {
		return fmt.Errorf("epsilon %v: %w", epsilon, reinforcement.ErrEpsilonRange)
	}
	r.epsilon.AtomicStore(epsilon)
	return nil
}
