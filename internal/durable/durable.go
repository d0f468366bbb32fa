// Package durable runs named, memoized steps. A step that completed once is
// never executed again for the same run; its JSON result is read back from
// the checkpoint store instead.
package durable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Store is a checkpoint log keyed by (run id, step name).
type Store interface {
	// Load returns the saved result of a step. ok is false when the step has
	// not completed yet.
	Load(ctx context.Context, runID, step string) (data []byte, ok bool, err error)

	// Save records the result of a completed step.
	Save(ctx context.Context, runID, step string, data []byte) error

	// Forget drops every checkpoint of a run.
	Forget(ctx context.Context, runID string) error
}

// Observer is notified after every step.
type Observer interface {
	ObserveStep(step string, d time.Duration, replayed bool)
}

// StepError reports which step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Run scopes steps to one run id.
type Run struct {
	id       string
	store    Store
	logger   logrus.FieldLogger
	observer Observer
}

// Option configures a Run.
type Option func(*Run)

// WithObserver reports step timings and replays.
func WithObserver(o Observer) Option {
	return func(r *Run) { r.observer = o }
}

// WithLogger sets the logger steps are reported to.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Run) { r.logger = l }
}

func NewRun(id string, store Store, opts ...Option) *Run {
	r := &Run{id: id, store: store, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithField("run_id", id)
	return r
}

// ID returns the run id.
func (r *Run) ID() string { return r.id }

// Step executes fn once per run under name and memoizes its result.
func Step[T any](ctx context.Context, r *Run, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	log := r.logger.WithField("step", name)

	data, ok, err := r.store.Load(ctx, r.id, name)
	if err != nil {
		return zero, &StepError{Step: name, Err: fmt.Errorf("failed to load checkpoint: %w", err)}
	}
	if ok {
		var out T
		if err := json.Unmarshal(data, &out); err != nil {
			return zero, &StepError{Step: name, Err: fmt.Errorf("failed to decode checkpoint: %w", err)}
		}
		log.Debug("step replayed from checkpoint")
		r.observe(name, 0, true)
		return out, nil
	}

	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)
	r.observe(name, elapsed, false)
	if err != nil {
		log.WithError(err).WithField("elapsed", elapsed).Warn("step failed")
		return zero, &StepError{Step: name, Err: err}
	}

	data, err = json.Marshal(out)
	if err != nil {
		return zero, &StepError{Step: name, Err: fmt.Errorf("failed to encode result: %w", err)}
	}
	if err := r.store.Save(ctx, r.id, name, data); err != nil {
		return zero, &StepError{Step: name, Err: fmt.Errorf("failed to save checkpoint: %w", err)}
	}
	log.WithField("elapsed", elapsed).Info("step completed")
	return out, nil
}

func (r *Run) observe(step string, d time.Duration, replayed bool) {
	if r.observer != nil {
		r.observer.ObserveStep(step, d, replayed)
	}
}

// Retry calls fn until it succeeds, attempts are exhausted, or ctx is done.
// The wait before attempt n is backoff*(n-1).
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			t := time.NewTimer(backoff * time.Duration(attempt-1))
			select {
			case <-ctx.Done():
				t.Stop()
				return errors.Join(err, ctx.Err())
			case <-t.C:
			}
		}
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, runID, step string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.runs[runID][step]
	return data, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, runID, step string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps, ok := m.runs[runID]
	if !ok {
		steps = make(map[string][]byte)
		m.runs[runID] = steps
	}
	steps[step] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Forget(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runID)
	return nil
}
