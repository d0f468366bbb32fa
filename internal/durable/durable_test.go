package durable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	steps    []string
	replayed []bool
}

func (o *recordingObserver) ObserveStep(step string, d time.Duration, replayed bool) {
	o.steps = append(o.steps, step)
	o.replayed = append(o.replayed, replayed)
}

type failingStore struct {
	*MemoryStore
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, runID, step string, data []byte) error {
	return f.saveErr
}

type payload struct {
	URL   string            `json:"url"`
	Files map[string]string `json:"files"`
}

func newRun(t *testing.T, id string, store Store, opts ...Option) *Run {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewRun(id, store, append([]Option{WithLogger(logger)}, opts...)...)
}

func TestStep_CompletedStepIsNotReExecuted(t *testing.T) {
	store := NewMemoryStore()
	obs := &recordingObserver{}
	calls := 0
	fn := func(ctx context.Context) (payload, error) {
		calls++
		return payload{URL: "https://x", Files: map[string]string{"a": "1"}}, nil
	}

	first, err := Step(context.Background(), newRun(t, "run-1", store, WithObserver(obs)), "get-sandbox-url", fn)
	require.NoError(t, err)
	second, err := Step(context.Background(), newRun(t, "run-1", store, WithObserver(obs)), "get-sandbox-url", fn)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"get-sandbox-url", "get-sandbox-url"}, obs.steps)
	assert.Equal(t, []bool{false, true}, obs.replayed)
}

func TestStep_CheckpointsAreScopedByRun(t *testing.T) {
	store := NewMemoryStore()
	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		return "sbx", nil
	}

	_, err := Step(context.Background(), newRun(t, "run-1", store), "get-sandbox-id", fn)
	require.NoError(t, err)
	_, err = Step(context.Background(), newRun(t, "run-2", store), "get-sandbox-id", fn)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestStep_FailureIsNotMemoized(t *testing.T) {
	store := NewMemoryStore()
	boom := errors.New("provisioning failed")
	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "sbx-1", nil
	}
	run := newRun(t, "run-1", store)

	_, err := Step(context.Background(), run, "get-sandbox-id", fn)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "get-sandbox-id", stepErr.Step)
	assert.ErrorIs(t, err, boom)

	id, err := Step(context.Background(), run, "get-sandbox-id", fn)
	require.NoError(t, err)
	assert.Equal(t, "sbx-1", id)
	assert.Equal(t, 2, calls)
}

func TestStep_SaveFailureIsReported(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), saveErr: errors.New("disk full")}

	_, err := Step(context.Background(), newRun(t, "run-1", store), "save-result", func(ctx context.Context) (bool, error) {
		return true, nil
	})

	assert.ErrorContains(t, err, "failed to save checkpoint")
}

func TestStep_CorruptCheckpoint(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "run-1", "s", []byte("{not json")))

	_, err := Step(context.Background(), newRun(t, "run-1", store), "s", func(ctx context.Context) (payload, error) {
		t.Fatal("should not run")
		return payload{}, nil
	})

	assert.ErrorContains(t, err, "failed to decode checkpoint")
}

func TestMemoryStore_Forget(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "run-1", "a", []byte(`1`)))

	require.NoError(t, store.Forget(ctx, "run-1"))

	_, ok, err := store.Load(ctx, "run-1", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var attempts []int
	err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("attempt failed")
	})

	assert.EqualError(t, err, "attempt failed")
	assert.Equal(t, 2, calls)
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errors.New("failed")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
