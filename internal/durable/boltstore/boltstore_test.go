package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Cyclone1070/codeagent/internal/durable"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "cp.db"))
	defer s.Close()
	ctx := context.Background()

	_, ok, err := s.Load(ctx, "run-1", "get-sandbox-id")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "run-1", "get-sandbox-id", []byte(`"sbx-1"`)))

	data, ok, err := s.Load(ctx, "run-1", "get-sandbox-id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"sbx-1"`, string(data))
}

func TestCheckpoints_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cp.db")
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	s := openStore(t, path)
	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		return "sbx-1", nil
	}
	_, err := durable.Step(ctx, durable.NewRun("run-1", s, durable.WithLogger(logger)), "get-sandbox-id", fn)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openStore(t, path)
	defer s.Close()
	id, err := durable.Step(ctx, durable.NewRun("run-1", s, durable.WithLogger(logger)), "get-sandbox-id", fn)

	require.NoError(t, err)
	assert.Equal(t, "sbx-1", id)
	assert.Equal(t, 1, calls)
}

func TestForget_RemovesRunOnly(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "cp.db"))
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "run-1", "a", []byte(`1`)))
	require.NoError(t, s.Save(ctx, "run-2", "a", []byte(`2`)))

	require.NoError(t, s.Forget(ctx, "run-1"))
	require.NoError(t, s.Forget(ctx, "missing"))

	_, ok, err := s.Load(ctx, "run-1", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Equal(t, []string{"run-2"}, runs)
}
