package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakePruner) Prune(_ context.Context, before time.Time) (int64, error) {
	f.cutoff = before
	return f.n, f.err
}

func TestRunOnce(t *testing.T) {
	hist := &fakePruner{n: 3}
	cache := &fakePruner{n: 1}
	s, err := New(Config{PruneSchedule: "@daily", RetainDays: 7}, zerolog.Nop(),
		Target{Name: "history", Pruner: hist},
		Target{Name: "cache", Pruner: cache},
	)
	require.NoError(t, err)
	now := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	removed, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"history": 3, "cache": 1}, removed)
	assert.Equal(t, now.AddDate(0, 0, -7), hist.cutoff)
}

func TestRunOnce_ContinuesPastErrors(t *testing.T) {
	bad := &fakePruner{err: errors.New("locked")}
	good := &fakePruner{n: 2}
	s, err := New(DefaultConfig(), zerolog.Nop(),
		Target{Name: "history", Pruner: bad},
		Target{Name: "cache", Pruner: good},
	)
	require.NoError(t, err)

	removed, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prune history")
	assert.Equal(t, int64(2), removed["cache"])
	assert.False(t, good.cutoff.IsZero())
}

func TestDisabled(t *testing.T) {
	p := &fakePruner{}
	s, err := New(Config{PruneSchedule: "not a schedule", RetainDays: 0}, zerolog.Nop(), Target{Name: "h", Pruner: p})
	require.NoError(t, err)
	removed, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.True(t, p.cutoff.IsZero())
}

func TestBadSchedule(t *testing.T) {
	_, err := New(Config{PruneSchedule: "every tuesday", RetainDays: 1}, zerolog.Nop())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New(DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
