package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/series-spider/pkg/orchestrate"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"6h", 6 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1d12h", 36 * time.Hour, false},
		{"-5m", 0, true},
		{"0s", 0, true},
		{"1dx", 0, true},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInterval(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h30m"},
		{24 * time.Hour, "1d"},
		{36 * time.Hour, "1d12h"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatInterval(tt.input))
		})
	}
}

func TestCalculateTickInterval(t *testing.T) {
	assert.Equal(t, time.Minute, calculateTickInterval(5*time.Minute))
	assert.Equal(t, 6*time.Minute, calculateTickInterval(time.Hour))
	assert.Equal(t, 10*time.Minute, calculateTickInterval(24*time.Hour))
}

func TestStateManager_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	key := "/data/contents.toml"

	sm := NewStateManager(dir)
	require.NoError(t, sm.Load())
	assert.True(t, sm.ShouldRun(key, time.Hour, time.Now()), "unknown store should run")

	runTime := time.Now().Add(-30 * time.Minute).Truncate(time.Second)
	sm.UpdateStoreState(key, runTime, StoreState{LastRunSuccess: true, RecordsChecked: 4, RecordsAdvanced: 1})
	require.NoError(t, sm.Save())
	assert.FileExists(t, filepath.Join(dir, stateFileName))

	reloaded := NewStateManager(dir)
	require.NoError(t, reloaded.Load())
	state, ok := reloaded.GetStoreState(key)
	require.True(t, ok)
	assert.True(t, state.LastRunSuccess)
	assert.Equal(t, 4, state.RecordsChecked)
	assert.Equal(t, 1, state.RecordsAdvanced)
	assert.True(t, runTime.Equal(state.LastRunTime))

	assert.False(t, reloaded.ShouldRun(key, time.Hour, time.Now()))
	assert.True(t, reloaded.ShouldRun(key, 20*time.Minute, time.Now()))
	assert.True(t, runTime.Add(time.Hour).Equal(reloaded.GetNextRunTime(key, time.Hour)))
}

func TestStateManager_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0644))

	err := NewStateManager(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse state file")
}

func TestStateManager_MemoryOnly(t *testing.T) {
	sm := NewStateManager("")
	require.NoError(t, sm.Load())
	sm.UpdateStoreState("k", time.Now(), StoreState{LastRunSuccess: true})
	require.NoError(t, sm.Save())

	_, ok := sm.GetStoreState("k")
	assert.True(t, ok)
}

func TestScheduler_RunsImmediatelyAndRecordsState(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	run := func(ctx context.Context) (*orchestrate.Summary, error) {
		calls.Add(1)
		return &orchestrate.Summary{Records: 3, Advanced: 2}, nil
	}

	s := NewScheduler("store", time.Hour, dir, run, testLogger())
	s.tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := s.stateManager.GetStoreState("store")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	// Several ticks pass without the interval elapsing
	time.Sleep(30 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), calls.Load())
	state, _ := s.stateManager.GetStoreState("store")
	assert.True(t, state.LastRunSuccess)
	assert.Equal(t, 3, state.RecordsChecked)
	assert.Equal(t, 2, state.RecordsAdvanced)

	// A restarted scheduler remembers the last run and waits for the interval
	restarted := NewScheduler("store", time.Hour, dir, run, testLogger())
	restarted.tick = 5 * time.Millisecond
	ctx2, cancel2 := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel2()
	require.NoError(t, restarted.Run(ctx2))
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_RecordsFailure(t *testing.T) {
	run := func(ctx context.Context) (*orchestrate.Summary, error) {
		return &orchestrate.Summary{Records: 2}, errors.New("disk full")
	}

	s := NewScheduler("store", time.Hour, "", run, testLogger())
	s.tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := s.stateManager.GetStoreState("store")
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	state, _ := s.stateManager.GetStoreState("store")
	assert.False(t, state.LastRunSuccess)
	assert.Equal(t, "disk full", state.ErrorMessage)
	assert.Equal(t, 2, state.RecordsChecked)
}

func TestScheduler_InterruptedRunNotRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	run := func(ctx context.Context) (*orchestrate.Summary, error) {
		cancel()
		return &orchestrate.Summary{}, ctx.Err()
	}

	s := NewScheduler("store", time.Hour, "", run, testLogger())
	require.NoError(t, s.Run(ctx))

	_, ok := s.stateManager.GetStoreState("store")
	assert.False(t, ok)
}
