package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobArchiver struct {
	cutoffs []time.Time
	err     error
}

func (f *fakeBlobArchiver) ArchiveAudit(_ context.Context, before time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, before)
	return 7, f.err
}

func TestArchiverRunUsesRetentionCutoff(t *testing.T) {
	t.Parallel()

	blob := &fakeBlobArchiver{}
	a := NewArchiver(blob, 30, slog.New(slog.DiscardHandler))
	now := time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	require.NoError(t, a.Run(context.Background()))
	require.Len(t, blob.cutoffs, 1)
	assert.Equal(t, time.Date(2026, 9, 16, 3, 0, 0, 0, time.UTC), blob.cutoffs[0])
}

func TestArchiverRunPropagatesError(t *testing.T) {
	t.Parallel()

	blob := &fakeBlobArchiver{err: errors.New("bucket gone")}
	a := NewArchiver(blob, 30, slog.New(slog.DiscardHandler))

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "bucket gone")
}

func TestRunCronRejectsBadExpression(t *testing.T) {
	t.Parallel()

	a := NewArchiver(&fakeBlobArchiver{}, 30, slog.New(slog.DiscardHandler))
	err := a.RunCron(context.Background(), "0 3 * *")
	require.Error(t, err)
}

func TestRunCronStopsOnCancel(t *testing.T) {
	t.Parallel()

	blob := &fakeBlobArchiver{}
	a := NewArchiver(blob, 30, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.RunCron(ctx, "0 3 * * *")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, blob.cutoffs)
}

func TestNextCronTime(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 10, 16, 2, 30, 15, 0, time.UTC) // Friday

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{"daily", "0 3 * * *", time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC)},
		{"every minute", "* * * * *", time.Date(2026, 10, 16, 2, 31, 0, 0, time.UTC)},
		{"step", "*/15 * * * *", time.Date(2026, 10, 16, 2, 45, 0, 0, time.UTC)},
		{"list", "10,40 * * * *", time.Date(2026, 10, 16, 2, 40, 0, 0, time.UTC)},
		{"range", "0 5-7 * * *", time.Date(2026, 10, 16, 5, 0, 0, 0, time.UTC)},
		{"range step", "0 0-23/6 * * *", time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC)},
		{"weekday", "0 3 * * 1", time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)},
		{"monthly", "0 3 1 * *", time.Date(2026, 11, 1, 3, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := nextCronTime(tt.expr, base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCron(t *testing.T) {
	t.Parallel()

	bad := []string{
		"",
		"0 3 * *",
		"60 * * * *",
		"0 24 * * *",
		"0 0 0 * *",
		"*/0 * * * *",
		"5-2 * * * *",
		"a * * * *",
	}
	for _, expr := range bad {
		assert.Error(t, ValidateCron(expr), expr)
	}
	assert.NoError(t, ValidateCron("0 3 * * *"))
	assert.NoError(t, ValidateCron("*/5 0-6 1,15 * 1-5"))
}

type signalArchiver struct {
	runs chan time.Time
}

func (s *signalArchiver) ArchiveAudit(_ context.Context, before time.Time) (int64, error) {
	s.runs <- before
	return 0, nil
}

func TestRunCronTrigger(t *testing.T) {
	t.Parallel()

	blob := &signalArchiver{runs: make(chan time.Time, 1)}
	a := NewArchiver(blob, 7, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunCron(ctx, "0 3 1 1 *") }()

	a.Trigger() <- struct{}{}
	select {
	case <-blob.runs:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered run did not happen")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
