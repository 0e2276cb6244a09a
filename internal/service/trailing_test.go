package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

func TestTrailingBook_RatchetIsMonotonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		dir    domain.Direction
		prices []float64
		want   float64
	}{
		{name: "long", dir: domain.DirectionLong, prices: []float64{101, 105, 103, 104, 102}, want: 105},
		{name: "short", dir: domain.DirectionShort, prices: []float64{99, 95, 97, 96, 98}, want: 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			book := NewTrailingBook(nil, testLogger())
			book.Put(ctx, domain.TrailingState{Symbol: "X", Direction: tt.dir, EntryPrice: 100, PeakPrice: 100, ATR: 1, Multiplier: 1.8})

			prev := 100.0
			for _, p := range tt.prices {
				st, ok := book.Ratchet(ctx, "X", p)
				require.True(t, ok)
				if tt.dir == domain.DirectionShort {
					assert.LessOrEqual(t, st.PeakPrice, prev)
				} else {
					assert.GreaterOrEqual(t, st.PeakPrice, prev)
				}
				prev = st.PeakPrice
			}
			st, _ := book.Get("X")
			assert.Equal(t, tt.want, st.PeakPrice)
		})
	}
}

func TestTrailingBook_StopScenario(t *testing.T) {
	t.Parallel()

	st := domain.TrailingState{Direction: domain.DirectionLong, EntryPrice: 100, PeakPrice: 110, ATR: 1, Multiplier: 1.8}
	assert.InDelta(t, 108.2, st.StopPrice(), 1e-9)
	assert.True(t, st.Breached(108.0))
	assert.False(t, st.Breached(108.3))

	short := domain.TrailingState{Direction: domain.DirectionShort, EntryPrice: 100, PeakPrice: 90, ATR: 1, Multiplier: 1.8}
	assert.InDelta(t, 91.8, short.StopPrice(), 1e-9)
	assert.True(t, short.Breached(92))
	assert.False(t, short.Breached(91.5))
}

func TestTrailingBook_MirrorsAndRestores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemTrailingStore()
	book := NewTrailingBook(store, testLogger())

	book.Put(ctx, domain.TrailingState{Symbol: "AUSDT", Direction: domain.DirectionLong, EntryPrice: 10, PeakPrice: 10})
	book.Put(ctx, domain.TrailingState{Symbol: "BUSDT", Direction: domain.DirectionLong, EntryPrice: 20, PeakPrice: 20})
	book.Ratchet(ctx, "AUSDT", 12)

	saved, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.Equal(t, 12.0, store.states["AUSDT"].PeakPrice)

	fresh := NewTrailingBook(store, testLogger())
	n, err := fresh.Restore(ctx, map[string]bool{"AUSDT": true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, fresh.Has("AUSDT"))
	assert.False(t, fresh.Has("BUSDT"))
	_, stale := store.states["BUSDT"]
	assert.False(t, stale)

	assert.True(t, fresh.Delete(ctx, "AUSDT"))
	assert.False(t, fresh.Delete(ctx, "AUSDT"))
	assert.Zero(t, fresh.Len())
}
