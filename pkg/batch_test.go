package hcalreco

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRowIdentityAlignment(t *testing.T) {
	builder, err := NewBatchBuilder(8, 15, 8)
	require.NoError(t, err)

	channels := []ChannelID{
		{Subdet: Barrel, IEta: -5, IPhi: 10, Depth: 1},
		{Subdet: Endcap, IEta: 21, IPhi: 44, Depth: 3},
		{Subdet: Outer, IEta: 2, IPhi: 70, Depth: 4},
	}
	for _, id := range channels {
		require.NoError(t, builder.Add(id, []float64{1, 2, 3, 4, 5, 6, 7, 8}))
	}

	require.Equal(t, len(channels), builder.Rows())
	require.Equal(t, channels, builder.Ledger())

	input := builder.Input()
	for i, id := range channels {
		base := i * 15
		assert.Equal(t, float32(id.IEta), input[base+slotEta], "row %d eta", i)
		assert.Equal(t, float32(id.IPhi), input[base+slotPhi], "row %d phi", i)
		for d := 1; d <= numDepthSlots; d++ {
			expected := float32(0)
			if d == id.Depth {
				expected = 1
			}
			assert.Equal(t, expected, input[base+slotDepth+d], "row %d depth slot %d", i, d)
		}
	}
}

func TestBatchChargePlacement(t *testing.T) {
	builder, err := NewBatchBuilder(4, 15, 8)
	require.NoError(t, err)

	charges := []float64{10, 11, 12, 13, 14, 15, 16, 17}
	id := ChannelID{Subdet: Barrel, IEta: 1, IPhi: 1, Depth: 1}
	require.NoError(t, builder.Add(id, charges))

	input := builder.Input()
	for ts, q := range charges {
		assert.Equal(t, float32(q), input[slotCharge+ts])
	}

	// A short charge sequence leaves the remaining slots zeroed
	require.NoError(t, builder.Add(id, []float64{9, 9}))
	base := 1 * 15
	assert.Equal(t, float32(9), input[base+slotCharge])
	assert.Equal(t, float32(9), input[base+slotCharge+1])
	for ts := 2; ts < 8; ts++ {
		assert.Equal(t, float32(0), input[base+slotCharge+ts])
	}
}

func TestBatchSecondRowDoesNotTouchFirst(t *testing.T) {
	builder, err := NewBatchBuilder(4, 15, 8)
	require.NoError(t, err)

	first := ChannelID{Subdet: Barrel, IEta: -3, IPhi: 7, Depth: 2}
	second := ChannelID{Subdet: Endcap, IEta: 25, IPhi: 60, Depth: 4}
	require.NoError(t, builder.Add(first, []float64{1, 1, 1, 1, 1, 1, 1, 1}))
	require.NoError(t, builder.Add(second, []float64{2, 2, 2, 2, 2, 2, 2, 2}))

	input := builder.Input()
	assert.Equal(t, float32(-3), input[slotEta])
	assert.Equal(t, float32(7), input[slotPhi])
	assert.Equal(t, float32(25), input[15+slotEta])
	assert.Equal(t, float32(60), input[15+slotPhi])
}

func TestBatchCapacityBoundary(t *testing.T) {
	builder, err := NewBatchBuilder(2, 15, 8)
	require.NoError(t, err)

	id := ChannelID{Subdet: Barrel, IEta: 1, IPhi: 1, Depth: 1}
	charges := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	require.NoError(t, builder.Add(id, charges))
	require.NoError(t, builder.Add(id, charges))

	err = builder.Add(id, charges)
	require.Error(t, err)
	var capacity *ErrCapacityExceeded
	require.True(t, errors.As(err, &capacity))
	assert.Equal(t, 2, capacity.Capacity)

	// The ledger still matches the populated rows
	assert.Equal(t, 2, builder.Rows())
}

func TestBatchShapeValidation(t *testing.T) {
	_, err := NewBatchBuilder(0, 15, 8)
	assert.Error(t, err)

	_, err = NewBatchBuilder(4, 14, 8)
	assert.Error(t, err)

	// Nine charge slots would overlap the one-hot depth block
	_, err = NewBatchBuilder(4, 15, 9)
	assert.Error(t, err)
}
