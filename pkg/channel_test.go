package hcalreco

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptedSubdetector(t *testing.T) {
	assert.True(t, AcceptedSubdetector(Barrel))
	assert.True(t, AcceptedSubdetector(Endcap))
	assert.True(t, AcceptedSubdetector(Outer))
	assert.False(t, AcceptedSubdetector(Forward))
	assert.False(t, AcceptedSubdetector(Subdetector(0)))
	assert.False(t, AcceptedSubdetector(Subdetector(7)))
}

func TestChannelKeyRoundTrip(t *testing.T) {
	channels := []ChannelID{
		{Subdet: Barrel, IEta: 1, IPhi: 1, Depth: 1},
		{Subdet: Barrel, IEta: -16, IPhi: 72, Depth: 2},
		{Subdet: Endcap, IEta: 29, IPhi: 36, Depth: 7},
		{Subdet: Outer, IEta: -15, IPhi: 5, Depth: 4},
		{Subdet: Forward, IEta: 41, IPhi: 71, Depth: 2},
	}
	for _, id := range channels {
		assert.Equal(t, id, UnpackChannelKey(id.Pack()), "%v", id)
	}
}

func TestChannelKeyZSideBit(t *testing.T) {
	plus := ChannelID{Subdet: Barrel, IEta: 10, IPhi: 3, Depth: 1}
	minus := ChannelID{Subdet: Barrel, IEta: -10, IPhi: 3, Depth: 1}

	assert.Zero(t, plus.Pack()&(1<<30))
	assert.NotZero(t, minus.Pack()&(1<<30))
	assert.NotEqual(t, plus.Pack(), minus.Pack())
}

func TestSubdetectorNames(t *testing.T) {
	assert.Equal(t, "HB", Barrel.String())
	assert.Equal(t, "HE", Endcap.String())
	assert.Equal(t, "HO", Outer.String())
	assert.Equal(t, "HF", Forward.String())
	assert.Equal(t, "Unknown", Subdetector(9).String())
}
