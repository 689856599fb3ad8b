package hcalreco

import "fmt"

// Slot layout of one batch row. All offsets are relative to the row base,
// row i starts at i*rowWidth.
const (
	slotEta    = 0
	slotPhi    = 1
	slotCharge = 2
	// One-hot depth block: slotDepth+d is set for depth d in 1..4
	slotDepth     = 10
	numDepthSlots = 4

	minRowWidth = slotDepth + numDepthSlots + 1
)

// BatchBuilder lays per-channel corrected charges and channel metadata into
// a flat pre-zeroed buffer of capacity*rowWidth, and keeps the identity
// ledger in lockstep: ledger entry i names the channel written at row i.
type BatchBuilder struct {
	input    []float32
	ledger   []ChannelID
	capacity int
	rowWidth int
	nCycles  int
}

func NewBatchBuilder(capacity, rowWidth, nCycles int) (*BatchBuilder, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("batch capacity must be positive, got %d", capacity)
	}
	if rowWidth < minRowWidth {
		return nil, fmt.Errorf("row width %d too small, need at least %d", rowWidth, minRowWidth)
	}
	if slotCharge+nCycles > slotDepth {
		return nil, fmt.Errorf("%d charge slots would overlap the depth block", nCycles)
	}
	return &BatchBuilder{
		input:    make([]float32, capacity*rowWidth),
		ledger:   make([]ChannelID, 0, capacity),
		capacity: capacity,
		rowWidth: rowWidth,
		nCycles:  nCycles,
	}, nil
}

// Add writes one admitted channel into the next row and records its
// identity. Charges beyond the configured cycle count are ignored, shorter
// sequences leave the remaining slots zeroed.
func (b *BatchBuilder) Add(id ChannelID, charges []float64) error {
	if len(b.ledger) >= b.capacity {
		return &ErrCapacityExceeded{Capacity: b.capacity}
	}

	base := len(b.ledger) * b.rowWidth
	b.input[base+slotEta] = float32(id.IEta)
	b.input[base+slotPhi] = float32(id.IPhi)
	for ts := 0; ts < b.nCycles && ts < len(charges); ts++ {
		b.input[base+slotCharge+ts] = float32(charges[ts])
	}
	for d := 1; d <= numDepthSlots; d++ {
		if id.Depth == d {
			b.input[base+slotDepth+d] = 1
		}
	}

	b.ledger = append(b.ledger, id)
	return nil
}

func (b *BatchBuilder) Rows() int {
	return len(b.ledger)
}

// Input returns the flat batch buffer, sized for the full capacity.
func (b *BatchBuilder) Input() []float32 {
	return b.input
}

// Ledger returns the ordered row-to-channel mapping. It must stay alive and
// unmodified until the cycle's output has been reconciled.
func (b *BatchBuilder) Ledger() []ChannelID {
	return b.ledger
}
