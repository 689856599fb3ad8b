package hcalreco

import (
	"context"
	"fmt"
)

// Producer runs the per-cycle pipeline: filter and decode each channel,
// correct the charges, lay them into one batch, submit it for inference and
// reconcile the returned rows into rec hits.
//
// A cycle is split in two phases. Acquire prepares and submits the input and
// returns the cycle context owning the batch, the identity ledger and the
// pending handle. Produce consumes that context once the result is ready.
// At most one cycle should be in flight per Producer.
type Producer struct {
	qtsShift  int
	qntsToSum int
	nCycles   int
	cond      ConditionsService
	client    InferenceClient
}

func NewProducer(config Configuration, cond ConditionsService, client InferenceClient) *Producer {
	nCycles := config.NumCycles
	if nCycles <= 0 {
		nCycles = 8
	}
	return &Producer{
		qtsShift:  config.SipmQTSShift,
		qntsToSum: config.SipmQNTStoSum,
		nCycles:   nCycles,
		cond:      cond,
		client:    client,
	}
}

// Cycle owns the state threaded from the submission phase to the
// reconciliation phase. Input and ledger stay alive and unmodified until
// Produce has consumed the output.
type Cycle struct {
	EventID uint32
	input   []float32
	ledger  []ChannelID
	handle  InferenceHandle
}

func (p *Producer) Acquire(ctx context.Context, event Event) (*Cycle, error) {
	builder, err := NewBatchBuilder(p.client.BatchCapacity(), p.client.RowWidth(), p.nCycles)
	if err != nil {
		return nil, err
	}

	for _, frame := range event.Frames {
		if !AcceptedSubdetector(frame.ID.Subdet) {
			continue
		}

		calib, err := p.cond.Calibrations(frame.ID)
		if err != nil {
			return nil, err
		}
		coder, shape, err := p.cond.Coder(frame.ID)
		if err != nil {
			return nil, err
		}
		cs, maxTS, err := DecodeFrame(frame, coder, shape)
		if err != nil {
			return nil, err
		}

		correction, err := NewChargeCorrection(p.qtsShift, p.qntsToSum, p.cond, frame, cs, calib, maxTS)
		if err != nil {
			return nil, err
		}

		charges := make([]float64, p.nCycles)
		for ts := 0; ts < p.nCycles && ts < maxTS; ts++ {
			pedestal := calib.Pedestal(frame.Samples[ts].CapID)
			charges[ts] = correction.RawCharge(cs[ts], pedestal)
		}

		if err := builder.Add(frame.ID, charges); err != nil {
			return nil, err
		}
	}

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("event %d: %d frames read, %d channels admitted",
			event.EventID, len(event.Frames), builder.Rows())
		logger.Info(message, "producer")
	}

	handle, err := p.client.Submit(ctx, builder.Input(), builder.Rows())
	if err != nil {
		return nil, err
	}

	return &Cycle{
		EventID: event.EventID,
		input:   builder.Input(),
		ledger:  builder.Ledger(),
		handle:  handle,
	}, nil
}

// Produce waits for the cycle's inference result and emits one rec hit per
// ledger entry, in ledger order. Output row i is attributed to ledger entry
// i, never re-sorted. Any inference failure is terminal for the cycle: no
// partial records are emitted.
func (p *Producer) Produce(ctx context.Context, cycle *Cycle) ([]RecHit, error) {
	output, err := cycle.handle.Result(ctx)
	if err != nil {
		return nil, err
	}

	outputWidth := p.client.OutputWidth()
	if len(output) < len(cycle.ledger)*outputWidth {
		return nil, &ErrInference{
			Op: "result",
			Err: fmt.Errorf("output has %d values, need %d rows of width %d",
				len(output), len(cycle.ledger), outputWidth),
		}
	}

	hits := make([]RecHit, len(cycle.ledger))
	for i, id := range cycle.ledger {
		base := i * outputWidth
		hit := RecHit{ID: id, Energy: output[base]}
		if outputWidth > 1 {
			hit.Time = output[base+1]
		}
		if outputWidth > 2 {
			hit.Flags = uint32(output[base+2])
		}
		hits[i] = hit
	}
	return hits, nil
}
