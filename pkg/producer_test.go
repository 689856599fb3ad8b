package hcalreco

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConditions() UniformConditions {
	return UniformConditions{
		Calib: Calibrations{
			Pedestals: [NumCapIDs]float64{2, 2, 2, 2},
			Gain:      1,
		},
		QCoder: IdentityCoder(0),
		QShape: LinearShape(256, 1.0),
		Param:  SiPMParameter{Type: 0, FCByPE: 44.0},
		Nonlin: SiPMNonlinearity{Coefs: [3]float64{1, 0, 0}},
	}
}

func testFrame(id ChannelID, kind FrameKind) Frame {
	frame := Frame{ID: id, Kind: kind, SOI: 3, Samples: make([]Sample, 10)}
	for ts := range frame.Samples {
		frame.Samples[ts] = Sample{ADC: uint8(10 + ts), CapID: uint8(ts % NumCapIDs)}
	}
	return frame
}

func testProducerConfig() Configuration {
	return Configuration{
		SipmQTSShift:  0,
		SipmQNTStoSum: 3,
		NumCycles:     8,
	}
}

func TestProducerOrderRoundTrip(t *testing.T) {
	cfg := ClientConfig{BatchCapacity: 16, RowWidth: 15, OutputWidth: 2, PollInterval: time.Millisecond}
	backend := echoBackend{rowWidth: 15, outputWidth: 2}

	frames := []Frame{
		testFrame(ChannelID{Subdet: Barrel, IEta: -7, IPhi: 11, Depth: 1}, QIE11),
		testFrame(ChannelID{Subdet: Forward, IEta: 30, IPhi: 1, Depth: 1}, QIE8), // filtered out
		testFrame(ChannelID{Subdet: Endcap, IEta: 22, IPhi: 45, Depth: 3}, QIE11),
		testFrame(ChannelID{Subdet: Outer, IEta: 4, IPhi: 63, Depth: 4}, QIE8),
	}
	admitted := []ChannelID{frames[0].ID, frames[2].ID, frames[3].ID}

	for name, client := range testClients(cfg, backend) {
		t.Run(name, func(t *testing.T) {
			producer := NewProducer(testProducerConfig(), testConditions(), client)

			cycle, err := producer.Acquire(context.Background(), Event{EventID: 7, Frames: frames})
			require.NoError(t, err)

			hits, err := producer.Produce(context.Background(), cycle)
			require.NoError(t, err)
			require.Len(t, hits, len(admitted))

			// The echo backend returns each row's eta/phi: hits must come
			// back in ledger order with the matching identities.
			for i, id := range admitted {
				assert.Equal(t, id, hits[i].ID)
				assert.Equal(t, float32(id.IEta), hits[i].Energy)
				assert.Equal(t, float32(id.IPhi), hits[i].Time)
			}
		})
	}
}

func TestProducerBadCalibrationAbortsCycle(t *testing.T) {
	cond := testConditions()
	cond.Param = SiPMParameter{Type: 0, FCByPE: -1}

	cfg := ClientConfig{BatchCapacity: 16, RowWidth: 15, OutputWidth: 2}
	client := NewSyncClient(cfg, echoBackend{rowWidth: 15, outputWidth: 2})
	producer := NewProducer(testProducerConfig(), cond, client)

	frames := []Frame{
		testFrame(ChannelID{Subdet: Barrel, IEta: 1, IPhi: 1, Depth: 1}, QIE8),
		testFrame(ChannelID{Subdet: Barrel, IEta: 2, IPhi: 1, Depth: 1}, QIE11),
	}

	cycle, err := producer.Acquire(context.Background(), Event{EventID: 1, Frames: frames})
	require.Error(t, err)
	assert.Nil(t, cycle)

	var badCalib *ErrBadCalibration
	require.True(t, errors.As(err, &badCalib))
	assert.Equal(t, frames[1].ID, badCalib.Channel)
}

func TestProducerCapacityExceeded(t *testing.T) {
	cfg := ClientConfig{BatchCapacity: 2, RowWidth: 15, OutputWidth: 1}
	client := NewSyncClient(cfg, echoBackend{rowWidth: 15, outputWidth: 1})
	producer := NewProducer(testProducerConfig(), testConditions(), client)

	frames := make([]Frame, 3)
	for i := range frames {
		frames[i] = testFrame(ChannelID{Subdet: Barrel, IEta: i + 1, IPhi: 1, Depth: 1}, QIE8)
	}

	// Exactly at capacity succeeds
	cycle, err := producer.Acquire(context.Background(), Event{Frames: frames[:2]})
	require.NoError(t, err)
	hits, err := producer.Produce(context.Background(), cycle)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	// One past capacity aborts the cycle
	_, err = producer.Acquire(context.Background(), Event{Frames: frames})
	require.Error(t, err)
	var capacity *ErrCapacityExceeded
	assert.True(t, errors.As(err, &capacity))
}

func TestProducerRejectsShortOutput(t *testing.T) {
	cfg := ClientConfig{BatchCapacity: 4, RowWidth: 15, OutputWidth: 3}
	// Backend lies about its output width
	client := NewSyncClient(cfg, echoBackend{rowWidth: 15, outputWidth: 1})
	producer := NewProducer(testProducerConfig(), testConditions(), client)

	frames := []Frame{testFrame(ChannelID{Subdet: Barrel, IEta: 1, IPhi: 1, Depth: 1}, QIE8)}
	cycle, err := producer.Acquire(context.Background(), Event{Frames: frames})
	require.NoError(t, err)

	_, err = producer.Produce(context.Background(), cycle)
	require.Error(t, err)
	var inference *ErrInference
	assert.True(t, errors.As(err, &inference))
}

func TestProducerEmptyEvent(t *testing.T) {
	cfg := ClientConfig{BatchCapacity: 4, RowWidth: 15, OutputWidth: 1}
	client := NewSyncClient(cfg, echoBackend{rowWidth: 15, outputWidth: 1})
	producer := NewProducer(testProducerConfig(), testConditions(), client)

	cycle, err := producer.Acquire(context.Background(), Event{})
	require.NoError(t, err)
	hits, err := producer.Produce(context.Background(), cycle)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestProducerCorrectedChargesInBatch(t *testing.T) {
	// Echo the full input row so the batch content can be inspected
	cfg := ClientConfig{BatchCapacity: 4, RowWidth: 15, OutputWidth: 15}
	client := NewSyncClient(cfg, echoBackend{rowWidth: 15, outputWidth: 15})

	cond := testConditions()
	producer := NewProducer(testProducerConfig(), cond, client)

	frame := testFrame(ChannelID{Subdet: Barrel, IEta: 5, IPhi: 9, Depth: 2}, QIE8)
	cycle, err := producer.Acquire(context.Background(), Event{Frames: []Frame{frame}})
	require.NoError(t, err)

	output, err := cycle.handle.Result(context.Background())
	require.NoError(t, err)

	// Identity coder and linear shape: decoded charge is adc + 0.5, and the
	// legacy path applies no correction.
	for ts := 0; ts < 8; ts++ {
		expected := float64(frame.Samples[ts].ADC) + 0.5
		assert.InDelta(t, expected, float64(output[slotCharge+ts]), 1e-6, "slice %d", ts)
	}
	assert.Equal(t, float32(0), output[slotDepth+1])
	assert.Equal(t, float32(1), output[slotDepth+2])
}
