package hcalreco

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sipmTestConditions(fcByPE float64, coefs [3]float64) *ConditionsMap {
	cond := NewConditionsMap()
	id := ChannelID{Subdet: Endcap, IEta: 20, IPhi: 40, Depth: 2}
	cond.SetSiPMParameter(id, SiPMParameter{Type: 3, FCByPE: fcByPE})
	cond.SetSiPMNonlinearity(3, SiPMNonlinearity{Coefs: coefs})
	return cond
}

func sipmTestFrame(nSamples int) Frame {
	frame := Frame{
		ID:      ChannelID{Subdet: Endcap, IEta: 20, IPhi: 40, Depth: 2},
		Kind:    QIE11,
		SOI:     3,
		Samples: make([]Sample, nSamples),
	}
	for ts := range frame.Samples {
		frame.Samples[ts] = Sample{ADC: uint8(ts), CapID: uint8(ts % NumCapIDs)}
	}
	return frame
}

func TestIdentityCorrectionPassThrough(t *testing.T) {
	frame := sipmTestFrame(10)
	frame.Kind = QIE8

	// The legacy path must not consult any SiPM conditions
	correction, err := NewChargeCorrection(0, 3, NewConditionsMap(), frame, make(CaloSamples, 10), Calibrations{}, 10)
	require.NoError(t, err)

	for _, charge := range []float64{-5.0, 0.0, 1.5, 1e6} {
		for _, pedestal := range []float64{0.0, 2.5, 100.0} {
			assert.Equal(t, charge, correction.RawCharge(charge, pedestal))
		}
	}
}

func TestSiPMCorrectionPedestalPreservation(t *testing.T) {
	cond := sipmTestConditions(44.0, [3]float64{1, 0.5, 0.25})
	frame := sipmTestFrame(10)

	calib := Calibrations{Pedestals: [NumCapIDs]float64{2.0, 2.0, 2.0, 2.0}, Gain: 1}
	cs := make(CaloSamples, 10)
	for ts := range cs {
		cs[ts] = 2.0 // decoded charge equals the pedestal everywhere
	}

	correction, err := NewChargeCorrection(0, 3, cond, frame, cs, calib, 10)
	require.NoError(t, err)

	// Integrated signal is zero, so the factor at zero pixels must act as
	// an identity and every slice stays at the pedestal.
	for ts := 0; ts < 10; ts++ {
		assert.InDelta(t, 2.0, correction.RawCharge(cs[ts], 2.0), 1e-12)
	}
}

func TestSiPMCorrectionWindowClamping(t *testing.T) {
	cond := sipmTestConditions(44.0, [3]float64{1, 0.5, 0})
	frame := sipmTestFrame(10)

	calib := Calibrations{Pedestals: [NumCapIDs]float64{2.0, 2.0, 2.0, 2.0}}
	cs := CaloSamples{50, 50, 50, 50, 50, 50, 50, 50, 50, 50}

	// Shift pushes the window start past the usable samples: the window is
	// empty, zero pixels fire and the factor is an identity.
	correction, err := NewChargeCorrection(50, 3, cond, frame, cs, calib, 10)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, correction.RawCharge(5.0, 2.0), 1e-12)
}

func TestSiPMCorrectionFactorApplied(t *testing.T) {
	const fcByPE = 40.0
	const c1 = 0.01
	cond := sipmTestConditions(fcByPE, [3]float64{1, c1, 0})
	frame := sipmTestFrame(10)

	pedestal := 2.0
	calib := Calibrations{Pedestals: [NumCapIDs]float64{pedestal, pedestal, pedestal, pedestal}}
	cs := CaloSamples{0, 0, 0, 12, 22, 32, 0, 0, 0, 0}

	// Window [3, 6): integrated signal = (12-2) + (22-2) + (32-2) = 60
	correction, err := NewChargeCorrection(0, 3, cond, frame, cs, calib, 10)
	require.NoError(t, err)

	pixels := 60.0 / fcByPE
	factor := 1 + c1*pixels
	assert.InDelta(t, (22.0-pedestal)*factor+pedestal, correction.RawCharge(22.0, pedestal), 1e-12)
	// The pedestal baseline is restored after scaling the signal
	assert.InDelta(t, pedestal, correction.RawCharge(pedestal, pedestal), 1e-12)
}

func TestSiPMCorrectionBadFCByPE(t *testing.T) {
	for _, fcByPE := range []float64{0.0, -7.5} {
		cond := sipmTestConditions(fcByPE, [3]float64{1, 0, 0})
		frame := sipmTestFrame(10)

		_, err := NewChargeCorrection(0, 3, cond, frame, make(CaloSamples, 10), Calibrations{}, 10)
		require.Error(t, err)

		var badCalib *ErrBadCalibration
		require.True(t, errors.As(err, &badCalib))
		assert.Equal(t, "fC/PE", badCalib.Quantity)
		assert.Equal(t, fcByPE, badCalib.Value)
	}
}

func TestSiPMCorrectionNegativeShiftClamped(t *testing.T) {
	cond := sipmTestConditions(40.0, [3]float64{1, 0.01, 0})
	frame := sipmTestFrame(10)
	frame.SOI = 1

	calib := Calibrations{}
	cs := CaloSamples{8, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	// soi + shift = -4 clamps to zero, so the window is [0, 2) and only
	// the first sample contributes.
	correction, err := NewChargeCorrection(-5, 2, cond, frame, cs, calib, 10)
	require.NoError(t, err)

	factor := 1 + 0.01*(8.0/40.0)
	assert.InDelta(t, 8.0*factor, correction.RawCharge(8.0, 0.0), 1e-12)
}
