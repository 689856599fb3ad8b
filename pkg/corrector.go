package hcalreco

// ChargeCorrection turns a decoded charge into the corrected raw charge for
// one time slice. The correction is built once per channel per cycle: the
// SiPM variant needs an integral over a window plus a table lookup, which
// would be wasteful to repeat per time slice.
type ChargeCorrection interface {
	RawCharge(decodedCharge, pedestal float64) float64
}

// identityCorrection is the legacy readout path. Pedestal and gain are all
// that is needed downstream, the decoded charge passes through unchanged.
type identityCorrection struct{}

func (identityCorrection) RawCharge(decodedCharge, pedestal float64) float64 {
	return decodedCharge
}

// sipmCorrection scales the pedestal-subtracted signal by the cached
// saturation factor and restores the pedestal baseline.
type sipmCorrection struct {
	factor float64
}

func (c sipmCorrection) RawCharge(decodedCharge, pedestal float64) float64 {
	return (decodedCharge-pedestal)*c.factor + pedestal
}

// NewChargeCorrection builds the correction for one frame. For QIE11 frames
// it integrates the pedestal-subtracted charge over the configured window,
// estimates the number of fired pixels and looks up the correction factor.
// The window never extends past maxTS; if the shift pushes it entirely out,
// the summed charge is zero and the factor must behave as an identity.
func NewChargeCorrection(qtsShift, qntsToSum int, cond ConditionsService,
	frame Frame, cs CaloSamples, calib Calibrations, maxTS int) (ChargeCorrection, error) {

	if frame.Kind != QIE11 {
		return identityCorrection{}, nil
	}

	param, err := cond.SiPMParameter(frame.ID)
	if err != nil {
		return nil, err
	}
	if param.FCByPE <= 0 {
		return nil, &ErrBadCalibration{Channel: frame.ID, Quantity: "fC/PE", Value: param.FCByPE}
	}
	corr, err := cond.SiPMNonlinearity(param.Type)
	if err != nil {
		return nil, err
	}

	firstTS := frame.SOI + qtsShift
	if firstTS < 0 {
		firstTS = 0
	}
	lastTS := firstTS + qntsToSum
	if lastTS > maxTS {
		lastTS = maxTS
	}

	sipmQ := 0.0
	for ts := firstTS; ts < lastTS; ts++ {
		pedestal := calib.Pedestal(frame.Samples[ts].CapID)
		sipmQ += cs[ts] - pedestal
	}

	effectivePixelsFired := sipmQ / param.FCByPE
	return sipmCorrection{factor: corr.RecoCorrectionFactor(effectivePixelsFired)}, nil
}
