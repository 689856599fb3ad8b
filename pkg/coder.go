package hcalreco

// DecodeFrame converts the raw ADC codes of one frame into charge, using the
// channel's coder and shape. It returns the decoded samples and the usable
// sample count, clamped to MaxSamples.
func DecodeFrame(frame Frame, coder *QIECoder, shape *QIEShape) (CaloSamples, int, error) {
	if coder == nil || shape == nil || len(shape.BinCenters) == 0 {
		return nil, 0, &ErrBadCalibration{Channel: frame.ID, Quantity: "coder/shape"}
	}
	if len(shape.BinCenters)%NumQIERanges != 0 {
		return nil, 0, &ErrBadCalibration{
			Channel:  frame.ID,
			Quantity: "shape bins",
			Value:    float64(len(shape.BinCenters)),
		}
	}

	cs := make(CaloSamples, len(frame.Samples))
	for ts, sample := range frame.Samples {
		adc := sample.ADC
		if int(adc) >= len(shape.BinCenters) {
			// Codes past the transfer curve saturate in the last bin
			adc = uint8(len(shape.BinCenters) - 1)
		}
		rng := shape.rangeOf(adc)
		capID := sample.CapID % NumCapIDs
		slope := coder.Slopes[capID][rng]
		if slope == 0 {
			return nil, 0, &ErrBadCalibration{Channel: frame.ID, Quantity: "coder slope", Value: 0}
		}
		cs[ts] = (shape.BinCenters[adc] - coder.Offsets[capID][rng]) / slope
	}

	maxTS := len(cs)
	if maxTS > MaxSamples {
		maxTS = MaxSamples
	}
	return cs, maxTS, nil
}
