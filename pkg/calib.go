package hcalreco

// NumQIERanges is the number of gain ranges of the QIE linearization.
const NumQIERanges = 4

// Calibrations holds the per-channel pedestals (one per capacitor) and gain.
type Calibrations struct {
	Pedestals [NumCapIDs]float64
	Gain      float64
}

func (c Calibrations) Pedestal(capID uint8) float64 {
	return c.Pedestals[capID%NumCapIDs]
}

// SiPMParameter is the per-channel SiPM description: the device type used to
// select the nonlinearity table and the fC per photoelectron scale.
type SiPMParameter struct {
	Type   int
	FCByPE float64
}

// SiPMNonlinearity is the saturation response of one SiPM type, stored as
// quadratic coefficients in the effective number of fired pixels.
// Coefs[0] is the factor at zero and must be 1 so that an empty integration
// window leaves the charge untouched.
type SiPMNonlinearity struct {
	Coefs [3]float64
}

func (n SiPMNonlinearity) RecoCorrectionFactor(pixelsFired float64) float64 {
	return n.Coefs[0] + n.Coefs[1]*pixelsFired + n.Coefs[2]*pixelsFired*pixelsFired
}

// QIEShape holds the charge bin centers of the ADC transfer curve,
// one entry per ADC code. The four gain ranges split the codes evenly.
type QIEShape struct {
	BinCenters []float64
}

func (s *QIEShape) rangeOf(adc uint8) int {
	codesPerRange := len(s.BinCenters) / NumQIERanges
	return int(adc) / codesPerRange
}

// QIECoder linearizes the shape bins per capacitor and range.
type QIECoder struct {
	ShapeID int
	Offsets [NumCapIDs][NumQIERanges]float64
	Slopes  [NumCapIDs][NumQIERanges]float64
}

// ConditionsService is the read-only calibration lookup consumed by the
// producer. Lookups must not mutate shared state; they happen once per
// channel per cycle.
type ConditionsService interface {
	Calibrations(id ChannelID) (Calibrations, error)
	Coder(id ChannelID) (*QIECoder, *QIEShape, error)
	SiPMParameter(id ChannelID) (SiPMParameter, error)
	SiPMNonlinearity(sipmType int) (SiPMNonlinearity, error)
}

// UniformConditions serves the same constants for every channel. Used for
// runs without a conditions database.
type UniformConditions struct {
	Calib  Calibrations
	QCoder *QIECoder
	QShape *QIEShape
	Param  SiPMParameter
	Nonlin SiPMNonlinearity
}

func (u UniformConditions) Calibrations(id ChannelID) (Calibrations, error) {
	return u.Calib, nil
}

func (u UniformConditions) Coder(id ChannelID) (*QIECoder, *QIEShape, error) {
	return u.QCoder, u.QShape, nil
}

func (u UniformConditions) SiPMParameter(id ChannelID) (SiPMParameter, error) {
	return u.Param, nil
}

func (u UniformConditions) SiPMNonlinearity(sipmType int) (SiPMNonlinearity, error) {
	return u.Nonlin, nil
}

// LinearShape builds a shape whose bin centers grow linearly with the ADC
// code. Convenient for uniform conditions and tests.
func LinearShape(nCodes int, fcPerCode float64) *QIEShape {
	centers := make([]float64, nCodes)
	for adc := 0; adc < nCodes; adc++ {
		centers[adc] = (float64(adc) + 0.5) * fcPerCode
	}
	return &QIEShape{BinCenters: centers}
}

// IdentityCoder linearizes with unit slope and zero offset on all
// capacitors and ranges.
func IdentityCoder(shapeID int) *QIECoder {
	coder := &QIECoder{ShapeID: shapeID}
	for cap := 0; cap < NumCapIDs; cap++ {
		for rng := 0; rng < NumQIERanges; rng++ {
			coder.Slopes[cap][rng] = 1.0
		}
	}
	return coder
}
