package hcalreco

// MaxSamples is the maximum usable window length per frame. Frames may carry
// more time slices, but everything past this count is ignored.
const MaxSamples = 10

// NumCapIDs is the size of the rotating pedestal capacitor table.
const NumCapIDs = 4

type FrameKind int

const (
	// QIE8 is the legacy readout. Pedestal and gain are enough to convert
	// charge into energy, no extra correction is applied.
	QIE8 FrameKind = iota
	// QIE11 is the SiPM-based readout and needs the nonlinearity correction.
	QIE11
)

func (k FrameKind) String() string {
	switch k {
	case QIE8:
		return "QIE8"
	case QIE11:
		return "QIE11"
	default:
		return "Unknown"
	}
}

// Sample is one time slice of a frame: the raw ADC code and the capacitor
// index selecting the pedestal for that slice.
type Sample struct {
	ADC   uint8
	CapID uint8
}

// Frame is one channel's time-ordered sample sequence for one cycle.
// Frames are read-only once decoded from the input stream.
type Frame struct {
	ID      ChannelID
	Kind    FrameKind
	SOI     int
	Samples []Sample
}

// CaloSamples holds the decoded charge per time slice, in fC.
type CaloSamples []float64
