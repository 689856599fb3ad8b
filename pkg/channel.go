package hcalreco

import "fmt"

type Subdetector int

const (
	Barrel Subdetector = iota + 1
	Endcap
	Outer
	Forward
)

func (s Subdetector) String() string {
	switch s {
	case Barrel:
		return "HB"
	case Endcap:
		return "HE"
	case Outer:
		return "HO"
	case Forward:
		return "HF"
	default:
		return "Unknown"
	}
}

// ChannelID identifies one physical readout channel. It is immutable once
// read from a frame and is the identity carried into the output records.
type ChannelID struct {
	Subdet Subdetector
	IEta   int
	IPhi   int
	Depth  int
}

func (id ChannelID) String() string {
	return fmt.Sprintf("%v(%d,%d,%d)", id.Subdet, id.IEta, id.IPhi, id.Depth)
}

// AcceptedSubdetector admits only the regions this reconstructor is
// responsible for. Everything else is filtered silently.
func AcceptedSubdetector(s Subdetector) bool {
	return s == Barrel || s == Endcap || s == Outer
}

// Packed channel key used in raw frame files.
// Bits: 0-2 subdet, 3-6 depth, 7-16 iphi, 17-29 |ieta|, 30 zside.
func (id ChannelID) Pack() uint32 {
	ieta := id.IEta
	var zside uint32
	if ieta < 0 {
		ieta = -ieta
		zside = 1
	}
	key := uint32(id.Subdet) & 0x7
	key |= (uint32(id.Depth) & 0xF) << 3
	key |= (uint32(id.IPhi) & 0x3FF) << 7
	key |= (uint32(ieta) & 0x1FFF) << 17
	key |= zside << 30
	return key
}

func UnpackChannelKey(key uint32) ChannelID {
	ieta := int((key >> 17) & 0x1FFF)
	if key&(1<<30) != 0 {
		ieta = -ieta
	}
	return ChannelID{
		Subdet: Subdetector(key & 0x7),
		Depth:  int((key >> 3) & 0xF),
		IPhi:   int((key >> 7) & 0x3FF),
		IEta:   ieta,
	}
}
