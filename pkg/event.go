package hcalreco

// Event is one acquisition cycle worth of input frames.
type Event struct {
	RunNumber uint32
	EventID   uint32
	Timestamp uint64
	Frames    []Frame
	Error     bool
}

// RecHit is the per-channel output record of one cycle.
type RecHit struct {
	ID     ChannelID
	Energy float32
	Time   float32
	Flags  uint32
}
