package hcalreco

import "fmt"

// ErrBadCalibration represents a missing or corrupted conditions quantity.
// It invalidates the whole cycle, not just the offending channel.
type ErrBadCalibration struct {
	Channel  ChannelID
	Quantity string
	Value    float64
}

func (e *ErrBadCalibration) Error() string {
	return fmt.Sprintf("bad calibration for channel %v: %s = %g", e.Channel, e.Quantity, e.Value)
}

// ErrCapacityExceeded represents an event with more admitted channels than
// the inference batch can hold.
type ErrCapacityExceeded struct {
	Capacity int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("batch capacity exceeded: more than %d admitted channels", e.Capacity)
}

// ErrInference represents a failure of the inference round-trip.
type ErrInference struct {
	Op  string
	Err error
}

func (e *ErrInference) Error() string {
	return fmt.Sprintf("inference %s failed: %v", e.Op, e.Err)
}

func (e *ErrInference) Unwrap() error { return e.Err }

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}
