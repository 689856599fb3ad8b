package hcalreco

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"
)

const (
	PHYSICS_EVENT     = 1
	CALIBRATION_EVENT = 2

	EVENT_MAGIC = 0x48435246 // "HCRF"
)

// EventHeaderStruct is the packed little-endian header preceding each event
// in a raw frame file. EventSize covers the header itself plus the payload.
type EventHeaderStruct struct {
	EventMagic     uint32
	EventSize      uint32
	EventRunNb     uint32
	EventId        uint32
	EventType      uint32
	NFrames        uint32
	EventTimestamp uint64
}

// FrameHeaderStruct precedes each frame inside the event payload. NWords is
// the frame payload length in 16-bit words: equal to NSamples for plain
// frames, the compressed stream length (including the trailing pad word)
// otherwise.
type FrameHeaderStruct struct {
	ChannelKey uint32
	FrameKind  uint16
	SOI        uint16
	NSamples   uint16
	NWords     uint16
	Compressed uint32
}

func ValidEvent(header EventHeaderStruct) bool {
	return header.EventType == PHYSICS_EVENT || header.EventType == CALIBRATION_EVENT
}

// ReadEventFromFile reads the next event header and its raw payload.
func ReadEventFromFile(file *os.File) (EventHeaderStruct, []byte, error) {
	var header EventHeaderStruct
	headerSize := unsafe.Sizeof(header)
	headerBinary := make([]byte, headerSize)
	nRead, err := file.Read(headerBinary)
	if err != nil {
		return header, nil, err
	}
	if nRead == 0 {
		return header, nil, err
	}

	headerReader := bytes.NewReader(headerBinary)
	binary.Read(headerReader, binary.LittleEndian, &header)

	if header.EventMagic != EVENT_MAGIC {
		return header, nil, fmt.Errorf("bad event magic 0x%08x", header.EventMagic)
	}

	payloadSize := header.EventSize - uint32(headerSize)
	eventData := make([]byte, payloadSize)
	file.Read(eventData)
	return header, eventData, nil
}

// DecodeEventPayload expands the per-frame sample sequences of one event.
// Compressed frames need the Huffman table loaded for the run; their capIDs
// rotate from zero since the stream carries only ADC differences.
func DecodeEventPayload(header EventHeaderStruct, payload []byte, huffman *HuffmanNode) (Event, error) {
	event := Event{
		RunNumber: header.EventRunNb,
		EventID:   header.EventId,
		Timestamp: header.EventTimestamp,
		Frames:    make([]Frame, 0, header.NFrames),
	}

	reader := bytes.NewReader(payload)
	for i := uint32(0); i < header.NFrames; i++ {
		var fh FrameHeaderStruct
		if err := binary.Read(reader, binary.LittleEndian, &fh); err != nil {
			return event, fmt.Errorf("error reading frame header %d of event %d: %w", i, header.EventId, err)
		}

		words := make([]uint16, fh.NWords)
		if err := binary.Read(reader, binary.LittleEndian, &words); err != nil {
			return event, fmt.Errorf("error reading frame payload %d of event %d: %w", i, header.EventId, err)
		}

		frame := Frame{
			ID:   UnpackChannelKey(fh.ChannelKey),
			Kind: FrameKind(fh.FrameKind),
			SOI:  int(fh.SOI),
		}

		if fh.Compressed != 0 {
			if huffman == nil {
				return event, fmt.Errorf("compressed frame in event %d but no Huffman table loaded", header.EventId)
			}
			adcs := decodeCompressedSamples(words, int(fh.NSamples), huffman)
			frame.Samples = make([]Sample, len(adcs))
			for ts, adc := range adcs {
				frame.Samples[ts] = Sample{ADC: adc, CapID: uint8(ts % NumCapIDs)}
			}
		} else {
			frame.Samples = make([]Sample, fh.NSamples)
			for ts := 0; ts < int(fh.NSamples); ts++ {
				word := words[ts]
				frame.Samples[ts] = Sample{
					ADC:   uint8(word & 0xFF),
					CapID: uint8((word >> 8) & 0x3),
				}
			}
		}

		event.Frames = append(event.Frames, frame)
	}

	return event, nil
}

// CountEvents scans the whole file, counting valid events, and rewinds.
// It also reports the run number found in the headers.
func CountEvents(file *os.File) (int, int) {
	evtCount := 0
	runNumber := 0
	var header EventHeaderStruct
	headerSize := unsafe.Sizeof(header)
	for {
		headerBinary := make([]byte, headerSize)
		nRead, err := file.Read(headerBinary)
		if err != nil {
			if err != io.EOF && logger != nil {
				errMessage := fmt.Errorf("error reading header counting events: %w", err)
				logger.Error(errMessage.Error())
			}
			break
		}
		if nRead == 0 {
			break
		}

		headerReader := bytes.NewReader(headerBinary)
		binary.Read(headerReader, binary.LittleEndian, &header)
		runNumber = int(header.EventRunNb)

		payloadSize := header.EventSize - uint32(headerSize)
		file.Seek(int64(payloadSize), 1)

		if !ValidEvent(header) {
			continue
		}
		evtCount++
	}
	// Go back to the beginning of the file
	file.Seek(0, 0)
	return evtCount, runNumber
}
