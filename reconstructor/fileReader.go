package main

import (
	"fmt"
	"io"
	"os"

	hcalreco "github.com/hcal-ml/hcalreco/pkg"
)

type FileReader struct {
	File     *os.File
	EvtCount int
}

func NewFileReader(file *os.File) *FileReader {
	return &FileReader{File: file, EvtCount: -1}
}

func (f *FileReader) getNextEvent() (hcalreco.EventHeaderStruct, []byte, error) {
	header, eventData, err := hcalreco.ReadEventFromFile(f.File)
	if err != nil {
		return header, nil, err
	}
	if !hcalreco.ValidEvent(header) {
		return f.getNextEvent()
	}
	f.EvtCount++
	if f.EvtCount >= configuration.MaxEvents {
		if VerbosityLevel > 0 {
			logger.Info("Max events reached", "fileReader")
		}
		return header, nil, io.EOF
	}
	if f.EvtCount < configuration.Skip {
		if VerbosityLevel > 0 {
			message := fmt.Sprintf("Skipping event %d with ID %d", f.EvtCount, header.EventId)
			logger.Info(message, "fileReader")
		}
		return f.getNextEvent()
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading event %d with ID %d", f.EvtCount, header.EventId)
		logger.Info(message, "fileReader")
	}
	return header, eventData, nil
}
