package main

import (
	"context"
	"fmt"
	"io"

	hcalreco "github.com/hcal-ml/hcalreco/pkg"
)

type WorkerData struct {
	Data   []byte
	Header hcalreco.EventHeaderStruct
}

type WorkerResult struct {
	Event hcalreco.Event
	Hits  []hcalreco.RecHit
	Error bool
}

// Each worker owns its Producer: one in-flight batch per producer.
func worker(id int, producer *hcalreco.Producer, huffman *hcalreco.HuffmanNode,
	jobs <-chan WorkerData, results chan<- WorkerResult) {

	for job := range jobs {
		results <- reconstructEvent(id, producer, huffman, job)
	}
}

func reconstructEvent(id int, producer *hcalreco.Producer, huffman *hcalreco.HuffmanNode,
	job WorkerData) (result WorkerResult) {

	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("worker %d recovered from panic on event %d: %v", id, job.Header.EventId, r)
			logger.Error(errMessage.Error())
			result = WorkerResult{Error: true}
		}
	}()

	event, err := hcalreco.DecodeEventPayload(job.Header, job.Data, huffman)
	if err != nil {
		message := fmt.Errorf("error decoding event %d: %w", job.Header.EventId, err)
		logger.Error(message.Error())
		return WorkerResult{Error: true}
	}

	ctx := context.Background()
	cycle, err := producer.Acquire(ctx, event)
	if err != nil {
		message := fmt.Errorf("error building batch for event %d: %w", event.EventID, err)
		logger.Error(message.Error())
		return WorkerResult{Event: event, Error: true}
	}

	hits, err := producer.Produce(ctx, cycle)
	if err != nil {
		message := fmt.Errorf("error reconciling event %d: %w", event.EventID, err)
		logger.Error(message.Error())
		return WorkerResult{Event: event, Error: true}
	}

	return WorkerResult{Event: event, Hits: hits}
}

func sendEventsToWorkers(fileReader *FileReader, jobs chan<- WorkerData) {
	for {
		header, eventData, err := fileReader.getNextEvent()
		if err != nil {
			if err != io.EOF {
				message := fmt.Errorf("error reading event: %w", err)
				logger.Error(message.Error())
			}
			break
		}
		jobs <- WorkerData{Data: eventData, Header: header}
	}
	close(jobs)
}
