package main

import (
	"encoding/json"
	"fmt"
	"os"

	hcalreco "github.com/hcal-ml/hcalreco/pkg"
)

func LoadConfiguration(filename string) (hcalreco.Configuration, error) {
	var config hcalreco.Configuration

	// Set default values
	config.MaxEvents = 1000000000
	config.Skip = 0
	config.Verbosity = 0
	config.NoDB = false
	config.Host = "conditions.hcal-ml.org"
	config.User = "hcalreader"
	config.Passwd = "readonly"
	config.DBName = "HCALCOND"
	config.NumWorkers = 1
	config.WriteData = true
	config.Discard = true
	config.CompressionLevel = 4
	config.SipmQTSShift = 0
	config.SipmQNTStoSum = 3
	config.NumCycles = 8
	config.BatchSize = 16000
	config.RowWidth = 15
	config.OutputWidth = 3
	config.ClientMode = "sync"
	config.PollIntervalMs = 10

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config hcalreco.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("SiPM QTS shift: %d", config.SipmQTSShift), "config")
	logger.Info(fmt.Sprintf("SiPM QTS to sum: %d", config.SipmQNTStoSum), "config")
	logger.Info(fmt.Sprintf("Cycles per channel: %d", config.NumCycles), "config")
	logger.Info(fmt.Sprintf("Batch size: %d", config.BatchSize), "config")
	logger.Info(fmt.Sprintf("Row width: %d", config.RowWidth), "config")
	logger.Info(fmt.Sprintf("Output width: %d", config.OutputWidth), "config")
	logger.Info(fmt.Sprintf("Client mode: %s", config.ClientMode), "config")
}
