package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	sqlx "github.com/jmoiron/sqlx"

	hcalreco "github.com/hcal-ml/hcalreco/pkg"
)

var dbConn *sqlx.DB
var configuration hcalreco.Configuration

var (
	logger         Logger
	VerbosityLevel int
	DiscardErrors  bool
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	hcalreco.SetConfiguration(configuration)
	hcalreco.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	DiscardErrors = configuration.Discard
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		message := fmt.Errorf("error opening file: %w", err)
		logger.Error(message.Error())
		return
	}
	defer file.Close()

	evtCount, runNumber := hcalreco.CountEvents(file)
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Number of events: %d, run: %d", evtCount, runNumber)
		logger.Info(message, "main")
	}

	conditions, huffman, err := loadConditions(runNumber)
	if err != nil {
		message := fmt.Errorf("error loading conditions for run %d: %w", runNumber, err)
		logger.Error(message.Error())
		return
	}
	if dbConn != nil {
		defer dbConn.Close()
	}

	client, err := buildClient(configuration)
	if err != nil {
		logger.Error(err.Error())
		return
	}

	var writer *hcalreco.Writer
	if configuration.WriteData {
		writer = hcalreco.NewWriter(configuration.FileOut)
		defer writer.Close()
	}

	jobs := make(chan WorkerData, configuration.NumWorkers)
	results := make(chan WorkerResult, 1000)

	for w := 1; w <= configuration.NumWorkers; w++ {
		producer := hcalreco.NewProducer(configuration, conditions, client)
		go worker(w, producer, huffman, jobs, results)
	}

	fileReader := NewFileReader(file)
	go sendEventsToWorkers(fileReader, jobs)

	evtsToRead := numberOfEventsToProcess(evtCount, configuration.Skip, configuration.MaxEvents)

	start := time.Now()
	evtsProcessed := 0
	hitsWritten := 0
	for result := range results {
		if result.Error && DiscardErrors {
			message := fmt.Sprintf("discarding event %d", result.Event.EventID)
			logger.Error(message)
		} else if configuration.WriteData {
			writer.WriteCycle(result.Event, result.Hits)
			hitsWritten += len(result.Hits)
		}

		evtsProcessed++
		if evtsProcessed >= evtsToRead {
			break
		}
	}

	duration := time.Since(start)
	message := fmt.Sprintf("Processed %d events, wrote %d rec hits in %d ms",
		evtsProcessed, hitsWritten, duration.Milliseconds())
	logger.Info(message, "main")
}

func numberOfEventsToProcess(fileEvtCount int, skipEvts int, maxEvtCount int) int {
	evtsToRead := maxEvtCount - skipEvts
	if evtsToRead > fileEvtCount {
		evtsToRead = fileEvtCount
	}
	return evtsToRead
}

// loadConditions reads the run conditions from the database, or builds a
// uniform set when running detached from it.
func loadConditions(runNumber int) (hcalreco.ConditionsService, *hcalreco.HuffmanNode, error) {
	if configuration.NoDB {
		return uniformConditions(), nil, nil
	}

	var err error
	dbConn, err = hcalreco.ConnectToDatabase(configuration.User, configuration.Passwd,
		configuration.Host, configuration.DBName)
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to database: %w", err)
	}
	conditions, err := hcalreco.LoadConditions(dbConn, runNumber)
	if err != nil {
		return nil, nil, err
	}
	return conditions, conditions.Huffman(), nil
}

func uniformConditions() hcalreco.ConditionsService {
	shape := hcalreco.LinearShape(256, 1.0)
	coder := hcalreco.IdentityCoder(0)
	return hcalreco.UniformConditions{
		Calib: hcalreco.Calibrations{
			Pedestals: [hcalreco.NumCapIDs]float64{3.0, 3.0, 3.0, 3.0},
			Gain:      0.92,
		},
		QCoder: coder,
		QShape: shape,
		Param:  hcalreco.SiPMParameter{Type: 0, FCByPE: 44.0},
		Nonlin: hcalreco.SiPMNonlinearity{Coefs: [3]float64{1, 0, 0}},
	}
}

func buildClient(config hcalreco.Configuration) (hcalreco.InferenceClient, error) {
	clientConfig := hcalreco.ClientConfig{
		BatchCapacity: config.BatchSize,
		RowWidth:      config.RowWidth,
		OutputWidth:   config.OutputWidth,
		PollInterval:  time.Duration(config.PollIntervalMs) * time.Millisecond,
	}
	backend := hcalreco.LocalBackend{
		RowWidth:    config.RowWidth,
		OutputWidth: config.OutputWidth,
		NumCycles:   config.NumCycles,
	}

	switch config.ClientMode {
	case "sync":
		return hcalreco.NewSyncClient(clientConfig, backend), nil
	case "async":
		return hcalreco.NewAsyncClient(clientConfig, backend), nil
	case "pseudoasync":
		return hcalreco.NewPollingClient(clientConfig, backend), nil
	default:
		return nil, fmt.Errorf("unknown client mode %q", config.ClientMode)
	}
}
