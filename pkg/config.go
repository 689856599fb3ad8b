package hcalreco

type Configuration struct {
	MaxEvents        int    `json:"max_events"`
	Skip             int    `json:"skip"`
	Verbosity        int    `json:"verbosity"`
	FileIn           string `json:"file_in"`
	FileOut          string `json:"file_out"`
	NoDB             bool   `json:"no_db"`
	Host             string `json:"host"`
	User             string `json:"user"`
	Passwd           string `json:"pass"`
	DBName           string `json:"dbname"`
	NumWorkers       int    `json:"num_workers"`
	WriteData        bool   `json:"write_data"`
	Discard          bool   `json:"discard"`
	CompressionLevel int    `json:"compression_level"`
	SipmQTSShift     int    `json:"sipm_qts_shift"`
	SipmQNTStoSum    int    `json:"sipm_qnts_to_sum"`
	NumCycles        int    `json:"num_cycles"`
	BatchSize        int    `json:"batch_size"`
	RowWidth         int    `json:"row_width"`
	OutputWidth      int    `json:"output_width"`
	ClientMode       string `json:"client_mode"`
	PollIntervalMs   int    `json:"poll_interval_ms"`
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}
