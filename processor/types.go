package processor

import (
	"asyncScope/collector"
	"asyncScope/event"
	"asyncScope/ingest"
	"asyncScope/sender"

	"github.com/rs/zerolog"
)

// Config holds the configuration for one capture session
type Config struct {
	LogPath       string // Offline kernel log
	SourceCommand string // Command whose stdout is parsed while it runs
	RecordingPath string // Previously saved raw event recording

	LogMarker    string
	OutputPath   string
	OutputFormat string // config.FormatJSON, FormatText or FormatPprof
	RecordPath   string // Save the raw events of this session here

	Sender *sender.Sender // Optional Pyroscope upload of the pprof rendition
	Logger zerolog.Logger
}

// Processor runs the pipeline producer -> collector -> exporter for one
// capture session.
type Processor struct {
	config    Config
	collector *collector.Collector
	parser    *ingest.Parser
}

// Result summarizes a finished session
type Result struct {
	Events      []event.Call
	Synthesized []event.Call
	Warnings    []collector.Warning
	ParseErrors []error
	Stats       collector.Stats
	OutputPath  string
}
