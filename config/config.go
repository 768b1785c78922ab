package config

import (
	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// Output formats supported by the exporter
const (
	FormatJSON  = "json"  // Trace Event Format document
	FormatText  = "text"  // One line per event
	FormatPprof = "pprof" // pprof profile of matched calls
)

// Config contains all the configuration for the application
type Config struct {
	// Symbol resolution
	SymbolFile        string `toml:"symbol_file"`
	Binary            string `toml:"binary"`
	FallbackTool      string `toml:"fallback_tool"`
	FallbackCacheSize int    `toml:"fallback_cache_size"`
	Demangle          bool   `toml:"demangle"`

	// Ingestion
	LogMarker     string `toml:"log_marker"`
	SourceCommand string `toml:"source_command"`

	// Output
	OutputPath   string `toml:"output"`
	OutputFormat string `toml:"format"`
	RecordPath   string `toml:"record"`

	// Pyroscope upload of the pprof rendition
	PyroscopeURL string `toml:"pyroscope_url"`
	AuthToken    string `toml:"auth_token"`
	AppName      string `toml:"app_name"`

	Debug bool `toml:"debug"`
}

// NewDefault returns a new default config
func NewDefault() *Config {
	return &Config{
		FallbackTool:      "addr2line",
		FallbackCacheSize: 4096,
		LogMarker:         "time-threadID-entry/exit-addr-depth:",
		OutputPath:        "output.json",
		OutputFormat:      FormatJSON,
		AppName:           "asyncscope",
	}
}

// Load reads a TOML config file on top of the defaults.
// Keys that do not belong to Config are rejected.
func Load(path string) (*Config, error) {
	cfg := NewDefault()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late in the pipeline
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case FormatJSON, FormatText, FormatPprof:
	default:
		return errors.Newf("unknown output format %q", c.OutputFormat)
	}
	if c.FallbackCacheSize <= 0 {
		return errors.Newf("fallback cache size must be positive, got %d", c.FallbackCacheSize)
	}
	if c.LogMarker == "" {
		return errors.New("log marker must not be empty")
	}
	if c.OutputPath == "" {
		return errors.New("output path must not be empty")
	}
	return nil
}
