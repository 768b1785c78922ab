package main

import (
	"os"
	"time"

	"asyncScope/config"
	"asyncScope/symbols"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "asyncscope",
	Short:        "Reconstruct async function call timelines from kernel traces",
	Long:         `asyncscope turns function entry/exit observations into a nested timeline for trace viewers.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "TOML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(resolveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printWelcomeBanner(cfg *config.Config, source string) {
	bannerLines := []string{
		"                              _____                       ",
		"  ____ ________  ______  ____/ ___/________  ____  ___   ",
		" / __ `/ ___/ / / / __ \\/ ___\\__ \\/ ___/ _ \\/ __ \\/ _ \\ ",
		"/ /_/ (__  ) /_/ / / / / /__ ___/ / /__/  __/ /_/ /  __/ ",
		"\\__,_/____/\\__, /_/ /_/\\___//____/\\___/\\___/ .___/\\___/  ",
		"          /____/                          /_/            ",
	}

	banner := color.New(color.FgYellow)
	for _, line := range bannerLines {
		banner.Fprintln(os.Stderr, line)
	}

	label := color.New(color.Bold).SprintFunc()
	color.New(color.Reset).Fprintf(os.Stderr, "%s %s\n", label("Source:       "), source)
	color.New(color.Reset).Fprintf(os.Stderr, "%s %s\n", label("Symbols:      "), valueOrNone(cfg.SymbolFile))
	color.New(color.Reset).Fprintf(os.Stderr, "%s %s\n", label("Binary:       "), valueOrNone(cfg.Binary))
	color.New(color.Reset).Fprintf(os.Stderr, "%s %s (%s)\n", label("Output:       "), cfg.OutputPath, cfg.OutputFormat)
	if cfg.PyroscopeURL != "" {
		color.New(color.Reset).Fprintf(os.Stderr, "%s %s (%s)\n", label("Pyroscope:    "), cfg.PyroscopeURL, cfg.AppName)
	}
	color.New(color.Reset).Fprintf(os.Stderr, "%s %v\n\n", label("Debug Mode:   "), cfg.Debug)
}

func valueOrNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadConfig reads the --config file if given and applies --debug
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg := config.NewDefault()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("debug") {
		if cfg.Debug, err = cmd.Flags().GetBool("debug"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// buildResolver loads the symbol table and sets up the addr2line fallback.
// Malformed symbol lines are logged and skipped.
func buildResolver(cfg *config.Config, logger zerolog.Logger) (*symbols.Resolver, error) {
	var table *symbols.Table
	if cfg.SymbolFile != "" {
		var (
			malformed []error
			err       error
		)
		table, malformed, err = symbols.LoadTableFile(cfg.SymbolFile, symbols.WithDemangle(cfg.Demangle))
		if err != nil {
			return nil, err
		}
		for _, m := range malformed {
			logger.Warn().Err(m).Msg("skipping symbol")
		}
		logger.Info().Int("symbols", table.Len()).Str("file", cfg.SymbolFile).Msg("symbol table loaded")
	}

	var fallback symbols.Fallback
	if cfg.Binary != "" {
		fallback = &symbols.Addr2Line{Tool: cfg.FallbackTool, Binary: cfg.Binary}
	}

	resolver, err := symbols.NewResolver(table, fallback, cfg.FallbackCacheSize, symbols.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "creating resolver")
	}
	return resolver, nil
}
