package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"asyncScope/config"
	"asyncScope/processor"
	"asyncScope/sender"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Build a trace file from a kernel log, a running command or a recording",
	Example: `  asyncscope convert --log async.log --symbols rootfs/riscv64/zcore-async-fn.sym --binary target/riscv64/release/zcore
  asyncscope convert --exec "cargo qemu --arch=riscv64" --symbols zcore-async-fn.sym --record session.msgpack
  asyncscope convert --recording session.msgpack --format pprof --output calls.pb.gz`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

var convertFlags struct {
	log       string
	exec      string
	recording string
}

func init() {
	f := convertCmd.Flags()
	f.StringVar(&convertFlags.log, "log", "", "kernel log to parse")
	f.StringVar(&convertFlags.exec, "exec", "", "command whose output is parsed while it runs (stop with Ctrl-C)")
	f.StringVar(&convertFlags.recording, "recording", "", "replay a saved raw event recording")

	f.String("output", "", "output file")
	f.String("format", "", "output format (json|text|pprof)")
	f.String("record", "", "save the raw events of this session")
	f.String("symbols", "", "symbol listing (<hex-addr> <type> <name>)")
	f.String("binary", "", "binary for the addr2line fallback")
	f.String("marker", "", "marker that prefixes trace lines in the log")
	f.Bool("demangle", false, "demangle names from the symbol listing")
	f.String("pyroscope-url", "", "upload the call profile to this Pyroscope server")
	f.String("app-name", "", "application name for the Pyroscope upload")
	f.String("auth", "", "authentication token for Pyroscope")
}

// applyFlags overrides config values with the flags given on the command line
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	strs := map[string]*string{
		"output":        &cfg.OutputPath,
		"format":        &cfg.OutputFormat,
		"record":        &cfg.RecordPath,
		"symbols":       &cfg.SymbolFile,
		"binary":        &cfg.Binary,
		"marker":        &cfg.LogMarker,
		"pyroscope-url": &cfg.PyroscopeURL,
		"app-name":      &cfg.AppName,
		"auth":          &cfg.AuthToken,
	}
	for name, dst := range strs {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if cmd.Flags().Changed("demangle") {
		v, err := cmd.Flags().GetBool("demangle")
		if err != nil {
			return err
		}
		cfg.Demangle = v
	}
	if convertFlags.exec != "" {
		cfg.SourceCommand = convertFlags.exec
	}
	return nil
}

func runConvert(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var source string
	sources := 0
	for _, s := range []struct{ name, value string }{
		{"log", convertFlags.log},
		{"exec", cfg.SourceCommand},
		{"recording", convertFlags.recording},
	} {
		if s.value != "" {
			sources++
			source = s.name + " " + s.value
		}
	}
	if sources != 1 {
		return errors.New("exactly one of --log, --exec (or source_command) and --recording is required")
	}

	logger := newLogger(cfg.Debug)
	printWelcomeBanner(cfg, source)

	resolver, err := buildResolver(cfg, logger)
	if err != nil {
		return err
	}

	var s *sender.Sender
	if cfg.PyroscopeURL != "" {
		s = sender.New(sender.Config{
			PyroscopeURL: cfg.PyroscopeURL,
			AuthToken:    cfg.AuthToken,
			AppName:      cfg.AppName,
			Logger:       logger,
		})
	}

	p := processor.New(processor.Config{
		LogPath:       convertFlags.log,
		SourceCommand: cfg.SourceCommand,
		RecordingPath: convertFlags.recording,
		LogMarker:     cfg.LogMarker,
		OutputPath:    cfg.OutputPath,
		OutputFormat:  cfg.OutputFormat,
		RecordPath:    cfg.RecordPath,
		Sender:        s,
		Logger:        logger,
	}, resolver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := p.Process(ctx)
	if res != nil {
		printSummary(res)
	}
	return err
}

func printSummary(res *processor.Result) {
	for _, perr := range res.ParseErrors {
		color.New(color.FgYellow).Fprintf(os.Stderr, "skipped: %v\n", perr)
	}

	ok := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	count := func(n int) string {
		if n == 0 {
			return ok(n)
		}
		return warn(n)
	}

	fmt.Fprintf(os.Stderr, "\n%s %s\n", ok("Trace written to"), res.OutputPath)
	fmt.Fprintf(os.Stderr, "  events:            %d\n", len(res.Events))
	fmt.Fprintf(os.Stderr, "  malformed lines:   %s\n", count(len(res.ParseErrors)))
	fmt.Fprintf(os.Stderr, "  unresolved names:  %s\n", count(res.Stats.UnresolvedSymbols))
	fmt.Fprintf(os.Stderr, "  dangling exits:    %s\n", count(res.Stats.DanglingExits))
	fmt.Fprintf(os.Stderr, "  synthetic exits:   %s\n", count(res.Stats.SyntheticExits))
	fmt.Fprintf(os.Stderr, "  warnings:          %s\n", count(len(res.Warnings)))
}
