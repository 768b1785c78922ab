package processor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"asyncScope/collector"
	"asyncScope/config"
	"asyncScope/converter"
	"asyncScope/event"
	"asyncScope/ingest"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// UploadTimeout bounds the Pyroscope upload at the end of a session
const UploadTimeout = 30 * time.Second

// New creates a Processor. resolver is used for function names the
// producers do not already know.
func New(cfg Config, resolver collector.Resolver) *Processor {
	return &Processor{
		config:    cfg,
		collector: collector.New(resolver, collector.WithLogger(cfg.Logger)),
		parser:    ingest.NewParser(cfg.LogMarker),
	}
}

// Collector exposes the session's collector, e.g. to attach a live capture
// adapter before Process runs.
func (p *Processor) Collector() *collector.Collector {
	return p.collector
}

// Process starts the main processing pipeline:
// 1. Reads raw events from the configured source
// 2. Resolves depth and names in the collector
// 3. Closes calls left open when the source ended
// 4. Writes the output file once, and uploads the profile if configured
//
// Malformed input and unmatched calls are reported in the Result, they do
// not fail the run. When the source is a command, cancelling ctx ends the
// capture and the trace collected so far is still written.
func (p *Processor) Process(ctx context.Context) (*Result, error) {
	var sink ingest.Sink = p.collector
	var recorder *ingest.Recorder
	if p.config.RecordPath != "" {
		recorder = ingest.NewRecorder(p.collector)
		sink = recorder
	}

	// Create buffered channel between producer and consumer
	raws := make(chan event.Raw, 1024)
	var parseErrors []error

	g, gctx := errgroup.WithContext(ctx)

	// Start producer
	g.Go(func() error {
		defer close(raws)
		errs, err := p.producer(ctx, gctx, raws)
		parseErrors = errs
		return err
	})

	// Start consumer
	g.Go(func() error {
		for raw := range raws {
			sink.Ingest(raw)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	synthesized := p.collector.Finalize()
	events := p.collector.Drain()

	if err := p.writeOutput(events); err != nil {
		return nil, err
	}

	if recorder != nil {
		if err := recorder.Save(p.config.RecordPath); err != nil {
			return nil, err
		}
	}

	stats := p.collector.Stats()
	p.config.Logger.Debug().
		Int("events", len(events)).
		Int("entries", stats.Entries).
		Int("exits", stats.Exits).
		Int("dangling", stats.DanglingExits).
		Int("synthetic", stats.SyntheticExits).
		Int("unresolved", stats.UnresolvedSymbols).
		Int("depth_mismatches", stats.DepthMismatches).
		Int("malformed_lines", len(parseErrors)).
		Msg("session stats")

	result := &Result{
		Events:      events,
		Synthesized: synthesized,
		Warnings:    p.collector.Warnings(),
		ParseErrors: parseErrors,
		Stats:       stats,
		OutputPath:  p.config.OutputPath,
	}

	if p.config.Sender != nil {
		prof := converter.ToPprof(events)
		if len(prof.Sample) == 0 {
			p.config.Logger.Warn().Msg("no matched calls, skipping profile upload")
			return result, nil
		}
		// Stopping a command source cancels ctx, the upload still has to run.
		uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), UploadTimeout)
		defer cancel()
		if err := p.config.Sender.SendProfile(uploadCtx, prof, converter.SampleTypeConfig); err != nil {
			return result, errors.Wrap(err, "uploading profile")
		}
	}

	return result, nil
}

// producer reads the configured source and sends raw events to out.
// runCtx is the caller's context, a command source treats its cancellation
// as the end of the capture.
func (p *Processor) producer(runCtx, ctx context.Context, out chan<- event.Raw) ([]error, error) {
	emit := func(raw event.Raw) { out <- raw }

	switch {
	case p.config.SourceCommand != "":
		cmd := &ingest.Command{
			Script: p.config.SourceCommand,
			Stderr: os.Stderr,
			Logger: p.config.Logger,
		}
		return cmd.Run(runCtx, p.parser, emit)

	case p.config.RecordingPath != "":
		raws, err := ingest.LoadRecording(p.config.RecordingPath)
		if err != nil {
			return nil, err
		}
		for _, raw := range raws {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			emit(raw)
		}
		return nil, nil

	case p.config.LogPath != "":
		f, err := os.Open(p.config.LogPath)
		if err != nil {
			return nil, errors.Wrapf(err, "opening log %s", p.config.LogPath)
		}
		defer f.Close()
		return p.parser.ParseAll(ctx, f, emit)

	default:
		return nil, errors.New("no input: set a log file, a source command or a recording")
	}
}

func (p *Processor) writeOutput(events []event.Call) error {
	switch p.config.OutputFormat {
	case config.FormatText:
		return writeAtomic(p.config.OutputPath, func(w io.Writer) error {
			return converter.WriteTextLog(w, events)
		})
	case config.FormatPprof:
		return writeAtomic(p.config.OutputPath, func(w io.Writer) error {
			return errors.Wrap(converter.ToPprof(events).Write(w), "writing profile")
		})
	default:
		return writeAtomic(p.config.OutputPath, func(w io.Writer) error {
			return converter.WriteTraceDocument(w, converter.ToTraceDocument(events))
		})
	}
}

// writeAtomic writes to a temporary file next to path and renames it into
// place, so readers never see a partial file.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "creating temporary file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "syncing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrapf(err, "chmod %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "renaming output to %s", path)
}
