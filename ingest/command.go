package ingest

import (
	"context"
	"io"
	"os/exec"
	"time"

	"asyncScope/event"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Command runs a shell command, typically the emulator booting the
// instrumented kernel, and parses its stdout as it is produced.
type Command struct {
	Script string    // Passed to sh -c
	Stderr io.Writer // Where the command's stderr goes, discarded if nil
	Logger zerolog.Logger

	// StopDelay bounds how long output is still read after ctx is done.
	// Defaults to DefaultStopDelay.
	StopDelay time.Duration
}

// DefaultStopDelay is the grace period for a stopped command to close its
// output
const DefaultStopDelay = 2 * time.Second

// Run starts the command and streams every parsed event to emit until the
// command exits or ctx is done. Stopping through ctx is the normal way to end
// a live session and is not an error. The command runs in its own process
// group, and stopping it kills the whole group.
func (c *Command) Run(ctx context.Context, p *Parser, emit func(event.Raw)) ([]error, error) {
	stopDelay := c.StopDelay
	if stopDelay <= 0 {
		stopDelay = DefaultStopDelay
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", c.Script)
	cmd.Stderr = c.Stderr
	cmd.WaitDelay = stopDelay
	killGroupOnCancel(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "creating stdout pipe")
	}

	c.Logger.Info().Str("cmd", cmd.String()).Msg("starting process")
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "starting %q", c.Script)
	}

	// A process that escaped the group can hold the pipe open after the
	// kill, so reading is cut off once the grace period is over.
	parsed := make(chan struct{})
	go func() {
		select {
		case <-parsed:
			return
		case <-ctx.Done():
		}
		select {
		case <-parsed:
		case <-time.After(stopDelay):
			c.Logger.Warn().Dur("delay", stopDelay).Msg("source command output still open, closing it")
			stdout.Close()
		}
	}()

	// Parse with a background context: after cancellation the pipe is drained
	// until the killed process group closes it.
	malformed, readErr := p.ParseAll(context.Background(), stdout, emit)
	close(parsed)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		c.Logger.Info().Msg("source command stopped")
		return malformed, nil
	}
	if readErr != nil {
		return malformed, readErr
	}
	if waitErr != nil {
		return malformed, errors.Wrapf(waitErr, "%q exited with error", c.Script)
	}
	return malformed, nil
}
