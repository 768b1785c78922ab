//go:build !unix

package ingest

import "os/exec"

// killGroupOnCancel keeps the default cancellation, which kills only the
// shell. Output is still cut off after Command.StopDelay.
func killGroupOnCancel(*exec.Cmd) {}
