// Package fifouart implements vtx.ByteSink over a named-pipe FIFO, giving
// the guest's emulated UART output somewhere real to go: a file a
// supervising process can tail or pipe onward.
package fifouart

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/containerd/fifo"
)

// Sink writes guest UART bytes to a FIFO at path, creating it if absent.
type Sink struct {
	f io.WriteCloser
}

// Open creates (if needed) and opens path as a write-only FIFO.
func Open(ctx context.Context, path string) (*Sink, error) {
	f, err := fifo.OpenFifo(ctx, path, os.O_WRONLY|os.O_CREATE|syscall.O_NONBLOCK, 0620)
	if err != nil {
		return nil, fmt.Errorf("fifouart: open %s: %w", path, err)
	}
	return &Sink{f: f}, nil
}

// Write implements vtx.ByteSink. Best-effort: a write that would block is
// not retried, matching the core's "the sink's reported actual count is
// ignored" contract — a dropped byte here shows up as a short guest UART
// write, which the core does not treat as an error.
func (s *Sink) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// Close releases the underlying FIFO handle.
func (s *Sink) Close() error {
	return s.f.Close()
}
