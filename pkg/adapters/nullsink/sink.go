// Package nullsink provides a no-op Displayer.
package nullsink

import (
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/ports"
)

// Sink discards every stage output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Display does nothing.
func (s *Sink) Display(cameraID uint32, stage int, img *imagebuf.Image) {}

// Close does nothing.
func (s *Sink) Close() error {
	return nil
}

var _ ports.DisplayCloser = (*Sink)(nil)
