// Package display distributes stage outputs to several displayers and
// keeps a contact sheet of the latest output of every camera and stage.
package display

import (
	"errors"

	"github.com/user/framepipe/pkg/adapters/logger"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/ports"
)

// Fanout forwards every stage output to each displayer in order. A
// displayer that panics is logged and skipped for that output only.
type Fanout struct {
	targets []ports.Displayer
	log     ports.Logger
}

// NewFanout creates a Fanout. Nil targets are ignored.
func NewFanout(log ports.Logger, targets ...ports.Displayer) *Fanout {
	if log == nil {
		log = logger.NewNoop()
	}
	f := &Fanout{log: log.WithComponent("display")}
	for _, t := range targets {
		if t != nil {
			f.targets = append(f.targets, t)
		}
	}
	return f
}

// Len returns the number of targets.
func (f *Fanout) Len() int { return len(f.targets) }

// Display implements ports.Displayer.
func (f *Fanout) Display(cameraID uint32, stage int, img *imagebuf.Image) {
	for i, t := range f.targets {
		f.forward(i, t, cameraID, stage, img)
	}
}

func (f *Fanout) forward(i int, t ports.Displayer, cameraID uint32, stage int, img *imagebuf.Image) {
	defer func() {
		if v := recover(); v != nil {
			f.log.Error("Displayer %d panicked: %v", i, v)
		}
	}()
	t.Display(cameraID, stage, img)
}

// Close closes every target that holds resources and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, t := range f.targets {
		if c, ok := t.(ports.DisplayCloser); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var _ ports.DisplayCloser = (*Fanout)(nil)
