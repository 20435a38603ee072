package mocks

import (
	"bytes"
	"sync"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/ports"
)

// Displayed is a stage output received by Displayer.
type Displayed struct {
	CameraID uint32
	Stage    int
	Width    uint32
	Height   uint32
	Format   imagebuf.Format
	Data     []byte
}

// Displayer is a mock implementation of ports.DisplayCloser that copies
// every output it receives.
type Displayer struct {
	DisplayFunc func(cameraID uint32, stage int, img *imagebuf.Image)
	CloseFunc   func() error

	mu         sync.Mutex
	received   []Displayed
	CloseCalls int
}

func (m *Displayer) Display(cameraID uint32, stage int, img *imagebuf.Image) {
	m.mu.Lock()
	m.received = append(m.received, Displayed{
		CameraID: cameraID,
		Stage:    stage,
		Width:    img.Width,
		Height:   img.Height,
		Format:   img.Format,
		Data:     bytes.Clone(img.Data()),
	})
	m.mu.Unlock()
	if m.DisplayFunc != nil {
		m.DisplayFunc(cameraID, stage, img)
	}
}

func (m *Displayer) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Received returns a copy of the recorded outputs.
func (m *Displayer) Received() []Displayed {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Displayed(nil), m.received...)
}

var _ ports.DisplayCloser = (*Displayer)(nil)
