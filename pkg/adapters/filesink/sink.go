// Package filesink provides a Displayer that writes stage outputs to files.
package filesink

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/user/framepipe/pkg/adapters/logger"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/ports"
)

// Sink saves every displayed stage output under
// baseDir/cam-NN/stage-NN/frame-NNNNNN.{tlv,png}.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
	log      ports.Logger
	saveTLV  bool
	savePNG  bool

	mu      sync.Mutex
	seq     map[key]int
	dirs    map[string]bool
	written int
	err     error
}

type key struct {
	camera uint32
	stage  int
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger. The sink logs under the "filesink" component.
func WithLogger(l ports.Logger) Option {
	return func(s *Sink) { s.log = l.WithComponent("filesink") }
}

// WithTLV enables or disables the TLV dump. Enabled by default.
func WithTLV(on bool) Option {
	return func(s *Sink) { s.saveTLV = on }
}

// WithPNG enables or disables the PNG preview. Requires a renderer.
func WithPNG(on bool) Option {
	return func(s *Sink) { s.savePNG = on }
}

// New creates a file sink. renderer may be nil when PNG output is disabled.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer, opts ...Option) *Sink {
	s := &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
		log:      logger.NewNoop(),
		saveTLV:  true,
		seq:      make(map[key]int),
		dirs:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Display writes img. Failures are logged and remembered; see Err.
func (s *Sink) Display(cameraID uint32, stage int, img *imagebuf.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{cameraID, stage}
	n := s.seq[k]
	s.seq[k] = n + 1

	if err := s.save(k, n, img); err != nil {
		s.log.Warn("Failed to save stage output: %v", err)
		if s.err == nil {
			s.err = err
		}
		return
	}
	s.written++
}

func (s *Sink) save(k key, n int, img *imagebuf.Image) error {
	dir := filepath.Join(s.baseDir, fmt.Sprintf("cam-%02d", k.camera), fmt.Sprintf("stage-%02d", k.stage))
	if !s.dirs[dir] {
		if err := s.fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		s.dirs[dir] = true
	}
	base := filepath.Join(dir, fmt.Sprintf("frame-%06d", n))

	if s.saveTLV {
		var buf bytes.Buffer
		if err := img.Save(&buf); err != nil {
			return fmt.Errorf("encode TLV: %w", err)
		}
		if err := s.fs.WriteFile(base+".tlv", buf.Bytes()); err != nil {
			return err
		}
	}

	if s.savePNG && s.renderer != nil {
		view, err := s.renderer.FrameImage(img)
		if err != nil {
			return fmt.Errorf("convert frame: %w", err)
		}
		data, err := s.renderer.EncodeImage(view, ports.FormatPNG, 0)
		if err != nil {
			return fmt.Errorf("encode PNG: %w", err)
		}
		if err := s.fs.WriteFile(base+".png", data); err != nil {
			return err
		}
	}
	return nil
}

// Written returns the number of outputs saved.
func (s *Sink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Err returns the first save failure.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close returns the first save failure, if any.
func (s *Sink) Close() error {
	return s.Err()
}

var _ ports.DisplayCloser = (*Sink)(nil)
