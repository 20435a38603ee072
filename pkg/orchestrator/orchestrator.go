// Package orchestrator runs configured algorithm stages over camera frames
// on a dedicated worker goroutine.
//
// Producers hand frames to the Manager through a two-slot double buffer;
// the worker always processes the most recently published frame and
// delivers each successful stage output to the display callback.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/user/framepipe/pkg/adapters/logger"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
	"github.com/user/framepipe/pkg/ports"
)

// ErrNotRunning is returned by WaitIdle when the worker is stopped.
var ErrNotRunning = errors.New("pipeline worker is not running")

// Dispatcher resolves and invokes algorithms. *registry.Registry implements it.
type Dispatcher interface {
	Init()
	Lookup(backend pipeline.Backend, module pipeline.Module, index int) (pipeline.FunctionEntry, bool)
	Process(backend pipeline.Backend, module pipeline.Module, index int, in, out *imagebuf.Image, p1, p2 pipeline.Param) pipeline.Status
}

// DisplayFunc receives the output of a successful stage. It runs on the
// worker goroutine and must not retain img beyond the call unless it copies it.
type DisplayFunc func(cameraID uint32, stage int, img *imagebuf.Image)

// Manager owns the stage list, the ingress double buffer and the worker.
type Manager struct {
	reg Dispatcher
	log ports.Logger

	ingressMu sync.Mutex // serializes producers
	frames    *doubleBuffer

	// execMu is held by the worker for a whole pass over the stages, so
	// stage list mutation never overlaps execution. Lock order: execMu, mu.
	execMu sync.Mutex

	mu       sync.Mutex
	cond     *sync.Cond
	newFrame bool
	stopping bool
	running  bool
	busy     bool
	idle     chan struct{} // closed and replaced when busy clears or the worker stops
	done     chan struct{}
	stages   []pipeline.StageSpec
	callback DisplayFunc

	stats   statsRecorder
	lastSeq uint64 // worker only
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The manager logs under the "pipeline" component.
func WithLogger(l ports.Logger) Option {
	return func(m *Manager) { m.log = l.WithComponent("pipeline") }
}

// New creates a stopped Manager dispatching through reg.
func New(reg Dispatcher, opts ...Option) *Manager {
	m := &Manager{
		reg:    reg,
		log:    logger.NewNoop(),
		frames: newDoubleBuffer(),
		idle:   make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize builds the algorithm table and starts the worker. Calling it
// again while running has no effect.
func (m *Manager) Initialize() {
	m.reg.Init()
	m.Run()
}

// Deinitialize stops the worker and clears the stage list.
func (m *Manager) Deinitialize() {
	m.Stop()
	m.ClearProcList()
}

// Run starts the worker if it is not running.
func (m *Manager) Run() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopping = false
	m.done = make(chan struct{})
	go m.loop(m.done)
	m.log.Debug("Pipeline worker started")
}

// Stop asks the worker to exit and waits for it. A stage pass in progress
// completes first. A frame published but not yet processed is kept and
// processed after the next Run.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.stopping = true
	done := m.done
	m.cond.Broadcast()
	m.mu.Unlock()

	<-done

	m.mu.Lock()
	m.running = false
	m.stopping = false
	m.notifyIdleLocked()
	m.mu.Unlock()
	m.log.Debug("Pipeline worker stopped")
}

// Running reports whether the worker is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// OnNewFrame copies the current view of frame into the double buffer and
// wakes the worker. A frame published before the worker picked up the
// previous one replaces it.
func (m *Manager) OnNewFrame(frame *imagebuf.Image) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", imagebuf.ErrInvalidArgument)
	}
	if !frame.HasBuffer() {
		return fmt.Errorf("frame: %w", imagebuf.ErrNoBuffer)
	}

	m.ingressMu.Lock()
	err := m.frames.publish(frame)
	m.ingressMu.Unlock()
	if err != nil {
		return err
	}
	m.stats.ingested.Add(1)

	m.mu.Lock()
	m.newFrame = true
	m.cond.Broadcast()
	m.mu.Unlock()
	return nil
}

// AddProcList appends a stage. See AddStage.
func (m *Manager) AddProcList(backend pipeline.Backend, module pipeline.Module, index int, in, out *imagebuf.Image, p1, p2 pipeline.Param) pipeline.Status {
	return m.AddStage(pipeline.StageSpec{
		Backend:   backend,
		Module:    module,
		Algorithm: index,
		Input:     in,
		Output:    out,
		P1:        p1,
		P2:        p2,
	})
}

// AddStage appends a stage after validating its key and output. A nil
// input binds stage 0 to the latest frame and any later stage to the
// previous stage's output. Waits for a stage pass in progress.
func (m *Manager) AddStage(spec pipeline.StageSpec) pipeline.Status {
	switch {
	case spec.Output == nil:
		return pipeline.StatusNullImage
	case !spec.Backend.Valid():
		return pipeline.StatusInvalidBackend
	case !spec.Module.Valid():
		return pipeline.StatusInvalidModule
	}
	if _, ok := m.reg.Lookup(spec.Backend, spec.Module, spec.Algorithm); !ok {
		return pipeline.StatusAlgNotFound
	}

	m.execMu.Lock()
	defer m.execMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stages = append(m.stages, spec)
	m.stats.resize(len(m.stages))
	m.log.Debug("Added stage %d: %s/%s/%d", len(m.stages)-1, spec.Backend, spec.Module, spec.Algorithm)
	return pipeline.StatusOK
}

// ClearProcList removes every stage. Waits for a stage pass in progress.
func (m *Manager) ClearProcList() {
	m.execMu.Lock()
	defer m.execMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.stages)
	m.stages = nil
	m.stats.resize(0)
	if n > 0 {
		m.log.Debug("Cleared %d stages", n)
	}
}

// Stages returns a copy of the stage list.
func (m *Manager) Stages() []pipeline.StageSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.stages)
}

// RegisterDisplayerCallback sets the function receiving stage outputs.
// A nil callback disables delivery.
func (m *Manager) RegisterDisplayerCallback(cb DisplayFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}

// RegisterDisplayer sets d as the display callback.
func (m *Manager) RegisterDisplayer(d ports.Displayer) {
	if d == nil {
		m.RegisterDisplayerCallback(nil)
		return
	}
	m.RegisterDisplayerCallback(d.Display)
}

// WaitIdle blocks until every published frame has been taken by the worker
// and no stage pass is running.
func (m *Manager) WaitIdle(ctx context.Context) error {
	for {
		m.mu.Lock()
		running, idle, wake := m.running, !m.newFrame && !m.busy, m.idle
		m.mu.Unlock()
		if idle {
			return nil
		}
		if !running {
			return ErrNotRunning
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		}
	}
}

func (m *Manager) notifyIdleLocked() {
	close(m.idle)
	m.idle = make(chan struct{})
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	return m.stats.snapshot()
}

func (m *Manager) loop(done chan struct{}) {
	defer close(done)

	for {
		m.mu.Lock()
		for !m.newFrame && !m.stopping {
			m.cond.Wait()
		}
		if m.stopping {
			m.mu.Unlock()
			return
		}
		m.newFrame = false
		m.busy = true
		m.mu.Unlock()

		if s, ok := m.frames.acquire(m.lastSeq); ok {
			if skipped := s.seq - m.lastSeq - 1; skipped > 0 {
				m.stats.dropped.Add(skipped)
			}
			m.lastSeq = s.seq
			m.execute(s.img.Shallow())
			m.frames.release(s)
		}

		m.mu.Lock()
		m.busy = false
		m.notifyIdleLocked()
		m.mu.Unlock()
	}
}

// execute runs one pass over the stage list for frame.
func (m *Manager) execute(frame *imagebuf.Image) {
	m.execMu.Lock()
	defer m.execMu.Unlock()

	m.mu.Lock()
	stages := m.stages
	cb := m.callback
	m.mu.Unlock()

	var prev *imagebuf.Image
	for i, st := range stages {
		in := st.Input
		if in == nil {
			if i == 0 {
				in = frame
			} else {
				in = prev
			}
		}

		status := m.reg.Process(st.Backend, st.Module, st.Algorithm, in, st.Output, st.P1, st.P2)
		m.stats.record(i, status)
		if status != pipeline.StatusOK {
			m.log.Warn("Stage %d (%s/%s/%d) failed: %s", i, st.Backend, st.Module, st.Algorithm, status)
		} else if cb != nil {
			m.display(cb, frame.CameraID, i, st.Output)
		}
		prev = st.Output
	}
	m.stats.processed.Add(1)
}

func (m *Manager) display(cb DisplayFunc, cameraID uint32, stage int, img *imagebuf.Image) {
	defer func() {
		if v := recover(); v != nil {
			m.log.Error("Display callback panicked: %v", v)
		}
	}()
	cb(cameraID, stage, img)
}
