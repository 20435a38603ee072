package orchestrator

import (
	"sync"
	"sync/atomic"

	"github.com/user/framepipe/pkg/pipeline"
)

// Stats is a snapshot of the manager's counters.
type Stats struct {
	Ingested  uint64 // frames accepted by OnNewFrame
	Processed uint64 // stage passes completed
	Dropped   uint64 // frames replaced before the worker took them
	Stages    []StageStats
}

// StageStats counts the results of one stage.
type StageStats struct {
	OK     uint64
	Failed uint64
	Last   pipeline.Status
}

type statsRecorder struct {
	ingested  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64

	mu     sync.Mutex
	stages []StageStats
}

func (r *statsRecorder) resize(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n == 0 {
		r.stages = nil
		return
	}
	for len(r.stages) < n {
		r.stages = append(r.stages, StageStats{})
	}
	r.stages = r.stages[:n]
}

func (r *statsRecorder) record(stage int, status pipeline.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stage >= len(r.stages) {
		return
	}
	st := &r.stages[stage]
	if status == pipeline.StatusOK {
		st.OK++
	} else {
		st.Failed++
	}
	st.Last = status
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	stages := append([]StageStats(nil), r.stages...)
	r.mu.Unlock()
	return Stats{
		Ingested:  r.ingested.Load(),
		Processed: r.processed.Load(),
		Dropped:   r.dropped.Load(),
		Stages:    stages,
	}
}
