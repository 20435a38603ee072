// Package summarizer provides summary generation for pipeline runs.
package summarizer

import "time"

// Summary contains all data collected during a pipeline run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	// Inputs fed to the pipeline
	Input InputInfo

	// Worker counters
	Pipeline PipelineInfo

	// Per-stage results in stage order
	Stages []StageInfo

	// Files written by displayers
	Outputs []string
}

// InputInfo describes the frames given to the pipeline.
type InputInfo struct {
	ConfigPath string
	PluginPath string // empty when no user plugin was loaded
	Files      int
	Frames     int
}

// PipelineInfo contains the worker counters.
type PipelineInfo struct {
	Ingested  uint64
	Processed uint64
	Dropped   uint64
	Duration  time.Duration
}

// StageInfo contains the results of one stage.
type StageInfo struct {
	Index     int
	Backend   string
	Module    string
	Algorithm int
	Name      string
	OK        uint64
	Failed    uint64
	Last      string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithRunID sets the run identifier.
func (b *Builder) WithRunID(id string) *Builder {
	b.summary.RunID = id
	return b
}

// WithInput sets input information.
func (b *Builder) WithInput(input InputInfo) *Builder {
	b.summary.Input = input
	return b
}

// WithPipeline sets the worker counters.
func (b *Builder) WithPipeline(info PipelineInfo) *Builder {
	b.summary.Pipeline = info
	return b
}

// AddStage appends a stage result.
func (b *Builder) AddStage(stage StageInfo) *Builder {
	b.summary.Stages = append(b.summary.Stages, stage)
	return b
}

// AddOutput records a written file.
func (b *Builder) AddOutput(path string) *Builder {
	b.summary.Outputs = append(b.summary.Outputs, path)
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
