// Package pipeline defines the types shared by the algorithm registry, the
// plugin loader and the pipeline manager.
package pipeline

import (
	"image"

	"github.com/user/framepipe/pkg/imagebuf"
)

// Algorithm is a registered processing operation.
//
// in may be nil for source-less algorithms; out is never nil when invoked
// through the registry. p1 and p2 are the stage parameters; each algorithm
// documents which Param variants it reads.
type Algorithm interface {
	Invoke(in, out *imagebuf.Image, p1, p2 Param) Status
}

// AlgorithmFunc is a function adapter for the Algorithm interface.
type AlgorithmFunc func(in, out *imagebuf.Image, p1, p2 Param) Status

// Invoke implements Algorithm.
func (f AlgorithmFunc) Invoke(in, out *imagebuf.Image, p1, p2 Param) Status {
	return f(in, out, p1, p2)
}

// FunctionEntry is a registered algorithm and its display name.
type FunctionEntry struct {
	Algorithm Algorithm
	Name      string
}

// AlgEntry is a FunctionEntry with its index inside a module bucket.
type AlgEntry struct {
	Index int
	Func  FunctionEntry
}

// AlgorithmInfo is one row of an algorithm list.
type AlgorithmInfo struct {
	Index int
	Name  string
}

// =============================================================================
// Parameters
// =============================================================================

// Param is a stage parameter. The concrete variants are IntParam,
// RectParam and BytesParam; a nil Param means "not set".
type Param interface {
	isParam()
}

// IntParam is an integer parameter (frame index, channel, ...).
type IntParam int

// RectParam is a region of interest.
type RectParam image.Rectangle

// BytesParam is an opaque byte span, used for plugin-defined parameter blocks.
type BytesParam []byte

func (IntParam) isParam()   {}
func (RectParam) isParam()  {}
func (BytesParam) isParam() {}

// IntValue returns p as an int when it is an IntParam.
func IntValue(p Param) (int, bool) {
	v, ok := p.(IntParam)
	return int(v), ok
}

// RectValue returns p as a rectangle when it is a RectParam.
func RectValue(p Param) (image.Rectangle, bool) {
	v, ok := p.(RectParam)
	return image.Rectangle(v), ok
}

// =============================================================================
// Stages
// =============================================================================

// StageSpec is one configured pipeline step.
//
// Input is optional: when nil, stage 0 reads the latest ingested frame and
// stage n>0 reads the output of stage n-1. Output is required and owned by
// the caller.
type StageSpec struct {
	Backend   Backend
	Module    Module
	Algorithm int
	Input     *imagebuf.Image
	Output    *imagebuf.Image
	P1, P2    Param
}
