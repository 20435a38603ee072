package pipeline

import (
	"fmt"
	"strings"
)

// =============================================================================
// Backends and modules
// =============================================================================

// Backend is the execution target that partitions the algorithm table.
type Backend int

const (
	BackendCPUSerial Backend = iota
	BackendCPUParallel
	BackendGPUGLCompute
	BackendGPUOpenCL
	BackendGPUCUDA

	BackendCount
)

var backendNames = [BackendCount]string{
	"CPU_Serial",
	"CPU_Parallel",
	"GPU_GL_Compute",
	"GPU_OpenCL",
	"GPU_CUDA",
}

// Valid reports whether b names a backend.
func (b Backend) Valid() bool { return b >= 0 && b < BackendCount }

// String returns the backend name.
func (b Backend) String() string {
	if b.Valid() {
		return backendNames[b]
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// BackendNames returns backend names in enum order.
func BackendNames() []string {
	return append([]string(nil), backendNames[:]...)
}

// ParseBackend matches a backend name, ignoring case.
func ParseBackend(s string) (Backend, bool) {
	for i, name := range backendNames {
		if strings.EqualFold(name, s) {
			return Backend(i), true
		}
	}
	return 0, false
}

// Module is a functional grouping of algorithms.
type Module int

const (
	ModuleConverter Module = iota
	ModuleScaler
	ModuleSplitter
	ModuleUserCustom // plugin-supplied algorithms; always last

	ModuleCount
)

var moduleNames = [ModuleCount]string{
	"Converter",
	"Scaler",
	"Splitter",
	"User_Custom",
}

// Valid reports whether m names a module.
func (m Module) Valid() bool { return m >= 0 && m < ModuleCount }

// String returns the module name.
func (m Module) String() string {
	if m.Valid() {
		return moduleNames[m]
	}
	return fmt.Sprintf("Module(%d)", int(m))
}

// ModuleNames returns module names in enum order.
func ModuleNames() []string {
	return append([]string(nil), moduleNames[:]...)
}

// ParseModule matches a module name, ignoring case.
func ParseModule(s string) (Module, bool) {
	for i, name := range moduleNames {
		if strings.EqualFold(name, s) {
			return Module(i), true
		}
	}
	return 0, false
}

// =============================================================================
// Status
// =============================================================================

// Status is the result code returned by dispatch and by every algorithm.
// Values are part of the plugin ABI and must not be reordered.
type Status int32

const (
	StatusNotAvailable Status = iota
	StatusOK
	StatusInvalidBackend
	StatusInvalidModule
	StatusAlgNotFound
	StatusInvalidSize
	StatusInvalidFormat
	StatusNullFunction
	StatusNullImage
	StatusInternal
	StatusIsDeveloping

	statusCount
)

var statusNames = [statusCount]string{
	"NotAvailable",
	"OK",
	"InvalidBackend",
	"InvalidModule",
	"AlgNotFound",
	"InvalidSize",
	"InvalidFormat",
	"NullFunction",
	"NullImage",
	"Internal",
	"IsDeveloping",
}

// Valid reports whether s is a known status code.
func (s Status) Valid() bool { return s >= 0 && s < statusCount }

// String returns the status name.
func (s Status) String() string {
	if s.Valid() {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// Err returns nil for StatusOK and a *StatusError otherwise.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError carries a non-OK status as an error.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return "algorithm status: " + e.Status.String()
}
