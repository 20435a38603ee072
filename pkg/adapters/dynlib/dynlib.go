// Package dynlib provides the ports.DynamicLibrary implementation for the
// host platform: dlopen via purego on Unix, LoadLibrary on Windows.
package dynlib

import (
	"errors"

	"github.com/user/framepipe/pkg/ports"
)

// ErrUnsupported is returned by Open on platforms without native module loading.
var ErrUnsupported = errors.New("dynamic libraries are not supported on this platform")

// Library loads native modules. It holds no state; handles are owned by callers.
type Library struct{}

// New creates a Library.
func New() *Library {
	return &Library{}
}

var _ ports.DynamicLibrary = (*Library)(nil)
