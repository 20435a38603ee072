//go:build darwin || freebsd || linux

package dynlib

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Open loads the module with RTLD_NOW|RTLD_LOCAL.
func (l *Library) Open(path string) (uintptr, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return 0, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return h, nil
}

// Resolve looks up symbol with dlsym.
func (l *Library) Resolve(handle uintptr, symbol string) (uintptr, bool) {
	if handle == 0 {
		return 0, false
	}
	fn, err := purego.Dlsym(handle, symbol)
	if err != nil || fn == 0 {
		return 0, false
	}
	return fn, true
}

// Call invokes fn with the C calling convention.
func (l *Library) Call(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}

// Close unloads the module with dlclose.
func (l *Library) Close(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	if err := purego.Dlclose(handle); err != nil {
		return fmt.Errorf("dlclose: %w", err)
	}
	return nil
}
