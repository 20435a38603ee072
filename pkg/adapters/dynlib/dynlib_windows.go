//go:build windows

package dynlib

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

// Open loads the module with LoadLibrary.
func (l *Library) Open(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, fmt.Errorf("LoadLibrary %s: %w", path, err)
	}
	return uintptr(h), nil
}

// Resolve looks up symbol with GetProcAddress.
func (l *Library) Resolve(handle uintptr, symbol string) (uintptr, bool) {
	if handle == 0 {
		return 0, false
	}
	fn, err := windows.GetProcAddress(windows.Handle(handle), symbol)
	if err != nil || fn == 0 {
		return 0, false
	}
	return fn, true
}

// Call invokes fn with the platform calling convention.
func (l *Library) Call(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := syscall.SyscallN(fn, args...)
	return r1
}

// Close unloads the module with FreeLibrary.
func (l *Library) Close(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	if err := windows.FreeLibrary(windows.Handle(handle)); err != nil {
		return fmt.Errorf("FreeLibrary: %w", err)
	}
	return nil
}
