package mocks

import (
	"fmt"
	"sync"

	"github.com/user/framepipe/pkg/ports"
)

// DynamicLibrary is a mock implementation of ports.DynamicLibrary.
//
// Without overrides, Open succeeds for paths listed in Modules and Resolve
// finds symbols listed in Symbols.
type DynamicLibrary struct {
	mu sync.Mutex

	Modules map[string]uintptr
	Symbols map[uintptr]map[string]uintptr

	OpenFunc    func(path string) (uintptr, error)
	ResolveFunc func(handle uintptr, symbol string) (uintptr, bool)
	CallFunc    func(fn uintptr, args ...uintptr) uintptr
	CloseFunc   func(handle uintptr) error

	Opened []string
	Called []uintptr
	Closed []uintptr
}

// NewDynamicLibrary creates an empty mock library.
func NewDynamicLibrary() *DynamicLibrary {
	return &DynamicLibrary{
		Modules: make(map[string]uintptr),
		Symbols: make(map[uintptr]map[string]uintptr),
	}
}

func (m *DynamicLibrary) Open(path string) (uintptr, error) {
	m.mu.Lock()
	m.Opened = append(m.Opened, path)
	m.mu.Unlock()
	if m.OpenFunc != nil {
		return m.OpenFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.Modules[path]; ok {
		return h, nil
	}
	return 0, fmt.Errorf("module not found: %s", path)
}

func (m *DynamicLibrary) Resolve(handle uintptr, symbol string) (uintptr, bool) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(handle, symbol)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn, ok := m.Symbols[handle][symbol]
	return fn, ok
}

func (m *DynamicLibrary) Call(fn uintptr, args ...uintptr) uintptr {
	m.mu.Lock()
	m.Called = append(m.Called, fn)
	m.mu.Unlock()
	if m.CallFunc != nil {
		return m.CallFunc(fn, args...)
	}
	return 0
}

func (m *DynamicLibrary) Close(handle uintptr) error {
	m.mu.Lock()
	m.Closed = append(m.Closed, handle)
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc(handle)
	}
	return nil
}

// OpenCount returns how many times Open was called.
func (m *DynamicLibrary) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Opened)
}

// CallCount returns how many calls targeted fn.
func (m *DynamicLibrary) CallCount(fn uintptr) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.Called {
		if f == fn {
			n++
		}
	}
	return n
}

var _ ports.DynamicLibrary = (*DynamicLibrary)(nil)
