package mocks

import (
	"sync"

	"github.com/user/framepipe/pkg/pipeline"
)

// PluginSource is a mock implementation of registry.PluginSource.
type PluginSource struct {
	mu sync.Mutex

	LoadOnceFunc func() error
	EntriesFunc  func() []pipeline.AlgEntry
	UnloadFunc   func() error

	LoadCalls   int
	UnloadCalls int
}

// NewPluginSource creates a plugin source that loads successfully and
// returns entries.
func NewPluginSource(entries ...pipeline.AlgEntry) *PluginSource {
	return &PluginSource{
		EntriesFunc: func() []pipeline.AlgEntry { return entries },
	}
}

func (m *PluginSource) LoadOnce() error {
	m.mu.Lock()
	m.LoadCalls++
	m.mu.Unlock()
	if m.LoadOnceFunc != nil {
		return m.LoadOnceFunc()
	}
	return nil
}

func (m *PluginSource) Entries() []pipeline.AlgEntry {
	if m.EntriesFunc != nil {
		return m.EntriesFunc()
	}
	return nil
}

func (m *PluginSource) Unload() error {
	m.mu.Lock()
	m.UnloadCalls++
	m.mu.Unlock()
	if m.UnloadFunc != nil {
		return m.UnloadFunc()
	}
	return nil
}
