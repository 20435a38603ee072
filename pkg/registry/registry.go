// Package registry implements the algorithm table: a mapping from
// (backend, module, index) to a registered algorithm, built lazily on first
// use with the built-in catalogs and any user plugin algorithms.
package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ideamans/go-l10n"

	"github.com/user/framepipe/pkg/adapters/logger"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
	"github.com/user/framepipe/pkg/ports"
)

// PluginSource supplies the User_Custom bucket.
type PluginSource interface {
	// LoadOnce loads the plugin on the first call and returns the same
	// result on every later call.
	LoadOnce() error
	// Entries returns the loaded algorithms; valid after a successful LoadOnce.
	Entries() []pipeline.AlgEntry
	// Unload releases the plugin. Safe to call repeatedly.
	Unload() error
}

type bucket map[int]pipeline.FunctionEntry

// table is never mutated after it is published.
type table [pipeline.BackendCount][pipeline.ModuleCount]bucket

// Registry dispatches algorithm invocations by key.
//
// Reads go through an atomically published table and take no lock;
// registrations copy the affected bucket and publish a new table.
type Registry struct {
	log      ports.Logger
	plugins  PluginSource
	builtins bool

	once  sync.Once
	mu    sync.Mutex // serializes writers
	table atomic.Pointer[table]
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The registry logs under the "registry" component.
func WithLogger(l ports.Logger) Option {
	return func(r *Registry) { r.log = l.WithComponent("registry") }
}

// WithPlugins sets the plugin source merged into the User_Custom bucket.
func WithPlugins(p PluginSource) Option {
	return func(r *Registry) { r.plugins = p }
}

// WithoutBuiltins skips registration of the built-in catalogs.
func WithoutBuiltins() Option {
	return func(r *Registry) { r.builtins = false }
}

// New creates a registry. The table is built on first use.
func New(opts ...Option) *Registry {
	r := &Registry{
		log:      logger.NewNoop(),
		builtins: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultOptions  []Option
)

// SetDefaultOptions configures the process-wide registry. It has no effect
// once Default has been called.
func SetDefaultOptions(opts ...Option) {
	defaultOptions = opts
}

// Default returns the process-wide registry, created on first call.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New(defaultOptions...)
	})
	return defaultRegistry
}

// Init builds the table if it has not been built yet. Every other method
// calls it, so calling it explicitly is only needed to front-load the cost.
func (r *Registry) Init() {
	r.once.Do(r.build)
}

func (r *Registry) build() {
	r.table.Store(&table{})

	if r.builtins {
		n := 0
		for module, entries := range builtinCatalog() {
			for _, e := range entries {
				r.register(pipeline.BackendCPUSerial, module, e.Index, e.Func)
				n++
			}
		}
		r.log.Debug("Registered %d built-in algorithms", n)
	}

	if r.plugins == nil {
		return
	}
	if err := r.plugins.LoadOnce(); err != nil {
		r.log.Debug("User plugin not loaded: %v", err)
		return
	}
	entries := r.plugins.Entries()
	for _, e := range entries {
		r.register(pipeline.BackendCPUSerial, pipeline.ModuleUserCustom, e.Index, e.Func)
	}
	r.log.Info("Loaded %d user algorithms", len(entries))
}

// Register adds or replaces the algorithm stored under the key. Replacing an
// existing entry is logged at debug level.
func (r *Registry) Register(backend pipeline.Backend, module pipeline.Module, index int, alg pipeline.Algorithm, name string) pipeline.Status {
	r.Init()
	if !backend.Valid() {
		return pipeline.StatusInvalidBackend
	}
	if !module.Valid() {
		return pipeline.StatusInvalidModule
	}
	r.register(backend, module, index, pipeline.FunctionEntry{Algorithm: alg, Name: name})
	return pipeline.StatusOK
}

func (r *Registry) register(backend pipeline.Backend, module pipeline.Module, index int, fn pipeline.FunctionEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := *r.table.Load()
	b := maps.Clone(next[backend][module])
	if b == nil {
		b = make(bucket)
	}
	if prev, ok := b[index]; ok {
		r.log.Debug("Replacing %s/%s algorithm %d (%s)", backend, module, index, prev.Name)
	}
	b[index] = fn
	next[backend][module] = b
	r.table.Store(&next)
}

// clear removes every entry of a bucket.
func (r *Registry) clear(backend pipeline.Backend, module pipeline.Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := *r.table.Load()
	next[backend][module] = nil
	r.table.Store(&next)
}

// Process invokes the algorithm stored under the key.
//
// Validation order: backend range, module range, key presence, non-nil
// algorithm, non-nil output. A panic inside the algorithm is reported as
// StatusInternal.
func (r *Registry) Process(backend pipeline.Backend, module pipeline.Module, index int, in, out *imagebuf.Image, p1, p2 pipeline.Param) (status pipeline.Status) {
	r.Init()
	if !backend.Valid() {
		return pipeline.StatusInvalidBackend
	}
	if !module.Valid() {
		return pipeline.StatusInvalidModule
	}
	fn, ok := r.table.Load()[backend][module][index]
	if !ok {
		return pipeline.StatusAlgNotFound
	}
	if isNil(fn.Algorithm) {
		return pipeline.StatusNullFunction
	}
	if out == nil {
		return pipeline.StatusNullImage
	}

	defer func() {
		if v := recover(); v != nil {
			r.log.Error("Algorithm %s/%s/%d panicked: %v", backend, module, index, v)
			status = pipeline.StatusInternal
		}
	}()
	return fn.Algorithm.Invoke(in, out, p1, p2)
}

func isNil(alg pipeline.Algorithm) bool {
	if alg == nil {
		return true
	}
	f, ok := alg.(pipeline.AlgorithmFunc)
	return ok && f == nil
}

// Lookup returns the entry stored under the key.
func (r *Registry) Lookup(backend pipeline.Backend, module pipeline.Module, index int) (pipeline.FunctionEntry, bool) {
	r.Init()
	if !backend.Valid() || !module.Valid() {
		return pipeline.FunctionEntry{}, false
	}
	fn, ok := r.table.Load()[backend][module][index]
	return fn, ok
}

// AlgorithmList returns the (index, name) pairs of a bucket in ascending
// index order. Names are localized.
func (r *Registry) AlgorithmList(backend pipeline.Backend, module pipeline.Module) []pipeline.AlgorithmInfo {
	r.Init()
	if !backend.Valid() || !module.Valid() {
		return nil
	}
	b := r.table.Load()[backend][module]
	indices := slices.Sorted(maps.Keys(b))

	list := make([]pipeline.AlgorithmInfo, 0, len(indices))
	for _, i := range indices {
		list = append(list, pipeline.AlgorithmInfo{Index: i, Name: l10n.T(b[i].Name)})
	}
	return list
}

// Close empties the User_Custom buckets and unloads the plugin. The
// built-in entries stay usable.
func (r *Registry) Close() error {
	r.Init()
	for backend := pipeline.Backend(0); backend < pipeline.BackendCount; backend++ {
		r.clear(backend, pipeline.ModuleUserCustom)
	}
	if r.plugins == nil {
		return nil
	}
	if err := r.plugins.Unload(); err != nil {
		return fmt.Errorf("unload plugin: %w", err)
	}
	return nil
}
