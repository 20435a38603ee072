// Package plugin loads the native user algorithm module and exposes its
// entries as pipeline algorithms for the User_Custom bucket.
package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/user/framepipe/pkg/adapters/dynlib"
	"github.com/user/framepipe/pkg/adapters/logger"
	"github.com/user/framepipe/pkg/adapters/osfilesystem"
	"github.com/user/framepipe/pkg/pipeline"
	"github.com/user/framepipe/pkg/ports"
)

var (
	// ErrNotFound is returned when no candidate module opens and exports
	// both entry points.
	ErrNotFound = errors.New("user plugin not found")

	// ErrNotLoaded is returned by operations that need a loaded plugin.
	ErrNotLoaded = errors.New("user plugin not loaded")

	// ErrRegisterFailed is returned when the register entry point reports
	// a failure or an unusable entry array.
	ErrRegisterFailed = errors.New("user plugin registration failed")
)

// maxEntries bounds the count reported by a plugin.
const maxEntries = 4096

// DefaultLibraryName returns the platform file name of the user module.
func DefaultLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "framepipe_user.dll"
	case "darwin":
		return "libframepipe_user.dylib"
	default:
		return "libframepipe_user.so"
	}
}

// Loader finds, opens and registers the user module exactly once.
type Loader struct {
	lib        ports.DynamicLibrary
	fs         ports.FileSystem
	log        ports.Logger
	name       string
	extraDirs  []string
	executable func() (string, error)

	once    sync.Once
	loadErr error

	mu         sync.Mutex
	handle     uintptr
	unregister uintptr
	entries    []pipeline.AlgEntry
	path       string
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. The loader logs under the "plugin" component.
func WithLogger(l ports.Logger) Option {
	return func(ld *Loader) { ld.log = l.WithComponent("plugin") }
}

// WithFileSystem sets the file system used to probe candidate paths.
func WithFileSystem(fs ports.FileSystem) Option {
	return func(ld *Loader) { ld.fs = fs }
}

// WithLibraryName overrides DefaultLibraryName.
func WithLibraryName(name string) Option {
	return func(ld *Loader) { ld.name = name }
}

// WithSearchDirs adds directories probed after the executable-relative ones.
func WithSearchDirs(dirs ...string) Option {
	return func(ld *Loader) { ld.extraDirs = append(ld.extraDirs, dirs...) }
}

// WithExecutable overrides how the running binary's path is found.
func WithExecutable(fn func() (string, error)) Option {
	return func(ld *Loader) { ld.executable = fn }
}

// NewLoader creates a loader that opens modules through lib.
func NewLoader(lib ports.DynamicLibrary, opts ...Option) *Loader {
	ld := &Loader{
		lib:        lib,
		fs:         osfilesystem.New(),
		log:        logger.NewNoop(),
		name:       DefaultLibraryName(),
		executable: os.Executable,
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
)

// Default returns the process-wide loader using the native DynamicLibrary.
func Default(opts ...Option) *Loader {
	defaultOnce.Do(func() {
		defaultLoader = NewLoader(dynlib.New(), opts...)
	})
	return defaultLoader
}

// Candidates returns the paths probed, in order: the executable's
// directory, a lib directory next to it, a plugins subdirectory, any extra
// directories, and finally the bare name for the platform search path.
func (ld *Loader) Candidates() []string {
	var dirs []string
	if exe, err := ld.executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dir := filepath.Dir(exe)
		dirs = append(dirs, dir, filepath.Join(dir, "..", "lib"), filepath.Join(dir, "plugins"))
	}
	dirs = append(dirs, ld.extraDirs...)

	paths := make([]string, 0, len(dirs)+1)
	for _, d := range dirs {
		paths = append(paths, filepath.Join(d, ld.name))
	}
	return append(paths, ld.name)
}

// LoadOnce loads and registers the module on the first call. Later calls
// return the first call's result without touching the file system.
func (ld *Loader) LoadOnce() error {
	ld.once.Do(func() {
		ld.loadErr = ld.load()
	})
	return ld.loadErr
}

func (ld *Loader) load() error {
	handle, regFn, unregFn, path, err := ld.open()
	if err != nil {
		return err
	}

	arrOut, countOut := new(*cEntry), new(int32)
	var pin runtime.Pinner
	pin.Pin(arrOut)
	pin.Pin(countOut)
	status := pipeline.Status(int32(ld.lib.Call(regFn,
		uintptr(unsafe.Pointer(arrOut)),
		uintptr(unsafe.Pointer(countOut)),
	)))
	pin.Unpin()
	arr, count := *arrOut, *countOut

	if status != pipeline.StatusOK {
		ld.lib.Close(handle)
		return fmt.Errorf("%w: %s returned %s", ErrRegisterFailed, path, status)
	}
	if count < 0 || count > maxEntries || (count > 0 && arr == nil) {
		ld.lib.Call(unregFn)
		ld.lib.Close(handle)
		return fmt.Errorf("%w: %s reported %d entries", ErrRegisterFailed, path, count)
	}

	entries := make([]pipeline.AlgEntry, 0, count)
	if count > 0 {
		for _, e := range unsafe.Slice(arr, count) {
			entries = append(entries, pipeline.AlgEntry{
				Index: int(e.Index),
				Func: pipeline.FunctionEntry{
					Algorithm: newNative(ld.lib, e.Fn),
					Name:      goString(e.Name),
				},
			})
		}
	}

	ld.mu.Lock()
	ld.handle = handle
	ld.unregister = unregFn
	ld.entries = entries
	ld.path = path
	ld.mu.Unlock()

	ld.log.Debug("Loaded %s with %d entries", path, len(entries))
	return nil
}

// open returns the first candidate that opens and exports both symbols.
func (ld *Loader) open() (handle, regFn, unregFn uintptr, path string, err error) {
	for _, candidate := range ld.Candidates() {
		if filepath.IsAbs(candidate) {
			if ok, _ := ld.fs.Exists(candidate); !ok {
				continue
			}
		}
		h, err := ld.lib.Open(candidate)
		if err != nil {
			ld.log.Debug("Cannot open %s: %v", candidate, err)
			continue
		}
		reg, okReg := ld.lib.Resolve(h, RegisterSymbol)
		unreg, okUnreg := ld.lib.Resolve(h, UnregisterSymbol)
		if !okReg || !okUnreg {
			ld.log.Debug("%s does not export the plugin entry points", candidate)
			ld.lib.Close(h)
			continue
		}
		return h, reg, unreg, candidate, nil
	}
	return 0, 0, 0, "", fmt.Errorf("%w: %s", ErrNotFound, ld.name)
}

// Entries returns the loaded algorithms. The result is stable until Unload.
func (ld *Loader) Entries() []pipeline.AlgEntry {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	return append([]pipeline.AlgEntry(nil), ld.entries...)
}

// Path returns the path of the loaded module, or "" when nothing is loaded.
func (ld *Loader) Path() string {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	return ld.path
}

// Loaded reports whether a module is currently held.
func (ld *Loader) Loaded() bool {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	return ld.handle != 0
}

// Unload calls the module's unregister entry point and closes it. It is a
// no-op when nothing is loaded, so it may be called any number of times.
// A module is never reloaded afterwards.
func (ld *Loader) Unload() error {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	if ld.handle == 0 {
		return nil
	}
	if ld.unregister != 0 {
		ld.lib.Call(ld.unregister)
	}
	err := ld.lib.Close(ld.handle)
	ld.log.Debug("Unloaded %s", ld.path)

	ld.handle = 0
	ld.unregister = 0
	ld.entries = nil
	ld.path = ""
	if err != nil {
		return fmt.Errorf("close plugin: %w", err)
	}
	return nil
}
