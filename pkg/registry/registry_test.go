package registry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/user/framepipe/pkg/algorithms/converter"
	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/mocks"
	"github.com/user/framepipe/pkg/pipeline"
	"github.com/user/framepipe/pkg/plugin"
	"github.com/user/framepipe/pkg/ports"
	"github.com/user/framepipe/pkg/registry"
)

var (
	_ registry.PluginSource = (*mocks.PluginSource)(nil)
	_ registry.PluginSource = (*plugin.Loader)(nil)
)

func okAlg() pipeline.Algorithm {
	return pipeline.AlgorithmFunc(func(in, out *imagebuf.Image, p1, p2 pipeline.Param) pipeline.Status {
		return pipeline.StatusOK
	})
}

func newOutput(t *testing.T) *imagebuf.Image {
	t.Helper()
	img, err := imagebuf.New(2, 2, imagebuf.FormatGray8)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestProcess_AlgNotFound(t *testing.T) {
	r := registry.New()
	out := newOutput(t)

	tests := []struct {
		name    string
		backend pipeline.Backend
		module  pipeline.Module
		index   int
	}{
		{"gpu backend has no built-ins", pipeline.BackendGPUCUDA, pipeline.ModuleConverter, 0},
		{"index past converter catalog", pipeline.BackendCPUSerial, pipeline.ModuleConverter, 99},
		{"negative index", pipeline.BackendCPUSerial, pipeline.ModuleScaler, -1},
		{"empty user bucket", pipeline.BackendCPUSerial, pipeline.ModuleUserCustom, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s := r.Process(tt.backend, tt.module, tt.index, nil, out, nil, nil); s != pipeline.StatusAlgNotFound {
				t.Errorf("expected AlgNotFound, got %v", s)
			}
		})
	}
}

func TestProcess_Validation(t *testing.T) {
	r := registry.New(registry.WithoutBuiltins())
	r.Register(pipeline.BackendCPUSerial, pipeline.ModuleConverter, 0, nil, "empty")
	r.Register(pipeline.BackendCPUSerial, pipeline.ModuleConverter, 1, pipeline.AlgorithmFunc(nil), "nil func")
	r.Register(pipeline.BackendCPUSerial, pipeline.ModuleConverter, 2, okAlg(), "ok")
	out := newOutput(t)

	tests := []struct {
		name    string
		backend pipeline.Backend
		module  pipeline.Module
		index   int
		out     *imagebuf.Image
		want    pipeline.Status
	}{
		{"backend below range", -1, pipeline.ModuleConverter, 2, out, pipeline.StatusInvalidBackend},
		{"backend above range", pipeline.BackendCount, pipeline.ModuleConverter, 2, out, pipeline.StatusInvalidBackend},
		{"module out of range", pipeline.BackendCPUSerial, pipeline.ModuleCount, 2, out, pipeline.StatusInvalidModule},
		{"nil algorithm", pipeline.BackendCPUSerial, pipeline.ModuleConverter, 0, out, pipeline.StatusNullFunction},
		{"nil func adapter", pipeline.BackendCPUSerial, pipeline.ModuleConverter, 1, out, pipeline.StatusNullFunction},
		{"nil output", pipeline.BackendCPUSerial, pipeline.ModuleConverter, 2, nil, pipeline.StatusNullImage},
		{"ok", pipeline.BackendCPUSerial, pipeline.ModuleConverter, 2, out, pipeline.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s := r.Process(tt.backend, tt.module, tt.index, nil, tt.out, nil, nil); s != tt.want {
				t.Errorf("expected %v, got %v", tt.want, s)
			}
		})
	}
}

func TestProcess_InvokesExactlyOnce(t *testing.T) {
	r := registry.New()

	calls := 0
	var gotIn, gotOut *imagebuf.Image
	var gotP1, gotP2 pipeline.Param
	alg := pipeline.AlgorithmFunc(func(in, out *imagebuf.Image, p1, p2 pipeline.Param) pipeline.Status {
		calls++
		gotIn, gotOut, gotP1, gotP2 = in, out, p1, p2
		return pipeline.StatusIsDeveloping
	})
	if s := r.Register(pipeline.BackendGPUOpenCL, pipeline.ModuleSplitter, 7, alg, "counting"); s != pipeline.StatusOK {
		t.Fatalf("Register failed: %v", s)
	}

	in, out := newOutput(t), newOutput(t)
	s := r.Process(pipeline.BackendGPUOpenCL, pipeline.ModuleSplitter, 7, in, out, pipeline.IntParam(1), pipeline.BytesParam{9})

	if s != pipeline.StatusIsDeveloping {
		t.Errorf("expected the algorithm's own status, got %v", s)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if gotIn != in || gotOut != out {
		t.Error("algorithm received different images")
	}
	if v, _ := pipeline.IntValue(gotP1); v != 1 {
		t.Errorf("expected p1=1, got %v", gotP1)
	}
	if b, ok := gotP2.(pipeline.BytesParam); !ok || len(b) != 1 || b[0] != 9 {
		t.Errorf("expected p2=[9], got %v", gotP2)
	}
}

func TestProcess_PanicIsInternal(t *testing.T) {
	log := mocks.NewLogger()
	r := registry.New(registry.WithLogger(log), registry.WithoutBuiltins())
	r.Register(pipeline.BackendCPUSerial, pipeline.ModuleScaler, 0, pipeline.AlgorithmFunc(func(in, out *imagebuf.Image, p1, p2 pipeline.Param) pipeline.Status {
		panic("boom")
	}), "panics")

	if s := r.Process(pipeline.BackendCPUSerial, pipeline.ModuleScaler, 0, nil, newOutput(t), nil, nil); s != pipeline.StatusInternal {
		t.Errorf("expected Internal, got %v", s)
	}
	if !log.Contains(ports.LevelError, "boom") {
		t.Error("expected the panic to be logged")
	}
}

func TestRegister_Overwrites(t *testing.T) {
	log := mocks.NewLogger()
	r := registry.New(registry.WithLogger(log), registry.WithoutBuiltins())

	first := pipeline.AlgorithmFunc(func(in, out *imagebuf.Image, p1, p2 pipeline.Param) pipeline.Status {
		return pipeline.StatusInternal
	})
	r.Register(pipeline.BackendCPUParallel, pipeline.ModuleConverter, 0, first, "first")
	r.Register(pipeline.BackendCPUParallel, pipeline.ModuleConverter, 0, okAlg(), "second")

	if s := r.Process(pipeline.BackendCPUParallel, pipeline.ModuleConverter, 0, nil, newOutput(t), nil, nil); s != pipeline.StatusOK {
		t.Errorf("expected the replacement to run, got %v", s)
	}
	fn, ok := r.Lookup(pipeline.BackendCPUParallel, pipeline.ModuleConverter, 0)
	if !ok || fn.Name != "second" {
		t.Errorf("expected entry named second, got %+v", fn)
	}
	if !log.Contains(ports.LevelDebug, "Replacing") {
		t.Error("expected a debug message for the replacement")
	}
}

func TestRegister_InvalidKey(t *testing.T) {
	r := registry.New(registry.WithoutBuiltins())
	if s := r.Register(pipeline.BackendCount, pipeline.ModuleConverter, 0, okAlg(), "x"); s != pipeline.StatusInvalidBackend {
		t.Errorf("expected InvalidBackend, got %v", s)
	}
	if s := r.Register(pipeline.BackendCPUSerial, -1, 0, okAlg(), "x"); s != pipeline.StatusInvalidModule {
		t.Errorf("expected InvalidModule, got %v", s)
	}
}

func TestAlgorithmList_Sorted(t *testing.T) {
	r := registry.New(registry.WithoutBuiltins())
	for _, i := range []int{5, 1, 3, 0} {
		r.Register(pipeline.BackendGPUCUDA, pipeline.ModuleUserCustom, i, okAlg(), "alg")
	}

	list := r.AlgorithmList(pipeline.BackendGPUCUDA, pipeline.ModuleUserCustom)
	want := []int{0, 1, 3, 5}
	if len(list) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(list))
	}
	for i, info := range list {
		if info.Index != want[i] {
			t.Errorf("position %d: expected index %d, got %d", i, want[i], info.Index)
		}
	}

	if r.AlgorithmList(pipeline.BackendCount, pipeline.ModuleConverter) != nil {
		t.Error("expected nil list for invalid backend")
	}
}

func TestBuiltins(t *testing.T) {
	r := registry.New()

	list := r.AlgorithmList(pipeline.BackendCPUSerial, pipeline.ModuleConverter)
	if len(list) != len(converter.Entries()) {
		t.Fatalf("expected %d converters, got %d", len(converter.Entries()), len(list))
	}
	if list[0].Index != converter.YUV422ToRGB888 || list[0].Name != "YUV422 to RGB888" {
		t.Errorf("unexpected first converter %+v", list[0])
	}
	if len(r.AlgorithmList(pipeline.BackendCPUSerial, pipeline.ModuleScaler)) != 4 {
		t.Error("expected 4 scalers")
	}
	if len(r.AlgorithmList(pipeline.BackendCPUSerial, pipeline.ModuleSplitter)) != 3 {
		t.Error("expected 3 splitters")
	}
	if len(r.AlgorithmList(pipeline.BackendCPUParallel, pipeline.ModuleConverter)) != 0 {
		t.Error("expected built-ins on the serial backend only")
	}
}

func TestPluginMerge(t *testing.T) {
	src := mocks.NewPluginSource(
		pipeline.AlgEntry{Index: 2, Func: pipeline.FunctionEntry{Algorithm: okAlg(), Name: "denoise"}},
		pipeline.AlgEntry{Index: 0, Func: pipeline.FunctionEntry{Algorithm: okAlg(), Name: "sharpen"}},
	)
	r := registry.New(registry.WithPlugins(src))

	list := r.AlgorithmList(pipeline.BackendCPUSerial, pipeline.ModuleUserCustom)
	if len(list) != 2 || list[0].Name != "sharpen" || list[1].Name != "denoise" {
		t.Fatalf("unexpected user list %+v", list)
	}
	if s := r.Process(pipeline.BackendCPUSerial, pipeline.ModuleUserCustom, 2, nil, newOutput(t), nil, nil); s != pipeline.StatusOK {
		t.Errorf("expected OK, got %v", s)
	}
}

func TestPluginFailureIsTolerated(t *testing.T) {
	src := mocks.NewPluginSource()
	src.LoadOnceFunc = func() error { return plugin.ErrNotFound }
	r := registry.New(registry.WithPlugins(src))

	if got := r.AlgorithmList(pipeline.BackendCPUSerial, pipeline.ModuleUserCustom); len(got) != 0 {
		t.Errorf("expected empty user bucket, got %+v", got)
	}
	if len(r.AlgorithmList(pipeline.BackendCPUSerial, pipeline.ModuleConverter)) == 0 {
		t.Error("built-ins must survive a plugin failure")
	}
}

func TestConcurrentFirstUse(t *testing.T) {
	src := mocks.NewPluginSource(
		pipeline.AlgEntry{Index: 0, Func: pipeline.FunctionEntry{Algorithm: okAlg(), Name: "user"}},
	)
	r := registry.New(registry.WithPlugins(src))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, _ := imagebuf.New(2, 2, imagebuf.FormatGray8)
			if s := r.Process(pipeline.BackendCPUSerial, pipeline.ModuleUserCustom, 0, nil, out, nil, nil); s != pipeline.StatusOK {
				t.Errorf("expected OK, got %v", s)
			}
		}()
	}
	wg.Wait()

	if src.LoadCalls != 1 {
		t.Errorf("expected plugin to load once, got %d", src.LoadCalls)
	}
}

func TestConcurrentRegisterAndProcess(t *testing.T) {
	r := registry.New()
	out := newOutput(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.Register(pipeline.BackendCPUParallel, pipeline.ModuleUserCustom, i, okAlg(), "alg")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s := r.Process(pipeline.BackendCPUParallel, pipeline.ModuleUserCustom, i, nil, out, nil, nil)
			if s != pipeline.StatusOK && s != pipeline.StatusAlgNotFound {
				t.Errorf("unexpected status %v", s)
			}
		}
	}()
	wg.Wait()

	if got := len(r.AlgorithmList(pipeline.BackendCPUParallel, pipeline.ModuleUserCustom)); got != 200 {
		t.Errorf("expected 200 entries, got %d", got)
	}
}

func TestClose(t *testing.T) {
	src := mocks.NewPluginSource(
		pipeline.AlgEntry{Index: 0, Func: pipeline.FunctionEntry{Algorithm: okAlg(), Name: "user"}},
	)
	r := registry.New(registry.WithPlugins(src))

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if src.UnloadCalls != 1 {
		t.Errorf("expected 1 unload, got %d", src.UnloadCalls)
	}
	if s := r.Process(pipeline.BackendCPUSerial, pipeline.ModuleUserCustom, 0, nil, newOutput(t), nil, nil); s != pipeline.StatusAlgNotFound {
		t.Errorf("expected user bucket cleared, got %v", s)
	}
	if len(r.AlgorithmList(pipeline.BackendCPUSerial, pipeline.ModuleConverter)) == 0 {
		t.Error("built-ins must remain after Close")
	}

	src.UnloadFunc = func() error { return errors.New("busy") }
	if err := r.Close(); err == nil {
		t.Error("expected unload error to be returned")
	}
}

func TestDefault(t *testing.T) {
	if registry.Default() != registry.Default() {
		t.Error("Default must return the same registry")
	}
}
