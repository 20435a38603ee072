package config

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
)

const sampleYAML = `
log_level: debug
camera_id: 2
plugin:
  enabled: false
  dirs: [/opt/framepipe]
stages:
  - backend: CPU_Serial
    module: Converter
    algorithm: 0
    output: {width: 8, height: 4, format: RGB888}
  - backend: cpu_serial
    module: splitter
    algorithm: 2
    output: {width: 4, height: 2, format: RGB888}
    p1: {rect: [2, 1, 6, 3]}
  - backend: CPU_Serial
    module: Converter
    algorithm: 4
    input: stage:0
    output: {width: 8, height: 4, format: Gray8, frames: 2}
display:
  save_png: true
  ws_addr: ":8080"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.LogLevel != "info" || !cfg.Plugin.Enabled || cfg.Display.OutputDir != "./out" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeFile(t, "pipeline.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.CameraID != 2 || cfg.Plugin.Enabled {
		t.Errorf("unexpected header fields %+v", cfg)
	}
	if len(cfg.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(cfg.Stages))
	}
	if cfg.Stages[2].Input != "stage:0" || cfg.Stages[2].Output.Frames != 2 {
		t.Errorf("unexpected stage 2 %+v", cfg.Stages[2])
	}
	// defaults survive for unset keys
	if cfg.Display.OutputDir != "./out" || cfg.Display.Columns != 4 || !cfg.Display.SavePNG {
		t.Errorf("unexpected display %+v", cfg.Display)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFromFile(writeFile(t, "bad.yaml", "stages: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestBuildStages(t *testing.T) {
	cfg, err := LoadFromFile(writeFile(t, "pipeline.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	specs, err := cfg.BuildStages()
	if err != nil {
		t.Fatalf("BuildStages failed: %v", err)
	}

	if specs[0].Backend != pipeline.BackendCPUSerial || specs[0].Module != pipeline.ModuleConverter {
		t.Errorf("unexpected key for stage 0: %s/%s", specs[0].Backend, specs[0].Module)
	}
	if specs[0].Input != nil || specs[1].Input != nil {
		t.Error("stages without input binding should be automatic")
	}
	if specs[2].Input != specs[0].Output {
		t.Error("stage 2 should read stage 0 output")
	}
	if specs[1].Module != pipeline.ModuleSplitter {
		t.Errorf("expected case-insensitive module name, got %s", specs[1].Module)
	}
	if r, ok := pipeline.RectValue(specs[1].P1); !ok || r != image.Rect(2, 1, 6, 3) {
		t.Errorf("unexpected p1 %v", specs[1].P1)
	}

	out := specs[2].Output
	if out.Format != imagebuf.FormatGray8 || out.FrameCount() != 2 || out.CameraID != 2 || !out.HasBuffer() {
		t.Errorf("unexpected output image %s", out)
	}
}

func TestValidate(t *testing.T) {
	valid := func() StageConfig {
		return StageConfig{
			Backend: "CPU_Serial",
			Module:  "Scaler",
			Output:  OutputConfig{Width: 2, Height: 2, Format: "Gray8"},
		}
	}
	one := 1

	tests := []struct {
		name   string
		mutate func(*StageConfig)
	}{
		{"unknown backend", func(s *StageConfig) { s.Backend = "TPU" }},
		{"unknown module", func(s *StageConfig) { s.Module = "Blender" }},
		{"unknown format", func(s *StageConfig) { s.Output.Format = "CMYK" }},
		{"unknown pattern", func(s *StageConfig) { s.Output.Pattern = "XYZW" }},
		{"zero width", func(s *StageConfig) { s.Output.Width = 0 }},
		{"negative frames", func(s *StageConfig) { s.Output.Frames = -1 }},
		{"self input", func(s *StageConfig) { s.Input = "stage:1" }},
		{"input out of range", func(s *StageConfig) { s.Input = "stage:5" }},
		{"frame input after stage 0", func(s *StageConfig) { s.Input = "frame" }},
		{"bad input", func(s *StageConfig) { s.Input = "camera" }},
		{"two param kinds", func(s *StageConfig) { s.P1 = &ParamConfig{Int: &one, Bytes: "00"} }},
		{"short rect", func(s *StageConfig) { s.P2 = &ParamConfig{Rect: []int{1, 2}} }},
		{"bad hex", func(s *StageConfig) { s.P1 = &ParamConfig{Bytes: "zz"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			second := valid()
			tt.mutate(&second)
			cfg.Stages = []StageConfig{valid(), second}
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	t.Run("bad log level", func(t *testing.T) {
		cfg := Defaults()
		cfg.LogLevel = "verbose"
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("expected ErrInvalid, got %v", err)
		}
	})

	t.Run("valid params", func(t *testing.T) {
		cfg := Defaults()
		st := valid()
		st.Input = "frame"
		st.P1 = &ParamConfig{Int: &one}
		st.P2 = &ParamConfig{Bytes: "cafe"}
		cfg.Stages = []StageConfig{st}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid, got %v", err)
		}
	})
}

func TestParamConversion(t *testing.T) {
	seven := 7
	p, err := (&ParamConfig{Int: &seven}).param()
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := pipeline.IntValue(p); !ok || v != 7 {
		t.Errorf("expected IntParam 7, got %v", p)
	}

	p, err = (&ParamConfig{Bytes: "0aff"}).param()
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := p.(pipeline.BytesParam); !ok || len(b) != 2 || b[1] != 0xff {
		t.Errorf("unexpected bytes %v", p)
	}

	var nilParam *ParamConfig
	if p, err := nilParam.param(); p != nil || err != nil {
		t.Errorf("expected nil param, got %v, %v", p, err)
	}
}

func TestLoadEnvAndApply(t *testing.T) {
	path := writeFile(t, ".env", "FRAMEPIPE_OUTPUT_DIR=/tmp/frames\nFRAMEPIPE_CAMERA_ID=7\n")
	t.Setenv(EnvOutputDir, "")
	t.Setenv(EnvCameraID, "")
	os.Unsetenv(EnvOutputDir)
	os.Unsetenv(EnvCameraID)
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvPluginDir, "/plugins")
	t.Setenv(EnvWSAddr, "")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	cfg := Defaults()
	cfg.ApplyEnv()

	if cfg.Display.OutputDir != "/tmp/frames" {
		t.Errorf("expected output dir from .env, got %q", cfg.Display.OutputDir)
	}
	if cfg.CameraID != 7 {
		t.Errorf("expected camera 7, got %d", cfg.CameraID)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log level from environment, got %q", cfg.LogLevel)
	}
	if len(cfg.Plugin.Dirs) != 1 || cfg.Plugin.Dirs[0] != "/plugins" {
		t.Errorf("expected plugin dir appended, got %v", cfg.Plugin.Dirs)
	}
	if cfg.Display.WSAddr != "" {
		t.Errorf("empty variable should not override, got %q", cfg.Display.WSAddr)
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}
