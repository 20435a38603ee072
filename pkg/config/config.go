// Package config provides configuration loading and management.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/user/framepipe/pkg/imagebuf"
	"github.com/user/framepipe/pkg/pipeline"
	"github.com/user/framepipe/pkg/ports"
)

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel  = "FRAMEPIPE_LOG_LEVEL"
	EnvPluginDir = "FRAMEPIPE_PLUGIN_DIR"
	EnvOutputDir = "FRAMEPIPE_OUTPUT_DIR"
	EnvWSAddr    = "FRAMEPIPE_WS_ADDR"
	EnvCameraID  = "FRAMEPIPE_CAMERA_ID"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the full configuration of a pipeline run.
type Config struct {
	LogLevel string `yaml:"log_level"`
	CameraID uint32 `yaml:"camera_id"`

	Plugin  PluginConfig  `yaml:"plugin"`
	Stages  []StageConfig `yaml:"stages"`
	Display DisplayConfig `yaml:"display"`
}

// PluginConfig controls the user algorithm library.
type PluginConfig struct {
	Enabled bool     `yaml:"enabled"`
	Library string   `yaml:"library"` // empty uses the platform default name
	Dirs    []string `yaml:"dirs"`
}

// StageConfig describes one pipeline stage.
//
// Input is "" (stage 0 reads the frame, later stages the previous output),
// "frame" (stage 0 only) or "stage:N" (the output of stage N).
type StageConfig struct {
	Backend   string       `yaml:"backend"`
	Module    string       `yaml:"module"`
	Algorithm int          `yaml:"algorithm"`
	Input     string       `yaml:"input"`
	Output    OutputConfig `yaml:"output"`
	P1        *ParamConfig `yaml:"p1"`
	P2        *ParamConfig `yaml:"p2"`
}

// OutputConfig describes the image a stage writes into.
type OutputConfig struct {
	Width   uint32 `yaml:"width"`
	Height  uint32 `yaml:"height"`
	Format  string `yaml:"format"`
	Pattern string `yaml:"pattern"`
	Frames  int    `yaml:"frames"`
}

// ParamConfig holds exactly one of an integer, a rectangle
// [x0, y0, x1, y1] or hex-encoded bytes.
type ParamConfig struct {
	Int   *int   `yaml:"int"`
	Rect  []int  `yaml:"rect"`
	Bytes string `yaml:"bytes"`
}

// DisplayConfig selects where stage outputs go.
type DisplayConfig struct {
	OutputDir    string `yaml:"output_dir"`
	SaveTLV      bool   `yaml:"save_tlv"`
	SavePNG      bool   `yaml:"save_png"`
	ContactSheet string `yaml:"contact_sheet"`
	Columns      int    `yaml:"columns"`
	TileWidth    int    `yaml:"tile_width"`
	FontPath     string `yaml:"font_path"`
	WSAddr       string `yaml:"ws_addr"`
	WSMaxWidth   int    `yaml:"ws_max_width"`
	WSQuality    int    `yaml:"ws_quality"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Plugin: PluginConfig{
			Enabled: true,
		},
		Display: DisplayConfig{
			OutputDir:  "./out",
			Columns:    4,
			TileWidth:  240,
			WSMaxWidth: 640,
			WSQuality:  75,
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from FRAMEPIPE_* environment variables.
func (c *Config) ApplyEnv() {
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)
	c.Display.OutputDir = getEnv(EnvOutputDir, c.Display.OutputDir)
	c.Display.WSAddr = getEnv(EnvWSAddr, c.Display.WSAddr)
	if dir := os.Getenv(EnvPluginDir); dir != "" {
		c.Plugin.Dirs = append(c.Plugin.Dirs, dir)
	}
	if v := os.Getenv(EnvCameraID); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.CameraID = uint32(id)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks names, geometry, input bindings and parameters.
func (c Config) Validate() error {
	if _, ok := ports.LookupLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	for i, st := range c.Stages {
		if err := st.validate(i, len(c.Stages)); err != nil {
			return fmt.Errorf("%w: stage %d: %v", ErrInvalid, i, err)
		}
	}
	return nil
}

func (s StageConfig) validate(i, n int) error {
	if _, ok := pipeline.ParseBackend(s.Backend); !ok {
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if _, ok := pipeline.ParseModule(s.Module); !ok {
		return fmt.Errorf("unknown module %q", s.Module)
	}
	if _, err := parseInput(s.Input, i, n); err != nil {
		return err
	}
	if _, ok := imagebuf.ParseFormat(s.Output.Format); !ok {
		return fmt.Errorf("unknown output format %q", s.Output.Format)
	}
	if s.Output.Pattern != "" {
		if _, ok := imagebuf.ParsePattern(s.Output.Pattern); !ok {
			return fmt.Errorf("unknown output pattern %q", s.Output.Pattern)
		}
	}
	if s.Output.Width == 0 || s.Output.Height == 0 {
		return fmt.Errorf("output size %dx%d", s.Output.Width, s.Output.Height)
	}
	if s.Output.Frames < 0 {
		return fmt.Errorf("output frames %d", s.Output.Frames)
	}
	for name, p := range map[string]*ParamConfig{"p1": s.P1, "p2": s.P2} {
		if _, err := p.param(); err != nil {
			return fmt.Errorf("%s: %v", name, err)
		}
	}
	return nil
}

const inputAuto = -1

// parseInput returns the stage whose output stage i reads, or inputAuto.
func parseInput(s string, i, n int) (int, error) {
	switch {
	case s == "":
		return inputAuto, nil
	case s == "frame":
		if i != 0 {
			return 0, fmt.Errorf("input %q is only valid for stage 0", s)
		}
		return inputAuto, nil
	case strings.HasPrefix(s, "stage:"):
		src, err := strconv.Atoi(strings.TrimPrefix(s, "stage:"))
		if err != nil || src < 0 || src >= n || src == i {
			return 0, fmt.Errorf("input %q does not name another stage", s)
		}
		return src, nil
	}
	return 0, fmt.Errorf("input %q", s)
}

func (p *ParamConfig) param() (pipeline.Param, error) {
	if p == nil {
		return nil, nil
	}
	set := 0
	if p.Int != nil {
		set++
	}
	if p.Rect != nil {
		set++
	}
	if p.Bytes != "" {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of int, rect or bytes must be set")
	}

	switch {
	case p.Int != nil:
		return pipeline.IntParam(*p.Int), nil
	case p.Rect != nil:
		if len(p.Rect) != 4 {
			return nil, fmt.Errorf("rect needs 4 values, got %d", len(p.Rect))
		}
		return pipeline.RectParam(image.Rect(p.Rect[0], p.Rect[1], p.Rect[2], p.Rect[3])), nil
	default:
		b, err := hex.DecodeString(p.Bytes)
		if err != nil {
			return nil, fmt.Errorf("bytes: %w", err)
		}
		return pipeline.BytesParam(b), nil
	}
}

// BuildStages validates the configuration and allocates the output image
// of every stage, returning specs ready for the pipeline manager.
func (c Config) BuildStages() ([]pipeline.StageSpec, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	specs := make([]pipeline.StageSpec, len(c.Stages))
	for i, st := range c.Stages {
		backend, _ := pipeline.ParseBackend(st.Backend)
		module, _ := pipeline.ParseModule(st.Module)
		format, _ := imagebuf.ParseFormat(st.Output.Format)

		opts := []imagebuf.Option{imagebuf.WithCameraID(c.CameraID)}
		if st.Output.Frames > 0 {
			opts = append(opts, imagebuf.WithFrameCount(st.Output.Frames))
		}
		if st.Output.Pattern != "" {
			p, _ := imagebuf.ParsePattern(st.Output.Pattern)
			opts = append(opts, imagebuf.WithPattern(p))
		}
		out, err := imagebuf.New(st.Output.Width, st.Output.Height, format, opts...)
		if err != nil {
			return nil, fmt.Errorf("stage %d output: %w", i, err)
		}

		p1, _ := st.P1.param()
		p2, _ := st.P2.param()
		specs[i] = pipeline.StageSpec{
			Backend:   backend,
			Module:    module,
			Algorithm: st.Algorithm,
			Output:    out,
			P1:        p1,
			P2:        p2,
		}
	}

	// bind explicit inputs once every output exists
	for i, st := range c.Stages {
		if src, _ := parseInput(st.Input, i, len(c.Stages)); src != inputAuto {
			specs[i].Input = specs[src].Output
		}
	}
	return specs, nil
}
