package summarizer

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/framepipe/pkg/mocks"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder(t *testing.T) {
	summary := NewBuilder().
		WithRunID("abc").
		WithInput(InputInfo{ConfigPath: "pipeline.yaml", Files: 2, Frames: 10}).
		WithPipeline(PipelineInfo{Ingested: 10, Processed: 9, Dropped: 1}).
		AddStage(StageInfo{Index: 0, OK: 9}).
		AddStage(StageInfo{Index: 1, Failed: 9}).
		AddOutput("out/sheet.png").
		Build()

	if summary.RunID != "abc" {
		t.Errorf("expected run id 'abc', got '%s'", summary.RunID)
	}
	if summary.Input.Frames != 10 || summary.Pipeline.Dropped != 1 {
		t.Errorf("unexpected counters %+v %+v", summary.Input, summary.Pipeline)
	}
	if len(summary.Stages) != 2 || summary.Stages[1].Failed != 9 {
		t.Errorf("unexpected stages %+v", summary.Stages)
	}
	if len(summary.Outputs) != 1 {
		t.Errorf("expected 1 output, got %d", len(summary.Outputs))
	}
}

func TestMarkdownFormatter_Format(t *testing.T) {
	summary := &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		RunID:       "run-42",
		Input:       InputInfo{ConfigPath: "pipeline.yaml", Files: 1, Frames: 20},
		Pipeline: PipelineInfo{
			Ingested:  20,
			Processed: 18,
			Dropped:   2,
			Duration:  2 * time.Second,
		},
		Stages: []StageInfo{
			{Index: 0, Backend: "CPU_Serial", Module: "Converter", Algorithm: 0, Name: "YUV422 to RGB888", OK: 18, Last: "OK"},
			{Index: 1, Backend: "CPU_Serial", Module: "Scaler", Algorithm: 3, OK: 0, Failed: 18, Last: "InvalidSize"},
		},
		Outputs: []string{"out/sheet.png"},
	}

	result := NewMarkdownFormatter().Format(summary)

	checks := []string{
		"# Pipeline Run Summary",
		"2024-01-15T10:30:00Z",
		"`run-42`",
		"| Config | pipeline.yaml |",
		"| User plugin | N/A |",
		"| Frames | 20 |",
		"| Processed | 18 |",
		"| Dropped | 2 |",
		"| Duration | 2.00 s |",
		"| Throughput | 9.0 frames/s |",
		"| 0 | CPU_Serial/Converter/0 YUV422 to RGB888 | 18 | 0 | OK |",
		"| 1 | CPU_Serial/Scaler/3 | 0 | 18 | InvalidSize |",
		"- out/sheet.png",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
}

func TestMarkdownFormatter_OmitsEmptySections(t *testing.T) {
	result := NewMarkdownFormatter().Format(&Summary{Pipeline: PipelineInfo{Duration: 250 * time.Millisecond}})

	for _, absent := range []string{"## Stages", "## Outputs", "Throughput", "Run:"} {
		if strings.Contains(result, absent) {
			t.Errorf("expected output not to contain %q", absent)
		}
	}
	if !strings.Contains(result, "250 ms") {
		t.Error("expected sub-second duration in milliseconds")
	}
}

func TestFormatFunc(t *testing.T) {
	var f Formatter = FormatFunc(func(s *Summary) string { return "run " + s.RunID })
	if got := f.Format(&Summary{RunID: "x"}); got != "run x" {
		t.Errorf("unexpected %q", got)
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(*Summary) string { return "content" }), fs)

	path := filepath.Join("out", "nested", "summary.md")
	if err := w.Write(path, NewSummary()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, ok := fs.GetFile(path)
	if !ok || string(data) != "content" {
		t.Errorf("expected file with content, got %q", data)
	}
	if exists, _ := fs.Exists(filepath.Dir(path)); !exists {
		t.Error("expected parent directory to be created")
	}
}

func TestWriter_Errors(t *testing.T) {
	boom := errors.New("boom")

	fs := mocks.NewFileSystem()
	fs.MkdirAllFunc = func(string) error { return boom }
	w := NewWriter(NewMarkdownFormatter(), fs)
	if err := w.Write(filepath.Join("dir", "s.md"), NewSummary()); !errors.Is(err, boom) {
		t.Errorf("expected mkdir error, got %v", err)
	}

	fs = mocks.NewFileSystem()
	fs.WriteFileFunc = func(string, []byte) error { return boom }
	w = NewWriter(NewMarkdownFormatter(), fs)
	if err := w.Write("s.md", NewSummary()); !errors.Is(err, boom) {
		t.Errorf("expected write error, got %v", err)
	}
}
