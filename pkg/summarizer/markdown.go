package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Pipeline Run Summary\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", s.GeneratedAt.Format(time.RFC3339))
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run: `%s`\n", s.RunID)
	}

	b.WriteString("\n## Input\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Config | %s |\n", orNA(s.Input.ConfigPath))
	fmt.Fprintf(&b, "| User plugin | %s |\n", orNA(s.Input.PluginPath))
	fmt.Fprintf(&b, "| Files | %d |\n", s.Input.Files)
	fmt.Fprintf(&b, "| Frames | %d |\n", s.Input.Frames)

	b.WriteString("\n## Pipeline\n\n")
	b.WriteString("| Item | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Ingested | %d |\n", s.Pipeline.Ingested)
	fmt.Fprintf(&b, "| Processed | %d |\n", s.Pipeline.Processed)
	fmt.Fprintf(&b, "| Dropped | %d |\n", s.Pipeline.Dropped)
	fmt.Fprintf(&b, "| Duration | %s |\n", formatDuration(s.Pipeline.Duration))
	if s.Pipeline.Processed > 0 && s.Pipeline.Duration > 0 {
		fps := float64(s.Pipeline.Processed) / s.Pipeline.Duration.Seconds()
		fmt.Fprintf(&b, "| Throughput | %.1f frames/s |\n", fps)
	}

	if len(s.Stages) > 0 {
		b.WriteString("\n## Stages\n\n")
		b.WriteString("| # | Algorithm | OK | Failed | Last status |\n|---|---|---|---|---|\n")
		for _, st := range s.Stages {
			name := fmt.Sprintf("%s/%s/%d", st.Backend, st.Module, st.Algorithm)
			if st.Name != "" {
				name += " " + st.Name
			}
			fmt.Fprintf(&b, "| %d | %s | %d | %d | %s |\n", st.Index, name, st.OK, st.Failed, orNA(st.Last))
		}
	}

	if len(s.Outputs) > 0 {
		b.WriteString("\n## Outputs\n\n")
		for _, p := range s.Outputs {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2f s", d.Seconds())
}

var _ Formatter = (*MarkdownFormatter)(nil)
