package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.yaml.in/yaml/v3"
)

// Output modes accepted by NewPrinter.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	skipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Printer handles all display output for the CLI.
type Printer struct {
	Mode    string
	Verbose bool
	Writer  io.Writer
}

// NewPrinter creates a Printer writing to stdout. Unknown modes fall back
// to text.
func NewPrinter(mode string, verbose bool) *Printer {
	switch mode {
	case OutputJSON, OutputYAML:
	default:
		mode = OutputText
	}
	return &Printer{Mode: mode, Verbose: verbose, Writer: os.Stdout}
}

func (p *Printer) structured(v any) error {
	switch p.Mode {
	case OutputJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, err = fmt.Fprintln(p.Writer, string(b))
		return err
	case OutputYAML:
		enc := yaml.NewEncoder(p.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("printer mode %q is not structured", p.Mode)
}

// ─── Metadata ────────────────────────────────────────────────────────────────

// PrintMetadata renders a Metadata struct to the configured output.
func (p *Printer) PrintMetadata(m *Metadata) error {
	if p.Mode != OutputText {
		return p.structured(m)
	}
	p.printText(m)
	return nil
}

func (p *Printer) printText(m *Metadata) {
	fmt.Fprintf(p.Writer, "File  : %s\n", m.FilePath)
	fmt.Fprintf(p.Writer, "Format: %s\n", m.Format)
	if len(m.Fields) == 0 {
		fmt.Fprintln(p.Writer, okStyle.Render("(no metadata found)"))
		fmt.Fprintln(p.Writer)
		return
	}
	fmt.Fprintln(p.Writer)

	// Group by category
	groups := make(map[string][]MetaField)
	order := []string{}
	seen := map[string]bool{}
	for _, f := range m.Fields {
		if !seen[f.Category] {
			seen[f.Category] = true
			order = append(order, f.Category)
		}
		groups[f.Category] = append(groups[f.Category], f)
	}

	for _, cat := range order {
		fmt.Fprintln(p.Writer, titleStyle.Render("── "+cat+" ──"))
		for _, f := range groups[cat] {
			fmt.Fprintf(p.Writer, "  %-30s %s\n", f.Key+":", f.Value)
		}
		fmt.Fprintln(p.Writer)
	}
}

// ─── Batch results ───────────────────────────────────────────────────────────

type resultView struct {
	File       string `json:"file" yaml:"file"`
	Output     string `json:"output,omitempty" yaml:"output,omitempty"`
	Format     string `json:"format" yaml:"format"`
	Status     string `json:"status" yaml:"status"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

type summaryView struct {
	RunID       string       `json:"run_id" yaml:"run_id"`
	DryRun      bool         `json:"dry_run" yaml:"dry_run"`
	Total       int          `json:"total" yaml:"total"`
	Cleaned     int          `json:"cleaned" yaml:"cleaned"`
	Planned     int          `json:"planned,omitempty" yaml:"planned,omitempty"`
	Failed      int          `json:"failed" yaml:"failed"`
	Unsupported int          `json:"unsupported" yaml:"unsupported"`
	Skipped     int          `json:"skipped" yaml:"skipped"`
	ElapsedMS   int64        `json:"elapsed_ms" yaml:"elapsed_ms"`
	Results     []resultView `json:"results" yaml:"results"`
}

func viewOf(r Result) resultView {
	out := ""
	if r.OutPath != r.Path {
		out = r.OutPath
	}
	return resultView{
		File:       r.Path,
		Output:     out,
		Format:     string(r.Format),
		Status:     string(r.Status),
		Error:      r.Error(),
		DurationMS: r.Duration.Milliseconds(),
	}
}

// PrintResult prints one line for a finished file. Structured modes print
// nothing per file; the summary carries every result.
func (p *Printer) PrintResult(r Result) {
	if p.Mode != OutputText {
		return
	}
	switch r.Status {
	case StatusCleaned:
		line := okStyle.Render("✓") + " " + r.Path
		if r.OutPath != "" && r.OutPath != r.Path {
			line += dimStyle.Render(" → " + r.OutPath)
		}
		if p.Verbose {
			line += dimStyle.Render(fmt.Sprintf(" (%s, %s)", r.Format, r.Duration.Round(time.Millisecond)))
		}
		fmt.Fprintln(p.Writer, line)
	case StatusPlanned:
		fmt.Fprintln(p.Writer, skipStyle.Render("~")+" "+r.Path+dimStyle.Render(" (dry-run, "+string(r.Format)+")"))
	case StatusUnsupported:
		fmt.Fprintln(p.Writer, skipStyle.Render("-")+" "+r.Path+dimStyle.Render(": "+r.Error()))
	case StatusSkipped:
		fmt.Fprintln(p.Writer, skipStyle.Render("-")+" "+r.Path+dimStyle.Render(" (skipped: "+r.Error()+")"))
	case StatusFailed:
		fmt.Fprintln(p.Writer, failStyle.Render("✗")+" "+r.Path+": "+r.Error())
	}
}

// PrintSummary prints the batch totals, or the full run in structured modes.
func (p *Printer) PrintSummary(s *Summary) error {
	if p.Mode != OutputText {
		v := summaryView{
			RunID:       s.RunID,
			DryRun:      s.DryRun,
			Total:       s.Total(),
			Cleaned:     s.Count(StatusCleaned),
			Planned:     s.Count(StatusPlanned),
			Failed:      s.Count(StatusFailed),
			Unsupported: s.Count(StatusUnsupported),
			Skipped:     s.Count(StatusSkipped),
			ElapsedMS:   s.Elapsed().Milliseconds(),
			Results:     make([]resultView, 0, len(s.Results)),
		}
		for _, r := range s.Results {
			v.Results = append(v.Results, viewOf(r))
		}
		return p.structured(v)
	}

	line := fmt.Sprintf("\n%d file(s): %d cleaned, %d failed, %d unsupported, %d skipped",
		s.Total(), s.Count(StatusCleaned), s.Count(StatusFailed),
		s.Count(StatusUnsupported), s.Count(StatusSkipped))
	if s.DryRun {
		line = fmt.Sprintf("\n%d file(s): %d would be cleaned, %d failed, %d unsupported (dry-run)",
			s.Total(), s.Count(StatusPlanned), s.Count(StatusFailed), s.Count(StatusUnsupported))
	}
	if p.Verbose {
		line += dimStyle.Render(fmt.Sprintf(" in %s", s.Elapsed().Round(time.Millisecond)))
	}
	_, err := fmt.Fprintln(p.Writer, line)
	return err
}

// PrintFormats lists handler capabilities.
func (p *Printer) PrintFormats(infos []FormatInfo) error {
	if p.Mode != OutputText {
		return p.structured(infos)
	}
	current := ""
	for _, info := range infos {
		if info.MediaType != current {
			current = info.MediaType
			fmt.Fprintln(p.Writer, titleStyle.Render("── "+current+" ──"))
		}
		notes := info.Notes
		if !info.CanStrip {
			notes = "view only. " + notes
		}
		fmt.Fprintf(p.Writer, "  %-14s %-34s %s\n", info.Name, strings.Join(info.Extensions, " "), dimStyle.Render(notes))
	}
	return nil
}

// PrintTable renders rows as a table in text mode and v in structured modes.
func (p *Printer) PrintTable(headers []string, rows [][]string, v any) error {
	if p.Mode != OutputText {
		return p.structured(v)
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.Writer, dimStyle.Render("(nothing recorded)"))
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(p.Writer, t.Render())
	return err
}

// PrintInfo prints an info line (suppressed in structured modes).
func (p *Printer) PrintInfo(msg string) {
	if p.Mode == OutputText {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, failStyle.Render("✗ Error: ")+msg)
}
