// package formatter renders a project's stanza timeline for previewing (plain text, Markdown, CSV, SRT, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/lenavs/internal/models"
	"github.com/desertthunder/lenavs/internal/shared"
)

// Formats lists the accepted format names in display order.
var Formats = []string{"text", "markdown", "csv", "srt", "json"}

var extensions = map[string]string{
	"text":     "txt",
	"markdown": "md",
	"csv":      "csv",
	"srt":      "srt",
	"json":     "json",
}

// NormalizeFormat resolves aliases (txt, md) to a format name.
func NormalizeFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "text", "txt":
		return "text", nil
	case "markdown", "md":
		return "markdown", nil
	case "csv", "srt", "json":
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// Render converts the project into the named format.
func Render(p *models.Project, format string) ([]byte, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case "markdown":
		return ToMarkdown(p)
	case "csv":
		return ToCSV(p.Stanzas)
	case "srt":
		return ToSRT(p.Stanzas)
	case "json":
		return json.MarshalIndent(p.Stanzas, "", "  ")
	default:
		return ToText(p)
	}
}

// ToText renders one line per stanza: index, time range and the first line of text.
func ToText(p *models.Project) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Project: %s\n", p.Name))
	buf.WriteString(fmt.Sprintf("Audio: %s | Format: %s | Background: %s\n", p.AudioType, p.VideoFormat, background(p)))
	buf.WriteString(fmt.Sprintf("Stanzas: %d\n\n", len(p.Stanzas)))

	for _, s := range p.Stanzas {
		buf.WriteString(fmt.Sprintf("%3d. [%s - %s] %s\n", s.ID, s.StartTime, s.EndTime, firstLine(s.Text)))
	}
	return buf.Bytes(), nil
}

// ToMarkdown renders a heading with project settings and a timeline table.
func ToMarkdown(p *models.Project) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Name))
	buf.WriteString(fmt.Sprintf("**Audio**: %s\n", p.AudioType))
	buf.WriteString(fmt.Sprintf("**Format**: %s\n", p.VideoFormat))
	buf.WriteString(fmt.Sprintf("**Background**: %s\n\n", background(p)))

	buf.WriteString("## Stanzas\n\n")
	if len(p.Stanzas) == 0 {
		buf.WriteString("_No stanzas yet._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Start | End | Text | Style |\n")
	buf.WriteString("|---|-------|-----|------|-------|\n")
	for _, s := range p.Stanzas {
		text := strings.ReplaceAll(strings.TrimSpace(s.Text), "\n", "<br>")
		text = strings.ReplaceAll(text, "|", `\|`)
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n", s.ID, s.StartTime, s.EndTime, text, style(s)))
	}
	return buf.Bytes(), nil
}

// ToCSV converts stanzas to CSV with columns: ID, Start, End, Text, Font, Size, Color, Outline, Transition, Alignment
func ToCSV(stanzas []models.Stanza) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Start", "End", "Text", "Font", "Size", "Color", "Outline", "Transition", "Alignment"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range stanzas {
		record := []string{
			strconv.Itoa(s.ID),
			s.StartTime,
			s.EndTime,
			s.Text,
			s.FontFamily,
			strconv.Itoa(s.FontSize),
			s.Color,
			s.OutlineColor,
			s.Transition,
			s.Alignment,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ToSRT renders stanzas as SubRip cues, numbered from 1 in timeline order.
//
// Stanzas with unparsable timestamps are an error; untimed stanzas (00:00 - 00:00) are skipped.
func ToSRT(stanzas []models.Stanza) ([]byte, error) {
	var buf bytes.Buffer

	cue := 0
	for _, s := range stanzas {
		start, end, err := s.Bounds()
		if err != nil {
			return nil, err
		}
		if start == 0 && end == 0 {
			continue
		}

		cue++
		if cue > 1 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("%d\n", cue))
		buf.WriteString(fmt.Sprintf("%s --> %s\n", shared.FormatSRTTimestamp(start), shared.FormatSRTTimestamp(end)))
		buf.WriteString(strings.TrimSpace(s.Text) + "\n")
	}
	return buf.Bytes(), nil
}

// WriteExport renders p and writes it to path.
//
// Defaults to {project name}.{ext} in the working directory.
func WriteExport(p *models.Project, format, path string) (string, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return "", err
	}

	data, err := Render(p, f)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if path == "" {
		path = fmt.Sprintf("%s.%s", safeName(p.Name), extensions[f])
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}

func background(p *models.Project) string {
	kind, path := p.Media.Background()
	if kind == "color" {
		return fmt.Sprintf("color %s", p.BackgroundColor)
	}
	return fmt.Sprintf("%s %s", kind, path)
}

func style(s models.Stanza) string {
	parts := []string{fmt.Sprintf("%s %dpx", s.FontFamily, s.FontSize), s.Color}
	if s.Bold {
		parts = append(parts, "bold")
	}
	if s.Italic {
		parts = append(parts, "italic")
	}
	if s.Underline {
		parts = append(parts, "underline")
	}
	parts = append(parts, s.Alignment, fmt.Sprintf("%s %.1fs", s.Transition, s.TransitionDuration))
	return strings.Join(parts, ", ")
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i] + " …"
	}
	return text
}

func safeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "project"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
