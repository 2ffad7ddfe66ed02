// Package display renders query results for terminal and tool consumers.
package display

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/standardbeagle/reflens/internal/symbols"
	"github.com/standardbeagle/reflens/internal/types"
)

// FormatterOptions controls rendering.
type FormatterOptions struct {
	Format      string // "text", "json", "compact"
	ShowSnippet bool
}

// UsageFormatter renders usage lists grouped by file.
type UsageFormatter struct {
	options FormatterOptions
}

func NewUsageFormatter(options FormatterOptions) *UsageFormatter {
	return &UsageFormatter{options: options}
}

// Format renders usages in the configured format. Input order is preserved;
// the funnel already emits lexicographic path order, so grouping by file is
// a matter of detecting path changes.
func (uf *UsageFormatter) Format(usages []types.Usage, diags []error) string {
	switch uf.options.Format {
	case "json":
		return uf.formatJSON(usages, diags)
	case "compact":
		return uf.formatCompact(usages)
	default:
		return uf.formatText(usages, diags)
	}
}

func (uf *UsageFormatter) formatText(usages []types.Usage, diags []error) string {
	var sb strings.Builder
	if len(usages) == 0 {
		sb.WriteString("No usages found\n")
	}

	lastPath := ""
	for _, u := range usages {
		if u.Path != lastPath {
			if lastPath != "" {
				sb.WriteString("\n")
			}
			sb.WriteString(u.Path + "\n")
			lastPath = u.Path
		}
		marker := ""
		if u.IsDeclaration {
			marker = " (declaration)"
		}
		if uf.options.ShowSnippet {
			sb.WriteString(fmt.Sprintf("  %d:%d%s  %s\n", u.Line, u.Column, marker, u.Snippet))
		} else {
			sb.WriteString(fmt.Sprintf("  %d:%d%s\n", u.Line, u.Column, marker))
		}
	}

	for _, d := range diags {
		sb.WriteString(fmt.Sprintf("warning: %v\n", d))
	}
	return sb.String()
}

func (uf *UsageFormatter) formatCompact(usages []types.Usage) string {
	var sb strings.Builder
	for _, u := range usages {
		sb.WriteString(fmt.Sprintf("%s:%d:%d\n", u.Path, u.Line, u.Column))
	}
	return sb.String()
}

type usageJSON struct {
	Path          string `json:"path"`
	Line          int    `json:"line"`
	Column        int    `json:"column"`
	Offset        uint32 `json:"offset"`
	Snippet       string `json:"snippet,omitempty"`
	Container     string `json:"container,omitempty"`
	IsDeclaration bool   `json:"is_declaration,omitempty"`
}

type usagesJSON struct {
	Usages   []usageJSON `json:"usages"`
	Warnings []string    `json:"warnings,omitempty"`
}

func (uf *UsageFormatter) formatJSON(usages []types.Usage, diags []error) string {
	doc := usagesJSON{Usages: make([]usageJSON, 0, len(usages))}
	for _, u := range usages {
		j := usageJSON{
			Path:          u.Path,
			Line:          u.Line,
			Column:        u.Column,
			Offset:        u.Ref.Pos.Offset,
			Container:     u.Container,
			IsDeclaration: u.IsDeclaration,
		}
		if uf.options.ShowSnippet {
			j.Snippet = u.Snippet
		}
		doc.Usages = append(doc.Usages, j)
	}
	for _, d := range diags {
		doc.Warnings = append(doc.Warnings, d.Error())
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out) + "\n"
}

// FormatSymbols renders symbol search matches, one per line.
func FormatSymbols(matches []symbols.Match, format string) string {
	if format == "json" {
		type symbolJSON struct {
			Name  string  `json:"name"`
			Kind  string  `json:"kind"`
			Path  string  `json:"path"`
			Line  int     `json:"line"`
			Score float64 `json:"score"`
		}
		docs := make([]symbolJSON, 0, len(matches))
		for _, m := range matches {
			docs = append(docs, symbolJSON{
				Name:  m.Def.Name,
				Kind:  m.Def.Kind.String(),
				Path:  m.Path,
				Line:  m.Line,
				Score: m.Score,
			})
		}
		out, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Sprintf(`{"error": %q}`, err.Error())
		}
		return string(out) + "\n"
	}

	var sb strings.Builder
	if len(matches) == 0 {
		return "No symbols found\n"
	}
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("%-9s %-30s %s:%d:%d  (%.2f)\n",
			m.Def.Kind, m.Def.Name, m.Path, m.Line, m.Column, m.Score))
	}
	return sb.String()
}
