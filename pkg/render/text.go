// Package render formats query results for terminal and API output.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	identityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	absentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Text renders entities as a column-aligned table keyed on one fact kind.
// Column order follows the kind's schema, with the entity identity first.
// Absent fields render as "-", conflicting fields as "a | b".
type Text struct {
	w io.Writer
}

// NewText returns a text renderer writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Table writes entities as rows under the given kind's schema. Entities
// missing the kind entirely are skipped; callers filter first if they
// want an error instead.
func (t *Text) Table(kind entity.Kind, entities []*entity.Entity) error {
	fields := component.Schema(kind)
	if len(fields) == 0 {
		return fmt.Errorf("unknown fact kind %q", kind)
	}

	headers := append([]string{"identity"}, fields...)

	rows := make([][]string, 0, len(entities))
	styled := make([][]string, 0, len(entities))
	for _, e := range entities {
		if !e.HasKind(kind) {
			continue
		}
		plain := make([]string, 0, len(headers))
		color := make([]string, 0, len(headers))

		id := e.Identity().String()
		plain = append(plain, id)
		color = append(color, identityStyle.Render(id))

		for _, field := range fields {
			v := e.GetField(kind, field)
			plain = append(plain, v.String())
			color = append(color, styleValue(v))
		}
		rows = append(rows, plain)
		styled = append(styled, color)
	}

	t.writeAligned(headers, rows, styled)

	return nil
}

// writeAligned prints a header row and data rows with columns padded to the
// widest plain-text cell. Styled cells carry ANSI sequences, so padding is
// computed from the plain cells.
func (t *Text) writeAligned(headers []string, rows, styled [][]string) {
	widths := columnWidths(headers, rows)

	var header strings.Builder
	for i, h := range headers {
		header.WriteString(pad(h, widths[i]))
		header.WriteString("  ")
	}
	fmt.Fprintln(t.w, headerStyle.Render(strings.TrimRight(header.String(), " ")))

	for ri, row := range rows {
		var line strings.Builder
		for ci := range row {
			padding := widths[ci] - lipgloss.Width(row[ci])
			line.WriteString(styled[ri][ci])
			line.WriteString(strings.Repeat(" ", padding))
			line.WriteString("  ")
		}
		fmt.Fprintln(t.w, strings.TrimRight(line.String(), " "))
	}
}

// Detail writes a full multi-kind view of one entity: every kind it
// carries, every field of that kind, plus sources and observation count.
func (t *Text) Detail(e *entity.Entity) {
	fmt.Fprintln(t.w, identityStyle.Render(e.Identity().String()))

	for _, kind := range e.Kinds() {
		fmt.Fprintf(t.w, "  %s\n", headerStyle.Render(string(kind)))
		for _, field := range component.Schema(kind) {
			v := e.GetField(kind, field)
			fmt.Fprintf(t.w, "    %s %s\n",
				dimStyle.Render(pad(field+":", 12)),
				styleValue(v),
			)
		}
	}

	fmt.Fprintf(t.w, "  %s %s\n",
		dimStyle.Render(pad("sources:", 14)),
		strings.Join(e.Sources(), ", "),
	)
	fmt.Fprintf(t.w, "  %s %d\n",
		dimStyle.Render(pad("observations:", 14)),
		e.Observations(),
	)
}

// Warnings writes collector failures below the table.
func (t *Text) Warnings(warnings []entity.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(t.w, "%s collector %s failed: %v\n",
			warnStyle.Render("warning:"), w.Collector, w.Err)
	}
}

func styleValue(v entity.Value) string {
	switch {
	case v.IsAbsent():
		return absentStyle.Render("-")
	case v.IsConflict():
		return conflictStyle.Render(v.String())
	default:
		return v.String()
	}
}

// Widths are terminal cell widths, not byte lengths, so multibyte
// identity strings keep the columns aligned.
func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
