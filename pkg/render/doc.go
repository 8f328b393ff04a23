package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
)

// Doc-side rendering for client-mode commands: the same table and detail
// views as the entity renderers, driven by wire documents fetched from a
// running API server instead of live entities. Field values arrive as
// decoded JSON, so scalars are float64/string and conflicts are
// {"conflict": [...]} maps.

// DocTable writes entity documents as rows under the given kind's schema,
// mirroring Table. Documents without the kind are skipped.
func (t *Text) DocTable(kind entity.Kind, docs []EntityDoc) error {
	fields := component.Schema(kind)
	if len(fields) == 0 {
		return fmt.Errorf("unknown fact kind %q", kind)
	}

	headers := append([]string{"identity"}, fields...)

	rows := make([][]string, 0, len(docs))
	styled := make([][]string, 0, len(docs))
	for _, doc := range docs {
		facts, ok := doc.Facts[string(kind)]
		if !ok {
			continue
		}
		plain := make([]string, 0, len(headers))
		color := make([]string, 0, len(headers))

		id := docDisplay(doc)
		plain = append(plain, id)
		color = append(color, identityStyle.Render(id))

		for _, field := range fields {
			v, present := facts[field]
			text, conflict := docValue(v, present)
			plain = append(plain, text)
			color = append(color, styleDocValue(text, present && v != nil, conflict))
		}
		rows = append(rows, plain)
		styled = append(styled, color)
	}

	t.writeAligned(headers, rows, styled)

	return nil
}

// DocDetail writes a full multi-kind view of one entity document,
// mirroring Detail. Kinds and fields follow the schema order.
func (t *Text) DocDetail(doc EntityDoc) {
	fmt.Fprintln(t.w, identityStyle.Render(docDisplay(doc)))

	for _, kind := range component.Kinds() {
		facts, ok := doc.Facts[string(kind)]
		if !ok {
			continue
		}
		fmt.Fprintf(t.w, "  %s\n", headerStyle.Render(string(kind)))
		for _, field := range component.Schema(kind) {
			v, present := facts[field]
			text, conflict := docValue(v, present)
			fmt.Fprintf(t.w, "    %s %s\n",
				dimStyle.Render(pad(field+":", 12)),
				styleDocValue(text, present && v != nil, conflict),
			)
		}
	}

	fmt.Fprintf(t.w, "  %s %s\n",
		dimStyle.Render(pad("sources:", 14)),
		strings.Join(doc.Sources, ", "),
	)
	fmt.Fprintf(t.w, "  %s %d\n",
		dimStyle.Render(pad("observations:", 14)),
		doc.Observations,
	)
}

// DocWarnings writes collector failures reported by the server.
func (t *Text) DocWarnings(warnings []WarningDoc) {
	for _, w := range warnings {
		fmt.Fprintf(t.w, "%s collector %s failed: %s\n",
			warnStyle.Render("warning:"), w.Collector, w.Error)
	}
}

// Doc writes an already-flattened wire document.
func (j *JSON) Doc(doc any) error {
	return j.encode(doc)
}

func docDisplay(doc EntityDoc) string {
	if doc.Display != "" {
		return doc.Display
	}
	return doc.Identity
}

// docValue renders one decoded field value as text, reporting whether it
// is a conflict. Absent fields are omitted from the wire form, so a
// missing field renders as "-".
func docValue(v any, present bool) (string, bool) {
	if !present || v == nil {
		return "-", false
	}
	if m, ok := v.(map[string]any); ok {
		if cands, ok := m["conflict"].([]any); ok {
			parts := make([]string, len(cands))
			for i, c := range cands {
				parts[i] = docScalar(c)
			}
			return strings.Join(parts, " | "), true
		}
	}
	return docScalar(v), false
}

func docScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func styleDocValue(text string, present, conflict bool) string {
	switch {
	case !present:
		return absentStyle.Render(text)
	case conflict:
		return conflictStyle.Render(text)
	default:
		return text
	}
}
