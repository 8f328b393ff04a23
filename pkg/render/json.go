package render

import (
	"encoding/json"
	"io"

	"github.com/cairnforensics/cairn/pkg/component"
	"github.com/cairnforensics/cairn/pkg/entity"
)

// EntityDoc is the wire form of one entity. Field values keep their tagged
// shape: absent fields are omitted, single values are scalars, and
// conflicting values become {"conflict": [...]}.
type EntityDoc struct {
	Identity     string                    `json:"identity"`
	Display      string                    `json:"display,omitempty"`
	Facts        map[string]map[string]any `json:"facts"`
	Sources      []string                  `json:"sources"`
	Observations int                       `json:"observations"`
}

// ConflictDoc is the wire form of a conflicting field value.
type ConflictDoc struct {
	Conflict []any `json:"conflict"`
}

// ResultDoc is the wire form of a query result.
type ResultDoc struct {
	Entities []EntityDoc  `json:"entities"`
	Warnings []WarningDoc `json:"warnings,omitempty"`
}

// WarningDoc is the wire form of a collector failure.
type WarningDoc struct {
	Collector string `json:"collector"`
	Error     string `json:"error"`
}

// NewEntityDoc flattens an entity into its wire form.
func NewEntityDoc(e *entity.Entity) EntityDoc {
	doc := EntityDoc{
		Identity:     e.Identity().Key(),
		Display:      e.Identity().String(),
		Facts:        make(map[string]map[string]any),
		Sources:      e.Sources(),
		Observations: e.Observations(),
	}

	for _, kind := range e.Kinds() {
		fields := make(map[string]any)
		for _, field := range component.Schema(kind) {
			v := e.GetField(kind, field)
			if v.IsAbsent() {
				continue
			}
			fields[field] = valueJSON(v)
		}
		doc.Facts[string(kind)] = fields
	}

	return doc
}

// NewResultDoc flattens a query result into its wire form.
func NewResultDoc(res *entity.Result) ResultDoc {
	doc := ResultDoc{
		Entities: make([]EntityDoc, 0, len(res.Entities)),
	}
	for _, e := range res.Entities {
		doc.Entities = append(doc.Entities, NewEntityDoc(e))
	}
	for _, w := range res.Warnings {
		doc.Warnings = append(doc.Warnings, WarningDoc{
			Collector: w.Collector,
			Error:     w.Err.Error(),
		})
	}
	return doc
}

// JSON writes documents with stable two-space indentation.
type JSON struct {
	w io.Writer
}

// NewJSON returns a JSON renderer writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

// Result writes a query result.
func (j *JSON) Result(res *entity.Result) error {
	return j.encode(NewResultDoc(res))
}

// Entity writes a single entity.
func (j *JSON) Entity(e *entity.Entity) error {
	return j.encode(NewEntityDoc(e))
}

func (j *JSON) encode(doc any) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// valueJSON converts a field value to its wire shape. Identity candidates
// serialize as their keys so references stay joinable.
func valueJSON(v entity.Value) any {
	if v.IsConflict() {
		all := v.All()
		out := make([]any, len(all))
		for i, c := range all {
			out[i] = candidateJSON(c)
		}
		return ConflictDoc{Conflict: out}
	}
	return candidateJSON(v.First())
}

func candidateJSON(c any) any {
	if id, ok := c.(entity.Identity); ok {
		return id.Key()
	}
	return c
}
