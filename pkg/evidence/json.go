package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONSource reads a snapshot from a JSON bundle on disk. The file is
// parsed once on first use and the result reused for the rest of the
// session.
type JSONSource struct {
	path string

	once sync.Once
	snap *Snapshot
	err  error
}

// NewJSONSource creates a source over the given bundle path. The file is
// not touched until the first Snapshot call.
func NewJSONSource(path string) *JSONSource {
	return &JSONSource{path: path}
}

// Snapshot parses and returns the bundle.
func (s *JSONSource) Snapshot(_ context.Context) (*Snapshot, error) {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			s.err = fmt.Errorf("reading snapshot %s: %w", s.path, err)
			return
		}

		snap := &Snapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			s.err = fmt.Errorf("parsing snapshot %s: %w", s.path, err)
			return
		}
		s.snap = snap
	})

	return s.snap, s.err
}

// Path returns the bundle path.
func (s *JSONSource) Path() string {
	return s.path
}

// Close is a no-op for JSON bundles.
func (s *JSONSource) Close() error {
	return nil
}
