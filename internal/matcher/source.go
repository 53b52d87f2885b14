package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// StaticSource serves a fixed snapshot. Used for tests and local runs.
type StaticSource ReferenceSets

// LoadReferenceSets implements ReferenceSource.
func (s StaticSource) LoadReferenceSets(context.Context) (ReferenceSets, error) {
	return ReferenceSets(s), nil
}

// FileSource reads reference sets from a JSON document shaped like
// {"names":[...],"departments":[...],"cities":[...],"hospitals":[...]}.
type FileSource struct {
	Path string
}

// LoadReferenceSets implements ReferenceSource.
func (s FileSource) LoadReferenceSets(context.Context) (ReferenceSets, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return ReferenceSets{}, fmt.Errorf("matcher: read %s: %w", s.Path, err)
	}
	var refs ReferenceSets
	if err := json.Unmarshal(data, &refs); err != nil {
		return ReferenceSets{}, fmt.Errorf("matcher: decode %s: %w", s.Path, err)
	}
	return refs, nil
}
