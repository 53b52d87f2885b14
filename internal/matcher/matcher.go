// Package matcher maps noisy transcribed speech onto the closest known
// canonical value for a field category (names, departments, cities, hospitals).
package matcher

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

var matcherTracer = otel.Tracer("voicebooking.internal.matcher")

// Category selects which reference set an answer is matched against.
type Category string

const (
	CategoryNone       Category = ""
	CategoryName       Category = "name"
	CategoryDepartment Category = "department"
	CategoryCity       Category = "city"
	CategoryHospital   Category = "hospital"
)

// Categories lists every category backed by a reference set.
var Categories = []Category{CategoryName, CategoryDepartment, CategoryCity, CategoryHospital}

// ReferenceSets is one snapshot of all known values.
type ReferenceSets struct {
	Names       []string `json:"names"`
	Departments []string `json:"departments"`
	Cities      []string `json:"cities"`
	Hospitals   []string `json:"hospitals"`
}

// Values returns the set for a category.
func (r ReferenceSets) Values(c Category) []string {
	switch c {
	case CategoryName:
		return r.Names
	case CategoryDepartment:
		return r.Departments
	case CategoryCity:
		return r.Cities
	case CategoryHospital:
		return r.Hospitals
	default:
		return nil
	}
}

// ReferenceSource loads reference sets from an external store.
type ReferenceSource interface {
	LoadReferenceSets(ctx context.Context) (ReferenceSets, error)
}

// Matcher holds one FuzzySet per category. Sets are swapped atomically on
// reload and are read-only otherwise.
type Matcher struct {
	source    ReferenceSource
	threshold float64
	logger    *logging.Logger

	mu   sync.RWMutex
	sets map[Category]*FuzzySet
}

// New creates a matcher; call Load before serving traffic.
func New(source ReferenceSource, threshold float64, logger *logging.Logger) *Matcher {
	if source == nil {
		panic("matcher: reference source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{
		source:    source,
		threshold: threshold,
		logger:    logger,
		sets:      map[Category]*FuzzySet{},
	}
}

// Load (re)populates every reference set from the source. Calling it again
// replaces the sets wholesale.
func (m *Matcher) Load(ctx context.Context) error {
	ctx, span := matcherTracer.Start(ctx, "matcher.load")
	defer span.End()

	refs, err := m.source.LoadReferenceSets(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("matcher: load reference sets: %w", err)
	}
	sets := make(map[Category]*FuzzySet, len(Categories))
	for _, c := range Categories {
		sets[c] = NewFuzzySet(refs.Values(c))
		span.SetAttributes(attribute.Int("voicebooking.reference."+string(c), sets[c].Len()))
	}

	m.mu.Lock()
	m.sets = sets
	m.mu.Unlock()

	m.logger.Info("reference sets loaded",
		"names", sets[CategoryName].Len(),
		"departments", sets[CategoryDepartment].Len(),
		"cities", sets[CategoryCity].Len(),
		"hospitals", sets[CategoryHospital].Len(),
	)
	return nil
}

// Match returns the closest known value for raw, or raw unchanged when the
// category has no reference set or nothing is similar enough.
func (m *Matcher) Match(category Category, raw string) string {
	m.mu.RLock()
	set, ok := m.sets[category]
	m.mu.RUnlock()
	if !ok {
		return raw
	}
	best, score, found := set.Best(raw, m.threshold)
	if !found {
		m.logger.Debug("no reference match", "category", string(category), "input", raw, "best_score", score)
		return raw
	}
	return best
}

// Sizes reports how many values each category currently holds.
func (m *Matcher) Sizes() map[Category]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Category]int, len(m.sets))
	for c, s := range m.sets {
		out[c] = s.Len()
	}
	return out
}
