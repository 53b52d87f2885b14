package matcher

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// DefaultThreshold is the minimum similarity a candidate needs to replace the
// spoken text.
const DefaultThreshold = 0.33

// shortlistSize bounds how many bigram-ranked candidates get the more
// expensive edit-distance rescoring.
const shortlistSize = 50

// FuzzySet holds one category's canonical values.
type FuzzySet struct {
	values      []string
	normalized  []string
	exact       map[string]string
	dice        *metrics.SorensenDice
	levenshtein *metrics.Levenshtein
}

// NewFuzzySet builds a set from the given values, dropping blanks and
// duplicates (case-insensitive). The first spelling seen is canonical.
func NewFuzzySet(values []string) *FuzzySet {
	dice := metrics.NewSorensenDice()
	dice.CaseSensitive = false
	dice.NgramSize = 2
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false

	s := &FuzzySet{
		exact:       make(map[string]string, len(values)),
		dice:        dice,
		levenshtein: lev,
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		norm := normalize(v)
		if norm == "" {
			continue
		}
		if _, dup := s.exact[norm]; dup {
			continue
		}
		s.exact[norm] = v
		s.values = append(s.values, v)
		s.normalized = append(s.normalized, norm)
	}
	return s
}

// Len returns the number of canonical values.
func (s *FuzzySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Best returns the closest canonical value and its score, or ok=false when
// nothing reaches threshold.
func (s *FuzzySet) Best(query string, threshold float64) (string, float64, bool) {
	if s == nil || len(s.values) == 0 {
		return "", 0, false
	}
	q := normalize(query)
	if q == "" {
		return "", 0, false
	}
	if canonical, ok := s.exact[q]; ok {
		return canonical, 1, true
	}

	type scored struct {
		idx   int
		score float64
	}
	shortlist := make([]scored, 0, len(s.values))
	for i, candidate := range s.normalized {
		if score := strutil.Similarity(q, candidate, s.dice); score > 0 {
			shortlist = append(shortlist, scored{idx: i, score: score})
		}
	}
	if len(shortlist) == 0 {
		return "", 0, false
	}
	sort.SliceStable(shortlist, func(i, j int) bool { return shortlist[i].score > shortlist[j].score })
	if len(shortlist) > shortlistSize {
		shortlist = shortlist[:shortlistSize]
	}

	best := -1
	bestScore := 0.0
	for _, c := range shortlist {
		score := strutil.Similarity(q, s.normalized[c.idx], s.levenshtein)
		if score > bestScore {
			best, bestScore = c.idx, score
		}
	}
	if best < 0 || bestScore < threshold {
		return "", bestScore, false
	}
	return s.values[best], bestScore, true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
