// Package duplicate scores textual and structural similarity between incidents.
package duplicate

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spec-kit/incident-service/internal/domain"
)

// MinScore is the lowest similarity reported as a candidate.
const MinScore = 0.25

const minTokenLength = 3

// Weights of each similarity signal. They sum to 1.
const (
	weightTitle       = 0.5
	weightDescription = 0.2
	weightCategory    = 0.1
	weightChannel     = 0.1
	weightPriority    = 0.05
	weightConfigItem  = 0.05
)

// Candidate is a scored potential duplicate.
type Candidate struct {
	Incident *domain.Incident
	Score    float64
}

// Tokenize lowercases text, replaces non-alphanumerics with spaces and keeps
// the set of tokens at least three characters long.
func Tokenize(text string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	tokens := map[string]struct{}{}
	for _, field := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(field) >= minTokenLength {
			tokens[field] = struct{}{}
		}
	}
	return tokens
}

// Jaccard returns |A∩B| / |A∪B| over the token sets of a and b, or 0 when
// either side has no tokens.
func Jaccard(a, b string) float64 {
	ta, tb := Tokenize(a), Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// Similarity scores candidate against source, rounded to three decimals.
func Similarity(source, candidate *domain.Incident) float64 {
	score := weightTitle*Jaccard(source.Title, candidate.Title) +
		weightDescription*Jaccard(source.Description, candidate.Description)
	if sameNonEmpty(source.Category, candidate.Category) {
		score += weightCategory
	}
	if sameNonEmpty(source.Channel, candidate.Channel) {
		score += weightChannel
	}
	if source.Priority != "" && source.Priority == candidate.Priority {
		score += weightPriority
	}
	if sharesAny(source.ConfigItemIDs, candidate.ConfigItemIDs) {
		score += weightConfigItem
	}
	return math.Round(score*1000) / 1000
}

// FindCandidates scores every open incident in pool against source and
// returns up to limit candidates scoring at least MinScore, best first.
func FindCandidates(source *domain.Incident, pool []*domain.Incident, limit int) []Candidate {
	candidates := make([]Candidate, 0)
	for _, inc := range pool {
		if inc == nil || inc.ID == source.ID || inc.Status.IsTerminal() {
			continue
		}
		score := Similarity(source, inc)
		if score < MinScore {
			continue
		}
		candidates = append(candidates, Candidate{Incident: inc, Score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func sameNonEmpty(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

func sharesAny(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
