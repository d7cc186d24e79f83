package cbc

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Similarity thresholds used by the extractors.
const (
	LooseThreshold  = 0.6
	HeaderThreshold = 0.7
)

// minContainLen is the shortest string allowed to match by containment.
const minContainLen = 3

// Tier is the strength of a label match.
type Tier int

const (
	TierNone Tier = iota
	TierFuzzy
	TierContains
	TierExact
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierContains:
		return "contains"
	case TierFuzzy:
		return "fuzzy"
	}
	return "none"
}

// Match is the outcome of matching a raw label against the catalog.
type Match struct {
	ID    ParameterID
	Tier  Tier
	Score float64
}

var normalizedAliases = func() map[ParameterID][]string {
	m := make(map[ParameterID][]string, len(catalog))
	for _, p := range catalog {
		seen := make(map[string]bool, len(p.Aliases))
		for _, a := range p.Aliases {
			n := NormalizeLabel(a)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			m[p.ID] = append(m[p.ID], n)
		}
	}
	return m
}()

// NormalizeLabel folds a raw label for comparison: NFKC, lowercase, letters
// and digits kept, whitespace collapsed. The unit symbols % and # are kept and
// attached to the preceding word so "LY (%)" and "ly%" compare equal.
func NormalizeLabel(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case r == '%' || r == '#':
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

// Similarity is the normalized edit-distance similarity of a and b in [0,1].
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// MatchAll matches label against the aliases of candidates (every parameter
// when none are given) and returns one hit per matching parameter, strongest
// first. Exact equality beats containment, which beats fuzzy similarity at or
// above threshold. Contained text must start a word. Within containment the
// longest contained text ranks first; within fuzzy the highest ratio does;
// ties keep catalog order.
func MatchAll(label string, threshold float64, candidates ...ParameterID) []Match {
	nl := NormalizeLabel(label)
	if nl == "" {
		return nil
	}
	ids := candidates
	if len(ids) == 0 {
		ids = IDs()
	}

	hasPct := strings.Contains(nl, "%")
	hasAbs := strings.Contains(nl, "#")
	labelLen := utf8.RuneCountInString(nl)

	type hit struct {
		Match
		span int
	}
	var hits []hit
	for _, id := range ids {
		h := hit{Match: Match{ID: id}}
		for _, a := range normalizedAliases[id] {
			if a == nl {
				h.Tier, h.Score = TierExact, 1
				break
			}
		}
		clash := (hasAbs && id.IsPercentage()) || (hasPct && id.IsAbsoluteCount())
		if h.Tier == TierNone && !clash {
			for _, a := range normalizedAliases[id] {
				aliasLen := utf8.RuneCountInString(a)
				contained := 0
				if aliasLen >= minContainLen && containsWord(nl, a) {
					contained = aliasLen
				} else if labelLen >= minContainLen && containsWord(a, nl) {
					contained = labelLen
				}
				if contained > h.span {
					h.span = contained
					h.Tier, h.Score = TierContains, 1
				}
			}
		}
		if h.Tier == TierNone && !clash {
			for _, a := range normalizedAliases[id] {
				if s := Similarity(nl, a); s >= threshold && s > h.Score {
					h.Tier, h.Score = TierFuzzy, s
				}
			}
		}
		if h.Tier != TierNone {
			hits = append(hits, h)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Tier != b.Tier {
			return a.Tier > b.Tier
		}
		if a.span != b.span {
			return a.span > b.span
		}
		return a.Score > b.Score
	})
	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = h.Match
	}
	return out
}

// containsWord reports whether sub occurs in s starting at a word start, so
// "age" is contained in "patient age" but not in "page".
func containsWord(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); {
		j := strings.Index(s[i:], sub)
		if j < 0 {
			return false
		}
		j += i
		if j == 0 {
			return true
		}
		if r, _ := utf8.DecodeLastRuneInString(s[:j]); !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
		i = j + 1
	}
	return false
}

// BestMatch returns the strongest hit of MatchAll.
func BestMatch(label string, threshold float64, candidates ...ParameterID) (Match, bool) {
	hits := MatchAll(label, threshold, candidates...)
	if len(hits) == 0 {
		return Match{}, false
	}
	return hits[0], true
}

// MatchLabel returns the parameter best matching label, if any.
func MatchLabel(label string, threshold float64, candidates ...ParameterID) (ParameterID, bool) {
	m, ok := BestMatch(label, threshold, candidates...)
	return m.ID, ok
}
