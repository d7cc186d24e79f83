package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/cbclab/cbclab/internal/domain/cbc"
)

const (
	MethodLineScan = "text-line-scan"
	MethodPairScan = "text-pair-scan"
)

// lineAliases is how many preferred aliases the line scan looks for.
const lineAliases = 5

type aliasPattern struct {
	alias string
	re    *regexp.Regexp
}

var linePatterns = func() map[cbc.ParameterID][]aliasPattern {
	m := make(map[cbc.ParameterID][]aliasPattern)
	for _, id := range cbc.IDs() {
		for _, a := range cbc.TopAliases(id, lineAliases) {
			m[id] = append(m[id], aliasPattern{
				alias: a,
				re:    aliasRegexp(a),
			})
		}
	}
	return m
}()

// aliasRegexp matches an alias followed by its number. Aliases starting with
// a letter or digit must start a word, so "age" does not match in "page".
func aliasRegexp(alias string) *regexp.Regexp {
	expr := regexp.QuoteMeta(alias) + `[:\s=]*([0-9]+\.?[0-9]*)`
	if r, _ := utf8.DecodeRuneInString(alias); unicode.IsLetter(r) || unicode.IsDigit(r) {
		expr = `\b` + expr
	}
	return regexp.MustCompile(expr)
}

var (
	pairPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9\s%#\(\)]+?)\s*[:\-=]?\s*(\d+\.?\d*)`)

	femaleWord   = regexp.MustCompile(`\bfemale\b`)
	maleWord     = regexp.MustCompile(`\bmale\b`)
	femaleLetter = regexp.MustCompile(`\bf\b`)
	maleLetter   = regexp.MustCompile(`\bm\b`)

	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bage[:\s]*(\d+)`),
		regexp.MustCompile(`(\d+)\s*years?\s*old`),
		regexp.MustCompile(`(\d+)\s*yrs?`),
	}
)

// maxAge bounds ages taken from free text.
const maxAge = 120

// TextExtractor reads parameters out of unstructured report text.
type TextExtractor struct {
	norm   *cbc.Normalizer
	logger zerolog.Logger
}

func NewTextExtractor(norm *cbc.Normalizer, logger zerolog.Logger) *TextExtractor {
	return &TextExtractor{norm: norm, logger: logger}
}

// Extract runs both text strategies and keeps the one that found more
// parameters. The line scan wins ties.
func (x *TextExtractor) Extract(text string) *cbc.Candidate {
	lines := x.LineScan(text)
	pairs := x.PairScan(text)
	if pairs.Len() > lines.Len() {
		x.logger.Debug().Int("line_scan", lines.Len()).Int("pair_scan", pairs.Len()).Msg("pair scan preferred")
		return pairs
	}
	return lines
}

// LineScan looks for a preferred alias on each line and reads the number that
// follows it. A line yields at most one parameter.
func (x *TextExtractor) LineScan(text string) *cbc.Candidate {
	c := cbc.NewCandidate(MethodLineScan)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		x.scanLine(c, line)
	}
	scanDemographics(c, text)
	return c
}

func (x *TextExtractor) scanLine(c *cbc.Candidate, line string) {
	lower := strings.ToLower(line)
	for _, id := range cbc.IDs() {
		if c.Has(id) {
			continue
		}
		for _, p := range linePatterns[id] {
			if !strings.Contains(lower, p.alias) {
				continue
			}
			m := p.re.FindStringSubmatch(lower)
			if m == nil {
				continue
			}
			if v, ok := x.norm.Normalize(id, m[1], line); ok {
				addValue(c, v)
				return
			}
		}
	}
}

// PairScan collects every label-number pair in the text and fuzzy-matches
// the label against the lab parameters still missing. Age and gender come
// from the word patterns only, since loose labels like "Page 1" would pass
// the fuzzy threshold for "age".
func (x *TextExtractor) PairScan(text string) *cbc.Candidate {
	c := cbc.NewCandidate(MethodPairScan)
	for _, m := range pairPattern.FindAllStringSubmatch(text, -1) {
		label := strings.TrimSpace(m[1])
		missing := missingLabParameters(c)
		if label == "" || len(missing) == 0 {
			continue
		}
		for _, hit := range cbc.MatchAll(label, cbc.LooseThreshold, missing...) {
			if v, ok := x.norm.Normalize(hit.ID, m[2], m[0]); ok {
				addValue(c, v)
				break
			}
		}
	}
	scanDemographics(c, text)
	return c
}

func missingLabParameters(c *cbc.Candidate) []cbc.ParameterID {
	var ids []cbc.ParameterID
	for _, id := range c.Missing() {
		if id != cbc.Age && id != cbc.Gender {
			ids = append(ids, id)
		}
	}
	return ids
}

// scanDemographics fills gender and age from word patterns when the label
// scans left them empty.
func scanDemographics(c *cbc.Candidate, text string) {
	lower := strings.ToLower(text)
	if !c.Has(cbc.Gender) {
		if g, raw, ok := scanGender(lower); ok {
			c.Add(cbc.ExtractedValue{Parameter: cbc.Gender, Value: g, Confidence: cbc.ConfidenceDirect, RawText: raw})
		}
	}
	if !c.Has(cbc.Age) {
		if age, raw, ok := scanAge(lower); ok {
			c.Add(cbc.ExtractedValue{Parameter: cbc.Age, Value: age, Confidence: cbc.ConfidenceDirect, RawText: raw})
		}
	}
}

// scanGender prefers whole words over single letters and "female" over "male".
func scanGender(lower string) (float64, string, bool) {
	switch {
	case femaleWord.MatchString(lower):
		return 0, "female", true
	case maleWord.MatchString(lower):
		return 1, "male", true
	case femaleLetter.MatchString(lower):
		return 0, "f", true
	case maleLetter.MatchString(lower):
		return 1, "m", true
	}
	return 0, "", false
}

func scanAge(lower string) (float64, string, bool) {
	for _, re := range agePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 || n > maxAge {
			continue
		}
		return float64(n), m[0], true
	}
	return 0, "", false
}
