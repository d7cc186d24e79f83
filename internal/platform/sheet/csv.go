package sheet

import (
	"encoding/csv"
	"fmt"
	"strings"
)

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// ReadDelimited parses delimited text into a Table. The encoding is detected
// by DecodeText and the delimiter is sniffed from the first lines.
func ReadDelimited(data []byte) (*Table, error) {
	text, _ := DecodeText(data)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoRows
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = SniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited text: %w", err)
	}

	t := NewTable("", records)
	if t.Len() == 0 {
		return nil, ErrNoRows
	}
	return t, nil
}

// SniffDelimiter picks the candidate delimiter that splits the first lines
// most consistently. Comma wins when nothing else fits better.
func SniffDelimiter(text string) rune {
	lines := strings.Split(text, "\n")
	var sample []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		sample = append(sample, l)
		if len(sample) == 5 {
			break
		}
	}

	best, bestScore := ',', 0
	for _, d := range candidateDelimiters {
		first := -1
		score := 0
		for _, l := range sample {
			n := strings.Count(l, string(d))
			if n == 0 {
				score = 0
				break
			}
			if first == -1 {
				first = n
			}
			if n == first {
				score += n
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}
