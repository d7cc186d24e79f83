package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// StreamTables decodes each page's content stream with pdfcpu, positions the
// shown strings by their text matrix and returns the tables found along with
// the row text of the whole document.
func StreamTables(data []byte) (tables []Table, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables, text, err = nil, "", fmt.Errorf("pdf content stream: %v", r)
		}
	}()

	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, "", fmt.Errorf("pdfcpu read: %w", err)
	}

	var all strings.Builder
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil || len(content) == 0 {
			continue
		}
		var cellRows [][]string
		for _, row := range groupRows(parseContentStream(content)) {
			cellRows = append(cellRows, splitCells(row))
		}
		tables = append(tables, tablesFromRows(cellRows)...)
		all.WriteString(rowsText(cellRows))
	}
	if strings.TrimSpace(all.String()) == "" {
		return nil, "", ErrNoText
	}
	return tables, all.String(), nil
}

// avgGlyphEm approximates glyph advance for fonts whose widths are not read.
const avgGlyphEm = 0.5

// tjSpaceThreshold is the TJ kerning adjustment, in thousandths of an em,
// treated as a word space.
const tjSpaceThreshold = 200

type textState struct {
	tm      [6]float64
	tlm     [6]float64
	size    float64
	leading float64
}

func identity() [6]float64 { return [6]float64{1, 0, 0, 1, 0, 0} }

func (s *textState) translate(tx, ty float64) {
	m := s.tlm
	m[4] = tx*m[0] + ty*m[2] + m[4]
	m[5] = tx*m[1] + ty*m[3] + m[5]
	s.tlm = m
	s.tm = m
}

func (s *textState) nextLine() { s.translate(0, -s.leading) }

// fontSize is the effective size after the text matrix vertical scale.
func (s *textState) fontSize() float64 {
	scale := s.tm[3]
	if scale < 0 {
		scale = -scale
	}
	if scale == 0 {
		scale = 1
	}
	return s.size * scale
}

// show records a positioned string and advances the text matrix past it.
func (s *textState) show(str string, out []glyph) []glyph {
	if strings.TrimSpace(str) == "" {
		s.advance(str)
		return out
	}
	size := s.fontSize()
	w := float64(len([]rune(str))) * size * avgGlyphEm
	out = append(out, glyph{X: s.tm[4], Y: s.tm[5], W: w, Size: size, S: str})
	s.advance(str)
	return out
}

func (s *textState) advance(str string) {
	s.tm[4] += float64(len([]rune(str))) * s.size * avgGlyphEm * s.tm[0]
}

// parseContentStream walks text-showing operators and returns positioned
// strings. Graphics operators and inline image data are skipped.
func parseContentStream(data []byte) []glyph {
	lx := &lexer{data: data}
	st := &textState{tm: identity(), tlm: identity(), size: 10}
	var operands []token
	var out []glyph

	num := func(i int) float64 {
		if i < 0 || i >= len(operands) {
			return 0
		}
		return operands[i].num
	}
	last := func(n int) int { return len(operands) - n }

	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		switch tok.str {
		case "BT":
			st.tm, st.tlm = identity(), identity()
		case "Tf":
			if len(operands) >= 1 {
				st.size = num(last(1))
			}
		case "TL":
			st.leading = num(last(1))
		case "Td":
			if len(operands) >= 2 {
				st.translate(num(last(2)), num(last(1)))
			}
		case "TD":
			if len(operands) >= 2 {
				st.leading = -num(last(1))
				st.translate(num(last(2)), num(last(1)))
			}
		case "Tm":
			if len(operands) >= 6 {
				var m [6]float64
				for i := 0; i < 6; i++ {
					m[i] = num(last(6 - i))
				}
				st.tm, st.tlm = m, m
			}
		case "T*":
			st.nextLine()
		case "Tj":
			if len(operands) >= 1 {
				out = st.show(operands[last(1)].str, out)
			}
		case "'":
			st.nextLine()
			if len(operands) >= 1 {
				out = st.show(operands[last(1)].str, out)
			}
		case "\"":
			st.nextLine()
			if len(operands) >= 1 {
				out = st.show(operands[last(1)].str, out)
			}
		case "TJ":
			if len(operands) >= 1 && operands[last(1)].kind == tokArray {
				out = st.show(joinTJ(operands[last(1)].items), out)
			}
		case "ID":
			lx.skipInlineImage()
		}
		operands = operands[:0]
	}
	return out
}

func joinTJ(items []token) string {
	var b strings.Builder
	for _, it := range items {
		switch it.kind {
		case tokString:
			b.WriteString(it.str)
		case tokNumber:
			if it.num < -tjSpaceThreshold {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokArray
	tokOperator
	tokOther
)

type token struct {
	kind  tokenKind
	num   float64
	str   string
	items []token
}

type lexer struct {
	data []byte
	pos  int
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func (lx *lexer) skipSpaceAndComments() {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		switch {
		case isSpace(c):
			lx.pos++
		case c == '%':
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, bool) {
	lx.skipSpaceAndComments()
	if lx.pos >= len(lx.data) {
		return token{}, false
	}
	c := lx.data[lx.pos]
	switch {
	case c == '(':
		lx.pos++
		return token{kind: tokString, str: lx.literalString()}, true
	case c == '<' && lx.peek(1) == '<':
		lx.pos += 2
		lx.skipDict()
		return token{kind: tokOther}, true
	case c == '<':
		lx.pos++
		return token{kind: tokString, str: lx.hexString()}, true
	case c == '[':
		lx.pos++
		var items []token
		for {
			lx.skipSpaceAndComments()
			if lx.pos >= len(lx.data) {
				break
			}
			if lx.data[lx.pos] == ']' {
				lx.pos++
				break
			}
			it, ok := lx.next()
			if !ok {
				break
			}
			items = append(items, it)
		}
		return token{kind: tokArray, items: items}, true
	case c == '/':
		lx.pos++
		return token{kind: tokName, str: lx.regular()}, true
	case c == ']' || c == ')' || c == '>' || c == '{' || c == '}':
		lx.pos++
		return token{kind: tokOther}, true
	}

	word := lx.regular()
	if word == "" {
		lx.pos++
		return token{kind: tokOther}, true
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return token{kind: tokNumber, num: f}, true
	}
	return token{kind: tokOperator, str: word}, true
}

func (lx *lexer) peek(n int) byte {
	if lx.pos+n < len(lx.data) {
		return lx.data[lx.pos+n]
	}
	return 0
}

func (lx *lexer) regular() string {
	start := lx.pos
	for lx.pos < len(lx.data) && !isSpace(lx.data[lx.pos]) && !isDelimiter(lx.data[lx.pos]) {
		lx.pos++
	}
	return string(lx.data[start:lx.pos])
}

// literalString reads up to the balancing close paren, decoding escapes.
func (lx *lexer) literalString() string {
	var b bytes.Buffer
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		switch c {
		case '\\':
			if lx.pos >= len(lx.data) {
				return b.String()
			}
			e := lx.data[lx.pos]
			lx.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\r', '\n':
				if e == '\r' && lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && lx.pos < len(lx.data); k++ {
						d := lx.data[lx.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						lx.pos++
					}
					b.WriteByte(byte(val))
				} else {
					b.WriteByte(e)
				}
			}
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return decodeBytes(b.Bytes())
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return decodeBytes(b.Bytes())
}

// hexString decodes <...>. Two-byte glyph ids of composite fonts cannot be
// mapped without the font CMap, so only printable single-byte results survive.
func (lx *lexer) hexString() string {
	var digits []byte
	for lx.pos < len(lx.data) && lx.data[lx.pos] != '>' {
		c := lx.data[lx.pos]
		if !isSpace(c) {
			digits = append(digits, c)
		}
		lx.pos++
	}
	lx.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return ""
		}
		raw = append(raw, byte(v))
	}
	for _, c := range raw {
		if c < 0x20 && !isSpace(c) {
			return ""
		}
	}
	return decodeBytes(raw)
}

func (lx *lexer) skipDict() {
	depth := 1
	for lx.pos < len(lx.data) && depth > 0 {
		switch {
		case lx.data[lx.pos] == '<' && lx.peek(1) == '<':
			depth++
			lx.pos += 2
		case lx.data[lx.pos] == '>' && lx.peek(1) == '>':
			depth--
			lx.pos += 2
		default:
			lx.pos++
		}
	}
}

// skipInlineImage jumps past binary image data up to the EI operator.
func (lx *lexer) skipInlineImage() {
	for lx.pos+2 < len(lx.data) {
		if isSpace(lx.data[lx.pos]) && lx.data[lx.pos+1] == 'E' && lx.data[lx.pos+2] == 'I' &&
			(lx.pos+3 >= len(lx.data) || isSpace(lx.data[lx.pos+3])) {
			lx.pos += 3
			return
		}
		lx.pos++
	}
	lx.pos = len(lx.data)
}

// decodeBytes maps simple-font bytes to text, treating them as Latin-1.
func decodeBytes(b []byte) string {
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs)
}
