/*
Copyright © 2019 the InMAP authors.
This file is part of CDL.

CDL is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

CDL is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with CDL.  If not, see <http://www.gnu.org/licenses/>.
*/

package cdl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// A Diagnostic records a recoverable lexical problem. The offending text is
// skipped and scanning continues.
type Diagnostic struct {
	Line int
	Pos  int
	Msg  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d, lexical position %d: %s", d.Line, d.Pos, d.Msg)
}

// lexer scans CDL source a byte at a time. Positions are byte offsets; line
// numbers are 1-based and advance on every newline, including newlines inside
// string constants.
type lexer struct {
	src   string
	pos   int
	line  int
	log   *logrus.Logger
	diags []Diagnostic
}

func newLexer(src string, log *logrus.Logger) *lexer {
	if log == nil {
		log = logrus.New()
		log.Level = logrus.WarnLevel
	}
	return &lexer{src: src, line: 1, log: log}
}

func (lx *lexer) syntaxErrf(pos int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Line: lx.line, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// noise records an illegal character, warns, and skips it.
func (lx *lexer) noise(c byte) {
	msg := fmt.Sprintf("illegal character %q", c)
	lx.diags = append(lx.diags, Diagnostic{Line: lx.line, Pos: lx.pos, Msg: msg})
	lx.log.Warnf("cdl: %s at line %d, lexical position %d", msg, lx.line, lx.pos)
	lx.pos++
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
func isOctalDigit(c byte) bool { return c >= '0' && c <= '7' }

// identCont reports whether c may appear after the first byte of an
// identifier. netCDF names admit a handful of punctuation characters
// directly; anything else must be backslash-escaped.
func identCont(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c == '.' || c == '@' ||
		c == '+' || c == '-' || c >= 0x80
}

// identStart reports whether c may open an identifier. Multibyte UTF-8 lead
// bytes are allowed so that names may carry non-ASCII characters.
func identStart(c byte) bool {
	return isLetter(c) || c == '_' || c >= 0xc0
}

// next scans and returns the next token. Lexical noise is consumed with a
// warning; real malformations return a *SyntaxError or *ContentError.
func (lx *lexer) next() (Token, error) {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case c == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return lx.scanToken()
		}
	}
	return Token{Kind: EOF, Line: lx.line, Pos: lx.pos}, nil
}

func (lx *lexer) scanToken() (Token, error) {
	start := lx.pos
	c := lx.src[lx.pos]

	if k, ok := structural[c]; ok {
		lx.pos++
		return Token{Kind: k, Text: string(c), Line: lx.line, Pos: start}, nil
	}

	switch {
	case c == '"':
		return lx.scanString()
	case c == '\'':
		return lx.scanCharConst()
	case isDigit(c) || c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]):
		return lx.scanNumber()
	case c == '+' || c == '-':
		if lx.pos+1 < len(lx.src) {
			c1 := lx.src[lx.pos+1]
			if isDigit(c1) || c1 == '.' {
				return lx.scanNumber()
			}
		}
		lx.noise(c)
		return lx.next()
	case identStart(c) || c == '\\':
		return lx.scanIdent()
	}

	lx.noise(c)
	return lx.next()
}

var structural = map[byte]TokenKind{
	'{': LBrace,
	'}': RBrace,
	'(': LParen,
	')': RParen,
	'=': Equals,
	';': Semi,
	',': Comma,
	':': Colon,
}

// scanString scans a double-quoted string constant. Embedded newlines are
// legal and advance the line counter. Escape sequences are expanded in the
// token's value; an unrecognized escape is kept verbatim, backslash included.
func (lx *lexer) scanString() (Token, error) {
	start := lx.pos
	startLine := lx.line
	lx.pos++ // opening quote
	var b strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '"':
			lx.pos++
			return Token{Kind: Const, Text: lx.src[start:lx.pos],
				Value: stringVal(b.String()), Line: startLine, Pos: start}, nil
		case '\\':
			out, n, err := lx.expandEscape(lx.src[lx.pos:])
			if err != nil {
				return Token{}, err
			}
			b.WriteString(out)
			lx.pos += n
		case '\n':
			lx.line++
			b.WriteByte(c)
			lx.pos++
		default:
			b.WriteByte(c)
			lx.pos++
		}
	}
	return Token{}, &SyntaxError{Line: startLine, Pos: start, Msg: "unterminated string constant"}
}

// expandEscape decodes one backslash escape at the head of s, returning the
// expansion and the number of source bytes consumed. Unknown escapes are
// returned verbatim rather than rejected, matching string semantics; callers
// that require strict escapes check the result themselves.
func (lx *lexer) expandEscape(s string) (string, int, error) {
	if len(s) < 2 {
		return "", 0, lx.syntaxErrf(lx.pos, "dangling backslash at end of input")
	}
	c := s[1]
	switch c {
	case 'n':
		return "\n", 2, nil
	case 't':
		return "\t", 2, nil
	case 'r':
		return "\r", 2, nil
	case 'b':
		return "\b", 2, nil
	case 'f':
		return "\f", 2, nil
	case 'v':
		return "\v", 2, nil
	case 'a':
		return "\a", 2, nil
	case '\\':
		return "\\", 2, nil
	case '\'':
		return "'", 2, nil
	case '"':
		return "\"", 2, nil
	case 'x', 'X':
		n := 2
		for n < len(s) && n < 4 && isHexDigit(s[n]) {
			n++
		}
		if n == 2 {
			return "", 0, lx.syntaxErrf(lx.pos, "hexadecimal escape lacks digits")
		}
		v, err := strconv.ParseUint(s[2:n], 16, 8)
		if err != nil {
			return "", 0, lx.syntaxErrf(lx.pos, "bad hexadecimal escape %q", s[:n])
		}
		return string([]byte{byte(v)}), n, nil
	}
	if isOctalDigit(c) {
		n := 1
		for n < len(s) && n < 4 && isOctalDigit(s[n]) {
			n++
		}
		v, err := strconv.ParseUint(s[1:n], 8, 16)
		if err != nil || v > 0xff {
			return "", 0, lx.syntaxErrf(lx.pos, "bad octal escape %q", s[:n])
		}
		return string([]byte{byte(v)}), n, nil
	}
	// Unknown escape: keep it as written.
	return s[:2], 2, nil
}

// scanCharConst scans a single-quoted byte constant. The forms accepted are
// a literal byte, a named escape, an octal escape, and a hexadecimal escape.
// The decoded value must fit the byte range.
func (lx *lexer) scanCharConst() (Token, error) {
	start := lx.pos
	lx.pos++ // opening quote
	if lx.pos >= len(lx.src) {
		return Token{}, lx.syntaxErrf(start, "unterminated character constant")
	}
	var v int64
	c := lx.src[lx.pos]
	if c == '\\' {
		rest := lx.src[lx.pos:]
		if len(rest) < 2 {
			return Token{}, lx.syntaxErrf(start, "unterminated character constant")
		}
		e := rest[1]
		switch {
		case isOctalDigit(e), e == 'x', e == 'X':
			out, n, err := lx.expandEscape(rest)
			if err != nil {
				return Token{}, err
			}
			v = int64(out[0])
			lx.pos += n
		default:
			out, n, err := lx.expandEscape(rest)
			if err != nil {
				return Token{}, err
			}
			if len(out) != 1 || out[0] == '\\' && e != '\\' {
				return Token{}, lx.syntaxErrf(start, "unknown escape sequence in character constant: \\%c", e)
			}
			v = int64(out[0])
			lx.pos += n
		}
	} else if c == '\'' {
		return Token{}, lx.syntaxErrf(start, "empty character constant")
	} else {
		v = int64(c)
		lx.pos++
	}
	if lx.pos >= len(lx.src) || lx.src[lx.pos] != '\'' {
		return Token{}, lx.syntaxErrf(start, "unterminated character constant")
	}
	lx.pos++
	if v > 127 {
		return Token{}, contentErrf("byte constant %s out of range [-128, 127]", lx.src[start:lx.pos])
	}
	return Token{Kind: Const, Text: lx.src[start:lx.pos],
		Value: byteVal(int8(v)), Line: lx.line, Pos: start}, nil
}

// scanNumber scans a numeric constant. The element type is chosen from the
// suffix when one is present and from the shape of the literal otherwise:
// a fraction or exponent makes a double, anything else an int. Range is
// checked against the chosen type; an overflow is a content error, any
// other decode failure a syntax error.
func (lx *lexer) scanNumber() (Token, error) {
	start := lx.pos
	p := lx.pos
	if lx.src[p] == '+' || lx.src[p] == '-' {
		p++
	}
	digits := p

	// Hexadecimal branch.
	if p+1 < len(lx.src) && lx.src[p] == '0' && (lx.src[p+1] == 'x' || lx.src[p+1] == 'X') {
		q := p + 2
		for q < len(lx.src) && isHexDigit(lx.src[q]) {
			q++
		}
		if q == p+2 {
			// '0x' with no hex digits is the int 0 followed by an identifier.
			lx.pos = p + 1
			return Token{Kind: Const, Text: lx.src[start : p+1],
				Value: intVal(0), Line: lx.line, Pos: start}, nil
		}
		text := lx.src[start:q]
		if q < len(lx.src) && (lx.src[q] == 's' || lx.src[q] == 'S') {
			lx.pos = q + 1
			return lx.finishInteger(start, lx.src[start:q+1], text, Short)
		}
		lx.pos = q
		return lx.finishInteger(start, text, text, Int)
	}

	for p < len(lx.src) && isDigit(lx.src[p]) {
		p++
	}
	floaty := false
	if p < len(lx.src) && lx.src[p] == '.' {
		floaty = true
		p++
		for p < len(lx.src) && isDigit(lx.src[p]) {
			p++
		}
	}
	if p == digits && !floaty {
		// A bare sign with no digits: lexical noise.
		lx.noise(lx.src[start])
		return lx.next()
	}
	if p < len(lx.src) && (lx.src[p] == 'e' || lx.src[p] == 'E') {
		// Only commit to the exponent if digits follow; otherwise the 'e'
		// begins an identifier.
		q := p + 1
		if q < len(lx.src) && (lx.src[q] == '+' || lx.src[q] == '-') {
			q++
		}
		if q < len(lx.src) && isDigit(lx.src[q]) {
			for q < len(lx.src) && isDigit(lx.src[q]) {
				q++
			}
			p = q
			floaty = true
		}
	}

	num := lx.src[start:p]
	if p < len(lx.src) {
		switch lx.src[p] {
		case 'f', 'F':
			lx.pos = p + 1
			return lx.finishFloat(start, lx.src[start:p+1], num, Float)
		case 'd', 'D':
			lx.pos = p + 1
			return lx.finishFloat(start, lx.src[start:p+1], num, Double)
		case 's', 'S':
			if !floaty {
				lx.pos = p + 1
				return lx.finishInteger(start, lx.src[start:p+1], num, Short)
			}
		case 'b', 'B':
			if !floaty {
				lx.pos = p + 1
				return lx.finishInteger(start, lx.src[start:p+1], num, Byte)
			}
		}
	}
	lx.pos = p
	if floaty {
		return lx.finishFloat(start, num, num, Double)
	}
	return lx.finishInteger(start, num, num, Int)
}

// finishInteger decodes num as an integer of type t and range-checks it.
// Shorts and ints honor C-style octal and hexadecimal prefixes; bytes are
// decimal only.
func (lx *lexer) finishInteger(start int, text, num string, t DataType) (Token, error) {
	var (
		v    int64
		err  error
		bits int
	)
	switch t {
	case Byte:
		bits = 8
		v, err = strconv.ParseInt(num, 10, 64)
	case Short:
		bits = 16
		v, err = strconv.ParseInt(num, 0, 64)
	default:
		bits = 32
		v, err = strconv.ParseInt(num, 0, 64)
	}
	if err == nil {
		min := int64(-1) << (bits - 1)
		max := int64(1)<<(bits-1) - 1
		if v < min || v > max {
			return Token{}, contentErrf("%s constant %s out of range [%d, %d]", t, text, min, max)
		}
	} else if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return Token{}, contentErrf("%s constant %s out of range", t, text)
	} else if err != nil {
		return Token{}, lx.syntaxErrf(start, "malformed %s constant %q", t, text)
	}
	var val Value
	switch t {
	case Byte:
		val = byteVal(int8(v))
	case Short:
		val = shortVal(int16(v))
	default:
		val = intVal(int32(v))
	}
	return Token{Kind: Const, Text: text, Value: val, Line: lx.line, Pos: start}, nil
}

func (lx *lexer) finishFloat(start int, text, num string, t DataType) (Token, error) {
	bits := 64
	if t == Float {
		bits = 32
	}
	v, err := strconv.ParseFloat(num, bits)
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return Token{}, contentErrf("%s constant %s out of range", t, text)
	} else if err != nil {
		return Token{}, lx.syntaxErrf(start, "malformed %s constant %q", t, text)
	}
	var val Value
	if t == Float {
		val = floatVal(float32(v))
	} else {
		val = doubleVal(v)
	}
	return Token{Kind: Const, Text: text, Value: val, Line: lx.line, Pos: start}, nil
}

// scanIdent scans an identifier or keyword. A backslash escapes the next
// byte into the name, which is how CDL admits otherwise-structural
// punctuation in names.
func (lx *lexer) scanIdent() (Token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == '\\' && lx.pos+1 < len(lx.src) {
			lx.pos += 2
			continue
		}
		if lx.pos == start {
			if !identStart(c) {
				break
			}
		} else if !identCont(c) {
			break
		}
		lx.pos++
	}
	text := lx.src[start:lx.pos]
	if text == "" {
		lx.noise(lx.src[start])
		return lx.next()
	}

	if text == "_" {
		return Token{Kind: FillMark, Text: text, Value: fillVal(), Line: lx.line, Pos: start}, nil
	}

	if netcdfSpellings[text] && lx.pos < len(lx.src) &&
		(lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t') {
		return lx.scanDatasetName(start)
	}

	lower := strings.ToLower(text)
	if t, ok := typeKeywords[lower]; ok {
		return Token{Kind: TypeKeyword, Text: text, Type: t, Line: lx.line, Pos: start}, nil
	}
	if lower == "unlimited" {
		return Token{Kind: Unlimited, Text: text, Line: lx.line, Pos: start}, nil
	}
	if k, ok := sectionKeywords[lower]; ok && lx.pos < len(lx.src) && lx.src[lx.pos] == ':' {
		lx.pos++
		return Token{Kind: k, Text: text + ":", Line: lx.line, Pos: start}, nil
	}
	return Token{Kind: Ident, Text: text, Line: lx.line, Pos: start}, nil
}

// scanDatasetName consumes the rest of the 'netcdf NAME' opening up to the
// dataset body and yields a single token carrying the de-escaped name.
func (lx *lexer) scanDatasetName(start int) (Token, error) {
	nameStart := lx.pos
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '{' && lx.src[lx.pos] != '\n' {
		lx.pos++
	}
	fields := strings.Fields(lx.src[nameStart:lx.pos])
	if len(fields) == 0 {
		return Token{}, lx.syntaxErrf(start, "a netCDF name is required after the netcdf keyword")
	}
	return Token{Kind: Netcdf, Text: deescape(fields[0]), Line: lx.line, Pos: start}, nil
}

// deescape strips name escapes: '\\' collapses to a single backslash and a
// lone backslash is deleted along with nothing, exposing the escaped byte.
func deescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			if i+1 < len(s) && s[i+1] == '\\' {
				b.WriteByte('\\')
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Tokens scans src to completion and returns every token up to and including
// the end-of-input marker. It is the engine behind the token-dump command and
// is convenient in tests.
func Tokens(src string) ([]Token, []Diagnostic, error) {
	lx := newLexer(src, nil)
	var toks []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return toks, lx.diags, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, lx.diags, nil
		}
	}
}
