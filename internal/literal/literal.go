// Package literal parses the restricted, Python-flavoured literal syntax used by
// list sources such as "[1, 2, 3]" or "['a', \"b\"]".
//
// Only data is accepted: integers, floats, quoted strings (optionally with a
// u, r or b prefix), True, False, None, (nested) lists, tuples and parenthesised
// values. A number may carry a single leading sign. Names, calls and every
// other expression form are syntax errors.
package literal

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

var ErrNotList = errors.New("literal is not a list")

// ElementTypeError reports a list element whose type differs from the expected one.
type ElementTypeError struct {
	Index int
	Want  string
	Got   string
}

func (e *ElementTypeError) Error() string {
	return fmt.Sprintf("element %d is %s, expected %s", e.Index, e.Got, e.Want)
}

// Tuple is a parenthesised, comma separated sequence such as (1, 2).
type Tuple []any

// Parse parses src as a single literal value. The result is one of int64,
// float64, string, []byte, bool, nil, []any or Tuple.
func Parse(src string) (any, error) {
	p := &parser{src: src}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input %q", p.src[p.pos:])
	}
	return v, nil
}

func ParseIntList(src string) ([]int64, error) {
	items, err := parseList(src)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(items))
	for i, item := range items {
		n, ok := item.(int64)
		if !ok {
			return nil, &ElementTypeError{Index: i, Want: "int", Got: TypeName(item)}
		}
		out[i] = n
	}
	return out, nil
}

func ParseStrList(src string) ([]string, error) {
	items, err := parseList(src)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &ElementTypeError{Index: i, Want: "str", Got: TypeName(item)}
		}
		out[i] = s
	}
	return out, nil
}

func parseList(src string) ([]any, error) {
	v, err := Parse(src)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, ErrNotList
	}
	return items, nil
}

// TypeName names a parsed value the way the schema language does.
func TypeName(v any) string {
	switch v.(type) {
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case bool:
		return "bool"
	case nil:
		return "None"
	case []any:
		return "list"
	case Tuple:
		return "tuple"
	case []byte:
		return "bytes"
	default:
		return fmt.Sprintf("%T", v)
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) value() (any, error) {
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}
	c := p.peek()
	switch {
	case c == '[':
		p.pos++
		return p.elements(']', make([]any, 0))
	case c == '(':
		return p.parenthesized()
	case c == '\'' || c == '"':
		return p.strings()
	case c == '-' || c == '+':
		return p.signed()
	case c == '.' || isDigit(c):
		v, err := p.number()
		if _, big := v.(uint64); big {
			return nil, p.errorf("integer out of range")
		}
		return v, err
	case isIdentStart(c):
		if p.stringPrefix() > 0 {
			return p.strings()
		}
		return p.keyword()
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

// elements parses comma separated values up to close. The opening bracket has
// already been consumed.
func (p *parser) elements(close byte, items []any) ([]any, error) {
	for {
		p.skipSpace()
		if p.peek() == close {
			p.pos++
			return items, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case close:
			p.pos++
			return items, nil
		case 0:
			return nil, p.errorf("unterminated %q", close)
		default:
			return nil, p.errorf("expected ',' or %q, got %q", close, p.peek())
		}
	}
}

// parenthesized parses (v) as v, and (), (v,) or (v, w) as a Tuple.
func (p *parser) parenthesized() (any, error) {
	p.pos++ // '('
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return Tuple{}, nil
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	switch p.peek() {
	case ')':
		p.pos++
		return v, nil
	case ',':
		p.pos++
		items, err := p.elements(')', []any{v})
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case 0:
		return nil, p.errorf("unterminated '('")
	default:
		return nil, p.errorf("expected ',' or ')', got %q", p.peek())
	}
}

// signed parses one sign applied to a number. The number may be wrapped in
// parentheses, but a second sign is an operator on an expression and is
// rejected.
func (p *parser) signed() (any, error) {
	neg := p.peek() == '-'
	p.pos++
	p.skipSpace()
	depth := 0
	for p.peek() == '(' {
		depth++
		p.pos++
		p.skipSpace()
	}
	if c := p.peek(); c != '.' && !isDigit(c) {
		return nil, p.errorf("sign must be followed by a number")
	}
	v, err := p.number()
	if err != nil {
		return nil, err
	}
	for ; depth > 0; depth-- {
		p.skipSpace()
		if p.peek() != ')' {
			return nil, p.errorf("expected ')', got %q", p.peek())
		}
		p.pos++
	}
	if !neg {
		if _, big := v.(uint64); big {
			return nil, p.errorf("integer out of range")
		}
		return v, nil
	}
	switch n := v.(type) {
	case int64:
		if n == math.MinInt64 {
			return nil, p.errorf("integer out of range")
		}
		return -n, nil
	case uint64:
		// only reachable for the magnitude of math.MinInt64
		return int64(math.MinInt64), nil
	case float64:
		return -n, nil
	}
	return nil, p.errorf("sign must be followed by a number")
}

func (p *parser) number() (any, error) {
	start := p.pos
	if p.peek() == '0' && p.pos+1 < len(p.src) {
		switch p.src[p.pos+1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			p.pos += 2
			for p.pos < len(p.src) && (isHexDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
				p.pos++
			}
			return p.integer(start, p.src[start:p.pos])
		}
	}

	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isDigit(c) || c == '_':
			p.pos++
		case c == '.':
			isFloat = true
			p.pos++
		case c == 'e' || c == 'E':
			isFloat = true
			p.pos++
			if p.peek() == '+' || p.peek() == '-' {
				p.pos++
			}
		default:
			goto done
		}
	}
done:
	text := p.src[start:p.pos]
	if p.pos < len(p.src) && isIdentStart(p.src[p.pos]) {
		return nil, p.errorf("invalid number literal %q", text+string(p.src[p.pos]))
	}
	if isFloat {
		if !validUnderscores(text) {
			return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("invalid number literal %q", text)}
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if err != nil {
			return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("invalid number literal %q", text)}
		}
		return f, nil
	}
	if len(text) > 1 && text[0] == '0' && strings.Trim(text, "0_") != "" {
		return nil, &SyntaxError{Offset: start, Msg: "leading zeros in decimal integer literals are not permitted"}
	}
	return p.integer(start, text)
}

func (p *parser) integer(start int, text string) (any, error) {
	if !validUnderscores(text) {
		return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("invalid number literal %q", text)}
	}
	// base 0 accepts the 0x/0o/0b prefixes and '_' separators
	n, err := strconv.ParseInt(text, 0, 64)
	if err == nil {
		return n, nil
	}
	if u, uerr := strconv.ParseUint(text, 0, 64); uerr == nil && u == 1<<63 {
		return u, nil
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("integer %s out of range", text)}
	}
	return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("invalid number literal %q", text)}
}

func (p *parser) keyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && (isIdentStart(p.src[p.pos]) || isDigit(p.src[p.pos])) {
		p.pos++
	}
	switch word := p.src[start:p.pos]; word {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	default:
		return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("name %q is not a literal", word)}
	}
}

// stringPrefix returns the length of a u, r, b, br or rb prefix (any case)
// directly followed by a quote at the current position, or 0.
func (p *parser) stringPrefix() int {
	for n := 1; n <= 2 && p.pos+n < len(p.src); n++ {
		if q := p.src[p.pos+n]; q == '\'' || q == '"' {
			switch strings.ToLower(p.src[p.pos : p.pos+n]) {
			case "u", "r", "b", "br", "rb":
				return n
			}
			return 0
		}
	}
	return 0
}

// strings parses one or more adjacent string literals and concatenates them.
// Bytes and text literals cannot be mixed.
func (p *parser) strings() (any, error) {
	var sb strings.Builder
	first := true
	isBytes := false
	for {
		start := p.pos
		prefix := strings.ToLower(p.src[p.pos : p.pos+p.stringPrefix()])
		p.pos += len(prefix)
		b := strings.Contains(prefix, "b")
		if !first && b != isBytes {
			return nil, &SyntaxError{Offset: start, Msg: "cannot mix bytes and nonbytes literals"}
		}
		first, isBytes = false, b
		s, err := p.quoted(strings.Contains(prefix, "r"), b)
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
		save := p.pos
		p.skipSpace()
		if c := p.peek(); c != '\'' && c != '"' && p.stringPrefix() == 0 {
			p.pos = save
			if isBytes {
				return []byte(sb.String()), nil
			}
			return sb.String(), nil
		}
	}
}

func (p *parser) quoted(raw, isBytes bool) (string, error) {
	quote := p.src[p.pos]
	start := p.pos
	p.pos++
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", &SyntaxError{Offset: start, Msg: "unterminated string literal"}
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\n':
			return "", &SyntaxError{Offset: start, Msg: "unterminated string literal"}
		case c == '\\' && raw:
			// the backslash stays, and the next character cannot end the string
			sb.WriteByte(c)
			p.pos++
			if p.pos < len(p.src) {
				r, size := utf8.DecodeRuneInString(p.src[p.pos:])
				sb.WriteRune(r)
				p.pos += size
			}
		case c == '\\':
			if err := p.escape(&sb, isBytes); err != nil {
				return "", err
			}
		case isBytes && c >= utf8.RuneSelf:
			return "", p.errorf("bytes can only contain ASCII literal characters")
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			sb.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *parser) escape(sb *strings.Builder, isBytes bool) error {
	p.pos++ // '\'
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape sequence")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\n':
	case '\\', '\'', '"':
		sb.WriteByte(c)
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case 'x':
		return p.hexEscape(sb, 2, isBytes)
	case 'u', 'U':
		if isBytes {
			sb.WriteByte('\\')
			sb.WriteByte(c)
			return nil
		}
		if c == 'u' {
			return p.hexEscape(sb, 4, false)
		}
		return p.hexEscape(sb, 8, false)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := int(c - '0')
		for i := 0; i < 2 && p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '7'; i++ {
			n = n*8 + int(p.src[p.pos]-'0')
			p.pos++
		}
		if isBytes {
			sb.WriteByte(byte(n))
		} else {
			sb.WriteRune(rune(n))
		}
	default:
		// unknown escapes are kept verbatim
		sb.WriteByte('\\')
		sb.WriteByte(c)
	}
	return nil
}

func (p *parser) hexEscape(sb *strings.Builder, digits int, isBytes bool) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated \\x escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("invalid hex escape %q", p.src[p.pos:p.pos+digits])
	}
	if n > utf8.MaxRune {
		return p.errorf("illegal Unicode character in escape")
	}
	p.pos += digits
	if isBytes {
		sb.WriteByte(byte(n))
	} else {
		sb.WriteRune(rune(n))
	}
	return nil
}

func validUnderscores(text string) bool {
	if strings.HasPrefix(text, "_") || strings.HasSuffix(text, "_") || strings.Contains(text, "__") {
		return false
	}
	for i := 1; i < len(text)-1; i++ {
		if text[i] == '_' && !(isHexDigit(text[i-1]) && isHexDigit(text[i+1])) {
			// allow the 0x_ff form
			if !(i == 2 && text[0] == '0' && strings.ContainsRune("xXoObB", rune(text[1]))) {
				return false
			}
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
