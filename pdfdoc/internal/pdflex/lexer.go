// Package pdflex is the low-level tokenizer that turns raw PDF bytes into
// pdfgraph values. It stands in for the "external" PDF tokenizer that the
// document mutator delegates to when opening an existing file: locating an
// object's byte offset and full parsing/rewriting of an object's own
// content are the tokenizer's job, not the mutator's.
package pdflex

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/opensig/pdfmut/pdfgraph"
)

// Lexer scans PDF object syntax out of an in-memory byte buffer.
type Lexer struct {
	data []byte
	pos  int
}

// New returns a Lexer positioned at the start of data.
func New(data []byte) *Lexer { return &Lexer{data: data} }

// At returns a lexer positioned at byte offset pos within the same buffer.
func At(data []byte, pos int) *Lexer { return &Lexer{data: data, pos: pos} }

// Pos returns the current byte offset.
func (l *Lexer) Pos() int { return l.pos }

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == 0 || b == '\f'
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *Lexer) peek() (byte, bool) {
	if l.pos >= len(l.data) {
		return 0, false
	}
	return l.data[l.pos], true
}

func (l *Lexer) next() (byte, bool) {
	b, ok := l.peek()
	if ok {
		l.pos++
	}
	return b, ok
}

// SkipWhitespace skips PDF whitespace and % comments.
func (l *Lexer) SkipWhitespace() {
	for {
		b, ok := l.peek()
		if !ok {
			return
		}
		switch {
		case isWhitespace(b):
			l.pos++
		case b == '%':
			for {
				c, ok := l.next()
				if !ok || c == '\n' || c == '\r' {
					break
				}
			}
		default:
			return
		}
	}
}

func (l *Lexer) readToken() string {
	l.SkipWhitespace()
	start := l.pos
	for {
		b, ok := l.peek()
		if !ok || isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// ParseValue parses one PDF value at the current position.
func (l *Lexer) ParseValue() (pdfgraph.Value, error) {
	l.SkipWhitespace()
	b, ok := l.peek()
	if !ok {
		return nil, fmt.Errorf("pdflex: unexpected end of input")
	}
	switch {
	case b == '(':
		return l.parseLiteralString()
	case b == '<':
		return l.parseHexOrDict()
	case b == '[':
		return l.parseArray()
	case b == '/':
		return l.parseName()
	case b == 't' || b == 'f':
		return l.parseBoolean()
	case b == 'n':
		return l.parseNull()
	case b == '-' || b == '+' || b == '.' || (b >= '0' && b <= '9'):
		return l.parseNumber()
	default:
		return nil, fmt.Errorf("pdflex: unexpected byte %q at offset %d", b, l.pos)
	}
}

// ParseValueOrReference parses a value, disambiguating "N G R" references
// from a bare leading integer.
func (l *Lexer) ParseValueOrReference() (pdfgraph.Value, error) {
	l.SkipWhitespace()
	b, ok := l.peek()
	if !ok || b < '0' || b > '9' {
		return l.ParseValue()
	}

	save := l.pos
	first, err := l.parseNumber()
	if err != nil {
		return nil, err
	}
	firstInt, ok := first.(pdfgraph.Integer)
	if !ok {
		return first, nil
	}

	l.SkipWhitespace()
	if b, ok := l.peek(); !ok || b < '0' || b > '9' {
		return first, nil
	}
	genPos := l.pos
	second, err := l.parseNumber()
	if err != nil {
		l.pos = save
		return l.parseNumber()
	}
	secondInt, ok := second.(pdfgraph.Integer)
	if !ok {
		l.pos = save
		return l.parseNumber()
	}

	l.SkipWhitespace()
	if b, ok := l.next(); !ok || b != 'R' {
		l.pos = genPos
		return firstInt, nil
	}
	return pdfgraph.Reference{
		ObjectNumber:     uint32(firstInt),
		GenerationNumber: uint16(secondInt),
	}, nil
}

func (l *Lexer) parseLiteralString() (pdfgraph.Value, error) {
	if b, _ := l.next(); b != '(' {
		return nil, fmt.Errorf("pdflex: expected '('")
	}
	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		b, ok := l.next()
		if !ok {
			return nil, fmt.Errorf("pdflex: unterminated literal string")
		}
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			esc, ok := l.next()
			if !ok {
				return nil, fmt.Errorf("pdflex: unterminated escape")
			}
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(esc)
			case '\r':
				if b2, ok := l.peek(); ok && b2 == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if esc >= '0' && esc <= '7' {
					octal := []byte{esc}
					for i := 0; i < 2; i++ {
						c, ok := l.peek()
						if !ok || c < '0' || c > '7' {
							break
						}
						octal = append(octal, c)
						l.pos++
					}
					v, _ := strconv.ParseInt(string(octal), 8, 16)
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(esc)
				}
			}
		default:
			buf.WriteByte(b)
		}
	}
	return pdfgraph.NewLiteralString(buf.String()), nil
}

func (l *Lexer) parseHexOrDict() (pdfgraph.Value, error) {
	if b, _ := l.next(); b != '<' {
		return nil, fmt.Errorf("pdflex: expected '<'")
	}
	if b, ok := l.peek(); ok && b == '<' {
		l.pos++
		return l.parseDictOrStream()
	}
	return l.parseHexString()
}

func (l *Lexer) parseHexString() (pdfgraph.Value, error) {
	var buf bytes.Buffer
	for {
		b, ok := l.next()
		if !ok {
			return nil, fmt.Errorf("pdflex: unterminated hex string")
		}
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		buf.WriteByte(b)
	}
	s := buf.String()
	if len(s)%2 != 0 {
		s += "0"
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("pdflex: invalid hex string: %w", err)
	}
	return pdfgraph.NewHexString(data), nil
}

// parseDictOrStream parses a dictionary body after its opening "<<". It
// does not consume a following "stream" keyword or stream bytes;
// ParseIndirectObject reads those itself.
func (l *Lexer) parseDictOrStream() (pdfgraph.Value, error) {
	dict := pdfgraph.NewDictionary()
	for {
		l.SkipWhitespace()
		b, ok := l.peek()
		if !ok {
			return nil, fmt.Errorf("pdflex: unterminated dictionary")
		}
		if b == '>' {
			l.pos++
			if b2, ok := l.next(); !ok || b2 != '>' {
				return nil, fmt.Errorf("pdflex: expected '>>'")
			}
			break
		}
		key, err := l.parseName()
		if err != nil {
			return nil, err
		}
		val, err := l.ParseValueOrReference()
		if err != nil {
			return nil, fmt.Errorf("pdflex: dictionary value for /%s: %w", key.(pdfgraph.Name), err)
		}
		dict.Set(string(key.(pdfgraph.Name)), val)
	}
	return dict, nil
}

func (l *Lexer) parseArray() (pdfgraph.Value, error) {
	if b, _ := l.next(); b != '[' {
		return nil, fmt.Errorf("pdflex: expected '['")
	}
	var arr pdfgraph.Array
	for {
		l.SkipWhitespace()
		b, ok := l.peek()
		if !ok {
			return nil, fmt.Errorf("pdflex: unterminated array")
		}
		if b == ']' {
			l.pos++
			break
		}
		v, err := l.ParseValueOrReference()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	return arr, nil
}

func (l *Lexer) parseName() (pdfgraph.Value, error) {
	if b, _ := l.next(); b != '/' {
		return nil, fmt.Errorf("pdflex: expected '/'")
	}
	var buf bytes.Buffer
	for {
		b, ok := l.peek()
		if !ok || isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
		if b == '#' {
			h1, ok1 := l.next()
			h2, ok2 := l.next()
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("pdflex: truncated name hex escape")
			}
			v, err := strconv.ParseInt(string([]byte{h1, h2}), 16, 16)
			if err != nil {
				return nil, fmt.Errorf("pdflex: invalid name hex escape: %w", err)
			}
			buf.WriteByte(byte(v))
			continue
		}
		buf.WriteByte(b)
	}
	return pdfgraph.Name(buf.String()), nil
}

func (l *Lexer) parseBoolean() (pdfgraph.Value, error) {
	tok := l.readToken()
	switch tok {
	case "true":
		return pdfgraph.Boolean(true), nil
	case "false":
		return pdfgraph.Boolean(false), nil
	default:
		return nil, fmt.Errorf("pdflex: expected boolean, got %q", tok)
	}
}

func (l *Lexer) parseNull() (pdfgraph.Value, error) {
	if tok := l.readToken(); tok != "null" {
		return nil, fmt.Errorf("pdflex: expected 'null', got %q", tok)
	}
	return pdfgraph.Null{}, nil
}

func (l *Lexer) parseNumber() (pdfgraph.Value, error) {
	start := l.pos
	hasDecimal := false
	for {
		b, ok := l.peek()
		if !ok {
			break
		}
		switch {
		case b == '.' && !hasDecimal:
			hasDecimal = true
			l.pos++
		case (b == '-' || b == '+') && l.pos == start:
			l.pos++
		case b >= '0' && b <= '9':
			l.pos++
		default:
			goto done
		}
	}
done:
	s := string(l.data[start:l.pos])
	if s == "" || s == "-" || s == "+" || s == "." {
		return nil, fmt.Errorf("pdflex: invalid number %q", s)
	}
	if hasDecimal {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("pdflex: invalid real %q: %w", s, err)
		}
		return pdfgraph.Real(v), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("pdflex: invalid integer %q: %w", s, err)
	}
	return pdfgraph.Integer(v), nil
}

// ReadToken exposes readToken for callers that need to match fixed
// keywords such as "obj", "endobj", "stream", "xref", "trailer".
func (l *Lexer) ReadToken() string { return l.readToken() }

// PeekKeyword reports whether the upcoming bytes (ignoring leading
// whitespace) spell keyword exactly, without consuming input.
func (l *Lexer) PeekKeyword(keyword string) bool {
	save := l.pos
	tok := l.readToken()
	l.pos = save
	return tok == keyword
}

// ParseIndirectObject parses "oid gen obj ... [stream ... endstream] endobj"
// starting at the current position, returning the parsed object and the
// generation-agnostic value/stream split.
func (l *Lexer) ParseIndirectObject() (oid uint32, gen uint16, value pdfgraph.Value, stream []byte, err error) {
	numVal, err := l.parseNumber()
	if err != nil {
		return 0, 0, nil, nil, fmt.Errorf("pdflex: object number: %w", err)
	}
	oidInt, ok := numVal.(pdfgraph.Integer)
	if !ok {
		return 0, 0, nil, nil, fmt.Errorf("pdflex: object number must be an integer")
	}
	l.SkipWhitespace()
	genVal, err := l.parseNumber()
	if err != nil {
		return 0, 0, nil, nil, fmt.Errorf("pdflex: generation number: %w", err)
	}
	genInt, ok := genVal.(pdfgraph.Integer)
	if !ok {
		return 0, 0, nil, nil, fmt.Errorf("pdflex: generation number must be an integer")
	}
	l.SkipWhitespace()
	if tok := l.readToken(); tok != "obj" {
		return 0, 0, nil, nil, fmt.Errorf("pdflex: expected 'obj', got %q", tok)
	}

	value, err = l.ParseValueOrReference()
	if err != nil {
		return 0, 0, nil, nil, err
	}

	l.SkipWhitespace()
	if l.PeekKeyword("stream") {
		l.readToken()
		if b, ok := l.peek(); ok && b == '\r' {
			l.pos++
		}
		if b, ok := l.peek(); ok && b == '\n' {
			l.pos++
		}
		dict, ok := value.(*pdfgraph.Dictionary)
		if !ok {
			return 0, 0, nil, nil, fmt.Errorf("pdflex: stream keyword without dictionary")
		}
		length, _ := dict.GetInt("Length")
		if length < 0 || int(length) > len(l.data)-l.pos {
			length = 0
		}
		stream = make([]byte, length)
		copy(stream, l.data[l.pos:l.pos+int(length)])
		l.pos += int(length)
		l.SkipWhitespace()
		l.readToken() // "endstream"
	}

	l.SkipWhitespace()
	l.readToken() // "endobj", tolerated if absent

	return uint32(oidInt), uint16(genInt), value, stream, nil
}
