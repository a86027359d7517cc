// Copyright 2025 Joseph Cumines
//
// Element path parser

package ax

import (
	"strconv"
	"strings"
)

// Parse converts path text into an ElementPath. It is total over well-formed
// input and fails fast with a MalformedPathError naming the specific
// violation and its byte offset; it never returns a generic parse error.
func Parse(text string) (ElementPath, error) {
	p := &pathScanner{text: text}
	return p.parse()
}

// MustParse is Parse for compile-time-constant paths in tests and examples.
// It panics on malformed input.
func MustParse(text string) ElementPath {
	path, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return path
}

type pathScanner struct {
	text string
	pos  int
}

func (p *pathScanner) fail(offset int, detail string) (ElementPath, error) {
	return ElementPath{}, &MalformedPathError{Text: p.text, Offset: offset, Detail: detail}
}

func (p *pathScanner) errAt(offset int, detail string) error {
	return &MalformedPathError{Text: p.text, Offset: offset, Detail: detail}
}

func (p *pathScanner) parse() (ElementPath, error) {
	marker := Scheme + "://"
	if !strings.HasPrefix(p.text, marker) {
		return p.fail(0, "missing "+marker+" scheme")
	}
	p.pos = len(marker)

	authority := p.takeUntil('/')
	if authority == "" {
		return p.fail(p.pos, "empty authority")
	}

	var segments []Segment
	for p.pos < len(p.text) {
		if p.text[p.pos] != '/' {
			return p.fail(p.pos, "expected '/' before segment")
		}
		p.pos++ // consume '/'
		seg, err := p.parseSegment()
		if err != nil {
			return ElementPath{}, err
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return p.fail(p.pos, "path has no segments")
	}
	return ElementPath{Authority: authority, Segments: segments}, nil
}

// takeUntil consumes up to (not including) the next occurrence of stop, or
// the rest of the input.
func (p *pathScanner) takeUntil(stop byte) string {
	start := p.pos
	for p.pos < len(p.text) && p.text[p.pos] != stop {
		p.pos++
	}
	return p.text[start:p.pos]
}

func (p *pathScanner) parseSegment() (Segment, error) {
	seg := Segment{Index: NoIndex}

	start := p.pos
	for p.pos < len(p.text) && !isSegmentDelim(p.text[p.pos]) {
		p.pos++
	}
	role := p.text[start:p.pos]
	if role == "" {
		return seg, p.errAt(start, "empty role")
	}
	seg.Role = Role(role)

	if p.pos < len(p.text) && p.text[p.pos] == '[' {
		preds, err := p.parsePredicates()
		if err != nil {
			return seg, err
		}
		seg.Predicates = preds
	}

	if p.pos < len(p.text) && p.text[p.pos] == '#' {
		p.pos++ // consume '#'
		digitStart := p.pos
		for p.pos < len(p.text) && p.text[p.pos] != '/' {
			p.pos++
		}
		digits := p.text[digitStart:p.pos]
		idx, err := strconv.Atoi(digits)
		if err != nil || idx < 0 {
			return seg, p.errAt(digitStart, "index must be a non-negative integer, got "+strconv.Quote(digits))
		}
		seg.Index = idx
	}

	if p.pos < len(p.text) && p.text[p.pos] != '/' {
		return seg, p.errAt(p.pos, "unexpected character "+strconv.Quote(string(p.text[p.pos]))+" after segment")
	}
	return seg, nil
}

func isSegmentDelim(c byte) bool {
	return c == '/' || c == '[' || c == '#'
}

func (p *pathScanner) parsePredicates() ([]Predicate, error) {
	open := p.pos
	p.pos++ // consume '['
	var preds []Predicate
	for {
		if p.pos >= len(p.text) {
			return nil, p.errAt(open, "unterminated predicate list")
		}

		nameStart := p.pos
		for p.pos < len(p.text) && p.text[p.pos] != '=' && p.text[p.pos] != ',' && p.text[p.pos] != ']' {
			p.pos++
		}
		if p.pos >= len(p.text) || p.text[p.pos] != '=' {
			return nil, p.errAt(nameStart, "predicate missing '='")
		}
		name := p.text[nameStart:p.pos]
		if name == "" {
			return nil, p.errAt(nameStart, "empty predicate name")
		}
		p.pos++ // consume '='

		value, err := p.parsePredicateValue()
		if err != nil {
			return nil, err
		}
		preds = append(preds, Predicate{Name: name, Value: value})

		if p.pos >= len(p.text) {
			return nil, p.errAt(open, "unterminated predicate list")
		}
		switch p.text[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return preds, nil
		default:
			return nil, p.errAt(p.pos, "expected ',' or ']' after predicate value")
		}
	}
}

// parsePredicateValue reads either a quoted value (double quotes, backslash
// escapes, may contain any delimiter) or a bare value terminated by ',' or
// ']'.
func (p *pathScanner) parsePredicateValue() (string, error) {
	if p.pos < len(p.text) && p.text[p.pos] == '"' {
		quoteStart := p.pos
		p.pos++ // consume opening quote
		var b strings.Builder
		for p.pos < len(p.text) {
			c := p.text[p.pos]
			if c == '\\' {
				if p.pos+1 >= len(p.text) {
					return "", p.errAt(p.pos, "dangling escape in quoted value")
				}
				p.pos++
				b.WriteByte(p.text[p.pos])
				p.pos++
				continue
			}
			if c == '"' {
				p.pos++ // consume closing quote
				return b.String(), nil
			}
			b.WriteByte(c)
			p.pos++
		}
		return "", p.errAt(quoteStart, "unterminated quote")
	}

	start := p.pos
	for p.pos < len(p.text) && p.text[p.pos] != ',' && p.text[p.pos] != ']' {
		p.pos++
	}
	return p.text[start:p.pos], nil
}
