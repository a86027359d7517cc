// Copyright 2025 Joseph Cumines
//
// Element path model and text formatting

package ax

import (
	"strconv"
	"strings"
)

// Scheme is the URI scheme that marks a string as a UI element address.
const Scheme = "ui"

// NoIndex is the Segment.Index value when no ordinal disambiguator was
// given.
const NoIndex = -1

// Predicate is one attribute constraint within a segment. All predicates of
// a segment must hold (logical AND).
type Predicate struct {
	Name  string
	Value string
}

// Segment is one addressing step: a required role, zero or more attribute
// predicates, and an optional zero-based index applied to the filtered,
// order-preserving match list.
type Segment struct {
	Role       Role
	Predicates []Predicate
	Index      int
}

// HasIndex reports whether the segment carries an ordinal disambiguator.
func (s Segment) HasIndex() bool { return s.Index != NoIndex }

// ElementPath is an ordered, non-empty sequence of segments plus the
// authority carried by the original text. Segments apply strictly left to
// right, each narrowing the previous segment's result.
type ElementPath struct {
	Authority string
	Segments  []Segment
}

// predicateNeedsQuote are the value characters that collide with the
// grammar's delimiters.
const predicateNeedsQuote = `/,]#"`

// String formats the path as text. It is the inverse of Parse: for any path
// produced by Parse, Parse(path.String()) yields an equal path.
func (p ElementPath) String() string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString("://")
	b.WriteString(p.Authority)
	for _, seg := range p.Segments {
		b.WriteByte('/')
		writeSegment(&b, seg)
	}
	return b.String()
}

func writeSegment(b *strings.Builder, seg Segment) {
	b.WriteString(string(seg.Role))
	if len(seg.Predicates) > 0 {
		b.WriteByte('[')
		for i, pr := range seg.Predicates {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(pr.Name)
			b.WriteByte('=')
			writeValue(b, pr.Value)
		}
		b.WriteByte(']')
	}
	if seg.HasIndex() {
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(seg.Index))
	}
}

// writeValue quotes the value when it is empty or contains a grammar
// delimiter; quote and backslash characters are backslash-escaped.
func writeValue(b *strings.Builder, v string) {
	if v != "" && !strings.ContainsAny(v, predicateNeedsQuote) && !strings.ContainsAny(v, `\`) {
		b.WriteString(v)
		return
	}
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
}

// Equal reports whether two paths are structurally identical, including
// predicate order.
func (p ElementPath) Equal(other ElementPath) bool {
	if p.Authority != other.Authority || len(p.Segments) != len(other.Segments) {
		return false
	}
	for i, seg := range p.Segments {
		o := other.Segments[i]
		if seg.Role != o.Role || seg.Index != o.Index || len(seg.Predicates) != len(o.Predicates) {
			return false
		}
		for j, pr := range seg.Predicates {
			if pr != o.Predicates[j] {
				return false
			}
		}
	}
	return true
}

// Child returns a copy of p extended with one more segment.
func (p ElementPath) Child(seg Segment) ElementPath {
	segs := make([]Segment, len(p.Segments), len(p.Segments)+1)
	copy(segs, p.Segments)
	return ElementPath{Authority: p.Authority, Segments: append(segs, seg)}
}
