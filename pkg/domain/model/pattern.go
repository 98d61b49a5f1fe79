package model

import "strings"

const (
	segmentSeparator = "|"
	termSeparator    = ","
	regexPrefix      = "regex:"
)

// SegmentKind tags a pattern segment as a keyword list or a regex list
type SegmentKind int

const (
	SegmentKeywords SegmentKind = iota
	SegmentRegex
)

// String returns the string representation of the segment kind
func (k SegmentKind) String() string {
	switch k {
	case SegmentRegex:
		return "regex"
	default:
		return "keywords"
	}
}

// PatternSegment is one `|`-separated piece of a rule pattern.
// Terms are trimmed and never empty.
type PatternSegment struct {
	Kind  SegmentKind
	Terms []string
}

// Pattern is the structured form of a rule's raw pattern string
type Pattern struct {
	Keywords []string
	Regex    []string
}

// ParsePattern splits a raw pattern into typed segments.
//
//	"허위, 과장 | regex: \d+% 효과"  ->  [Keywords(허위, 과장), Regex(\d+% 효과)]
//
// Blank segments are dropped. Regex sources are not compiled.
func ParsePattern(raw string) []PatternSegment {
	var segments []PatternSegment
	for _, part := range strings.Split(raw, segmentSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(part, regexPrefix); ok {
			segments = append(segments, PatternSegment{Kind: SegmentRegex, Terms: splitTerms(rest)})
			continue
		}
		segments = append(segments, PatternSegment{Kind: SegmentKeywords, Terms: splitTerms(part)})
	}
	return segments
}

func splitTerms(s string) []string {
	terms := []string{}
	for _, term := range strings.Split(s, termSeparator) {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// DecodePattern folds the segments of raw into keyword and regex lists,
// preserving segment order and then term order. Both lists are non-nil.
func DecodePattern(raw string) Pattern {
	p := Pattern{
		Keywords: []string{},
		Regex:    []string{},
	}
	for _, seg := range ParsePattern(raw) {
		switch seg.Kind {
		case SegmentRegex:
			p.Regex = append(p.Regex, seg.Terms...)
		default:
			p.Keywords = append(p.Keywords, seg.Terms...)
		}
	}
	return p
}

// Encode renders the pattern back to its raw string form:
// "kw1, kw2 | regex: re1, re2". The separator is omitted when there are no keywords.
func (p Pattern) Encode() string {
	var b strings.Builder
	b.WriteString(strings.Join(p.Keywords, termSeparator+" "))
	if len(p.Regex) > 0 {
		if b.Len() > 0 {
			b.WriteString(" " + segmentSeparator + " ")
		}
		b.WriteString(regexPrefix + " ")
		b.WriteString(strings.Join(p.Regex, termSeparator+" "))
	}
	return b.String()
}

// EncodePattern is a shorthand for Pattern{Keywords: keywords, Regex: regex}.Encode()
func EncodePattern(keywords, regex []string) string {
	return Pattern{Keywords: keywords, Regex: regex}.Encode()
}
