// Package byterange parses HTTP Range headers and resolves them against a
// representation length (RFC 7233).
//
// Parsing and resolution are separate steps: the header is parsed once, and
// resolved against the length of whichever content coding was selected.
// Ranges keep the order the client sent them in; overlapping ranges are
// neither merged nor sorted.
package byterange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsatisfiable is returned by Resolve when no range fits the representation.
var ErrUnsatisfiable = errors.New("range not satisfiable")

// DefaultMaxRanges caps the number of ranges accepted in one header.
const DefaultMaxRanges = 100

const unit = "bytes"

// Kind selects which fields of a Spec are meaningful.
type Kind int

const (
	// FromTo is "first-last".
	FromTo Kind = iota
	// FromOffset is "first-".
	FromOffset
	// Suffix is "-length".
	Suffix
)

// Spec is one byte-range-spec or suffix-byte-range-spec as sent by the client.
type Spec struct {
	Kind   Kind
	Start  uint64 // FromTo, FromOffset
	End    uint64 // FromTo, inclusive
	Length uint64 // Suffix
}

func (s Spec) String() string {
	switch s.Kind {
	case FromTo:
		return fmt.Sprintf("%d-%d", s.Start, s.End)
	case FromOffset:
		return fmt.Sprintf("%d-", s.Start)
	default:
		return fmt.Sprintf("-%d", s.Length)
	}
}

// Range is a satisfiable byte range of a representation of length Total.
type Range struct {
	Start uint64
	End   uint64 // inclusive
	Total uint64
}

// Length returns the number of bytes in the range.
func (r Range) Length() uint64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for the range.
func (r Range) ContentRange() string {
	return fmt.Sprintf("%s %d-%d/%d", unit, r.Start, r.End, r.Total)
}

// UnsatisfiedContentRange is the Content-Range value of a 416 response.
func UnsatisfiedContentRange(length uint64) string {
	return fmt.Sprintf("%s */%d", unit, length)
}

// Parse parses a Range header value. ok is false when the header must be
// ignored: unknown unit, syntax error, or more than maxRanges specs.
// maxRanges <= 0 means DefaultMaxRanges.
func Parse(header string, maxRanges int) (specs []Spec, ok bool) {
	if maxRanges <= 0 {
		maxRanges = DefaultMaxRanges
	}

	name, set, found := strings.Cut(strings.TrimSpace(header), "=")
	if !found || !strings.EqualFold(strings.TrimSpace(name), unit) {
		return nil, false
	}

	for _, part := range strings.Split(set, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		spec, ok := parseSpec(part)
		if !ok {
			return nil, false
		}
		if len(specs) == maxRanges {
			return nil, false
		}
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, false
	}
	return specs, true
}

func parseSpec(s string) (Spec, bool) {
	first, last, found := strings.Cut(s, "-")
	if !found {
		return Spec{}, false
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	switch {
	case first == "" && last == "":
		return Spec{}, false
	case first == "":
		n, ok := parseUint(last)
		if !ok {
			return Spec{}, false
		}
		return Spec{Kind: Suffix, Length: n}, true
	case last == "":
		n, ok := parseUint(first)
		if !ok {
			return Spec{}, false
		}
		return Spec{Kind: FromOffset, Start: n}, true
	default:
		a, ok := parseUint(first)
		if !ok {
			return Spec{}, false
		}
		b, ok := parseUint(last)
		if !ok {
			return Spec{}, false
		}
		return Spec{Kind: FromTo, Start: a, End: b}, true
	}
}

// parseUint accepts only DIGIT+ (no sign, no whitespace).
func parseUint(s string) (uint64, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Resolve converts specs into satisfiable ranges over a representation of
// the given length. Unsatisfiable specs are dropped; if none remain,
// ErrUnsatisfiable is returned.
func Resolve(specs []Spec, length uint64) ([]Range, error) {
	ranges := make([]Range, 0, len(specs))
	for _, s := range specs {
		if r, ok := resolve(s, length); ok {
			ranges = append(ranges, r)
		}
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("resolve %d range(s) against %d bytes: %w", len(specs), length, ErrUnsatisfiable)
	}
	return ranges, nil
}

func resolve(s Spec, length uint64) (Range, bool) {
	switch s.Kind {
	case FromTo:
		if s.Start > s.End || s.Start >= length {
			return Range{}, false
		}
		return Range{Start: s.Start, End: min(s.End, length-1), Total: length}, true
	case FromOffset:
		if s.Start >= length {
			return Range{}, false
		}
		return Range{Start: s.Start, End: length - 1, Total: length}, true
	case Suffix:
		if s.Length == 0 || length == 0 {
			return Range{}, false
		}
		n := min(s.Length, length)
		return Range{Start: length - n, End: length - 1, Total: length}, true
	default:
		return Range{}, false
	}
}

// Sum returns the total number of bytes covered by ranges, counting overlaps twice.
func Sum(ranges []Range) uint64 {
	var total uint64
	for _, r := range ranges {
		total += r.Length()
	}
	return total
}
