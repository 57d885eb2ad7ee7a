// Package negotiate selects a content coding from the Accept-Encoding
// preferences of a client and the pre-compressed variants a server has.
//
// Variants are sibling files named after the identity file plus a suffix
// (index.html.br, index.html.gz). Identity is always acceptable unless the
// client rules it out explicitly.
package negotiate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Coding is a content-coding token.
type Coding string

const (
	Identity Coding = "identity"
	Gzip     Coding = "gzip"
	Brotli   Coding = "br"
	Zstd     Coding = "zstd"
)

// preference breaks ties between equal q-values: most compressed first.
var preference = map[Coding]int{
	Brotli:   0,
	Zstd:     1,
	Gzip:     2,
	Identity: 3,
}

func rank(c Coding) int {
	if r, ok := preference[c]; ok {
		return r
	}
	return len(preference)
}

// Variant maps a coding to the suffix of its sibling file.
type Variant struct {
	Coding Coding `mapstructure:"coding" validate:"required"`
	Suffix string `mapstructure:"suffix" validate:"required"`
}

// DefaultVariants are the pre-compressed siblings looked up by default.
func DefaultVariants() []Variant {
	return []Variant{
		{Coding: Brotli, Suffix: ".br"},
		{Coding: Zstd, Suffix: ".zst"},
		{Coding: Gzip, Suffix: ".gz"},
	}
}

// Support controls which files are eligible for variant lookup.
type Support string

const (
	SupportNever Support = "never"
	SupportText  Support = "text"
	SupportAll   Support = "all"
)

// ParseSupport validates a Support value.
func ParseSupport(s string) (Support, error) {
	switch v := Support(strings.ToLower(s)); v {
	case SupportNever, SupportText, SupportAll:
		return v, nil
	default:
		return "", fmt.Errorf("invalid encoding support: %s (valid: never, text, all)", s)
	}
}

// Eligible reports whether a file of the given content type may be served
// from a pre-compressed variant.
func (s Support) Eligible(contentType string) bool {
	switch s {
	case SupportAll:
		return true
	case SupportText:
		return IsText(contentType)
	default:
		return false
	}
}

// IsText reports whether a media type is textual and benefits from compression.
func IsText(contentType string) bool {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.TrimSpace(strings.ToLower(mt))
	switch {
	case strings.HasPrefix(mt, "text/"):
		return true
	case mt == "application/javascript", mt == "application/json", mt == "application/xml",
		mt == "image/svg+xml", strings.HasSuffix(mt, "+json"), strings.HasSuffix(mt, "+xml"):
		return true
	default:
		return false
	}
}

// Preference is one element of an Accept-Encoding header.
type Preference struct {
	Coding Coding
	Q      int // thousandths, 0..1000
}

// AcceptEncoding is a parsed Accept-Encoding header.
type AcceptEncoding struct {
	Present   bool
	Listed    []Preference
	wildcardQ int // -1 when "*" is absent
}

// Quality returns the q-value (thousandths) the client gave c and whether
// the header covered c at all, explicitly or via "*".
func (a AcceptEncoding) Quality(c Coding) (int, bool) {
	for _, p := range a.Listed {
		if p.Coding == c {
			return p.Q, true
		}
	}
	if a.wildcardQ >= 0 {
		return a.wildcardQ, true
	}
	return 0, false
}

// ParseAcceptEncoding parses the header value. Malformed elements are dropped;
// an absent header means only identity is wanted.
func ParseAcceptEncoding(header string) AcceptEncoding {
	a := AcceptEncoding{wildcardQ: -1}
	if strings.TrimSpace(header) == "" {
		return a
	}
	a.Present = true

	for _, element := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(element, ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		q, ok := parseQ(params)
		if !ok {
			continue
		}
		if name == "*" {
			a.wildcardQ = q
			continue
		}
		coding := Coding(name)
		if idx := slices.IndexFunc(a.Listed, func(p Preference) bool { return p.Coding == coding }); idx >= 0 {
			a.Listed[idx].Q = max(a.Listed[idx].Q, q)
			continue
		}
		a.Listed = append(a.Listed, Preference{Coding: coding, Q: q})
	}

	return a
}

// parseQ reads an optional "q=" weight. Weights above 1 or with more than
// three decimals are malformed.
func parseQ(params string) (int, bool) {
	params = strings.TrimSpace(params)
	if params == "" {
		return 1000, true
	}
	key, value, found := strings.Cut(params, "=")
	if !found || !strings.EqualFold(strings.TrimSpace(key), "q") {
		return 0, false
	}

	whole, frac, _ := strings.Cut(strings.TrimSpace(value), ".")
	if len(frac) > 3 {
		return 0, false
	}
	for i := 0; i < len(frac); i++ {
		if frac[i] < '0' || frac[i] > '9' {
			return 0, false
		}
	}

	switch whole {
	case "1":
		if strings.Trim(frac, "0") != "" {
			return 0, false
		}
		return 1000, true
	case "0":
		q := 0
		for i := 0; i < 3; i++ {
			q *= 10
			if i < len(frac) {
				q += int(frac[i] - '0')
			}
		}
		return q, true
	default:
		return 0, false
	}
}

// Candidates returns the codings to try, best first. Only codings in
// available are considered besides identity. Accepted codings are ordered by
// q-value, ties broken most-compressed first. Identity is placed by its own
// q-value when the client listed it with a non-zero weight and is the last
// candidate otherwise, so a representation can always be served.
func Candidates(a AcceptEncoding, available []Coding) []Coding {
	var accepted []Preference
	if a.Present {
		for _, c := range available {
			if c == Identity {
				continue
			}
			if q, ok := a.Quality(c); ok && q > 0 {
				accepted = append(accepted, Preference{Coding: c, Q: q})
			}
		}
	}
	slices.SortStableFunc(accepted, func(x, y Preference) int {
		if x.Q != y.Q {
			return cmp.Compare(y.Q, x.Q)
		}
		return cmp.Compare(rank(x.Coding), rank(y.Coding))
	})

	identityQ := -1
	for _, p := range a.Listed {
		if p.Coding == Identity && p.Q > 0 {
			identityQ = p.Q
		}
	}

	out := make([]Coding, 0, len(accepted)+1)
	placed := false
	for _, p := range accepted {
		if !placed && identityQ > p.Q {
			out = append(out, Identity)
			placed = true
		}
		out = append(out, p.Coding)
	}
	if !placed {
		out = append(out, Identity)
	}
	return out
}

// ExcludesIdentity reports whether the client ruled identity out, either with
// "identity;q=0" or with "*;q=0" and no identity entry.
func (a AcceptEncoding) ExcludesIdentity() bool {
	q, ok := a.Quality(Identity)
	return a.Present && ok && q == 0
}
