package etag

import (
	"strings"
)

// ETag is a parsed entity tag. The zero value means "no tag".
type ETag struct {
	Weak   bool
	Opaque string // without the surrounding quotes
}

// IsZero reports whether the tag is absent.
func (e ETag) IsZero() bool {
	return e.Opaque == ""
}

// String formats the tag the way it appears in an ETag header.
func (e ETag) String() string {
	if e.IsZero() {
		return ""
	}
	if e.Weak {
		return `W/"` + e.Opaque + `"`
	}
	return `"` + e.Opaque + `"`
}

// StrongMatch implements the strong comparison function of RFC 7232 section 2.3.2.
func StrongMatch(a, b ETag) bool {
	return !a.IsZero() && !a.Weak && !b.Weak && a.Opaque == b.Opaque
}

// WeakMatch implements the weak comparison function of RFC 7232 section 2.3.2.
func WeakMatch(a, b ETag) bool {
	return !a.IsZero() && a.Opaque == b.Opaque
}

// List is the parsed value of an If-Match or If-None-Match header.
type List struct {
	Any  bool // the header was "*"
	Tags []ETag
}

// Parse parses a single entity tag. Surrounding whitespace is allowed.
func Parse(s string) (ETag, bool) {
	tag, rest, ok := scan(strings.TrimLeft(s, " \t"))
	if !ok || strings.Trim(rest, " \t") != "" {
		return ETag{}, false
	}
	return tag, true
}

// ParseList parses a comma separated list of entity tags or "*".
// Any syntax error invalidates the whole list.
func ParseList(s string) (List, bool) {
	s = strings.Trim(s, " \t")
	if s == "" {
		return List{}, false
	}
	if s == "*" {
		return List{Any: true}, true
	}

	var l List
	for {
		s = strings.TrimLeft(s, " \t,")
		if s == "" {
			break
		}
		tag, rest, ok := scan(s)
		if !ok {
			return List{}, false
		}
		l.Tags = append(l.Tags, tag)

		rest = strings.TrimLeft(rest, " \t")
		if rest != "" && rest[0] != ',' {
			return List{}, false
		}
		s = rest
	}
	if len(l.Tags) == 0 {
		return List{}, false
	}
	return l, true
}

// scan reads one entity-tag from the start of s and returns the remainder.
func scan(s string) (ETag, string, bool) {
	var tag ETag
	if strings.HasPrefix(s, "W/") {
		tag.Weak = true
		s = s[2:]
	}
	if len(s) < 2 || s[0] != '"' {
		return ETag{}, "", false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			if i == 1 {
				// "" is syntactically valid but can never match a tag we issue.
				return ETag{}, "", false
			}
			tag.Opaque = s[1:i]
			return tag, s[i+1:], true
		case c == 0x21 || (c >= 0x23 && c <= 0x7e) || c >= 0x80:
		default:
			return ETag{}, "", false
		}
	}
	return ETag{}, "", false
}
