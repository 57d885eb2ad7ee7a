package servefile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ParsePath splits an already percent-decoded URL path into segments.
//
// A leading slash is optional and a single trailing slash is allowed. The
// path is rejected with ErrInvalidPath when any segment:
//   - is "." or ".."
//   - is empty (as in "a//b")
//   - contains a NUL byte, a backslash, or a control character (< 0x20, 0x7f)
//   - is not valid UTF-8
//
// The root path ("" or "/") yields no segments.
func ParsePath(p string) ([]string, error) {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil, nil
	}

	segments := strings.Split(p, "/")
	for _, s := range segments {
		if !IsValidSegment(s) {
			return nil, fmt.Errorf("parse path %q: %w", p, ErrInvalidPath)
		}
	}
	return segments, nil
}

// IsValidSegment reports whether s may be looked up inside a directory.
func IsValidSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}

	if !utf8.ValidString(s) {
		return false
	}

	for _, r := range s {
		if r < 0x20 || r == 0x7f || r == '/' || r == '\\' {
			return false
		}
	}

	return true
}

// isDisplayable reports whether a directory entry name can be shown in a listing.
func isDisplayable(name string) bool {
	if !utf8.ValidString(name) {
		return false
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return false
		}
	}
	return true
}
