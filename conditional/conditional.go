// Package conditional evaluates HTTP conditional request headers against the
// current validators of a representation, following the precedence of
// RFC 7232 section 6.
//
// Header values are parsed leniently: a malformed date or entity-tag list is
// treated as if the header had not been sent.
package conditional

import (
	"net/http"
	"strings"
	"time"

	"github.com/sagarc03/servefile/etag"
)

// Outcome is the result of evaluating preconditions.
type Outcome int

const (
	// Proceed means the request continues to range and body selection.
	Proceed Outcome = iota
	// NotModified means a 304 response without body.
	NotModified
	// PreconditionFailed means a 412 response.
	PreconditionFailed
)

func (o Outcome) String() string {
	switch o {
	case Proceed:
		return "proceed"
	case NotModified:
		return "not-modified"
	case PreconditionFailed:
		return "precondition-failed"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code for a short-circuit outcome, or 0 for Proceed.
func (o Outcome) Status() int {
	switch o {
	case NotModified:
		return http.StatusNotModified
	case PreconditionFailed:
		return http.StatusPreconditionFailed
	default:
		return 0
	}
}

// Preconditions holds the parsed conditional headers of a request.
// A nil list or zero time means the header is absent.
type Preconditions struct {
	IfMatch           *etag.List
	IfNoneMatch       *etag.List
	IfModifiedSince   time.Time
	IfUnmodifiedSince time.Time

	// If-Range holds either an entity tag or a date.
	IfRangeTag  etag.ETag
	IfRangeDate time.Time
}

// Header gives access to raw request header values by canonical name.
type Header interface {
	Get(name string) string
}

// Parse extracts the conditional headers from h.
func Parse(h Header) Preconditions {
	var p Preconditions

	if v := h.Get("If-Match"); v != "" {
		if l, ok := etag.ParseList(v); ok {
			p.IfMatch = &l
		}
	}
	if v := h.Get("If-None-Match"); v != "" {
		if l, ok := etag.ParseList(v); ok {
			p.IfNoneMatch = &l
		}
	}
	if v := h.Get("If-Modified-Since"); v != "" {
		if d, ok := etag.ParseHTTPDate(v); ok {
			p.IfModifiedSince = d
		}
	}
	if v := h.Get("If-Unmodified-Since"); v != "" {
		if d, ok := etag.ParseHTTPDate(v); ok {
			p.IfUnmodifiedSince = d
		}
	}
	if v := strings.TrimSpace(h.Get("If-Range")); v != "" {
		if strings.HasPrefix(v, `"`) || strings.HasPrefix(v, `W/`) {
			if tag, ok := etag.Parse(v); ok {
				p.IfRangeTag = tag
			}
		} else if d, ok := etag.ParseHTTPDate(v); ok {
			p.IfRangeDate = d
		}
	}

	return p
}

// Evaluate applies the preconditions to the validators of an existing
// representation. The first matching rule wins:
//
//  1. If-Match fails              -> 412
//  2. If-Unmodified-Since fails   -> 412 (only without If-Match)
//  3. If-None-Match matches       -> 304 for GET/HEAD, 412 otherwise
//  4. If-Modified-Since not newer -> 304 (only without If-None-Match, GET/HEAD)
func Evaluate(method string, p Preconditions, v etag.Validator) Outcome {
	if p.IfMatch != nil {
		if !ifMatch(*p.IfMatch, v) {
			return PreconditionFailed
		}
	} else if !p.IfUnmodifiedSince.IsZero() && v.HasLastModified() {
		if v.LastModified.After(p.IfUnmodifiedSince) {
			return PreconditionFailed
		}
	}

	getOrHead := method == http.MethodGet || method == http.MethodHead

	if p.IfNoneMatch != nil {
		if ifNoneMatchHits(*p.IfNoneMatch, v) {
			if getOrHead {
				return NotModified
			}
			return PreconditionFailed
		}
	} else if getOrHead && !p.IfModifiedSince.IsZero() && v.HasLastModified() {
		if !v.LastModified.After(p.IfModifiedSince) {
			return NotModified
		}
	}

	return Proceed
}

// IfRange reports whether a Range header may be honoured. Without If-Range it
// is always true. An entity tag must match strongly; a date must equal
// Last-Modified exactly.
func IfRange(p Preconditions, v etag.Validator) bool {
	switch {
	case !p.IfRangeTag.IsZero():
		return etag.StrongMatch(p.IfRangeTag, v.Current())
	case !p.IfRangeDate.IsZero():
		return v.HasLastModified() && v.LastModified.Equal(p.IfRangeDate)
	default:
		return true
	}
}

func ifMatch(l etag.List, v etag.Validator) bool {
	if l.Any {
		return true
	}
	current := v.Current()
	for _, tag := range l.Tags {
		if etag.StrongMatch(tag, current) {
			return true
		}
	}
	return false
}

func ifNoneMatchHits(l etag.List, v etag.Validator) bool {
	if l.Any {
		return true
	}
	for _, tag := range l.Tags {
		if etag.WeakMatch(tag, v.Strong) || etag.WeakMatch(tag, v.Weak) {
			return true
		}
	}
	return false
}
