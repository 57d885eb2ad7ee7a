package servefile

import (
	"fmt"
	"maps"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
)

// singletonHeaders must appear at most once; repeated values make the header
// absent.
var singletonHeaders = []string{
	"If-Modified-Since",
	"If-Unmodified-Since",
	"If-Range",
	"Range",
}

// listHeaders may be split across several fields and are joined with ", ".
var listHeaders = []string{
	"If-Match",
	"If-None-Match",
	"Accept-Encoding",
}

// RequestHeader holds the recognized request headers by canonical name.
type RequestHeader map[string]string

// Get returns the value of the named header, or "" when absent.
func (h RequestHeader) Get(name string) string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

// FileRequest is an immutable GET or HEAD request for a file.
type FileRequest struct {
	method   string
	segments []string
	header   RequestHeader
}

// NewFileRequest validates the method and path and copies the recognized
// headers out of h.
func NewFileRequest(method, rawPath string, h http.Header) (FileRequest, error) {
	if method != http.MethodGet && method != http.MethodHead {
		return FileRequest{}, fmt.Errorf("new file request: %s: %w", method, ErrMethodNotAllowed)
	}

	segments, err := ParsePath(rawPath)
	if err != nil {
		return FileRequest{}, fmt.Errorf("new file request: %w", err)
	}

	header := make(RequestHeader)
	for _, name := range singletonHeaders {
		if values := h.Values(name); len(values) == 1 {
			header[name] = values[0]
		}
	}
	for _, name := range listHeaders {
		if values := h.Values(name); len(values) > 0 {
			header[name] = strings.Join(values, ", ")
		}
	}

	return FileRequest{method: method, segments: segments, header: header}, nil
}

// Method returns the request method, GET or HEAD.
func (r FileRequest) Method() string { return r.method }

// IsHead reports whether the request is a HEAD request.
func (r FileRequest) IsHead() bool { return r.method == http.MethodHead }

// Segments returns a copy of the path segments.
func (r FileRequest) Segments() []string { return slices.Clone(r.segments) }

// Path returns the segments joined by "/", without a leading slash.
func (r FileRequest) Path() string { return strings.Join(r.segments, "/") }

// Header returns a copy of the recognized headers.
func (r FileRequest) Header() RequestHeader { return maps.Clone(r.header) }

// Get returns one recognized header.
func (r FileRequest) Get(name string) string { return r.header.Get(name) }
