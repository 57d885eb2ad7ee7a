package servefile

import (
	"net/http"

	"github.com/sagarc03/servefile/byterange"
)

// Header is one response header line.
type Header struct {
	Name  string
	Value string
}

// Body describes what the transport writes after the headers. The set of
// implementations is closed: EmptyBody, WholeFile, SingleRange, MultiRange,
// and Listing.
type Body interface {
	isBody()
}

// EmptyBody is sent for HEAD requests and every non-2xx plan.
type EmptyBody struct{}

// WholeFile sends Length bytes of Handle from offset zero.
type WholeFile struct {
	Handle Handle
	Length uint64
}

// SingleRange sends one byte range of Handle.
type SingleRange struct {
	Handle Handle
	Range  byterange.Range
}

// MultiRange sends a multipart/byteranges body. ContentType is the media type
// of each part.
type MultiRange struct {
	Handle      Handle
	Ranges      []byterange.Range
	Boundary    string
	ContentType string
}

// Listing is a directory listing; the transport chooses the markup.
type Listing struct {
	Entries []DirectoryEntry
}

func (EmptyBody) isBody()   {}
func (WholeFile) isBody()   {}
func (SingleRange) isBody() {}
func (MultiRange) isBody()  {}
func (Listing) isBody()     {}

// Plan is the response decided for one FileRequest.
type Plan struct {
	Status  int
	Headers []Header
	Body    Body
}

// Header returns the first value of the named header, or "".
func (p *Plan) Header(name string) string {
	name = http.CanonicalHeaderKey(name)
	for _, h := range p.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// Handle returns the file handle the body reads from, or nil.
func (p *Plan) Handle() Handle {
	switch b := p.Body.(type) {
	case WholeFile:
		return b.Handle
	case SingleRange:
		return b.Handle
	case MultiRange:
		return b.Handle
	default:
		return nil
	}
}

// Close releases the handle referenced by the body, if any.
func (p *Plan) Close() error {
	if p == nil {
		return nil
	}
	if h := p.Handle(); h != nil {
		return h.Close()
	}
	return nil
}

// BodyKind names the body variant for logs and metrics.
func (p *Plan) BodyKind() string {
	switch p.Body.(type) {
	case WholeFile:
		return "whole"
	case SingleRange:
		return "range"
	case MultiRange:
		return "multirange"
	case Listing:
		return "listing"
	default:
		return "empty"
	}
}

type headerBuilder []Header

func (b *headerBuilder) add(name, value string) {
	*b = append(*b, Header{Name: name, Value: value})
}
