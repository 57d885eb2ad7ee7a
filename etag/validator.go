package etag

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"time"
)

// minLastModified is the earliest modification time reported as Last-Modified.
// Earlier stamps (epoch+1s, zip archives clamped to 1980) mean "unknown".
var minLastModified = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Validator holds the cache validators of one representation.
type Validator struct {
	Strong       ETag
	Weak         ETag
	LastModified time.Time // zero when unknown
}

// Current returns the tag sent in the ETag header: the strong one when present.
func (v Validator) Current() ETag {
	if !v.Strong.IsZero() {
		return v.Strong
	}
	return v.Weak
}

// HasLastModified reports whether a Last-Modified date is available.
func (v Validator) HasLastModified() bool {
	return !v.LastModified.IsZero()
}

// Build derives the validators for a representation. digest is optional; when
// present it yields the strong tag.
func Build(size uint64, modTime time.Time, coding string, digest []byte) Validator {
	v := Validator{
		Weak: Weak(size, modTime, coding),
	}
	if len(digest) > 0 {
		v.Strong = Strong(digest)
	}
	if lm := modTime.Truncate(time.Second); !lm.Before(minLastModified) {
		v.LastModified = lm.UTC()
	}
	return v
}

// Weak returns the cheap weak tag for a representation.
func Weak(size uint64, modTime time.Time, coding string) ETag {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], size)
	binary.BigEndian.PutUint64(buf[8:], uint64(modTime.Unix()))

	h := sha256.New()
	h.Write(buf[:])
	h.Write([]byte(coding))
	sum := h.Sum(nil)

	return ETag{
		Weak:   true,
		Opaque: base64.RawURLEncoding.EncodeToString(sum[:12]),
	}
}

// Strong returns the strong tag for a content digest.
func Strong(digest []byte) ETag {
	return ETag{Opaque: hex.EncodeToString(digest)}
}

// FormatHTTPDate formats t as an IMF-fixdate.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// ParseHTTPDate parses any of the three date formats HTTP/1.1 accepts.
func ParseHTTPDate(s string) (time.Time, bool) {
	t, err := http.ParseTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
