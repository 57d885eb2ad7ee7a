package byterange

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"

	"github.com/google/uuid"
)

// NewBoundary returns a fresh multipart boundary token.
func NewBoundary() string {
	return uuid.NewString()
}

// MultipartContentType is the Content-Type of a multi-range response.
func MultipartContentType(boundary string) string {
	return "multipart/byteranges; boundary=" + boundary
}

func partHeader(r Range, contentType string) textproto.MIMEHeader {
	h := textproto.MIMEHeader{
		"Content-Range": {r.ContentRange()},
	}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return h
}

type countingWriter uint64

func (w *countingWriter) Write(p []byte) (int, error) {
	*w += countingWriter(len(p))
	return len(p), nil
}

// MultipartSize returns the exact length of the multipart/byteranges body
// WriteMultipart produces for the same arguments.
func MultipartSize(ranges []Range, contentType, boundary string) (uint64, error) {
	var cw countingWriter
	mw := multipart.NewWriter(&cw)
	if err := mw.SetBoundary(boundary); err != nil {
		return 0, fmt.Errorf("multipart size: %w", err)
	}
	for _, r := range ranges {
		if _, err := mw.CreatePart(partHeader(r, contentType)); err != nil {
			return 0, fmt.Errorf("multipart size: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("multipart size: %w", err)
	}
	return uint64(cw) + Sum(ranges), nil
}

// WriteMultipart writes the multipart/byteranges body, reading each part from src.
func WriteMultipart(w io.Writer, src io.ReaderAt, ranges []Range, contentType, boundary string) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		return fmt.Errorf("write multipart: %w", err)
	}
	for _, r := range ranges {
		part, err := mw.CreatePart(partHeader(r, contentType))
		if err != nil {
			return fmt.Errorf("write multipart: %w", err)
		}
		section := io.NewSectionReader(src, int64(r.Start), int64(r.Length()))
		if _, err := io.Copy(part, section); err != nil {
			return fmt.Errorf("write multipart part %s: %w", r.ContentRange(), err)
		}
	}
	return mw.Close()
}
