package http

import (
	"io"
	"net/http"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/byterange"
)

// handleReader reads an open handle through the FileSystem that produced it.
type handleReader struct {
	fsys servefile.FileSystem
	h    servefile.Handle
}

func (r handleReader) ReadAt(p []byte, off int64) (int, error) {
	return r.fsys.ReadAt(r.h, p, off)
}

// countingWriter counts body bytes for metrics.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// executor writes a Plan to a ResponseWriter.
type executor struct {
	fsys       servefile.FileSystem
	serverName string
}

// write sends the plan's status, headers and body and returns the number of
// file bytes written. Plan headers are copied verbatim.
func (e executor) write(w http.ResponseWriter, r *http.Request, req servefile.FileRequest, plan *servefile.Plan) (int64, error) {
	header := w.Header()
	for _, h := range plan.Headers {
		header.Add(h.Name, h.Value)
	}

	cw := &countingWriter{w: w}

	switch body := plan.Body.(type) {
	case servefile.WholeFile:
		w.WriteHeader(plan.Status)
		err := e.copySection(cw, body.Handle, 0, body.Length)
		return cw.n, err
	case servefile.SingleRange:
		w.WriteHeader(plan.Status)
		err := e.copySection(cw, body.Handle, body.Range.Start, body.Range.Length())
		return cw.n, err
	case servefile.MultiRange:
		w.WriteHeader(plan.Status)
		err := byterange.WriteMultipart(cw, handleReader{fsys: e.fsys, h: body.Handle}, body.Ranges, body.ContentType, body.Boundary)
		return cw.n, err
	case servefile.Listing:
		return 0, writeListing(w, req.Path(), body.Entries)
	default:
		if r.Method == http.MethodGet && (plan.Status == http.StatusNotFound || plan.Status == http.StatusForbidden) {
			writeStatusPage(w, plan.Status, e.serverName)
			return 0, nil
		}
		w.WriteHeader(plan.Status)
		return 0, nil
	}
}

func (e executor) copySection(w io.Writer, h servefile.Handle, start, length uint64) error {
	section := io.NewSectionReader(handleReader{fsys: e.fsys, h: h}, int64(start), int64(length)) //nolint:gosec // G115: offsets come from a file size
	_, err := io.Copy(w, section)
	return err
}
