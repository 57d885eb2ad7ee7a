package servefile_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/servefile"
)

func TestNewFileRequest(t *testing.T) {
	h := http.Header{}
	h.Add("If-None-Match", `"a"`)
	h.Add("If-None-Match", `W/"b"`)
	h.Add("Accept-Encoding", "gzip")
	h.Add("Accept-Encoding", "br;q=0.5")
	h.Add("Range", "bytes=0-1")
	h.Add("If-Modified-Since", "Sun, 03 Mar 2024 10:20:30 GMT")
	h.Add("If-Modified-Since", "Mon, 04 Mar 2024 10:20:30 GMT")
	h.Add("Cookie", "ignored=1")

	req, err := servefile.NewFileRequest(http.MethodGet, "/docs/index.html", h)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method())
	assert.False(t, req.IsHead())
	assert.Equal(t, []string{"docs", "index.html"}, req.Segments())
	assert.Equal(t, "docs/index.html", req.Path())
	assert.Equal(t, `"a", W/"b"`, req.Get("if-none-match"))
	assert.Equal(t, "gzip, br;q=0.5", req.Get("Accept-Encoding"))
	assert.Equal(t, "bytes=0-1", req.Get("Range"))
	assert.Empty(t, req.Get("If-Modified-Since"), "repeated singleton header is absent")
	assert.Empty(t, req.Get("Cookie"))
}

func TestNewFileRequest_Immutable(t *testing.T) {
	h := http.Header{}
	h.Set("Range", "bytes=0-1")

	req, err := servefile.NewFileRequest(http.MethodHead, "/a/b", h)
	require.NoError(t, err)

	h.Set("Range", "bytes=5-6")
	req.Segments()[0] = "x"
	req.Header()["Range"] = "bytes=9-9"

	assert.True(t, req.IsHead())
	assert.Equal(t, "bytes=0-1", req.Get("Range"))
	assert.Equal(t, []string{"a", "b"}, req.Segments())
}

func TestNewFileRequest_Errors(t *testing.T) {
	_, err := servefile.NewFileRequest(http.MethodPost, "/a", nil)
	assert.ErrorIs(t, err, servefile.ErrMethodNotAllowed)

	_, err = servefile.NewFileRequest(http.MethodGet, "/a/../../etc/passwd", nil)
	assert.ErrorIs(t, err, servefile.ErrInvalidPath)
}
