package e2e_test

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var site = map[string]string{
	"index.html":     "<h1>servefile</h1>",
	"docs/guide.txt": strings.Repeat("read the guide carefully.\n", 100),
	"data/bytes.bin": "0123456789",
}

func get(t *testing.T, url string, kv ...string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(kv); i += 2 {
		req.Header.Set(kv[i], kv[i+1])
	}

	// transport must not negotiate gzip on its own
	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// TestE2E_Serve_SQLite serves a tree with strong ETags cached in SQLite.
func TestE2E_Serve_SQLite(t *testing.T) {
	cfg := ServerConfig{
		Port:        getOpenPort(t),
		Root:        writeTree(t, site),
		Listing:     true,
		StrongETags: true,
		CacheType:   "sqlite",
		CacheDSN:    filepath.Join(t.TempDir(), "digests.db"),
	}

	runCommand(t, cfg, "precompress", "--min-size", "0")
	runCommand(t, cfg, "digest", "warm", "--prune")

	baseURL, cleanup := startServer(t, cfg)
	defer cleanup()

	runServeTests(t, baseURL, true)
}

// TestE2E_Serve_Postgres serves a tree with strong ETags cached in PostgreSQL.
func TestE2E_Serve_Postgres(t *testing.T) {
	cfg := ServerConfig{
		Port:        getOpenPort(t),
		Root:        writeTree(t, site),
		Listing:     true,
		StrongETags: true,
		CacheType:   "postgres",
		CacheDSN:    getSharedPostgresDatabase(t),
	}

	runCommand(t, cfg, "precompress", "--min-size", "0")

	baseURL, cleanup := startServer(t, cfg)
	defer cleanup()

	runServeTests(t, baseURL, true)
}

// TestE2E_Serve_WeakETags serves a tree without a digest cache.
func TestE2E_Serve_WeakETags(t *testing.T) {
	cfg := ServerConfig{
		Port:    getOpenPort(t),
		Root:    writeTree(t, site),
		Listing: true,
	}

	runCommand(t, cfg, "precompress", "--min-size", "0")

	baseURL, cleanup := startServer(t, cfg)
	defer cleanup()

	runServeTests(t, baseURL, false)
}

// runServeTests contains the shared request tests.
func runServeTests(t *testing.T, baseURL string, strong bool) {
	t.Helper()

	t.Run("GET returns the file", func(t *testing.T) {
		resp, body := get(t, baseURL+"/data/bytes.bin")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "0123456789", body)
		assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
		assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
		assert.NotEmpty(t, resp.Header.Get("Last-Modified"))

		etag := resp.Header.Get("ETag")
		require.NotEmpty(t, etag)
		assert.Equal(t, !strong, strings.HasPrefix(etag, "W/"), "etag %s", etag)
	})

	t.Run("GET / serves the index", func(t *testing.T) {
		resp, body := get(t, baseURL+"/")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "<h1>servefile</h1>", body)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	})

	t.Run("GET with Range returns 206", func(t *testing.T) {
		resp, body := get(t, baseURL+"/data/bytes.bin", "Range", "bytes=2-4")

		assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
		assert.Equal(t, "234", body)
		assert.Equal(t, "bytes 2-4/10", resp.Header.Get("Content-Range"))
	})

	t.Run("GET with unsatisfiable Range returns 416", func(t *testing.T) {
		resp, _ := get(t, baseURL+"/data/bytes.bin", "Range", "bytes=50-")

		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
		assert.Equal(t, "bytes */10", resp.Header.Get("Content-Range"))
	})

	t.Run("GET with matching If-None-Match returns 304", func(t *testing.T) {
		first, _ := get(t, baseURL+"/data/bytes.bin")
		etag := first.Header.Get("ETag")

		resp, body := get(t, baseURL+"/data/bytes.bin", "If-None-Match", etag)

		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
		assert.Empty(t, body)
		assert.Equal(t, etag, resp.Header.Get("ETag"))
	})

	t.Run("GET with Accept-Encoding serves the gzip sibling", func(t *testing.T) {
		resp, body := get(t, baseURL+"/docs/guide.txt", "Accept-Encoding", "gzip")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
		assert.Equal(t, "Accept-Encoding", resp.Header.Get("Vary"))
		assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))

		zr, err := gzip.NewReader(strings.NewReader(body))
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, site["docs/guide.txt"], string(plain))
	})

	t.Run("GET without Accept-Encoding serves identity", func(t *testing.T) {
		resp, body := get(t, baseURL+"/docs/guide.txt")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Content-Encoding"))
		assert.Equal(t, site["docs/guide.txt"], body)
	})

	t.Run("GET directory lists entries", func(t *testing.T) {
		resp, body := get(t, baseURL+"/docs/")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		assert.Contains(t, body, `href="/docs/guide.txt"`)
	})

	t.Run("GET traversal is rejected", func(t *testing.T) {
		resp, _ := get(t, baseURL+"/docs/%2e%2e/%2e%2e/etc/passwd")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("GET missing file returns 404", func(t *testing.T) {
		resp, _ := get(t, baseURL+"/missing.txt")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
