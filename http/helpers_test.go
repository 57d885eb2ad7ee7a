package http_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/filesystem"
	servefilehttp "github.com/sagarc03/servefile/http"
)

// writeTree creates files below a fresh directory. A value of "/" creates a
// directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if content == "/" {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func newPlanner(t *testing.T, dir string, cfg servefile.PlannerConfig) *servefile.Planner {
	t.Helper()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	store := filesystem.New(root, filesystem.Options{})
	planner, err := servefile.NewPlanner(store, servefile.DefaultContentTypes(), store, cfg)
	require.NoError(t, err)
	return planner
}

func newRouter(t *testing.T, files map[string]string, cfg servefile.PlannerConfig, hcfg servefilehttp.HandlerConfig) http.Handler {
	t.Helper()
	planner := newPlanner(t, writeTree(t, files), cfg)
	return servefilehttp.NewHandler(&hcfg, planner).Router()
}

func do(h http.Handler, method, target string, kv ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(kv); i += 2 {
		req.Header.Add(kv[i], kv[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// MockPlanner is a mock implementation of http.Planner
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Plan(req servefile.FileRequest) (*servefile.Plan, error) {
	args := m.Called(req)
	p, _ := args.Get(0).(*servefile.Plan)
	return p, args.Error(1)
}

func (m *MockPlanner) FileSystem() servefile.FileSystem {
	return nil
}
