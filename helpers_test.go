package servefile_test

import (
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/filesystem"
)

var fixtureTime = time.Date(2024, time.March, 3, 10, 20, 30, 0, time.UTC)

// tree creates files below a fresh directory. Keys are slash paths; a value
// of "/" creates a directory.
func tree(t *testing.T, files map[string]string) string {
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
		require.NoError(t, os.Chtimes(p, fixtureTime, fixtureTime))
	}
	return dir
}

func openStore(t *testing.T, dir string, opts filesystem.Options) *filesystem.Store {
	t.Helper()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return filesystem.New(root, opts)
}

func newRequest(t *testing.T, method, path string, kv ...string) servefile.FileRequest {
	t.Helper()
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Add(kv[i], kv[i+1])
	}
	req, err := servefile.NewFileRequest(method, path, h)
	require.NoError(t, err)
	return req
}

// trackingFS counts open handles and can run a hook after each Open.
type trackingFS struct {
	servefile.FileSystem

	mu        sync.Mutex
	open      int
	afterOpen func(name string)
}

type trackedHandle struct {
	servefile.Handle
	fs *trackingFS
}

func (h *trackedHandle) Close() error {
	h.fs.mu.Lock()
	h.fs.open--
	h.fs.mu.Unlock()
	return h.Handle.Close()
}

func (f *trackingFS) track(h servefile.Handle) servefile.Handle {
	f.mu.Lock()
	f.open++
	f.mu.Unlock()
	return &trackedHandle{Handle: h, fs: f}
}

func unwrap(h servefile.Handle) servefile.Handle {
	if th, ok := h.(*trackedHandle); ok {
		return th.Handle
	}
	return h
}

func (f *trackingFS) Root() (servefile.Handle, error) {
	h, err := f.FileSystem.Root()
	if err != nil {
		return nil, err
	}
	return f.track(h), nil
}

func (f *trackingFS) Open(dir servefile.Handle, name string) (servefile.Handle, error) {
	h, err := f.FileSystem.Open(unwrap(dir), name)
	if err != nil {
		return nil, err
	}
	if f.afterOpen != nil {
		f.afterOpen(name)
	}
	return f.track(h), nil
}

func (f *trackingFS) Stat(h servefile.Handle) (servefile.FileInfo, error) {
	return f.FileSystem.Stat(unwrap(h))
}

func (f *trackingFS) List(dir servefile.Handle) ([]servefile.DirEntryInfo, error) {
	return f.FileSystem.List(unwrap(dir))
}

func (f *trackingFS) ReadAt(h servefile.Handle, p []byte, off int64) (int, error) {
	return f.FileSystem.ReadAt(unwrap(h), p, off)
}

func (f *trackingFS) Digest(h servefile.Handle, info servefile.FileInfo) ([]byte, error) {
	return f.FileSystem.(servefile.Digester).Digest(unwrap(h), info)
}

func (f *trackingFS) openHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

type SpyFileSystem struct {
	mock.Mock
}

func (s *SpyFileSystem) Root() (servefile.Handle, error) {
	args := s.Called()
	h, _ := args.Get(0).(servefile.Handle)
	return h, args.Error(1)
}

func (s *SpyFileSystem) Open(dir servefile.Handle, name string) (servefile.Handle, error) {
	args := s.Called(dir, name)
	h, _ := args.Get(0).(servefile.Handle)
	return h, args.Error(1)
}

func (s *SpyFileSystem) Stat(h servefile.Handle) (servefile.FileInfo, error) {
	args := s.Called(h)
	return args.Get(0).(servefile.FileInfo), args.Error(1)
}

func (s *SpyFileSystem) List(dir servefile.Handle) ([]servefile.DirEntryInfo, error) {
	args := s.Called(dir)
	entries, _ := args.Get(0).([]servefile.DirEntryInfo)
	return entries, args.Error(1)
}

func (s *SpyFileSystem) ReadAt(h servefile.Handle, p []byte, off int64) (int, error) {
	args := s.Called(h, p, off)
	return args.Int(0), args.Error(1)
}

type fakeHandle struct {
	path   string
	closed bool
}

func (h *fakeHandle) Path() string { return h.path }

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}
