// Package filesystem provides the os.Root backed servefile.FileSystem.
// Lookups are made one name at a time relative to an open directory, so the
// kernel keeps every step inside the directory it started from. It also
// supports atomic writes using temp files (for pre-compressed siblings) and
// SHA256 content digests.
package filesystem

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/sagarc03/servefile"
)

// Options controls how the Store treats symbolic links.
type Options struct {
	// FollowSymlinks allows symlinks whose target stays inside the directory
	// that contains the link. Other symlinks are always refused.
	FollowSymlinks bool
}

// Store provides file system access rooted at one directory.
type Store struct {
	root *os.Root
	opts Options
}

// New creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func New(root *os.Root, opts Options) *Store {
	return &Store{root: root, opts: opts}
}

type handle struct {
	path string
	dir  *os.Root // directories
	file *os.File // everything else
}

func (h *handle) Path() string { return h.path }

func (h *handle) Close() error {
	if h.dir != nil {
		return h.dir.Close()
	}
	if h.file != nil {
		return h.file.Close()
	}
	return nil
}

func asHandle(h servefile.Handle) (*handle, error) {
	fh, ok := h.(*handle)
	if !ok || fh == nil {
		return nil, fmt.Errorf("foreign handle %T: %w", h, servefile.ErrIO)
	}
	return fh, nil
}

// Root opens a fresh handle on the served root.
func (s *Store) Root() (servefile.Handle, error) {
	r, err := s.root.OpenRoot(".")
	if err != nil {
		return nil, fmt.Errorf("open root: %w: %w", servefile.ErrIO, err)
	}
	return &handle{path: "", dir: r}, nil
}

// Open looks up name inside dir. The object opened is checked against what
// Lstat saw before opening; a symlink swapped in between is refused.
func (s *Store) Open(dir servefile.Handle, name string) (servefile.Handle, error) {
	d, err := asHandle(dir)
	if err != nil {
		return nil, err
	}
	if d.dir == nil {
		return nil, fmt.Errorf("open %q in %q: %w", name, d.path, servefile.ErrNotDirectory)
	}
	p := path.Join(d.path, name)

	lfi, err := d.dir.Lstat(name)
	if err != nil {
		return nil, s.openError(d, name, p, err)
	}

	want := lfi
	if lfi.Mode()&fs.ModeSymlink != 0 {
		if err := s.checkSymlink(d, name, p); err != nil {
			return nil, err
		}
		if want, err = d.dir.Stat(name); err != nil {
			return nil, s.openError(d, name, p, err)
		}
	}

	if !want.IsDir() && !want.Mode().IsRegular() {
		return nil, fmt.Errorf("open %q: not a regular file: %w", p, servefile.ErrForbidden)
	}

	var (
		h   *handle
		got fs.FileInfo
	)
	if want.IsDir() {
		sub, err := d.dir.OpenRoot(name)
		if err != nil {
			return nil, s.openError(d, name, p, err)
		}
		h = &handle{path: p, dir: sub}
		got, err = sub.Stat(".")
		if err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("open %q: %w: %w", p, servefile.ErrIO, err)
		}
	} else {
		// O_NONBLOCK keeps a FIFO swapped in after Lstat from blocking the
		// open. SameFile below rejects it.
		f, err := d.dir.OpenFile(name, os.O_RDONLY|syscall.O_NONBLOCK, 0)
		if err != nil {
			return nil, s.openError(d, name, p, err)
		}
		h = &handle{path: p, file: f}
		got, err = f.Stat()
		if err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("open %q: %w: %w", p, servefile.ErrIO, err)
		}
	}

	if !os.SameFile(want, got) {
		_ = h.Close()
		return nil, fmt.Errorf("open %q: changed during lookup: %w", p, servefile.ErrForbidden)
	}

	return h, nil
}

func (s *Store) checkSymlink(d *handle, name, p string) error {
	if !s.opts.FollowSymlinks {
		return fmt.Errorf("open %q: symlink: %w", p, servefile.ErrForbidden)
	}
	target, err := d.dir.Readlink(name)
	if err != nil {
		return s.openError(d, name, p, err)
	}
	if !filepath.IsLocal(target) {
		return fmt.Errorf("open %q: symlink target %q leaves its directory: %w", p, target, servefile.ErrForbidden)
	}
	return nil
}

// openError maps a failed lookup. Failures where the name is now a symlink
// are refusals by os.Root to leave the directory.
func (s *Store) openError(d *handle, name, p string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("open %q: %w", p, servefile.ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("open %q: permission denied: %w", p, servefile.ErrForbidden)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("open %q: %w", p, servefile.ErrNotDirectory)
	}

	if lfi, lerr := d.dir.Lstat(name); lerr == nil && lfi.Mode()&fs.ModeSymlink != 0 {
		return fmt.Errorf("open %q: symlink escapes: %w", p, servefile.ErrForbidden)
	}
	return fmt.Errorf("open %q: %w: %w", p, servefile.ErrIO, err)
}

// Stat describes the object behind an open handle.
func (s *Store) Stat(h servefile.Handle) (servefile.FileInfo, error) {
	fh, err := asHandle(h)
	if err != nil {
		return servefile.FileInfo{}, err
	}

	var fi fs.FileInfo
	if fh.dir != nil {
		fi, err = fh.dir.Stat(".")
	} else {
		fi, err = fh.file.Stat()
	}
	if err != nil {
		return servefile.FileInfo{}, fmt.Errorf("stat %q: %w: %w", fh.path, servefile.ErrIO, err)
	}
	return fileInfo(fi), nil
}

// List reads the children of an open directory. Per-entry metadata is best
// effort and left nil when it cannot be read.
func (s *Store) List(dir servefile.Handle) ([]servefile.DirEntryInfo, error) {
	d, err := asHandle(dir)
	if err != nil {
		return nil, err
	}
	if d.dir == nil {
		return nil, fmt.Errorf("list %q: %w", d.path, servefile.ErrNotDirectory)
	}

	f, err := d.dir.Open(".")
	if err != nil {
		return nil, fmt.Errorf("list %q: %w: %w", d.path, servefile.ErrIO, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close directory", "path", d.path, "err", closeErr)
		}
	}()

	dirEntries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w: %w", d.path, servefile.ErrIO, err)
	}

	out := make([]servefile.DirEntryInfo, 0, len(dirEntries))
	for _, e := range dirEntries {
		entry := servefile.DirEntryInfo{Name: e.Name(), Kind: kindOf(e.Type())}
		if fi, err := e.Info(); err == nil {
			info := fileInfo(fi)
			entry.Info = &info
		}
		out = append(out, entry)
	}
	return out, nil
}

// ReadAt reads from an open regular file.
func (s *Store) ReadAt(h servefile.Handle, p []byte, off int64) (int, error) {
	fh, err := asHandle(h)
	if err != nil {
		return 0, err
	}
	if fh.file == nil {
		return 0, fmt.Errorf("read %q: is a directory: %w", fh.path, servefile.ErrIO)
	}
	return fh.file.ReadAt(p, off)
}

// Digest returns the SHA256 of the first info.Size bytes of an open file.
func (s *Store) Digest(h servefile.Handle, info servefile.FileInfo) ([]byte, error) {
	fh, err := asHandle(h)
	if err != nil {
		return nil, err
	}
	if fh.file == nil {
		return nil, fmt.Errorf("digest %q: is a directory: %w", fh.path, servefile.ErrIO)
	}

	sum := sha256.New()
	if _, err := io.Copy(sum, io.NewSectionReader(fh.file, 0, int64(info.Size))); err != nil {
		return nil, fmt.Errorf("digest %q: %w: %w", fh.path, servefile.ErrIO, err)
	}
	return sum.Sum(nil), nil
}

// OpenPath opens a slash-separated path below the root in one call. It is
// meant for maintenance commands walking the tree, not for request handling.
func (s *Store) OpenPath(p string) (servefile.Handle, error) {
	f, err := s.root.Open(filepath.FromSlash(p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %q: %w", p, servefile.ErrNotFound)
		}
		return nil, fmt.Errorf("open %q: %w: %w", p, servefile.ErrIO, err)
	}
	return &handle{path: p, file: f}, nil
}

func fileInfo(fi fs.FileInfo) servefile.FileInfo {
	size := fi.Size()
	if size < 0 {
		size = 0
	}
	return servefile.FileInfo{
		Kind:    kindOf(fi.Mode().Type()),
		Size:    uint64(size),
		ModTime: fi.ModTime(),
	}
}

func kindOf(mode fs.FileMode) servefile.FileKind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return servefile.KindSymlink
	case mode.IsDir():
		return servefile.KindDirectory
	case mode.IsRegular():
		return servefile.KindRegular
	default:
		return servefile.KindOther
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically writes content to the given path using a temp file and rename.
// It creates intermediate directories as needed and returns the number of bytes
// written. The operation respects context cancellation.
func (s *Store) Write(ctx context.Context, p string, content io.Reader) (int64, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	destDir := path.Dir(p)
	tmpFile := path.Join(destDir, tmpFileName())
	if destDir != "." {
		if err := s.root.MkdirAll(filepath.FromSlash(destDir), 0o755); err != nil {
			return 0, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	t, createErr := s.root.Create(filepath.FromSlash(tmpFile))
	if createErr != nil {
		return 0, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(filepath.FromSlash(tmpFile)); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	written, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return 0, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return 0, fmt.Errorf("could not sync written file: %w", err)
	}

	if renameErr := s.root.Rename(filepath.FromSlash(tmpFile), filepath.FromSlash(p)); renameErr != nil {
		return 0, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true
	return written, nil
}

// Delete removes a file. Returns servefile.ErrNotFound if the file does not exist.
func (s *Store) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(filepath.FromSlash(p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return servefile.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// WalkFunc is called for every regular file found by Walk with its
// slash-separated path relative to the root.
type WalkFunc func(p string, info servefile.FileInfo) error

// Walk recursively visits the regular files below the root in lexical order.
// Symlinks are not followed and temp files left by Write are skipped.
func (s *Store) Walk(ctx context.Context, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.walkDir(ctx, ".", fn); err != nil {
		return fmt.Errorf("failed to walk files: %w", err)
	}
	return nil
}

func (s *Store) walkDir(ctx context.Context, dir string, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := path.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := s.walkDir(ctx, entryPath, fn); err != nil {
				return err
			}
			continue
		}

		if !entry.Type().IsRegular() || isTmpFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		if err := fn(entryPath, fileInfo(info)); err != nil {
			return err
		}
	}

	return nil
}

const tmpPrefix = ".t"

func tmpFileName() string {
	return fmt.Sprintf("%s%s", tmpPrefix, uuid.New().String())
}

func isTmpFile(name string) bool {
	return len(name) == len(tmpPrefix)+36 && name[:len(tmpPrefix)] == tmpPrefix && uuid.Validate(name[len(tmpPrefix):]) == nil
}
