package servefile

import (
	"errors"
	"fmt"
)

// Handle is an open file or directory owned by a FileSystem. The core never
// reads through a handle; it only passes it back to the FileSystem that
// produced it.
type Handle interface {
	// Path returns the slash-separated location of the handle relative to the
	// served root, as it was resolved. It is used for logging and cache keys,
	// never for lookups.
	Path() string

	// Close releases the handle.
	Close() error
}

// FileSystem defines directory-relative access to the served tree.
// Implementations must be safe for concurrent use.
//
// Every lookup is relative to a directory handle that is already open, so a
// symlink or rename that happens after a directory was opened cannot redirect
// later lookups outside it.
type FileSystem interface {
	// Root opens the served root directory.
	//
	// Returns:
	//   - Handle: Directory handle for the root
	//   - error: ErrIO wrapped on failure
	Root() (Handle, error)

	// Open looks up one name inside an open directory.
	//
	// Parameters:
	//   - dir: An open directory handle
	//   - name: A single path segment, already validated by IsValidSegment
	//
	// Returns:
	//   - Handle: The child, opened
	//   - error: ErrNotFound if the name does not exist, ErrForbidden on
	//     permission denial or a symlink the implementation refuses to follow,
	//     ErrNotDirectory if dir is not a directory, or ErrIO wrapped
	Open(dir Handle, name string) (Handle, error)

	// Stat describes an open handle. The size and modification time must be
	// those of the object the handle refers to, not of whatever the path
	// names now.
	Stat(h Handle) (FileInfo, error)

	// List returns the children of an open directory in no particular order.
	List(dir Handle) ([]DirEntryInfo, error)

	// ReadAt reads len(p) bytes starting at off, with io.ReaderAt semantics.
	// It is used by transports to execute a Plan, never by the core.
	ReadAt(h Handle, p []byte, off int64) (int, error)
}

// Digester computes a content digest used as a strong ETag.
type Digester interface {
	// Digest hashes the content of an open regular file. info is the result of
	// Stat on the same handle.
	Digest(h Handle, info FileInfo) ([]byte, error)
}

// ContentTypes maps a file extension (with leading dot) to a media type.
// An empty result means unknown.
type ContentTypes interface {
	TypeByExtension(ext string) string
}

// classify maps a FileSystem error to the sentinel that decides the outcome.
// Errors that are none of the known kinds are wrapped with ErrIO.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotDirectory), errors.Is(err, ErrIO):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
	}
}

func closeAll(handles ...Handle) error {
	var errs []error
	for _, h := range handles {
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
