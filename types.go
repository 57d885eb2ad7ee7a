package servefile

import (
	"time"

	"github.com/sagarc03/servefile/negotiate"
)

// FileKind classifies a file system object.
type FileKind int

const (
	KindOther FileKind = iota
	KindRegular
	KindDirectory
	KindSymlink
)

func (k FileKind) String() string {
	switch k {
	case KindRegular:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// FileInfo is what a FileSystem reports for an open handle.
type FileInfo struct {
	Kind    FileKind
	Size    uint64
	ModTime time.Time
}

// DirEntryInfo is one child reported by FileSystem.List. Info is nil when the
// child could not be inspected.
type DirEntryInfo struct {
	Name string
	Kind FileKind
	Info *FileInfo
}

// FileMetadata is captured from an open handle and feeds validators and
// range resolution for the same bytes the transport will read.
type FileMetadata struct {
	Size    uint64
	ModTime time.Time // truncated to the second
	Digest  []byte    // nil unless computed
}

func metadataOf(info FileInfo) FileMetadata {
	return FileMetadata{
		Size:    info.Size,
		ModTime: info.ModTime.Truncate(time.Second),
	}
}

// EntryKind is the outcome of path resolution.
type EntryKind int

const (
	EntryNotFound EntryKind = iota
	EntryFile
	EntryDirectory
	EntryForbidden
)

func (k EntryKind) String() string {
	switch k {
	case EntryFile:
		return "file"
	case EntryDirectory:
		return "directory"
	case EntryForbidden:
		return "forbidden"
	default:
		return "not found"
	}
}

// ResolvedEntry is the result of Resolve.
//
// For EntryFile, Handle is the open file and Parent the open directory that
// contains it, so sibling variants can be looked up without a second path
// walk. For EntryDirectory, Handle is the open directory. Both are nil for
// the other kinds. The caller owns and must close non-nil handles.
type ResolvedEntry struct {
	Kind   EntryKind
	Handle Handle
	Parent Handle
	Name   string
	Meta   FileMetadata
	Info   FileInfo // untruncated Stat result behind Meta
	Reason string   // set for EntryForbidden
}

// Close releases the handles held by the entry.
func (e ResolvedEntry) Close() error {
	return closeAll(e.Handle, e.Parent)
}

// EncodingChoice is the representation selected by negotiation.
type EncodingChoice struct {
	Coding negotiate.Coding
	Handle Handle
	Meta   FileMetadata
	Info   FileInfo
}

// DirectoryEntry is one displayable line of a directory listing.
type DirectoryEntry struct {
	Name    string
	IsDir   bool
	Size    *uint64
	ModTime *time.Time
}
