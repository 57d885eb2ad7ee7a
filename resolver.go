package servefile

import (
	"errors"
	"fmt"
	"slices"
)

// ResolveOptions controls Resolve.
type ResolveOptions struct {
	// IndexFile is probed when the path names a directory. Empty disables
	// the probe.
	IndexFile string
}

// Resolve walks segments from root, opening each one relative to the
// directory handle obtained for the previous one. Resolve takes ownership of
// root: it is either returned in the entry or closed.
//
// Lookup failures become an entry kind rather than an error:
// a missing component is EntryNotFound, and permission denial, a refused
// symlink, or a non-directory with segments remaining is EntryForbidden.
// Any other storage failure is returned wrapping ErrIO.
//
// Segments are validated before the first lookup; an invalid one fails with
// ErrInvalidPath without touching fsys.
func Resolve(fsys FileSystem, root Handle, segments []string, opts ResolveOptions) (ResolvedEntry, error) {
	r := resolver{fsys: fsys, owned: []Handle{root}}
	defer r.release()

	for _, s := range segments {
		if !IsValidSegment(s) {
			return ResolvedEntry{}, fmt.Errorf("resolve %q: %w", s, ErrInvalidPath)
		}
	}

	dir := root
	for i, name := range segments {
		child, err := fsys.Open(dir, name)
		if err != nil {
			return lookupFailure(name, err)
		}
		r.own(child)

		info, err := fsys.Stat(child)
		if err != nil {
			return ResolvedEntry{}, classify(fmt.Sprintf("resolve: stat %q", child.Path()), err)
		}

		last := i == len(segments)-1
		switch {
		case info.Kind == KindDirectory:
			dir = child
		case !last:
			return forbidden(fmt.Sprintf("%s: not a directory", child.Path())), nil
		case info.Kind == KindRegular:
			return r.file(child, dir, name, info), nil
		default:
			return forbidden(fmt.Sprintf("%s: not a regular file", child.Path())), nil
		}
	}

	if opts.IndexFile != "" {
		entry, found, err := r.probeIndex(dir, opts.IndexFile)
		if err != nil || found {
			return entry, err
		}
	}

	return r.directory(dir), nil
}

// resolver tracks the handles opened during one walk so that every handle
// not handed to the caller is closed.
type resolver struct {
	fsys  FileSystem
	owned []Handle
}

func (r *resolver) own(h Handle) {
	r.owned = append(r.owned, h)
}

// keep removes h from the handles closed by release and returns it.
func (r *resolver) keep(h Handle) Handle {
	r.owned = slices.DeleteFunc(r.owned, func(o Handle) bool { return o == h })
	return h
}

func (r *resolver) release() {
	_ = closeAll(r.owned...)
}

func (r *resolver) file(h, parent Handle, name string, info FileInfo) ResolvedEntry {
	return ResolvedEntry{
		Kind:   EntryFile,
		Handle: r.keep(h),
		Parent: r.keep(parent),
		Name:   name,
		Meta:   metadataOf(info),
		Info:   info,
	}
}

func (r *resolver) directory(h Handle) ResolvedEntry {
	return ResolvedEntry{Kind: EntryDirectory, Handle: r.keep(h)}
}

func (r *resolver) probeIndex(dir Handle, index string) (ResolvedEntry, bool, error) {
	h, err := r.fsys.Open(dir, index)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotDirectory):
		return ResolvedEntry{}, false, nil
	case errors.Is(err, ErrForbidden):
		entry, _ := lookupFailure(index, err)
		return entry, true, nil
	case err != nil:
		return ResolvedEntry{}, false, classify(fmt.Sprintf("resolve: index %q", index), err)
	}
	r.own(h)

	info, err := r.fsys.Stat(h)
	if err != nil {
		return ResolvedEntry{}, false, classify(fmt.Sprintf("resolve: stat %q", h.Path()), err)
	}
	if info.Kind != KindRegular {
		return ResolvedEntry{}, false, nil
	}
	return r.file(h, dir, index, info), true, nil
}

func lookupFailure(name string, err error) (ResolvedEntry, error) {
	switch {
	case errors.Is(err, ErrNotFound):
		return ResolvedEntry{Kind: EntryNotFound}, nil
	case errors.Is(err, ErrForbidden):
		return forbidden(fmt.Sprintf("%s: %v", name, err)), nil
	case errors.Is(err, ErrNotDirectory):
		return forbidden(fmt.Sprintf("%s: not a directory", name)), nil
	default:
		return ResolvedEntry{}, classify(fmt.Sprintf("resolve: open %q", name), err)
	}
}

func forbidden(reason string) ResolvedEntry {
	return ResolvedEntry{Kind: EntryForbidden, Reason: reason}
}
