package servefile

import (
	"fmt"
	"slices"
	"strings"
)

// ListDirectory reads an open directory and returns its displayable entries,
// directories first, then by name in byte order. Names that are not valid
// UTF-8 or contain control characters are left out. Size and modification
// time are reported when the FileSystem could provide them.
func ListDirectory(fsys FileSystem, dir Handle) ([]DirectoryEntry, error) {
	children, err := fsys.List(dir)
	if err != nil {
		return nil, classify(fmt.Sprintf("list directory %q", dir.Path()), err)
	}

	entries := make([]DirectoryEntry, 0, len(children))
	for _, c := range children {
		if !isDisplayable(c.Name) {
			continue
		}
		e := DirectoryEntry{
			Name:  c.Name,
			IsDir: c.Kind == KindDirectory,
		}
		if c.Info != nil {
			size, modTime := c.Info.Size, c.Info.ModTime
			if !e.IsDir {
				e.Size = &size
			}
			if !modTime.IsZero() {
				e.ModTime = &modTime
			}
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b DirectoryEntry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	return entries, nil
}
