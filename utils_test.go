package servefile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/servefile"
)

func TestParsePath(t *testing.T) {
	// Create a path with invalid UTF-8 (without embedding raw invalid bytes in source)
	invalidUTF8 := string([]byte{'/', 'a', 0xff, 'b'})

	tt := []struct {
		Name string
		Path string
		Want []string
		OK   bool
	}{
		// Basics
		{Name: "root path", Path: "/", Want: nil, OK: true},
		{Name: "empty path", Path: "", Want: nil, OK: true},
		{Name: "leading slash", Path: "/some/path", Want: []string{"some", "path"}, OK: true},
		{Name: "no leading slash", Path: "some/path", Want: []string{"some", "path"}, OK: true},
		{Name: "trailing slash", Path: "/some/dir/", Want: []string{"some", "dir"}, OK: true},

		// Traversal
		{Name: "double dots segment", Path: "/../", OK: false},
		{Name: "escape attempt", Path: "/a/../../etc/passwd", OK: false},
		{Name: "double dots at end", Path: "/a/..", OK: false},
		{Name: "single dot segment", Path: "/a/./b", OK: false},
		{Name: "single dot only", Path: "/.", OK: false},

		// Dots inside names are fine
		{Name: "double dots in filename", Path: "/a/b..c", Want: []string{"a", "b..c"}, OK: true},
		{Name: "double dots prefix", Path: "/a/..b", Want: []string{"a", "..b"}, OK: true},
		{Name: "hidden file", Path: "/.well-known/file", Want: []string{".well-known", "file"}, OK: true},

		// Empty segments
		{Name: "double slash", Path: "/a//b", OK: false},
		{Name: "leading double slash", Path: "//a", OK: false},

		// Forbidden characters
		{Name: "contains backslash", Path: `/some\path/file.ext`, OK: false},
		{Name: "contains NUL", Path: "/some\x00path", OK: false},
		{Name: "contains DEL", Path: "/some\x7fpath", OK: false},
		{Name: "contains newline", Path: "/some\npath", OK: false},
		{Name: "invalid utf8", Path: invalidUTF8, OK: false},

		// Characters that are legal in file names
		{Name: "space", Path: "/my file.txt", Want: []string{"my file.txt"}, OK: true},
		{Name: "unicode", Path: "/привет/世界/file.ext", Want: []string{"привет", "世界", "file.ext"}, OK: true},
		{Name: "percent literal", Path: "/a/%2e/b", Want: []string{"a", "%2e", "b"}, OK: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			got, err := servefile.ParsePath(tc.Path)
			if !tc.OK {
				assert.ErrorIs(t, err, servefile.ErrInvalidPath)
				assert.Nil(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.Want, got)
		})
	}
}

func TestIsValidSegment(t *testing.T) {
	assert.True(t, servefile.IsValidSegment("index.html"))
	assert.False(t, servefile.IsValidSegment("a/b"))
	assert.False(t, servefile.IsValidSegment(""))
	assert.False(t, servefile.IsValidSegment(".."))
}
