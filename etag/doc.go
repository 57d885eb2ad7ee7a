// Package etag builds and compares HTTP cache validators.
//
// A Validator bundles the entity tags and modification date of one
// representation of a file. The weak tag is always available and is derived
// from size, modification time and content coding, so two encoded variants of
// the same file never share a tag. The strong tag is only present when a
// content digest was computed for the representation.
//
// # Comparison
//
// RFC 7232 defines two comparison functions:
//
//   - StrongMatch: both tags must be strong and their opaque values equal.
//     Used for If-Match and If-Range.
//   - WeakMatch: opaque values are equal, the weak indicator is ignored.
//     Used for If-None-Match.
//
// # Usage
//
//	v := etag.Build(size, modTime, "gzip", nil)
//	fmt.Println(v.Weak) // W/"tYJT9KJUI0KX2I5q"
//
//	list, ok := etag.ParseList(`W/"tYJT9KJUI0KX2I5q", "abc"`)
package etag
