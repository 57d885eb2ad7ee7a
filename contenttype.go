package servefile

import (
	"mime"
	"strings"

	"github.com/sagarc03/servefile/negotiate"
)

// DefaultContentType is used when no table knows the extension.
const DefaultContentType = "application/octet-stream"

// MIMETypes is an extension table keyed by lowercase extension without the
// leading dot. Unknown extensions fall back to the system table in package
// mime.
type MIMETypes map[string]string

// DefaultContentTypes returns the built-in extension table.
func DefaultContentTypes() MIMETypes {
	return MIMETypes{
		"7z":    "application/x-7z-compressed",
		"atom":  "application/atom+xml",
		"avif":  "image/avif",
		"bin":   "application/octet-stream",
		"bmp":   "image/bmp",
		"css":   "text/css",
		"csv":   "text/csv",
		"gif":   "image/gif",
		"htm":   "text/html",
		"html":  "text/html",
		"ico":   "image/x-icon",
		"jar":   "application/java-archive",
		"jpeg":  "image/jpeg",
		"jpg":   "image/jpeg",
		"js":    "application/javascript",
		"json":  "application/json",
		"m4a":   "audio/mp4",
		"map":   "application/json",
		"md":    "text/markdown",
		"mjs":   "application/javascript",
		"mov":   "video/quicktime",
		"mp3":   "audio/mpeg",
		"mp4":   "video/mp4",
		"mpeg":  "video/mpeg",
		"pdf":   "application/pdf",
		"png":   "image/png",
		"rss":   "application/rss+xml",
		"svg":   "image/svg+xml",
		"tar":   "application/x-tar",
		"txt":   "text/plain",
		"wasm":  "application/wasm",
		"webm":  "video/webm",
		"webp":  "image/webp",
		"woff":  "font/woff",
		"woff2": "font/woff2",
		"xml":   "text/xml",
		"zip":   "application/zip",
	}
}

// TypeByExtension implements ContentTypes.
func (m MIMETypes) TypeByExtension(ext string) string {
	key := strings.ToLower(strings.TrimPrefix(ext, "."))
	if key == "" {
		return ""
	}
	if t, ok := m[key]; ok {
		return t
	}
	return mime.TypeByExtension("." + key)
}

// Merge returns a copy of m with the entries of other added or replaced.
func (m MIMETypes) Merge(other map[string]string) MIMETypes {
	out := make(MIMETypes, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[strings.ToLower(strings.TrimPrefix(k, "."))] = v
	}
	return out
}

// contentType picks the media type for a file name and appends charset to
// textual types that do not carry one.
func contentType(types ContentTypes, ext, charset string) string {
	ct := ""
	if types != nil {
		ct = types.TypeByExtension(ext)
	}
	if ct == "" {
		return DefaultContentType
	}
	if charset != "" && negotiate.IsText(ct) && !strings.Contains(strings.ToLower(ct), "charset=") {
		ct += "; charset=" + charset
	}
	return ct
}
