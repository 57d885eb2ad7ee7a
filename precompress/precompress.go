// Package precompress writes pre-compressed siblings (a.js.gz, a.js.zst)
// next to the files they encode, so the planner can serve them to clients
// that accept the coding.
package precompress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/filesystem"
	"github.com/sagarc03/servefile/negotiate"
)

// DefaultMaxSize is the largest file compressed when Options.MaxSize is zero.
const DefaultMaxSize = 64 << 20

// Tree is the part of filesystem.Store the compressor needs.
type Tree interface {
	Walk(ctx context.Context, fn filesystem.WalkFunc) error
	OpenPath(p string) (servefile.Handle, error)
	ReadAt(h servefile.Handle, p []byte, off int64) (int, error)
	Write(ctx context.Context, p string, content io.Reader) (int64, error)
	Delete(ctx context.Context, p string) error
}

// Encoder wraps w in a compressing writer. Closing it flushes the stream.
type Encoder func(w io.Writer) (io.WriteCloser, error)

// Encoders returns the encoders available for each coding. Brotli has no
// encoder here; .br siblings are served when present but never written.
func Encoders() map[negotiate.Coding]Encoder {
	return map[negotiate.Coding]Encoder{
		negotiate.Gzip: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, gzip.BestCompression)
		},
		negotiate.Zstd: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression), zstd.WithEncoderConcurrency(1))
		},
	}
}

type Options struct {
	Variants []negotiate.Variant
	Support  negotiate.Support
	Types    servefile.ContentTypes
	// MinSize skips files smaller than this many bytes.
	MinSize uint64
	// MaxSize skips files larger than this many bytes. Zero means DefaultMaxSize.
	MaxSize uint64
	// Force rewrites siblings that are newer than their source.
	Force bool
	// Prune deletes siblings whose source file no longer exists. Only
	// siblings of types that Support makes eligible are considered.
	Prune bool
}

// Report counts what Run did.
type Report struct {
	Written int
	Skipped int
	Pruned  int
	// Saved is the total number of bytes the written siblings save over
	// their sources.
	Saved int64
}

type fileState struct {
	size    uint64
	modTime time.Time
}

// Run compresses every eligible file below the tree's root.
func Run(ctx context.Context, tree Tree, opts Options) (Report, error) {
	if opts.Support == negotiate.SupportNever {
		return Report{}, errors.New("precompress: encoding support is never")
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = DefaultMaxSize
	}

	files := make(map[string]fileState)
	err := tree.Walk(ctx, func(p string, info servefile.FileInfo) error {
		files[p] = fileState{size: info.Size, modTime: info.ModTime}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("precompress: %w", err)
	}

	r := runner{tree: tree, opts: opts, files: files, encoders: Encoders()}
	for _, p := range slices.Sorted(maps.Keys(files)) {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		if _, ok := r.sourceOf(p); ok {
			continue
		}
		if err := r.compress(ctx, p, files[p]); err != nil {
			return r.report, err
		}
	}

	if opts.Prune {
		if err := r.prune(ctx); err != nil {
			return r.report, err
		}
	}

	return r.report, nil
}

type runner struct {
	tree     Tree
	opts     Options
	files    map[string]fileState
	encoders map[negotiate.Coding]Encoder
	report   Report
}

// sourceOf returns the file a sibling path encodes, if p ends in a variant
// suffix.
func (r *runner) sourceOf(p string) (string, bool) {
	for _, v := range r.opts.Variants {
		if src, ok := strings.CutSuffix(p, v.Suffix); ok && src != "" && !strings.HasSuffix(src, "/") {
			return src, true
		}
	}
	return "", false
}

func (r *runner) eligible(p string, st fileState) bool {
	if st.size < r.opts.MinSize || st.size > r.opts.MaxSize || st.size == 0 {
		return false
	}
	return r.eligibleType(p)
}

func (r *runner) eligibleType(p string) bool {
	ct := servefile.DefaultContentType
	if r.opts.Types != nil {
		if t := r.opts.Types.TypeByExtension(path.Ext(p)); t != "" {
			ct = t
		}
	}
	return r.opts.Support.Eligible(ct)
}

func (r *runner) compress(ctx context.Context, p string, st fileState) error {
	if !r.eligible(p, st) {
		r.report.Skipped++
		return nil
	}

	var content []byte
	for _, v := range r.opts.Variants {
		enc, ok := r.encoders[v.Coding]
		if !ok {
			continue
		}

		sibling := p + v.Suffix
		if existing, ok := r.files[sibling]; ok && !r.opts.Force && !existing.modTime.Before(st.modTime) {
			r.report.Skipped++
			continue
		}

		if content == nil {
			var err error
			if content, err = r.read(p, st.size); err != nil {
				return err
			}
		}

		var buf bytes.Buffer
		if err := encode(enc, &buf, content); err != nil {
			return fmt.Errorf("precompress %s as %s: %w", p, v.Coding, err)
		}

		if uint64(buf.Len()) >= st.size {
			slog.Debug("compressed variant not smaller, skipping", "path", p, "coding", v.Coding)
			r.report.Skipped++
			continue
		}

		if _, err := r.tree.Write(ctx, sibling, &buf); err != nil {
			return fmt.Errorf("precompress write %s: %w", sibling, err)
		}

		saved := int64(st.size) - int64(buf.Len()) //nolint:gosec // G115: bounded by MaxSize
		slog.Debug("wrote variant", "path", sibling, "saved", saved)
		r.report.Written++
		r.report.Saved += saved
	}

	return nil
}

func (r *runner) read(p string, size uint64) ([]byte, error) {
	h, err := r.tree.OpenPath(p)
	if err != nil {
		return nil, fmt.Errorf("precompress open %s: %w", p, err)
	}
	defer func() { _ = h.Close() }()

	content := make([]byte, size)
	n, err := r.tree.ReadAt(h, content, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("precompress read %s: %w", p, err)
	}
	return content[:n], nil
}

func encode(enc Encoder, w io.Writer, content []byte) error {
	zw, err := enc(w)
	if err != nil {
		return err
	}
	if _, err := zw.Write(content); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

func (r *runner) prune(ctx context.Context) error {
	for _, p := range slices.Sorted(maps.Keys(r.files)) {
		src, ok := r.sourceOf(p)
		if !ok {
			continue
		}
		// an archive.tar.gz with no archive.tar is content, not a variant
		if _, exists := r.files[src]; exists || !r.eligibleType(src) {
			continue
		}
		if err := r.tree.Delete(ctx, p); err != nil && !errors.Is(err, servefile.ErrNotFound) {
			return fmt.Errorf("precompress prune %s: %w", p, err)
		}
		slog.Debug("pruned orphan variant", "path", p)
		r.report.Pruned++
	}
	return nil
}
