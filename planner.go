package servefile

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/sagarc03/servefile/byterange"
	"github.com/sagarc03/servefile/conditional"
	"github.com/sagarc03/servefile/etag"
	"github.com/sagarc03/servefile/negotiate"
)

// ListingContentType is the media type of directory listings.
const ListingContentType = "text/html; charset=utf-8"

// PlannerConfig holds every option the Planner consults.
type PlannerConfig struct {
	// IndexFile is served for directory paths when present. Empty disables it.
	IndexFile string
	// Listing enables directory listings when no index file is found.
	Listing bool
	// EncodingSupport selects which files are served from pre-compressed variants.
	EncodingSupport negotiate.Support
	// Variants are the sibling suffixes probed for each coding.
	Variants []negotiate.Variant
	// StrongETags enables content digests when a Digester is configured.
	StrongETags bool
	// StrongETagMaxSize caps the size of digested files. Zero means no cap.
	StrongETagMaxSize uint64
	// MaxRanges is the most ranges honored in one Range header.
	MaxRanges int
	// TextCharset is appended to textual content types. Empty disables it.
	TextCharset string
}

// DefaultPlannerConfig returns the configuration used when nothing is set.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		IndexFile:         "index.html",
		EncodingSupport:   negotiate.SupportText,
		Variants:          negotiate.DefaultVariants(),
		StrongETagMaxSize: 1 << 20,
		MaxRanges:         byterange.DefaultMaxRanges,
		TextCharset:       "utf-8",
	}
}

// Validate checks the configuration for values the Planner cannot use.
func (c PlannerConfig) Validate() error {
	if c.IndexFile != "" && !IsValidSegment(c.IndexFile) {
		return fmt.Errorf("validate planner config: index file %q: %w", c.IndexFile, ErrInvalidInput)
	}
	if _, err := negotiate.ParseSupport(string(c.EncodingSupport)); err != nil {
		return fmt.Errorf("validate planner config: %w: %w", ErrInvalidInput, err)
	}
	if c.MaxRanges < 0 {
		return fmt.Errorf("validate planner config: max ranges %d: %w", c.MaxRanges, ErrInvalidInput)
	}

	seen := make(map[negotiate.Coding]bool, len(c.Variants))
	for _, v := range c.Variants {
		if v.Coding == "" || v.Coding == negotiate.Identity || v.Suffix == "" {
			return fmt.Errorf("validate planner config: variant %q %q: %w", v.Coding, v.Suffix, ErrInvalidInput)
		}
		if seen[v.Coding] {
			return fmt.Errorf("validate planner config: duplicate variant %q: %w", v.Coding, ErrInvalidInput)
		}
		seen[v.Coding] = true
	}

	return nil
}

// Planner decides the response for file requests. It holds no per-request
// state and is safe for concurrent use.
type Planner struct {
	fsys     FileSystem
	types    ContentTypes
	digester Digester
	cfg      PlannerConfig
}

// NewPlanner creates a Planner. types and digester may be nil; without a
// digester no strong ETags are produced.
func NewPlanner(fsys FileSystem, types ContentTypes, digester Digester, cfg PlannerConfig) (*Planner, error) {
	if fsys == nil {
		return nil, fmt.Errorf("new planner: file system is required: %w", ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new planner: %w", err)
	}
	return &Planner{fsys: fsys, types: types, digester: digester, cfg: cfg}, nil
}

// FileSystem returns the file system plans refer to.
func (p *Planner) FileSystem() FileSystem { return p.fsys }

// Plan computes the response for req.
//
// Not found, forbidden, not modified, precondition failed, and unsatisfiable
// ranges are statuses of the returned plan. An error is returned only for
// storage failures, wrapping ErrIO. The caller must Close the plan once the
// body has been written.
func (p *Planner) Plan(req FileRequest) (*Plan, error) {
	root, err := p.fsys.Root()
	if err != nil {
		return nil, classify("plan: open root", err)
	}

	entry, err := Resolve(p.fsys, root, req.segments, ResolveOptions{IndexFile: p.cfg.IndexFile})
	if err != nil {
		return nil, fmt.Errorf("plan %q: %w", req.Path(), err)
	}

	switch entry.Kind {
	case EntryNotFound:
		return statusPlan(http.StatusNotFound), nil
	case EntryForbidden:
		slog.Debug("forbidden", "path", req.Path(), "reason", entry.Reason)
		return statusPlan(http.StatusForbidden), nil
	case EntryDirectory:
		return p.planDirectory(req, entry)
	default:
		return p.planFile(req, entry)
	}
}

func statusPlan(status int) *Plan {
	return &Plan{Status: status, Body: EmptyBody{}}
}

func (p *Planner) planDirectory(req FileRequest, entry ResolvedEntry) (*Plan, error) {
	defer closeQuietly(entry.Handle)

	if !p.cfg.Listing {
		return statusPlan(http.StatusForbidden), nil
	}

	entries, err := ListDirectory(p.fsys, entry.Handle)
	if err != nil {
		return nil, fmt.Errorf("plan %q: %w", req.Path(), err)
	}

	var h headerBuilder
	h.add("Content-Type", ListingContentType)
	if req.IsHead() {
		return &Plan{Status: http.StatusOK, Headers: h, Body: EmptyBody{}}, nil
	}
	return &Plan{Status: http.StatusOK, Headers: h, Body: Listing{Entries: entries}}, nil
}

func (p *Planner) planFile(req FileRequest, entry ResolvedEntry) (*Plan, error) {
	ct := contentType(p.types, path.Ext(entry.Name), p.cfg.TextCharset)

	choice, vary, err := p.negotiate(req, entry, ct)
	if err != nil {
		return nil, fmt.Errorf("plan %q: %w", req.Path(), err)
	}

	plan, err := p.planRepresentation(req, choice, ct, vary)
	if err != nil {
		closeQuietly(choice.Handle)
		return nil, fmt.Errorf("plan %q: %w", req.Path(), err)
	}
	if plan.Handle() == nil {
		closeQuietly(choice.Handle)
	}
	return plan, nil
}

// negotiate picks the representation to serve. It consumes entry: the parent
// handle and any handle not returned in the choice are closed. vary reports
// whether the response depends on Accept-Encoding.
func (p *Planner) negotiate(req FileRequest, entry ResolvedEntry, ct string) (EncodingChoice, bool, error) {
	defer closeQuietly(entry.Parent)

	identity := EncodingChoice{Coding: negotiate.Identity, Handle: entry.Handle, Meta: entry.Meta, Info: entry.Info}
	if len(p.cfg.Variants) == 0 || !p.cfg.EncodingSupport.Eligible(ct) {
		return identity, false, nil
	}

	variants := make(map[negotiate.Coding]negotiate.Variant, len(p.cfg.Variants))
	codings := make([]negotiate.Coding, 0, len(p.cfg.Variants))
	for _, v := range p.cfg.Variants {
		variants[v.Coding] = v
		codings = append(codings, v.Coding)
	}

	accept := negotiate.ParseAcceptEncoding(req.Get("Accept-Encoding"))
	for _, c := range negotiate.Candidates(accept, codings) {
		if c == negotiate.Identity {
			return identity, true, nil
		}

		h, info, ok, err := p.openVariant(entry.Parent, entry.Name+variants[c].Suffix)
		if err != nil {
			closeQuietly(entry.Handle)
			return EncodingChoice{}, false, err
		}
		if !ok {
			continue
		}

		closeQuietly(entry.Handle)
		return EncodingChoice{Coding: c, Handle: h, Meta: metadataOf(info), Info: info}, true, nil
	}

	return identity, true, nil
}

// openVariant opens a sibling file. ok is false when there is no usable
// regular file by that name.
func (p *Planner) openVariant(dir Handle, name string) (Handle, FileInfo, bool, error) {
	h, err := p.fsys.Open(dir, name)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrNotDirectory):
		return nil, FileInfo{}, false, nil
	case err != nil:
		return nil, FileInfo{}, false, classify(fmt.Sprintf("open variant %q", name), err)
	}

	info, err := p.fsys.Stat(h)
	if err != nil {
		closeQuietly(h)
		return nil, FileInfo{}, false, classify(fmt.Sprintf("stat variant %q", h.Path()), err)
	}
	if info.Kind != KindRegular {
		closeQuietly(h)
		return nil, FileInfo{}, false, nil
	}
	return h, info, true, nil
}

func (p *Planner) wantsDigest(size uint64) bool {
	if !p.cfg.StrongETags || p.digester == nil {
		return false
	}
	return p.cfg.StrongETagMaxSize == 0 || size <= p.cfg.StrongETagMaxSize
}

func (p *Planner) planRepresentation(req FileRequest, choice EncodingChoice, ct string, vary bool) (*Plan, error) {
	meta := choice.Meta
	if p.wantsDigest(meta.Size) {
		// Cache keys use the full-precision mtime, as Warm does.
		digest, err := p.digester.Digest(choice.Handle, choice.Info)
		if err != nil {
			return nil, classify(fmt.Sprintf("digest %q", choice.Handle.Path()), err)
		}
		meta.Digest = digest
	}

	v := etag.Build(meta.Size, meta.ModTime, string(choice.Coding), meta.Digest)
	pre := conditional.Parse(req.header)

	var h headerBuilder
	if v.HasLastModified() {
		h.add("Last-Modified", etag.FormatHTTPDate(v.LastModified))
	}
	h.add("Etag", v.Current().String())

	switch conditional.Evaluate(req.method, pre, v) {
	case conditional.NotModified:
		if vary {
			h.add("Vary", "Accept-Encoding")
		}
		return &Plan{Status: http.StatusNotModified, Headers: h, Body: EmptyBody{}}, nil
	case conditional.PreconditionFailed:
		return statusPlan(http.StatusPreconditionFailed), nil
	}

	if choice.Coding != negotiate.Identity {
		h.add("Content-Encoding", string(choice.Coding))
	}
	if vary {
		h.add("Vary", "Accept-Encoding")
	}
	h.add("Accept-Ranges", "bytes")

	if rh := req.Get("Range"); rh != "" && conditional.IfRange(pre, v) {
		if specs, ok := byterange.Parse(rh, p.cfg.MaxRanges); ok {
			ranges, err := byterange.Resolve(specs, meta.Size)
			if err != nil {
				return unsatisfiable(meta.Size, vary), nil
			}
			return p.partial(req, choice, ct, h, ranges)
		}
	}

	h.add("Content-Type", ct)
	h.add("Content-Length", strconv.FormatUint(meta.Size, 10))

	var body Body = WholeFile{Handle: choice.Handle, Length: meta.Size}
	if req.IsHead() {
		body = EmptyBody{}
	}
	return &Plan{Status: http.StatusOK, Headers: h, Body: body}, nil
}

func (p *Planner) partial(req FileRequest, choice EncodingChoice, ct string, h headerBuilder, ranges []byterange.Range) (*Plan, error) {
	var body Body
	if len(ranges) == 1 {
		r := ranges[0]
		h.add("Content-Range", r.ContentRange())
		h.add("Content-Type", ct)
		h.add("Content-Length", strconv.FormatUint(r.Length(), 10))
		body = SingleRange{Handle: choice.Handle, Range: r}
	} else {
		boundary := byterange.NewBoundary()
		size, err := byterange.MultipartSize(ranges, ct, boundary)
		if err != nil {
			return nil, err
		}
		h.add("Content-Type", byterange.MultipartContentType(boundary))
		h.add("Content-Length", strconv.FormatUint(size, 10))
		body = MultiRange{Handle: choice.Handle, Ranges: ranges, Boundary: boundary, ContentType: ct}
	}

	if req.IsHead() {
		body = EmptyBody{}
	}
	return &Plan{Status: http.StatusPartialContent, Headers: h, Body: body}, nil
}

func unsatisfiable(length uint64, vary bool) *Plan {
	var h headerBuilder
	if vary {
		h.add("Vary", "Accept-Encoding")
	}
	h.add("Accept-Ranges", "bytes")
	h.add("Content-Range", byterange.UnsatisfiedContentRange(length))
	return &Plan{Status: http.StatusRequestedRangeNotSatisfiable, Headers: h, Body: EmptyBody{}}
}

func closeQuietly(h Handle) {
	if h == nil {
		return
	}
	if err := h.Close(); err != nil {
		slog.Warn("failed to close handle", "path", h.Path(), "err", err)
	}
}
