// Package servefile implements the HTTP semantics of serving static files,
// independent of any transport: conditional requests, byte ranges, content
// coding negotiation over pre-compressed siblings, cache validators, and
// directory listings.
//
// The package never transfers bytes. A Planner turns a FileRequest into a
// Plan (status, ordered headers, and a body description) that a transport
// executes against the same FileSystem the plan was computed from.
//
// # Key Components
//
//   - FileSystem: directory-relative access to the served tree (see the filesystem package)
//   - Resolve: walks a request path one segment at a time from an open directory handle
//   - ListDirectory: ordered, displayable listing of a directory handle
//   - Planner: combines resolution, negotiation, validators, preconditions, and ranges
//
// The building blocks live in subpackages: etag (validators), conditional
// (RFC 7232 evaluation), byterange (RFC 7233 parsing and multipart bodies),
// and negotiate (Accept-Encoding).
//
// # Example Usage
//
//	root, err := os.OpenRoot("/srv/www")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fsys := filesystem.New(root, filesystem.Options{})
//
//	planner, err := servefile.NewPlanner(fsys, servefile.DefaultContentTypes(), nil, servefile.DefaultPlannerConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req, err := servefile.NewFileRequest(r.Method, r.URL.Path, r.Header)
//	plan, err := planner.Plan(req)
//	defer plan.Close()
//
// See the http package for the chi-based transport that executes plans.
package servefile
