// Package http serves files over HTTP from a servefile.Planner.
//
// The handler answers GET and HEAD on every path. Each request is turned
// into a servefile.FileRequest, planned on a bounded offload pool, and the
// resulting servefile.Plan is written verbatim: status, headers in plan
// order, then the body.
//
// # Features
//
//   - Whole files and single ranges streamed through FileSystem.ReadAt
//   - multipart/byteranges bodies for multi-range requests
//   - HTML directory listings with human readable sizes
//   - JSON error responses for malformed requests and storage failures
//   - HTML status pages for 403 and 404
//   - Optional CORS and Prometheus metrics
//
// # Usage
//
//	planner, err := servefile.NewPlanner(store, servefile.DefaultContentTypes(), store, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	handler := http.NewHandler(&http.HandlerConfig{
//	    Pool:    offload.NewPool(64),
//	    Metrics: http.NewMetrics(prometheus.NewRegistry()),
//	}, planner)
//	nethttp.ListenAndServe(":8080", handler.Router())
//
// # Errors
//
// Paths that fail validation, including percent-encoded slashes, get 400.
// Methods other than GET and HEAD get 405 with an Allow header. Storage
// failures while planning get 500. A client that disconnects before its plan
// is ready gets nothing; the plan is closed when it completes.
package http
