package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/offload"
)

const allowedMethods = "GET, HEAD"

// DefaultServerName appears in the footer of status pages.
const DefaultServerName = "servefile"

// Planner turns a request into a response plan. *servefile.Planner
// implements it.
type Planner interface {
	Plan(req servefile.FileRequest) (*servefile.Plan, error)
	FileSystem() servefile.FileSystem
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	CORS CORSConfig
	// Pool bounds the number of plans computed at once. Nil uses
	// offload.NewPool(0).
	Pool *offload.Pool
	// Metrics records request outcomes. Nil disables metrics.
	Metrics *Metrics
	// ServerName is shown on 403 and 404 pages.
	ServerName string
}

// Handler serves files from a Planner.
type Handler struct {
	config  HandlerConfig
	planner Planner
	exec    executor
}

// NewHandler creates a new Handler with the given configuration and planner.
func NewHandler(config *HandlerConfig, planner Planner) *Handler {
	cfg := *config
	if cfg.Pool == nil {
		cfg.Pool = offload.NewPool(0)
	}
	if cfg.ServerName == "" {
		cfg.ServerName = DefaultServerName
	}

	return &Handler{
		config:  cfg,
		planner: planner,
		exec:    executor{fsys: planner.FileSystem(), serverName: cfg.ServerName},
	}
}

// Router returns an http.Handler serving GET and HEAD on every path.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/*", h.handleFile)
	r.Head("/*", h.handleFile)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, servefile.ErrMethodNotAllowed)
		h.config.Metrics.countResponse(http.StatusMethodNotAllowed, "error")
	})

	return r
}

func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	if hasEncodedSlash(r) {
		h.fail(w, servefile.ErrInvalidPath)
		return
	}

	req, err := servefile.NewFileRequest(r.Method, r.URL.Path, r.Header)
	if err != nil {
		h.fail(w, err)
		return
	}

	start := time.Now()
	plan, err := offload.Do(r.Context(), h.config.Pool,
		func() (*servefile.Plan, error) { return h.planner.Plan(req) },
		func(p *servefile.Plan) { _ = p.Close() },
	)
	h.config.Metrics.observePlan(time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Debug("client went away before plan was ready", "path", req.Path())
			return
		}
		h.fail(w, err)
		return
	}
	defer func() {
		if err := plan.Close(); err != nil {
			slog.Warn("close plan", "path", req.Path(), "error", err)
		}
	}()

	n, err := h.exec.write(w, r, req, plan)
	h.config.Metrics.countResponse(plan.Status, plan.BodyKind())
	h.config.Metrics.addBytes(n)
	if err != nil {
		// headers are already out; the client sees a short body
		slog.Debug("write body", "path", req.Path(), "written", n, "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	HandleError(w, err)
	h.config.Metrics.countResponse(statusOf(err), "error")
}

// hasEncodedSlash reports whether the escaped path contains %2F, which
// would otherwise decode into a segment separator.
func hasEncodedSlash(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.URL.RawPath), "%2f")
}
