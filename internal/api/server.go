// Package api implements the public HTTP surface of bundlemux: the two
// combined-artifact routes and nothing else.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/sirupsen/logrus"

	"github.com/bundlemux/bundlemux/internal/fetch"
	"github.com/bundlemux/bundlemux/internal/upstream"
	"github.com/bundlemux/bundlemux/lib"
)

// Config is the immutable per-server configuration, fixed at construction.
type Config struct {
	// EntryName is the logical bundle name: the server answers
	// GET /{EntryName}.bundle and GET /{EntryName}.map.
	EntryName string

	// Runtime is upstream A, always spliced first; App is upstream B.
	Runtime upstream.Origin
	App     upstream.Origin

	// Compress enables gzip encoding of responses.
	Compress bool

	// Resolver is the pluggable shim-injection capability carried for the
	// upstream bundlers; the server itself never invokes it.
	Resolver lib.ModuleResolver
}

// GetServer returns an http.Server that serves the combined bundle and the
// combined source map for the configured entry.
func GetServer(addr string, cfg Config, logger logrus.FieldLogger) *http.Server {
	var h http.Handler = NewHandler(cfg, logger)
	if cfg.Compress {
		h = gzhttp.GzipHandler(h)
	}
	return &http.Server{
		Addr:              addr,
		Handler:           withLoggingHandler(logger, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler returns the route multiplexer for the two combined endpoints.
// Anything besides them is a local 404; no upstream I/O happens for unknown
// paths.
func NewHandler(cfg Config, logger logrus.FieldLogger) http.Handler {
	h := &handler{
		cfg:        cfg,
		logger:     logger,
		fetcher:    fetch.New(logger, nil),
		bundlePath: "/" + cfg.EntryName + ".bundle",
		mapPath:    "/" + cfg.EntryName + ".map",
	}

	mux := http.NewServeMux()
	mux.Handle(h.bundlePath, get(h.handleBundle))
	mux.Handle(h.mapPath, get(h.handleMap))
	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(rw, "cannot GET %s", r.URL.Path)
	})
	return mux
}

func get(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next(rw, r)
	})
}

type wrappedResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrappedResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// withLoggingHandler returns the middleware which logs response status for
// each request.
func withLoggingHandler(l logrus.FieldLogger, next http.Handler) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		started := time.Now()
		wrapped := &wrappedResponseWriter{ResponseWriter: rw, status: 200} // the default status code is 200 if it's not set
		next.ServeHTTP(wrapped, r)

		l.WithFields(logrus.Fields{
			"status": wrapped.status,
			"t":      time.Since(started),
		}).Debugf("%s %s", r.Method, r.URL.Path)
	}
}
