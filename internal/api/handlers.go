package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bundlemux/bundlemux/internal/bundle"
	"github.com/bundlemux/bundlemux/internal/fetch"
)

type handler struct {
	cfg        Config
	logger     logrus.FieldLogger
	fetcher    *fetch.Client
	bundlePath string
	mapPath    string
}

// handleBundle fetches both upstreams' code concurrently and writes the
// spliced script. The combine step runs only after both fetches settled;
// there is no meaningful partial combination of one payload without the
// other, so the first failure discards everything.
func (h *handler) handleBundle(rw http.ResponseWriter, r *http.Request) {
	var codeA, codeB string
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		codeA, err = h.fetcher.Fetch(ctx, h.cfg.Runtime.CodeURL())
		return err
	})
	g.Go(func() (err error) {
		codeB, err = h.fetcher.Fetch(ctx, h.cfg.App.CodeURL())
		return err
	})
	if err := g.Wait(); err != nil {
		h.writeError(rw, err)
		return
	}

	rw.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	if _, err := io.WriteString(rw, bundle.CombineCode(codeA, codeB, h.mapPath)); err != nil {
		h.logger.WithError(err).Error("Error while writing the combined bundle")
	}
}

// handleMap fetches both code payloads and both maps concurrently, then
// merges the maps. The code payloads are fetched again rather than reused
// from a bundle request; requests are fully independent and nothing is
// cached between them.
func (h *handler) handleMap(rw http.ResponseWriter, r *http.Request) {
	var codeA, mapA, codeB, mapB string
	g, ctx := errgroup.WithContext(r.Context())
	for _, f := range []struct {
		dst *string
		url string
	}{
		{&codeA, h.cfg.Runtime.CodeURL()},
		{&mapA, h.cfg.Runtime.MapURL()},
		{&codeB, h.cfg.App.CodeURL()},
		{&mapB, h.cfg.App.MapURL()},
	} {
		f := f
		g.Go(func() (err error) {
			*f.dst, err = h.fetcher.Fetch(ctx, f.url)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		h.writeError(rw, err)
		return
	}

	combined, err := bundle.CombineSourceMaps(codeA, []byte(mapA), codeB, []byte(mapB), h.cfg.EntryName+".bundle")
	if err != nil {
		h.writeError(rw, err)
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	if _, err := rw.Write(combined); err != nil {
		h.logger.WithError(err).Error("Error while writing the combined source map")
	}
}

// writeError turns a failed aggregation into a terminal client response. The
// policy is all-or-nothing: an upstream failure discards anything already
// fetched and forwards the failure's detail, never a partial artifact.
func (h *handler) writeError(rw http.ResponseWriter, err error) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")

	var serr *fetch.StatusError
	if errors.As(err, &serr) {
		// The upstream body is usually a build error; forward it verbatim
		// so it shows up where the bundle was requested.
		h.logger.WithFields(logrus.Fields{
			"url":    serr.URL,
			"status": serr.Status,
		}).Warn("Upstream returned an error")
		rw.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(rw, serr.Body)
		return
	}

	var perr *bundle.MapParseError
	if errors.As(err, &perr) {
		h.logger.WithError(perr.Err).WithField("side", perr.Side).Error("Could not parse an upstream source map")
	} else {
		h.logger.WithError(err).Error("Upstream fetch failed")
	}
	rw.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(rw, err.Error())
}
