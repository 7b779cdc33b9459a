package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundlemux/bundlemux/internal/lib/testutils"
	"github.com/bundlemux/bundlemux/internal/upstream"
)

type fakeUpstream struct {
	srv  *httptest.Server
	code string
	m    string

	codeStatus int
	mapStatus  int
}

func newFakeUpstream(t *testing.T, code, sourceMap string) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{code: code, m: sourceMap, codeStatus: http.StatusOK, mapStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/bundle.js", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(u.codeStatus)
		_, _ = io.WriteString(rw, u.code)
	})
	mux.HandleFunc("/bundle.js.map", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(u.mapStatus)
		_, _ = io.WriteString(rw, u.m)
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *fakeUpstream) origin(name string) upstream.Origin {
	return upstream.Origin{
		Name:     name,
		BaseURL:  u.srv.URL,
		CodePath: "/bundle.js",
		MapPath:  "/bundle.js.map",
	}
}

func testHandler(t *testing.T, runtime, app *fakeUpstream) http.Handler {
	t.Helper()
	return NewHandler(Config{
		EntryName: "index",
		Runtime:   runtime.origin("runtime"),
		App:       app.origin("app"),
	}, testutils.NewLogger(t))
}

const (
	mapFixtureA = `{"version":3,"sources":["a.js"],"names":[],"mappings":"AAAA"}`
	mapFixtureB = `{"version":3,"sources":["b.js"],"names":[],"mappings":"AAAA"}`
)

func TestHandleBundle(t *testing.T) {
	t.Parallel()
	runtime := newFakeUpstream(t, "var a = 1;\n//# sourceMappingURL=/bundle.js.map\n", mapFixtureA)
	app := newFakeUpstream(t, "var b = 2;\n", mapFixtureB)
	h := testHandler(t, runtime, app)

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/index.bundle", nil))

	res := rw.Result()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/javascript; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "var a = 1;\nvar b = 2;\n//# sourceMappingURL=/index.map", rw.Body.String())
}

func TestHandleMap(t *testing.T) {
	t.Parallel()
	runtime := newFakeUpstream(t, "var a = 1;\n", mapFixtureA)
	app := newFakeUpstream(t, "var b = 2;\n", mapFixtureB)
	h := testHandler(t, runtime, app)

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/index.map", nil))

	res := rw.Result()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))

	var combined struct {
		Version  int      `json:"version"`
		File     string   `json:"file"`
		Sources  []string `json:"sources"`
		Mappings string   `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &combined))
	assert.Equal(t, 3, combined.Version)
	assert.Equal(t, "index.bundle", combined.File)
	assert.Equal(t, []string{"a.js", "b.js"}, combined.Sources)
	assert.NotEmpty(t, combined.Mappings)
}

func TestHandleUnknownPath(t *testing.T) {
	t.Parallel()
	runtime := newFakeUpstream(t, "var a = 1;\n", mapFixtureA)
	app := newFakeUpstream(t, "var b = 2;\n", mapFixtureB)
	h := testHandler(t, runtime, app)

	testdata := []string{"/other.bundle", "/other.map", "/", "/index.bundle.js"}
	for _, path := range testdata {
		path := path
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			rw := httptest.NewRecorder()
			h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, rw.Code)
			assert.Equal(t, "cannot GET "+path, rw.Body.String())
		})
	}
}

func TestHandleMethodNotAllowed(t *testing.T) {
	t.Parallel()
	runtime := newFakeUpstream(t, "var a = 1;\n", mapFixtureA)
	app := newFakeUpstream(t, "var b = 2;\n", mapFixtureB)
	h := testHandler(t, runtime, app)

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/index.bundle", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rw.Code)
}

func TestHandleBundleUpstreamBuildError(t *testing.T) {
	t.Parallel()
	runtime := newFakeUpstream(t, "var a = 1;\n", mapFixtureA)
	app := newFakeUpstream(t, "build error: unexpected token", mapFixtureB)
	app.codeStatus = http.StatusInternalServerError
	h := testHandler(t, runtime, app)

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/index.bundle", nil))

	// The failing upstream's body is forwarded on its own, never spliced
	// together with the healthy upstream's code.
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.Equal(t, "build error: unexpected token", rw.Body.String())
	assert.NotContains(t, rw.Body.String(), "var a = 1;")
}

func TestHandleMapUpstreamUnreachable(t *testing.T) {
	t.Parallel()
	runtime := newFakeUpstream(t, "var a = 1;\n", mapFixtureA)
	app := newFakeUpstream(t, "var b = 2;\n", mapFixtureB)
	h := testHandler(t, runtime, app)
	app.srv.Close()

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/index.map", nil))
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.NotEmpty(t, rw.Body.String())
}

func TestHandleMapParseError(t *testing.T) {
	t.Parallel()
	runtime := newFakeUpstream(t, "var a = 1;\n", mapFixtureA)
	app := newFakeUpstream(t, "var b = 2;\n", "{not json")
	h := testHandler(t, runtime, app)

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/index.map", nil))
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.Contains(t, rw.Body.String(), "second upstream")
}
