package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginURLs(t *testing.T) {
	t.Parallel()
	testdata := map[string]struct {
		origin  Origin
		codeURL string
		mapURL  string
	}{
		"plain": {
			Origin{BaseURL: "http://127.0.0.1:8081", CodePath: "/runtime.bundle", MapPath: "/runtime.map"},
			"http://127.0.0.1:8081/runtime.bundle",
			"http://127.0.0.1:8081/runtime.map",
		},
		"trailing slash on base": {
			Origin{BaseURL: "http://127.0.0.1:8082/", CodePath: "/bundle.js", MapPath: "/bundle.js.map"},
			"http://127.0.0.1:8082/bundle.js",
			"http://127.0.0.1:8082/bundle.js.map",
		},
		"no leading slash on path": {
			Origin{BaseURL: "http://localhost:9000", CodePath: "bundle.js", MapPath: "bundle.js.map"},
			"http://localhost:9000/bundle.js",
			"http://localhost:9000/bundle.js.map",
		},
	}
	for name, data := range testdata {
		data := data
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, data.codeURL, data.origin.CodeURL())
			assert.Equal(t, data.mapURL, data.origin.MapURL())
		})
	}
}
