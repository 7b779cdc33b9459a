package bundle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineCode(t *testing.T) {
	t.Parallel()
	codeA := "var A=1;\n"
	codeB := "var B=2;\n//# sourceMappingURL=b.map\n"

	combined := CombineCode(codeA, codeB, "/index.map")
	assert.Equal(t, "var A=1;\nvar B=2;\n//# sourceMappingURL=/index.map", combined)
	assert.NotContains(t, combined, "b.map")
}

func TestCombineCodeIdempotent(t *testing.T) {
	t.Parallel()
	codeA := "var A=1;\n//# sourceMappingURL=a.map\n"
	codeB := "var B=2;\n"
	assert.Equal(t,
		CombineCode(codeA, codeB, "/main.map"),
		CombineCode(codeA, codeB, "/main.map"))
}

func TestCombineCodeOrderPreserved(t *testing.T) {
	t.Parallel()
	codeA := "first();\nsecond();\n//# sourceMappingURL=runtime.map\n"
	codeB := "third();\n//@ sourceMappingURL=app.js.map\n"

	combined := CombineCode(codeA, codeB, "/entry.map")
	assert.True(t, strings.HasPrefix(combined, "first();\nsecond();\nthird();\n"))
	assert.Equal(t, 1, strings.Count(combined, "sourceMappingURL"))
	assert.True(t, strings.HasSuffix(combined, "//# sourceMappingURL=/entry.map"))
}

func TestCombineCodeNoTrailingNewline(t *testing.T) {
	t.Parallel()
	combined := CombineCode("var A=1;\n", "var B=2;", "/x.map")
	assert.Equal(t, "var A=1;\nvar B=2;\n//# sourceMappingURL=/x.map", combined)
}

func TestCombineCodeEmptyPayloads(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "//# sourceMappingURL=/x.map", CombineCode("", "", "/x.map"))
}

func TestStripSourceMapRefs(t *testing.T) {
	t.Parallel()
	testdata := map[string]struct {
		in, out string
	}{
		"hash style":     {"code();\n//# sourceMappingURL=a.map\n", "code();\n"},
		"at style":       {"code();\n//@ sourceMappingURL=a.map\n", "code();\n"},
		"no reference":   {"code();\n", "code();\n"},
		"no newline end": {"code();\n//# sourceMappingURL=a.map", "code();\n"},
		"spaced":         {"code();\n//#  sourceMappingURL=a.map\n", "code();\n"},
		"all occurrences stripped": {
			"//# sourceMappingURL=one.map\ncode();\n//# sourceMappingURL=two.map\n",
			"code();\n",
		},
		"not a comment line kept": {"var s = \"sourceMappingURL=x\";\n", "var s = \"sourceMappingURL=x\";\n"},
	}
	for name, data := range testdata {
		data := data
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, data.out, StripSourceMapRefs(data.in))
		})
	}
}
