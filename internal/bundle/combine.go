// Package bundle implements the combiner core: splicing two upstream
// JavaScript payloads into one script and merging their source maps so that
// generated positions keep resolving correctly after the splice.
//
// Everything here is pure; the package does no I/O and keeps no state, which
// is what lets concurrent requests combine independently without locks.
package bundle

import (
	"regexp"
	"strings"
)

var sourceMapRefRe = regexp.MustCompile(`(?m)^//[#@][ \t]*sourceMappingURL=[^\n]*\n?`)

// StripSourceMapRefs removes every sourceMappingURL reference comment from
// code. Upstream references point at the individual, unmerged maps and must
// not leak into combined output. A payload without a reference is returned
// unchanged.
//
// All occurrences are stripped, not just the first: a payload with more than
// one reference is malformed either way, and stripping all of them keeps the
// result deterministic.
func StripSourceMapRefs(code string) string {
	return sourceMapRefRe.ReplaceAllString(code, "")
}

// CombineCode splices the runtime payload (codeA) and the application payload
// (codeB) into one script, in that order, with both payloads' source map
// references stripped and a single new reference appended pointing at mapURL.
// No separator is inserted between the payloads beyond what they already end
// with.
func CombineCode(codeA, codeB, mapURL string) string {
	combined := StripSourceMapRefs(codeA) + StripSourceMapRefs(codeB)
	if combined != "" && !strings.HasSuffix(combined, "\n") {
		combined += "\n"
	}
	return combined + "//# sourceMappingURL=" + mapURL
}
