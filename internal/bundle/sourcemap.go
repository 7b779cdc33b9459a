package bundle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-sourcemap/sourcemap"
)

// Side identifies which payload of a combination an error refers to: the
// first payload is the runtime bundle, the second the application bundle.
type Side string

// The two sides of a combination, in splice order.
const (
	SideFirst  Side = "first"
	SideSecond Side = "second"
)

// MapParseError is returned when one of the input source maps cannot be
// parsed, identifying which side produced it.
type MapParseError struct {
	Side Side
	Err  error
}

func (e *MapParseError) Error() string {
	return fmt.Sprintf("parsing the %s upstream's source map: %s", e.Side, e.Err)
}

func (e *MapParseError) Unwrap() error { return e.Err }

// sourceMap is a revision 3 source map document. SourcesContent entries are
// pointers because null entries are meaningful and must survive a round trip.
type sourceMap struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// segment is one decoded mapping token with absolute positions. genLine,
// genCol, srcLine and srcCol are all zero-based. srcIndex is -1 for a
// generated-position-only token and nameIndex is -1 when no name is attached.
type segment struct {
	genLine, genCol int
	srcIndex        int
	srcLine, srcCol int
	nameIndex       int
}

// decodeMappings expands the delta-encoded mappings string into absolute
// segments, ordered by generated line and column.
func decodeMappings(mappings string) ([]segment, error) {
	var segs []segment
	var srcIndex, srcLine, srcCol, nameIndex int
	for line, group := range strings.Split(mappings, ";") {
		genCol := 0
		for _, raw := range strings.Split(group, ",") {
			if raw == "" {
				continue
			}
			fields, err := decodeSegmentFields(raw)
			if err != nil {
				return nil, err
			}
			seg := segment{genLine: line, srcIndex: -1, nameIndex: -1}
			genCol += fields[0]
			seg.genCol = genCol
			if len(fields) > 1 {
				srcIndex += fields[1]
				srcLine += fields[2]
				srcCol += fields[3]
				seg.srcIndex, seg.srcLine, seg.srcCol = srcIndex, srcLine, srcCol
				if len(fields) > 4 {
					nameIndex += fields[4]
					seg.nameIndex = nameIndex
				}
			}
			if seg.genCol < 0 || seg.srcIndex < -1 || seg.srcLine < 0 || seg.srcCol < 0 || seg.nameIndex < -1 {
				return nil, fmt.Errorf("mapping segment %q produces a negative position", raw)
			}
			segs = append(segs, seg)
		}
	}
	return segs, nil
}

func decodeSegmentFields(raw string) ([]int, error) {
	fields := make([]int, 0, 5)
	for rest := raw; rest != ""; {
		if len(fields) == 5 {
			return nil, fmt.Errorf("mapping segment %q has more than five fields", raw)
		}
		v, n, err := decodeVLQ(rest)
		if err != nil {
			return nil, fmt.Errorf("mapping segment %q: %w", raw, err)
		}
		fields = append(fields, v)
		rest = rest[n:]
	}
	switch len(fields) {
	case 1, 4, 5:
		return fields, nil
	default:
		return nil, fmt.Errorf("mapping segment %q has %d fields, want 1, 4 or 5", raw, len(fields))
	}
}

// encodeMappings is the inverse of decodeMappings. The segments must be
// ordered by generated line, then generated column.
func encodeMappings(segs []segment) string {
	var out []byte
	var prevSrcIndex, prevSrcLine, prevSrcCol, prevNameIndex int
	line, col := 0, 0
	firstInLine := true
	for _, seg := range segs {
		for line < seg.genLine {
			out = append(out, ';')
			line++
			col = 0
			firstInLine = true
		}
		if !firstInLine {
			out = append(out, ',')
		}
		firstInLine = false
		out = appendVLQ(out, seg.genCol-col)
		col = seg.genCol
		if seg.srcIndex < 0 {
			continue
		}
		out = appendVLQ(out, seg.srcIndex-prevSrcIndex)
		out = appendVLQ(out, seg.srcLine-prevSrcLine)
		out = appendVLQ(out, seg.srcCol-prevSrcCol)
		prevSrcIndex, prevSrcLine, prevSrcCol = seg.srcIndex, seg.srcLine, seg.srcCol
		if seg.nameIndex >= 0 {
			out = appendVLQ(out, seg.nameIndex-prevNameIndex)
			prevNameIndex = seg.nameIndex
		}
	}
	return string(out)
}

// parseMap validates and decodes one input map. go-sourcemap is the
// authority on validity; it rejects what the merge below cannot handle
// (indexed maps with sections, broken VLQ runs). It considers a map without
// mappings malformed, though, and that degenerate case is fine to merge, so
// it only sees maps with actual content.
func parseMap(side Side, data []byte) (*sourceMap, []segment, error) {
	var m sourceMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, &MapParseError{Side: side, Err: err}
	}
	if m.Version != 3 {
		return nil, nil, &MapParseError{Side: side, Err: fmt.Errorf("unsupported source map version %d", m.Version)}
	}
	if m.Mappings != "" {
		if _, err := sourcemap.Parse("", data); err != nil {
			return nil, nil, &MapParseError{Side: side, Err: err}
		}
	}
	segs, err := decodeMappings(m.Mappings)
	if err != nil {
		return nil, nil, &MapParseError{Side: side, Err: err}
	}
	for _, seg := range segs {
		if seg.srcIndex >= len(m.Sources) || (seg.nameIndex >= 0 && seg.nameIndex >= len(m.Names)) {
			return nil, nil, &MapParseError{
				Side: side,
				Err:  fmt.Errorf("mapping references source or name out of range"),
			}
		}
	}
	return &m, segs, nil
}

// resolvedSources returns the map's sources with its sourceRoot applied, so
// that two maps with different roots can share one merged sources list. The
// combined map emits no sourceRoot of its own.
func (m *sourceMap) resolvedSources() []string {
	if m.SourceRoot == "" {
		return m.Sources
	}
	root := m.SourceRoot
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	out := make([]string, len(m.Sources))
	for i, src := range m.Sources {
		if strings.Contains(src, "://") || strings.HasPrefix(src, "/") {
			out[i] = src
			continue
		}
		out[i] = root + src
	}
	return out
}

func (m *sourceMap) contentOf(i int) *string {
	if i < len(m.SourcesContent) {
		return m.SourcesContent[i]
	}
	return nil
}

// stringIndex builds a duplicate-free ordered list of strings.
type stringIndex struct {
	values  []string
	byValue map[string]int
}

func newStringIndex() *stringIndex {
	return &stringIndex{byValue: make(map[string]int)}
}

func (si *stringIndex) add(v string) int {
	if i, ok := si.byValue[v]; ok {
		return i
	}
	i := len(si.values)
	si.values = append(si.values, v)
	si.byValue[v] = i
	return i
}

// spliceOffset returns the generated position at which a payload appended to
// code would land: the number of full lines, plus the width of a trailing
// unterminated line if code does not end with a newline.
func spliceOffset(code string) (lines, cols int) {
	lines = strings.Count(code, "\n")
	if i := strings.LastIndexByte(code, '\n'); i < len(code)-1 {
		cols = len(code) - i - 1
	}
	return lines, cols
}

// CombineSourceMaps merges the source maps of two payloads spliced together
// in CombineCode order: codeA first, codeB immediately after. The result is a
// single revision 3 document whose mappings are freshly re-encoded over the
// union of both inputs' sources and names, so lookups inside either payload's
// span resolve exactly as they would against that payload's own map.
//
// The splice offsets are computed from the reference-stripped code texts,
// which is what CombineCode actually concatenates.
func CombineSourceMaps(codeA string, mapA []byte, codeB string, mapB []byte, file string) ([]byte, error) {
	a, segsA, err := parseMap(SideFirst, mapA)
	if err != nil {
		return nil, err
	}
	b, segsB, err := parseMap(SideSecond, mapB)
	if err != nil {
		return nil, err
	}

	sources := newStringIndex()
	names := newStringIndex()
	var contents []*string
	setContent := func(i int, c *string) {
		for len(contents) <= i {
			contents = append(contents, nil)
		}
		if contents[i] == nil {
			contents[i] = c
		}
	}

	remap := func(m *sourceMap) (srcMap, nameMap []int) {
		srcMap = make([]int, len(m.Sources))
		for i, src := range m.resolvedSources() {
			srcMap[i] = sources.add(src)
			setContent(srcMap[i], m.contentOf(i))
		}
		nameMap = make([]int, len(m.Names))
		for i, name := range m.Names {
			nameMap[i] = names.add(name)
		}
		return srcMap, nameMap
	}
	srcMapA, nameMapA := remap(a)
	srcMapB, nameMapB := remap(b)

	lineOffset, colOffset := spliceOffset(StripSourceMapRefs(codeA))

	merged := make([]segment, 0, len(segsA)+len(segsB))
	for _, seg := range segsA {
		if seg.srcIndex >= 0 {
			seg.srcIndex = srcMapA[seg.srcIndex]
		}
		if seg.nameIndex >= 0 {
			seg.nameIndex = nameMapA[seg.nameIndex]
		}
		merged = append(merged, seg)
	}
	for _, seg := range segsB {
		if seg.genLine == 0 {
			seg.genCol += colOffset
		}
		seg.genLine += lineOffset
		if seg.srcIndex >= 0 {
			seg.srcIndex = srcMapB[seg.srcIndex]
		}
		if seg.nameIndex >= 0 {
			seg.nameIndex = nameMapB[seg.nameIndex]
		}
		merged = append(merged, seg)
	}

	out := sourceMap{
		Version:  3,
		File:     file,
		Sources:  sources.values,
		Names:    names.values,
		Mappings: encodeMappings(merged),
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	for _, c := range contents {
		if c != nil {
			out.SourcesContent = contents
			for len(out.SourcesContent) < len(out.Sources) {
				out.SourcesContent = append(out.SourcesContent, nil)
			}
			break
		}
	}
	return json.Marshal(&out)
}
