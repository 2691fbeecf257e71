package mapping

// pathSegment is a single step in a path expression: either a key lookup
// into a JSON object or an index into a JSON array.
type pathSegment struct {
	key     string
	index   int
	isIndex bool
}

// parsePath splits a path expression into segments.
//
// Grammar: segments separated by ".", where a segment is a bare identifier
// (object key) or an identifier followed by "[<n>]" (array index). Index
// segments chain: "a.b[0].c" -> [key a, key b, index 0, key c].
//
// Bracket content that is not an integer is dropped without error.
// Configurations in the wild rely on this being silent, so it is kept
// permissive on purpose.
func parsePath(path string) []pathSegment {
	var segments []pathSegment
	var buf []byte

	flush := func() {
		if len(buf) > 0 {
			segments = append(segments, pathSegment{key: string(buf)})
			buf = buf[:0]
		}
	}

	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			flush()
		case ']':
			if n, ok := parseIndex(buf); ok {
				segments = append(segments, pathSegment{index: n, isIndex: true})
			}
			buf = buf[:0]
		default:
			buf = append(buf, c)
		}
	}
	flush()

	return segments
}

// parseIndex parses buf as an integer, optionally negative.
func parseIndex(buf []byte) (int, bool) {
	neg := false
	if len(buf) > 0 && buf[0] == '-' {
		neg = true
		buf = buf[1:]
	}
	if len(buf) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range buf {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// Extract resolves a path expression against a decoded JSON document and
// returns the value it points at, or nil when any segment fails to resolve.
//
// Resolution never fails hard: a missing key, an index into a non-array, a
// key lookup into a non-object, and an out-of-range index all yield nil.
// Array indices follow the -len <= i < len convention, so negative indices
// count from the end.
func Extract(doc any, path string) any {
	current := doc

	for _, seg := range parsePath(path) {
		if current == nil {
			return nil
		}

		if seg.isIndex {
			arr, ok := current.([]any)
			if !ok {
				return nil
			}
			i := seg.index
			if i < 0 {
				i += len(arr)
			}
			if i < 0 || i >= len(arr) {
				return nil
			}
			current = arr[i]
			continue
		}

		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[seg.key]
	}

	return current
}
