package brandsite

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// -----------------------------
// Dotted paths: flattening and lookup
// -----------------------------

// Flatten converts a nested document into a single-level mapping keyed by
// dotted paths. Sequence elements are addressed as key[i], so
// {"a": [{"b": 1}]} becomes {"a[0].b": 1}. Empty maps and empty sequences
// produce no keys.
func Flatten(doc map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, "", doc)
	return out
}

// FlattenPrefixed is Flatten with every key placed under prefix.
func FlattenPrefixed(prefix string, doc map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, prefix, doc)
	return out
}

func flattenInto(out map[string]any, prefix string, v any) {
	switch vv := v.(type) {
	case map[string]any:
		for k, val := range vv {
			flattenInto(out, joinKey(prefix, k), val)
		}
	case map[string]string:
		for k, val := range vv {
			out[joinKey(prefix, k)] = val
		}
	case []any:
		for i, val := range vv {
			flattenInto(out, fmt.Sprintf("%s[%d]", prefix, i), val)
		}
	case []string:
		for i, val := range vv {
			out[fmt.Sprintf("%s[%d]", prefix, i)] = val
		}
	default:
		if prefix != "" {
			out[prefix] = vv
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Unflatten builds a nested document from dotted keys. When a key is both a
// leaf and a parent ("a" and "a.b"), the deeper key wins.
func Unflatten(flat map[string]string) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, key := range keys {
		parts := strings.Split(key, ".")
		cur := root
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
		leaf := parts[len(parts)-1]
		if _, isMap := cur[leaf].(map[string]any); isMap {
			continue
		}
		cur[leaf] = flat[key]
	}
	return root
}

// Lookup walks v along a dotted path with optional [i] indexes.
func Lookup(v any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return v, v != nil
	}
	cur := v
	rest := path
	for rest != "" {
		seg, tail := splitSegment(rest)
		if seg == "" {
			return nil, false
		}
		if strings.HasPrefix(seg, "[") {
			arr, ok := cur.([]any)
			if !ok {
				return nil, false
			}
			i, err := strconv.Atoi(strings.Trim(seg, "[]"))
			if err != nil || i < 0 || i >= len(arr) {
				return nil, false
			}
			cur = arr[i]
		} else {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			nv, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = nv
		}
		rest = tail
	}
	return cur, true
}

// splitSegment cuts the first segment off a path. A bracketed index such as
// "[2]" is a segment of its own, and the dot after a segment is dropped. An
// unclosed bracket yields an empty segment.
func splitSegment(path string) (seg, rest string) {
	if strings.HasPrefix(path, "[") {
		if end := strings.IndexByte(path, ']'); end >= 0 {
			return path[:end+1], strings.TrimPrefix(path[end+1:], ".")
		}
	}
	end := strings.IndexAny(path, ".[")
	if end < 0 {
		return path, ""
	}
	return path[:end], strings.TrimPrefix(path[end:], ".")
}

// layer merges mappings from lowest to highest precedence into a new map.
func layer(maps ...map[string]any) map[string]any {
	n := 0
	for _, m := range maps {
		n += len(m)
	}
	out := make(map[string]any, n)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
