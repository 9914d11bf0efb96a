package brandsite

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Placeholder resolution for HTML fragments.
// Syntax:
// - {{dotted.key}} and {{list[0].field}}, surrounding blanks inside the braces are ignored
// - <!-- BEGIN_LIST_ITEM:marker --> ... <!-- END_LIST_ITEM:marker --> (see listblock.go)
// There is no escaping, no expressions and no conditionals inside fragments.

// DefaultMaxIterations bounds the substitution passes of a Resolver.
const DefaultMaxIterations = 5

var (
	rxPlaceholder = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)
	rxListMarker  = regexp.MustCompile(`<!-- BEGIN_LIST_ITEM:(\S+?) -->`)
)

// -----------------------------
// Scanning
// -----------------------------

// Placeholders returns the distinct placeholder keys of text in order of
// first appearance.
func Placeholders(text string) []string {
	ms := rxPlaceholder.FindAllStringSubmatch(text, -1)
	if len(ms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ms))
	keys := make([]string, 0, len(ms))
	for _, m := range ms {
		k := m[1]
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// ListMarkers returns the distinct list markers opened in html.
func ListMarkers(html string) []string {
	ms := rxListMarker.FindAllStringSubmatch(html, -1)
	seen := make(map[string]struct{}, len(ms))
	var out []string
	for _, m := range ms {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// -----------------------------
// Resolver
// -----------------------------

// Resolver substitutes {{key}} tokens with mapping values, repeating full
// passes so that values which themselves contain tokens get resolved too.
type Resolver struct {
	// MaxIterations caps the number of passes; <= 0 means DefaultMaxIterations.
	MaxIterations int
}

// Resolution is the outcome of Resolver.Resolve.
type Resolution struct {
	Text       string
	Iterations int
	// Unresolved lists tokens whose key is absent from the mapping.
	Unresolved []string
	// Cyclic lists tokens whose key exists but which were still present when
	// the iteration ceiling was hit.
	Cyclic []string
}

// Converged reports whether every resolvable token was substituted.
func (r Resolution) Converged() bool { return len(r.Cyclic) == 0 }

// Remaining returns all keys left literally in the text.
func (r Resolution) Remaining() []string {
	out := make([]string, 0, len(r.Unresolved)+len(r.Cyclic))
	out = append(out, r.Unresolved...)
	out = append(out, r.Cyclic...)
	sort.Strings(out)
	return out
}

func (r Resolver) limit() int {
	if r.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return r.MaxIterations
}

// Resolve replaces whole {{...}} spans only; a key that is a prefix of
// another key never matches partially.
func (r Resolver) Resolve(text string, mapping map[string]any) Resolution {
	res := Resolution{Text: text}
	for res.Iterations < r.limit() {
		next := rxPlaceholder.ReplaceAllStringFunc(res.Text, func(tok string) string {
			key := tokenKey(tok)
			if v, ok := mapping[key]; ok {
				return valueText(v)
			}
			return tok
		})
		res.Iterations++
		if next == res.Text {
			break
		}
		res.Text = next
	}
	for _, key := range Placeholders(res.Text) {
		if _, ok := mapping[key]; ok {
			res.Cyclic = append(res.Cyclic, key)
		} else {
			res.Unresolved = append(res.Unresolved, key)
		}
	}
	return res
}

func tokenKey(tok string) string {
	m := rxPlaceholder.FindStringSubmatch(tok)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// -----------------------------
// Value rendering
// -----------------------------

// toString renders a scalar as page text. Integral numbers print without a
// decimal point and nil prints as nothing.
func toString(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	}
	return fmt.Sprint(v)
}

// valueText renders a mapping value for insertion into HTML. String lists are
// joined with ", ", other collections are written as JSON.
func valueText(v any) string {
	switch vv := v.(type) {
	case []any:
		strs := make([]string, len(vv))
		for i, it := range vv {
			s, ok := it.(string)
			if !ok {
				b, _ := json.Marshal(vv)
				return string(b)
			}
			strs[i] = s
		}
		return strings.Join(strs, ", ")
	case []string:
		return strings.Join(vv, ", ")
	case map[string]any:
		b, _ := json.Marshal(vv)
		return string(b)
	default:
		return toString(vv)
	}
}

func isBlank(v any) bool {
	return strings.TrimSpace(toString(v)) == ""
}
