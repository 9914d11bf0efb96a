package brandsite

import (
	"regexp"
	"strings"
	"sync"
)

// List blocks repeat the enclosed fragment once per list item:
//
//	<!-- BEGIN_LIST_ITEM:values_section.values_list -->
//	  <li>{{title}}</li>
//	<!-- END_LIST_ITEM:values_section.values_list -->
//
// The marker match is exact (case and whitespace sensitive).

var listPatterns sync.Map // marker -> *regexp.Regexp

func listBlockPattern(marker string) *regexp.Regexp {
	if rx, ok := listPatterns.Load(marker); ok {
		return rx.(*regexp.Regexp)
	}
	q := regexp.QuoteMeta(marker)
	rx := regexp.MustCompile(`(?s)<!-- BEGIN_LIST_ITEM:` + q + ` -->(.*?)<!-- END_LIST_ITEM:` + q + ` -->`)
	listPatterns.Store(marker, rx)
	return rx
}

// ListItemMapping is the per-item mapping of sub-field name to value.
type ListItemMapping map[string]any

// ExpandList replaces the first BEGIN/END span for marker with one rendering
// of the enclosed template per item, in item order. Each rendering resolves
// the item's sub-fields layered over base (base may be nil). Sub-fields are
// addressable both bare ({{title}}) and qualified ({{marker.title}}).
// Zero items remove the span entirely. found is false when no span exists,
// in which case html is returned unchanged.
func ExpandList(html, marker string, items []ListItemMapping, base map[string]any, r Resolver) (out string, found bool) {
	rx := listBlockPattern(marker)
	loc := rx.FindStringSubmatchIndex(html)
	if loc == nil {
		return html, false
	}
	tpl := html[loc[2]:loc[3]]

	var b strings.Builder
	for _, item := range items {
		mapping := make(map[string]any, len(item)*2)
		for k, v := range item {
			mapping[k] = v
			mapping[marker+"."+k] = v
		}
		b.WriteString(r.Resolve(tpl, layer(base, mapping)).Text)
	}
	return html[:loc[0]] + b.String() + html[loc[1]:], true
}

// listBlockBodies returns the template enclosed by each marker's first span.
func listBlockBodies(html string) map[string]string {
	out := map[string]string{}
	for _, marker := range ListMarkers(html) {
		m := listBlockPattern(marker).FindStringSubmatch(html)
		if len(m) == 2 {
			out[marker] = m[1]
		}
	}
	return out
}

// stripListBlocks removes every complete list span, leaving the text outside
// the repeated templates.
func stripListBlocks(html string) string {
	for _, marker := range ListMarkers(html) {
		html = listBlockPattern(marker).ReplaceAllString(html, "")
	}
	return html
}
