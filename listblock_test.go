package brandsite_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitaxru/brandsite"
)

const valuesFragment = `<section class="values">
<h2>{{values_section.headline}}</h2>
<ul>
<!-- BEGIN_LIST_ITEM:values_section.values_list -->
  <li><i class="{{icon}}"></i>{{title}}</li>
<!-- END_LIST_ITEM:values_section.values_list -->
</ul>
</section>`

func valueItems(titles ...string) []brandsite.ListItemMapping {
	items := make([]brandsite.ListItemMapping, 0, len(titles))
	for i, t := range titles {
		items = append(items, brandsite.ListItemMapping{"title": t, "icon": "icon-" + string(rune('a'+i))})
	}
	return items
}

func TestExpandList_ThreeItemsInOrder(t *testing.T) {
	out, found := brandsite.ExpandList(valuesFragment, "values_section.values_list",
		valueItems("Trust", "Courage", "Care"), nil, brandsite.Resolver{})
	require.True(t, found)

	assert.Equal(t, 3, strings.Count(out, "<li>"))
	assert.NotContains(t, out, "BEGIN_LIST_ITEM")
	assert.NotContains(t, out, "END_LIST_ITEM")
	trust, courage, care := strings.Index(out, "Trust"), strings.Index(out, "Courage"), strings.Index(out, "Care")
	assert.True(t, trust < courage && courage < care, "items out of order: %s", out)
	assert.Contains(t, out, `<i class="icon-a"></i>Trust`)
	assert.Contains(t, out, `<i class="icon-c"></i>Care`)
	// text outside the block is untouched
	assert.Contains(t, out, "{{values_section.headline}}")
}

func TestExpandList_ZeroItemsRemovesBlock(t *testing.T) {
	out, found := brandsite.ExpandList(valuesFragment, "values_section.values_list", nil, nil, brandsite.Resolver{})
	require.True(t, found)
	assert.NotContains(t, out, "LIST_ITEM")
	assert.NotContains(t, out, "{{title}}")
	assert.Contains(t, out, "<ul>\n\n</ul>")
}

func TestExpandList_MissingBlockIsNoop(t *testing.T) {
	out, found := brandsite.ExpandList(valuesFragment, "values_section.benefits", valueItems("x"), nil, brandsite.Resolver{})
	assert.False(t, found)
	assert.Equal(t, valuesFragment, out)
}

func TestExpandList_MarkerMatchIsExact(t *testing.T) {
	_, found := brandsite.ExpandList(valuesFragment, "values_section.Values_list", valueItems("x"), nil, brandsite.Resolver{})
	assert.False(t, found, "marker match must be case sensitive")

	spaced := strings.Replace(valuesFragment, "<!-- BEGIN_LIST_ITEM:values_section.values_list -->",
		"<!--  BEGIN_LIST_ITEM:values_section.values_list -->", 1)
	_, found = brandsite.ExpandList(spaced, "values_section.values_list", valueItems("x"), nil, brandsite.Resolver{})
	assert.False(t, found, "marker match must be whitespace sensitive")
}

func TestExpandList_OnlyFirstSpan(t *testing.T) {
	html := "<!-- BEGIN_LIST_ITEM:c.l -->[{{v}}]<!-- END_LIST_ITEM:c.l -->|<!-- BEGIN_LIST_ITEM:c.l -->({{v}})<!-- END_LIST_ITEM:c.l -->"
	out, found := brandsite.ExpandList(html, "c.l", []brandsite.ListItemMapping{{"v": 1.0}, {"v": 2.0}}, nil, brandsite.Resolver{})
	require.True(t, found)
	assert.Equal(t, "[1][2]|<!-- BEGIN_LIST_ITEM:c.l -->({{v}})<!-- END_LIST_ITEM:c.l -->", out)
}

func TestExpandList_IndependentMarkers(t *testing.T) {
	html := "<!-- BEGIN_LIST_ITEM:c.a -->a:{{v}};<!-- END_LIST_ITEM:c.a -->" +
		"<!-- BEGIN_LIST_ITEM:c.b -->b:{{v}};<!-- END_LIST_ITEM:c.b -->"
	as := []brandsite.ListItemMapping{{"v": "1"}, {"v": "2"}}
	bs := []brandsite.ListItemMapping{{"v": "x"}}
	r := brandsite.Resolver{}

	ab, _ := brandsite.ExpandList(html, "c.a", as, nil, r)
	ab, _ = brandsite.ExpandList(ab, "c.b", bs, nil, r)
	ba, _ := brandsite.ExpandList(html, "c.b", bs, nil, r)
	ba, _ = brandsite.ExpandList(ba, "c.a", as, nil, r)

	assert.Equal(t, "a:1;a:2;b:x;", ab)
	assert.Equal(t, ab, ba)
}

func TestExpandList_QualifiedKeysAndBase(t *testing.T) {
	html := "<!-- BEGIN_LIST_ITEM:jobs_section.jobs -->{{jobs_section.jobs.title}} @ {{identity.company_name}} {{missing}};<!-- END_LIST_ITEM:jobs_section.jobs -->"
	base := map[string]any{"identity.company_name": "Acme", "title": "base title"}
	out, found := brandsite.ExpandList(html, "jobs_section.jobs",
		[]brandsite.ListItemMapping{{"title": "Engineer"}, {"title": "Designer"}}, base, brandsite.Resolver{})
	require.True(t, found)
	assert.Equal(t, "Engineer @ Acme {{missing}};Designer @ Acme {{missing}};", out)
}
