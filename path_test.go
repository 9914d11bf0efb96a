package brandsite

import "testing"

func TestFlatten_NestedAndLists(t *testing.T) {
	doc := map[string]any{
		"identity": map[string]any{
			"company_name": "Acme",
			"address":      map[string]any{"city": "Berlin"},
		},
		"links": []any{
			map[string]any{"label": "Jobs"},
			"plain",
		},
		"empty": map[string]any{},
	}
	flat := Flatten(doc)

	if v := flat["identity.company_name"]; v != "Acme" {
		t.Fatalf("identity.company_name => %v", v)
	}
	if v := flat["identity.address.city"]; v != "Berlin" {
		t.Fatalf("identity.address.city => %v", v)
	}
	if v := flat["links[0].label"]; v != "Jobs" {
		t.Fatalf("links[0].label => %v", v)
	}
	if v := flat["links[1]"]; v != "plain" {
		t.Fatalf("links[1] => %v", v)
	}
	if _, ok := flat["empty"]; ok {
		t.Fatalf("empty map must not produce a key")
	}
	if len(flat) != 4 {
		t.Fatalf("len(flat) = %d, want 4: %v", len(flat), flat)
	}
}

func TestFlatten_Empty(t *testing.T) {
	if got := Flatten(nil); len(got) != 0 {
		t.Fatalf("Flatten(nil) = %v", got)
	}
	if got := FlattenPrefixed("design.branding", map[string]any{"primary": "#123"}); got["design.branding.primary"] != "#123" {
		t.Fatalf("FlattenPrefixed => %v", got)
	}
}

func TestUnflatten_DeeperKeyWins(t *testing.T) {
	nested := Unflatten(map[string]string{
		"identity.company_name": "Acme",
		"identity":              "ignored",
		"labels.apply":          "Apply now",
	})
	identity, ok := nested["identity"].(map[string]any)
	if !ok {
		t.Fatalf("identity => %#v", nested["identity"])
	}
	if identity["company_name"] != "Acme" {
		t.Fatalf("identity.company_name => %v", identity["company_name"])
	}
	if v, ok := Lookup(nested, "labels.apply"); !ok || v != "Apply now" {
		t.Fatalf("labels.apply => %v ok=%v", v, ok)
	}
}

func TestLookup(t *testing.T) {
	root := map[string]any{
		"a":   map[string]any{"b": map[string]any{"c": 42.0}},
		"arr": []any{map[string]any{"name": "zero"}, map[string]any{"name": "one"}},
	}
	if v, ok := Lookup(root, "a.b.c"); !ok || v.(float64) != 42.0 {
		t.Fatalf("lookup a.b.c => %v ok=%v", v, ok)
	}
	if v, ok := Lookup(root, "arr[1].name"); !ok || v.(string) != "one" {
		t.Fatalf("lookup arr[1].name => %v ok=%v", v, ok)
	}
	if _, ok := Lookup(root, "arr[5].name"); ok {
		t.Fatalf("out of range index must miss")
	}
	if _, ok := Lookup(root, "a.x"); ok {
		t.Fatalf("missing key must miss")
	}
}

func TestSplitSegment(t *testing.T) {
	cases := []struct{ path, seg, rest string }{
		{"foo.bar", "foo", "bar"},
		{"[10].rest", "[10]", "rest"},
		{"jobs[1].title", "jobs", "[1].title"},
		{"[0][1]", "[0]", "[1]"},
		{"leaf", "leaf", ""},
		{"", "", ""},
		{"[3", "", "[3"},
	}
	for _, tc := range cases {
		seg, rest := splitSegment(tc.path)
		if seg != tc.seg || rest != tc.rest {
			t.Fatalf("splitSegment(%q) = %q, %q; want %q, %q", tc.path, seg, rest, tc.seg, tc.rest)
		}
	}
	if _, ok := Lookup(map[string]any{"a": []any{1}}, "a[0"); ok {
		t.Fatalf("unclosed index must miss")
	}
}

func TestLayer(t *testing.T) {
	got := layer(map[string]any{"a": 1, "b": 1}, nil, map[string]any{"b": 2})
	if got["a"] != 1 || got["b"] != 2 {
		t.Fatalf("layer => %v", got)
	}
}

func TestToString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{3.0, "3"},
		{0.25, "0.25"},
		{-12.0, "-12"},
		{true, "true"},
		{[]string{"a"}, "[a]"},
	}
	for _, tc := range cases {
		if got := toString(tc.in); got != tc.want {
			t.Fatalf("toString(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
