package brandsite_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/suite"

	"github.com/nikitaxru/brandsite"
)

type AssemblerSuite struct {
	suite.Suite
	fragments fstest.MapFS
	diag      *brandsite.Diagnostics
	asm       *brandsite.Assembler
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerSuite))
}

func (s *AssemblerSuite) SetupTest() {
	s.fragments = fstest.MapFS{
		"hero_section.html": {Data: []byte(`<section class="hero"><h1>{{hero_section.headline}}</h1><img src="{{hero_section.image_url}}"></section>`)},
		"footer_section.html": {Data: []byte(`<footer>{{footer_section.copyright_text}}</footer>`)},
		"values_section.html": {Data: []byte(valuesFragment)},
		"header_section.html": {Data: []byte(`<!DOCTYPE html><html><head><title>{{identity.company_name}}</title>{{GENERATED_STYLE_BLOCK}}</head><body class="{{theme_classes}}">`)},
		"styled_section.html": {Data: []byte(`<style>.styled{color:red}</style><section class="styled">{{styled_section.text}}</section>`)},
		"team_section.html":   {Data: []byte(`<section>{{team_section.intro}}</section>`)},
	}
	s.diag = brandsite.NewDiagnostics(nil)
	s.asm = brandsite.NewAssembler(brandsite.NewFragments(s.fragments), brandsite.Resolver{}, nil, s.diag)
}

func rows(components ...string) []brandsite.LayoutRow {
	out := make([]brandsite.LayoutRow, 0, len(components))
	for i, c := range components {
		out = append(out, brandsite.LayoutRow{Component: c, Order: (i + 1) * 10, Enabled: true})
	}
	return out
}

func (s *AssemblerSuite) parse(doc string) *brandsite.ContentDocument {
	d, err := brandsite.ParseContent([]byte(doc))
	s.Require().NoError(err)
	return d
}

// TestHeroAndFooter renders two components and leaves no placeholder behind.
func (s *AssemblerSuite) TestHeroAndFooter() {
	s.fragments["hero_section.html"] = &fstest.MapFile{Data: []byte(`<section>{{hero_section.headline}}</section>`)}
	doc := s.parse(`{"page_content": {
	  "hero_section": [{"headline": {"value": "Welcome"}}],
	  "footer_section": [{"copyright_text": {"value": "© 2025 Acme"}}]
	}}`)

	out, err := s.asm.Assemble(context.Background(), brandsite.Page{Project: "acme", Style: brandsite.Style{Name: "classic"},
		Rows: []brandsite.LayoutRow{
			{Component: "footer_section", Order: 2, Enabled: true},
			{Component: "hero_section", Order: 1, Enabled: true},
		},
		Content: doc,
	})
	s.Require().NoError(err)
	s.Assert().Contains(out.HTML, "<section>Welcome</section>\n<footer>© 2025 Acme</footer>")
	s.Assert().NotContains(out.HTML, "{{")
	s.Assert().Empty(out.Unresolved)
	s.Assert().Equal([]string{"hero_section", "footer_section"}, out.Components)
	s.Assert().Contains(out.HTML, "<!DOCTYPE html>", "document wrapper added")
	s.Assert().Contains(out.HTML, `<body class="classic">`)
}

func (s *AssemblerSuite) TestValuesList() {
	doc := s.parse(`{"page_content": {"values_section": [{
	  "headline": "Our values",
	  "values_list": {"type": "list", "value": [
	    {"elements": [{"name": "title", "value": "Trust"}, {"name": "icon", "value": "shield"}]},
	    {"elements": [{"name": "title", "value": "Courage"}, {"name": "icon", "value": "bolt"}]},
	    {"elements": [{"name": "title", "value": "Care"}, {"name": "icon", "value": "heart"}]}
	  ]}
	}]}}`)

	out, err := s.asm.Assemble(context.Background(), brandsite.Page{Rows: rows("values_section"), Content: doc})
	s.Require().NoError(err)
	s.Assert().Equal(3, strings.Count(out.HTML, "<li>"))
	s.Assert().Contains(out.HTML, `<i class="shield"></i>Trust`)
	s.Assert().Contains(out.HTML, `<i class="bolt"></i>Courage`)
	s.Assert().Contains(out.HTML, `<i class="heart"></i>Care`)
	s.Assert().Contains(out.HTML, "<h2>Our values</h2>")
	s.Assert().NotContains(out.HTML, "LIST_ITEM")
}

// TestInstancesAndSkips checks the per-component instance counter.
func (s *AssemblerSuite) TestInstancesAndSkips() {
	doc := s.parse(`{"page_content": {
	  "team_section": [{"intro": "first"}, {"intro": "second"}]
	}}`)
	out, err := s.asm.Assemble(context.Background(), brandsite.Page{
		Rows:    rows("team_section", "team_section", "team_section", "hero_section"),
		Content: doc,
	})
	s.Require().NoError(err)
	first, second := strings.Index(out.HTML, "first"), strings.Index(out.HTML, "second")
	s.Assert().True(first >= 0 && first < second)
	s.Assert().Equal([]string{"team_section", "team_section"}, out.Components)
	s.Assert().Equal([]string{"team_section", "hero_section"}, out.Skipped)
}

func (s *AssemblerSuite) TestMissingFragment() {
	doc := s.parse(`{"page_content": {"ghost_section": [{"x": "y"}], "team_section": [{"intro": "hi"}]}}`)
	out, err := s.asm.Assemble(context.Background(), brandsite.Page{Rows: rows("ghost_section", "team_section"), Content: doc})
	s.Require().NoError(err)
	s.Assert().Contains(out.HTML, "<!-- missing component: ghost_section -->\n<section>hi</section>")
	s.Assert().Equal(1, s.diag.Count(brandsite.KindMissingResource))
}

// TestPrecedence layers defaults, global settings, style values and instance fields.
func (s *AssemblerSuite) TestPrecedence() {
	s.fragments["team_section.html"] = &fstest.MapFile{Data: []byte(
		`<section class="team">{{team_section.intro}}|{{team_section.outro}}|{{identity.company_name}}|{{labels.more}}|{{team_section.card_style}}|{{design.branding.primary}}</section>`)}
	doc := s.parse(`{
	  "global_settings": {"identity": {"company_name": "Acme"}, "labels": {"more": "More at {{identity.company_name}}"}},
	  "page_content": {"team_section": [{"intro": {"value": "", "example_value": "Example intro"}, "card_style": "from-instance"}]}
	}`)
	page := brandsite.Page{
		Rows:    rows("team_section"),
		Content: doc,
		Defaults: map[string]any{
			"identity":     map[string]any{"company_name": "Default GmbH"},
			"team_section": map[string]any{"outro": "default outro", "intro": "default intro"},
		},
		Style: brandsite.Style{Name: "stylish", Components: map[string]brandsite.ComponentStyle{
			"team_section": {Class: "team--stylish", CardStyle: "from-style"},
		}},
		Colors: map[string]any{"primary": "#003366"},
	}
	out, err := s.asm.Assemble(context.Background(), page)
	s.Require().NoError(err)
	s.Assert().Contains(out.HTML, `<section class="team team--stylish">Example intro|default outro|Acme|More at Acme|from-instance|#003366</section>`)
	s.Assert().Contains(out.HTML, "--primary: #003366;")
}

func (s *AssemblerSuite) TestUnresolvedReported() {
	doc := s.parse(`{"page_content": {"team_section": [{}]}}`)
	out, err := s.asm.Assemble(context.Background(), brandsite.Page{Rows: rows("team_section"), Content: doc})
	s.Require().NoError(err)
	s.Assert().Contains(out.HTML, "{{team_section.intro}}")
	s.Assert().Equal([]string{"team_section.intro"}, out.Unresolved)
	s.Assert().Equal(1, s.diag.Count(brandsite.KindUnresolvedPlaceholder))
}

func (s *AssemblerSuite) TestMissingListBlockWarns() {
	doc := s.parse(`{"page_content": {"team_section": [{"intro": "hi", "members": {"type": "list", "value": []}}]}}`)
	_, err := s.asm.Assemble(context.Background(), brandsite.Page{Rows: rows("team_section"), Content: doc})
	s.Require().NoError(err)
	s.Assert().Equal(1, s.diag.Count(brandsite.KindMissingListBlock))
}

// TestHeaderProvidesDocument keeps a header fragment's own <html> and style slot.
func (s *AssemblerSuite) TestHeaderProvidesDocument() {
	doc := s.parse(`{
	  "global_settings": {"identity": {"company_name": "Acme"}},
	  "page_content": {"header_section": [{}], "styled_section": [{"text": "styled"}]}
	}`)
	out, err := s.asm.Assemble(context.Background(), brandsite.Page{
		Rows:    rows("header_section", "styled_section"),
		Content: doc,
		Style:   brandsite.Style{Name: "classic", ThemeClasses: "theme-classic font-serif"},
	})
	s.Require().NoError(err)
	s.Assert().Equal(1, strings.Count(out.HTML, "<html"))
	s.Assert().Contains(out.HTML, "<title>Acme</title><style>.styled{color:red}</style></head>")
	s.Assert().Contains(out.HTML, `<body class="theme-classic font-serif">`)
	s.Assert().Contains(out.HTML, `<section class="styled">styled</section>`)
	s.Assert().Empty(out.Unresolved)
}

func (s *AssemblerSuite) TestStylesInjectedIntoWrapper() {
	doc := s.parse(`{"page_content": {"styled_section": [{"text": "x"}]}}`)
	out, err := s.asm.Assemble(context.Background(), brandsite.Page{Project: "acme", Rows: rows("styled_section"), Content: doc})
	s.Require().NoError(err)
	head := out.HTML[:strings.Index(out.HTML, "</head>")]
	s.Assert().Contains(head, "<style>.styled{color:red}</style>")
	s.Assert().Contains(head, "<title>acme</title>")
}

// TestStylesKeptWithoutHead checks that component CSS survives when no
// document head exists to receive it.
func (s *AssemblerSuite) TestStylesKeptWithoutHead() {
	doc := s.parse(`{"page_content": {"styled_section": [{"text": "x"}]}}`)

	s.asm.WrapDocument = false
	out, err := s.asm.Assemble(context.Background(), brandsite.Page{Rows: rows("styled_section"), Content: doc})
	s.Require().NoError(err)
	s.Assert().Equal("<style>.styled{color:red}</style>\n<section class=\"styled\">x</section>", out.HTML)
	s.Assert().Equal(1, s.diag.Count(brandsite.KindDetachedStyles))

	s.fragments["header_section.html"] = &fstest.MapFile{Data: []byte(`<html><body>`)}
	doc = s.parse(`{"page_content": {"header_section": [{}], "styled_section": [{"text": "x"}]}}`)
	s.asm.WrapDocument = true
	out, err = s.asm.Assemble(context.Background(), brandsite.Page{Rows: rows("header_section", "styled_section"), Content: doc})
	s.Require().NoError(err)
	s.Assert().Equal("<html><style>.styled{color:red}</style>\n<body>\n<section class=\"styled\">x</section>", out.HTML)
	s.Assert().Equal(2, s.diag.Count(brandsite.KindDetachedStyles))
}

func (s *AssemblerSuite) TestMarkdownAndAssets() {
	s.fragments["team_section.html"] = &fstest.MapFile{Data: []byte(
		`<section>{{team_section.intro}}<img src="{{team_section.image_url}}"></section>`)}
	doc := s.parse(`{"page_content": {"team_section": [
	  {"intro": {"value": "We **build** things", "format": "markdown"}},
	  {"intro": "plain"}
	]}}`)
	out, err := s.asm.Assemble(context.Background(), brandsite.Page{
		Rows:    rows("team_section", "team_section"),
		Content: doc,
		Assets:  map[string][]string{"team_section": {"a.png", "b.png"}},
	})
	s.Require().NoError(err)
	s.Assert().Contains(out.HTML, "<p>We <strong>build</strong> things</p>")
	s.Assert().Contains(out.HTML, `plain<img src="b.png">`)
	s.Assert().Contains(out.HTML, `<img src="a.png">`)
}

func (s *AssemblerSuite) TestNoWrapper() {
	s.asm.WrapDocument = false
	doc := s.parse(`{"page_content": {"team_section": [{"intro": "hi"}]}}`)
	out, err := s.asm.Assemble(context.Background(), brandsite.Page{Rows: rows("team_section"), Content: doc})
	s.Require().NoError(err)
	s.Assert().Equal("<section>hi</section>", out.HTML)
}

func (s *AssemblerSuite) TestCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := s.parse(`{"page_content": {"team_section": [{"intro": "hi"}]}}`)
	_, err := s.asm.Assemble(ctx, brandsite.Page{Rows: rows("team_section"), Content: doc})
	s.Assert().ErrorIs(err, context.Canceled)
}
