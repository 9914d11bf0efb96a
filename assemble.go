package brandsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

// StyleBlockKey is the placeholder receiving the consolidated <style> blocks.
const StyleBlockKey = "GENERATED_STYLE_BLOCK"

var (
	rxHTMLTag  = regexp.MustCompile(`(?i)<html[\s>]`)
	rxHeadEnd  = regexp.MustCompile(`(?i)</head>`)
	rxBodyTag  = regexp.MustCompile(`(?i)<body[\s>]`)
	assetNeeds = []string{"image_url", "map_url"}
)

// -----------------------------
// Fragments
// -----------------------------

// FragmentSource provides the HTML fragment of a component. A fragment that
// does not exist is reported with an error wrapping ErrMissingResource.
type FragmentSource interface {
	Fragment(component string) (string, error)
}

// Fragments reads <component>.html, falling back to <component>_section.html.
type Fragments struct {
	fsys fs.FS
}

// NewFragments serves fragments from fsys.
func NewFragments(fsys fs.FS) *Fragments { return &Fragments{fsys: fsys} }

// DirFragments serves fragments from a directory.
func DirFragments(dir string) *Fragments { return NewFragments(os.DirFS(dir)) }

func (f *Fragments) Fragment(component string) (string, error) {
	for _, name := range []string{component + ".html", component + "_section.html"} {
		b, err := fs.ReadFile(f.fsys, name)
		if err == nil {
			return string(b), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read fragment %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("%w: fragment for component %s", ErrMissingResource, component)
}

// -----------------------------
// Assembler
// -----------------------------

// Page is everything needed to render one (project, style) document.
type Page struct {
	Project string
	Style   Style
	// Rows are the enabled layout rows; they are rendered in ascending order.
	Rows    []LayoutRow
	Content *ContentDocument
	// Defaults is the lowest mapping layer (global defaults document).
	Defaults map[string]any
	// Colors become design.branding.* keys and CSS variables.
	Colors map[string]any
	// Assets are fallback urls for empty image_url/map_url fields.
	Assets map[string][]string
}

// Rendered is the assembled document.
type Rendered struct {
	HTML       string
	Components []string
	// Skipped lists layout slots without a remaining content instance.
	Skipped    []string
	Unresolved []string
}

// Assembler concatenates the resolved fragments of a page.
type Assembler struct {
	Fragments FragmentSource
	Resolver  Resolver
	// WrapDocument adds head/body boilerplate when no fragment provides an
	// <html> element.
	WrapDocument bool
	Markdown     goldmark.Markdown
	Log          *zap.Logger
	Diag         *Diagnostics
}

// NewAssembler returns an assembler with markdown support and document
// wrapping enabled.
func NewAssembler(fragments FragmentSource, r Resolver, log *zap.Logger, diag *Diagnostics) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{
		Fragments:    fragments,
		Resolver:     r,
		WrapDocument: true,
		Markdown:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		Log:          log,
		Diag:         diag,
	}
}

type slot struct {
	row     LayoutRow
	index   int
	inst    ComponentInstance
	html    string
	missing bool
}

// Assemble renders p. Missing fragments become comment markers, unresolved
// placeholders stay in the output; both are reported through Diag.
func (a *Assembler) Assemble(ctx context.Context, p Page) (*Rendered, error) {
	if p.Content == nil {
		return nil, fmt.Errorf("%w: no content document", ErrMalformedContent)
	}
	log := a.logger().With(zap.String("project", p.Project), zap.String("style", p.Style.Name))
	diag := scoped{d: a.Diag, project: p.Project, style: p.Style.Name}

	rows := append([]LayoutRow(nil), p.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Order < rows[j].Order })

	base := layer(
		Flatten(p.Defaults),
		FlattenPrefixed("design.branding", p.Colors),
		Flatten(p.Content.GlobalSettings),
	)
	base["theme_classes"] = p.Style.ThemeClasses
	if p.Style.ThemeClasses == "" {
		base["theme_classes"] = p.Style.Name
	}

	res := &Rendered{}
	counters := map[string]int{}
	var slots []slot
	var extracted []string
	blockReferenced := false
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := counters[row.Component]
		inst, ok := p.Content.Instance(row.Component, idx)
		if !ok {
			log.Debug("no content instance left for layout slot",
				zap.String("component", row.Component), zap.Int("order", row.Order))
			res.Skipped = append(res.Skipped, row.Component)
			continue
		}
		counters[row.Component]++

		html, err := a.Fragments.Fragment(row.Component)
		if err != nil {
			diag.warn(KindMissingResource, row.Component, err.Error())
			slots = append(slots, slot{row: row, missing: true})
			continue
		}
		html, styles := extractStyles(html)
		extracted = append(extracted, styles...)
		if strings.Contains(html, StyleBlockKey) {
			blockReferenced = true
		}
		slots = append(slots, slot{row: row, index: idx, inst: inst, html: html})
	}
	block := styleBlock(p.Colors, extracted)
	base[StyleBlockKey] = block

	unresolved := map[string]struct{}{}
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		if s.missing {
			parts = append(parts, fmt.Sprintf("<!-- missing component: %s -->", s.row.Component))
			continue
		}
		out, r := a.renderSlot(p, s, base, diag)
		for _, k := range r.Remaining() {
			unresolved[k] = struct{}{}
		}
		parts = append(parts, out)
		res.Components = append(res.Components, s.row.Component)
	}

	doc := strings.Join(parts, "\n")
	switch {
	case a.WrapDocument && !rxHTMLTag.MatchString(doc):
		doc = wrapDocument(doc, base, p.Project, block)
	case !blockReferenced && block != "":
		var placed bool
		if doc, placed = placeStyleBlock(doc, block); !placed {
			diag.warn(KindDetachedStyles, "", "page has no <head>; style block placed ahead of the content")
		}
	}
	res.HTML = doc
	for k := range unresolved {
		res.Unresolved = append(res.Unresolved, k)
	}
	sort.Strings(res.Unresolved)
	log.Info("page assembled",
		zap.Int("components", len(res.Components)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("unresolved", len(res.Unresolved)))
	return res, nil
}

// renderSlot resolves one component instance. The mapping is layered from
// lowest to highest precedence: base (defaults, colours, global settings),
// layout styling, style variant, instance fields.
func (a *Assembler) renderSlot(p Page, s slot, base map[string]any, diag scoped) (string, Resolution) {
	c := s.row.Component
	cs := p.Style.Components[c]

	class := cs.Class
	if class == "" {
		class = s.row.StylingDefault
	}
	html := addSectionClass(s.html, class)

	rowLayer := map[string]any{}
	if s.row.StylingDefault != "" {
		rowLayer[c+".styling_default"] = s.row.StylingDefault
	}
	instLayer := make(map[string]any, len(s.inst.Fields))
	for name, f := range s.inst.Fields {
		if text := a.fieldText(f); text != "" {
			instLayer[c+"."+name] = text
		}
	}
	mapping := layer(base, rowLayer, cs.mapping(c), instLayer)

	if urls := p.Assets[c]; len(urls) > 0 {
		for _, key := range Placeholders(html) {
			if !strings.HasPrefix(key, c+".") || !needsAsset(key) || !isBlank(mapping[key]) {
				continue
			}
			mapping[key] = urls[s.index%len(urls)]
		}
	}

	for _, name := range s.inst.ListNames() {
		marker := c + "." + name
		items := a.listItems(s.inst.Lists[name], marker, mapping)
		out, found := ExpandList(html, marker, items, mapping, a.Resolver)
		if !found {
			diag.warn(KindMissingListBlock, c, fmt.Sprintf("no list block for marker %s", marker))
			continue
		}
		html = out
	}

	r := a.Resolver.Resolve(html, mapping)
	for _, k := range r.Unresolved {
		diag.warn(KindUnresolvedPlaceholder, c, fmt.Sprintf("unresolved placeholder {{%s}}", k))
	}
	for _, k := range r.Cyclic {
		diag.warn(KindCyclicPlaceholder, c, fmt.Sprintf("placeholder {{%s}} still present after %d passes", k, r.Iterations))
	}
	return r.Text, r
}

func (a *Assembler) listItems(l ListField, marker string, mapping map[string]any) []ListItemMapping {
	items := make([]ListItemMapping, 0, len(l.Items))
	for _, it := range l.Items {
		m := make(ListItemMapping, len(it.Fields))
		for sub, f := range it.Fields {
			text := a.fieldText(f)
			if text == "" {
				text = toString(mapping[marker+"."+sub])
			}
			m[sub] = text
		}
		items = append(items, m)
	}
	return items
}

func (a *Assembler) fieldText(f Field) string {
	text := f.Text("")
	if text == "" || !strings.EqualFold(f.Format, "markdown") || a.Markdown == nil {
		return text
	}
	var buf bytes.Buffer
	if err := a.Markdown.Convert([]byte(text), &buf); err != nil {
		a.logger().Warn("markdown conversion failed", zap.Error(err))
		return text
	}
	return strings.TrimSpace(buf.String())
}

func (a *Assembler) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

func needsAsset(key string) bool {
	for _, n := range assetNeeds {
		if strings.Contains(key, n) {
			return true
		}
	}
	return false
}

// placeStyleBlock inserts block before </head>. Without a head it goes before
// <body>, or ahead of everything; placed is false in those cases.
func placeStyleBlock(doc, block string) (out string, placed bool) {
	if loc := rxHeadEnd.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + block + "\n" + doc[loc[0]:], true
	}
	if loc := rxBodyTag.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + block + "\n" + doc[loc[0]:], false
	}
	return block + "\n" + doc, false
}

func wrapDocument(body string, mapping map[string]any, project, styles string) string {
	title := toString(mapping["identity.company_name"])
	if title == "" {
		title = project
	}
	lang := toString(mapping["identity.language"])
	if lang == "" {
		lang = "de"
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&b, "<html lang=\"%s\">\n<head>\n<meta charset=\"utf-8\">\n", lang)
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", title)
	if styles != "" {
		b.WriteString(styles)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "</head>\n<body class=\"%s\">\n", toString(mapping["theme_classes"]))
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}
