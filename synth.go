package brandsite

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultSynthInstances = 3
	DefaultListItems      = 3
)

// Synthesizer builds a starter content document from the fragments named in
// a layout table. Values come from the variable tables; anything missing gets
// a recognisable example text so editors can see what to fill in.
type Synthesizer struct {
	Fragments FragmentSource
	Vars      *Variables
	// MaxInstances caps the instances generated per component.
	MaxInstances int
	// ListItems is the number of items generated per list field.
	ListItems int
	Log       *zap.Logger
	Diag      *Diagnostics
	Now       func() time.Time
}

// SynthReport summarises a synthesis run.
type SynthReport struct {
	RunID      string
	Components []string
	// MissingGlobal lists dotted keys referenced by fragments but absent from
	// the global variables.
	MissingGlobal []string
	// MissingLocal lists, per component, keys without a local variable.
	MissingLocal map[string][]string
	// Uncovered lists, per component, placeholders the document cannot supply.
	Uncovered map[string][]string
}

type synthTarget struct {
	component      string
	instances      int
	stylingDefault string
}

// Synthesize generates a document for every component of rows, enabled or
// not, so that toggling a row later finds content waiting.
func (s *Synthesizer) Synthesize(ctx context.Context, project string, rows []LayoutRow) (*ContentDocument, *SynthReport, error) {
	log := s.logger().With(zap.String("project", project))
	diag := scoped{d: s.Diag, project: project}
	vars := s.Vars
	if vars == nil {
		vars = NewVariables()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	report := &SynthReport{
		RunID:        uuid.NewString(),
		MissingLocal: map[string][]string{},
		Uncovered:    map[string][]string{},
	}
	doc := &ContentDocument{
		Metadata: map[string]any{
			"generated_at": now().Format(time.RFC3339),
			"generator":    "brandsite synth",
			"run_id":       report.RunID,
			"project":      project,
		},
		GlobalSettings: Unflatten(vars.Global),
		PageContent:    map[string]Instances{},
	}
	globals := Flatten(doc.GlobalSettings)
	missingGlobal := map[string]struct{}{}

	for _, t := range s.targets(rows) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		html, err := s.Fragments.Fragment(t.component)
		if err != nil {
			diag.warn(KindMissingResource, t.component, err.Error())
			continue
		}
		outer := Placeholders(stripListBlocks(html))
		lists := listBlockBodies(html)

		missingLocal := map[string]struct{}{}
		insts := make(Instances, 0, t.instances)
		for i := 1; i <= t.instances; i++ {
			inst := NewComponentInstance()
			if t.stylingDefault != "" {
				inst.Fields["styling_default"] = Field{ID: fieldID(t.component, i, "styling_default"), Value: t.stylingDefault}
			}
			for _, key := range outer {
				field, ok := strings.CutPrefix(key, t.component+".")
				switch {
				case ok:
					if isStyleField(field) {
						continue
					}
					val, found := s.localValue(t.component, field, i, 0, globals)
					if !found {
						missingLocal[field] = struct{}{}
					}
					inst.Fields[field] = Field{ID: fieldID(t.component, i, field), Value: val}
				case strings.Contains(key, "."):
					if strings.HasPrefix(key, "design.branding.") {
						continue
					}
					if _, ok := vars.Global[key]; !ok {
						missingGlobal[key] = struct{}{}
					}
				}
			}
			for marker, body := range lists {
				name, ok := strings.CutPrefix(marker, t.component+".")
				if !ok {
					diag.warn(KindMalformedInput, t.component,
						fmt.Sprintf("list marker %s does not belong to the component", marker))
					continue
				}
				inst.Lists[name] = s.synthList(t.component, marker, name, body, i, globals)
			}
			insts = append(insts, inst)
		}
		doc.PageContent[t.component] = insts
		report.Components = append(report.Components, t.component)
		if len(missingLocal) > 0 {
			report.MissingLocal[t.component] = sortedKeys(missingLocal)
		}
		log.Debug("component synthesized", zap.String("component", t.component), zap.Int("instances", len(insts)))
	}
	report.MissingGlobal = sortedKeys(missingGlobal)

	for _, c := range report.Components {
		html, _ := s.Fragments.Fragment(c)
		if gaps := CheckCoverage(c, html, doc, vars); len(gaps) > 0 {
			report.Uncovered[c] = gaps
			for _, g := range gaps {
				diag.warn(KindUncoveredPlaceholder, c, fmt.Sprintf("placeholder {{%s}} has no content source", g))
			}
		}
	}
	log.Info("content synthesized",
		zap.String("run_id", report.RunID),
		zap.Int("components", len(report.Components)),
		zap.Int("missing_global", len(report.MissingGlobal)))
	return doc, report, nil
}

// targets collapses rows into one entry per component, in first-seen order.
// A component occupying several layout slots gets at least one instance per
// slot, capped by MaxInstances.
func (s *Synthesizer) targets(rows []LayoutRow) []synthTarget {
	limit := s.MaxInstances
	if limit <= 0 {
		limit = DefaultSynthInstances
	}
	idx := map[string]int{}
	slots := map[string]int{}
	var out []synthTarget
	for _, r := range rows {
		slots[r.Component]++
		i, ok := idx[r.Component]
		if !ok {
			idx[r.Component] = len(out)
			out = append(out, synthTarget{component: r.Component, instances: 1, stylingDefault: r.StylingDefault})
			i = len(out) - 1
		}
		t := &out[i]
		t.instances = max(t.instances, r.MaxCount, slots[r.Component])
		if t.stylingDefault == "" {
			t.stylingDefault = r.StylingDefault
		}
	}
	for i := range out {
		out[i].instances = min(out[i].instances, limit)
	}
	return out
}

func (s *Synthesizer) synthList(component, marker, name, body string, instance int, globals map[string]any) ListField {
	n := s.ListItems
	if n <= 0 {
		n = DefaultListItems
	}
	var subs []string
	for _, k := range Placeholders(body) {
		sub := strings.TrimPrefix(k, marker+".")
		if !strings.Contains(sub, ".") {
			subs = append(subs, sub)
		}
	}
	l := ListField{ID: fieldID(component, instance, marker), Items: make([]ListItem, 0, n)}
	for j := 1; j <= n; j++ {
		it := ListItem{ID: fmt.Sprintf("%s%d", name, j), Fields: map[string]Field{}}
		for _, sub := range subs {
			val, _ := s.localValue(component, sub, instance, j, globals)
			it.Fields[sub] = Field{Value: val}
		}
		l.Items = append(l.Items, it)
	}
	return l
}

// localValue returns the local variable for component.key with embedded
// global references resolved, or a synthesized default. item is 0 outside
// list templates.
func (s *Synthesizer) localValue(component, key string, instance, item int, globals map[string]any) (string, bool) {
	if v, ok := s.Vars.LocalValue(component, key); ok {
		return Resolver{}.Resolve(v, globals).Text, true
	}
	n := instance
	if item > 0 {
		n = item
	}
	switch {
	case strings.Contains(key, "image_url"):
		return fmt.Sprintf("assets/images/%s_image%d.png", component, n), false
	case strings.Contains(key, "map_url"):
		return fmt.Sprintf("assets/images/%s_map%d.png", component, n), false
	case item > 0:
		return fmt.Sprintf("Example value for %s (instance %d, item %d)", key, instance, item), false
	default:
		return fmt.Sprintf("Example value for %s (instance %d)", key, instance), false
	}
}

func (s *Synthesizer) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// fieldID builds editor-facing ids like EB-Hero_section1-headline.
func fieldID(component string, instance int, field string) string {
	title := cases.Title(language.Und, cases.NoLower).String(component)
	return fmt.Sprintf("EB-%s%d-%s", title, instance, field)
}

func isStyleField(field string) bool {
	for _, f := range styleFields {
		if f == field {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
