package brandsite

import (
	"sort"
	"strings"
)

// generatedKeys are supplied by the assembler itself.
var generatedKeys = map[string]struct{}{
	StyleBlockKey:   {},
	"theme_classes": {},
}

var styleFields = []string{"styling_default", "background_color", "card_style", "image_frame", "button_style"}

// CheckCoverage returns the placeholders of a component fragment that no
// source can supply: not a global setting or global variable, not a field of
// any instance, not a local variable, and for list templates not a sub-field
// of any item. The check is advisory.
func CheckCoverage(component, html string, doc *ContentDocument, vars *Variables) []string {
	covered := map[string]struct{}{}
	add := func(k string) { covered[k] = struct{}{} }
	for k := range generatedKeys {
		add(k)
	}
	for _, f := range styleFields {
		add(component + "." + f)
	}
	if doc != nil {
		for k := range Flatten(doc.GlobalSettings) {
			add(k)
		}
	}
	if vars != nil {
		for k := range vars.Global {
			add(k)
		}
		for k := range vars.Local[component] {
			add(component + "." + k)
		}
	}

	subs := map[string]map[string]struct{}{} // list name -> sub-fields
	if doc != nil {
		for _, inst := range doc.PageContent[component] {
			for name := range inst.Fields {
				add(component + "." + name)
			}
			for name, l := range inst.Lists {
				if subs[name] == nil {
					subs[name] = map[string]struct{}{}
				}
				for _, it := range l.Items {
					for sub := range it.Fields {
						subs[name][sub] = struct{}{}
					}
				}
			}
		}
	}

	isCovered := func(k string) bool {
		if _, ok := covered[k]; ok {
			return true
		}
		return strings.HasPrefix(k, "design.branding.")
	}

	gaps := map[string]struct{}{}
	for _, k := range Placeholders(stripListBlocks(html)) {
		if !isCovered(k) {
			gaps[k] = struct{}{}
		}
	}
	for marker, body := range listBlockBodies(html) {
		name := strings.TrimPrefix(marker, component+".")
		for _, k := range Placeholders(body) {
			sub := strings.TrimPrefix(k, marker+".")
			if _, ok := subs[name][sub]; ok || isCovered(k) {
				continue
			}
			if _, ok := vars.LocalValue(component, sub); ok {
				continue
			}
			gaps[k] = struct{}{}
		}
	}

	out := make([]string, 0, len(gaps))
	for k := range gaps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
