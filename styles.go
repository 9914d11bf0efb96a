package brandsite

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ComponentStyle is the per-component part of a style variant.
type ComponentStyle struct {
	Class           string `json:"class,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	CardStyle       string `json:"card_style,omitempty"`
	ImageFrame      string `json:"image_frame,omitempty"`
	ButtonStyle     string `json:"button_style,omitempty"`
	GradientType    string `json:"gradient_type,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	HeadingColor    string `json:"heading_color,omitempty"`
}

// mapping returns the style values as component-qualified placeholder keys.
func (cs ComponentStyle) mapping(component string) map[string]any {
	out := map[string]any{}
	set := func(field, v string) {
		if v != "" {
			out[component+"."+field] = v
		}
	}
	set("styling_default", cs.Class)
	set("background_color", cs.BackgroundColor)
	set("card_style", cs.CardStyle)
	set("image_frame", cs.ImageFrame)
	set("button_style", cs.ButtonStyle)
	set("gradient_type", cs.GradientType)
	set("text_color", cs.TextColor)
	set("heading_color", cs.HeadingColor)
	return out
}

// Style is one output variant of a project (classic, stylish, ...).
type Style struct {
	Name         string                    `json:"-"`
	ThemeClasses string                    `json:"theme_classes,omitempty"`
	Components   map[string]ComponentStyle `json:"styles,omitempty"`
}

// LoadStyle reads a style variant file. A missing file yields a plain style
// with only the name set.
func LoadStyle(path, name string) (Style, error) {
	st := Style{Name: name}
	if path == "" {
		return st, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("read style %s: %w", path, err)
	}
	if err := json.Unmarshal(normalizeContent(data), &st); err != nil {
		return st, fmt.Errorf("%w: style %s: %v", ErrMalformedContent, path, err)
	}
	st.Name = name
	return st, nil
}

// loadJSONMap reads an optional JSON object file; a missing file is empty.
func loadJSONMap(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var m map[string]any
	if err := json.Unmarshal(normalizeContent(data), &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedContent, path, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// LoadColors reads {"colors": {...}} and returns the inner object. The file
// is either colors*.json or the interpreted_colors*.json of the colour step.
func LoadColors(path string) (map[string]any, error) {
	m, err := loadJSONMap(path)
	if err != nil {
		return nil, err
	}
	colors, _ := m["colors"].(map[string]any)
	if colors == nil {
		colors = map[string]any{}
	}
	return colors, nil
}

// LoadPlaceholderAssets reads {"component": {"urls": [...]}}.
func LoadPlaceholderAssets(path string) (map[string][]string, error) {
	m, err := loadJSONMap(path)
	if err != nil {
		return nil, err
	}
	out := map[string][]string{}
	for component, v := range m {
		entry, _ := v.(map[string]any)
		urls, _ := entry["urls"].([]any)
		for _, u := range urls {
			if s, ok := u.(string); ok && s != "" {
				out[component] = append(out[component], s)
			}
		}
	}
	return out, nil
}

// -----------------------------
// CSS
// -----------------------------

var (
	rxStyleBlock   = regexp.MustCompile(`(?s)<style[^>]*>.*?</style>`)
	rxSectionClass = regexp.MustCompile(`<section class="([^"]*)"`)
)

// cssVariables renders colour and gradient values as :root custom properties.
func cssVariables(colors map[string]any) string {
	keys := make([]string, 0, len(colors))
	for k, v := range colors {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(s, "#") || strings.HasPrefix(s, "rgb") || strings.Contains(s, "gradient(") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "    --%s: %s;\n", strings.ReplaceAll(k, "_", "-"), colors[k])
	}
	b.WriteString("}\n")
	return b.String()
}

// extractStyles cuts the <style> blocks out of a fragment.
func extractStyles(html string) (string, []string) {
	blocks := rxStyleBlock.FindAllString(html, -1)
	if len(blocks) == 0 {
		return html, nil
	}
	return rxStyleBlock.ReplaceAllString(html, ""), blocks
}

// styleBlock consolidates the CSS variables and the extracted component
// styles into one string for the document head.
func styleBlock(colors map[string]any, extracted []string) string {
	var parts []string
	if vars := cssVariables(colors); vars != "" {
		parts = append(parts, "<style>\n"+vars+"</style>")
	}
	parts = append(parts, extracted...)
	return strings.Join(parts, "\n")
}

// addSectionClass appends class to the first <section class="..."> tag.
func addSectionClass(html, class string) string {
	class = strings.TrimSpace(class)
	if class == "" {
		return html
	}
	loc := rxSectionClass.FindStringSubmatchIndex(html)
	if loc == nil {
		return html
	}
	existing := html[loc[2]:loc[3]]
	for _, c := range strings.Fields(existing) {
		if c == class {
			return html
		}
	}
	joined := strings.TrimSpace(existing + " " + class)
	return html[:loc[2]] + joined + html[loc[3]:]
}
