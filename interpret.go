package brandsite

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Files read by style interpretation.
const (
	StyleModulatorFile = "style_modulator.json"
	LayoutRulesFile    = "layout_rules.json"
	TextColorsFile     = "interpreted_text_colors.json"
)

var (
	defaultBackgrounds = []string{"#FFFFFF", "#F5F5F5"}
	lightBackgrounds   = map[string]bool{"#FFFFFF": true, "#F5F5F5": true}
)

// VariantRules is the modulator entry of one style variant.
type VariantRules struct {
	AlternatingBackgrounds []string                `json:"alternating_backgrounds"`
	ElementStyles          map[string]ElementStyle `json:"element_styles"`
}

// ElementStyle names the look of one element kind (card, button, image_frame).
type ElementStyle struct {
	Style string `json:"style"`
}

func (v VariantRules) element(name string) string {
	if s := v.ElementStyles[name].Style; s != "" {
		return s
	}
	return "none"
}

// StyleModulator holds the per-variant rules shared by all projects.
type StyleModulator struct {
	Variants map[string]VariantRules `json:"variants"`
}

// LayoutRules pins components to a fixed style regardless of variant.
type LayoutRules struct {
	FixedLayouts map[string]map[string]string `json:"fixed_layouts"`
}

// TextColors is the pair of text colours readable on a component background.
type TextColors struct {
	Default string `json:"default"`
	Heading string `json:"heading"`
}

// LoadStyleModulator reads the modulator file; a missing file yields no rules.
func LoadStyleModulator(path string) (StyleModulator, error) {
	var m StyleModulator
	return m, decodeOptionalJSON(path, &m)
}

// LoadLayoutRules reads a project's fixed layouts; a missing file yields none.
func LoadLayoutRules(path string) (LayoutRules, error) {
	var r LayoutRules
	return r, decodeOptionalJSON(path, &r)
}

// LoadTextColors reads {"text_colors": {component: {default, heading}}}.
func LoadTextColors(path string) (map[string]TextColors, error) {
	var doc struct {
		TextColors map[string]TextColors `json:"text_colors"`
	}
	if err := decodeOptionalJSON(path, &doc); err != nil {
		return nil, err
	}
	if doc.TextColors == nil {
		doc.TextColors = map[string]TextColors{}
	}
	return doc.TextColors, nil
}

func decodeOptionalJSON(path string, v any) error {
	m, err := loadJSONMap(path)
	if err != nil || len(m) == 0 {
		return err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedContent, path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedContent, path, err)
	}
	return nil
}

// InterpretStyle derives the style of variant from the brand colours and the
// enabled layout rows. Components pinned in rules keep their fixed values;
// the others alternate between the variant's backgrounds by order parity and
// take its element styles. The returned text colours are also set on each
// component style.
func InterpretStyle(variant string, rows []LayoutRow, colors map[string]any, mod StyleModulator, rules LayoutRules) (Style, map[string]TextColors) {
	vr := mod.Variants[variant]
	backgrounds := vr.AlternatingBackgrounds
	if len(backgrounds) < 2 {
		backgrounds = defaultBackgrounds
	}

	var enabled []LayoutRow
	maxOrder := 0
	for _, r := range rows {
		if !r.Enabled {
			continue
		}
		enabled = append(enabled, r)
		if len(enabled) == 1 || r.Order > maxOrder {
			maxOrder = r.Order
		}
	}
	footerLight := luminance(colorString(colors, "primary_color")) > 0.5

	st := Style{Name: variant, Components: map[string]ComponentStyle{}}
	text := map[string]TextColors{}
	for _, r := range enabled {
		var cs ComponentStyle
		if fixed, ok := rules.FixedLayouts[r.Component]; ok {
			cs = ComponentStyle{
				GradientType:    substituteColors(fixed["gradient_type"], colors),
				BackgroundColor: substituteColors(fixed["background_color"], colors),
				Class:           substituteColors(fixed["class"], colors),
				CardStyle:       substituteColors(fixed["card_style"], colors),
				ImageFrame:      substituteColors(fixed["image_frame"], colors),
				ButtonStyle:     substituteColors(fixed["button_style"], colors),
			}
		} else {
			bg := backgrounds[1]
			if r.Order%2 == 0 {
				bg = backgrounds[0]
			}
			lastBeforeFooter := r.Order == maxOrder && r.Component != "footer"
			if lastBeforeFooter && len(enabled)%2 == 1 && footerLight &&
				(variant == "classic" || variant == "classic_accents") {
				bg = "#FFFFFF"
			}
			cs = ComponentStyle{
				GradientType:    "none",
				BackgroundColor: substituteColors(bg, colors),
				Class:           r.StylingDefault,
				ImageFrame:      vr.element("image_frame"),
				CardStyle:       vr.element("card"),
				ButtonStyle:     vr.element("button"),
			}
		}

		tc := textColorsFor(variant, cs.BackgroundColor, colors)
		cs.TextColor, cs.HeadingColor = tc.Default, tc.Heading
		st.Components[r.Component] = cs
		text[r.Component] = tc
	}
	return st, text
}

// textColorsFor picks black or white body text by contrast with bg. Accent
// variants colour headings with the accent colour.
func textColorsFor(variant, bg string, colors map[string]any) TextColors {
	def := "#FFFFFF"
	if contrast(luminance(bg), 0) > 4.5 {
		def = "#000000"
	}
	tc := TextColors{Default: def, Heading: def}
	accent := colorString(colors, "accent_color")
	if accent == "" {
		return tc
	}
	switch variant {
	case "stylish", "hyper_stylish":
		if lightBackgrounds[strings.ToUpper(bg)] {
			tc.Heading = accent
		}
	case "classic_accents":
		tc.Heading = accent
	}
	return tc
}

var (
	rxColorToken = regexp.MustCompile(`\{\{\s*colors\.([A-Za-z0-9_]+)\s*\}\}`)
	rxRGB        = regexp.MustCompile(`^rgba?\(\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)`)
)

// substituteColors replaces {{colors.key}} tokens; list values such as
// accent_color_rgb are joined with commas.
func substituteColors(s string, colors map[string]any) string {
	return rxColorToken.ReplaceAllStringFunc(s, func(tok string) string {
		key := rxColorToken.FindStringSubmatch(tok)[1]
		switch v := colors[key].(type) {
		case nil:
			return tok
		case []any:
			parts := make([]string, len(v))
			for i, p := range v {
				parts[i] = toString(p)
			}
			return strings.Join(parts, ",")
		default:
			return toString(v)
		}
	})
}

func colorString(colors map[string]any, key string) string {
	s, _ := colors[key].(string)
	return strings.TrimSpace(s)
}

// luminance is the perceived brightness in [0, 1] of a hex or rgb()/rgba()
// colour. Alpha is ignored; anything unparsable counts as white.
func luminance(s string) float64 {
	c, ok := parseColor(s)
	if !ok {
		return 1
	}
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}

func parseColor(s string) (colorful.Color, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if len(s) > 7 {
			s = s[:7]
		}
		c, err := colorful.Hex(s)
		return c, err == nil
	}
	m := rxRGB.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return colorful.Color{}, false
	}
	var ch [3]float64
	for i := range ch {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return colorful.Color{}, false
		}
		ch[i] = v / 255
	}
	return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, true
}

func contrast(a, b float64) float64 {
	return (max(a, b) + 0.05) / (min(a, b) + 0.05)
}

// WriteInterpretedStyles writes interpreted_styles_<variant>.json into dir.
func WriteInterpretedStyles(dir string, st Style) (string, error) {
	path := filepath.Join(dir, "interpreted_styles_"+st.Name+".json")
	return path, writeJSON(path, st)
}

// WriteTextColors writes the interpreted text colours file into dir.
func WriteTextColors(dir string, colors map[string]TextColors) (string, error) {
	path := filepath.Join(dir, TextColorsFile)
	return path, writeJSON(path, map[string]any{"text_colors": colors})
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFile(path, append(data, '\n'))
}
