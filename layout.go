package brandsite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// -----------------------------
// Layout table
// -----------------------------

// LayoutRow is one row of the layout table.
type LayoutRow struct {
	Component string
	Order     int
	Enabled   bool
	// Condition holds the enabled cell when it is neither TRUE nor FALSE; it
	// is evaluated by SelectRows.
	Condition      string
	MaxCount       int // 0 when the column is absent or empty
	StylingDefault string
	Line           int
}

var componentIDRx = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]*$`)

// Validate checks the row invariants.
func (r LayoutRow) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Component, validation.Required, validation.Match(componentIDRx).Error("must be a plain component identifier")),
		validation.Field(&r.MaxCount, validation.Min(0)),
	)
}

var requiredLayoutColumns = []string{"component", "order", "enabled"}

// LoadLayout reads a layout table from a .csv or .xlsx file.
func LoadLayout(path string) ([]LayoutRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadLayoutWorkbook(path)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: layout %s", ErrMissingResource, path)
		}
		return nil, fmt.Errorf("open layout %s: %w", path, err)
	}
	defer f.Close()
	rows, err := ParseLayoutCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ParseLayoutCSV parses CSV layout records.
func ParseLayoutCSV(r io.Reader) ([]LayoutRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	// conditions in the enabled column carry unescaped quotes
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLayout, err)
	}
	return parseLayoutRecords(records)
}

func parseLayoutRecords(records [][]string) ([]LayoutRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrMalformedLayout)
	}
	cols := map[string]int{}
	for i, h := range records[0] {
		cols[normalizeHeader(h)] = i
	}
	var missing []string
	for _, c := range requiredLayoutColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column(s) %s", ErrMalformedLayout, strings.Join(missing, ", "))
	}
	cell := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []LayoutRow
	for n, rec := range records[1:] {
		line := n + 2
		row := LayoutRow{
			Component:      cell(rec, "component"),
			StylingDefault: cell(rec, "styling_default"),
			Line:           line,
		}
		if row.Component == "" {
			continue
		}
		order, err := strconv.Atoi(cell(rec, "order"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: order %q is not an integer", ErrMalformedLayout, line, cell(rec, "order"))
		}
		row.Order = order
		switch enabled := cell(rec, "enabled"); {
		case strings.EqualFold(enabled, "true"):
			row.Enabled = true
		case enabled == "" || strings.EqualFold(enabled, "false"):
		default:
			row.Condition = enabled
		}
		if mc := cell(rec, "max_count"); mc != "" {
			v, err := strconv.Atoi(mc)
			if err != nil || v < 1 {
				return nil, fmt.Errorf("%w: line %d: max_count %q must be a positive integer", ErrMalformedLayout, line, mc)
			}
			row.MaxCount = v
		}
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedLayout, line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SelectRows returns the enabled rows sorted by ascending order (stable for
// equal orders). Conditional rows are evaluated against globals; a condition
// that fails to evaluate disables its row and is reported.
func SelectRows(rows []LayoutRow, globals map[string]any, diag *Diagnostics) []LayoutRow {
	return selectRows(rows, globals, scoped{d: diag})
}

// selectRows is SelectRows reporting under a project and style.
func selectRows(rows []LayoutRow, globals map[string]any, sd scoped) []LayoutRow {
	out := make([]LayoutRow, 0, len(rows))
	for _, r := range rows {
		if r.Condition != "" {
			ok, err := evalCondition(r.Condition, globals)
			if err != nil {
				sd.warn(KindInvalidCondition, r.Component, err.Error())
				continue
			}
			r.Enabled = ok
		}
		if r.Enabled {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
