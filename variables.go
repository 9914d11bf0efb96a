package brandsite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Variable tables maintained by editors next to a project:
//
//	global_variables.csv  key,value            (dotted keys, e.g. identity.company_name)
//	local_variables.csv   component,key,value  (per component field values)
//
// Synthesis reads them and appends rows for keys it could not find.

const (
	GlobalVariablesFile = "global_variables.csv"
	LocalVariablesFile  = "local_variables.csv"

	// fillMarker is written for appended global keys that still need a value.
	fillMarker = "PLEASE FILL IN"
)

// Variables holds both variable tables.
type Variables struct {
	Global map[string]string
	Local  map[string]map[string]string
}

// NewVariables returns empty tables.
func NewVariables() *Variables {
	return &Variables{Global: map[string]string{}, Local: map[string]map[string]string{}}
}

// Merge overlays o onto v; values of o win.
func (v *Variables) Merge(o *Variables) {
	if o == nil {
		return
	}
	for k, val := range o.Global {
		v.Global[k] = val
	}
	for c, kv := range o.Local {
		if v.Local[c] == nil {
			v.Local[c] = map[string]string{}
		}
		for k, val := range kv {
			v.Local[c][k] = val
		}
	}
}

// LocalValue returns the local value of component.key.
func (v *Variables) LocalValue(component, key string) (string, bool) {
	if v == nil {
		return "", false
	}
	val, ok := v.Local[component][key]
	return val, ok
}

// LoadVariables reads both tables from dir. Absent files are empty tables.
func LoadVariables(dir string) (*Variables, error) {
	vars := NewVariables()
	global, err := readVariableTable(filepath.Join(dir, GlobalVariablesFile), []string{"key", "value"})
	if err != nil {
		return nil, err
	}
	for _, rec := range global {
		if rec[0] == "" {
			continue
		}
		vars.Global[rec[0]] = rec[1]
	}
	local, err := readVariableTable(filepath.Join(dir, LocalVariablesFile), []string{"component", "key", "value"})
	if err != nil {
		return nil, err
	}
	for _, rec := range local {
		if rec[0] == "" || rec[1] == "" {
			continue
		}
		if vars.Local[rec[0]] == nil {
			vars.Local[rec[0]] = map[string]string{}
		}
		vars.Local[rec[0]][rec[1]] = rec[2]
	}
	return vars, nil
}

// readVariableTable returns the records projected onto columns, in column
// order. A missing or empty file yields no records.
func readVariableTable(path string, columns []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedContent, path, err)
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = -1
		for j, h := range header {
			if normalizeHeader(h) == c {
				idx[i] = j
			}
		}
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s: header must contain %s", ErrMalformedContent, path, strings.Join(columns, ","))
		}
	}

	var out [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedContent, path, err)
		}
		row := make([]string, len(columns))
		for i, j := range idx {
			if j < len(rec) {
				row[i] = strings.TrimSpace(rec[j])
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// AppendGlobalVariables adds keys not yet present in the table at path, each
// with a fill-in marker. It returns the keys actually written.
func AppendGlobalVariables(path string, keys []string) ([]string, error) {
	existing, err := readVariableTable(path, []string{"key", "value"})
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		have[rec[0]] = struct{}{}
	}
	var rows [][]string
	var added []string
	for _, k := range dedupeSorted(keys) {
		if _, ok := have[k]; ok {
			continue
		}
		rows = append(rows, []string{k, fillMarker})
		added = append(added, k)
	}
	return added, appendTable(path, []string{"key", "value"}, rows)
}

// AppendLocalVariables adds component keys not yet present in the table at
// path, each with an example value. It returns the number of rows written.
func AppendLocalVariables(path string, missing map[string][]string) (int, error) {
	existing, err := readVariableTable(path, []string{"component", "key", "value"})
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		have[rec[0]+"\x00"+rec[1]] = struct{}{}
	}
	components := make([]string, 0, len(missing))
	for c := range missing {
		components = append(components, c)
	}
	sort.Strings(components)

	var rows [][]string
	for _, c := range components {
		for _, k := range dedupeSorted(missing[c]) {
			if _, ok := have[c+"\x00"+k]; ok {
				continue
			}
			rows = append(rows, []string{c, k, "Example value for " + k})
		}
	}
	return len(rows), appendTable(path, []string{"component", "key", "value"}, rows)
}

func appendTable(path string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	writeHeader := true
	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		writeHeader = false
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	// WriteAll flushes
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
