package brandsite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Files read from the components directory.
const (
	DefaultsFile          = "_defaults.json"
	PlaceholderAssetsFile = "_placeholder_assets.json"
	TemplateProject       = "_template"
)

// Options configures a Runner.
type Options struct {
	ContentDir    string
	ComponentsDir string
	OutputDir     string
	// LayoutPattern is a glob inside the project directory; a .xlsx file with
	// the same stem pattern is also accepted.
	LayoutPattern  string
	ContentPattern string
	Styles         []string
	MaxIterations  int
	ListItems      int
	SynthInstances int
	// Workers > 1 builds projects in parallel.
	Workers      int
	WrapDocument bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ContentDir:     "content",
		ComponentsDir:  "components",
		OutputDir:      "output",
		LayoutPattern:  "layout*.csv",
		ContentPattern: "content*.json",
		Styles:         []string{"classic", "classic_accents", "stylish", "hyper_stylish"},
		MaxIterations:  DefaultMaxIterations,
		ListItems:      DefaultListItems,
		SynthInstances: DefaultSynthInstances,
		Workers:        1,
		WrapDocument:   true,
	}
}

// Output is one written page.
type Output struct {
	Project    string
	Style      string
	Path       string
	Unresolved []string
}

// Summary is the result of Runner.Run.
type Summary struct {
	RunID   string
	Outputs []Output
	// Failed maps "project" or "project/style" to the error that stopped it.
	Failed      map[string]error
	Diagnostics []Diagnostic
}

// Runner drives the pipeline over project directories.
type Runner struct {
	opts      Options
	log       *zap.Logger
	fragments FragmentSource
}

// NewRunner reads fragments from opts.ComponentsDir.
func NewRunner(opts Options, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{opts: opts, log: log, fragments: DirFragments(opts.ComponentsDir)}
}

// Options returns the runner configuration.
func (r *Runner) Options() Options { return r.opts }

// Projects lists the project directories under ContentDir. Names starting
// with "_" or "." are reserved.
func (r *Runner) Projects() ([]string, error) {
	entries, err := os.ReadDir(r.opts.ContentDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: content directory %s", ErrNoProjects, r.opts.ContentDir)
		}
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), "_") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

type sharedInputs struct {
	defaults map[string]any
	assets   map[string][]string
}

// Run builds every (project, style) page. With no projects named, all
// projects are built. A failing project or style is recorded and skipped;
// Run only fails when nothing could be located (ErrNoProjects) or nothing
// was written (ErrNoOutput).
func (r *Runner) Run(ctx context.Context, projects ...string) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString(), Failed: map[string]error{}}
	log := r.log.With(zap.String("run_id", sum.RunID))
	diag := NewDiagnostics(log)

	if len(projects) == 0 {
		all, err := r.Projects()
		if err != nil {
			return sum, err
		}
		projects = all
	}
	var found []string
	for _, p := range projects {
		if st, err := os.Stat(filepath.Join(r.opts.ContentDir, p)); err != nil || !st.IsDir() {
			diag.Error(Diagnostic{Kind: KindMissingResource, Project: p, Detail: "project directory not found"})
			sum.Failed[p] = fmt.Errorf("%w: project %s", ErrMissingResource, p)
			continue
		}
		found = append(found, p)
	}
	if len(found) == 0 {
		sum.Diagnostics = diag.Entries()
		return sum, ErrNoProjects
	}

	shared := r.loadShared(diag)
	var mu sync.Mutex
	build := func(p string) {
		outs, failed := r.buildProject(ctx, p, shared, diag, log)
		mu.Lock()
		defer mu.Unlock()
		sum.Outputs = append(sum.Outputs, outs...)
		for k, err := range failed {
			sum.Failed[k] = err
		}
	}

	if r.opts.Workers > 1 && len(found) > 1 {
		if err := r.buildParallel(found, build, log); err != nil {
			return sum, err
		}
	} else {
		for _, p := range found {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			build(p)
		}
	}

	sort.Slice(sum.Outputs, func(i, j int) bool { return sum.Outputs[i].Path < sum.Outputs[j].Path })
	sum.Diagnostics = diag.Entries()
	log.Info("run finished",
		zap.Int("pages", len(sum.Outputs)),
		zap.Int("failed", len(sum.Failed)),
		zap.Int("diagnostics", len(sum.Diagnostics)))
	if len(sum.Outputs) == 0 {
		return sum, ErrNoOutput
	}
	return sum, nil
}

func (r *Runner) buildParallel(projects []string, build func(string), log *zap.Logger) error {
	pool, err := ants.NewPool(r.opts.Workers,
		ants.WithPanicHandler(func(p any) {
			log.Error("project build panicked", zap.Any("panic", p), zap.Stack("stack"))
		}),
		ants.WithNonblocking(false),
	)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, p := range projects {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			build(p)
		}); err != nil {
			wg.Done()
			log.Error("submit project build", zap.String("project", p), zap.Error(err))
		}
	}
	wg.Wait()
	return nil
}

func (r *Runner) loadShared(diag *Diagnostics) sharedInputs {
	s := sharedInputs{defaults: map[string]any{}, assets: map[string][]string{}}
	if m, err := loadJSONMap(filepath.Join(r.opts.ComponentsDir, DefaultsFile)); err != nil {
		diag.Error(Diagnostic{Kind: KindMalformedInput, Detail: err.Error()})
	} else {
		s.defaults = m
	}
	if a, err := LoadPlaceholderAssets(filepath.Join(r.opts.ComponentsDir, PlaceholderAssetsFile)); err != nil {
		diag.Error(Diagnostic{Kind: KindMalformedInput, Detail: err.Error()})
	} else {
		s.assets = a
	}
	return s
}

// buildProject renders every configured style of one project. Failures are
// returned keyed by "project" or "project/style".
func (r *Runner) buildProject(ctx context.Context, project string, shared sharedInputs, diag *Diagnostics, log *zap.Logger) ([]Output, map[string]error) {
	dir := filepath.Join(r.opts.ContentDir, project)
	log = log.With(zap.String("project", project))
	sd := scoped{d: diag, project: project}
	failed := map[string]error{}

	layoutPath := r.layoutFile(dir)
	if layoutPath == "" {
		err := fmt.Errorf("%w: no layout table matching %s in %s", ErrMissingResource, r.opts.LayoutPattern, dir)
		sd.warn(KindMissingResource, "", err.Error())
		failed[project] = err
		return nil, failed
	}
	layout, err := LoadLayout(layoutPath)
	if err != nil {
		sd.error(kindOf(err), "", err.Error())
		failed[project] = err
		return nil, failed
	}
	colors, err := LoadColors(newestMatch(dir, "colors*.json", "interpreted_colors*.json"))
	if err != nil {
		sd.warn(KindMalformedInput, "", err.Error())
		colors = map[string]any{}
	}
	interp := r.loadInterpretation(dir, sd)

	var outs []Output
	for _, style := range r.opts.Styles {
		if err := ctx.Err(); err != nil {
			failed[project] = err
			return outs, failed
		}
		key := project + "/" + style
		ssd := scoped{d: diag, project: project, style: style}

		contentPath := r.variantFile(dir, "content_", style, "content_*.json")
		if contentPath == "" {
			contentPath = r.variantFile(dir, "content_", "", r.opts.ContentPattern)
		}
		if contentPath == "" {
			err := fmt.Errorf("%w: no content document matching %s", ErrMissingResource, r.opts.ContentPattern)
			ssd.warn(KindMissingResource, "", err.Error())
			failed[key] = err
			continue
		}
		doc, err := LoadContent(contentPath)
		if err != nil {
			ssd.error(kindOf(err), "", err.Error())
			failed[key] = err
			continue
		}
		rows := selectRows(layout, doc.GlobalSettings, ssd)
		st, err := r.styleFor(dir, style, rows, colors, interp)
		if err != nil {
			ssd.warn(KindMalformedInput, "", err.Error())
			st = Style{Name: style}
		}

		asm := NewAssembler(r.fragments, Resolver{MaxIterations: r.opts.MaxIterations}, log, diag)
		asm.WrapDocument = r.opts.WrapDocument
		rendered, err := asm.Assemble(ctx, Page{
			Project:  project,
			Style:    st,
			Rows:     rows,
			Content:  doc,
			Defaults: shared.defaults,
			Colors:   colors,
			Assets:   shared.assets,
		})
		if err != nil {
			ssd.error(kindOf(err), "", err.Error())
			failed[key] = err
			continue
		}

		path := filepath.Join(r.opts.OutputDir, fmt.Sprintf("%s_%s.html", project, style))
		if err := writeFile(path, []byte(rendered.HTML)); err != nil {
			ssd.error(KindMissingResource, "", err.Error())
			failed[key] = err
			continue
		}
		log.Info("page written", zap.String("style", style), zap.String("path", path))
		outs = append(outs, Output{Project: project, Style: style, Path: path, Unresolved: rendered.Unresolved})
	}
	return outs, failed
}

// interpretation holds the inputs of style interpretation for one project.
type interpretation struct {
	mod        StyleModulator
	rules      LayoutRules
	textColors map[string]TextColors
}

func (r *Runner) loadInterpretation(dir string, sd scoped) interpretation {
	in := interpretation{textColors: map[string]TextColors{}}
	var err error
	if in.mod, err = LoadStyleModulator(filepath.Join(r.opts.ComponentsDir, StyleModulatorFile)); err != nil {
		sd.warn(KindMalformedInput, "", err.Error())
	}
	if in.rules, err = LoadLayoutRules(filepath.Join(dir, LayoutRulesFile)); err != nil {
		sd.warn(KindMalformedInput, "", err.Error())
	}
	if tc, err := LoadTextColors(newestMatch(dir, "interpreted_text_colors*.json")); err != nil {
		sd.warn(KindMalformedInput, "", err.Error())
	} else {
		in.textColors = tc
	}
	return in
}

// styleFor loads the newest styles_<style> or interpreted_styles_<style> file.
// Without one the style is interpreted from the colours and rows.
func (r *Runner) styleFor(dir, style string, rows []LayoutRow, colors map[string]any, in interpretation) (Style, error) {
	path := newestOf(
		r.variantFile(dir, "styles_", style, "styles_*.json"),
		r.variantFile(dir, "interpreted_styles_", style, "interpreted_styles_*.json"),
	)
	if path == "" {
		st, _ := InterpretStyle(style, rows, colors, in.mod, in.rules)
		return st, nil
	}
	st, err := LoadStyle(path, style)
	if err != nil {
		return st, err
	}
	for comp, tc := range in.textColors {
		cs, ok := st.Components[comp]
		if !ok {
			continue
		}
		if cs.TextColor == "" {
			cs.TextColor = tc.Default
		}
		if cs.HeadingColor == "" {
			cs.HeadingColor = tc.Heading
		}
		st.Components[comp] = cs
	}
	return st, nil
}

// InterpretStyles derives every configured style of project from its colours
// and layout and writes interpreted_styles_<style>.json plus the text colour
// file into the project directory. It returns the written paths.
func (r *Runner) InterpretStyles(project string) ([]string, error) {
	dir := filepath.Join(r.opts.ContentDir, project)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: project %s", ErrMissingResource, project)
	}
	layoutPath := r.layoutFile(dir)
	if layoutPath == "" {
		return nil, fmt.Errorf("%w: no layout table in %s", ErrMissingResource, dir)
	}
	rows, err := LoadLayout(layoutPath)
	if err != nil {
		return nil, err
	}
	colors, err := LoadColors(newestMatch(dir, "colors*.json", "interpreted_colors*.json"))
	if err != nil {
		return nil, err
	}
	mod, err := LoadStyleModulator(filepath.Join(r.opts.ComponentsDir, StyleModulatorFile))
	if err != nil {
		return nil, err
	}
	rules, err := LoadLayoutRules(filepath.Join(dir, LayoutRulesFile))
	if err != nil {
		return nil, err
	}

	var paths []string
	text := map[string]TextColors{}
	for _, style := range r.opts.Styles {
		st, tc := InterpretStyle(style, rows, colors, mod, rules)
		path, err := WriteInterpretedStyles(dir, st)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
		// one text colour file serves every style; the last one wins
		for comp, c := range tc {
			text[comp] = c
		}
	}
	path, err := WriteTextColors(dir, text)
	if err != nil {
		return paths, err
	}
	paths = append(paths, path)
	r.log.Info("styles interpreted", zap.String("project", project), zap.Int("files", len(paths)))
	return paths, nil
}

// Synthesize writes a fresh content document for project and appends the
// keys it could not find to the project's variable tables. It returns the
// path of the written document.
func (r *Runner) Synthesize(ctx context.Context, project string) (string, *SynthReport, error) {
	dir := filepath.Join(r.opts.ContentDir, project)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return "", nil, fmt.Errorf("%w: project %s", ErrMissingResource, project)
	}
	layoutPath := r.layoutFile(dir)
	if layoutPath == "" {
		return "", nil, fmt.Errorf("%w: no layout table in %s", ErrMissingResource, dir)
	}
	rows, err := LoadLayout(layoutPath)
	if err != nil {
		return "", nil, err
	}

	vars, err := LoadVariables(r.opts.ComponentsDir)
	if err != nil {
		return "", nil, err
	}
	local, err := LoadVariables(dir)
	if err != nil {
		return "", nil, err
	}
	vars.Merge(local)

	log := r.log.With(zap.String("project", project))
	syn := &Synthesizer{
		Fragments:    r.fragments,
		Vars:         vars,
		MaxInstances: r.opts.SynthInstances,
		ListItems:    r.opts.ListItems,
		Log:          log,
		Diag:         NewDiagnostics(log),
	}
	doc, report, err := syn.Synthesize(ctx, project, rows)
	if err != nil {
		return "", nil, err
	}
	doc.Metadata["layout_source"] = filepath.Base(layoutPath)

	path := filepath.Join(dir, fmt.Sprintf("content_%s.json", time.Now().Format("20060102_150405")))
	if err := WriteContent(path, doc); err != nil {
		return "", nil, err
	}
	added, err := AppendGlobalVariables(filepath.Join(dir, GlobalVariablesFile), report.MissingGlobal)
	if err != nil {
		return path, report, err
	}
	n, err := AppendLocalVariables(filepath.Join(dir, LocalVariablesFile), report.MissingLocal)
	if err != nil {
		return path, report, err
	}
	log.Info("content document written",
		zap.String("path", path),
		zap.Int("global_keys_added", len(added)),
		zap.Int("local_keys_added", n))
	return path, report, nil
}

// InitProject copies the _template project to a new project directory. With
// workbook set, the template's CSV layout is also written as layout.xlsx.
func (r *Runner) InitProject(name string, workbook bool) (string, error) {
	if !componentIDRx.MatchString(name) {
		return "", fmt.Errorf("invalid project name %q", name)
	}
	src := filepath.Join(r.opts.ContentDir, TemplateProject)
	dst := filepath.Join(r.opts.ContentDir, name)
	if st, err := os.Stat(src); err != nil || !st.IsDir() {
		return "", fmt.Errorf("%w: template project %s", ErrMissingResource, src)
	}
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("%w: %s", ErrProjectExists, dst)
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return "", fmt.Errorf("copy template: %w", err)
	}
	if workbook {
		csvPath := newestMatch(dst, r.opts.LayoutPattern)
		if csvPath == "" {
			return dst, fmt.Errorf("%w: template has no layout table", ErrMissingResource)
		}
		rows, err := LoadLayout(csvPath)
		if err != nil {
			return dst, err
		}
		if err := WriteLayoutWorkbook(filepath.Join(dst, "layout.xlsx"), rows); err != nil {
			return dst, fmt.Errorf("write layout workbook: %w", err)
		}
	}
	r.log.Info("project created", zap.String("project", name), zap.String("path", dst))
	return dst, nil
}

// layoutFile returns the newest layout table, CSV or workbook.
func (r *Runner) layoutFile(dir string) string {
	pattern := r.opts.LayoutPattern
	alt := strings.TrimSuffix(pattern, filepath.Ext(pattern)) + ".xlsx"
	return newestMatch(dir, pattern, alt)
}

// variantFile returns the newest file matching pattern whose name belongs to
// style, where a name belongs to the longest configured style s it starts
// with as prefix+s. An empty style selects files belonging to no style.
func (r *Runner) variantFile(dir, prefix, style, pattern string) string {
	return newestMatchFunc(dir, func(name string) bool {
		return r.styleOf(prefix, name) == style
	}, pattern)
}

func (r *Runner) styleOf(prefix, name string) string {
	best := ""
	for _, s := range r.opts.Styles {
		if strings.HasPrefix(name, prefix+s) && len(s) > len(best) {
			best = s
		}
	}
	return best
}

// newestOf returns the most recently modified of the given paths, skipping
// empty ones.
func newestOf(paths ...string) string {
	var best string
	var bestTime time.Time
	for _, p := range paths {
		if p == "" {
			continue
		}
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		if best == "" || st.ModTime().After(bestTime) {
			best, bestTime = p, st.ModTime()
		}
	}
	return best
}

// newestMatch returns the most recently modified file matching any pattern
// in dir, or "" when nothing matches.
func newestMatch(dir string, patterns ...string) string {
	return newestMatchFunc(dir, nil, patterns...)
}

// newestMatchFunc is newestMatch restricted to base names accepted by keep.
func newestMatchFunc(dir string, keep func(string) bool, patterns ...string) string {
	var best string
	var bestTime time.Time
	for _, pat := range patterns {
		matches, _ := filepath.Glob(filepath.Join(dir, pat))
		for _, m := range matches {
			if keep != nil && !keep(filepath.Base(m)) {
				continue
			}
			st, err := os.Stat(m)
			if err != nil || st.IsDir() {
				continue
			}
			if best == "" || st.ModTime().After(bestTime) || (st.ModTime().Equal(bestTime) && m > best) {
				best, bestTime = m, st.ModTime()
			}
		}
	}
	return best
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func kindOf(err error) DiagnosticKind {
	switch {
	case errors.Is(err, ErrMissingResource):
		return KindMissingResource
	default:
		return KindMalformedInput
	}
}
