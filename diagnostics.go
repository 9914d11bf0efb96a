package brandsite

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrMissingResource marks an absent fragment, content, layout or project.
	ErrMissingResource = errors.New("missing resource")
	// ErrMalformedLayout marks a layout table that cannot be used.
	ErrMalformedLayout = errors.New("malformed layout table")
	// ErrMalformedContent marks a content document that cannot be used.
	ErrMalformedContent = errors.New("malformed content document")
	// ErrNoProjects is returned when no requested project could be located.
	ErrNoProjects = errors.New("no projects found")
	// ErrNoOutput is returned when projects were found but none produced a page.
	ErrNoOutput = errors.New("no page generated")
	// ErrProjectExists guards scaffolding against overwriting a project.
	ErrProjectExists = errors.New("project already exists")
)

// DiagnosticKind classifies a recorded problem.
type DiagnosticKind string

const (
	KindMissingResource       DiagnosticKind = "missing_resource"
	KindMalformedInput        DiagnosticKind = "malformed_input"
	KindUnresolvedPlaceholder DiagnosticKind = "unresolved_placeholder"
	KindCyclicPlaceholder     DiagnosticKind = "cyclic_placeholder"
	KindMissingListBlock      DiagnosticKind = "missing_list_block"
	KindUncoveredPlaceholder  DiagnosticKind = "uncovered_placeholder"
	KindInvalidCondition      DiagnosticKind = "invalid_condition"
	KindDetachedStyles        DiagnosticKind = "detached_styles"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is one advisory or failure record produced by a pipeline stage.
type Diagnostic struct {
	Severity  Severity       `json:"severity"`
	Kind      DiagnosticKind `json:"kind"`
	Project   string         `json:"project,omitempty"`
	Style     string         `json:"style,omitempty"`
	Component string         `json:"component,omitempty"`
	Detail    string         `json:"detail"`
}

// Diagnostics collects diagnostics and mirrors them to a logger. A nil
// *Diagnostics only discards. Safe for concurrent use.
type Diagnostics struct {
	mu      sync.Mutex
	entries []Diagnostic
	log     *zap.Logger
}

// NewDiagnostics returns a collector that also logs through log (may be nil).
func NewDiagnostics(log *zap.Logger) *Diagnostics {
	if log == nil {
		log = zap.NewNop()
	}
	return &Diagnostics{log: log}
}

func (d *Diagnostics) add(e Diagnostic) {
	if d == nil {
		return
	}
	fields := []zap.Field{
		zap.String("kind", string(e.Kind)),
		zap.String("project", e.Project),
		zap.String("style", e.Style),
		zap.String("component", e.Component),
	}
	if e.Severity == SeverityError {
		d.log.Error(e.Detail, fields...)
	} else {
		d.log.Warn(e.Detail, fields...)
	}
	d.mu.Lock()
	d.entries = append(d.entries, e)
	d.mu.Unlock()
}

// Warn records a warning.
func (d *Diagnostics) Warn(e Diagnostic) {
	e.Severity = SeverityWarning
	d.add(e)
}

// Error records an error.
func (d *Diagnostics) Error(e Diagnostic) {
	e.Severity = SeverityError
	d.add(e)
}

// Entries returns a copy of everything recorded so far.
func (d *Diagnostics) Entries() []Diagnostic {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// Count returns the number of entries of the given kind.
func (d *Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, e := range d.Entries() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// scoped pre-fills project/style for every entry.
type scoped struct {
	d       *Diagnostics
	project string
	style   string
}

func (s scoped) warn(kind DiagnosticKind, component, detail string) {
	s.d.Warn(Diagnostic{Kind: kind, Project: s.project, Style: s.style, Component: component, Detail: detail})
}

func (s scoped) error(kind DiagnosticKind, component, detail string) {
	s.d.Error(Diagnostic{Kind: kind, Project: s.project, Style: s.style, Component: component, Detail: detail})
}
