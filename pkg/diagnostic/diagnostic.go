package diagnostic

import (
	"encoding/json"
	"fmt"
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/position"
)

// Severity represents the severity level of a diagnostic
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Diagnostic represents a single problem found in a document
type Diagnostic struct {
	Range    position.Range
	Message  string
	Severity Severity
	Code     string
}

func (d Diagnostic) String() string {
	if d.Code != "" {
		return fmt.Sprintf("%s: %s %s: %s", d.Range.Start, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Range.Start, d.Severity, d.Message)
}

func Errorf(r position.Range, format string, args ...any) Diagnostic {
	return Diagnostic{Range: r, Message: fmt.Sprintf(format, args...), Severity: Error}
}

func Warningf(r position.Range, format string, args ...any) Diagnostic {
	return Diagnostic{Range: r, Message: fmt.Sprintf(format, args...), Severity: Warning}
}

func Infof(r position.Range, format string, args ...any) Diagnostic {
	return Diagnostic{Range: r, Message: fmt.Sprintf(format, args...), Severity: Info}
}

// Diagnostics groups diagnostics by severity
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Group splits a flat list by severity. Order inside each group is kept.
func Group(list []Diagnostic) *Diagnostics {
	out := &Diagnostics{
		Errors:   make([]Diagnostic, 0),
		Warnings: make([]Diagnostic, 0),
		Infos:    make([]Diagnostic, 0),
	}
	for _, d := range list {
		switch d.Severity {
		case Error:
			out.Errors = append(out.Errors, d)
		case Warning:
			out.Warnings = append(out.Warnings, d)
		default:
			out.Infos = append(out.Infos, d)
		}
	}
	return out
}

// Sort orders diagnostics by start offset, keeping the emission order of
// diagnostics that start at the same place.
func Sort(list []Diagnostic) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Range.Start.Offset < list[j].Range.Start.Offset
	})
}

// Formatter formats diagnostics into different output formats
type Formatter interface {
	Format(diagnostics *Diagnostics) ([]byte, error)
}

// VSCodeFormatter formats diagnostics into VSCode-compatible format
type VSCodeFormatter struct{}

func NewVSCodeFormatter() *VSCodeFormatter {
	return &VSCodeFormatter{}
}

type vscodePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type vscodeRange struct {
	Start vscodePosition `json:"start"`
	End   vscodePosition `json:"end"`
}

type vscodeDiagnostic struct {
	Severity int         `json:"severity"`
	Message  string      `json:"message"`
	Code     string      `json:"code,omitempty"`
	Source   string      `json:"source"`
	Range    vscodeRange `json:"range"`
}

// Format implements Formatter
func (f *VSCodeFormatter) Format(diagnostics *Diagnostics) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.Errorf("diagnostics is nil")
	}

	// Error = 1, Warning = 2, Information = 3
	result := make([]vscodeDiagnostic, 0, len(diagnostics.Errors)+len(diagnostics.Warnings)+len(diagnostics.Infos))
	for _, group := range []struct {
		severity int
		list     []Diagnostic
	}{
		{1, diagnostics.Errors},
		{2, diagnostics.Warnings},
		{3, diagnostics.Infos},
	} {
		for _, d := range group.list {
			result = append(result, vscodeDiagnostic{
				Severity: group.severity,
				Message:  d.Message,
				Code:     d.Code,
				Source:   "aspx-typer",
				Range: vscodeRange{
					Start: vscodePosition{Line: d.Range.Start.Line, Character: d.Range.Start.Column},
					End:   vscodePosition{Line: d.Range.End.Line, Character: d.Range.End.Column},
				},
			})
		}
	}

	return json.Marshal(result)
}
