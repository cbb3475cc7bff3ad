// Package report renders diagnostics for a terminal, compiler style:
//
//	Default.aspx:2:14: error CS1026: ) expected
//	  <%= Eval("x" %>
//	               ^
package report

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/go-aspx-typer/pkg/diagnostic"
	"github.com/walteh/go-aspx-typer/pkg/position"
)

const DefaultTabWidth = 4

// Printer writes diagnostics with the offending source line and a caret
// under the reported range.
type Printer struct {
	Out      io.Writer
	TabWidth int
	Color    bool
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{Out: out, TabWidth: DefaultTabWidth}
}

// TabWidth reads the tab width for name from the .editorconfig next to it.
// A missing file or property yields DefaultTabWidth.
func TabWidth(fs afero.Fs, name string) (int, error) {
	data, err := afero.ReadFile(fs, path.Join(path.Dir(name), ".editorconfig"))
	if err != nil {
		if errors.Is(err, afero.ErrFileNotFound) {
			return DefaultTabWidth, nil
		}
		return 0, errors.Errorf("reading .editorconfig: %w", err)
	}

	ec, err := editorconfig.Parse(strings.NewReader(string(data)))
	if err != nil {
		return 0, errors.Errorf("parsing .editorconfig: %w", err)
	}
	def, err := ec.GetDefinitionForFilename(path.Base(name))
	if err != nil {
		return 0, errors.Errorf("matching .editorconfig: %w", err)
	}
	if def.TabWidth > 0 {
		return def.TabWidth, nil
	}
	return DefaultTabWidth, nil
}

// Print writes every diagnostic of the document name followed by a summary
// line. Lines and columns are printed one-based.
func (p *Printer) Print(name, text string, diags []diagnostic.Diagnostic) error {
	lines := position.NewLineIndex(text)

	for _, d := range diags {
		head := fmt.Sprintf("%s:%d:%d:", name, d.Range.Start.Line+1, d.Range.Start.Column+1)
		sev := string(d.Severity)
		if d.Code != "" {
			sev += " " + d.Code
		}
		if _, err := fmt.Fprintf(p.Out, "%s %s: %s\n", p.paint(head, color.Bold), p.paint(sev, severityColor(d.Severity)...), d.Message); err != nil {
			return errors.Errorf("writing diagnostic: %w", err)
		}

		src, ok := sourceLine(text, lines, d.Range.Start.Line)
		if !ok {
			continue
		}
		start := clamp(d.Range.Start.Column, len(src))
		end := len(src)
		if d.Range.End.Line == d.Range.Start.Line {
			end = clamp(d.Range.End.Column, len(src))
		}
		if end < start {
			end = start
		}

		pad := p.width(src[:start], 0)
		mark := p.width(src[start:end], pad)
		if mark == 0 {
			mark = 1
		}
		caret := "^" + strings.Repeat("~", mark-1)

		if _, err := fmt.Fprintf(p.Out, "  %s\n  %s%s\n", p.expand(src), strings.Repeat(" ", pad), p.paint(caret, color.FgGreen, color.Bold)); err != nil {
			return errors.Errorf("writing source line: %w", err)
		}
	}

	return p.summary(diagnostic.Group(diags))
}

func (p *Printer) summary(g *diagnostic.Diagnostics) error {
	if len(g.Errors)+len(g.Warnings)+len(g.Infos) == 0 {
		return nil
	}
	var parts []string
	for _, c := range []struct {
		n    int
		noun string
	}{
		{len(g.Errors), "error"},
		{len(g.Warnings), "warning"},
		{len(g.Infos), "info"},
	} {
		if c.n == 0 {
			continue
		}
		s := fmt.Sprintf("%d %s", c.n, c.noun)
		if c.n > 1 && c.noun != "info" {
			s += "s"
		}
		parts = append(parts, s)
	}
	if _, err := fmt.Fprintln(p.Out, p.paint(strings.Join(parts, ", "), color.Faint)); err != nil {
		return errors.Errorf("writing summary: %w", err)
	}
	return nil
}

// width counts display columns of s when it starts at column col. Tabs move
// to the next tab stop; every other grapheme cluster is one column.
func (p *Printer) width(s string, col int) int {
	tab := p.tabWidth()
	w := col
	rest := []byte(s)
	for len(rest) > 0 {
		n, cluster, _ := textseg.ScanGraphemeClusters(rest, true)
		if n == 0 {
			break
		}
		if len(cluster) == 1 && cluster[0] == '\t' {
			w += tab - w%tab
		} else {
			w++
		}
		rest = rest[n:]
	}
	return w - col
}

func (p *Printer) expand(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	for i, part := range strings.Split(s, "\t") {
		if i > 0 {
			col := p.width(b.String(), 0)
			b.WriteString(strings.Repeat(" ", p.tabWidth()-col%p.tabWidth()))
		}
		b.WriteString(part)
	}
	return b.String()
}

func (p *Printer) tabWidth() int {
	if p.TabWidth <= 0 {
		return DefaultTabWidth
	}
	return p.TabWidth
}

func (p *Printer) paint(s string, attrs ...color.Attribute) string {
	if !p.Color {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func severityColor(s diagnostic.Severity) []color.Attribute {
	switch s {
	case diagnostic.Error:
		return []color.Attribute{color.FgRed, color.Bold}
	case diagnostic.Warning:
		return []color.Attribute{color.FgYellow, color.Bold}
	}
	return []color.Attribute{color.FgCyan}
}

func sourceLine(text string, lines *position.LineIndex, line int) (string, bool) {
	start := lines.LineStart(line)
	if start < 0 {
		return "", false
	}
	end := len(text)
	if next := lines.LineStart(line + 1); next >= 0 {
		end = next
	}
	return strings.TrimRight(text[start:end], "\r\n"), true
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
