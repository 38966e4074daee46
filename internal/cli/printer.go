package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Printer writes scenario progress. Colours are only used when the writer is a terminal.
type Printer struct {
	out   *termenv.Output
	quiet bool
}

// NewPrinter creates a printer over w. A quiet printer only reports failures.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	profile := termenv.Ascii
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		profile = termenv.ColorProfile()
	}
	return &Printer{
		out:   termenv.NewOutput(w, termenv.WithProfile(profile)),
		quiet: quiet,
	}
}

// Banner prints the scenario header.
func (p *Printer) Banner(name, version string) {
	if p.quiet {
		return
	}
	title := p.out.String(" scenestack ").Bold().Foreground(p.out.Color("#f8fafc")).Background(p.out.Color("#6366f1"))
	meta := p.out.String(version).Foreground(p.out.Color("#a78bfa"))
	fmt.Fprintf(p.out, "%s %s\n", title, meta)
	if name != "" {
		fmt.Fprintf(p.out, ">>> %s\n", name)
	}
}

// Step prints one executed step and the resulting stack.
func (p *Printer) Step(i int, step Step, stack []domain.Entry, result any, err error) {
	if p.quiet && err == nil {
		return
	}
	mark := p.out.String("ok").Foreground(p.out.Color("#22c55e"))
	if err != nil {
		mark = p.out.String("!!").Foreground(p.out.Color("#ef4444"))
	}
	line := fmt.Sprintf("%s %2d. %-32s %s", mark, i+1, step.Describe(), p.stack(stack))
	if result != nil {
		line += fmt.Sprintf(" => %v", result)
	}
	if err != nil {
		line += " " + p.out.String(err.Error()).Faint().String()
	}
	fmt.Fprintln(p.out, line)
}

func (p *Printer) stack(stack []domain.Entry) string {
	if len(stack) == 0 {
		return "[]"
	}
	parts := make([]string, len(stack))
	for i, e := range stack {
		name := string(e.Type)
		if e.Dialog {
			name = "(" + name + ")"
		}
		if e.State == domain.StateProcessing {
			name = p.out.String(name).Bold().String()
		}
		parts[i] = name
	}
	return "[" + strings.Join(parts, " > ") + "]"
}

// Summary prints the final line.
func (p *Printer) Summary(steps int, err error) {
	if err != nil {
		fmt.Fprintf(p.out, ">>> %s\n", p.out.String("failed: "+err.Error()).Foreground(p.out.Color("#ef4444")))
		return
	}
	if !p.quiet {
		fmt.Fprintf(p.out, ">>> %d steps passed\n", steps)
	}
}
