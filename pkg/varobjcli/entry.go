// Package varobjcli drives a variable-object session over a scripted
// scenario and prints what a debugger front end would display: the
// watched trees after the initial stop, then the change list produced
// by every scripted step.
package varobjcli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/varobj/internal/sim"
	"github.com/funvibe/varobj/internal/varobj"
)

const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

type printer struct {
	out   io.Writer
	color bool
}

func newPrinter(out io.Writer) *printer {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &printer{out: out, color: color}
}

func (p *printer) paint(c, s string) string {
	if !p.color {
		return s
	}
	return c + s + colorReset
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Run loads the scenario file and replays it, writing the session
// transcript to out. It returns a non-zero exit code on failure so
// main can pass it straight to os.Exit.
func Run(scenarioPath string, out io.Writer) int {
	p := newPrinter(out)

	sc, err := sim.LoadScenario(scenarioPath)
	if err != nil {
		p.printf("%s: %v\n", p.paint(colorRed, "error"), err)
		return 1
	}
	sess, err := sc.Build()
	if err != nil {
		p.printf("%s: %v\n", p.paint(colorRed, "error"), err)
		return 1
	}

	mgr := varobj.NewManager(sess, varobj.DefaultOptions())

	watched := make([]*varobj.Object, 0, len(sc.Watch))
	for _, expr := range sc.Watch {
		obj, err := mgr.Create(mgr.GenName(), expr, varobj.Binding{Kind: varobj.BindSelectedFrame})
		if err != nil {
			p.printf("%s %q: %v\n", p.paint(colorRed, "cannot watch"), expr, err)
			continue
		}
		watched = append(watched, obj)
	}

	p.printf("%s\n", p.paint(colorBold, "initial stop"))
	for _, obj := range watched {
		p.printTree(obj, 1)
	}

	for i, step := range sc.Steps {
		p.printf("\n%s %d\n", p.paint(colorBold, "step"), i+1)
		if err := sess.Apply(step); err != nil {
			p.printf("  %s: %v\n", p.paint(colorRed, "step failed"), err)
			return 1
		}

		for wi, obj := range watched {
			res, err := mgr.Update(obj)
			if err != nil {
				p.printf("  %s %s: %v\n", p.paint(colorRed, "update failed"), obj.ObjName(), err)
				continue
			}
			// A type change re-creates the object under the same key;
			// keep following the live handle.
			watched[wi] = res.Root
			p.printResult(res)
		}
	}
	return 0
}

func (p *printer) printResult(res *varobj.UpdateResult) {
	switch res.Kind {
	case varobj.OutcomeWentOutOfScope:
		p.printf("  %s %s\n", res.Root.ObjName(), p.paint(colorYellow, "went out of scope"))
		return
	case varobj.OutcomeUnchanged:
		p.printf("  %s unchanged\n", res.Root.ObjName())
		return
	}

	for {
		ch, ok := res.Changes.Pop()
		if !ok {
			break
		}
		label := "changed"
		color := colorGreen
		switch ch.TypeChange {
		case varobj.TypeChanged:
			label = "type changed to " + ch.Obj.TypeString()
			color = colorCyan
		case varobj.DynamicTypeChanged:
			label = "dynamic type changed to " + ch.Obj.DynamicTypeString()
			color = colorCyan
		}
		value := ch.Obj.ValueString()
		if value != "" {
			label += " = " + value
		}
		p.printf("  %s %s\n", ch.Obj.ObjName(), p.paint(color, label))
	}
}

func (p *printer) printTree(obj *varobj.Object, depth int) {
	indent := strings.Repeat("  ", depth)
	name := obj.Name()
	if obj.IsGroupNode() {
		name = p.paint(colorYellow, name)
	}
	line := fmt.Sprintf("%s%s", indent, name)
	if t := obj.TypeString(); t != "" {
		line += " : " + t
	}
	if d := obj.DynamicTypeString(); d != "" {
		line += " (" + d + ")"
	}
	if v := obj.ValueString(); v != "" {
		line += " = " + p.paint(colorGreen, v)
	}
	p.printf("%s\n", line)

	// Expand one level past the root so the transcript shows the lazy
	// children without dumping unbounded trees.
	if depth > 2 {
		return
	}
	if obj.NumChildren() > 0 {
		for _, c := range obj.ListChildren() {
			p.printTree(c, depth+1)
		}
	}
}
