package report

import (
	"github.com/pterm/pterm"
)

// Print renders the run report for human review on the terminal.
func (r *RunReport) Print() {
	pterm.DefaultSection.Printf("stubgen report for %s", r.Package)

	for _, m := range r.Modules {
		pterm.Println()
		if m.Fatal() {
			pterm.Error.Printf("module %s skipped: %s\n", m.Module, m.Error)
			continue
		}

		pterm.Info.Printf("module %s: +%d -%d, %d preserved, %d unknown\n",
			m.Module, len(m.Added), len(m.Removed), len(m.Preserved), m.UnknownCount)

		printList("added", m.Added)
		printList("removed", m.Removed)
		printList("preserved refinements", m.Preserved)
		printList("stub-only kept", m.StubOnly)

		for _, d := range m.Drifts {
			pterm.Warning.Printf("  structural drift: %s\n", d)
		}
		for _, w := range m.Warnings {
			pterm.Warning.Printf("  %s\n", w)
		}
		for _, u := range m.Unmapped {
			pterm.Debug.Printf("  unmapped: %s\n", u)
		}
	}

	pterm.Println()
	if r.Fatal() {
		pterm.Error.Println("some modules failed; their snapshots were left untouched")
	} else {
		pterm.Success.Println("all modules written")
	}
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	pterm.Printf("  %s:\n", label)
	for _, item := range items {
		pterm.Printf("    %s\n", item)
	}
}
