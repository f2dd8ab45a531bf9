// Package pyi renders declaration trees to Python stub (.pyi) syntax and
// parses back the subset it emits. The parsed form is what the merge engine
// sees as the prior snapshot, so renderer and parser must stay in lockstep.
package pyi

import (
	"fmt"
	"strings"

	"github.com/basalt-data/stubgen/stub"
)

// Header is the first line of every generated stub file. Unlike a plain
// DO NOT EDIT marker, edits are expected; regeneration preserves them.
const Header = "# Code generated by stubgen. Hand refinements are preserved on regeneration."

// provenanceMarker is the comment prefix that persists provenance across
// runs. Stub-only and merged declarations carry it; generated ones do not.
const provenanceMarker = "# stubgen: "

// stdlibTargets are the standard-library modules the well-known type
// mappings reference. References stay qualified; the file needs the plain
// import.
var stdlibTargets = map[string]bool{
	"datetime": true,
	"uuid":     true,
	"pathlib":  true,
	"typing":   true,
}

// Render produces the stub file text for a module. Output is deterministic:
// declaration order is the tree's order, imports are sorted, and the same
// tree always renders to the same bytes.
func Render(m *stub.Module) string {
	var sb strings.Builder
	sb.WriteString(Header)
	sb.WriteString("\n")

	imports := collectImports(m)
	if len(imports) > 0 {
		sb.WriteString("\n")
		for _, imp := range imports {
			if len(imp.Names) == 0 {
				fmt.Fprintf(&sb, "import %s\n", imp.Module)
			} else {
				fmt.Fprintf(&sb, "from %s import %s\n", imp.Module, strings.Join(imp.Names, ", "))
			}
		}
	}

	for _, d := range m.Decls {
		sb.WriteString("\n")
		renderDecl(&sb, d, 0)
	}

	return sb.String()
}

// collectImports merges the module's resolved imports with the renderer's
// own requirements: Incomplete for Unknown slots, Iterator for lazy
// sequences. The module itself is not mutated.
func collectImports(m *stub.Module) []stub.Import {
	tmp := stub.Module{Name: m.Name, Package: m.Package}
	for _, imp := range m.Imports {
		tmp.AddImport(imp.Module, imp.Names...)
	}

	needIncomplete, needIterator := false, false
	for _, d := range m.Decls {
		d.WalkTypes(func(t stub.TypeExpr) {
			switch t.Kind {
			case stub.KindUnknown:
				needIncomplete = true
			case stub.KindIterator:
				needIterator = true
			case stub.KindNamed:
				if stdlibTargets[t.Module] {
					tmp.AddImport(t.Module)
				}
			}
		})
	}
	if needIncomplete {
		tmp.AddImport("_typeshed", "Incomplete")
	}
	if needIterator {
		tmp.AddImport("collections.abc", "Iterator")
	}
	tmp.SortImports()
	return tmp.Imports
}

func renderDecl(sb *strings.Builder, d *stub.Decl, depth int) {
	indent := strings.Repeat("    ", depth)

	if d.Provenance != stub.Generated && d.Provenance != "" {
		fmt.Fprintf(sb, "%s%s%s\n", indent, provenanceMarker, d.Provenance)
	}

	switch d.Kind {
	case stub.Constant, stub.Property:
		fmt.Fprintf(sb, "%s%s: %s\n", indent, d.Name, d.Result.String())

	case stub.Function:
		sig := renderSignature(d)
		if d.Doc == "" {
			fmt.Fprintf(sb, "%s%s: ...\n", indent, sig)
		} else {
			fmt.Fprintf(sb, "%s%s:\n", indent, sig)
			renderDocstring(sb, d.Doc, depth+1)
			fmt.Fprintf(sb, "%s    ...\n", indent)
		}

	case stub.Class:
		head := "class " + d.Name
		if d.Extends != nil {
			head += "(" + d.Extends.String() + ")"
		}
		if d.Doc == "" && len(d.Members) == 0 {
			fmt.Fprintf(sb, "%s%s: ...\n", indent, head)
			return
		}
		fmt.Fprintf(sb, "%s%s:\n", indent, head)
		if d.Doc != "" {
			renderDocstring(sb, d.Doc, depth+1)
		}
		for _, m := range d.Members {
			renderDecl(sb, m, depth+1)
		}

	case stub.EnumGroup:
		fmt.Fprintf(sb, "%sclass %s:\n", indent, d.Name)
		if d.Doc != "" {
			renderDocstring(sb, d.Doc, depth+1)
		}
		inner := indent + "    "
		for _, member := range d.EnumMembers {
			fmt.Fprintf(sb, "%s%s: %s\n", inner, member.Name, d.Name)
		}
		// The fixed capability set of an enum-like constant group: identity
		// comparison, integer conversion, string conversion.
		fmt.Fprintf(sb, "%sdef __eq__(self, other: object) -> bool: ...\n", inner)
		fmt.Fprintf(sb, "%sdef __int__(self) -> int: ...\n", inner)
		fmt.Fprintf(sb, "%sdef __str__(self) -> str: ...\n", inner)
	}
}

func renderSignature(d *stub.Decl) string {
	var parts []string
	wroteStar := false
	for _, p := range d.Params {
		if p.KeywordOnly && !wroteStar {
			parts = append(parts, "*")
			wroteStar = true
		}
		s := p.Name
		if !p.Type.IsZero() {
			s += ": " + p.Type.String()
		}
		if p.Default != "" {
			if p.Type.IsZero() {
				s += "=" + p.Default
			} else {
				s += " = " + p.Default
			}
		}
		parts = append(parts, s)
	}

	ret := "None"
	if !d.Result.IsZero() {
		ret = d.Result.String()
	}
	return fmt.Sprintf("def %s(%s) -> %s", d.Name, strings.Join(parts, ", "), ret)
}

func renderDocstring(sb *strings.Builder, doc string, depth int) {
	indent := strings.Repeat("    ", depth)
	lines := strings.Split(strings.TrimRight(doc, "\n"), "\n")
	if len(lines) == 1 {
		fmt.Fprintf(sb, "%s\"\"\"%s\"\"\"\n", indent, lines[0])
		return
	}
	fmt.Fprintf(sb, "%s\"\"\"%s\n", indent, lines[0])
	for _, line := range lines[1:] {
		if line == "" {
			sb.WriteString("\n")
		} else {
			fmt.Fprintf(sb, "%s%s\n", indent, line)
		}
	}
	fmt.Fprintf(sb, "%s\"\"\"\n", indent)
}
