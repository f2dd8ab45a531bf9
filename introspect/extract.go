// Package introspect reads the introspection feed for a compiled extension
// module and produces one intermediate declaration tree per submodule, with
// type expressions still in their native representation. Mapping to target
// types is the next stage's job.
package introspect

import (
	"fmt"

	"github.com/basalt-data/stubgen/native"
	"github.com/basalt-data/stubgen/stub"
)

// Module is the intermediate tree for one submodule: declaration structure in
// final form, type expressions still native.
type Module struct {
	Name    string
	Package string
	Decls   []*Decl
}

// Decl mirrors stub.Decl with native types in the type slots. Unresolvable
// marks a result type introspection explicitly could not recover; the mapper
// turns it into the Unknown sentinel.
type Decl struct {
	Name string
	Kind stub.Kind
	Doc  string

	Params       []Param
	Result       native.Type
	HasResult    bool
	Unresolvable bool

	Extends     *native.Type
	Members     []*Decl
	EnumMembers []stub.EnumMember
}

// Param is one callable parameter with its native type. HasType is false for
// unannotated parameters such as self.
type Param struct {
	Name        string
	Type        native.Type
	HasType     bool
	Default     string
	KeywordOnly bool
}

// Warning is a non-fatal per-declaration extraction problem. The pipeline
// never aborts on a single bad signature; it collects these instead.
type Warning struct {
	Module  string
	Decl    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s.%s: %s", w.Module, w.Decl, w.Message)
}

var validKinds = map[string]stub.Kind{
	"class":    stub.Class,
	"function": stub.Function,
	"property": stub.Property,
	"constant": stub.Constant,
	"enum":     stub.EnumGroup,
}

// Extract converts a feed into intermediate module trees, preserving the
// tool's emission order. Duplicate names within a module and symbols with an
// unrecognized kind are dropped with a warning.
func Extract(feed *Feed) ([]*Module, []Warning) {
	var modules []*Module
	var warnings []Warning

	for _, fm := range feed.Modules {
		mod := &Module{Name: fm.Name, Package: feed.Package}
		seen := make(map[string]bool)

		for _, sym := range fm.Symbols {
			decl, warns := extractSymbol(fm.Name, "", sym)
			warnings = append(warnings, warns...)
			if decl == nil {
				continue
			}
			if seen[decl.Name] {
				warnings = append(warnings, Warning{
					Module:  fm.Name,
					Decl:    decl.Name,
					Message: "duplicate declaration name, keeping first",
				})
				continue
			}
			seen[decl.Name] = true
			mod.Decls = append(mod.Decls, decl)
		}
		modules = append(modules, mod)
	}

	return modules, warnings
}

func extractSymbol(module, owner string, sym Symbol) (*Decl, []Warning) {
	path := sym.Name
	if owner != "" {
		path = owner + "." + sym.Name
	}

	kind, ok := validKinds[sym.Kind]
	if !ok {
		return nil, []Warning{{Module: module, Decl: path,
			Message: fmt.Sprintf("unrecognized kind %q, skipping", sym.Kind)}}
	}

	decl := &Decl{Name: sym.Name, Kind: kind, Doc: sym.Doc}
	var warnings []Warning

	switch kind {
	case stub.Function:
		// The feed describes bound methods without their receiver; class
		// members need the untyped self the rendered signature carries.
		if owner != "" && (len(sym.Params) == 0 || sym.Params[0].Name != "self") {
			decl.Params = append(decl.Params, Param{Name: "self"})
		}
		for _, p := range sym.Params {
			param := Param{Name: p.Name, Default: p.Default, KeywordOnly: p.KeywordOnly}
			if p.Type != "" {
				param.Type = native.Parse(p.Type)
				param.HasType = true
			}
			decl.Params = append(decl.Params, param)
		}
		switch {
		case sym.Unresolvable:
			decl.Unresolvable = true
			warnings = append(warnings, Warning{Module: module, Decl: path,
				Message: "no resolvable return type"})
		case sym.Returns == "":
			// No declared return means the callable returns nothing.
			decl.Result = native.Parse("()")
			decl.HasResult = true
		default:
			decl.Result = native.Parse(sym.Returns)
			decl.HasResult = true
		}

	case stub.Property, stub.Constant:
		switch {
		case sym.Unresolvable:
			decl.Unresolvable = true
			warnings = append(warnings, Warning{Module: module, Decl: path,
				Message: "no resolvable type"})
		case sym.Type == "":
			decl.Unresolvable = true
			warnings = append(warnings, Warning{Module: module, Decl: path,
				Message: "introspection emitted no type"})
		default:
			decl.Result = native.Parse(sym.Type)
			decl.HasResult = true
		}

	case stub.Class:
		if sym.Extends != "" {
			base := native.Parse(sym.Extends)
			decl.Extends = &base
		}
		seen := make(map[string]bool)
		for _, member := range sym.Members {
			m, warns := extractSymbol(module, path, member)
			warnings = append(warnings, warns...)
			if m == nil {
				continue
			}
			if seen[m.Name] {
				warnings = append(warnings, Warning{Module: module, Decl: path + "." + m.Name,
					Message: "duplicate member name, keeping first"})
				continue
			}
			seen[m.Name] = true
			decl.Members = append(decl.Members, m)
		}

	case stub.EnumGroup:
		for i, member := range sym.Members {
			value := i
			if member.Value != nil {
				value = *member.Value
			}
			decl.EnumMembers = append(decl.EnumMembers, stub.EnumMember{
				Name:  member.Name,
				Value: value,
			})
		}
	}

	return decl, warnings
}
