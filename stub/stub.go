// Package stub defines the declaration tree shared by every pipeline stage:
// modules, declarations, parameters, and target-language type expressions.
//
// The tree is rebuilt wholesale on every run by the extract/map/resolve
// stages; the merge engine is the only consumer that also reads a tree parsed
// from a previous snapshot.
package stub

import "sort"

// Kind tags the variant of a Declaration.
type Kind string

const (
	Class     Kind = "class"
	Function  Kind = "function"
	Property  Kind = "property"
	Constant  Kind = "constant"
	EnumGroup Kind = "enum"
)

// Provenance records where a declaration's content came from.
type Provenance string

const (
	// Generated content came from the latest introspection run.
	Generated Provenance = "generated"
	// HandRefined content was supplied by a human in the persisted snapshot.
	HandRefined Provenance = "hand-refined"
	// Merged content combines generated structure with hand-refined leaves.
	Merged Provenance = "merged"
	// StubOnly declarations exist only in the hand-maintained layer and are
	// preserved verbatim across merges.
	StubOnly Provenance = "stub-only"
)

// Param is one parameter of a callable declaration.
type Param struct {
	Name        string
	Type        TypeExpr
	Default     string // literal text as rendered; "" means no default
	KeywordOnly bool
}

// EnumMember is one named singleton of an enum-like constant group.
type EnumMember struct {
	Name  string
	Value int
}

// Decl is a single declaration. Exactly one of the kind-specific field sets
// is populated, per Kind:
//
//	Function:  Params, Result
//	Property:  Result
//	Constant:  Result
//	Class:     Extends, Members
//	EnumGroup: EnumMembers (plus the fixed capability methods at render time)
type Decl struct {
	Name       string
	Kind       Kind
	Doc        string
	Provenance Provenance

	Params []Param
	Result TypeExpr

	Extends     *TypeExpr // Named reference to the single base class
	Members     []*Decl
	EnumMembers []EnumMember
}

// Clone returns a deep copy of d. The merge engine clones both inputs so a
// merged tree never aliases the trees it was built from.
func (d *Decl) Clone() *Decl {
	out := *d
	out.Params = make([]Param, len(d.Params))
	copy(out.Params, d.Params)
	for i := range out.Params {
		out.Params[i].Type = out.Params[i].Type.Rewrite(identity)
	}
	out.Result = d.Result.Rewrite(identity)
	if d.Extends != nil {
		e := d.Extends.Rewrite(identity)
		out.Extends = &e
	}
	out.EnumMembers = append([]EnumMember(nil), d.EnumMembers...)
	out.Members = make([]*Decl, len(d.Members))
	for i, m := range d.Members {
		out.Members[i] = m.Clone()
	}
	return &out
}

func identity(t TypeExpr) TypeExpr { return t }

// Member returns the named class member, or nil.
func (d *Decl) Member(name string) *Decl {
	for _, m := range d.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// RewriteTypes applies fn to every TypeExpr slot of d, recursing into class
// members. Used by the reference resolver.
func (d *Decl) RewriteTypes(fn func(TypeExpr) TypeExpr) {
	if !d.Result.IsZero() {
		d.Result = d.Result.Rewrite(fn)
	}
	for i := range d.Params {
		if !d.Params[i].Type.IsZero() {
			d.Params[i].Type = d.Params[i].Type.Rewrite(fn)
		}
	}
	if d.Extends != nil {
		e := d.Extends.Rewrite(fn)
		d.Extends = &e
	}
	for _, m := range d.Members {
		m.RewriteTypes(fn)
	}
}

// WalkTypes calls fn for every TypeExpr slot of d, recursing into members.
func (d *Decl) WalkTypes(fn func(TypeExpr)) {
	if !d.Result.IsZero() {
		d.Result.Walk(fn)
	}
	for i := range d.Params {
		if !d.Params[i].Type.IsZero() {
			d.Params[i].Type.Walk(fn)
		}
	}
	if d.Extends != nil {
		d.Extends.Walk(fn)
	}
	for _, m := range d.Members {
		m.WalkTypes(fn)
	}
}

// Import is one module-level import statement. Names empty means a plain
// "import Module"; otherwise "from Module import Names...".
type Import struct {
	Module string
	Names  []string
}

// Module is a named unit of declarations: the top-level extension module or
// one of its submodules.
type Module struct {
	// Name of this module, e.g. "schema". The root module uses the package
	// name itself.
	Name string
	// Package is the importable package the module set belongs to, e.g.
	// "bauplan". Sibling imports render as "from <Package>.<Module> import".
	Package string

	Imports []Import
	Decls   []*Decl
}

// Decl returns the named top-level declaration, or nil.
func (m *Module) Decl(name string) *Decl {
	for _, d := range m.Decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// AddImport records an import statement, deduplicating modules and names.
func (m *Module) AddImport(module string, names ...string) {
	for i := range m.Imports {
		if m.Imports[i].Module != module {
			continue
		}
		for _, n := range names {
			if !containsString(m.Imports[i].Names, n) {
				m.Imports[i].Names = append(m.Imports[i].Names, n)
			}
		}
		return
	}
	m.Imports = append(m.Imports, Import{Module: module, Names: append([]string(nil), names...)})
}

// SortImports orders imports and imported names for deterministic output.
// Plain imports sort before from-imports, matching stub file convention.
func (m *Module) SortImports() {
	for i := range m.Imports {
		sort.Strings(m.Imports[i].Names)
	}
	sort.SliceStable(m.Imports, func(i, j int) bool {
		pi, pj := len(m.Imports[i].Names) > 0, len(m.Imports[j].Names) > 0
		if pi != pj {
			return !pi
		}
		return m.Imports[i].Module < m.Imports[j].Module
	})
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
