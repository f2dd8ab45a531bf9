// Package resolve rewrites cross-module type references into bare local
// names, explicit import statements, or fully qualified forms, per a
// per-module policy.
package resolve

import (
	"fmt"
	"sort"

	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/stub"
)

// Policy decides how a reference into another module is rendered.
type Policy string

const (
	// PolicyImport emits a module-level import and a bare name at the use
	// site. This is the default.
	PolicyImport Policy = "import"
	// PolicyReexport leaves the reference qualified through the package
	// root, for names the root module re-exports as convenience aliases.
	PolicyReexport Policy = "re-export"
)

// stdlib target modules referenced by the well-known type mappings. These
// always stay qualified with a plain import.
var stdlibModules = map[string]bool{
	"datetime": true,
	"uuid":     true,
	"pathlib":  true,
	"typing":   true,
}

// Python builtin names stay bare; they resolve everywhere without an import.
// These are the ones the introspected surface actually uses as base classes.
var builtins = map[string]bool{
	"object":       true,
	"Exception":    true,
	"RuntimeError": true,
	"ValueError":   true,
	"TypeError":    true,
	"KeyError":     true,
	"IOError":      true,
	"TimeoutError": true,
}

// Warning is a non-fatal resolution problem.
type Warning struct {
	Module  string
	Name    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Module, w.Name, w.Message)
}

// Resolver resolves Named references against the full module set of a run.
type Resolver struct {
	policies map[string]map[string]Policy // referencing module -> defining module -> policy
	// definedIn maps a declaration name to the modules defining it, for
	// resolving references introspection left unqualified.
	definedIn map[string][]string
}

// New indexes the run's modules. policies is keyed by referencing module,
// then defining module; absent entries default to PolicyImport.
func New(modules []*stub.Module, policies map[string]map[string]Policy) *Resolver {
	r := &Resolver{
		policies:  policies,
		definedIn: make(map[string][]string),
	}
	for _, m := range modules {
		for _, d := range m.Decls {
			if d.Kind == stub.Class || d.Kind == stub.EnumGroup {
				r.definedIn[d.Name] = append(r.definedIn[d.Name], m.Name)
			}
		}
	}
	return r
}

func (r *Resolver) policy(referencing, defining string) Policy {
	if byDef, ok := r.policies[referencing]; ok {
		if p, ok := byDef[defining]; ok {
			return p
		}
	}
	return PolicyImport
}

// ResolveModule rewrites every Named reference in m and populates its import
// list, deduplicated and sorted. An imported name that collides with a local
// declaration is an ErrReferenceConflict: the error is returned and m must be
// skipped, but other modules can proceed.
func (r *Resolver) ResolveModule(m *stub.Module) ([]Warning, error) {
	var warnings []Warning

	local := make(map[string]bool, len(m.Decls))
	for _, d := range m.Decls {
		local[d.Name] = true
	}

	// First pass: decide the treatment of every distinct reference so that a
	// conflict is detected before any rewriting happens.
	type importEntry struct {
		fromModule string
	}
	imports := make(map[string]importEntry) // imported name -> source
	plain := make(map[string]bool)          // plain "import X" modules

	var conflict error
	decide := func(t stub.TypeExpr) {
		if t.Kind != stub.KindNamed || conflict != nil {
			return
		}
		module := t.Module
		if module == "" && !local[t.Name] && !builtins[t.Name] {
			module = r.inferModule(m, t.Name, &warnings)
		}
		switch {
		case module == "" || module == m.Name:
			// Local name, nothing to import.
		case stdlibModules[module]:
			plain[module] = true
		case r.policy(m.Name, module) == PolicyReexport:
			plain[m.Package] = true
		default:
			if local[t.Name] {
				conflict = errors.Wrapf(errors.ErrReferenceConflict,
					"module %s: import of %s from %s shadows a local declaration",
					m.Name, t.Name, module)
				return
			}
			if prev, ok := imports[t.Name]; ok && prev.fromModule != module {
				conflict = errors.Wrapf(errors.ErrReferenceConflict,
					"module %s: %s imported from both %s and %s",
					m.Name, t.Name, prev.fromModule, module)
				return
			}
			imports[t.Name] = importEntry{fromModule: module}
		}
	}
	for _, d := range m.Decls {
		d.WalkTypes(decide)
	}
	if conflict != nil {
		return warnings, conflict
	}

	// Second pass: rewrite use sites.
	rewrite := func(t stub.TypeExpr) stub.TypeExpr {
		if t.Kind != stub.KindNamed {
			return t
		}
		module := t.Module
		if module == "" && !local[t.Name] && !builtins[t.Name] {
			module = r.inferModule(m, t.Name, nil)
		}
		switch {
		case module == "" || module == m.Name:
			t.Module = ""
		case stdlibModules[module]:
			// keep qualified
		case r.policy(m.Name, module) == PolicyReexport:
			t.Module = m.Package
		default:
			t.Module = ""
		}
		return t
	}
	for _, d := range m.Decls {
		d.RewriteTypes(rewrite)
	}

	for module := range plain {
		m.AddImport(module)
	}
	names := make([]string, 0, len(imports))
	for name := range imports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.AddImport(m.Package+"."+imports[name].fromModule, name)
	}
	m.SortImports()

	return warnings, nil
}

// inferModule resolves a reference introspection emitted without a
// qualifier. A name defined in exactly one other module resolves there;
// anything else stays bare with a warning.
func (r *Resolver) inferModule(m *stub.Module, name string, warnings *[]Warning) string {
	defs := r.definedIn[name]
	switch len(defs) {
	case 0:
		if warnings != nil {
			*warnings = append(*warnings, Warning{Module: m.Name, Name: name,
				Message: "reference to a declaration not defined in any module"})
		}
		return ""
	case 1:
		return defs[0]
	default:
		if warnings != nil {
			*warnings = append(*warnings, Warning{Module: m.Name, Name: name,
				Message: fmt.Sprintf("ambiguous reference, defined in %v", defs)})
		}
		return ""
	}
}
