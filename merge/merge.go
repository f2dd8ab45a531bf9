// Package merge reconciles a freshly generated module with the previously
// persisted, possibly hand-edited one.
//
// The rules, in order of authority:
//
//  1. Structure always comes from the new generation. Parameter lists, member
//     sets, kinds, and base classes follow the introspected surface; a shape
//     change is surfaced as structural drift, never silently blended.
//  2. Content is preserved from the old snapshot wherever the new generation
//     is strictly worse: a concrete hand-supplied type or docstring never
//     regresses to Unknown or empty.
//  3. Declarations marked stub-only exist purely in the hand-maintained
//     layer and survive every merge verbatim.
package merge

import (
	"fmt"

	"github.com/basalt-data/stubgen/report"
	"github.com/basalt-data/stubgen/stub"
)

// Modules merges newMod with oldMod (nil on the first run) and records the
// outcome in rep. Output declaration order is newMod's order, with surviving
// stub-only declarations appended, keeping output diff-friendly.
func Modules(newMod, oldMod *stub.Module, rep *report.ModuleReport) *stub.Module {
	out := &stub.Module{
		Name:    newMod.Name,
		Package: newMod.Package,
		Imports: append([]stub.Import(nil), newMod.Imports...),
	}

	var oldDecls []*stub.Decl
	if oldMod != nil {
		oldDecls = oldMod.Decls
	}

	out.Decls = mergeDecls(newMod.Decls, oldDecls, "", rep)
	if oldMod != nil {
		mergeImports(out, oldMod)
	}
	return out
}

// mergeImports carries over old imports that preserved content still needs.
// The new generation's resolver only imports what it generated; a preserved
// hand-refined type may reference a name or module only the old file
// imported. Old imports whose names are no longer referenced are dropped.
func mergeImports(out, oldMod *stub.Module) {
	usedNames := make(map[string]bool)
	usedModules := make(map[string]bool)
	local := make(map[string]bool)
	for _, d := range out.Decls {
		local[d.Name] = true
		d.WalkTypes(func(t stub.TypeExpr) {
			if t.Kind != stub.KindNamed {
				return
			}
			if t.Module == "" {
				usedNames[t.Name] = true
			} else {
				usedModules[t.Module] = true
			}
		})
	}

	alreadyImported := make(map[string]bool)
	for _, imp := range out.Imports {
		for _, n := range imp.Names {
			alreadyImported[n] = true
		}
	}

	for _, imp := range oldMod.Imports {
		if len(imp.Names) == 0 {
			if usedModules[imp.Module] {
				out.AddImport(imp.Module)
			}
			continue
		}
		for _, n := range imp.Names {
			if usedNames[n] && !local[n] && !alreadyImported[n] {
				out.AddImport(imp.Module, n)
				alreadyImported[n] = true
			}
		}
	}
	out.SortImports()
}

// mergeDecls merges one level of declarations: a module's top level or a
// class's member list. Matching is by name; a kind change on a matched name
// is structural drift resolved in favor of the new declaration.
func mergeDecls(newDecls, oldDecls []*stub.Decl, owner string, rep *report.ModuleReport) []*stub.Decl {
	oldByName := make(map[string]*stub.Decl, len(oldDecls))
	for _, d := range oldDecls {
		oldByName[d.Name] = d
	}
	matched := make(map[string]bool, len(newDecls))

	var out []*stub.Decl
	for _, nd := range newDecls {
		path := joinPath(owner, nd.Name)
		od := oldByName[nd.Name]
		matched[nd.Name] = true

		switch {
		case od == nil:
			added := nd.Clone()
			added.Provenance = stub.Generated
			out = append(out, added)
			rep.Added = append(rep.Added, path)

		case od.Kind != nd.Kind:
			rep.Drifts = append(rep.Drifts, fmt.Sprintf(
				"%s changed kind from %s to %s; previous content not carried over",
				path, od.Kind, nd.Kind))
			replaced := nd.Clone()
			replaced.Provenance = stub.Generated
			out = append(out, replaced)

		default:
			out = append(out, mergeDecl(nd, od, path, rep))
		}
	}

	// Old declarations with no new counterpart: dropped with a warning,
	// unless the hand-maintained layer marked them stub-only.
	for _, od := range oldDecls {
		if matched[od.Name] {
			continue
		}
		path := joinPath(owner, od.Name)
		if od.Provenance == stub.StubOnly {
			kept := od.Clone()
			out = append(out, kept)
			rep.StubOnly = append(rep.StubOnly, path)
			continue
		}
		rep.Removed = append(rep.Removed, path)
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"%s no longer introspected; dropped (mark stub-only to keep)", path))
	}

	return out
}

// refinable reports whether old content is authoritative enough to preserve:
// it was hand-refined, produced by an earlier merge, or lives in a stub-only
// declaration.
func refinable(p stub.Provenance) bool {
	return p == stub.HandRefined || p == stub.Merged || p == stub.StubOnly
}

func mergeDecl(nd, od *stub.Decl, path string, rep *report.ModuleReport) *stub.Decl {
	out := nd.Clone()
	out.Provenance = stub.Generated
	preserved := false

	keep := func(slot string) {
		preserved = true
		rep.Preserved = append(rep.Preserved, slot)
	}

	// Leaf rule: the new generation must never regress a previously refined
	// slot back to an unresolved placeholder or drop a docstring.
	if refinable(od.Provenance) {
		if (out.Result.IsUnknown() || out.Result.IsZero()) &&
			!od.Result.IsZero() && !od.Result.IsUnknown() {
			out.Result = od.Result.Rewrite(func(t stub.TypeExpr) stub.TypeExpr { return t })
			keep(path + " type")
		}
		if out.Doc == "" && od.Doc != "" {
			out.Doc = od.Doc
			keep(path + " doc")
		}
	}

	switch nd.Kind {
	case stub.Function:
		mergeParams(out, od, path, rep, keep)

	case stub.Class:
		if driftedBase(nd, od) {
			rep.Drifts = append(rep.Drifts, fmt.Sprintf(
				"%s base class changed from %s to %s", path,
				renderBase(od.Extends), renderBase(nd.Extends)))
		}
		out.Members = mergeDecls(nd.Members, od.Members, path, rep)
		for _, m := range out.Members {
			if m.Provenance == stub.Merged || m.Provenance == stub.StubOnly {
				preserved = true
			}
		}

	case stub.EnumGroup:
		if driftedEnum(nd, od) {
			rep.Drifts = append(rep.Drifts, fmt.Sprintf(
				"%s enum members changed; taking the introspected set", path))
		}
	}

	if preserved {
		out.Provenance = stub.Merged
	}
	return out
}

// mergeParams applies the leaf rule to parameters matched by name. The
// parameter list itself (count, order, markers) is structural and always
// follows the new generation; a shape change is reported as drift.
func mergeParams(out, od *stub.Decl, path string, rep *report.ModuleReport, keep func(string)) {
	if !sameParamShape(out.Params, od.Params) {
		rep.Drifts = append(rep.Drifts, fmt.Sprintf(
			"%s parameters changed from %s to %s",
			path, paramNames(od.Params), paramNames(out.Params)))
	}

	oldByName := make(map[string]*stub.Param, len(od.Params))
	for i := range od.Params {
		oldByName[od.Params[i].Name] = &od.Params[i]
	}

	if !refinable(od.Provenance) {
		return
	}
	for i := range out.Params {
		np := &out.Params[i]
		op := oldByName[np.Name]
		if op == nil {
			continue
		}
		if (np.Type.IsUnknown() || np.Type.IsZero()) && !op.Type.IsZero() && !op.Type.IsUnknown() {
			np.Type = op.Type
			keep(fmt.Sprintf("%s(%s) type", path, np.Name))
		}
	}
}

func sameParamShape(a, b []stub.Param) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].KeywordOnly != b[i].KeywordOnly {
			return false
		}
	}
	return true
}

func paramNames(params []stub.Param) string {
	names := "("
	for i, p := range params {
		if i > 0 {
			names += ", "
		}
		names += p.Name
	}
	return names + ")"
}

func renderBase(t *stub.TypeExpr) string {
	if t == nil {
		return "(none)"
	}
	return t.String()
}

func driftedBase(nd, od *stub.Decl) bool {
	if (nd.Extends == nil) != (od.Extends == nil) {
		return true
	}
	return nd.Extends != nil && !nd.Extends.Equal(*od.Extends)
}

func driftedEnum(nd, od *stub.Decl) bool {
	if len(nd.EnumMembers) != len(od.EnumMembers) {
		return true
	}
	for i := range nd.EnumMembers {
		if nd.EnumMembers[i].Name != od.EnumMembers[i].Name {
			return true
		}
	}
	return false
}

func joinPath(owner, name string) string {
	if owner == "" {
		return name
	}
	return owner + "." + name
}
