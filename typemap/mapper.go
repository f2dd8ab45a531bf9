// Package typemap rewrites native type expressions into target-language type
// expressions using a closed correspondence table.
//
// Mapping is a pure function of the input type: the same native expression
// always maps to the same target expression regardless of declaration order,
// which the merge engine's diffing depends on. Anything outside the table
// maps to the Unknown sentinel plus a diagnostic; mapping never fails.
package typemap

import (
	"fmt"
	"strings"

	"github.com/basalt-data/stubgen/introspect"
	"github.com/basalt-data/stubgen/native"
	"github.com/basalt-data/stubgen/stub"
)

// Diagnostic records one native type the table could not resolve.
type Diagnostic struct {
	Module string
	Decl   string // dotted path, e.g. "Table.partitions"
	Native string // native type text
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s.%s: unmapped native type %q", d.Module, d.Decl, d.Native)
}

// primitives maps native scalar heads straight to target primitives.
var primitives = map[string]func() stub.TypeExpr{
	"String":   stub.Str,
	"str":      stub.Str,
	"char":     stub.Str,
	"OsString": stub.Str,
	"i8":       stub.Int, "i16": stub.Int, "i32": stub.Int, "i64": stub.Int,
	"i128": stub.Int, "isize": stub.Int,
	"u8": stub.Int, "u16": stub.Int, "u32": stub.Int, "u64": stub.Int,
	"u128": stub.Int, "usize": stub.Int,
	"f32": stub.Float, "f64": stub.Float,
	"bool": stub.Bool,
}

// wellKnown maps value-object heads to their target-language equivalents.
// Generic arguments on these heads (chrono's DateTime<Utc>) are irrelevant on
// the target side and are dropped.
var wellKnown = map[string]stub.TypeExpr{
	"DateTime":       stub.Named("datetime", "datetime"),
	"NaiveDateTime":  stub.Named("datetime", "datetime"),
	"Timestamp":      stub.Named("datetime", "datetime"),
	"SystemTime":     stub.Named("datetime", "datetime"),
	"Duration":       stub.Named("datetime", "timedelta"),
	"SignedDuration": stub.Named("datetime", "timedelta"),
	"Uuid":           stub.Named("uuid", "UUID"),
	"PathBuf":        stub.Named("pathlib", "Path"),
	"Path":           stub.Named("pathlib", "Path"),
	"Bytes":          stub.Bytes(),
	"PyObject":       stub.Named("typing", "Any"),
	"PyAny":          stub.Named("typing", "Any"),
}

// transparent heads contribute nothing to the target type; their single
// argument maps in their place. Result-like heads collapse to the success
// type because failures surface as out-of-band exceptions at the boundary.
var transparent = map[string]bool{
	"Box": true, "Arc": true, "Rc": true, "Cow": true,
	"Py": true, "PyRef": true, "PyRefMut": true, "Bound": true,
}

var resultLike = map[string]bool{
	"Result": true, "PyResult": true,
}

var sequenceLike = map[string]bool{
	"Vec": true, "VecDeque": true, "HashSet": true, "BTreeSet": true,
}

var mappingLike = map[string]bool{
	"HashMap": true, "BTreeMap": true, "IndexMap": true,
}

var iteratorLike = map[string]bool{
	"Iterator": true, "IntoIterator": true, "PyIterator": true, "Paginator": true,
}

// Mapper applies the correspondence table. The table itself is fixed; config
// may extend the well-known set, e.g. to map an in-house newtype to a target
// class. A single Mapper is read-only after construction and safe to share
// across worker goroutines.
type Mapper struct {
	extra map[string]stub.TypeExpr
}

// New builds a Mapper. overrides extends the well-known table: native head →
// dotted target name ("JobId" → "uuid.UUID", "Decimal" → "float").
func New(overrides map[string]string) *Mapper {
	m := &Mapper{extra: make(map[string]stub.TypeExpr, len(overrides))}
	for head, target := range overrides {
		m.extra[head] = parseTarget(target)
	}
	return m
}

// parseTarget interprets a dotted target name from config.
func parseTarget(s string) stub.TypeExpr {
	switch s {
	case "str":
		return stub.Str()
	case "int":
		return stub.Int()
	case "float":
		return stub.Float()
	case "bool":
		return stub.Bool()
	case "bytes":
		return stub.Bytes()
	case "None":
		return stub.None()
	}
	if i := strings.LastIndex(s, "."); i > 0 {
		return stub.Named(s[:i], s[i+1:])
	}
	return stub.Named("", s)
}

// Map converts one native type. Diagnostics carry the native text; the
// caller fills in the declaration context.
func (m *Mapper) Map(t native.Type) (stub.TypeExpr, []Diagnostic) {
	if t.Opaque {
		return stub.Unknown(t.Raw), []Diagnostic{{Native: t.Raw}}
	}

	head := t.Head()

	if head == "()" && len(t.Args) == 0 {
		return stub.None(), nil
	}

	if mk, ok := primitives[head]; ok && len(t.Args) == 0 {
		return mk(), nil
	}

	if target, ok := m.extra[head]; ok {
		return target, nil
	}
	if target, ok := wellKnown[head]; ok {
		return target, nil
	}

	switch {
	case head == "Option" && len(t.Args) == 1:
		elem, diags := m.Map(t.Args[0])
		return stub.Optional(elem), diags

	case (transparent[head] || resultLike[head]) && len(t.Args) >= 1:
		return m.Map(t.Args[0])

	case sequenceLike[head] && len(t.Args) == 1:
		// Vec<u8> is a byte buffer, not a sequence of ints.
		if t.Args[0].Head() == "u8" && !t.Args[0].Opaque {
			return stub.Bytes(), nil
		}
		elem, diags := m.Map(t.Args[0])
		return stub.Sequence(elem), diags

	case mappingLike[head] && len(t.Args) == 2:
		key, kd := m.Map(t.Args[0])
		value, vd := m.Map(t.Args[1])
		return stub.Mapping(key, value), append(kd, vd...)

	case iteratorLike[head] && len(t.Args) == 1:
		elem, diags := m.Map(t.Args[0])
		return stub.Iterator(elem), diags
	}

	// A bare capitalized head is a reference to a class declaration. The
	// qualifier's final segment names the defining module; "crate" prefixes
	// are introspection noise.
	if len(t.Args) == 0 && head != "" && head[0] >= 'A' && head[0] <= 'Z' {
		return stub.Named(referenceModule(t), head), nil
	}

	return stub.Unknown(t.String()), []Diagnostic{{Native: t.String()}}
}

func referenceModule(t native.Type) string {
	segs := t.Path[:len(t.Path)-1]
	for len(segs) > 0 && (segs[0] == "crate" || segs[0] == "super") {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// MapModule converts an intermediate module into a target-language module.
// Declaration order is preserved; every declaration is tagged Generated.
func (m *Mapper) MapModule(in *introspect.Module) (*stub.Module, []Diagnostic) {
	out := &stub.Module{Name: in.Name, Package: in.Package}
	var diags []Diagnostic

	for _, d := range in.Decls {
		decl, dd := m.mapDecl(in.Name, "", d)
		diags = append(diags, dd...)
		out.Decls = append(out.Decls, decl)
	}
	return out, diags
}

func (m *Mapper) mapDecl(module, owner string, in *introspect.Decl) (*stub.Decl, []Diagnostic) {
	path := in.Name
	if owner != "" {
		path = owner + "." + in.Name
	}

	out := &stub.Decl{
		Name:        in.Name,
		Kind:        in.Kind,
		Doc:         in.Doc,
		Provenance:  stub.Generated,
		EnumMembers: append([]stub.EnumMember(nil), in.EnumMembers...),
	}
	var diags []Diagnostic

	record := func(slot string, dd []Diagnostic) {
		for i := range dd {
			dd[i].Module = module
			dd[i].Decl = slot
		}
		diags = append(diags, dd...)
	}

	switch {
	case in.Unresolvable:
		out.Result = stub.Unknown("")
	case in.HasResult:
		mapped, dd := m.Map(in.Result)
		record(path, dd)
		out.Result = mapped
	}

	for _, p := range in.Params {
		param := stub.Param{Name: p.Name, Default: p.Default, KeywordOnly: p.KeywordOnly}
		if p.HasType {
			mapped, dd := m.Map(p.Type)
			record(path+"("+p.Name+")", dd)
			param.Type = mapped
		}
		out.Params = append(out.Params, param)
	}

	if in.Extends != nil {
		mapped, dd := m.Map(*in.Extends)
		record(path, dd)
		if mapped.Kind == stub.KindNamed {
			out.Extends = &mapped
		} else {
			// A base class that is not a plain reference cannot be rendered;
			// drop it and keep the diagnostic trail.
			record(path, []Diagnostic{{Native: in.Extends.String()}})
		}
	}

	for _, member := range in.Members {
		mm, dd := m.mapDecl(module, path, member)
		diags = append(diags, dd...)
		out.Members = append(out.Members, mm)
	}

	return out, diags
}
