package stub

import "strings"

// TypeKind discriminates the variants of a TypeExpr.
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive" // str, int, float, bool, bytes, None
	KindOptional  TypeKind = "optional"  // T | None
	KindSequence  TypeKind = "sequence"  // list[T]
	KindMapping   TypeKind = "mapping"   // dict[K, V]
	KindIterator  TypeKind = "iterator"  // Iterator[T]
	KindNamed     TypeKind = "named"     // reference to a class declaration
	KindUnion     TypeKind = "union"     // A | B
	KindUnknown   TypeKind = "unknown"   // introspection/mapping could not determine
)

// TypeExpr is a target-language type expression. Named references carry a
// (module, name) handle rather than an embedded declaration so that mutually
// referencing classes need no forward-declaration ordering; handles are
// resolved against the module set at render time.
type TypeExpr struct {
	Kind     TypeKind
	Name     string     // primitive name, or referenced declaration name
	Module   string     // Named only: defining module; "" means local or unresolved
	Elem     *TypeExpr  // Optional, Sequence, Iterator
	Key      *TypeExpr  // Mapping
	Value    *TypeExpr  // Mapping
	Variants []TypeExpr // Union
	Raw      string     // Unknown only: native text that failed to map
}

// Constructors. Mapping output must be order-independent, so these build
// values rather than interning anything.

func Str() TypeExpr   { return TypeExpr{Kind: KindPrimitive, Name: "str"} }
func Int() TypeExpr   { return TypeExpr{Kind: KindPrimitive, Name: "int"} }
func Float() TypeExpr { return TypeExpr{Kind: KindPrimitive, Name: "float"} }
func Bool() TypeExpr  { return TypeExpr{Kind: KindPrimitive, Name: "bool"} }
func Bytes() TypeExpr { return TypeExpr{Kind: KindPrimitive, Name: "bytes"} }
func None() TypeExpr  { return TypeExpr{Kind: KindPrimitive, Name: "None"} }

func Unknown(raw string) TypeExpr { return TypeExpr{Kind: KindUnknown, Raw: raw} }

func Optional(elem TypeExpr) TypeExpr {
	// Optional is idempotent; Option<Option<T>> flattens on the Python side.
	if elem.Kind == KindOptional {
		return elem
	}
	return TypeExpr{Kind: KindOptional, Elem: &elem}
}

func Sequence(elem TypeExpr) TypeExpr { return TypeExpr{Kind: KindSequence, Elem: &elem} }
func Iterator(elem TypeExpr) TypeExpr { return TypeExpr{Kind: KindIterator, Elem: &elem} }

func Mapping(key, value TypeExpr) TypeExpr {
	return TypeExpr{Kind: KindMapping, Key: &key, Value: &value}
}

func Named(module, name string) TypeExpr {
	return TypeExpr{Kind: KindNamed, Module: module, Name: name}
}

func Union(variants ...TypeExpr) TypeExpr {
	if len(variants) == 1 {
		return variants[0]
	}
	return TypeExpr{Kind: KindUnion, Variants: variants}
}

// IsUnknown reports whether t is the Unknown sentinel.
func (t TypeExpr) IsUnknown() bool { return t.Kind == KindUnknown }

// IsZero reports whether t is the zero TypeExpr (no type recorded at all).
func (t TypeExpr) IsZero() bool { return t.Kind == "" }

// ContainsUnknown reports whether t or any nested type is Unknown.
func (t TypeExpr) ContainsUnknown() bool {
	if t.Kind == KindUnknown {
		return true
	}
	for _, c := range t.children() {
		if c.ContainsUnknown() {
			return true
		}
	}
	return false
}

func (t TypeExpr) children() []TypeExpr {
	var out []TypeExpr
	if t.Elem != nil {
		out = append(out, *t.Elem)
	}
	if t.Key != nil {
		out = append(out, *t.Key)
	}
	if t.Value != nil {
		out = append(out, *t.Value)
	}
	out = append(out, t.Variants...)
	return out
}

// Equal reports deep structural equality.
func (t TypeExpr) Equal(other TypeExpr) bool {
	if t.Kind != other.Kind || t.Name != other.Name || t.Module != other.Module {
		return false
	}
	if (t.Elem == nil) != (other.Elem == nil) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*other.Elem) {
		return false
	}
	if (t.Key == nil) != (other.Key == nil) {
		return false
	}
	if t.Key != nil && (!t.Key.Equal(*other.Key) || !t.Value.Equal(*other.Value)) {
		return false
	}
	if len(t.Variants) != len(other.Variants) {
		return false
	}
	for i := range t.Variants {
		if !t.Variants[i].Equal(other.Variants[i]) {
			return false
		}
	}
	return true
}

// Rewrite returns a copy of t with fn applied bottom-up to every node.
// The resolver uses this to rewrite Named references in place.
func (t TypeExpr) Rewrite(fn func(TypeExpr) TypeExpr) TypeExpr {
	out := t
	if t.Elem != nil {
		e := t.Elem.Rewrite(fn)
		out.Elem = &e
	}
	if t.Key != nil {
		k := t.Key.Rewrite(fn)
		out.Key = &k
	}
	if t.Value != nil {
		v := t.Value.Rewrite(fn)
		out.Value = &v
	}
	if len(t.Variants) > 0 {
		out.Variants = make([]TypeExpr, len(t.Variants))
		for i := range t.Variants {
			out.Variants[i] = t.Variants[i].Rewrite(fn)
		}
	}
	return fn(out)
}

// Walk calls fn for t and every nested type.
func (t TypeExpr) Walk(fn func(TypeExpr)) {
	fn(t)
	for _, c := range t.children() {
		c.Walk(fn)
	}
}

// String renders t in Python typing syntax. Unknown renders as Incomplete,
// the conventional typeshed placeholder.
func (t TypeExpr) String() string {
	switch t.Kind {
	case KindPrimitive:
		return t.Name
	case KindOptional:
		return t.Elem.String() + " | None"
	case KindSequence:
		return "list[" + t.Elem.String() + "]"
	case KindIterator:
		return "Iterator[" + t.Elem.String() + "]"
	case KindMapping:
		return "dict[" + t.Key.String() + ", " + t.Value.String() + "]"
	case KindNamed:
		if t.Module != "" {
			return t.Module + "." + t.Name
		}
		return t.Name
	case KindUnion:
		parts := make([]string, len(t.Variants))
		for i, v := range t.Variants {
			parts[i] = v.String()
		}
		return strings.Join(parts, " | ")
	case KindUnknown:
		return "Incomplete"
	default:
		return "Incomplete"
	}
}
