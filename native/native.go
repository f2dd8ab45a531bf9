// Package native parses the native type expressions emitted by the
// introspection tool into a small tree the type mapper can walk.
//
// The expressions are Rust-flavored type syntax: "Option<Vec<String>>",
// "HashMap<String, i64>", "schema::Table", "impl Iterator<Item = Row>".
// Parsing is tolerant: anything the grammar does not cover becomes an Opaque
// node carrying the raw text, never an error. A single bad signature must not
// abort a pipeline run.
package native

import "strings"

// Type is one node of a parsed native type expression.
type Type struct {
	// Path segments of the type name, e.g. ["schema", "Table"]. The head
	// (last segment) selects the mapping table entry. The unit type uses the
	// single segment "()".
	Path []string
	// Args are generic arguments, e.g. the T in Option<T>.
	Args []Type
	// Opaque marks text that did not parse; Raw carries it verbatim.
	Opaque bool
	Raw    string
}

// Head returns the final path segment, the name mapping is keyed on.
func (t Type) Head() string {
	if len(t.Path) == 0 {
		return ""
	}
	return t.Path[len(t.Path)-1]
}

// Qualifier returns the path prefix before the head, joined with "::".
// "schema::Table" has qualifier "schema"; bare names have "".
func (t Type) Qualifier() string {
	if len(t.Path) < 2 {
		return ""
	}
	return strings.Join(t.Path[:len(t.Path)-1], "::")
}

// String reconstructs the expression for diagnostics.
func (t Type) String() string {
	if t.Opaque {
		return t.Raw
	}
	s := strings.Join(t.Path, "::")
	if len(t.Args) > 0 {
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		s += "<" + strings.Join(parts, ", ") + ">"
	}
	return s
}

// Parse parses a native type expression. The zero-value input and anything
// unparsable yield an Opaque node.
func Parse(s string) Type {
	p := &parser{input: s}
	t, ok := p.parseType()
	p.skipSpace()
	if !ok || p.pos != len(p.input) {
		return Type{Opaque: true, Raw: s}
	}
	return t
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) eat(prefix string) bool {
	if strings.HasPrefix(p.input[p.pos:], prefix) {
		p.pos += len(prefix)
		return true
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.input) && isIdentByte(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// parseType handles references, dyn/impl prefixes, paths, generics, slices,
// and the unit type.
func (p *parser) parseType() (Type, bool) {
	p.skipSpace()

	// Reference and lifetime sugar is transparent for stub purposes.
	for p.eat("&") {
		p.skipSpace()
		if p.peek() == '\'' {
			p.pos++
			p.ident()
			p.skipSpace()
		}
		p.eat("mut ")
		p.skipSpace()
	}
	p.eat("dyn ")
	p.eat("impl ")
	p.skipSpace()

	// Unit and tuples.
	if p.eat("(") {
		p.skipSpace()
		if p.eat(")") {
			return Type{Path: []string{"()"}}, true
		}
		var args []Type
		for {
			arg, ok := p.parseType()
			if !ok {
				return Type{}, false
			}
			args = append(args, arg)
			p.skipSpace()
			if p.eat(",") {
				continue
			}
			if p.eat(")") {
				break
			}
			return Type{}, false
		}
		return Type{Path: []string{"()"}, Args: args}, true
	}

	// Slices parse as the corresponding owned sequence.
	if p.eat("[") {
		elem, ok := p.parseType()
		if !ok {
			return Type{}, false
		}
		p.skipSpace()
		if !p.eat("]") {
			return Type{}, false
		}
		return Type{Path: []string{"Vec"}, Args: []Type{elem}}, true
	}

	// Path.
	var path []string
	for {
		seg := p.ident()
		if seg == "" {
			return Type{}, false
		}
		path = append(path, seg)
		if !p.eat("::") {
			break
		}
	}

	t := Type{Path: path}

	// Generic arguments, including associated-type form "Item = Row".
	p.skipSpace()
	if p.eat("<") {
		for {
			p.skipSpace()
			save := p.pos
			if name := p.ident(); name != "" {
				p.skipSpace()
				if !p.eat("=") {
					p.pos = save
				}
			} else {
				p.pos = save
			}
			arg, ok := p.parseType()
			if !ok {
				return Type{}, false
			}
			t.Args = append(t.Args, arg)
			p.skipSpace()
			if p.eat(",") {
				continue
			}
			if p.eat(">") {
				break
			}
			return Type{}, false
		}
	}

	return t, true
}
