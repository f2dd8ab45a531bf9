package pyi

import (
	"strings"

	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/stub"
)

// Parse reads a previously persisted stub file back into a declaration tree.
// Only the subset the renderer emits is understood; anything else is an
// ErrSnapshotParse for the whole module.
//
// Declarations without a provenance marker are treated as hand-refined: the
// only marks the generator writes are "merged" and "stub-only", so unmarked
// content is either generated text (in which regeneration reproduces it and
// the provenance does not matter) or a human's hand, which must be protected.
func Parse(text, moduleName, packageName string) (*stub.Module, error) {
	p := &fileParser{
		lines: strings.Split(text, "\n"),
		mod:   &stub.Module{Name: moduleName, Package: packageName},
	}
	if err := p.parseTop(); err != nil {
		return nil, err
	}
	return p.mod, nil
}

type fileParser struct {
	lines []string
	i     int
	mod   *stub.Module
}

func (p *fileParser) errf(format string, args ...interface{}) error {
	err := errors.Newf(format, args...)
	return errors.WithDetailf(errors.Wrapf(errors.ErrSnapshotParse, "line %d: %v", p.i+1, err),
		"module %s", p.mod.Name)
}

func indentOf(line string) int {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	return n
}

func (p *fileParser) parseTop() error {
	pending := stub.Provenance("")

	for p.i < len(p.lines) {
		line := strings.TrimRight(p.lines[p.i], " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			p.i++

		case strings.HasPrefix(trimmed, provenanceMarker):
			pending = stub.Provenance(strings.TrimSpace(strings.TrimPrefix(trimmed, provenanceMarker)))
			p.i++

		case strings.HasPrefix(trimmed, "#"):
			p.i++

		case strings.HasPrefix(trimmed, `"""`):
			// Module docstring; not part of the declaration tree.
			if _, err := p.parseDocstring(0); err != nil {
				return err
			}

		case strings.HasPrefix(trimmed, "import "):
			p.mod.AddImport(strings.TrimSpace(strings.TrimPrefix(trimmed, "import ")))
			p.i++

		case strings.HasPrefix(trimmed, "from "):
			if err := p.parseFromImport(trimmed); err != nil {
				return err
			}
			p.i++

		case strings.HasPrefix(trimmed, "class "):
			decl, err := p.parseClass(0)
			if err != nil {
				return err
			}
			p.finish(decl, pending)
			pending = ""
			p.mod.Decls = append(p.mod.Decls, decl)

		case strings.HasPrefix(trimmed, "def "):
			decl, err := p.parseDef(0)
			if err != nil {
				return err
			}
			p.finish(decl, pending)
			pending = ""
			p.mod.Decls = append(p.mod.Decls, decl)

		case indentOf(line) == 0 && strings.Contains(trimmed, ":"):
			decl, err := p.parseField(trimmed, stub.Constant)
			if err != nil {
				return err
			}
			p.finish(decl, pending)
			pending = ""
			p.mod.Decls = append(p.mod.Decls, decl)
			p.i++

		default:
			return p.errf("unrecognized statement %q", trimmed)
		}
	}
	return nil
}

// finish applies the pending provenance marker, defaulting to hand-refined,
// and propagates the default into unmarked members.
func (p *fileParser) finish(d *stub.Decl, pending stub.Provenance) {
	if pending != "" {
		d.Provenance = pending
	} else if d.Provenance == "" {
		d.Provenance = stub.HandRefined
	}
	for _, m := range d.Members {
		if m.Provenance == "" {
			m.Provenance = stub.HandRefined
		}
	}
}

func (p *fileParser) parseFromImport(trimmed string) error {
	rest := strings.TrimPrefix(trimmed, "from ")
	idx := strings.Index(rest, " import ")
	if idx < 0 {
		return p.errf("malformed import %q", trimmed)
	}
	module := strings.TrimSpace(rest[:idx])
	var names []string
	for _, n := range strings.Split(rest[idx+len(" import "):], ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			return p.errf("malformed import %q", trimmed)
		}
		names = append(names, n)
	}
	p.mod.AddImport(module, names...)
	return nil
}

// parseField parses "name: type" at any level. Inside classes, ALL_CAPS
// names are constants and the rest are properties; the two render the same
// way so the case convention is the only signal in the snapshot.
func (p *fileParser) parseField(trimmed string, topKind stub.Kind) (*stub.Decl, error) {
	idx := strings.Index(trimmed, ":")
	name := strings.TrimSpace(trimmed[:idx])
	if !isDottedName(name) || strings.Contains(name, ".") {
		return nil, p.errf("malformed field name %q", name)
	}
	typeText := strings.TrimSpace(trimmed[idx+1:])
	// A trailing "= ..." value placeholder is tolerated and dropped.
	if eq := strings.Index(typeText, "="); eq >= 0 {
		typeText = strings.TrimSpace(typeText[:eq])
	}
	t, err := parseTypeExpr(typeText)
	if err != nil {
		return nil, p.errf("field %s: %v", name, err)
	}

	kind := topKind
	if topKind != stub.Constant && name == strings.ToUpper(name) && name != strings.ToLower(name) {
		kind = stub.Constant
	}
	return &stub.Decl{Name: name, Kind: kind, Result: t}, nil
}

func (p *fileParser) parseDef(indent int) (*stub.Decl, error) {
	line := strings.TrimSpace(p.lines[p.i])
	rest := strings.TrimPrefix(line, "def ")

	open := strings.IndexByte(rest, '(')
	if open <= 0 {
		return nil, p.errf("malformed def %q", line)
	}
	name := rest[:open]
	if !isDottedName(name) || strings.Contains(name, ".") {
		return nil, p.errf("malformed function name %q", name)
	}

	closeIdx, err := matchParen(rest, open)
	if err != nil {
		return nil, p.errf("def %s: %v", name, err)
	}
	paramText := rest[open+1 : closeIdx]

	tail := strings.TrimSpace(rest[closeIdx+1:])
	if !strings.HasPrefix(tail, "->") {
		return nil, p.errf("def %s: missing return annotation", name)
	}
	tail = strings.TrimSpace(strings.TrimPrefix(tail, "->"))
	colon := strings.LastIndexByte(tail, ':')
	if colon < 0 {
		return nil, p.errf("def %s: missing colon", name)
	}
	retText := strings.TrimSpace(tail[:colon])
	trailer := strings.TrimSpace(tail[colon+1:])

	decl := &stub.Decl{Name: name, Kind: stub.Function}
	if retText != "None" {
		ret, err := parseTypeExpr(retText)
		if err != nil {
			return nil, p.errf("def %s: %v", name, err)
		}
		decl.Result = ret
	} else {
		decl.Result = stub.None()
	}

	if decl.Params, err = parseParams(paramText); err != nil {
		return nil, p.errf("def %s: %v", name, err)
	}

	p.i++
	if trailer == "..." {
		return decl, nil
	}
	if trailer != "" {
		return nil, p.errf("def %s: unexpected body %q", name, trailer)
	}

	// Block body: optional docstring, then the ... placeholder.
	bodyIndent := indent + 4
	if p.i < len(p.lines) && strings.HasPrefix(strings.TrimSpace(p.lines[p.i]), `"""`) {
		doc, err := p.parseDocstring(bodyIndent)
		if err != nil {
			return nil, err
		}
		decl.Doc = doc
	}
	if p.i >= len(p.lines) || strings.TrimSpace(p.lines[p.i]) != "..." {
		return nil, p.errf("def %s: missing body placeholder", name)
	}
	p.i++
	return decl, nil
}

func parseParams(paramText string) ([]stub.Param, error) {
	if strings.TrimSpace(paramText) == "" {
		return nil, nil
	}
	parts, err := splitTop(paramText, ',')
	if err != nil {
		return nil, err
	}
	var params []stub.Param
	keywordOnly := false
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "*" {
			keywordOnly = true
			continue
		}
		param := stub.Param{KeywordOnly: keywordOnly}

		typeAndDefault := ""
		if colon := strings.IndexByte(part, ':'); colon >= 0 {
			param.Name = strings.TrimSpace(part[:colon])
			typeAndDefault = strings.TrimSpace(part[colon+1:])
		} else if eq := strings.IndexByte(part, '='); eq >= 0 {
			param.Name = strings.TrimSpace(part[:eq])
			param.Default = strings.TrimSpace(part[eq+1:])
		} else {
			param.Name = part
		}

		if typeAndDefault != "" {
			typeText := typeAndDefault
			if eq := topLevelIndex(typeAndDefault, '='); eq >= 0 {
				typeText = strings.TrimSpace(typeAndDefault[:eq])
				param.Default = strings.TrimSpace(typeAndDefault[eq+1:])
			}
			t, err := parseTypeExpr(typeText)
			if err != nil {
				return nil, errors.Wrapf(err, "parameter %s", param.Name)
			}
			param.Type = t
		}

		if param.Name == "" {
			return nil, errors.Newf("malformed parameter %q", part)
		}
		params = append(params, param)
	}
	return params, nil
}

func (p *fileParser) parseClass(indent int) (*stub.Decl, error) {
	line := strings.TrimSpace(p.lines[p.i])
	rest := strings.TrimPrefix(line, "class ")

	decl := &stub.Decl{Kind: stub.Class}

	if open := strings.IndexByte(rest, '('); open >= 0 {
		decl.Name = rest[:open]
		closeIdx, err := matchParen(rest, open)
		if err != nil {
			return nil, p.errf("class %s: %v", decl.Name, err)
		}
		base, err := parseTypeExpr(rest[open+1 : closeIdx])
		if err != nil {
			return nil, p.errf("class %s: bad base: %v", decl.Name, err)
		}
		if base.Kind != stub.KindNamed {
			return nil, p.errf("class %s: base must be a class reference", decl.Name)
		}
		decl.Extends = &base
		rest = rest[closeIdx+1:]
	} else if colon := strings.IndexByte(rest, ':'); colon >= 0 {
		decl.Name = rest[:colon]
		rest = rest[colon:]
	} else {
		return nil, p.errf("malformed class header %q", line)
	}

	if !isDottedName(decl.Name) || strings.Contains(decl.Name, ".") {
		return nil, p.errf("malformed class name %q", decl.Name)
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ":") {
		return nil, p.errf("class %s: missing colon", decl.Name)
	}
	trailer := strings.TrimSpace(strings.TrimPrefix(rest, ":"))

	p.i++
	if trailer == "..." {
		return decl, nil
	}
	if trailer != "" {
		return nil, p.errf("class %s: unexpected body %q", decl.Name, trailer)
	}

	if err := p.parseClassBody(decl, indent+4); err != nil {
		return nil, err
	}
	detectEnumGroup(decl)
	return decl, nil
}

func (p *fileParser) parseClassBody(decl *stub.Decl, bodyIndent int) error {
	pending := stub.Provenance("")
	first := true

	for p.i < len(p.lines) {
		raw := strings.TrimRight(p.lines[p.i], " \t")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			p.i++
			continue
		}
		if indentOf(raw) < bodyIndent {
			break
		}

		switch {
		case strings.HasPrefix(trimmed, `"""`) && first:
			doc, err := p.parseDocstring(bodyIndent)
			if err != nil {
				return err
			}
			decl.Doc = doc

		case strings.HasPrefix(trimmed, provenanceMarker):
			pending = stub.Provenance(strings.TrimSpace(strings.TrimPrefix(trimmed, provenanceMarker)))
			p.i++

		case strings.HasPrefix(trimmed, "#"):
			p.i++

		case strings.HasPrefix(trimmed, "def "):
			m, err := p.parseDef(bodyIndent)
			if err != nil {
				return err
			}
			if pending != "" {
				m.Provenance = pending
				pending = ""
			}
			decl.Members = append(decl.Members, m)

		case strings.HasPrefix(trimmed, "class "):
			m, err := p.parseClass(bodyIndent)
			if err != nil {
				return err
			}
			if pending != "" {
				m.Provenance = pending
				pending = ""
			}
			decl.Members = append(decl.Members, m)

		case strings.Contains(trimmed, ":"):
			m, err := p.parseField(trimmed, stub.Property)
			if err != nil {
				return err
			}
			if pending != "" {
				m.Provenance = pending
				pending = ""
			}
			decl.Members = append(decl.Members, m)
			p.i++

		default:
			return p.errf("class %s: unrecognized member %q", decl.Name, trimmed)
		}
		first = false
	}
	return nil
}

// parseDocstring consumes a docstring starting at the current line and
// returns its content with the block indent stripped.
func (p *fileParser) parseDocstring(indent int) (string, error) {
	raw := strings.TrimRight(p.lines[p.i], " \t")
	trimmed := strings.TrimSpace(raw)
	body := strings.TrimPrefix(trimmed, `"""`)

	if strings.HasSuffix(body, `"""`) && len(body) >= 3 {
		p.i++
		return strings.TrimSuffix(body, `"""`), nil
	}

	lines := []string{body}
	p.i++
	for p.i < len(p.lines) {
		raw := strings.TrimRight(p.lines[p.i], " \t")
		content := raw
		if indentOf(raw) >= indent {
			content = raw[indent:]
		} else {
			content = strings.TrimSpace(raw)
		}
		if strings.HasSuffix(content, `"""`) {
			lines = append(lines, strings.TrimSuffix(content, `"""`))
			p.i++
			doc := strings.Join(lines, "\n")
			doc = strings.TrimSuffix(doc, "\n")
			return doc, nil
		}
		lines = append(lines, content)
		p.i++
	}
	return "", p.errf("unterminated docstring")
}

// detectEnumGroup rewrites a parsed class into an enum group when it has
// exactly the shape the renderer emits: members annotated with the class's
// own name plus all three capability methods and nothing else. A class that
// merely has self-typed fields is not an enum and keeps its shape.
func detectEnumGroup(decl *stub.Decl) {
	capabilities := map[string]bool{"__eq__": true, "__int__": true, "__str__": true}
	seen := make(map[string]bool, len(capabilities))

	var enumMembers []stub.EnumMember
	for _, m := range decl.Members {
		switch {
		case m.Kind != stub.Function &&
			m.Result.Kind == stub.KindNamed && m.Result.Module == "" && m.Result.Name == decl.Name:
			enumMembers = append(enumMembers, stub.EnumMember{Name: m.Name, Value: len(enumMembers)})
		case m.Kind == stub.Function && capabilities[m.Name]:
			seen[m.Name] = true
		default:
			return
		}
	}
	if len(enumMembers) == 0 || len(seen) != len(capabilities) {
		return
	}

	decl.Kind = stub.EnumGroup
	decl.Members = nil
	decl.EnumMembers = enumMembers
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errors.Newf("unbalanced parentheses in %q", s)
}

// topLevelIndex returns the first index of c outside any brackets, or -1.
func topLevelIndex(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case c:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
