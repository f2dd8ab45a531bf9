package pyi

import (
	"strings"

	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/stub"
)

// parseTypeExpr parses a Python typing expression from the subset the
// renderer emits: primitives, None, Incomplete, list[...], dict[...],
// Iterator[...], dotted names, and | unions.
func parseTypeExpr(s string) (stub.TypeExpr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return stub.TypeExpr{}, errors.New("empty type expression")
	}

	parts, err := splitTop(s, '|')
	if err != nil {
		return stub.TypeExpr{}, err
	}
	if len(parts) == 1 {
		return parseAtom(parts[0])
	}

	// A union ending in None is the Optional form.
	hasNone := false
	var variants []stub.TypeExpr
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "None" {
			hasNone = true
			continue
		}
		atom, err := parseAtom(part)
		if err != nil {
			return stub.TypeExpr{}, err
		}
		variants = append(variants, atom)
	}
	switch {
	case len(variants) == 0:
		return stub.None(), nil
	case hasNone:
		return stub.Optional(stub.Union(variants...)), nil
	default:
		return stub.Union(variants...), nil
	}
}

func parseAtom(s string) (stub.TypeExpr, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "None":
		return stub.None(), nil
	case "Incomplete":
		return stub.Unknown(""), nil
	case "str":
		return stub.Str(), nil
	case "int":
		return stub.Int(), nil
	case "float":
		return stub.Float(), nil
	case "bool":
		return stub.Bool(), nil
	case "bytes":
		return stub.Bytes(), nil
	}

	if open := strings.IndexByte(s, '['); open > 0 && strings.HasSuffix(s, "]") {
		head := s[:open]
		inner := s[open+1 : len(s)-1]
		switch head {
		case "list":
			elem, err := parseTypeExpr(inner)
			if err != nil {
				return stub.TypeExpr{}, err
			}
			return stub.Sequence(elem), nil
		case "Iterator":
			elem, err := parseTypeExpr(inner)
			if err != nil {
				return stub.TypeExpr{}, err
			}
			return stub.Iterator(elem), nil
		case "dict":
			kv, err := splitTop(inner, ',')
			if err != nil || len(kv) != 2 {
				return stub.TypeExpr{}, errors.Newf("malformed dict type %q", s)
			}
			key, err := parseTypeExpr(kv[0])
			if err != nil {
				return stub.TypeExpr{}, err
			}
			value, err := parseTypeExpr(kv[1])
			if err != nil {
				return stub.TypeExpr{}, err
			}
			return stub.Mapping(key, value), nil
		default:
			return stub.TypeExpr{}, errors.Newf("unsupported generic %q", s)
		}
	}

	if !isDottedName(s) {
		return stub.TypeExpr{}, errors.Newf("malformed type expression %q", s)
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return stub.Named(s[:i], s[i+1:]), nil
	}
	return stub.Named("", s), nil
}

// splitTop splits s on sep at bracket nesting depth zero.
func splitTop(s string, sep byte) ([]string, error) {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth < 0 {
				return nil, errors.Newf("unbalanced brackets in %q", s)
			}
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errors.Newf("unbalanced brackets in %q", s)
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts, nil
}

func isDottedName(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			ok := c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 0 && c >= '0' && c <= '9'
			if !ok {
				return false
			}
		}
	}
	return true
}
