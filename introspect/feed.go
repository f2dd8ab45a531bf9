package introspect

import (
	"encoding/json"
	"io"
	"os"

	"github.com/basalt-data/stubgen/errors"
)

// Feed is the introspection dump for one compiled extension, grouped by
// submodule. It is produced by the external introspection tool; symbol order
// is the tool's emission order and is preserved end to end so regenerated
// stubs diff cleanly.
type Feed struct {
	// Package is the importable package name, e.g. "bauplan".
	Package string       `json:"package"`
	Modules []FeedModule `json:"modules"`
}

// FeedModule is the raw symbol list for one submodule. The root module uses
// the package name as its module name.
type FeedModule struct {
	Name    string   `json:"name"`
	Symbols []Symbol `json:"symbols"`
}

// Symbol is one exported symbol as the introspection tool describes it.
// Type expressions are native (Rust-flavored) text; Unresolvable marks a
// type the tool could not recover at all.
type Symbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // class | function | property | constant | enum
	Doc  string `json:"doc,omitempty"`

	// Type is the native type of a property or constant.
	Type string `json:"type,omitempty"`
	// Returns is the native result type of a function.
	Returns string      `json:"returns,omitempty"`
	Params  []FeedParam `json:"params,omitempty"`

	// Extends names the single base class of a class symbol.
	Extends string `json:"extends,omitempty"`
	// Members are nested symbols of a class or enum.
	Members []Symbol `json:"members,omitempty"`
	// Value is the integer value of an enum member.
	Value *int `json:"value,omitempty"`

	Unresolvable bool `json:"unresolvable,omitempty"`
}

// FeedParam is one parameter of a callable symbol.
type FeedParam struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Default     string `json:"default,omitempty"`
	KeywordOnly bool   `json:"keyword_only,omitempty"`
}

// LoadFeed decodes a feed from r.
func LoadFeed(r io.Reader) (*Feed, error) {
	var feed Feed
	dec := json.NewDecoder(r)
	if err := dec.Decode(&feed); err != nil {
		return nil, errors.Wrap(errors.ErrBadFeed, err.Error())
	}
	if feed.Package == "" {
		return nil, errors.Wrap(errors.ErrBadFeed, "feed has no package name")
	}
	return &feed, nil
}

// ReadFeedFile loads a feed from a JSON file on disk.
func ReadFeedFile(path string) (*Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open feed %s", path)
	}
	defer f.Close()
	return LoadFeed(f)
}
