// Package index builds the Interface Index: every class, protocol,
// record, typedef, and enumeration discovered in the provided
// translation units, keyed by name,
// with superclass references resolved to arena positions in a second
// pass. The index is frozen after Build returns and is safe for
// concurrent readers.
package index

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"go.uber.org/zap"

	"objkit/internal/decl"
	"objkit/internal/diag"
)

// Provider hands over the declarations of one translation unit.
type Provider interface {
	Declarations() (decl.Unit, error)
}

// Options controls discovery.
type Options struct {
	// MinOS drops declarations introduced after this platform version.
	// Empty means no availability floor.
	MinOS string
	// Classes restricts discovery to the listed classes and their
	// superclass chains. Empty means everything.
	Classes []string
}

// DiscoveryError is fatal: the foreign declarations are malformed or
// contradictory and no binding plan can be trusted.
type DiscoveryError struct {
	Subject string
	Reason  string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery: %s: %s", e.Subject, e.Reason)
}

// Index is the frozen declaration arena. Classes holds interfaces and
// protocols in discovery order; superclass links are arena positions,
// never pointers, so excluding a class later cannot dangle.
type Index struct {
	Classes []decl.ClassDecl

	classByName map[string]int
	protoByName map[string]int
	structs     map[string]decl.StructDecl
	typedefs    map[string]string
	enums       []decl.EnumDecl
	enumByName  map[string]int
}

// Lookup returns the arena position of the named class.
func (x *Index) Lookup(name string) (int, bool) {
	i, ok := x.classByName[name]
	return i, ok
}

// HasClass reports whether the named class (not protocol) is indexed.
func (x *Index) HasClass(name string) bool {
	_, ok := x.classByName[name]
	return ok
}

// Protocol returns the named protocol declaration.
func (x *Index) Protocol(name string) (*decl.ClassDecl, bool) {
	i, ok := x.protoByName[name]
	if !ok {
		return nil, false
	}
	return &x.Classes[i], true
}

// Struct returns the named record.
func (x *Index) Struct(name string) (decl.StructDecl, bool) {
	s, ok := x.structs[name]
	return s, ok
}

// Typedef returns the underlying type descriptor of the named alias.
func (x *Index) Typedef(name string) (string, bool) {
	d, ok := x.typedefs[name]
	return d, ok
}

// Enum returns the named enumeration.
func (x *Index) Enum(name string) (decl.EnumDecl, bool) {
	i, ok := x.enumByName[name]
	if !ok {
		return decl.EnumDecl{}, false
	}
	return x.enums[i], true
}

// Enums returns every indexed enumeration in discovery order.
func (x *Index) Enums() []decl.EnumDecl {
	return x.enums
}

// RootOf follows the superclass chain from position i and returns the
// position of the chain's root. Chains are acyclic once Build succeeds.
func (x *Index) RootOf(i int) int {
	for x.Classes[i].Super >= 0 {
		i = x.Classes[i].Super
	}
	return i
}

// Build walks every provider, deduplicates declarations seen through
// multiple include paths, merges categories into their base classes, and
// resolves superclass names to arena positions. Forward references are
// fine; a name collision with a differing signature or a superclass
// cycle is a DiscoveryError.
func Build(opts Options, sink *diag.Sink, log *zap.Logger, providers ...Provider) (*Index, error) {
	x := &Index{
		classByName: make(map[string]int),
		protoByName: make(map[string]int),
		structs:     make(map[string]decl.StructDecl),
		typedefs:    make(map[string]string),
		enumByName:  make(map[string]int),
	}

	floor, err := parseFloor(opts.MinOS)
	if err != nil {
		return nil, err
	}

	var categories []decl.ClassDecl
	for _, p := range providers {
		unit, err := p.Declarations()
		if err != nil {
			return nil, fmt.Errorf("reading declarations: %w", err)
		}
		for _, c := range unit.Classes {
			if dropUnavailable(c.Name, c.Avail, floor, sink) {
				continue
			}
			c.Methods = filterMethods(c.Name, c.Methods, floor, sink)
			if c.Category != "" {
				categories = append(categories, c)
				continue
			}
			if err := x.admit(c, sink, log); err != nil {
				return nil, err
			}
		}
		for _, s := range unit.Structs {
			if _, dup := x.structs[s.Name]; !dup {
				x.structs[s.Name] = s
			}
		}
		for _, td := range unit.Typedefs {
			if _, dup := x.typedefs[td.Name]; !dup {
				x.typedefs[td.Name] = td.Descriptor
			}
		}
		for _, e := range unit.Enums {
			if _, dup := x.enumByName[e.Name]; !dup {
				x.enumByName[e.Name] = len(x.enums)
				x.enums = append(x.enums, e)
			}
		}
	}

	for _, cat := range categories {
		i, ok := x.classByName[cat.Category]
		if !ok {
			sink.Skip(cat.Category, fmt.Sprintf("category %s extends a class outside the index", cat.Name))
			continue
		}
		base := &x.Classes[i]
		base.Methods = append(base.Methods, filterMethods(cat.Category, cat.Methods, floor, sink)...)
		base.Props = append(base.Props, cat.Props...)
		base.Protocols = append(base.Protocols, cat.Protocols...)
	}

	if len(opts.Classes) > 0 {
		x.restrict(opts.Classes, sink)
	}

	if err := x.resolveSupers(sink, log); err != nil {
		return nil, err
	}
	return x, nil
}

// admit inserts one class or protocol, enforcing the dedup rule: an
// identical re-declaration is collapsed, a conflicting one is fatal.
func (x *Index) admit(c decl.ClassDecl, sink *diag.Sink, log *zap.Logger) error {
	byName := x.classByName
	if c.Protocol {
		byName = x.protoByName
	}
	if i, seen := byName[c.Name]; seen {
		if x.Classes[i].Signature() == c.Signature() {
			log.Debug("duplicate declaration collapsed", zap.String("class", c.Name))
			return nil
		}
		return &DiscoveryError{
			Subject: c.Name,
			Reason:  "redeclared with a different signature",
		}
	}
	byName[c.Name] = len(x.Classes)
	x.Classes = append(x.Classes, c)
	return nil
}

// restrict trims the arena to the requested classes plus their superclass
// chains; protocols survive as method sources.
func (x *Index) restrict(names []string, sink *diag.Sink) {
	keep := make(map[string]bool)
	for _, n := range names {
		if _, ok := x.classByName[n]; !ok {
			sink.Warn(n, "requested class not found in any translation unit")
			continue
		}
		for cur := n; cur != ""; {
			if keep[cur] {
				break
			}
			keep[cur] = true
			i := x.classByName[cur]
			cur = x.Classes[i].SuperName
			if _, ok := x.classByName[cur]; !ok {
				break
			}
		}
	}

	kept := x.Classes[:0:0]
	classByName := make(map[string]int)
	protoByName := make(map[string]int)
	for _, c := range x.Classes {
		if c.Protocol {
			protoByName[c.Name] = len(kept)
			kept = append(kept, c)
			continue
		}
		if keep[c.Name] {
			classByName[c.Name] = len(kept)
			kept = append(kept, c)
		}
	}
	x.Classes = kept
	x.classByName = classByName
	x.protoByName = protoByName
}

// resolveSupers is the second discovery pass: names become arena
// positions so forward-declared superclasses work, and cycles are
// rejected (single inheritance admits none).
func (x *Index) resolveSupers(sink *diag.Sink, log *zap.Logger) error {
	for i := range x.Classes {
		c := &x.Classes[i]
		c.Super = -1
		if c.Protocol || c.SuperName == "" {
			continue
		}
		j, ok := x.classByName[c.SuperName]
		if !ok {
			sink.Warn(c.Name, fmt.Sprintf("superclass %s is outside the index", c.SuperName))
			continue
		}
		c.Super = j
	}

	const (
		white = iota
		grey
		black
	)
	state := make([]int, len(x.Classes))
	for i := range x.Classes {
		cur := i
		for cur >= 0 && state[cur] == white {
			state[cur] = grey
			cur = x.Classes[cur].Super
		}
		if cur >= 0 && state[cur] == grey {
			return &DiscoveryError{
				Subject: x.Classes[cur].Name,
				Reason:  "superclass chain forms a cycle",
			}
		}
		for cur = i; cur >= 0 && state[cur] == grey; cur = x.Classes[cur].Super {
			state[cur] = black
		}
	}
	log.Debug("interface index frozen", zap.Int("classes", len(x.Classes)), zap.Int("structs", len(x.structs)))
	return nil
}

func filterMethods(class string, methods []decl.MethodDecl, floor *version.Version, sink *diag.Sink) []decl.MethodDecl {
	out := methods[:0:0]
	for _, m := range methods {
		if dropUnavailable(class+"."+m.Selector, m.Avail, floor, sink) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// dropUnavailable applies the availability gate: unavailable declarations
// vanish, declarations introduced above the configured floor are skipped
// with a record, deprecation is only a note.
func dropUnavailable(id string, a decl.Availability, floor *version.Version, sink *diag.Sink) bool {
	if a.Unavailable {
		sink.Skip(id, "declared unavailable: "+a.Message)
		return true
	}
	if floor != nil && a.Introduced != "" {
		introduced, err := version.NewVersion(a.Introduced)
		if err != nil {
			sink.Warn(id, fmt.Sprintf("unparseable introduced version %q, keeping declaration", a.Introduced))
			return false
		}
		if introduced.GreaterThan(floor) {
			sink.Skip(id, fmt.Sprintf("introduced in %s, above the configured minimum %s", a.Introduced, floor))
			return true
		}
	}
	return false
}

func parseFloor(minOS string) (*version.Version, error) {
	if minOS == "" {
		return nil, nil
	}
	floor, err := version.NewVersion(minOS)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum OS version %q: %w", minOS, err)
	}
	return floor, nil
}
