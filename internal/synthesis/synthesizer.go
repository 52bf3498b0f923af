package synthesis

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"objkit/internal/decl"
	"objkit/internal/diag"
	"objkit/internal/index"
	"objkit/internal/ownership"
	"objkit/internal/typemap"
)

// retainCountRoots are the runtime roots whose descendants participate
// in the retain/release model and therefore get a finalizer binding.
var retainCountRoots = map[string]bool{
	"NSObject": true,
	"NSProxy":  true,
}

// Synthesizer runs the per-class pipeline over a frozen index. Classes
// are independent once the index is frozen, so they are processed
// concurrently; all diagnostics land in the sink and are merged
// deterministically.
type Synthesizer struct {
	idx    *index.Index
	mapper *typemap.Mapper
	sink   *diag.Sink
	log    *zap.Logger

	// Workers bounds the per-class fan-out. Zero means GOMAXPROCS.
	Workers int
}

func New(idx *index.Index, sink *diag.Sink, log *zap.Logger) *Synthesizer {
	return &Synthesizer{
		idx:    idx,
		mapper: typemap.New(idx),
		sink:   sink,
		log:    log,
	}
}

// Synthesize produces the binding plan. Protocols contribute methods to
// conforming classes but are not plan entries themselves. The only error
// returned is context cancellation; everything else degrades into the
// diagnostics sink.
func (s *Synthesizer) Synthesize(ctx context.Context) (*Plan, error) {
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*ClassBinding, len(s.idx.Classes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range s.idx.Classes {
		if s.idx.Classes[i].Protocol {
			continue
		}
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := s.synthesizeClass(i)
			results[i] = &b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, b := range results {
		if b != nil {
			plan.Classes = append(plan.Classes, *b)
		}
	}
	plan.Enums = s.synthesizeEnums()
	s.log.Info("binding plan synthesized",
		zap.Int("classes", len(plan.Classes)),
		zap.Int("enums", len(plan.Enums)),
		zap.Int("skips", len(s.sink.Skips())))
	return plan, nil
}

// synthesizeEnums binds every indexed enumeration whose underlying type
// maps to an integer primitive.
func (s *Synthesizer) synthesizeEnums() []EnumBinding {
	var out []EnumBinding
	for _, e := range s.idx.Enums() {
		t := s.mapper.Map(e.Name)
		if t.Kind != decl.KindPrimitive {
			s.sink.Skip(e.Name, fmt.Sprintf("enum underlying type %q did not map", e.Underlying))
			continue
		}
		out = append(out, EnumBinding{Name: e.Name, Prim: t.Prim, Constants: e.Constants})
	}
	return out
}

// mappedMethod is the intermediate state between the type-mapping and
// ownership passes.
type mappedMethod struct {
	src    decl.MethodDecl
	params []decl.TypeRef
	ret    decl.TypeRef
}

func (s *Synthesizer) synthesizeClass(i int) ClassBinding {
	c := &s.idx.Classes[i]
	b := ClassBinding{Name: c.Name, State: Discovered}
	if c.Super >= 0 {
		b.Super = s.idx.Classes[c.Super].Name
	}
	b.RefCounted = retainCountRoots[s.idx.Classes[s.idx.RootOf(i)].Name]

	methods := s.methodSources(c)

	// Pass 1: map every signature; unmappable ones leave the pipeline
	// here with a skip record.
	var mapped []mappedMethod
	for _, m := range methods {
		mm, ok := s.mapMethod(c.Name, m)
		if ok {
			mapped = append(mapped, mm)
		}
	}
	b.State.advance(TypeMapped)

	// Pass 2: resolve ownership for every crossing value. Mangling can
	// collide when a selector already contains underscores; the later
	// declaration is dropped rather than emitting two identical wrappers.
	bindings := make([]MethodBinding, 0, len(mapped))
	taken := make(map[string]string)
	for _, mm := range mapped {
		mb := s.resolveMethod(c.Name, mm)
		key := mb.Name
		if mb.ClassMethod {
			key = "+" + key
		}
		if prev, dup := taken[key]; dup {
			s.sink.Skip(c.Name+"."+mb.Selector,
				fmt.Sprintf("mangled name %s collides with selector %q", mb.Name, prev))
			continue
		}
		taken[key] = mb.Selector
		bindings = append(bindings, mb)
	}
	b.State.advance(OwnershipResolved)

	// Pass 3: assemble the wrapper surface.
	allocatable := s.hasAllocInChain(i)
	var initless []MethodBinding
	for _, mb := range bindings {
		if !mb.ClassMethod && decl.HasWordPrefix(mb.Selector, "init") {
			if allocatable {
				ctor := mb
				ctor.Constructor = true
				ctor.Name = constructorName(c.Name, mb.Name)
				b.Constructors = append(b.Constructors, ctor)
				continue
			}
			initless = append(initless, mb)
			continue
		}
		b.Methods = append(b.Methods, mb)
	}
	b.Methods = append(b.Methods, initless...)
	if len(b.Constructors) == 0 {
		s.sink.Warn(c.Name, "no alloc/init pair discoverable; constructor binding omitted")
	}

	b.State.advance(Synthesized)
	s.log.Debug("class synthesized",
		zap.String("class", c.Name),
		zap.Int("methods", len(b.Methods)),
		zap.Int("constructors", len(b.Constructors)),
		zap.Bool("refCounted", b.RefCounted))
	return b
}

// methodSources flattens the class's own methods, its property
// accessors, and the methods of its conformed protocols, in that
// precedence order. The first declaration of a selector wins.
func (s *Synthesizer) methodSources(c *decl.ClassDecl) []decl.MethodDecl {
	seen := make(map[string]bool)
	var out []decl.MethodDecl
	add := func(m decl.MethodDecl) {
		key := m.Selector
		if m.ClassMethod {
			key = "+" + key
		}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, m)
	}

	for _, m := range c.Methods {
		add(m)
	}
	for _, p := range c.Props {
		for _, m := range accessorMethods(p) {
			add(m)
		}
	}
	for _, name := range c.Protocols {
		proto, ok := s.idx.Protocol(name)
		if !ok {
			continue
		}
		for _, m := range proto.Methods {
			add(m)
		}
	}
	return out
}

// accessorMethods derives getter/setter method declarations from a
// property declaration.
func accessorMethods(p decl.PropertyDecl) []decl.MethodDecl {
	getter := decl.MethodDecl{
		Selector:    p.Getter,
		ClassMethod: p.ClassProperty,
		Return:      p.Descriptor,
		Avail:       p.Avail,
	}
	if p.ReadOnly || p.Setter == "" {
		return []decl.MethodDecl{getter}
	}
	setter := decl.MethodDecl{
		Selector:    p.Setter,
		ClassMethod: p.ClassProperty,
		Return:      "void",
		Params: []decl.ParamDecl{
			{Name: p.Name, Descriptor: p.Descriptor},
		},
		Avail: p.Avail,
	}
	return []decl.MethodDecl{getter, setter}
}

// mapMethod runs the Type Mapper over the full signature. Any Unknown
// anywhere excludes the method from the plan: that is the accepted
// degraded mode, recorded, never fatal.
func (s *Synthesizer) mapMethod(class string, m decl.MethodDecl) (mappedMethod, bool) {
	id := class + "." + m.Selector
	if m.Variadic {
		s.sink.Skip(id, "variadic signature has no static wrapper shape")
		return mappedMethod{}, false
	}

	mm := mappedMethod{src: m}
	mm.ret = s.resolveInstance(class, s.mapper.Map(m.Return))
	if mm.ret.ContainsUnknown() {
		s.sink.Skip(id, fmt.Sprintf("return type %q did not map", m.Return))
		return mappedMethod{}, false
	}
	for _, p := range m.Params {
		t := s.resolveInstance(class, s.mapper.Map(p.Descriptor))
		if t.ContainsUnknown() {
			s.sink.Skip(id, fmt.Sprintf("parameter %s type %q did not map", p.Name, p.Descriptor))
			return mappedMethod{}, false
		}
		mm.params = append(mm.params, t)
	}
	return mm, true
}

// resolveInstance pins `instancetype` to the receiver class, so the
// emitted wrapper has a concrete type.
func (s *Synthesizer) resolveInstance(class string, t decl.TypeRef) decl.TypeRef {
	if t.Kind == decl.KindObject && t.Instance {
		t.Class = class
	}
	return t
}

func (s *Synthesizer) resolveMethod(class string, mm mappedMethod) MethodBinding {
	m := mm.src
	id := class + "." + m.Selector

	mb := MethodBinding{
		Selector:    m.Selector,
		Name:        decl.Mangle(m.Selector),
		ClassMethod: m.ClassMethod,
		Deprecated:  m.Avail.Deprecated,
	}

	retDecision := ownership.ResolveReturn(m, mm.ret)
	if retDecision.Ambiguous {
		s.sink.WarnRule(id, "no ownership rule fired for return value, defaulted", retDecision.Rule)
	}
	mb.Return = ReturnBinding{Type: mm.ret, Own: retDecision.Tag, Rule: retDecision.Rule}

	names := make(map[string]int)
	for pi, t := range mm.params {
		p := m.Params[pi]
		name := decl.SafeName(p.Name)
		names[name]++
		if n := names[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		d := ownership.ResolveParam(p, t)
		mb.Params = append(mb.Params, ParamBinding{Name: name, Type: t, Own: d.Tag, Rule: d.Rule})
	}
	return mb
}

// hasAllocInChain reports whether the class or any resolved ancestor
// declares the `alloc` class method, one half of the constructor pair.
func (s *Synthesizer) hasAllocInChain(i int) bool {
	for cur := i; cur >= 0; cur = s.idx.Classes[cur].Super {
		for _, m := range s.idx.Classes[cur].Methods {
			if m.ClassMethod && m.Selector == "alloc" {
				return true
			}
		}
	}
	return false
}

// constructorName turns an init-family mangled name into the exported
// constructor identifier: init -> NewNSObject, initWithValue_ ->
// NewNSObjectWithValue_.
func constructorName(class, mangledInit string) string {
	rest := strings.TrimPrefix(mangledInit, "init")
	return "New" + class + rest
}
