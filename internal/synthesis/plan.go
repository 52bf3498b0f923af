// Package synthesis combines the Interface Index, the Type Mapper, and
// the Ownership Resolver into a BindingPlan: the complete, emitter-ready
// description of every class and method to expose. The plan is
// append-only while synthesis runs and must be treated as immutable once
// handed to the emitter.
package synthesis

import (
	"fmt"

	"objkit/internal/decl"
)

// State is the per-class synthesis state machine:
//
//	Discovered -> TypeMapped -> OwnershipResolved -> Synthesized | Skipped
//
// Synthesized and Skipped are terminal; a class never regresses.
type State int

const (
	Discovered State = iota
	TypeMapped
	OwnershipResolved
	Synthesized
	Skipped
)

func (s State) String() string {
	switch s {
	case Discovered:
		return "discovered"
	case TypeMapped:
		return "type-mapped"
	case OwnershipResolved:
		return "ownership-resolved"
	case Synthesized:
		return "synthesized"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// advance moves the machine forward. Regressions and transitions out of
// a terminal state are programmer errors.
func (s *State) advance(to State) {
	switch {
	case *s == Synthesized || *s == Skipped:
		panic(fmt.Sprintf("synthesis: transition %s -> %s out of terminal state", *s, to))
	case to == Skipped:
		*s = Skipped
	case to == *s+1:
		*s = to
	default:
		panic(fmt.Sprintf("synthesis: invalid transition %s -> %s", *s, to))
	}
}

// ParamBinding is one mapped parameter with its resolved ownership and
// the rule that decided it.
type ParamBinding struct {
	Name string
	Type decl.TypeRef
	Own  decl.Ownership
	Rule string
}

// ReturnBinding is the mapped return value.
type ReturnBinding struct {
	Type decl.TypeRef
	Own  decl.Ownership
	Rule string
}

// MethodBinding is one statically resolved dispatch: a foreign selector
// bound to a single target-language identifier, ahead of time.
type MethodBinding struct {
	Selector    string
	Name        string // mangled identifier, see decl.Mangle
	ClassMethod bool
	Constructor bool
	Deprecated  bool
	Params      []ParamBinding
	Return      ReturnBinding
}

// ClassBinding is the full wrapper surface of one class. RefCounted
// marks participation in the foreign retain-count model and demands a
// finalizer binding from the emitter.
type ClassBinding struct {
	Name         string
	Super        string // bound superclass name, empty when unresolved
	State        State
	RefCounted   bool
	Constructors []MethodBinding
	Methods      []MethodBinding
}

// EnumBinding is one enumeration exposed as a named integer type with
// typed constants.
type EnumBinding struct {
	Name      string
	Prim      decl.PrimitiveKind
	Constants []decl.EnumConstant
}

// Plan is the ordered binding plan for one run. Class and enum order
// follows discovery order, so emission is reproducible.
type Plan struct {
	Classes []ClassBinding
	Enums   []EnumBinding
}

// Bound returns the bindings in the Synthesized terminal state, the ones
// an emitter must write.
func (p *Plan) Bound() []ClassBinding {
	out := make([]ClassBinding, 0, len(p.Classes))
	for _, c := range p.Classes {
		if c.State == Synthesized {
			out = append(out, c)
		}
	}
	return out
}
