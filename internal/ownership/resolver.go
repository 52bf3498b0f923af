// Package ownership assigns a lifetime classification to every value
// crossing the runtime boundary. This is the single most safety-critical
// decision in the generator: a wrong Owned/Borrowed call is a
// double-release or a leak in the emitted wrapper. The resolver is
// deterministic and every decision names the rule that fired so a
// wrapper audit can trace it.
//
// Precedence, in order: an explicit ownership attribute on the
// declaration is authoritative and short-circuits; otherwise the create
// rule of the foreign runtime family applies (a selector whose first
// segment starts with alloc, new, copy, or mutableCopy returns an owned
// reference); otherwise returns default to autoreleased and parameters
// to borrowed. The naming convention is a community convention, not a
// guarantee, so a blanket default firing on an object return is reported
// as an ambiguity.
package ownership

import "objkit/internal/decl"

// Rule identifiers, surfaced in diagnostics.
const (
	RuleNonObject          = "non-object:borrowed"
	RuleAttrRetained       = "attr:ns_returns_retained"
	RuleAttrNotRetained    = "attr:ns_returns_not_retained"
	RuleAttrAutoreleased   = "attr:ns_returns_autoreleased"
	RuleAttrConsumed       = "attr:ns_consumed"
	RuleConsumesSelfInit   = "create-rule:init-consumes-self"
	RuleCreatePrefix       = "create-rule:"
	RuleDefaultReturn      = "default:autoreleased"
	RuleDefaultParam       = "default:borrowed"
)

// createPrefixes are the selector word prefixes of the create rule, in
// match order: mutableCopy must be tried before copy.
var createPrefixes = []string{"alloc", "new", "mutableCopy", "copy"}

// Decision is one resolved tag plus its audit trail. Ambiguous marks a
// decision where no specific rule fired and the blanket default was
// applied to an object value.
type Decision struct {
	Tag       decl.Ownership
	Rule      string
	Ambiguous bool
}

// ResolveReturn classifies the method's return value.
func ResolveReturn(m decl.MethodDecl, t decl.TypeRef) Decision {
	if !t.IsObject() {
		return Decision{Tag: decl.Borrowed, Rule: RuleNonObject}
	}

	switch m.ReturnAttr {
	case decl.AttrReturnsRetained:
		return Decision{Tag: decl.Owned, Rule: RuleAttrRetained}
	case decl.AttrReturnsNotRetained:
		return Decision{Tag: decl.Borrowed, Rule: RuleAttrNotRetained}
	case decl.AttrReturnsAutoreleased:
		return Decision{Tag: decl.Autoreleased, Rule: RuleAttrAutoreleased}
	}

	if m.ConsumesSelf && decl.HasWordPrefix(m.Selector, "init") {
		return Decision{Tag: decl.Owned, Rule: RuleConsumesSelfInit}
	}

	segment := decl.FirstSegment(m.Selector)
	for _, prefix := range createPrefixes {
		if decl.HasWordPrefix(segment, prefix) {
			return Decision{Tag: decl.Owned, Rule: RuleCreatePrefix + prefix}
		}
	}

	return Decision{Tag: decl.Autoreleased, Rule: RuleDefaultReturn, Ambiguous: true}
}

// ResolveParam classifies one parameter value passed into the runtime.
func ResolveParam(p decl.ParamDecl, t decl.TypeRef) Decision {
	if !t.IsObject() {
		return Decision{Tag: decl.Borrowed, Rule: RuleNonObject}
	}
	if p.Consumed {
		return Decision{Tag: decl.Owned, Rule: RuleAttrConsumed}
	}
	return Decision{Tag: decl.Borrowed, Rule: RuleDefaultParam}
}
