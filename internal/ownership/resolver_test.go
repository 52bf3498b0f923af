package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"objkit/internal/decl"
)

var objectReturn = decl.TypeRef{Kind: decl.KindObject, Class: "NSString"}

func method(selector string) decl.MethodDecl {
	return decl.MethodDecl{Selector: selector}
}

func TestAttributeAlwaysBeatsNamingConvention(t *testing.T) {
	// `copy` would be Owned by the create rule; the explicit attribute
	// says not retained and must win every time.
	m := method("copy")
	m.ReturnAttr = decl.AttrReturnsNotRetained
	for i := 0; i < 100; i++ {
		d := ResolveReturn(m, objectReturn)
		assert.Equal(t, decl.Borrowed, d.Tag)
		assert.Equal(t, RuleAttrNotRetained, d.Rule)
	}

	// and the other direction: a plain accessor forced to Owned
	m = method("description")
	m.ReturnAttr = decl.AttrReturnsRetained
	d := ResolveReturn(m, objectReturn)
	assert.Equal(t, decl.Owned, d.Tag)
	assert.Equal(t, RuleAttrRetained, d.Rule)
}

func TestCreateRulePrefixes(t *testing.T) {
	cases := map[string]string{
		"alloc":                "create-rule:alloc",
		"allocWithZone:":       "create-rule:alloc",
		"new":                  "create-rule:new",
		"newScriptingObject:":  "create-rule:new",
		"copy":                 "create-rule:copy",
		"copyWithZone:":        "create-rule:copy",
		"mutableCopy":          "create-rule:mutableCopy",
		"mutableCopyWithZone:": "create-rule:mutableCopy",
	}
	for selector, wantRule := range cases {
		d := ResolveReturn(method(selector), objectReturn)
		assert.Equal(t, decl.Owned, d.Tag, "selector %q", selector)
		assert.Equal(t, wantRule, d.Rule, "selector %q", selector)
		assert.False(t, d.Ambiguous)
	}
}

func TestCreateRuleRequiresWordBoundary(t *testing.T) {
	// `allocate` and `newspaper` are not create-rule selectors
	for _, selector := range []string{"allocate", "newspaperStyle", "copyrightNotice"} {
		d := ResolveReturn(method(selector), objectReturn)
		assert.Equal(t, decl.Autoreleased, d.Tag, "selector %q", selector)
		assert.True(t, d.Ambiguous, "selector %q", selector)
	}
}

func TestInitConsumingSelfReturnsOwned(t *testing.T) {
	m := method("initWithValue:")
	m.ConsumesSelf = true
	d := ResolveReturn(m, decl.TypeRef{Kind: decl.KindObject, Instance: true})
	assert.Equal(t, decl.Owned, d.Tag)
	assert.Equal(t, RuleConsumesSelfInit, d.Rule)
}

func TestDefaultsAndAmbiguity(t *testing.T) {
	d := ResolveReturn(method("description"), objectReturn)
	assert.Equal(t, decl.Autoreleased, d.Tag)
	assert.Equal(t, RuleDefaultReturn, d.Rule)
	assert.True(t, d.Ambiguous, "blanket default on an object return is an ambiguity")

	// non-object values are borrowed by convention, never ambiguous
	d = ResolveReturn(method("length"), decl.TypeRef{Kind: decl.KindPrimitive, Prim: decl.PrimUint})
	assert.Equal(t, decl.Borrowed, d.Tag)
	assert.Equal(t, RuleNonObject, d.Rule)
	assert.False(t, d.Ambiguous)
}

func TestParamResolution(t *testing.T) {
	d := ResolveParam(decl.ParamDecl{Name: "aString"}, objectReturn)
	assert.Equal(t, decl.Borrowed, d.Tag)
	assert.Equal(t, RuleDefaultParam, d.Rule)
	assert.False(t, d.Ambiguous)

	d = ResolveParam(decl.ParamDecl{Name: "value", Consumed: true}, objectReturn)
	assert.Equal(t, decl.Owned, d.Tag)
	assert.Equal(t, RuleAttrConsumed, d.Rule)

	d = ResolveParam(decl.ParamDecl{Name: "index"}, decl.TypeRef{Kind: decl.KindPrimitive, Prim: decl.PrimUint})
	assert.Equal(t, RuleNonObject, d.Rule)
}
