package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"objkit/internal/decl"
	"objkit/internal/diag"
)

type fakeProvider struct {
	classes  []decl.ClassDecl
	structs  []decl.StructDecl
	typedefs []decl.TypedefDecl
	enums    []decl.EnumDecl
}

func (f fakeProvider) Declarations() (decl.Unit, error) {
	return decl.Unit{
		Classes:  f.classes,
		Structs:  f.structs,
		Typedefs: f.typedefs,
		Enums:    f.enums,
	}, nil
}

func class(name, super string, methods ...decl.MethodDecl) decl.ClassDecl {
	return decl.ClassDecl{Name: name, SuperName: super, Super: -1, Methods: methods}
}

func build(t *testing.T, opts Options, sink *diag.Sink, providers ...Provider) (*Index, error) {
	t.Helper()
	if sink == nil {
		sink = diag.NewSink()
	}
	return Build(opts, sink, zap.NewNop(), providers...)
}

func TestForwardSuperclassReferenceResolves(t *testing.T) {
	// NSString appears before its superclass; resolution is a second pass.
	x, err := build(t, Options{}, nil, fakeProvider{classes: []decl.ClassDecl{
		class("NSString", "NSObject"),
		class("NSObject", ""),
	}})
	require.NoError(t, err)

	i, ok := x.Lookup("NSString")
	require.True(t, ok)
	j, ok := x.Lookup("NSObject")
	require.True(t, ok)
	assert.Equal(t, j, x.Classes[i].Super)
	assert.Equal(t, -1, x.Classes[j].Super)
	assert.Equal(t, j, x.RootOf(i))
}

func TestDuplicateDeclarationCollapses(t *testing.T) {
	c := class("NSObject", "", decl.MethodDecl{Selector: "description", Return: "NSString *"})
	x, err := build(t, Options{}, nil,
		fakeProvider{classes: []decl.ClassDecl{c}},
		fakeProvider{classes: []decl.ClassDecl{c}},
	)
	require.NoError(t, err)
	assert.Len(t, x.Classes, 1)
}

func TestConflictingRedeclarationIsFatal(t *testing.T) {
	a := class("NSObject", "", decl.MethodDecl{Selector: "description", Return: "NSString *"})
	b := class("NSObject", "", decl.MethodDecl{Selector: "description", Return: "id"})
	_, err := build(t, Options{}, nil, fakeProvider{classes: []decl.ClassDecl{a, b}})
	require.Error(t, err)
	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "NSObject", derr.Subject)
}

func TestSuperclassCycleIsFatal(t *testing.T) {
	_, err := build(t, Options{}, nil, fakeProvider{classes: []decl.ClassDecl{
		class("A", "B"),
		class("B", "C"),
		class("C", "A"),
	}})
	require.Error(t, err)
	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Reason, "cycle")
}

func TestUnresolvedSuperclassIsOnlyAWarning(t *testing.T) {
	sink := diag.NewSink()
	x, err := build(t, Options{}, sink, fakeProvider{classes: []decl.ClassDecl{
		class("NSView", "NSResponder"),
	}})
	require.NoError(t, err)
	i, _ := x.Lookup("NSView")
	assert.Equal(t, -1, x.Classes[i].Super)
	warns := sink.Warnings()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Reason, "NSResponder")
}

func TestCategoryMergesIntoBaseClass(t *testing.T) {
	base := class("NSString", "", decl.MethodDecl{Selector: "length", Return: "NSUInteger"})
	cat := class("NSString", "", decl.MethodDecl{Selector: "uppercaseString", Return: "NSString *"})
	cat.Name = "NSExtendedString"
	cat.Category = "NSString"

	x, err := build(t, Options{}, nil, fakeProvider{classes: []decl.ClassDecl{base, cat}})
	require.NoError(t, err)
	i, _ := x.Lookup("NSString")
	require.Len(t, x.Classes[i].Methods, 2)
	assert.Equal(t, "uppercaseString", x.Classes[i].Methods[1].Selector)
}

func TestCategoryWithoutBaseIsSkipped(t *testing.T) {
	sink := diag.NewSink()
	cat := class("NSExtras", "")
	cat.Category = "NSMissing"
	x, err := build(t, Options{}, sink, fakeProvider{classes: []decl.ClassDecl{cat}})
	require.NoError(t, err)
	assert.Empty(t, x.Classes)
	require.Len(t, sink.Skips(), 1)
}

func TestAvailabilityFloorSkipsNewerDeclarations(t *testing.T) {
	sink := diag.NewSink()
	newer := class("NSScene", "")
	newer.Avail.Introduced = "13.0"
	older := class("NSObject", "")
	older.Avail.Introduced = "10.0"
	unavail := class("NSBanned", "")
	unavail.Avail.Unavailable = true

	x, err := build(t, Options{MinOS: "12.0"}, sink, fakeProvider{classes: []decl.ClassDecl{newer, older, unavail}})
	require.NoError(t, err)
	assert.False(t, x.HasClass("NSScene"))
	assert.False(t, x.HasClass("NSBanned"))
	assert.True(t, x.HasClass("NSObject"))
	assert.Len(t, sink.Skips(), 2)
}

func TestRestrictKeepsSuperclassChain(t *testing.T) {
	x, err := build(t, Options{Classes: []string{"NSString"}}, nil, fakeProvider{classes: []decl.ClassDecl{
		class("NSObject", ""),
		class("NSString", "NSObject"),
		class("NSArray", "NSObject"),
	}})
	require.NoError(t, err)
	assert.True(t, x.HasClass("NSString"))
	assert.True(t, x.HasClass("NSObject"))
	assert.False(t, x.HasClass("NSArray"))
}

func TestStructLookup(t *testing.T) {
	x, err := build(t, Options{}, nil, fakeProvider{
		structs: []decl.StructDecl{{Name: "NSRange", Fields: []decl.StructField{
			{Name: "location", Descriptor: "NSUInteger"},
			{Name: "length", Descriptor: "NSUInteger"},
		}}},
	})
	require.NoError(t, err)
	s, ok := x.Struct("NSRange")
	require.True(t, ok)
	assert.Len(t, s.Fields, 2)
}

func TestTypedefAndEnumLookup(t *testing.T) {
	x, err := build(t, Options{}, nil,
		fakeProvider{
			typedefs: []decl.TypedefDecl{{Name: "NSRange", Descriptor: "struct _NSRange"}},
			enums: []decl.EnumDecl{{Name: "NSComparisonResult", Underlying: "NSInteger",
				Constants: []decl.EnumConstant{{Name: "NSOrderedSame", Value: 0}}}},
		},
		// a second include path redeclares both; first wins
		fakeProvider{
			typedefs: []decl.TypedefDecl{{Name: "NSRange", Descriptor: "something else"}},
			enums:    []decl.EnumDecl{{Name: "NSComparisonResult"}},
		},
	)
	require.NoError(t, err)

	d, ok := x.Typedef("NSRange")
	require.True(t, ok)
	assert.Equal(t, "struct _NSRange", d)

	e, ok := x.Enum("NSComparisonResult")
	require.True(t, ok)
	assert.Equal(t, "NSInteger", e.Underlying)
	require.Len(t, x.Enums(), 1)

	_, ok = x.Typedef("CFStringRef")
	assert.False(t, ok)
}
