package astdump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objkit/internal/decl"
)

const sampleDump = `{
  "kind": "TranslationUnitDecl",
  "inner": [
    {
      "kind": "ObjCInterfaceDecl",
      "name": "NSObject",
      "loc": {"file": "NSObject.h"},
      "inner": [
        {
          "kind": "ObjCMethodDecl",
          "name": "description",
          "instance": true,
          "returnType": {"qualType": "NSString *"}
        },
        {
          "kind": "ObjCMethodDecl",
          "name": "alloc",
          "instance": false,
          "returnType": {"qualType": "instancetype"},
          "inner": [{"kind": "NSReturnsRetainedAttr"}]
        }
      ]
    },
    {
      "kind": "ObjCInterfaceDecl",
      "name": "NSString",
      "super": {"name": "NSObject"},
      "protocols": [{"name": "NSCopying"}],
      "inner": [
        {
          "kind": "ObjCMethodDecl",
          "name": "characterAtIndex:",
          "instance": true,
          "returnType": {"qualType": "unichar"},
          "inner": [
            {"kind": "ParmVarDecl", "name": "index", "type": {"qualType": "NSUInteger"}}
          ]
        },
        {
          "kind": "ObjCPropertyDecl",
          "name": "length",
          "readonly": true,
          "type": {"qualType": "NSUInteger"}
        }
      ]
    },
    {
      "kind": "ObjCProtocolDecl",
      "name": "NSCopying",
      "inner": [
        {
          "kind": "ObjCMethodDecl",
          "name": "copyWithZone:",
          "instance": true,
          "returnType": {"qualType": "id"},
          "inner": [
            {"kind": "ParmVarDecl", "name": "zone", "type": {"qualType": "NSZone *"}}
          ]
        }
      ]
    },
    {
      "kind": "ObjCCategoryDecl",
      "name": "NSExtendedString",
      "interface": {"name": "NSString"},
      "inner": [
        {
          "kind": "ObjCMethodDecl",
          "name": "uppercaseString",
          "instance": true,
          "returnType": {"qualType": "NSString *"},
          "inner": [{"kind": "AvailabilityAttr", "platform": "macos", "introduced": "10.10"}]
        }
      ]
    },
    {
      "kind": "RecordDecl",
      "name": "_NSRange",
      "tagUsed": "struct",
      "completeDefinition": true,
      "inner": [
        {"kind": "FieldDecl", "name": "location", "type": {"qualType": "NSUInteger"}},
        {"kind": "FieldDecl", "name": "length", "type": {"qualType": "NSUInteger"}}
      ]
    },
    {
      "kind": "TypedefDecl",
      "name": "NSRange",
      "type": {"qualType": "struct _NSRange"}
    },
    {
      "kind": "EnumDecl",
      "name": "NSComparisonResult",
      "fixedUnderlyingType": {"qualType": "NSInteger"},
      "inner": [
        {
          "kind": "EnumConstantDecl",
          "name": "NSOrderedAscending",
          "inner": [{"kind": "ConstantExpr", "value": "-1"}]
        },
        {"kind": "EnumConstantDecl", "name": "NSOrderedSame"},
        {"kind": "EnumConstantDecl", "name": "NSOrderedDescending"}
      ]
    }
  ]
}`

func loadSample(t *testing.T) decl.Unit {
	t.Helper()
	r, err := NewReader(strings.NewReader(sampleDump), "sample.json")
	require.NoError(t, err)
	unit, err := r.Declarations()
	require.NoError(t, err)
	return unit
}

func TestDeclarationsWalksAllKinds(t *testing.T) {
	unit := loadSample(t)
	classes := unit.Classes

	require.Len(t, classes, 4)
	require.Len(t, unit.Structs, 1)
	require.Len(t, unit.Typedefs, 1)
	require.Len(t, unit.Enums, 1)

	nsobject := classes[0]
	assert.Equal(t, "NSObject", nsobject.Name)
	assert.Equal(t, "NSObject.h", nsobject.Source)
	assert.Empty(t, nsobject.SuperName)
	require.Len(t, nsobject.Methods, 2)
	assert.Equal(t, "description", nsobject.Methods[0].Selector)
	assert.False(t, nsobject.Methods[0].ClassMethod)
	assert.True(t, nsobject.Methods[1].ClassMethod)
	assert.Equal(t, decl.AttrReturnsRetained, nsobject.Methods[1].ReturnAttr)

	nsstring := classes[1]
	assert.Equal(t, "NSObject", nsstring.SuperName)
	assert.Equal(t, -1, nsstring.Super)
	assert.Equal(t, []string{"NSCopying"}, nsstring.Protocols)
	require.Len(t, nsstring.Methods, 1)
	require.Len(t, nsstring.Methods[0].Params, 1)
	assert.Equal(t, "NSUInteger", nsstring.Methods[0].Params[0].Descriptor)

	proto := classes[2]
	assert.True(t, proto.Protocol)

	category := classes[3]
	assert.Equal(t, "NSString", category.Category)
	assert.Equal(t, "10.10", category.Methods[0].Avail.Introduced)
}

func TestPropertyAccessorsDerived(t *testing.T) {
	prop := loadSample(t).Classes[1].Props[0]
	assert.Equal(t, "length", prop.Getter)
	assert.True(t, prop.ReadOnly)
	assert.Empty(t, prop.Setter)
}

func TestDefaultSetter(t *testing.T) {
	assert.Equal(t, "setLength:", defaultSetter("length"))
	assert.Equal(t, "setURL:", defaultSetter("URL"))
}

func TestStructFields(t *testing.T) {
	rng := loadSample(t).Structs[0]
	assert.Equal(t, "_NSRange", rng.Name)
	assert.False(t, rng.Union)
	require.Len(t, rng.Fields, 2)
	assert.Equal(t, "location", rng.Fields[0].Name)
}

func TestTypedefCarriesUnderlyingDescriptor(t *testing.T) {
	td := loadSample(t).Typedefs[0]
	assert.Equal(t, "NSRange", td.Name)
	assert.Equal(t, "struct _NSRange", td.Descriptor)
}

func TestEnumConstantsContinueFromExplicitValue(t *testing.T) {
	e := loadSample(t).Enums[0]
	assert.Equal(t, "NSComparisonResult", e.Name)
	assert.Equal(t, "NSInteger", e.Underlying)
	require.Len(t, e.Constants, 3)
	assert.Equal(t, decl.EnumConstant{Name: "NSOrderedAscending", Value: -1}, e.Constants[0])
	assert.Equal(t, decl.EnumConstant{Name: "NSOrderedSame", Value: 0}, e.Constants[1])
	assert.Equal(t, decl.EnumConstant{Name: "NSOrderedDescending", Value: 1}, e.Constants[2])
}

func TestRejectsNonTranslationUnitRoot(t *testing.T) {
	_, err := NewReader(strings.NewReader(`{"kind": "ObjCInterfaceDecl"}`), "bad.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TranslationUnitDecl")
}
