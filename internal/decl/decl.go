// The package describing discovered Objective-C declarations.
package decl

import (
	"fmt"
	"strings"
)

// TypeKind tags the variants of TypeRef.
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindObject
	KindStruct
	KindBlock
	KindUnknown
)

// PrimitiveKind enumerates the fixed set of mappable scalar types.
type PrimitiveKind int

const (
	PrimVoid PrimitiveKind = iota
	PrimBool
	PrimInt8
	PrimUint8
	PrimInt16
	PrimUint16
	PrimInt32
	PrimUint32
	PrimInt64
	PrimUint64
	PrimInt // NSInteger, pointer sized
	PrimUint
	PrimFloat32
	PrimFloat64
)

// GoName returns the Go spelling of the primitive.
func (p PrimitiveKind) GoName() string {
	switch p {
	case PrimBool:
		return "bool"
	case PrimInt8:
		return "int8"
	case PrimUint8:
		return "uint8"
	case PrimInt16:
		return "int16"
	case PrimUint16:
		return "uint16"
	case PrimInt32:
		return "int32"
	case PrimUint32:
		return "uint32"
	case PrimInt64:
		return "int64"
	case PrimUint64:
		return "uint64"
	case PrimInt:
		return "int"
	case PrimUint:
		return "uint"
	case PrimFloat32:
		return "float32"
	case PrimFloat64:
		return "float64"
	}
	return ""
}

// TypeRef is the mapped form of a foreign type descriptor. Exactly one
// variant is populated, selected by Kind. Unknown always carries the raw
// descriptor so diagnostics can name what failed to map.
type TypeRef struct {
	Kind TypeKind

	// KindPrimitive
	Prim PrimitiveKind

	// KindObject. An empty Class is a generic `id` handle. Instance marks
	// `instancetype`, resolved to the receiver class during synthesis.
	Class    string
	Instance bool
	Nullable bool

	// KindStruct
	Name   string
	Fields []Field

	// KindBlock
	Params []TypeRef
	Return *TypeRef

	// KindUnknown
	Raw string
}

// Field is a single struct member.
type Field struct {
	Name string
	Type TypeRef
}

// ContainsUnknown reports whether the type or anything reachable from it
// failed to map.
func (t TypeRef) ContainsUnknown() bool {
	switch t.Kind {
	case KindUnknown:
		return true
	case KindStruct:
		for _, f := range t.Fields {
			if f.Type.ContainsUnknown() {
				return true
			}
		}
	case KindBlock:
		for _, p := range t.Params {
			if p.ContainsUnknown() {
				return true
			}
		}
		if t.Return != nil && t.Return.ContainsUnknown() {
			return true
		}
	}
	return false
}

// IsObject reports whether the value is an object handle crossing the
// runtime boundary, which is what ownership tags apply to.
func (t TypeRef) IsObject() bool {
	return t.Kind == KindObject
}

func (t TypeRef) String() string {
	switch t.Kind {
	case KindPrimitive:
		if t.Prim == PrimVoid {
			return "void"
		}
		return t.Prim.GoName()
	case KindObject:
		switch {
		case t.Instance:
			return "instancetype"
		case t.Class == "":
			return "id"
		default:
			return t.Class + " *"
		}
	case KindStruct:
		return "struct " + t.Name
	case KindBlock:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		ret := "void"
		if t.Return != nil {
			ret = t.Return.String()
		}
		return fmt.Sprintf("%s (^)(%s)", ret, strings.Join(parts, ", "))
	default:
		return "unknown<" + t.Raw + ">"
	}
}

// Ownership classifies who is responsible for a value crossing the
// boundary. Non-object values are Borrowed by convention.
type Ownership int

const (
	Unspecified Ownership = iota
	Owned
	Borrowed
	Autoreleased
)

func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	case Autoreleased:
		return "autoreleased"
	}
	return "unspecified"
}

// OwnershipAttr is an explicit ownership annotation on a declaration.
// It is authoritative over any naming convention.
type OwnershipAttr int

const (
	AttrNone OwnershipAttr = iota
	AttrReturnsRetained
	AttrReturnsNotRetained
	AttrReturnsAutoreleased
)

// Availability mirrors clang's availability information on a declaration.
// Introduced is the platform version string that first shipped the
// declaration, empty when unconstrained.
type Availability struct {
	Unavailable bool
	Deprecated  bool
	Message     string
	Introduced  string
}

// ParamDecl is a single method parameter. Descriptor is the raw foreign
// type spelling; the Type Mapper turns it into a TypeRef later.
type ParamDecl struct {
	Name       string
	Descriptor string
	Consumed   bool // ns_consumed: callee takes ownership
}

// MethodDecl is immutable once constructed by the provider.
type MethodDecl struct {
	Selector     string
	ClassMethod  bool
	Variadic     bool
	Params       []ParamDecl
	Return       string // raw return type descriptor
	ReturnAttr   OwnershipAttr
	ConsumesSelf bool
	InnerPointer bool
	Avail        Availability
}

// Signature is the identity used for include-path deduplication: two
// declarations with equal signatures are the same declaration.
func (m MethodDecl) Signature() string {
	var b strings.Builder
	if m.ClassMethod {
		b.WriteByte('+')
	} else {
		b.WriteByte('-')
	}
	b.WriteString(m.Selector)
	b.WriteByte('|')
	b.WriteString(m.Return)
	for _, p := range m.Params {
		b.WriteByte('|')
		b.WriteString(p.Descriptor)
	}
	if m.Variadic {
		b.WriteString("|...")
	}
	return b.String()
}

// PropertyDecl describes a declared property. Getter and Setter are the
// accessor selectors (Setter empty when readonly).
type PropertyDecl struct {
	Name          string
	Descriptor    string
	ReadOnly      bool
	Getter        string
	Setter        string
	ClassProperty bool
	Avail         Availability
}

// ClassDecl is one interface, protocol, or category. SuperName is a weak
// reference by name; Super is the arena index assigned by the resolution
// pass (-1 while unresolved or when the superclass is outside the index).
type ClassDecl struct {
	Name      string
	SuperName string
	Super     int
	Protocols []string
	Methods   []MethodDecl
	Props     []PropertyDecl
	Source    string
	Protocol  bool
	Category  string // name of the extended class; empty for plain decls
	Avail     Availability
}

// Signature folds the full declared surface of the class, for collision
// detection across include paths.
func (c ClassDecl) Signature() string {
	var b strings.Builder
	b.WriteString(c.SuperName)
	for _, m := range c.Methods {
		b.WriteByte('\n')
		b.WriteString(m.Signature())
	}
	for _, p := range c.Props {
		b.WriteByte('\n')
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(p.Descriptor)
	}
	return b.String()
}

// StructField is a raw struct member prior to type mapping.
type StructField struct {
	Name       string
	Descriptor string
}

// StructDecl is a C record visible to the bound interfaces.
type StructDecl struct {
	Name   string
	Union  bool
	Fields []StructField
}

// TypedefDecl aliases a declared name to an underlying type descriptor.
// Headers spell most record and enum types through their typedef name
// (`typedef struct _NSRange NSRange`), so signatures only resolve when
// the alias is indexed alongside the tag name.
type TypedefDecl struct {
	Name       string
	Descriptor string
}

// EnumConstant is one enumerator with its evaluated value.
type EnumConstant struct {
	Name  string
	Value int64
}

// EnumDecl is a named C enumeration. Underlying is the fixed underlying
// type descriptor; empty means plain int.
type EnumDecl struct {
	Name       string
	Underlying string
	Constants  []EnumConstant
}

// Unit is everything one provider discovered in a translation unit.
type Unit struct {
	Classes  []ClassDecl
	Structs  []StructDecl
	Typedefs []TypedefDecl
	Enums    []EnumDecl
}
