// Package typemap converts foreign type descriptors (clang qualType
// spellings) into TypeRefs. Mapping is a pure function of the descriptor
// over a frozen Interface Index: the same descriptor always yields a
// structurally equal TypeRef, and an unmappable descriptor degrades to
// Unknown with the raw spelling preserved — it never aborts a run.
package typemap

import (
	"strings"

	"objkit/internal/decl"
	"objkit/internal/index"
)

// primitives is the fixed table of scalar spellings. Widths follow the
// LP64 Darwin ABI the foreign runtime uses.
var primitives = map[string]decl.PrimitiveKind{
	"void":               decl.PrimVoid,
	"bool":               decl.PrimBool,
	"_Bool":              decl.PrimBool,
	"BOOL":               decl.PrimBool,
	"char":               decl.PrimInt8,
	"signed char":        decl.PrimInt8,
	"unsigned char":      decl.PrimUint8,
	"short":              decl.PrimInt16,
	"unsigned short":     decl.PrimUint16,
	"int":                decl.PrimInt32,
	"unsigned int":       decl.PrimUint32,
	"long":               decl.PrimInt,
	"unsigned long":      decl.PrimUint,
	"long long":          decl.PrimInt64,
	"unsigned long long": decl.PrimUint64,
	"float":              decl.PrimFloat32,
	"double":             decl.PrimFloat64,
	"NSInteger":          decl.PrimInt,
	"NSUInteger":         decl.PrimUint,
	"CGFloat":            decl.PrimFloat64,
	"NSTimeInterval":     decl.PrimFloat64,
	"unichar":            decl.PrimUint16,
	"UniChar":            decl.PrimUint16,
	"int8_t":             decl.PrimInt8,
	"uint8_t":            decl.PrimUint8,
	"int16_t":            decl.PrimInt16,
	"uint16_t":           decl.PrimUint16,
	"int32_t":            decl.PrimInt32,
	"uint32_t":           decl.PrimUint32,
	"int64_t":            decl.PrimInt64,
	"uint64_t":           decl.PrimUint64,
	"size_t":             decl.PrimUint,
	"uintptr_t":          decl.PrimUint,
	"intptr_t":           decl.PrimInt,
}

// qualifiers that carry no mapping information and are dropped outright.
var droppedQualifiers = map[string]bool{
	"const":               true,
	"volatile":            true,
	"__strong":            true,
	"__weak":              true,
	"__autoreleasing":     true,
	"__unsafe_unretained": true,
	"__kindof":            true,
	"_Null_unspecified":   true,
}

// Mapper maps descriptors against a frozen index.
type Mapper struct {
	idx *index.Index
}

func New(idx *index.Index) *Mapper {
	return &Mapper{idx: idx}
}

// Map converts one descriptor. See the package comment for the degrade
// policy; Unknown results always carry the original descriptor.
func (m *Mapper) Map(descriptor string) decl.TypeRef {
	return m.mapInner(descriptor, make(map[string]bool))
}

func (m *Mapper) mapInner(descriptor string, visiting map[string]bool) decl.TypeRef {
	s, nullable := clean(descriptor)

	if s == "" {
		return unknown(descriptor)
	}

	if strings.Contains(s, "(^") {
		return m.mapBlock(descriptor, s, visiting)
	}

	if base, ok := strings.CutSuffix(s, "*"); ok {
		return m.mapPointer(descriptor, strings.TrimSpace(base), nullable)
	}

	if s == "instancetype" {
		return decl.TypeRef{Kind: decl.KindObject, Instance: true, Nullable: nullable}
	}
	if s == "id" || strings.HasPrefix(s, "id<") {
		return decl.TypeRef{Kind: decl.KindObject, Nullable: nullable}
	}

	if prim, ok := primitives[s]; ok {
		return decl.TypeRef{Kind: decl.KindPrimitive, Prim: prim}
	}

	name := strings.TrimSpace(strings.TrimPrefix(s, "struct "))
	if st, ok := m.idx.Struct(name); ok {
		return m.mapStruct(descriptor, st, visiting)
	}

	if e, ok := m.idx.Enum(strings.TrimSpace(strings.TrimPrefix(s, "enum "))); ok {
		return m.mapEnum(descriptor, e, visiting)
	}

	if underlying, ok := m.idx.Typedef(s); ok {
		return m.mapTypedef(descriptor, s, underlying, visiting)
	}

	return unknown(descriptor)
}

// mapTypedef resolves an alias to its underlying descriptor. A record
// reached through the alias takes the alias as its public name, so
// `typedef struct _NSRange NSRange` surfaces as NSRange.
func (m *Mapper) mapTypedef(raw, name, underlying string, visiting map[string]bool) decl.TypeRef {
	key := "typedef " + name
	if visiting[key] {
		return unknown(raw)
	}
	visiting[key] = true
	defer delete(visiting, key)

	t := m.mapInner(underlying, visiting)
	if t.ContainsUnknown() {
		return unknown(raw)
	}
	if t.Kind == decl.KindStruct {
		t.Name = name
	}
	return t
}

// mapEnum maps an enumeration to its underlying integer shape. The
// constants themselves are bound separately, off the index.
func (m *Mapper) mapEnum(raw string, e decl.EnumDecl, visiting map[string]bool) decl.TypeRef {
	underlying := e.Underlying
	if underlying == "" {
		underlying = "int"
	}
	t := m.mapInner(underlying, visiting)
	if t.Kind != decl.KindPrimitive {
		return unknown(raw)
	}
	return t
}

func (m *Mapper) mapPointer(raw, base string, nullable bool) decl.TypeRef {
	if strings.HasSuffix(base, "*") {
		// multi-level indirection (out-parameters); no safe wrapper shape
		return unknown(raw)
	}
	if base == "id" || strings.HasPrefix(base, "id<") {
		return decl.TypeRef{Kind: decl.KindObject, Nullable: nullable}
	}
	if base == "instancetype" {
		return decl.TypeRef{Kind: decl.KindObject, Instance: true, Nullable: nullable}
	}
	if i := strings.IndexByte(base, '<'); i > 0 {
		// protocol-qualified class pointer: NSObject<NSCopying> *
		base = base[:i]
	}
	if m.idx.HasClass(base) {
		return decl.TypeRef{Kind: decl.KindObject, Class: base, Nullable: nullable}
	}
	return unknown(raw)
}

// mapStruct recurses into the record's fields. One Unknown field poisons
// the whole struct: partial layout knowledge is worse than none.
func (m *Mapper) mapStruct(raw string, st decl.StructDecl, visiting map[string]bool) decl.TypeRef {
	if st.Union || visiting[st.Name] {
		return unknown(raw)
	}
	visiting[st.Name] = true
	defer delete(visiting, st.Name)

	out := decl.TypeRef{Kind: decl.KindStruct, Name: st.Name}
	for _, f := range st.Fields {
		ft := m.mapInner(f.Descriptor, visiting)
		if ft.ContainsUnknown() {
			return unknown(raw)
		}
		out.Fields = append(out.Fields, decl.Field{Name: decl.SafeName(f.Name), Type: ft})
	}
	return out
}

// mapBlock parses `RET (^)(ARG, ARG)` spellings.
func (m *Mapper) mapBlock(raw, s string, visiting map[string]bool) decl.TypeRef {
	open := strings.Index(s, "(^")
	caretClose := strings.IndexByte(s[open:], ')')
	if caretClose < 0 {
		return unknown(raw)
	}
	argsPart := strings.TrimSpace(s[open+caretClose+1:])
	if !strings.HasPrefix(argsPart, "(") || !strings.HasSuffix(argsPart, ")") {
		return unknown(raw)
	}

	ret := m.mapInner(strings.TrimSpace(s[:open]), visiting)
	out := decl.TypeRef{Kind: decl.KindBlock, Return: &ret}
	for _, arg := range splitArgs(argsPart[1 : len(argsPart)-1]) {
		if arg == "void" || arg == "" {
			continue
		}
		out.Params = append(out.Params, m.mapInner(arg, visiting))
	}
	if out.ContainsUnknown() {
		return unknown(raw)
	}
	return out
}

// splitArgs splits on commas not nested inside parentheses or angle
// brackets.
func splitArgs(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

// clean drops qualifier tokens and extracts nullability. The token scan
// leaves multi-word primitive spellings intact.
func clean(descriptor string) (string, bool) {
	nullable := false
	fields := strings.Fields(descriptor)
	kept := fields[:0:0]
	for _, f := range fields {
		switch {
		case f == "_Nullable":
			nullable = true
		case f == "_Nonnull":
			// explicit non-null: nothing to record, default is non-null
		case droppedQualifiers[f]:
		default:
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " "), nullable
}

func unknown(raw string) decl.TypeRef {
	return decl.TypeRef{Kind: decl.KindUnknown, Raw: raw}
}
