// Package astdump reads foreign interface declarations out of a clang
// JSON AST dump (`clang -ObjC -Xclang -ast-dump=json`). It is the
// concrete AST provider behind the Interface Index; only the node kinds
// relevant to binding generation are decoded, everything else is walked
// past.
package astdump

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"objkit/internal/decl"
)

// node is the decoded subset of a clang AST node.
type node struct {
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Inner     []node    `json:"inner"`
	Type      *typeNode `json:"type"`
	RetType   *typeNode `json:"returnType"`
	Instance  bool      `json:"instance"`
	Variadic  bool      `json:"variadic"`
	Super     *ref      `json:"super"`
	Interface *ref      `json:"interface"`
	Protocols []ref     `json:"protocols"`
	Getter    *ref      `json:"getter"`
	Setter    *ref      `json:"setter"`
	ReadOnly  bool      `json:"readonly"`
	Class     bool      `json:"class"`
	TagUsed   string    `json:"tagUsed"`
	Complete  bool      `json:"completeDefinition"`
	Loc       *loc      `json:"loc"`
	FixedType *typeNode `json:"fixedUnderlyingType"`
	Value     string    `json:"value"`

	// availability attribute payload
	Platform    string `json:"platform"`
	Introduced  string `json:"introduced"`
	Deprecated  string `json:"deprecated"`
	Unavailable bool   `json:"unavailable"`
	Message     string `json:"message"`
}

type typeNode struct {
	QualType string `json:"qualType"`
}

type ref struct {
	Name string `json:"name"`
}

type loc struct {
	File string `json:"file"`
}

// Reader holds one parsed translation unit.
type Reader struct {
	root   node
	source string
}

// NewReader decodes a dump from r. The whole tree is held in memory:
// discovery is a single pass and the index owns everything it extracts.
func NewReader(r io.Reader, source string) (*Reader, error) {
	var root node
	dec := json.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decoding AST dump %s: %w", source, err)
	}
	if root.Kind != "TranslationUnitDecl" {
		return nil, fmt.Errorf("AST dump %s: root is %q, want TranslationUnitDecl", source, root.Kind)
	}
	return &Reader{root: root, source: source}, nil
}

// Open reads and decodes the dump file at path. The file handle is
// released before Open returns, on success and failure alike.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening AST dump: %w", err)
	}
	defer f.Close()
	return NewReader(f, path)
}

// Declarations walks the translation unit and returns every class,
// protocol, and category declaration plus every complete record,
// typedef, and named enumeration visible in it.
func (r *Reader) Declarations() (decl.Unit, error) {
	var unit decl.Unit

	for i := range r.root.Inner {
		n := &r.root.Inner[i]
		switch n.Kind {
		case "ObjCInterfaceDecl":
			if len(n.Inner) == 0 && n.Super == nil {
				// forward @class declaration, carries nothing
				continue
			}
			unit.Classes = append(unit.Classes, r.readClass(n, false))
		case "ObjCProtocolDecl":
			unit.Classes = append(unit.Classes, r.readClass(n, true))
		case "ObjCCategoryDecl":
			c := r.readClass(n, false)
			if n.Interface != nil {
				c.Category = n.Interface.Name
			}
			unit.Classes = append(unit.Classes, c)
		case "RecordDecl":
			if !n.Complete || n.Name == "" {
				continue
			}
			unit.Structs = append(unit.Structs, readStruct(n))
		case "TypedefDecl":
			if n.Name == "" || n.Type == nil {
				continue
			}
			unit.Typedefs = append(unit.Typedefs, decl.TypedefDecl{
				Name:       n.Name,
				Descriptor: n.Type.QualType,
			})
		case "EnumDecl":
			if n.Name == "" {
				continue
			}
			unit.Enums = append(unit.Enums, readEnum(n))
		}
	}
	return unit, nil
}

func (r *Reader) readClass(n *node, protocol bool) decl.ClassDecl {
	c := decl.ClassDecl{
		Name:     n.Name,
		Super:    -1,
		Source:   r.source,
		Protocol: protocol,
		Avail:    readAvail(n),
	}
	if n.Super != nil {
		c.SuperName = n.Super.Name
	}
	if n.Loc != nil && n.Loc.File != "" {
		c.Source = n.Loc.File
	}
	for _, p := range n.Protocols {
		c.Protocols = append(c.Protocols, p.Name)
	}
	for i := range n.Inner {
		child := &n.Inner[i]
		switch child.Kind {
		case "ObjCMethodDecl":
			c.Methods = append(c.Methods, readMethod(child))
		case "ObjCPropertyDecl":
			c.Props = append(c.Props, readProperty(child))
		}
	}
	return c
}

func readMethod(n *node) decl.MethodDecl {
	m := decl.MethodDecl{
		Selector:    n.Name,
		ClassMethod: !n.Instance,
		Variadic:    n.Variadic,
		Avail:       readAvail(n),
	}
	if n.RetType != nil {
		m.Return = n.RetType.QualType
	}
	for i := range n.Inner {
		child := &n.Inner[i]
		switch child.Kind {
		case "ParmVarDecl":
			p := decl.ParamDecl{Name: child.Name}
			if child.Type != nil {
				p.Descriptor = child.Type.QualType
			}
			for _, attr := range child.Inner {
				if attr.Kind == "NSConsumedAttr" {
					p.Consumed = true
				}
			}
			m.Params = append(m.Params, p)
		case "NSReturnsRetainedAttr":
			m.ReturnAttr = decl.AttrReturnsRetained
		case "NSReturnsNotRetainedAttr":
			m.ReturnAttr = decl.AttrReturnsNotRetained
		case "NSReturnsAutoreleasedAttr":
			m.ReturnAttr = decl.AttrReturnsAutoreleased
		case "NSConsumesSelfAttr":
			m.ConsumesSelf = true
		case "ObjCReturnsInnerPointerAttr":
			m.InnerPointer = true
		}
	}
	return m
}

func readProperty(n *node) decl.PropertyDecl {
	p := decl.PropertyDecl{
		Name:          n.Name,
		ReadOnly:      n.ReadOnly,
		ClassProperty: n.Class,
		Avail:         readAvail(n),
	}
	if n.Type != nil {
		p.Descriptor = n.Type.QualType
	}
	if n.Getter != nil {
		p.Getter = n.Getter.Name
	} else {
		p.Getter = n.Name
	}
	if !p.ReadOnly {
		if n.Setter != nil {
			p.Setter = n.Setter.Name
		} else {
			p.Setter = defaultSetter(n.Name)
		}
	}
	return p
}

func readStruct(n *node) decl.StructDecl {
	s := decl.StructDecl{
		Name:  n.Name,
		Union: n.TagUsed == "union",
	}
	for i := range n.Inner {
		child := &n.Inner[i]
		if child.Kind != "FieldDecl" || child.Name == "" {
			continue
		}
		f := decl.StructField{Name: child.Name}
		if child.Type != nil {
			f.Descriptor = child.Type.QualType
		}
		s.Fields = append(s.Fields, f)
	}
	return s
}

// readEnum collects the enumerators. Enumerators without an evaluated
// initializer continue from the previous value, matching C semantics.
func readEnum(n *node) decl.EnumDecl {
	e := decl.EnumDecl{Name: n.Name}
	if n.FixedType != nil {
		e.Underlying = n.FixedType.QualType
	}
	next := int64(0)
	for i := range n.Inner {
		child := &n.Inner[i]
		if child.Kind != "EnumConstantDecl" || child.Name == "" {
			continue
		}
		value := next
		if v, ok := constantValue(child); ok {
			value = v
		}
		e.Constants = append(e.Constants, decl.EnumConstant{Name: child.Name, Value: value})
		next = value + 1
	}
	return e
}

// constantValue digs the evaluated value out of the enumerator's
// initializer expression, wherever clang nested it.
func constantValue(n *node) (int64, bool) {
	for i := range n.Inner {
		child := &n.Inner[i]
		if child.Value != "" {
			if v, err := strconv.ParseInt(child.Value, 10, 64); err == nil {
				return v, true
			}
		}
		if v, ok := constantValue(child); ok {
			return v, true
		}
	}
	return 0, false
}

// readAvail folds the declaration's availability attributes. A swift- or
// platform-unavailable marking wins over everything else.
func readAvail(n *node) decl.Availability {
	var a decl.Availability
	for i := range n.Inner {
		child := &n.Inner[i]
		switch child.Kind {
		case "AvailabilityAttr":
			if child.Unavailable {
				a.Unavailable = true
				a.Message = child.Message
			}
			if child.Introduced != "" && a.Introduced == "" {
				a.Introduced = child.Introduced
			}
			if child.Deprecated != "" {
				a.Deprecated = true
				if a.Message == "" {
					a.Message = child.Message
				}
			}
		case "UnavailableAttr":
			a.Unavailable = true
			a.Message = child.Message
		case "DeprecatedAttr":
			a.Deprecated = true
			if a.Message == "" {
				a.Message = child.Message
			}
		}
	}
	return a
}

// defaultSetter derives the conventional setter selector: name ->
// setName:.
func defaultSetter(name string) string {
	if name == "" {
		return ""
	}
	head := name[:1]
	if head >= "a" && head <= "z" {
		head = string(name[0] - 'a' + 'A')
	}
	return "set" + head + name[1:] + ":"
}
