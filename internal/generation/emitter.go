// Package generation serializes a binding plan into Go source. Each
// class renders to its own file; rendering happens fully in memory and
// the file is written only when the whole class succeeded, so a class is
// either emitted exactly once or not at all — no half-initialized
// wrapper types ever reach disk.
package generation

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unicode"

	"github.com/dave/jennifer/jen"
	"go.uber.org/zap"

	"objkit/internal/decl"
	"objkit/internal/synthesis"
)

// objcPkg is the import path of the runtime support contract every
// generated file dispatches through.
const objcPkg = "objkit/pkg/objc"

// EmitError marks a failed class emission. It is fatal for that class
// only; the emitter still attempts every other class in the plan.
type EmitError struct {
	Class string
	Err   error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit %s: %v", e.Class, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// Emitter writes one Go file per bound class plus one per referenced
// record type.
type Emitter struct {
	PackageName string
	OutputPath  string

	log *zap.Logger
}

func New(packageName, outputPath string, log *zap.Logger) *Emitter {
	return &Emitter{
		PackageName: packageName,
		OutputPath:  outputPath,
		log:         log,
	}
}

// Emit renders the plan. The returned error joins every per-class
// EmitError; a nil return means the full plan is on disk.
func (e *Emitter) Emit(plan *synthesis.Plan) error {
	if err := os.MkdirAll(e.OutputPath, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var errs []error
	for _, st := range collectStructs(plan) {
		if err := e.emitStruct(st); err != nil {
			errs = append(errs, err)
		}
	}
	for _, en := range plan.Enums {
		if err := e.emitEnum(en); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range plan.Bound() {
		if err := e.emitClass(c); err != nil {
			errs = append(errs, err)
			continue
		}
		e.log.Debug("class emitted", zap.String("class", c.Name))
	}
	return errors.Join(errs...)
}

func (e *Emitter) emitClass(c synthesis.ClassBinding) error {
	f := jen.NewFile(e.PackageName)
	f.HeaderComment("Code generated by objkit. DO NOT EDIT.")

	e.writeWrapperType(f, c)
	for _, ctor := range c.Constructors {
		e.writeConstructor(f, c, ctor)
	}
	for _, m := range c.Methods {
		e.writeMethod(f, c, m)
	}
	if c.RefCounted {
		e.writeRelease(f, c)
	}

	return e.save(c.Name, f)
}

func (e *Emitter) emitStruct(st decl.TypeRef) error {
	f := jen.NewFile(e.PackageName)
	f.HeaderComment("Code generated by objkit. DO NOT EDIT.")

	f.Type().Id(st.Name).StructFunc(func(g *jen.Group) {
		for _, field := range st.Fields {
			g.Id(field.Name).Add(fieldType(field.Type))
		}
	})

	return e.save(st.Name, f)
}

func (e *Emitter) emitEnum(en synthesis.EnumBinding) error {
	f := jen.NewFile(e.PackageName)
	f.HeaderComment("Code generated by objkit. DO NOT EDIT.")

	f.Commentf("%s mirrors the foreign %s enumeration.", en.Name, en.Name)
	f.Type().Id(en.Name).Id(en.Prim.GoName())
	if len(en.Constants) > 0 {
		f.Const().DefsFunc(func(g *jen.Group) {
			for _, c := range en.Constants {
				g.Id(c.Name).Id(en.Name).Op("=").Lit(int(c.Value))
			}
		})
	}

	return e.save(en.Name, f)
}

// save renders to memory first; only a complete render reaches disk.
func (e *Emitter) save(name string, f *jen.File) error {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return &EmitError{Class: name, Err: err}
	}
	path := filepath.Join(e.OutputPath, name+".go")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &EmitError{Class: name, Err: err}
	}
	return nil
}

func (e *Emitter) writeWrapperType(f *jen.File, c synthesis.ClassBinding) {
	if c.Super != "" {
		f.Commentf("%s wraps the foreign %s class (subclass of %s).", c.Name, c.Name, c.Super)
	} else {
		f.Commentf("%s wraps the foreign %s class.", c.Name, c.Name)
	}
	f.Type().Id(c.Name).Struct(
		jen.Id("obj").Qual(objcPkg, "Object"),
	)

	// wrap<Name> adopts a handle; for retain-counted classes the wrapper
	// releases its reference when collected.
	wrap := f.Func().Id(wrapName(c.Name)).Params(
		jen.Id("obj").Qual(objcPkg, "Object"),
	).Op("*").Id(c.Name)
	wrap.BlockFunc(func(g *jen.Group) {
		g.If(jen.Id("obj").Op("==").Lit(0)).Block(jen.Return(jen.Nil()))
		g.Id("w").Op(":=").Op("&").Id(c.Name).Values(jen.Id("obj").Op(":").Id("obj"))
		if c.RefCounted {
			g.Qual("runtime", "SetFinalizer").Call(
				jen.Id("w"),
				jen.Func().Params(jen.Id("w").Op("*").Id(c.Name)).Block(
					jen.Qual(objcPkg, "Release").Call(jen.Id("w").Dot("obj")),
				),
			)
		}
		g.Return(jen.Id("w"))
	})
}

func (e *Emitter) writeConstructor(f *jen.File, c synthesis.ClassBinding, ctor synthesis.MethodBinding) {
	f.Commentf("%s allocates a %s and sends %s.", ctor.Name, c.Name, ctor.Selector)
	fn := f.Func().Id(ctor.Name).ParamsFunc(func(g *jen.Group) {
		writeParams(g, ctor.Params)
	}).Op("*").Id(c.Name)

	fn.BlockFunc(func(g *jen.Group) {
		g.Id("obj").Op(":=").Qual(objcPkg, "Alloc").Call(
			jen.Qual(objcPkg, "GetClass").Call(jen.Lit(c.Name)),
		)
		call := sendCall("MsgSend", jen.Id("obj"), ctor.Selector, ctor.Params)
		g.Id("ret").Op(":=").Add(call)
		g.Return(jen.Id(wrapName(c.Name)).Call(
			jen.Qual(objcPkg, "Object").Call(jen.Id("ret")),
		))
	})
}

func (e *Emitter) writeMethod(f *jen.File, c synthesis.ClassBinding, m synthesis.MethodBinding) {
	name := exported(m.Name)
	if c.RefCounted && !m.ClassMethod && name == "Release" {
		// manual retain-count plumbing is expressed through the
		// generated Release/finalizer surface instead
		return
	}
	if m.Deprecated {
		f.Commentf("Deprecated: the foreign %s declaration is deprecated.", m.Selector)
	}

	var fn *jen.Statement
	var recv jen.Code
	if m.ClassMethod {
		// class methods become package functions prefixed by the class
		fn = f.Func().Id(c.Name + name)
		recv = jen.Qual(objcPkg, "Object").Call(
			jen.Qual(objcPkg, "GetClass").Call(jen.Lit(c.Name)),
		)
	} else {
		fn = f.Func().Params(jen.Id("x").Op("*").Id(c.Name)).Id(name)
		recv = jen.Id("x").Dot("obj")
	}

	fn.ParamsFunc(func(g *jen.Group) {
		writeParams(g, m.Params)
	})
	if !isVoid(m.Return.Type) {
		fn.Add(goType(m.Return.Type))
	}

	fn.BlockFunc(func(g *jen.Group) {
		writeBody(g, recv, m)
	})
}

// writeRelease gives retain-counted wrappers an explicit hand-back of
// their reference ahead of the finalizer.
func (e *Emitter) writeRelease(f *jen.File, c synthesis.ClassBinding) {
	f.Commentf("Release drops %s's reference immediately instead of waiting for the finalizer.", c.Name)
	f.Func().Params(jen.Id("x").Op("*").Id(c.Name)).Id("Release").Params().Block(
		jen.Qual("runtime", "SetFinalizer").Call(jen.Id("x"), jen.Nil()),
		jen.Qual(objcPkg, "Release").Call(jen.Id("x").Dot("obj")),
		jen.Id("x").Dot("obj").Op("=").Lit(0),
	)
}

// writeBody emits the dispatch statement plus the return conversion for
// one method.
func writeBody(g *jen.Group, recv jen.Code, m synthesis.MethodBinding) {
	ret := m.Return.Type
	switch {
	case isVoid(ret):
		g.Add(sendCall("MsgSend", recv, m.Selector, m.Params))
	case ret.Kind == decl.KindPrimitive && (ret.Prim == decl.PrimFloat32 || ret.Prim == decl.PrimFloat64):
		call := sendCall("MsgSendFloat", recv, m.Selector, m.Params)
		if ret.Prim == decl.PrimFloat32 {
			g.Return(jen.Id("float32").Call(call))
		} else {
			g.Return(call)
		}
	case ret.Kind == decl.KindStruct:
		g.Var().Id("out").Id(ret.Name)
		g.Add(sendCallStret(recv, m.Selector, m.Params))
		g.Return(jen.Id("out"))
	case ret.Kind == decl.KindPrimitive && ret.Prim == decl.PrimBool:
		g.Id("ret").Op(":=").Add(sendCall("MsgSend", recv, m.Selector, m.Params))
		g.Return(jen.Id("ret").Op("!=").Lit(0))
	case ret.Kind == decl.KindPrimitive:
		g.Id("ret").Op(":=").Add(sendCall("MsgSend", recv, m.Selector, m.Params))
		g.Return(jen.Id(ret.Prim.GoName()).Call(jen.Id("ret")))
	case ret.Kind == decl.KindBlock:
		g.Id("ret").Op(":=").Add(sendCall("MsgSend", recv, m.Selector, m.Params))
		g.Return(jen.Qual(objcPkg, "Block").Call(jen.Id("ret")))
	case ret.Kind == decl.KindObject:
		g.Id("ret").Op(":=").Add(sendCall("MsgSend", recv, m.Selector, m.Params))
		writeObjectReturn(g, m.Return)
	}
}

// writeObjectReturn converts the raw word into a handle, honoring the
// resolved ownership: autoreleased returns are claimed before the
// wrapper takes over the reference.
func writeObjectReturn(g *jen.Group, ret synthesis.ReturnBinding) {
	obj := jen.Qual(objcPkg, "Object").Call(jen.Id("ret"))
	if ret.Own == decl.Autoreleased {
		obj = jen.Qual(objcPkg, "RetainAutoreleased").Call(jen.Id("ret"))
	}
	if ret.Type.Class == "" {
		g.Return(obj)
		return
	}
	g.Return(jen.Id(wrapName(ret.Type.Class)).Call(obj))
}

func writeParams(g *jen.Group, params []synthesis.ParamBinding) {
	for _, p := range params {
		g.Id(p.Name).Add(goType(p.Type))
	}
}

// sendCall builds objc.<fn>(recv, objc.Selector("sel"), args...).
func sendCall(fn string, recv jen.Code, selector string, params []synthesis.ParamBinding) *jen.Statement {
	return jen.Qual(objcPkg, fn).CallFunc(func(g *jen.Group) {
		g.Add(recv)
		g.Qual(objcPkg, "Selector").Call(jen.Lit(selector))
		for _, p := range params {
			g.Add(argExpr(p))
		}
	})
}

func sendCallStret(recv jen.Code, selector string, params []synthesis.ParamBinding) *jen.Statement {
	return jen.Qual(objcPkg, "MsgSendStret").CallFunc(func(g *jen.Group) {
		g.Id("uintptr").Call(jen.Qual("unsafe", "Pointer").Call(jen.Op("&").Id("out")))
		g.Add(recv)
		g.Qual(objcPkg, "Selector").Call(jen.Lit(selector))
		for _, p := range params {
			g.Add(argExpr(p))
		}
	})
}

// argExpr converts one parameter to the word the dispatcher carries.
func argExpr(p synthesis.ParamBinding) jen.Code {
	t := p.Type
	switch t.Kind {
	case decl.KindObject:
		if t.Class == "" {
			return jen.Id("uintptr").Call(jen.Id(p.Name))
		}
		handle := jen.Id(p.Name).Dot("obj")
		if p.Own == decl.Owned {
			// callee consumes the reference: pass it at +1
			return jen.Id("uintptr").Call(jen.Qual(objcPkg, "Retain").Call(handle))
		}
		return jen.Id("uintptr").Call(handle)
	case decl.KindStruct:
		return jen.Id("uintptr").Call(jen.Qual("unsafe", "Pointer").Call(jen.Op("&").Id(p.Name)))
	case decl.KindBlock:
		return jen.Id("uintptr").Call(jen.Id(p.Name))
	default:
		switch t.Prim {
		case decl.PrimBool:
			return jen.Qual(objcPkg, "Bool").Call(jen.Id(p.Name))
		case decl.PrimFloat32:
			return jen.Qual(objcPkg, "Float").Call(jen.Id("float64").Call(jen.Id(p.Name)))
		case decl.PrimFloat64:
			return jen.Qual(objcPkg, "Float").Call(jen.Id(p.Name))
		default:
			return jen.Id("uintptr").Call(jen.Id(p.Name))
		}
	}
}

// fieldType is goType restricted to C-layout records: object members
// stay raw handles, because the runtime writes plain object words into
// the record and a Go wrapper pointer there would be overwritten.
func fieldType(t decl.TypeRef) *jen.Statement {
	if t.Kind == decl.KindObject {
		return jen.Qual(objcPkg, "Object")
	}
	return goType(t)
}

// goType is the target-language spelling of a mapped type.
func goType(t decl.TypeRef) *jen.Statement {
	switch t.Kind {
	case decl.KindPrimitive:
		return jen.Id(t.Prim.GoName())
	case decl.KindObject:
		if t.Class == "" {
			return jen.Qual(objcPkg, "Object")
		}
		return jen.Op("*").Id(t.Class)
	case decl.KindStruct:
		return jen.Id(t.Name)
	case decl.KindBlock:
		return jen.Qual(objcPkg, "Block")
	}
	return jen.Id("uintptr")
}

// collectStructs walks every binding for record types, deduplicated and
// sorted by name for reproducible output.
func collectStructs(plan *synthesis.Plan) []decl.TypeRef {
	found := map[string]decl.TypeRef{}
	var walk func(t decl.TypeRef)
	walk = func(t decl.TypeRef) {
		switch t.Kind {
		case decl.KindStruct:
			if _, ok := found[t.Name]; !ok {
				found[t.Name] = t
				for _, f := range t.Fields {
					walk(f.Type)
				}
			}
		case decl.KindBlock:
			for _, p := range t.Params {
				walk(p)
			}
			if t.Return != nil {
				walk(*t.Return)
			}
		}
	}
	walkBinding := func(m synthesis.MethodBinding) {
		walk(m.Return.Type)
		for _, p := range m.Params {
			walk(p.Type)
		}
	}
	// iterate the plan's slices in place; the plan is immutable here
	for _, c := range plan.Bound() {
		for _, m := range c.Constructors {
			walkBinding(m)
		}
		for _, m := range c.Methods {
			walkBinding(m)
		}
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]decl.TypeRef, 0, len(names))
	for _, name := range names {
		out = append(out, found[name])
	}
	return out
}

func isVoid(t decl.TypeRef) bool {
	return t.Kind == decl.KindPrimitive && t.Prim == decl.PrimVoid
}

func wrapName(class string) string {
	return "wrap" + class
}

// exported upper-cases the first rune of a mangled identifier.
func exported(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
