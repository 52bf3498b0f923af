// Package objc is the runtime support contract generated wrappers link
// against. The generator does not reimplement message dispatch or
// reference counting: the host process supplies both by installing a
// Dispatcher (typically a thin cgo shim over libobjc) before any wrapper
// is used. Everything here is the boundary surface, nothing more.
package objc

import "math"

// Object is an opaque handle to a foreign runtime object. The zero
// Object is nil.
type Object uintptr

// Class is an opaque handle to a foreign runtime class.
type Class uintptr

// Selector is a foreign method selector in its source spelling,
// colons included. Dispatchers are expected to intern selectors on
// first use.
type Selector string

// Block is an opaque handle to a foreign block value.
type Block uintptr

// Dispatcher is the set of runtime entry points a wrapper needs. The
// method set mirrors the foreign runtime's C surface: objc_msgSend and
// friends, the retain/release pair, and the autorelease handshake.
type Dispatcher interface {
	GetClass(name string) Class
	Alloc(cls Class) Object

	// MsgSend performs a message send returning a word-sized value
	// (or nothing). MsgSendFloat and MsgSendStret cover the two other
	// ABI return shapes.
	MsgSend(recv Object, sel Selector, args ...uintptr) uintptr
	MsgSendFloat(recv Object, sel Selector, args ...uintptr) float64
	MsgSendStret(out uintptr, recv Object, sel Selector, args ...uintptr)

	Retain(obj Object) Object
	Release(obj Object)

	// RetainAutoreleased claims an autoreleased return value,
	// cooperating with the runtime's return-value optimization.
	RetainAutoreleased(ret uintptr) Object
}

var dispatcher Dispatcher

// Use installs the process-wide dispatcher. Call it once, before any
// generated wrapper runs.
func Use(d Dispatcher) {
	dispatcher = d
}

func must() Dispatcher {
	if dispatcher == nil {
		panic("objc: no Dispatcher installed; call objc.Use first")
	}
	return dispatcher
}

func GetClass(name string) Class { return must().GetClass(name) }
func Alloc(cls Class) Object     { return must().Alloc(cls) }

func MsgSend(recv Object, sel Selector, args ...uintptr) uintptr {
	return must().MsgSend(recv, sel, args...)
}

func MsgSendFloat(recv Object, sel Selector, args ...uintptr) float64 {
	return must().MsgSendFloat(recv, sel, args...)
}

func MsgSendStret(out uintptr, recv Object, sel Selector, args ...uintptr) {
	must().MsgSendStret(out, recv, sel, args...)
}

func Retain(obj Object) Object { return must().Retain(obj) }
func Release(obj Object)       { must().Release(obj) }

func RetainAutoreleased(ret uintptr) Object {
	return must().RetainAutoreleased(ret)
}

// Bool converts a Go bool to the word the dispatcher passes through.
func Bool(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

// Float passes a floating argument through the word channel; the
// dispatcher is responsible for placing it per the calling convention.
func Float(f float64) uintptr {
	return uintptr(math.Float64bits(f))
}
