// Package mangle computes the deterministic link-name encoding used
// for every function and global the codegen pass emits, so that
// overloaded and namespaced names don't collide in the back end's
// single flat symbol table.
package mangle

import (
	"strconv"
	"strings"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/sym"
	"github.com/yohashinoio/twkl/internal/types"
)

// NoMangleAttrs lists the attribute names that suppress mangling
// entirely, leaving the source name as the link name -- the same set
// the teacher recognizes in generate/gen_defs.go's
// noMangleAnnotations, renamed to this language's attribute spelling.
var NoMangleAttrs = []string{"nomangle", "entry", "extern", "dllexport", "dllimport"}

// IsNoMangle reports whether attrs contains any attribute that
// suppresses mangling.
func IsNoMangle(attrs []ast.Attribute) bool {
	for _, name := range NoMangleAttrs {
		if ast.HasAttr(attrs, name) {
			return true
		}
	}
	return false
}

// Func computes the mangled name for a free function or method. Each
// namespace segment is tagged N (namespace) or C (class) so that a
// class and a same-named namespace never collide, followed by the
// function name, an accessibility tag, and the parameter type
// signatures -- mirroring the (namespace path, name, param types)
// identity the teacher's CGContext registries key functions by.
func Func(ns *sym.NamespaceStack, name string, vis ast.Visibility, params []types.Type) string {
	var sb strings.Builder
	sb.WriteString("_T")

	if ns != nil {
		for _, seg := range pathSegments(ns) {
			tag := "N"
			if seg.Kind == sym.NSClass {
				tag = "C"
			}
			sb.WriteString(tag)
			sb.WriteString(strconv.Itoa(len(seg.Name)))
			sb.WriteString(seg.Name)
		}
	}

	sb.WriteString("F")
	sb.WriteString(strconv.Itoa(len(name)))
	sb.WriteString(name)

	if vis == ast.Public {
		sb.WriteString("Pb")
	} else {
		sb.WriteString("Pv")
	}

	if len(params) == 0 {
		sb.WriteString("v")
	}
	for _, p := range params {
		sb.WriteString(encodeType(p))
	}

	return sb.String()
}

// Global computes the mangled name for a namespaced global variable.
func Global(ns *sym.NamespaceStack, name string) string {
	var sb strings.Builder
	sb.WriteString("_T")
	if ns != nil {
		for _, seg := range pathSegments(ns) {
			tag := "N"
			if seg.Kind == sym.NSClass {
				tag = "C"
			}
			sb.WriteString(tag)
			sb.WriteString(strconv.Itoa(len(seg.Name)))
			sb.WriteString(seg.Name)
		}
	}
	sb.WriteString("G")
	sb.WriteString(strconv.Itoa(len(name)))
	sb.WriteString(name)
	return sb.String()
}

// Ctor computes a class's constructor link name -- reserved suffix
// "C1" after the class's own mangled namespace entry.
func Ctor(ns *sym.NamespaceStack, className string, params []types.Type) string {
	return Func(ns, className+"$C1", ast.Public, params)
}

// Dtor computes a class's destructor link name -- reserved suffix "D1".
func Dtor(ns *sym.NamespaceStack, className string) string {
	return Func(ns, className+"$D1", ast.Public, nil)
}

func pathSegments(ns *sym.NamespaceStack) []sym.Namespace {
	return ns.Entries()
}

// DtorOf and CtorOf compute a class's destructor/constructor link name
// from its fully qualified name alone, independent of whatever
// namespace the call site happens to be lowering inside -- unlike
// Dtor/Ctor above, which mangle relative to an ambient NamespaceStack.
func DtorOf(qualName string) string {
	ns, simple := stackFromQualName(qualName)
	return Dtor(ns, simple)
}

func CtorOf(qualName string, params []types.Type) string {
	ns, simple := stackFromQualName(qualName)
	return Ctor(ns, simple, params)
}

func stackFromQualName(qualName string) (*sym.NamespaceStack, string) {
	parts := strings.Split(qualName, "::")
	ns := &sym.NamespaceStack{}
	for _, p := range parts[:len(parts)-1] {
		ns.Push(sym.Namespace{Name: p, Kind: sym.NSNamespace})
	}
	return ns, parts[len(parts)-1]
}

func encodeType(t types.Type) string {
	switch v := t.(type) {
	case types.Builtin:
		return "b" + strconv.Itoa(int(v))
	case *types.Pointer:
		return "P" + encodeType(v.Elem)
	case *types.Reference:
		return "R" + encodeType(v.Elem)
	case *types.Array:
		return "A" + strconv.Itoa(v.Len) + encodeType(v.Elem)
	case *types.Named:
		return "N" + strconv.Itoa(len(v.QualName)) + v.QualName
	case *types.UserDefinedTemplate:
		qn := v.MangledName()
		return "N" + strconv.Itoa(len(qn)) + qn
	case *types.Func:
		var sb strings.Builder
		sb.WriteString("Fn")
		for _, p := range v.Params {
			sb.WriteString(encodeType(p))
		}
		sb.WriteString("E")
		sb.WriteString(encodeType(v.Return))
		return sb.String()
	}
	return "u"
}
