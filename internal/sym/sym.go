// Package sym implements the symbol table, scope stack, and the
// compile-time registries (return types, parameter types, classes,
// unions, aliases, templates) that internal/codegen consults while
// lowering one translation unit.
package sym

import (
	"fmt"

	"github.com/llir/llvm/ir/value"

	"github.com/yohashinoio/twkl/internal/types"
)

// Variable is a named, addressable storage location: a local, a
// parameter, or a global. LLValue holds the back-end handle once
// codegen has materialized it: the alloca of a mutable binding, or the
// value itself for an immutable local or a parameter; it is nil until
// then.
type Variable struct {
	Name    string
	Type    types.Type
	Mutable bool
	LLValue value.Value
}

// Scope is one lexical level of local bindings.
type Scope struct {
	vars map[string]*Variable
}

func newScope() *Scope {
	return &Scope{vars: make(map[string]*Variable)}
}

// Table is a stack of lexical scopes for one function body, plus a
// reference to the enclosing translation unit's global scope.
type Table struct {
	global *Scope
	scopes []*Scope
}

// NewTable creates a symbol table with just the global scope pushed.
func NewTable() *Table {
	t := &Table{global: newScope()}
	return t
}

// PushScope opens a new lexical scope.
func (t *Table) PushScope() {
	t.scopes = append(t.scopes, newScope())
}

// PopScope closes the innermost lexical scope.
func (t *Table) PopScope() {
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Define inserts v into the innermost open scope, or the global scope
// if none is open. It reports false if the name is already defined in
// that same scope.
func (t *Table) Define(v *Variable) bool {
	s := t.current()
	if _, exists := s.vars[v.Name]; exists {
		return false
	}
	s.vars[v.Name] = v
	return true
}

// Lookup searches the scope stack innermost-first, then the global
// scope, following the copy-and-overlay merge semantics described by
// Merge below rather than literally copying at each push.
func (t *Table) Lookup(name string) (*Variable, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if v, ok := t.scopes[i].vars[name]; ok {
			return v, true
		}
	}
	if v, ok := t.global.vars[name]; ok {
		return v, true
	}
	return nil, false
}

func (t *Table) current() *Scope {
	if len(t.scopes) == 0 {
		return t.global
	}
	return t.scopes[len(t.scopes)-1]
}

// InnermostVars returns the bindings of the innermost open scope. The
// destructor scheduler in internal/codegen does not call it; it keeps
// each scope's class-typed locals in its own frames.
func (t *Table) InnermostVars() []*Variable {
	s := t.current()
	out := make([]*Variable, 0, len(s.vars))
	for _, v := range s.vars {
		out = append(out, v)
	}
	return out
}

// Merge produces a new scope holding parent's bindings overlaid by
// local's, copy-and-overlay rather than mutating either input. This is
// the Go rendition of the original compiler's mergeSymbolTables. Table
// does not use it (Lookup walks the scope stack instead), and no match
// arm or else-if branch lowering calls it.
func Merge(parent, local *Scope) *Scope {
	out := newScope()
	for k, v := range parent.vars {
		out.vars[k] = v
	}
	for k, v := range local.vars {
		out.vars[k] = v
	}
	return out
}

// NamespaceKind distinguishes a plain namespace from a class acting as
// a namespace for its own members.
type NamespaceKind int

const (
	NSNamespace NamespaceKind = iota
	NSClass
)

// Namespace is one entry of a NamespaceStack.
type Namespace struct {
	Name string
	Kind NamespaceKind
}

// NamespaceStack tracks the nested namespace/class path the lowering
// pass is currently inside, consulted by the mangler and by template
// instantiation memoization.
type NamespaceStack struct {
	entries []Namespace
}

// Push opens a new namespace or class scope.
func (ns *NamespaceStack) Push(n Namespace) { ns.entries = append(ns.entries, n) }

// Pop closes the innermost namespace or class scope.
func (ns *NamespaceStack) Pop() { ns.entries = ns.entries[:len(ns.entries)-1] }

// Top returns the innermost namespace entry, if any.
func (ns *NamespaceStack) Top() (Namespace, bool) {
	if len(ns.entries) == 0 {
		return Namespace{}, false
	}
	return ns.entries[len(ns.entries)-1], true
}

// Entries returns the namespace path from outermost to innermost.
func (ns *NamespaceStack) Entries() []Namespace {
	return ns.entries
}

// Path renders the stack as a "::"-joined qualified path prefix.
func (ns *NamespaceStack) Path() string {
	out := ""
	for i, e := range ns.entries {
		if i > 0 {
			out += "::"
		}
		out += e.Name
	}
	return out
}

// Qualify joins the current namespace path with name.
func (ns *NamespaceStack) Qualify(name string) string {
	if p := ns.Path(); p != "" {
		return p + "::" + name
	}
	return name
}

// Key renders the stack into a comparable string, used as part of a
// TemplateKey below.
func (ns *NamespaceStack) Key() string { return ns.Path() }

// Class holds the resolved layout and method set of a user-defined
// class type, keyed in Registries.Classes by qualified name.
type Class struct {
	QualName   string
	Fields     []types.Type
	FieldNames []string
	Methods    map[string]*types.Func
	HasDtor    bool
}

// FieldIndex returns the struct field index of name, or -1.
func (c *Class) FieldIndex(name string) int {
	for i, n := range c.FieldNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Union holds the variant layout of a user-defined union type.
type Union struct {
	QualName string
	Variants []types.Type
	Names    []string
}

// FuncTemplate holds the unlowered AST body of a generic function,
// instantiated lazily on first call with concrete type arguments.
type FuncTemplate struct {
	QualName   string
	TypeParams []string
	Decl       interface{} // *ast.FuncDef, kept opaque to avoid an import cycle
}

// ClassTemplate holds the unlowered AST body of a generic class.
type ClassTemplate struct {
	QualName   string
	TypeParams []string
	Decl       interface{} // *ast.ClassDef
}

// TemplateKey memoizes an instantiation by template name, the
// concrete type arguments applied, and the namespace it was
// instantiated from, following the original compiler's
// name/arity/namespace tuple key.
type TemplateKey struct {
	Name      string
	Args      string // types.Type.Repr() joined with ","
	Namespace string
}

// NewTemplateKey builds a TemplateKey from concrete type arguments.
func NewTemplateKey(name string, args []types.Type, ns *NamespaceStack) TemplateKey {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ","
		}
		s += a.Repr()
	}
	return TemplateKey{Name: name, Args: s, Namespace: ns.Key()}
}

// Registries bundles every compile-time table the original compiler's
// CGContext keeps as separate maps: return/parameter types for name
// mangling and call checking, user-defined classes/unions/aliases,
// and memoized template instantiations.
type Registries struct {
	ReturnTypes       map[string]types.Type
	ParamTypes        map[string][]types.Type
	Classes           map[string]*Class
	Unions            map[string]*Union
	Aliases           map[string]types.Type
	FuncTemplates     map[string]*FuncTemplate
	ClassTemplates    map[string]*ClassTemplate
	CreatedFuncTmpls  map[TemplateKey]string // memoized instantiation -> its qualified name (e.g. "id$i32")
	CreatedClassTmpls map[TemplateKey]string

	// TemplateArgStack tracks the type arguments currently bound while
	// lowering the body of a template instantiation. Lowering pushes and
	// pops frames here, but ResolveTypeParam, the only reader, has no
	// caller in lowering.
	TemplateArgStack []map[string]types.Type
}

// NewRegistries creates an empty registry set.
func NewRegistries() *Registries {
	return &Registries{
		ReturnTypes:       make(map[string]types.Type),
		ParamTypes:        make(map[string][]types.Type),
		Classes:           make(map[string]*Class),
		Unions:            make(map[string]*Union),
		Aliases:           make(map[string]types.Type),
		FuncTemplates:     make(map[string]*FuncTemplate),
		ClassTemplates:    make(map[string]*ClassTemplate),
		CreatedFuncTmpls:  make(map[TemplateKey]string),
		CreatedClassTmpls: make(map[TemplateKey]string),
	}
}

// PushTemplateArgs binds a template's type parameters for the
// duration of one instantiation's lowering.
func (r *Registries) PushTemplateArgs(args map[string]types.Type) {
	r.TemplateArgStack = append(r.TemplateArgStack, args)
}

// PopTemplateArgs unbinds the innermost template argument frame.
func (r *Registries) PopTemplateArgs() {
	r.TemplateArgStack = r.TemplateArgStack[:len(r.TemplateArgStack)-1]
}

// ResolveTypeParam resolves a bare type parameter name against the
// innermost active template argument frame.
func (r *Registries) ResolveTypeParam(name string) (types.Type, bool) {
	for i := len(r.TemplateArgStack) - 1; i >= 0; i-- {
		if t, ok := r.TemplateArgStack[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (c *Class) String() string {
	return fmt.Sprintf("class %s (%d fields)", c.QualName, len(c.Fields))
}
