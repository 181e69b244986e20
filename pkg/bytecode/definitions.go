package bytecode

import (
	"github.com/bu-lang/bu/pkg/privates"
	"github.com/bu-lang/bu/pkg/value"
)

// FieldDef is one instance field slot: its name (kept for disassembly and
// debugger field-name lookups) and the default Value installed when a new
// instance's field array is populated, root-most ancestor first.
type FieldDef struct {
	Name    string
	Default value.Value
}

// UpvalueDesc tells a closure's constructor where to capture each upvalue
// from: either the enclosing frame's local slot array, or the enclosing
// closure's own upvalue array (for a closure nested inside a closure).
type UpvalueDesc struct {
	FromParentLocal bool
	Index           int
}

// Function is a compiled script function: a parameter/local frame shape
// plus the Code it runs. Blocks, methods, and the top-level script body
// are all Functions; ParentLocalCount lets a block share its enclosing
// frame's locals instead of allocating its own.
type Function struct {
	Name             string
	ParamCount       int
	LocalCount       int
	ParentLocalCount int
	Upvalues         []UpvalueDesc
	Code             *Code
}

// NewFunction allocates a Function with an empty Code body the compiler
// appends instructions to.
func NewFunction(name string, paramCount, localCount, parentLocalCount int) *Function {
	return &Function{
		Name:             name,
		ParamCount:       paramCount,
		LocalCount:       localCount,
		ParentLocalCount: parentLocalCount,
		Code:             NewCode(),
	}
}

// StructDef is a value-type blueprint: plain data, no methods, no
// inheritance. NewStructInstance allocates len(Fields) slots and installs
// each FieldDef's Default.
type StructDef struct {
	Name   string
	Fields []FieldDef
}

func NewStructDef(name string, fields []FieldDef) *StructDef {
	return &StructDef{Name: name, Fields: fields}
}

// ClassDef is a script class: instance fields (own only; AllFields adds
// every ancestor's, root-most first), class variables (shared storage, not per-instance),
// instance methods, and class (static) methods. Super is nil for a
// root class; a class may instead inherit a NativeClass, in which case
// NativeSuper is set and Super is nil.
type ClassDef struct {
	Name         string
	Super        *ClassDef
	NativeSuper  *NativeClassDef
	Fields       []FieldDef
	ClassVars    map[string]value.Value
	Methods      map[string]*Function
	ClassMethods map[string]*Function
}

func NewClassDef(name string, super *ClassDef) *ClassDef {
	return &ClassDef{
		Name:         name,
		Super:        super,
		ClassVars:    make(map[string]value.Value),
		Methods:      make(map[string]*Function),
		ClassMethods: make(map[string]*Function),
	}
}

// AllFields walks the inheritance chain root-most first, concatenating
// every ancestor's own field defs with this class's own fields. This is
// the order the class-instance constructor installs defaults in.
func (c *ClassDef) AllFields() []FieldDef {
	var chain []*ClassDef
	for cur := c; cur != nil; cur = cur.Super {
		chain = append(chain, cur)
	}
	var fields []FieldDef
	for i := len(chain) - 1; i >= 0; i-- {
		fields = append(fields, chain[i].Fields...)
	}
	return fields
}

// ResolveMethod walks Self then Super looking for selector, returning the
// defining class alongside the method so SUPER_CALL_METHOD can resume
// the search one level higher.
func (c *ClassDef) ResolveMethod(selector string) (*Function, *ClassDef) {
	for cur := c; cur != nil; cur = cur.Super {
		if fn, ok := cur.Methods[selector]; ok {
			return fn, cur
		}
	}
	return nil, nil
}

// NativeGetter/NativeSetter back a native class or struct property. A nil
// Setter makes the property read-only from script code.
type NativeGetter func(userdata any) value.Value
type NativeSetter func(userdata any, v value.Value)

type Property struct {
	Get NativeGetter
	Set NativeSetter
}

// NativeMethod is a host function bound as an instance method on a
// NativeClassDef. vm is typed any to avoid pkg/bytecode importing pkg/vm.
type NativeMethod func(vm any, self value.Value, args []value.Value) (value.Value, error)

// NativeConstructor builds the userdata payload for a new native class
// instance from the constructor call's arguments.
type NativeConstructor func(args []value.Value) (userdata any, err error)

// NativeClassDef is a host-implemented class: userdata opaque to the
// script, exposed through Methods and Properties. A script ClassDef may
// inherit one via NativeSuper, layering script fields/methods on top of
// the native instance's behavior.
type NativeClassDef struct {
	Name        string
	Constructor NativeConstructor
	Destroy     value.NativeDestructor
	Methods     map[string]NativeMethod
	Properties  map[string]Property
}

func NewNativeClassDef(name string) *NativeClassDef {
	return &NativeClassDef{
		Name:       name,
		Methods:    make(map[string]NativeMethod),
		Properties: make(map[string]Property),
	}
}

// NativeStructDef is a host-implemented value type: opaque Data, exposed
// read/write through Properties only (no methods, matching StructDef's
// "plain data" contract).
type NativeStructDef struct {
	Name       string
	Properties map[string]Property
}

func NewNativeStructDef(name string) *NativeStructDef {
	return &NativeStructDef{Name: name, Properties: make(map[string]Property)}
}

// ProcessDef is a schedulable blueprint: a single compiled Body (the
// `process` declaration's statement list, with its inline frame()/exit
// points) plus whatever ordinary methods and fields the declaration
// also defines. Spawning never calls a selector to get a process
// started — the scheduler pushes Body directly onto the new instance's
// fiber as its first and only top-level frame, and that frame simply
// sits there, unexecuted, until the scheduler's own Update pass drives
// it. ClassDef is embedded so a process can still declare and call
// ordinary helper methods and inherit from another process, the same
// way a class does.
type ProcessDef struct {
	*ClassDef
	Body *Function

	// PrivateValues is the blueprint's own privates array: every slot at
	// its factory default, except those the declaration's initializers
	// override. spawnScript clones this array verbatim into every new
	// instance, the same way it clones Body onto the instance's fiber.
	PrivateValues [privates.Count]value.Value
}

// NewProcessDef builds a blueprint with every private slot at its
// factory default; the compiler overwrites individual slots as it
// folds the declaration's private-variable initializers.
func NewProcessDef(name string, super *ProcessDef) *ProcessDef {
	var superClass *ClassDef
	if super != nil {
		superClass = super.ClassDef
	}
	pd := &ProcessDef{ClassDef: NewClassDef(name, superClass)}
	pd.PrivateValues = privates.Defaults()
	return pd
}
