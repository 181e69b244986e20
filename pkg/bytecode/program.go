package bytecode

// Program is the full compiled unit the interpreter runs: every
// Function/StructDef/ClassDef/ProcessDef the compiler produced, the
// global-variable name table (index-addressed at runtime, name-verified
// at load time), and the entry function index. NativeClassDef/
// NativeStructDef instances are not stored here — they live in the
// host's natives.Registry and are linked into ClassDef.NativeSuper by
// the loader, since they are supplied by the host, not compiled.
type Program struct {
	Functions     []*Function
	Structs       []*StructDef
	Classes       []*ClassDef
	Processes     []*ProcessDef
	GlobalNames   []string
	EntryFunction int32
}

func NewProgram() *Program {
	return &Program{EntryFunction: -1}
}

func (p *Program) AddFunction(fn *Function) int32 {
	p.Functions = append(p.Functions, fn)
	return int32(len(p.Functions) - 1)
}

func (p *Program) AddStruct(s *StructDef) int32 {
	p.Structs = append(p.Structs, s)
	return int32(len(p.Structs) - 1)
}

func (p *Program) AddClass(c *ClassDef) int32 {
	p.Classes = append(p.Classes, c)
	return int32(len(p.Classes) - 1)
}

func (p *Program) AddProcess(pd *ProcessDef) int32 {
	p.Processes = append(p.Processes, pd)
	return int32(len(p.Processes) - 1)
}

// AddGlobal appends a new global slot name and returns its index. The
// loader restores these names in file order and does not check them
// against any host-side global table; every slot starts as Nil.
func (p *Program) AddGlobal(name string) int32 {
	p.GlobalNames = append(p.GlobalNames, name)
	return int32(len(p.GlobalNames) - 1)
}

func (p *Program) Function(idx int32) *Function {
	if idx < 0 || int(idx) >= len(p.Functions) {
		return nil
	}
	return p.Functions[idx]
}

func (p *Program) Struct(idx int32) *StructDef {
	if idx < 0 || int(idx) >= len(p.Structs) {
		return nil
	}
	return p.Structs[idx]
}

func (p *Program) Class(idx int32) *ClassDef {
	if idx < 0 || int(idx) >= len(p.Classes) {
		return nil
	}
	return p.Classes[idx]
}

func (p *Program) Process(idx int32) *ProcessDef {
	if idx < 0 || int(idx) >= len(p.Processes) {
		return nil
	}
	return p.Processes[idx]
}
