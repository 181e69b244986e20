package bytefile

import (
	"github.com/bu-lang/bu/pkg/bytecode"
	"github.com/bu-lang/bu/pkg/natives"
	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
)

// function_record: name, param/local/parent-local counts, upvalue
// descriptors, then the owned Code (instructions + line table +
// constant pool).
func writeFunction(bw *byteWriter, fn *bytecode.Function) {
	bw.writeString(fn.Name)
	bw.writeI32(int32(fn.ParamCount))
	bw.writeI32(int32(fn.LocalCount))
	bw.writeI32(int32(fn.ParentLocalCount))

	bw.writeU32(uint32(len(fn.Upvalues)))
	for _, uv := range fn.Upvalues {
		bw.writeBool(uv.FromParentLocal)
		bw.writeI32(int32(uv.Index))
	}
	writeCode(bw, fn.Code)
}

func readFunction(br *byteReader, pool *strintern.Pool) (*bytecode.Function, error) {
	name := br.readString()
	paramCount := int(br.readI32())
	localCount := int(br.readI32())
	parentLocalCount := int(br.readI32())

	fn := bytecode.NewFunction(name, paramCount, localCount, parentLocalCount)
	upCount := br.readU32()
	fn.Upvalues = make([]bytecode.UpvalueDesc, upCount)
	for i := range fn.Upvalues {
		fromParent := br.readBool()
		idx := int(br.readI32())
		fn.Upvalues[i] = bytecode.UpvalueDesc{FromParentLocal: fromParent, Index: idx}
	}
	fn.Code = readCode(br, pool)
	return fn, br.err
}

// Code carries its own instruction stream, line table, and constant pool.
func writeCode(bw *byteWriter, code *bytecode.Code) {
	bw.writeU32(uint32(len(code.Instructions)))
	for i, inst := range code.Instructions {
		bw.writeByte(byte(inst.Op))
		bw.writeI32(inst.Operand)
		bw.writeU32(code.Lines[i])
	}
	bw.writeU32(uint32(len(code.Constants)))
	for _, c := range code.Constants {
		writeValue(bw, c)
	}
}

func readCode(br *byteReader, pool *strintern.Pool) *bytecode.Code {
	code := bytecode.NewCode()
	instrCount := br.readU32()
	code.Instructions = make([]bytecode.Instruction, instrCount)
	code.Lines = make([]uint32, instrCount)
	for i := range code.Instructions {
		op := bytecode.Opcode(br.readByte())
		operand := br.readI32()
		line := br.readU32()
		code.Instructions[i] = bytecode.Instruction{Op: op, Operand: operand}
		code.Lines[i] = line
	}
	constCount := br.readU32()
	code.Constants = make([]value.Value, 0, constCount)
	for i := uint32(0); i < constCount; i++ {
		code.Constants = append(code.Constants, readValue(br, pool))
	}
	return code
}

// struct_record: name, then each FieldDef (name + default value).
func writeStruct(bw *byteWriter, sd *bytecode.StructDef) {
	bw.writeString(sd.Name)
	bw.writeU32(uint32(len(sd.Fields)))
	for _, f := range sd.Fields {
		bw.writeString(f.Name)
		writeValue(bw, f.Default)
	}
}

func readStruct(br *byteReader, pool *strintern.Pool) (*bytecode.StructDef, error) {
	name := br.readString()
	count := br.readU32()
	fields := make([]bytecode.FieldDef, count)
	for i := range fields {
		fname := br.readString()
		def := readValue(br, pool)
		fields[i] = bytecode.FieldDef{Name: fname, Default: def}
	}
	return bytecode.NewStructDef(name, fields), br.err
}

// class_record: name, super index (-1 for none), own fields, class
// variables, instance methods, class (static) methods. Super is
// resolved by the caller once every class_record has been read, since a
// subclass may be declared (and thus serialized) before its ancestor.
func writeClass(bw *byteWriter, cd *bytecode.ClassDef, classIndex map[*bytecode.ClassDef]int32) {
	bw.writeString(cd.Name)
	bw.writeI32(superIndex(classIndex, cd.Super))

	bw.writeU32(uint32(len(cd.Fields)))
	for _, f := range cd.Fields {
		bw.writeString(f.Name)
		writeValue(bw, f.Default)
	}

	bw.writeU32(uint32(len(cd.ClassVars)))
	for name, v := range cd.ClassVars {
		bw.writeString(name)
		writeValue(bw, v)
	}

	writeMethodTable(bw, cd.Methods)
	writeMethodTable(bw, cd.ClassMethods)
}

func readClass(br *byteReader, pool *strintern.Pool, _ []*bytecode.Function) (*bytecode.ClassDef, int32, error) {
	name := br.readString()
	superIdx := br.readI32()

	cd := bytecode.NewClassDef(name, nil)

	fieldCount := br.readU32()
	cd.Fields = make([]bytecode.FieldDef, fieldCount)
	for i := range cd.Fields {
		fname := br.readString()
		def := readValue(br, pool)
		cd.Fields[i] = bytecode.FieldDef{Name: fname, Default: def}
	}

	classVarCount := br.readU32()
	for i := uint32(0); i < classVarCount; i++ {
		cvName := br.readString()
		cd.ClassVars[cvName] = readValue(br, pool)
	}

	cd.Methods = readMethodTable(br, pool)
	cd.ClassMethods = readMethodTable(br, pool)

	return cd, superIdx, br.err
}

func writeMethodTable(bw *byteWriter, methods map[string]*bytecode.Function) {
	bw.writeU32(uint32(len(methods)))
	for name, fn := range methods {
		bw.writeString(name)
		writeFunction(bw, fn)
	}
}

func readMethodTable(br *byteReader, pool *strintern.Pool) map[string]*bytecode.Function {
	count := br.readU32()
	methods := make(map[string]*bytecode.Function, count)
	for i := uint32(0); i < count; i++ {
		name := br.readString()
		fn, _ := readFunction(br, pool)
		methods[name] = fn
	}
	return methods
}

// process_record: the embedded ClassDef — whose Super, unlike a plain
// class's, is resolved against the process index since a process only
// ever inherits from another process — the schedulable Body function,
// and the blueprint's privates array.
func writeProcess(bw *byteWriter, pd *bytecode.ProcessDef, processIndex map[*bytecode.ClassDef]int32) {
	writeClass(bw, pd.ClassDef, processIndex)
	writeFunction(bw, pd.Body)
	for _, v := range pd.PrivateValues {
		writeValue(bw, v)
	}
}

func readProcess(br *byteReader, pool *strintern.Pool, funcs []*bytecode.Function) (*bytecode.ProcessDef, int32, error) {
	cd, superIdx, err := readClass(br, pool, funcs)
	if err != nil {
		return nil, 0, err
	}
	body, err := readFunction(br, pool)
	if err != nil {
		return nil, 0, err
	}
	pd := &bytecode.ProcessDef{ClassDef: cd, Body: body}
	for i := range pd.PrivateValues {
		pd.PrivateValues[i] = readValue(br, pool)
	}
	return pd, superIdx, br.err
}

// native_entry: optional name + arity, used for both the native-function
// and native-process tables (the loader's match-exact policy, §4.K).
func writeNativeEntry(bw *byteWriter, e natives.Entry) {
	bw.writeOptString(e.Name, true)
	bw.writeI32(int32(e.Arity))
}

func readNativeEntry(br *byteReader) natives.Entry {
	name, _ := br.readOptString()
	arity := int(br.readI32())
	return natives.Entry{Name: name, Arity: arity}
}

// module_record: module name plus its function table's names, in index
// order, so the loader can validate a saved ModuleReference constant
// still resolves to the same function it did at save time.
type moduleCheck struct {
	name          string
	functionNames []string
}

func writeModule(bw *byteWriter, name string, m *natives.Module) {
	bw.writeString(name)
	bw.writeU32(uint32(len(m.Functions)))
	for i := range m.Functions {
		bw.writeString(m.FunctionName(uint16(i)))
	}
}

func readModule(br *byteReader) moduleCheck {
	name := br.readString()
	count := br.readU32()
	names := make([]string, count)
	for i := range names {
		names[i] = br.readString()
	}
	return moduleCheck{name: name, functionNames: names}
}
