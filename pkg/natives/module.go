package natives

import "github.com/bu-lang/bu/pkg/value"

// Module is the second-level native namespace: it owns its own function
// table and constant pool, addressed by a packed ModuleReference Value
// (module_id, func_id) rather than the top-level native-function table.
// Front-end-supplied stdlib modules (JSON, regex, OS, time, math) are
// registered this way by the host, not built into this package.
type Module struct {
	Name      string
	Functions []Function
	names     []string
	Constants []value.Value
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddFunction appends fn under name and returns its func_id within this
// module.
func (m *Module) AddFunction(name string, fn Function) uint16 {
	id := uint16(len(m.Functions))
	m.Functions = append(m.Functions, fn)
	m.names = append(m.names, name)
	return id
}

func (m *Module) Function(id uint16) (Function, bool) {
	if int(id) >= len(m.Functions) {
		return nil, false
	}
	return m.Functions[id], true
}

func (m *Module) FunctionName(id uint16) string {
	if int(id) >= len(m.names) {
		return ""
	}
	return m.names[id]
}
