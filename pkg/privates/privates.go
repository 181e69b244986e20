// Package privates implements the fixed registry of well-known process
// private-slot names every blueprint installs defaults for: a small,
// closed name-to-index table, not a general string-keyed map, so
// opcode-level access to a process's privates array stays an index
// load/store rather than a hash lookup.
package privates

import "github.com/bu-lang/bu/pkg/value"

// Index addresses one of the well-known private slots in a process's
// fixed-size privates array.
type Index int

const (
	X Index = iota
	Y
	Z
	Graph
	Angle
	Size
	Flags
	ID
	Father
	Red
	Green
	Blue
	Alpha
	Tag
	State
	Speed
	Group
	VelX
	VelY
	HP
	Progress
	Life
	Active
	Show
	XOld
	YOld
	SizeX
	SizeY

	// Count is MAX_PRIVATES: the fixed length of every blueprint's and
	// every process's privates array.
	Count
)

var names = [...]string{
	"x", "y", "z", "graph", "angle", "size", "flags", "id", "father",
	"red", "green", "blue", "alpha", "tag", "state", "speed", "group",
	"velx", "vely", "hp", "progress", "life", "active", "show",
	"xold", "yold", "sizex", "sizey",
}

var byName map[string]Index

func init() {
	byName = make(map[string]Index, len(names))
	for i, n := range names {
		byName[n] = Index(i)
	}
}

func (i Index) String() string {
	if i >= 0 && int(i) < len(names) {
		return names[i]
	}
	return "unknown"
}

// Lookup resolves a well-known private-slot name to its index, for the
// compiler to fold identifier references into index loads/stores.
func Lookup(name string) (Index, bool) {
	i, ok := byName[name]
	return i, ok
}

// Names returns the full slot-name table in index order.
func Names() []string {
	return names[:]
}

// Defaults returns the factory-default value for every slot, the
// values a freshly declared blueprint installs before any field
// initializer in its body overrides them: position, angle, and
// velocities at rest, full-opacity white tint, size and life at 100%,
// active and visible.
func Defaults() [Count]value.Value {
	var d [Count]value.Value
	d[X] = value.Double(0)
	d[Y] = value.Double(0)
	d[Z] = value.Int(0)
	d[Graph] = value.Int(-1)
	d[Angle] = value.Int(0)
	d[Size] = value.Int(100)
	d[Flags] = value.Int(0)
	d[ID] = value.Int(-1)
	d[Father] = value.Int(-1)
	d[Red] = value.Int(255)
	d[Green] = value.Int(255)
	d[Blue] = value.Int(255)
	d[Alpha] = value.Int(255)
	d[Tag] = value.Int(0)
	d[State] = value.Int(0)
	d[Speed] = value.Double(0)
	d[Group] = value.Int(0)
	d[VelX] = value.Double(0)
	d[VelY] = value.Double(0)
	d[HP] = value.Int(0)
	d[Progress] = value.Double(0)
	d[Life] = value.Int(100)
	d[Active] = value.Int(1)
	d[Show] = value.Int(1)
	d[XOld] = value.Int(0)
	d[YOld] = value.Int(0)
	d[SizeX] = value.Double(1.0)
	d[SizeY] = value.Double(1.0)
	return d
}
