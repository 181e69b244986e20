// Package gc implements the tracing mark/sweep collector shared by every
// heap-allocated value in the VM (arrays, maps, buffers, struct/class
// instances, closures, upvalues). It knows nothing about the script value
// model itself: it operates purely on the Object interface, so pkg/value
// can depend on pkg/gc without pkg/gc ever depending back on pkg/value.
package gc

import (
	"fmt"
)

// Default threshold bounds, per spec: starts at 1MiB, grows by
// GrowthFactor after each cycle, clamped to [MinThreshold, MaxThreshold].
const (
	DefaultInitialThreshold = 1 << 20        // 1 MiB
	DefaultGrowthFactor     = 2.0
	MinThreshold            = 512 << 10      // 512 KiB
	MaxThreshold            = 512 << 20      // 512 MiB
)

// Header is the two-field header every GC-managed heap object embeds:
// a mark bit and the intrusive "next" link threading all objects into one
// singly linked list. The type tag lives on the concrete object itself
// (via Kind()), not in the header, since Go already carries a dynamic type.
type Header struct {
	marked bool
	next   Object
}

// Marked reports whether the mark bit is set.
func (h *Header) Marked() bool { return h.marked }

// Object is implemented by every heap type the collector manages.
type Object interface {
	// GCHeader returns the embedded header so the collector can thread
	// the intrusive list and flip the mark bit.
	GCHeader() *Header
	// Kind returns a short label used for telemetry counters.
	Kind() string
	// Size estimates the object's contribution to bytesAllocated.
	Size() int64
	// Blacken exposes every Object this object directly references, via
	// push. Opaque-payload objects (Buffer, NativeClass/StructInstance)
	// call push zero times.
	Blacken(push func(Object))
	// Destroy runs any type-specific finalization (including a
	// user-registered native destructor, where applicable) before the
	// object's memory is reclaimed.
	Destroy()
}

// RootProvider is implemented by whatever owns the live root set (the VM):
// globals, every live process's privates/stack/frames, and the open
// upvalue list. Collect calls GCRoots once per cycle and expects every
// root Object to be pushed at least once per call (duplicates are fine;
// the collector dedupes via the mark bit).
type RootProvider interface {
	GCRoots(push func(Object))
}

// Collector is the VM-wide tracing collector.
type Collector struct {
	head  Object
	roots RootProvider

	bytesAllocated int64
	nextThreshold  int64
	growthFactor   float64
	minThreshold   int64
	maxThreshold   int64

	inProgress bool
	cycles     int64

	counts map[string]int64

	gray []Object
}

// New creates a Collector with spec-default thresholds. SetRoots must be
// called before the first allocation triggers a cycle.
func New() *Collector {
	return &Collector{
		nextThreshold: DefaultInitialThreshold,
		growthFactor:  DefaultGrowthFactor,
		minThreshold:  MinThreshold,
		maxThreshold:  MaxThreshold,
		counts:        make(map[string]int64),
	}
}

// Configure overrides the collector's threshold bounds, letting a host
// apply its own tuning (internal/config) instead of the package
// defaults. Zero values leave the corresponding bound untouched.
func (c *Collector) Configure(initial int64, growth float64, min, max int64) {
	if initial > 0 {
		c.nextThreshold = initial
	}
	if growth > 0 {
		c.growthFactor = growth
	}
	if min > 0 {
		c.minThreshold = min
	}
	if max > 0 {
		c.maxThreshold = max
	}
}

// SetRoots installs the root provider (normally the VM). Must be called
// before any object is registered.
func (c *Collector) SetRoots(r RootProvider) { c.roots = r }

// BytesAllocated returns the current estimate of live + not-yet-swept bytes.
func (c *Collector) BytesAllocated() int64 { return c.bytesAllocated }

// NextThreshold returns the byte count that will trigger the next cycle.
func (c *Collector) NextThreshold() int64 { return c.nextThreshold }

// Cycles returns the number of completed mark/sweep cycles.
func (c *Collector) Cycles() int64 { return c.cycles }

// Count returns the live count for a given Kind() label (GC telemetry).
func (c *Collector) Count(kind string) int64 { return c.counts[kind] }

// MaybeCollect polls the threshold and runs a full cycle if exceeded.
// Every object-creating operation in pkg/value calls this before
// constructing the new object.
func (c *Collector) MaybeCollect() {
	if c.bytesAllocated > c.nextThreshold {
		c.Collect()
	}
}

// Register links a freshly constructed object at the head of the GC list,
// accounts for its size, and bumps its kind counter. Persistent native
// objects must NOT be registered; their owner manages their lifetime.
func (c *Collector) Register(obj Object) {
	h := obj.GCHeader()
	h.next = c.head
	c.head = obj
	c.bytesAllocated += obj.Size()
	c.counts[obj.Kind()]++
}

// Collect runs one full tracing mark/sweep cycle. Re-entrant calls
// (triggered by a destructor allocating during sweep) are refused.
func (c *Collector) Collect() {
	if c.inProgress {
		return
	}
	c.inProgress = true
	defer func() { c.inProgress = false }()

	c.mark()
	c.sweep()

	c.cycles++
	next := int64(float64(c.bytesAllocated) * c.growthFactor)
	if next < c.minThreshold {
		next = c.minThreshold
	}
	if next > c.maxThreshold {
		next = c.maxThreshold
	}
	c.nextThreshold = next
}

func (c *Collector) mark() {
	c.gray = c.gray[:0]
	if c.roots != nil {
		c.roots.GCRoots(c.pushGray)
	}
	for len(c.gray) > 0 {
		n := len(c.gray) - 1
		obj := c.gray[n]
		c.gray = c.gray[:n]
		obj.Blacken(c.pushGray)
	}
}

// pushGray marks obj and, if this is the first time it was seen this
// cycle, pushes it onto the worklist so Blacken can expose its outgoing
// references later. Marking an already-marked object is a no-op.
func (c *Collector) pushGray(obj Object) {
	if obj == nil {
		return
	}
	h := obj.GCHeader()
	if h.marked {
		return
	}
	h.marked = true
	c.gray = append(c.gray, obj)
}

func (c *Collector) sweep() {
	var newHead Object
	var tail Object

	obj := c.head
	for obj != nil {
		h := obj.GCHeader()
		next := h.next
		if h.marked {
			h.marked = false
			h.next = nil
			if newHead == nil {
				newHead = obj
				tail = obj
			} else {
				tail.GCHeader().next = obj
				tail = obj
			}
		} else {
			c.bytesAllocated -= obj.Size()
			c.counts[obj.Kind()]--
			obj.Destroy()
		}
		obj = next
	}
	c.head = newHead
	if c.bytesAllocated < 0 {
		c.bytesAllocated = 0
	}
}

// String renders a short diagnostic summary, used by internal/bulog.
func (c *Collector) String() string {
	return fmt.Sprintf("gc: cycles=%d bytes=%d threshold=%d", c.cycles, c.bytesAllocated, c.nextThreshold)
}
