// Package config loads the VM's tuning knobs from an optional TOML
// file (GC thresholds, fiber stack sizes, scheduler pool/tick
// parameters), using the values from Default() when no file is given —
// the same `github.com/naoina/toml` decoding shape ProbeChain's
// `gprobe` command uses for its own node configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"

	"github.com/bu-lang/bu/pkg/fiber"
	"github.com/bu-lang/bu/pkg/gc"
	"github.com/bu-lang/bu/pkg/scheduler"
)

// GC holds the collector's threshold/growth tuning.
type GC struct {
	InitialThreshold int64   `toml:",omitempty"`
	GrowthFactor     float64 `toml:",omitempty"`
	MinThreshold     int64   `toml:",omitempty"`
	MaxThreshold     int64   `toml:",omitempty"`
}

// Fiber holds the per-fiber stack/frame/gosub/try limits (STACK_MAX,
// FRAMES_MAX, GOSUB_MAX, TRY_MAX).
type Fiber struct {
	StackMax  int `toml:",omitempty"`
	FramesMax int `toml:",omitempty"`
	GosubMax  int `toml:",omitempty"`
	TryMax    int `toml:",omitempty"`
}

// Scheduler holds the cooperative scheduler's pool and tick tuning.
type Scheduler struct {
	MinPoolSize   int `toml:",omitempty"`
	ShrinkInterval int `toml:",omitempty"`
}

// Config is the full set of VM tuning knobs a host may override.
type Config struct {
	GC        GC
	Fiber     Fiber
	Scheduler Scheduler
}

// Default returns a Config carrying the package-level defaults each
// tuned package already ships (gc.Default*, fiber.Default*,
// scheduler.DefaultMinPoolSize/ShrinkInterval).
func Default() Config {
	return Config{
		GC: GC{
			InitialThreshold: gc.DefaultInitialThreshold,
			GrowthFactor:     gc.DefaultGrowthFactor,
			MinThreshold:     gc.MinThreshold,
			MaxThreshold:     gc.MaxThreshold,
		},
		Fiber: Fiber{
			StackMax:  fiber.DefaultStackMax,
			FramesMax: fiber.DefaultFramesMax,
			GosubMax:  fiber.DefaultGosubMax,
			TryMax:    fiber.DefaultTryMax,
		},
		Scheduler: Scheduler{
			MinPoolSize:    scheduler.DefaultMinPoolSize,
			ShrinkInterval: scheduler.ShrinkInterval,
		},
	}
}

// tomlSettings mirrors field names onto TOML keys verbatim, the same
// convention ProbeChain's gprobe command uses so Go struct fields and
// TOML keys never drift out of sync.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field %q is not defined in %s", field, rt.String())
	},
}

// Load reads path and overlays it onto Default(). An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, err
	}
	return cfg, nil
}

// ApplyGC installs the configured thresholds onto an already-constructed
// collector.
func (c Config) ApplyGC(collector *gc.Collector) {
	collector.Configure(c.GC.InitialThreshold, c.GC.GrowthFactor, c.GC.MinThreshold, c.GC.MaxThreshold)
}

// NewFiber builds a main fiber sized by the configured stack/frame/
// gosub/try limits.
func (c Config) NewFiber() *fiber.Fiber {
	return fiber.New(c.Fiber.StackMax, c.Fiber.FramesMax, c.Fiber.GosubMax, c.Fiber.TryMax)
}

// NewPool builds a scheduler pool sized by the configured minimum.
func (c Config) NewPool() *scheduler.Pool {
	return scheduler.NewPool(c.Scheduler.MinPoolSize)
}
