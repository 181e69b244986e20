package natives

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
)

// RegisterDebugStdlib installs a minimal "debug" module, a test fixture
// for native module dispatch that needs no real stdlib. It is NOT the JSON/regex/OS/time/math stdlib a host is
// expected to register — those are front-end collaborators a real host
// wires up the same way this fixture does. Do not extend this into a
// production module surface; add new host-registered modules instead.
func RegisterDebugStdlib(r *Registry) {
	pool := strintern.New(0)
	m := NewModule("debug")

	m.AddFunction("base64Encode", func(vm any, args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind != value.KindString {
			return value.Nil, fmt.Errorf("debug.base64Encode: expected 1 string arg")
		}
		enc := base64.StdEncoding.EncodeToString(args[0].Str.Bytes())
		return value.Str(pool.InternString(enc)), nil
	})
	m.AddFunction("base64Decode", func(vm any, args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind != value.KindString {
			return value.Nil, fmt.Errorf("debug.base64Decode: expected 1 string arg")
		}
		dec, err := base64.StdEncoding.DecodeString(args[0].Str.String())
		if err != nil {
			return value.Nil, fmt.Errorf("debug.base64Decode: %w", err)
		}
		return value.Str(pool.Intern(dec)), nil
	})
	m.AddFunction("sha256", func(vm any, args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind != value.KindString {
			return value.Nil, fmt.Errorf("debug.sha256: expected 1 string arg")
		}
		sum := sha256.Sum256(args[0].Str.Bytes())
		return value.Str(pool.InternString(fmt.Sprintf("%x", sum))), nil
	})
	m.AddFunction("jsonEncode", func(vm any, args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Nil, fmt.Errorf("debug.jsonEncode: expected 1 arg")
		}
		out, err := json.Marshal(jsonable(args[0]))
		if err != nil {
			return value.Nil, fmt.Errorf("debug.jsonEncode: %w", err)
		}
		return value.Str(pool.Intern(out)), nil
	})
	m.AddFunction("jsonDecode", func(vm any, args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind != value.KindString {
			return value.Nil, fmt.Errorf("debug.jsonDecode: expected 1 string arg")
		}
		var decoded any
		if err := json.Unmarshal(args[0].Str.Bytes(), &decoded); err != nil {
			return value.Nil, fmt.Errorf("debug.jsonDecode: %w", err)
		}
		return fromJSON(decoded, pool), nil
	})

	r.RegisterModule("debug", m)
}

// jsonable converts a script Value into something encoding/json can
// marshal: strings and scalars pass through, everything else is
// reported as its String() rendering. This fixture never needs to
// round-trip arrays/maps, only scalars, so it doesn't attempt to.
func jsonable(v value.Value) any {
	switch v.Kind {
	case value.KindString:
		return v.Str.String()
	case value.KindBool:
		return v.Bool()
	case value.KindInt:
		return v.Int()
	case value.KindUInt:
		return v.UInt()
	case value.KindFloat:
		return v.Float()
	case value.KindDouble:
		return v.Double()
	case value.KindNil:
		return nil
	default:
		return v.String()
	}
}

func fromJSON(decoded any, pool *strintern.Pool) value.Value {
	switch t := decoded.(type) {
	case string:
		return value.Str(pool.InternString(t))
	case bool:
		return value.Bool(t)
	case float64:
		return value.Double(t)
	case nil:
		return value.Nil
	default:
		return value.Str(pool.InternString(fmt.Sprintf("%v", t)))
	}
}
