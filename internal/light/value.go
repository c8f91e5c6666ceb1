package light

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format is the type tag carried by a characteristic value.
type Format int

const (
	FormatBool Format = iota
	FormatInt
	FormatUInt32
	FormatFloat
)

// String returns the wire name of the format.
func (f Format) String() string {
	switch f {
	case FormatBool:
		return "bool"
	case FormatInt:
		return "int"
	case FormatUInt32:
		return "uint32"
	case FormatFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Value is a tagged characteristic value. Only the field matching Format is meaningful.
type Value struct {
	Format Format
	Bool   bool
	Int    int
	UInt32 uint32
	Float  float64
}

// Bool returns a bool-tagged value.
func Bool(v bool) Value {
	return Value{Format: FormatBool, Bool: v}
}

// Int returns an int-tagged value.
func Int(v int) Value {
	return Value{Format: FormatInt, Int: v}
}

// UInt32 returns a uint32-tagged value.
func UInt32(v uint32) Value {
	return Value{Format: FormatUInt32, UInt32: v}
}

// Float returns a float-tagged value.
func Float(v float64) Value {
	return Value{Format: FormatFloat, Float: v}
}

// Interface returns the payload as a plain Go value (bool, int, uint32 or float64).
func (v Value) Interface() any {
	switch v.Format {
	case FormatBool:
		return v.Bool
	case FormatInt:
		return v.Int
	case FormatUInt32:
		return v.UInt32
	case FormatFloat:
		return v.Float
	default:
		return nil
	}
}

// String formats the payload for logs and text transports.
func (v Value) String() string {
	switch v.Format {
	case FormatBool:
		return strconv.FormatBool(v.Bool)
	case FormatInt:
		return strconv.Itoa(v.Int)
	case FormatUInt32:
		return strconv.FormatUint(uint64(v.UInt32), 10)
	case FormatFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return "<invalid>"
	}
}

// ValueOf tags a decoded wire payload (JSON or HAP) using its dynamic type.
// Numbers decode as float64 on most wires, so an integral number is tagged with
// target when target is an integer format. A payload of another kind keeps its own
// tag and is rejected later by the store.
func ValueOf(target Format, raw any) (Value, error) {
	switch v := raw.(type) {
	case bool:
		return Bool(v), nil
	case int:
		return integral(target, int64(v)), nil
	case int32:
		return integral(target, int64(v)), nil
	case int64:
		return integral(target, v), nil
	case uint8:
		return integral(target, int64(v)), nil
	case uint16:
		return integral(target, int64(v)), nil
	case uint32:
		return integral(target, int64(v)), nil
	case float32:
		return fromFloat(target, float64(v)), nil
	case float64:
		return fromFloat(target, v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return integral(target, i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return fromFloat(target, f), nil
	default:
		return Value{}, fmt.Errorf("unsupported payload type %T", raw)
	}
}

// ParseValue tags a text payload (MQTT, CLI). Accepts true/false/on/off for booleans
// and decimal numbers otherwise.
func ParseValue(target Format, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true", "on":
		return Bool(true), nil
	case "false", "off":
		return Bool(false), nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return integral(target, i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("cannot parse %q as a characteristic value", s)
	}
	return fromFloat(target, f), nil
}

func integral(target Format, i int64) Value {
	switch target {
	case FormatUInt32:
		if i >= 0 && i <= math.MaxUint32 {
			return UInt32(uint32(i))
		}
		return Int(int(i))
	case FormatFloat:
		return Float(float64(i))
	default:
		return Int(int(i))
	}
}

func fromFloat(target Format, f float64) Value {
	if target == FormatFloat || f != math.Trunc(f) || math.IsInf(f, 0) {
		return Float(f)
	}
	return integral(target, int64(f))
}
