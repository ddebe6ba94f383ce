// Package property implements the typed property model shared by mission
// descriptors, default templates and datafiles.
package property

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrCast            = errors.New("value does not match type")
	ErrDuplicateKey    = errors.New("key already taken")
	ErrMergedWrongType = errors.New("merged value has wrong type")
	ErrMissingProperty = errors.New("missing property")
	ErrWrongTypeFound  = errors.New("wrong type found")
)

// Type is a VTYPE tag.
type Type int

const (
	TypeString Type = iota
	TypeBool
	TypeFloat
	TypeInt
)

// ParseType maps a VTYPE tag to a Type. Unknown tags are treated as strings.
func ParseType(tag string) Type {
	switch strings.TrimSpace(tag) {
	case "VTYPE_BOOL":
		return TypeBool
	case "VTYPE_FLOAT":
		return TypeFloat
	case "VTYPE_INT":
		return TypeInt
	default:
		return TypeString
	}
}

func (t Type) Tag() string {
	switch t {
	case TypeBool:
		return "VTYPE_BOOL"
	case TypeFloat:
		return "VTYPE_FLOAT"
	case TypeInt:
		return "VTYPE_INT"
	default:
		return "VTYPE_STRING"
	}
}

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	default:
		return "string"
	}
}

// Value is a typed scalar. The zero Value is the empty string.
type Value struct {
	typ Type
	b   bool
	f   float32
	i   int64
	s   string
}

func Bool(v bool) Value     { return Value{typ: TypeBool, b: v} }
func Float(v float32) Value { return Value{typ: TypeFloat, f: v} }
func Int(v int64) Value     { return Value{typ: TypeInt, i: v} }
func String(v string) Value { return Value{typ: TypeString, s: v} }

// Parse coerces raw into a Value of type t. Float text may carry a trailing
// unit suffix, which is dropped.
func Parse(raw string, t Type) (Value, error) {
	switch t {
	case TypeBool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
	case TypeFloat:
		f, err := strconv.ParseFloat(stripUnit(raw), 32)
		if err == nil {
			return Float(float32(f)), nil
		}
	case TypeInt:
		i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err == nil {
			return Int(i), nil
		}
	default:
		return String(raw), nil
	}
	return Value{}, fmt.Errorf("%w: %q is not %s", ErrCast, raw, t.Tag())
}

func stripUnit(raw string) string {
	return strings.TrimRightFunc(strings.TrimSpace(raw), func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsSpace(r) || r == '%'
	})
}

func (v Value) Type() Type { return v.typ }

func (v Value) AsBool() (bool, bool)     { return v.b, v.typ == TypeBool }
func (v Value) AsFloat() (float32, bool) { return v.f, v.typ == TypeFloat }
func (v Value) AsInt() (int64, bool)     { return v.i, v.typ == TypeInt }
func (v Value) AsString() (string, bool) { return v.s, v.typ == TypeString }

// Any returns the value as a bool, float64, int64 or string. Floats keep
// their shortest 32-bit decimal form, and non-finite floats come back as
// strings.
func (v Value) Any() any {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeFloat:
		f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v.f), 'g', -1, 32), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return v.String()
		}
		return f
	case TypeInt:
		return v.i
	default:
		return v.s
	}
}

// String formats the value the way it is written to descriptors and
// datafiles. Integral floats keep a trailing ".0".
func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeFloat:
		s := strconv.FormatFloat(float64(v.f), 'f', -1, 32)
		if !strings.ContainsAny(s, ".NI") {
			s += ".0"
		}
		return s
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return v.s
	}
}

// Flags is an optional, opaque flags string. An absent value differs from
// an empty one.
type Flags struct {
	value string
	set   bool
}

var NoFlags = Flags{}

func FlagsOf(s string) Flags { return Flags{value: s, set: true} }

func (f Flags) Get() (string, bool) { return f.value, f.set }
func (f Flags) IsSet() bool         { return f.set }

type Property struct {
	Value Value
	Flags Flags
}
