package expression

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the runtime type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is the closed set of types an expression can reference or produce:
// number, boolean, null, or string. Strings exist only so that two context
// variables holding categorical state can be compared with == and != -- the
// grammar itself has no string literals.
type Value struct {
	kind Kind
	num  float64
	b    bool
	str  string
}

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Null() Value            { return Value{} }

func (v Value) Kind() Kind { return v.kind }

// Num returns the numeric content. Callers must check the kind first.
func (v Value) Num() float64 { return v.num }

// Truthy reports the boolean interpretation of the value: booleans are
// themselves, numbers are true when nonzero and not NaN, null and strings
// other than the empty string follow the same convention as the host game's
// condition semantics (null is false, non-empty string is true).
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	default:
		return false
	}
}

// Equal implements structural equality across the closed type set:
// values of different kinds are never equal, null == null is true, and
// NaN is not equal to anything, including itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.str == o.str
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.str
	default:
		return "null"
	}
}

// MarshalJSON renders the value as its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return json.Marshal(nil)
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindString:
		return json.Marshal(v.str)
	default:
		return json.Marshal(nil)
	}
}

// UnmarshalJSON accepts the native JSON types number, boolean, string and
// null. Objects and arrays are rejected; the value set is intentionally flat.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Null()
	case float64:
		*v = Number(t)
	case bool:
		*v = Bool(t)
	case string:
		*v = String(t)
	default:
		return fmt.Errorf("unsupported value type %T", raw)
	}
	return nil
}
