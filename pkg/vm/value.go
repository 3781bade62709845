package vm

// ValueType identifies which variant of Value is populated.
type ValueType int

const (
	TypeBoolean ValueType = iota
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeChar
	TypeFloat
	TypeDouble
	TypeReference
	TypeReturnAddress
	TypeNull
)

// Value is the tagged union every operand-stack slot and local variable
// holds. Only the field matching Type is meaningful; the rest are zero.
// Long and Double are category 2: each is held whole in a single Value, one
// operand-stack entry; in the local variable array it sits at its index and
// the following index is left unused (see Frame.SetArgs).
type Value struct {
	Type Type
	Int  int32   // Boolean, Byte, Short, Int, Char (narrow types stored widened), ReturnAddress (PC)
	Long int64   // Long
	Flt  float32 // Float
	Dbl  float64 // Double
	Ref  any     // Reference: a heap Handle, a Go string, or a bridged native value
}

// Type is an alias kept so callers can write vm.Type without stuttering
// vm.ValueType in most call sites.
type Type = ValueType

// Category reports how many stack/local slots this value occupies.
func (v Value) Category() int {
	if v.Type == TypeLong || v.Type == TypeDouble {
		return 2
	}
	return 1
}

func BooleanValue(b bool) Value {
	if b {
		return Value{Type: TypeBoolean, Int: 1}
	}
	return Value{Type: TypeBoolean, Int: 0}
}

func ByteValue(v int8) Value    { return Value{Type: TypeByte, Int: int32(v)} }
func ShortValue(v int16) Value  { return Value{Type: TypeShort, Int: int32(v)} }
func IntValue(v int32) Value    { return Value{Type: TypeInt, Int: v} }
func CharValue(v uint16) Value  { return Value{Type: TypeChar, Int: int32(v)} }
func LongValue(v int64) Value   { return Value{Type: TypeLong, Long: v} }
func FloatValue(v float32) Value { return Value{Type: TypeFloat, Flt: v} }
func DoubleValue(v float64) Value { return Value{Type: TypeDouble, Dbl: v} }

// RefValue creates a reference Value carrying ref (a heap Handle, a string,
// or a bridged native value).
func RefValue(ref any) Value { return Value{Type: TypeReference, Ref: ref} }

// NullValue creates the null reference.
func NullValue() Value { return Value{Type: TypeNull} }

// ReturnAddressValue creates a jsr/ret return address value.
func ReturnAddressValue(pc int) Value { return Value{Type: TypeReturnAddress, Int: int32(pc)} }

// IsNull reports whether this value is the null reference.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// AsBool interprets an Int-bearing value as a Java boolean.
func (v Value) AsBool() bool { return v.Int != 0 }
