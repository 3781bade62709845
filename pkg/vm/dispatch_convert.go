package vm

// execConvert handles the widening/narrowing numeric conversions and the
// lcmp/fcmpl/fcmpg/dcmpl/dcmpg comparison family.
func (vm *VM) execConvert(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpI2l:
		v := frame.Pop()
		frame.Push(LongValue(int64(v.Int)))
	case OpI2f:
		v := frame.Pop()
		frame.Push(FloatValue(float32(v.Int)))
	case OpI2d:
		v := frame.Pop()
		frame.Push(DoubleValue(float64(v.Int)))
	case OpL2i:
		v := frame.Pop()
		frame.Push(IntValue(int32(v.Long)))
	case OpL2f:
		v := frame.Pop()
		frame.Push(FloatValue(float32(v.Long)))
	case OpL2d:
		v := frame.Pop()
		frame.Push(DoubleValue(float64(v.Long)))
	case OpF2i:
		v := frame.Pop()
		frame.Push(IntValue(floatToInt(v.Flt)))
	case OpF2l:
		v := frame.Pop()
		frame.Push(LongValue(floatToLong(float64(v.Flt))))
	case OpF2d:
		v := frame.Pop()
		frame.Push(DoubleValue(float64(v.Flt)))
	case OpD2i:
		v := frame.Pop()
		frame.Push(IntValue(doubleToInt(v.Dbl)))
	case OpD2l:
		v := frame.Pop()
		frame.Push(LongValue(floatToLong(v.Dbl)))
	case OpD2f:
		v := frame.Pop()
		frame.Push(FloatValue(float32(v.Dbl)))
	case OpI2b:
		v := frame.Pop()
		frame.Push(IntValue(int32(int8(v.Int))))
	case OpI2c:
		v := frame.Pop()
		frame.Push(IntValue(int32(uint16(v.Int))))
	case OpI2s:
		v := frame.Pop()
		frame.Push(IntValue(int32(int16(v.Int))))

	case OpLcmp:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(cmp64(v1.Long, v2.Long)))
	case OpFcmpl:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(fcmp(float64(v1.Flt), float64(v2.Flt), -1)))
	case OpFcmpg:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(fcmp(float64(v1.Flt), float64(v2.Flt), 1)))
	case OpDcmpl:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(fcmp(v1.Dbl, v2.Dbl, -1)))
	case OpDcmpg:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(fcmp(v1.Dbl, v2.Dbl, 1)))
	}
	return Value{}, false, nil
}

func cmp64(a, b int64) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// fcmp implements fcmpl/dcmpl (nanResult=-1) and fcmpg/dcmpg (nanResult=1):
// if either operand is NaN the result is nanResult, otherwise normal
// ordering, per JVM spec 6.5.fcmp<op>.
func fcmp(a, b float64, nanResult int32) int32 {
	if a != a || b != b { // NaN check without importing math
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func floatToInt(f float32) int32 {
	return doubleToInt(float64(f))
}

func doubleToInt(d float64) int32 {
	if d != d { // NaN
		return 0
	}
	if d >= 2147483647 {
		return 2147483647
	}
	if d <= -2147483648 {
		return -2147483648
	}
	return int32(d)
}

func floatToLong(d float64) int64 {
	if d != d { // NaN
		return 0
	}
	const maxLong = float64(9223372036854775807)
	const minLong = float64(-9223372036854775808)
	if d >= maxLong {
		return 9223372036854775807
	}
	if d <= minLong {
		return -9223372036854775808
	}
	return int64(d)
}
