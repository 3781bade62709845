package classfile

import (
	"encoding/binary"
	"fmt"
)

// Instruction is a single decoded bytecode instruction: an opcode plus its
// raw operand bytes (not including the opcode byte itself).
type Instruction struct {
	Opcode   byte
	Operands []byte
	// Spacer marks a filler slot introduced by a multi-byte instruction that
	// precedes it, so the Instructions array stays directly byte-indexable.
	Spacer bool
}

// Len returns the total byte length of this instruction (opcode + operands);
// Len()-1 spacer slots follow it in the instruction array.
func (in Instruction) Len() int { return 1 + len(in.Operands) }

// fixedOperandLen gives the operand byte length for opcodes whose length does
// not depend on runtime alignment. Defined opcodes (up to 0xc9) missing from
// it take no operands; tableswitch, lookupswitch and wide are handled
// separately by operandLength.
var fixedOperandLen = map[byte]int{
	0x10: 1, 0x11: 2, 0x12: 1, 0x13: 2, 0x14: 2, // bipush, sipush, ldc, ldc_w, ldc2_w
	0x15: 1, 0x16: 1, 0x17: 1, 0x18: 1, 0x19: 1, // iload, lload, fload, dload, aload
	0x36: 1, 0x37: 1, 0x38: 1, 0x39: 1, 0x3a: 1, // istore, lstore, fstore, dstore, astore
	0xa9: 1,             // ret
	0xbc: 1,             // newarray
	0xb2: 2, 0xb3: 2, 0xb4: 2, 0xb5: 2, // getstatic, putstatic, getfield, putfield
	0xb6: 2, 0xb7: 2, 0xb8: 2, // invokevirtual, invokespecial, invokestatic
	0xb9: 4, 0xba: 4, // invokeinterface, invokedynamic
	0xbb: 2, 0xbd: 2, 0xc0: 2, 0xc1: 2, // new, anewarray, checkcast, instanceof
	0xc5: 3,                     // multianewarray
	0x84: 2,                     // iinc
	0x99: 2, 0x9a: 2, 0x9b: 2, 0x9c: 2, 0x9d: 2, 0x9e: 2, // ifeq..ifle
	0x9f: 2, 0xa0: 2, 0xa1: 2, 0xa2: 2, 0xa3: 2, 0xa4: 2, // if_icmp*
	0xa5: 2, 0xa6: 2, // if_acmpeq, if_acmpne
	0xa7: 2, 0xa8: 2, // goto, jsr
	0xc6: 2, 0xc7: 2, // ifnull, ifnonnull
	0xc8: 4, 0xc9: 4, // goto_w, jsr_w
	0xbe: 0, // arraylength
}

// decodeInstructions expands raw method bytecode into a byte-offset-indexable
// array: real instructions at their starting offset, OperationSpacer fillers
// at every other offset they occupy, so branch targets (stored as byte
// offsets) index the array directly.
func decodeInstructions(code []byte) ([]Instruction, error) {
	instructions := make([]Instruction, len(code))
	pc := 0
	for pc < len(code) {
		opcode := code[pc]
		start := pc
		operandLen, wide, err := operandLength(code, pc)
		if err != nil {
			return nil, err
		}
		if start+1+operandLen > len(code) {
			return nil, fmt.Errorf("instruction at offset %d truncated: needs %d operand bytes, have %d", start, operandLen, len(code)-start-1)
		}
		operands := append([]byte(nil), code[start+1:start+1+operandLen]...)
		instructions[start] = Instruction{Opcode: opcode, Operands: operands}
		_ = wide
		for i := start + 1; i < start+1+operandLen; i++ {
			instructions[i] = Instruction{Spacer: true}
		}
		pc = start + 1 + operandLen
	}
	return instructions, nil
}

// operandLength computes the operand byte length for the instruction at pc,
// handling tableswitch/lookupswitch (4-byte-aligned relative to the method
// start) and wide (which doubles the index width of the instruction it
// prefixes, and adds a constant operand for wide iinc).
func operandLength(code []byte, pc int) (length int, wide bool, err error) {
	opcode := code[pc]
	switch opcode {
	case 0xaa: // tableswitch
		pad := (4 - (pc+1)%4) % 4
		p := pc + 1 + pad
		if p+12 > len(code) {
			return 0, false, fmt.Errorf("tableswitch at %d truncated", pc)
		}
		low := int32(binary.BigEndian.Uint32(code[p+4 : p+8]))
		high := int32(binary.BigEndian.Uint32(code[p+8 : p+12]))
		if high < low {
			return 0, false, fmt.Errorf("tableswitch at %d has high < low", pc)
		}
		n := int(high-low) + 1
		total := pad + 12 + 4*n
		return total, false, nil

	case 0xab: // lookupswitch
		pad := (4 - (pc+1)%4) % 4
		p := pc + 1 + pad
		if p+8 > len(code) {
			return 0, false, fmt.Errorf("lookupswitch at %d truncated", pc)
		}
		npairs := int32(binary.BigEndian.Uint32(code[p+4 : p+8]))
		if npairs < 0 {
			return 0, false, fmt.Errorf("lookupswitch at %d has negative npairs", pc)
		}
		total := pad + 8 + 8*int(npairs)
		return total, false, nil

	case 0xc4: // wide
		if pc+1 >= len(code) {
			return 0, false, fmt.Errorf("wide at %d truncated", pc)
		}
		widened := code[pc+1]
		if widened == 0x84 { // iinc
			return 5, true, nil // modified opcode (1) + index (2) + const (2)
		}
		return 3, true, nil // modified opcode (1) + index (2)

	default:
		n, ok := fixedOperandLen[opcode]
		if !ok {
			if opcode <= 0xc9 { // every other defined opcode up to jsr_w takes no operands
				return 0, false, nil
			}
			return 0, false, fmt.Errorf("unknown opcode 0x%02X at offset %d", opcode, pc)
		}
		return n, false, nil
	}
}

// parseCodeAttribute decodes the raw bytes of a Code attribute.
func parseCodeAttribute(pool []ConstantPoolEntry, data []byte) (*CodeAttribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Code attribute too short: %d bytes", len(data))
	}

	maxStack := binary.BigEndian.Uint16(data[0:2])
	maxLocals := binary.BigEndian.Uint16(data[2:4])
	codeLength := binary.BigEndian.Uint32(data[4:8])

	if len(data) < 8+int(codeLength) {
		return nil, fmt.Errorf("Code attribute data too short for code_length %d", codeLength)
	}

	code := make([]byte, codeLength)
	copy(code, data[8:8+codeLength])

	instructions, err := decodeInstructions(code)
	if err != nil {
		return nil, fmt.Errorf("decoding instructions: %w", err)
	}

	offset := 8 + int(codeLength)
	if offset+2 > len(data) {
		return nil, fmt.Errorf("Code attribute missing exception table length")
	}
	exTableLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	handlers := make([]ExceptionHandler, exTableLen)
	for i := uint16(0); i < exTableLen; i++ {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("exception table entry %d truncated", i)
		}
		handlers[i] = ExceptionHandler{
			StartPC:   binary.BigEndian.Uint16(data[offset : offset+2]),
			EndPC:     binary.BigEndian.Uint16(data[offset+2 : offset+4]),
			HandlerPC: binary.BigEndian.Uint16(data[offset+4 : offset+6]),
			CatchType: binary.BigEndian.Uint16(data[offset+6 : offset+8]),
		}
		offset += 8
	}

	if offset+2 > len(data) {
		return nil, fmt.Errorf("Code attribute missing nested attribute count")
	}
	attrCount := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2

	var lineNumbers []LineNumberEntry
	var nested []AttributeInfo
	for i := uint16(0); i < attrCount; i++ {
		if offset+6 > len(data) {
			return nil, fmt.Errorf("Code nested attribute %d truncated", i)
		}
		nameIndex := binary.BigEndian.Uint16(data[offset : offset+2])
		length := binary.BigEndian.Uint32(data[offset+2 : offset+6])
		offset += 6
		if offset+int(length) > len(data) {
			return nil, fmt.Errorf("Code nested attribute %d data truncated", i)
		}
		attrData := data[offset : offset+int(length)]
		offset += int(length)

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			continue
		}
		if name == "LineNumberTable" {
			ln, err := parseLineNumberTable(attrData)
			if err != nil {
				return nil, fmt.Errorf("parsing LineNumberTable: %w", err)
			}
			lineNumbers = append(lineNumbers, ln...)
			continue
		}
		nested = append(nested, AttributeInfo{Name: name, Data: append([]byte(nil), attrData...)})
	}

	return &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		Instructions:      instructions,
		ExceptionHandlers: handlers,
		LineNumbers:       lineNumbers,
		Attributes:        nested,
	}, nil
}

func parseLineNumberTable(data []byte) ([]LineNumberEntry, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("LineNumberTable too short")
	}
	count := binary.BigEndian.Uint16(data[0:2])
	entries := make([]LineNumberEntry, count)
	offset := 2
	for i := uint16(0); i < count; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("LineNumberTable entry %d truncated", i)
		}
		entries[i] = LineNumberEntry{
			StartPC:    binary.BigEndian.Uint16(data[offset : offset+2]),
			LineNumber: binary.BigEndian.Uint16(data[offset+2 : offset+4]),
		}
		offset += 4
	}
	return entries, nil
}

// TableSwitchOperands holds a tableswitch instruction's decoded operands, as
// DecodeTableSwitch reads them from the method code after the alignment
// padding (Instruction.Operands itself includes that padding).
type TableSwitchOperands struct {
	Default int32
	Low     int32
	High    int32
	Offsets []int32
}

// LookupSwitchOperands decodes a lookupswitch instruction's operands.
type LookupSwitchOperands struct {
	Default int32
	Pairs   map[int32]int32
}

// DecodeTableSwitch parses the padded operand bytes of a tableswitch
// instruction located at byte offset pc within code.
func DecodeTableSwitch(code []byte, pc int) (*TableSwitchOperands, error) {
	pad := (4 - (pc+1)%4) % 4
	p := pc + 1 + pad
	def := int32(binary.BigEndian.Uint32(code[p : p+4]))
	low := int32(binary.BigEndian.Uint32(code[p+4 : p+8]))
	high := int32(binary.BigEndian.Uint32(code[p+8 : p+12]))
	n := int(high-low) + 1
	offsets := make([]int32, n)
	base := p + 12
	for i := 0; i < n; i++ {
		offsets[i] = int32(binary.BigEndian.Uint32(code[base+4*i : base+4*i+4]))
	}
	return &TableSwitchOperands{Default: def, Low: low, High: high, Offsets: offsets}, nil
}

// DecodeLookupSwitch parses the padded operand bytes of a lookupswitch
// instruction located at byte offset pc within code.
func DecodeLookupSwitch(code []byte, pc int) (*LookupSwitchOperands, error) {
	pad := (4 - (pc+1)%4) % 4
	p := pc + 1 + pad
	def := int32(binary.BigEndian.Uint32(code[p : p+4]))
	npairs := int(binary.BigEndian.Uint32(code[p+4 : p+8]))
	pairs := make(map[int32]int32, npairs)
	base := p + 8
	for i := 0; i < npairs; i++ {
		match := int32(binary.BigEndian.Uint32(code[base+8*i : base+8*i+4]))
		offset := int32(binary.BigEndian.Uint32(code[base+8*i+4 : base+8*i+8]))
		pairs[match] = offset
	}
	return &LookupSwitchOperands{Default: def, Pairs: pairs}, nil
}
