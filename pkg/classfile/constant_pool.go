package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Constant pool tags (JVM spec table 4.4-A).
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref           = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

type ConstantUtf8 struct{ Value string }

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct{ Value int32 }

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct{ Value float32 }

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct{ Value int64 }

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct{ Value float64 }

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct{ NameIndex uint16 }

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct{ StringIndex uint16 }

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// ConstantMethodHandle is a CONSTANT_MethodHandle_info entry.
type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }

// ConstantMethodType is a CONSTANT_MethodType_info entry.
type ConstantMethodType struct{ DescriptorIndex uint16 }

func (c *ConstantMethodType) Tag() uint8 { return TagMethodType }

// ConstantDynamic is a CONSTANT_Dynamic_info entry.
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() uint8 { return TagDynamic }

// ConstantInvokeDynamic is a CONSTANT_InvokeDynamic_info entry.
type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamic) Tag() uint8 { return TagInvokeDynamic }

// ConstantModule is a CONSTANT_Module_info entry.
type ConstantModule struct{ NameIndex uint16 }

func (c *ConstantModule) Tag() uint8 { return TagModule }

// ConstantPackage is a CONSTANT_Package_info entry.
type ConstantPackage struct{ NameIndex uint16 }

func (c *ConstantPackage) Tag() uint8 { return TagPackage }

// parseConstantPool reads constant_pool_count-1 entries from the reader.
// The returned slice is 1-indexed: index 0 is nil. After a Long or Double,
// the following index is left nil (the JVM spec's "unusable" sentinel slot),
// so original constant pool indices are preserved.
func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		var tag uint8
		if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
			return nil, fmt.Errorf("reading constant pool tag at index %d: %w", i, err)
		}

		switch tag {
		case TagUtf8:
			var length uint16
			if err := binary.Read(r, binary.BigEndian, &length); err != nil {
				return nil, fmt.Errorf("reading Utf8 length at index %d: %w", i, err)
			}
			raw := make([]byte, length)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("reading Utf8 bytes at index %d: %w", i, err)
			}
			pool[i] = &ConstantUtf8{Value: decodeModifiedUTF8(raw)}

		case TagInteger:
			var val int32
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, fmt.Errorf("reading Integer at index %d: %w", i, err)
			}
			pool[i] = &ConstantInteger{Value: val}

		case TagFloat:
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Float at index %d: %w", i, err)
			}
			pool[i] = &ConstantFloat{Value: math.Float32frombits(bits)}

		case TagLong:
			var val int64
			if err := binary.Read(r, binary.BigEndian, &val); err != nil {
				return nil, fmt.Errorf("reading Long at index %d: %w", i, err)
			}
			pool[i] = &ConstantLong{Value: val}
			i++ // long/double occupy two constant pool indices

		case TagDouble:
			var bits uint64
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("reading Double at index %d: %w", i, err)
			}
			pool[i] = &ConstantDouble{Value: math.Float64frombits(bits)}
			i++

		case TagClass:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Class at index %d: %w", i, err)
			}
			pool[i] = &ConstantClass{NameIndex: nameIndex}

		case TagString:
			var stringIndex uint16
			if err := binary.Read(r, binary.BigEndian, &stringIndex); err != nil {
				return nil, fmt.Errorf("reading String at index %d: %w", i, err)
			}
			pool[i] = &ConstantString{StringIndex: stringIndex}

		case TagFieldref:
			classIndex, natIndex, err := readTwoU16(r)
			if err != nil {
				return nil, fmt.Errorf("reading Fieldref at index %d: %w", i, err)
			}
			pool[i] = &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagMethodref:
			classIndex, natIndex, err := readTwoU16(r)
			if err != nil {
				return nil, fmt.Errorf("reading Methodref at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagInterfaceMethodref:
			classIndex, natIndex, err := readTwoU16(r)
			if err != nil {
				return nil, fmt.Errorf("reading InterfaceMethodref at index %d: %w", i, err)
			}
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagNameAndType:
			nameIndex, descIndex, err := readTwoU16(r)
			if err != nil {
				return nil, fmt.Errorf("reading NameAndType at index %d: %w", i, err)
			}
			pool[i] = &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			var kind uint8
			if err := binary.Read(r, binary.BigEndian, &kind); err != nil {
				return nil, fmt.Errorf("reading MethodHandle kind at index %d: %w", i, err)
			}
			var refIndex uint16
			if err := binary.Read(r, binary.BigEndian, &refIndex); err != nil {
				return nil, fmt.Errorf("reading MethodHandle reference at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: refIndex}

		case TagMethodType:
			var descIndex uint16
			if err := binary.Read(r, binary.BigEndian, &descIndex); err != nil {
				return nil, fmt.Errorf("reading MethodType at index %d: %w", i, err)
			}
			pool[i] = &ConstantMethodType{DescriptorIndex: descIndex}

		case TagDynamic:
			bsmIdx, natIdx, err := readTwoU16(r)
			if err != nil {
				return nil, fmt.Errorf("reading Dynamic at index %d: %w", i, err)
			}
			pool[i] = &ConstantDynamic{BootstrapMethodAttrIndex: bsmIdx, NameAndTypeIndex: natIdx}

		case TagInvokeDynamic:
			bsmIdx, natIdx, err := readTwoU16(r)
			if err != nil {
				return nil, fmt.Errorf("reading InvokeDynamic at index %d: %w", i, err)
			}
			pool[i] = &ConstantInvokeDynamic{BootstrapMethodAttrIndex: bsmIdx, NameAndTypeIndex: natIdx}

		case TagModule:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Module at index %d: %w", i, err)
			}
			pool[i] = &ConstantModule{NameIndex: nameIndex}

		case TagPackage:
			var nameIndex uint16
			if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
				return nil, fmt.Errorf("reading Package at index %d: %w", i, err)
			}
			pool[i] = &ConstantPackage{NameIndex: nameIndex}

		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
	}

	return pool, nil
}

func readTwoU16(r io.Reader) (uint16, uint16, error) {
	var a, b uint16
	if err := binary.Read(r, binary.BigEndian, &a); err != nil {
		return 0, 0, err
	}
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// decodeModifiedUTF8 decodes the class file's modified UTF-8 encoding. Per spec,
// this implementation tolerates plain UTF-8 (including 4-byte supplementary-plane
// sequences a strict reader would reject) rather than rejecting it; it does not
// re-encode the 2-byte NUL or surrogate-pair forms, it simply passes bytes through
// since Go's string type has no embedded-NUL restriction.
func decodeModifiedUTF8(raw []byte) string {
	return string(raw)
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return "", err
	}
	utf8, ok := entry.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, entry.Tag())
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	entry, err := lookup(pool, classIndex)
	if err != nil {
		return "", err
	}
	class, ok := entry.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

func lookup(pool []ConstantPoolEntry, index uint16) (ConstantPoolEntry, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	return pool[index], nil
}

func nameAndType(pool []ConstantPoolEntry, index uint16) (name, descriptor string, err error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return "", "", err
	}
	nat, ok := entry.(*ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("constant pool index %d is not NameAndType", index)
	}
	name, err = GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return "", "", err
	}
	descriptor, err = GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MethodRefInfo holds a resolved Methodref/InterfaceMethodref.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return nil, err
	}
	mref, ok := entry.(*ConstantMethodref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not Methodref", index)
	}
	return resolveMethodlike(pool, mref.ClassIndex, mref.NameAndTypeIndex)
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return nil, err
	}
	mref, ok := entry.(*ConstantInterfaceMethodref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not InterfaceMethodref", index)
	}
	return resolveMethodlike(pool, mref.ClassIndex, mref.NameAndTypeIndex)
}

func resolveMethodlike(pool []ConstantPoolEntry, classIndex, natIndex uint16) (*MethodRefInfo, error) {
	className, err := GetClassName(pool, classIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving class: %w", err)
	}
	name, desc, err := nameAndType(pool, natIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving name/type: %w", err)
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: desc}, nil
}

// FieldRefInfo holds a resolved Fieldref.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	entry, err := lookup(pool, index)
	if err != nil {
		return nil, err
	}
	fref, ok := entry.(*ConstantFieldref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not Fieldref", index)
	}
	className, err := GetClassName(pool, fref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Fieldref class: %w", err)
	}
	name, desc, err := nameAndType(pool, fref.NameAndTypeIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Fieldref name/type: %w", err)
	}
	return &FieldRefInfo{ClassName: className, FieldName: name, Descriptor: desc}, nil
}
