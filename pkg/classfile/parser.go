package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a .class file from the given reader and returns a ClassFile.
func Parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	if err := binary.Read(r, binary.BigEndian, &cf.MinorVersion); err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MajorVersion); err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}

	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool

	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}

	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, fmt.Errorf("reading interfaces count: %w", err)
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := uint16(0); i < interfacesCount; i++ {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
	}

	var fieldsCount uint16
	if err := binary.Read(r, binary.BigEndian, &fieldsCount); err != nil {
		return nil, fmt.Errorf("reading fields count: %w", err)
	}
	cf.Fields, err = parseFields(r, cf.ConstantPool, fieldsCount)
	if err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}

	var methodsCount uint16
	if err := binary.Read(r, binary.BigEndian, &methodsCount); err != nil {
		return nil, fmt.Errorf("reading methods count: %w", err)
	}
	cf.Methods, err = parseMethods(r, cf.ConstantPool, methodsCount)
	if err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}

	if err := cf.parseClassAttributes(r); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return cf, nil
}

func parseFields(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]FieldInfo, error) {
	fields := make([]FieldInfo, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, nameIndex, descIndex, attrCount, err := readMemberHeader(r)
		if err != nil {
			return nil, fmt.Errorf("reading field %d header: %w", i, err)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving field %d name: %w", i, err)
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving field %d descriptor: %w", i, err)
		}

		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, fmt.Errorf("parsing field %d attributes: %w", i, err)
		}

		field := FieldInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
		for _, attr := range attrs {
			if attr.Name == "ConstantValue" && len(attr.Data) >= 2 {
				idx := binary.BigEndian.Uint16(attr.Data[0:2])
				if int(idx) < len(pool) {
					field.ConstantValue = pool[idx]
				}
			}
		}
		fields[i] = field
	}
	return fields, nil
}

func parseMethods(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]MethodInfo, error) {
	methods := make([]MethodInfo, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, nameIndex, descIndex, attrCount, err := readMemberHeader(r)
		if err != nil {
			return nil, fmt.Errorf("reading method %d header: %w", i, err)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving method %d name: %w", i, err)
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving method %d descriptor: %w", i, err)
		}

		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, fmt.Errorf("parsing method %d attributes: %w", i, err)
		}

		m := MethodInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}

		for _, attr := range attrs {
			switch attr.Name {
			case "Code":
				code, err := parseCodeAttribute(pool, attr.Data)
				if err != nil {
					return nil, fmt.Errorf("parsing Code attribute for method %s: %w", name, err)
				}
				m.Code = code
			case "Exceptions":
				excs, err := parseExceptionsAttribute(pool, attr.Data)
				if err != nil {
					return nil, fmt.Errorf("parsing Exceptions attribute for method %s: %w", name, err)
				}
				m.Exceptions = excs
			}
		}

		methods[i] = m
	}
	return methods, nil
}

func readMemberHeader(r io.Reader) (accessFlags, nameIndex, descIndex, attrCount uint16, err error) {
	if err = binary.Read(r, binary.BigEndian, &accessFlags); err != nil {
		return
	}
	if err = binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
		return
	}
	if err = binary.Read(r, binary.BigEndian, &descIndex); err != nil {
		return
	}
	err = binary.Read(r, binary.BigEndian, &attrCount)
	return
}

func parseAttributeInfos(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := uint16(0); i < count; i++ {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, fmt.Errorf("reading attribute %d name index: %w", i, err)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("reading attribute %d length: %w", i, err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("reading attribute %d data: %w", i, err)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}

		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, nil
}

func parseExceptionsAttribute(pool []ConstantPoolEntry, data []byte) ([]string, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("Exceptions attribute too short")
	}
	count := binary.BigEndian.Uint16(data[0:2])
	names := make([]string, 0, count)
	offset := 2
	for i := uint16(0); i < count; i++ {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("Exceptions attribute entry %d truncated", i)
		}
		idx := binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
		name, err := GetClassName(pool, idx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (cf *ClassFile) parseClassAttributes(r io.Reader) error {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return err
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return err
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return err
		}
		name, err := GetUtf8(cf.ConstantPool, nameIndex)
		if err != nil {
			continue // unresolvable attribute name: skip, preserve nothing
		}
		switch name {
		case "BootstrapMethods":
			cf.BootstrapMethods, err = parseBootstrapMethods(data)
			if err != nil {
				return fmt.Errorf("parsing BootstrapMethods: %w", err)
			}
		case "SourceFile":
			if len(data) >= 2 {
				idx := binary.BigEndian.Uint16(data[0:2])
				if sf, err := GetUtf8(cf.ConstantPool, idx); err == nil {
					cf.SourceFile = sf
				}
			}
		}
		// All other class-level attributes (InnerClasses, Signature, etc.) are
		// intentionally dropped: nothing in this interpreter consumes them.
	}
	return nil
}

func parseBootstrapMethods(data []byte) ([]BootstrapMethod, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("BootstrapMethods data too short")
	}
	numMethods := binary.BigEndian.Uint16(data[0:2])
	offset := 2
	methods := make([]BootstrapMethod, numMethods)
	for i := uint16(0); i < numMethods; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("BootstrapMethods truncated at method %d", i)
		}
		methodRef := binary.BigEndian.Uint16(data[offset : offset+2])
		numArgs := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		offset += 4
		args := make([]uint16, numArgs)
		for j := uint16(0); j < numArgs; j++ {
			if offset+2 > len(data) {
				return nil, fmt.Errorf("BootstrapMethods truncated at arg %d of method %d", j, i)
			}
			args[j] = binary.BigEndian.Uint16(data[offset : offset+2])
			offset += 2
		}
		methods[i] = BootstrapMethod{MethodRef: methodRef, BootstrapArguments: args}
	}
	return methods, nil
}
