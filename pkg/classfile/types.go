package classfile

// Access flags shared by classes, fields and methods (JVM spec table 4.1-A/4.5-A/4.6-A).
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccModule       = 0x8000
)

// ClassFile is the fully parsed, immutable representation of a .class file.
type ClassFile struct {
	MinorVersion     uint16
	MajorVersion     uint16
	ConstantPool     []ConstantPoolEntry
	AccessFlags      uint16
	ThisClass        uint16
	SuperClass       uint16
	Interfaces       []uint16
	Fields           []FieldInfo
	Methods          []MethodInfo
	SourceFile       string
	BootstrapMethods []BootstrapMethod
}

// ConstantPoolEntry is implemented by every constant pool variant.
type ConstantPoolEntry interface {
	Tag() uint8
}

// ClassName returns the fully qualified internal name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// SuperClassName returns the internal name of the superclass, or "" for java/lang/Object.
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	name, err := GetClassName(cf.ConstantPool, cf.SuperClass)
	if err != nil {
		return ""
	}
	return name
}

// FindMethod finds a method by exact name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds a method by name only (first match).
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field by name.
func (cf *ClassFile) FindField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return &cf.Fields[i]
		}
	}
	return nil
}

// IsInterface reports whether the ACC_INTERFACE bit is set.
func (cf *ClassFile) IsInterface() bool {
	return cf.AccessFlags&AccInterface != 0
}

// MethodInfo is a method_info structure after resolution of its name/descriptor/attributes.
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
	Code        *CodeAttribute
	Exceptions  []string // internal names of checked exceptions, from the Exceptions attribute
}

// IsStatic reports whether ACC_STATIC is set.
func (m *MethodInfo) IsStatic() bool { return m.AccessFlags&AccStatic != 0 }

// IsNative reports whether ACC_NATIVE is set.
func (m *MethodInfo) IsNative() bool { return m.AccessFlags&AccNative != 0 }

// IsAbstract reports whether ACC_ABSTRACT is set.
func (m *MethodInfo) IsAbstract() bool { return m.AccessFlags&AccAbstract != 0 }

// FieldInfo is a field_info structure after resolution of its name/descriptor/attributes.
type FieldInfo struct {
	AccessFlags   uint16
	Name          string
	Descriptor    string
	Attributes    []AttributeInfo
	ConstantValue ConstantPoolEntry // non-nil when a ConstantValue attribute was present
}

// IsStatic reports whether ACC_STATIC is set.
func (f *FieldInfo) IsStatic() bool { return f.AccessFlags&AccStatic != 0 }

// AttributeInfo is a raw, name-resolved attribute. Every field and method
// attribute is kept this way as opaque bytes, whether or not it is also
// decoded. Class-level attributes are not kept: only SourceFile and
// BootstrapMethods are decoded, and the rest are discarded.
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionHandler is one entry of a Code attribute's exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16 // constant pool index of a CONSTANT_Class, or 0 for catch-all
}

// LineNumberEntry maps a bytecode offset to a source line.
type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

// CodeAttribute is the decoded Code attribute of a method.
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte        // raw bytecode, byte-offset addressed
	Instructions      []Instruction // pre-decoded, spacer-padded, byte-offset addressed
	ExceptionHandlers []ExceptionHandler
	LineNumbers       []LineNumberEntry
	Attributes        []AttributeInfo
}

// BootstrapMethod is one entry of the class-level BootstrapMethods attribute,
// used by invokedynamic.
type BootstrapMethod struct {
	MethodRef          uint16
	BootstrapArguments []uint16
}
