package vm

import (
	"bytes"
	"encoding/binary"

	"jvmcore/pkg/classfile"
)

// classBuilder assembles a minimal-but-valid .class byte stream for tests,
// mirroring pkg/classfile's own test builder: literal byte concatenation
// rather than a fixture file, since no binary testdata ships with this
// module.
type classBuilder struct {
	buf bytes.Buffer
	cp  [][]byte
}

func newClassBuilder() *classBuilder { return &classBuilder{} }

func (b *classBuilder) addUtf8(s string) uint16 {
	var e bytes.Buffer
	e.WriteByte(classfile.TagUtf8)
	binary.Write(&e, binary.BigEndian, uint16(len(s)))
	e.WriteString(s)
	b.cp = append(b.cp, e.Bytes())
	return uint16(len(b.cp))
}

func (b *classBuilder) addClass(nameIdx uint16) uint16 {
	var e bytes.Buffer
	e.WriteByte(classfile.TagClass)
	binary.Write(&e, binary.BigEndian, nameIdx)
	b.cp = append(b.cp, e.Bytes())
	return uint16(len(b.cp))
}

func (b *classBuilder) addNameAndType(nameIdx, descIdx uint16) uint16 {
	var e bytes.Buffer
	e.WriteByte(classfile.TagNameAndType)
	binary.Write(&e, binary.BigEndian, nameIdx)
	binary.Write(&e, binary.BigEndian, descIdx)
	b.cp = append(b.cp, e.Bytes())
	return uint16(len(b.cp))
}

func (b *classBuilder) addMethodref(classIdx, natIdx uint16) uint16 {
	var e bytes.Buffer
	e.WriteByte(classfile.TagMethodref)
	binary.Write(&e, binary.BigEndian, classIdx)
	binary.Write(&e, binary.BigEndian, natIdx)
	b.cp = append(b.cp, e.Bytes())
	return uint16(len(b.cp))
}

func (b *classBuilder) addFieldref(classIdx, natIdx uint16) uint16 {
	var e bytes.Buffer
	e.WriteByte(classfile.TagFieldref)
	binary.Write(&e, binary.BigEndian, classIdx)
	binary.Write(&e, binary.BigEndian, natIdx)
	b.cp = append(b.cp, e.Bytes())
	return uint16(len(b.cp))
}

func (b *classBuilder) addString(utf8Idx uint16) uint16 {
	var e bytes.Buffer
	e.WriteByte(classfile.TagString)
	binary.Write(&e, binary.BigEndian, utf8Idx)
	b.cp = append(b.cp, e.Bytes())
	return uint16(len(b.cp))
}

// method describes one method_info to embed, with a fully encoded Code body.
type methodDef struct {
	name, descriptor string
	flags            uint16
	maxStack         uint16
	maxLocals        uint16
	code             []byte
	handlers         []classfile.ExceptionHandler
}

func (b *classBuilder) encodeMethod(m methodDef) []byte {
	nameIdx := b.addUtf8(m.name)
	descIdx := b.addUtf8(m.descriptor)
	codeAttrNameIdx := b.addUtf8("Code")

	var codeAttr bytes.Buffer
	binary.Write(&codeAttr, binary.BigEndian, m.maxStack)
	binary.Write(&codeAttr, binary.BigEndian, m.maxLocals)
	binary.Write(&codeAttr, binary.BigEndian, uint32(len(m.code)))
	codeAttr.Write(m.code)
	binary.Write(&codeAttr, binary.BigEndian, uint16(len(m.handlers)))
	for _, h := range m.handlers {
		binary.Write(&codeAttr, binary.BigEndian, h.StartPC)
		binary.Write(&codeAttr, binary.BigEndian, h.EndPC)
		binary.Write(&codeAttr, binary.BigEndian, h.HandlerPC)
		binary.Write(&codeAttr, binary.BigEndian, h.CatchType)
	}
	binary.Write(&codeAttr, binary.BigEndian, uint16(0)) // nested attribute count

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, m.flags)
	binary.Write(&out, binary.BigEndian, nameIdx)
	binary.Write(&out, binary.BigEndian, descIdx)
	binary.Write(&out, binary.BigEndian, uint16(1)) // one attribute: Code
	binary.Write(&out, binary.BigEndian, codeAttrNameIdx)
	binary.Write(&out, binary.BigEndian, uint32(codeAttr.Len()))
	out.Write(codeAttr.Bytes())
	return out.Bytes()
}

// build assembles a full class file naming thisName (superName "" means
// java/lang/Object) with the given methods.
func (b *classBuilder) build(thisName, superName string, methods []methodDef) []byte {
	if superName == "" {
		superName = "java/lang/Object"
	}
	thisClass := b.addClass(b.addUtf8(thisName))
	superClass := b.addClass(b.addUtf8(superName))

	var methodBytes bytes.Buffer
	binary.Write(&methodBytes, binary.BigEndian, uint16(len(methods)))
	for _, m := range methods {
		methodBytes.Write(b.encodeMethod(m))
	}

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint32(0xCAFEBABE))
	binary.Write(&out, binary.BigEndian, uint16(0))
	binary.Write(&out, binary.BigEndian, uint16(61))
	binary.Write(&out, binary.BigEndian, uint16(len(b.cp)+1))
	for _, e := range b.cp {
		out.Write(e)
	}
	binary.Write(&out, binary.BigEndian, uint16(classfile.AccPublic|classfile.AccSuper))
	binary.Write(&out, binary.BigEndian, thisClass)
	binary.Write(&out, binary.BigEndian, superClass)
	binary.Write(&out, binary.BigEndian, uint16(0)) // interfaces
	binary.Write(&out, binary.BigEndian, uint16(0)) // fields
	out.Write(methodBytes.Bytes())
	binary.Write(&out, binary.BigEndian, uint16(0)) // class attributes
	return out.Bytes()
}

// parseClass is a small convenience wrapper around classfile.Parse for test
// bodies that only care about the resulting *classfile.ClassFile.
func parseClass(data []byte) (*classfile.ClassFile, error) {
	return classfile.Parse(bytes.NewReader(data))
}

// newTestFrame builds a Frame around a synthetic single-method class whose
// Code attribute has the given local/stack sizes and bytecode, for unit
// tests that exercise Frame/CallStack mechanics directly without going
// through a full VM.invoke call.
func newTestFrame(maxLocals, maxStack uint16, code []byte) *Frame {
	method := &classfile.MethodInfo{
		Name:       "test",
		Descriptor: "()V",
		Code: &classfile.CodeAttribute{
			MaxStack:  maxStack,
			MaxLocals: maxLocals,
			Code:      code,
		},
	}
	return NewFrame(method, &classfile.ClassFile{})
}

// singleClassLoader resolves exactly one pre-parsed class, for tests that
// need a ClassLoader but don't want to touch the filesystem.
type singleClassLoader struct {
	classes map[string]*classfile.ClassFile
}

func newSingleClassLoader() *singleClassLoader {
	return &singleClassLoader{classes: make(map[string]*classfile.ClassFile)}
}

func (l *singleClassLoader) add(name string, cf *classfile.ClassFile) { l.classes[name] = cf }

func (l *singleClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := l.classes[name]; ok {
		return cf, nil
	}
	return nil, vmRuntimeErrorf("class not found: %s", name)
}
