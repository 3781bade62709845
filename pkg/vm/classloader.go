package vm

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"jvmcore/pkg/classfile"
	"jvmcore/pkg/vmerrors"
)

// ClassLoader loads .class files by internal (slash-separated) class name.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// classSource is one entry of an ordered classpath: a directory tree or an
// archive (.jar/.jmod) searched for a matching .class entry.
type classSource interface {
	find(name string) (io.ReadCloser, error)
}

// dirSource resolves name+".class" under a directory root.
type dirSource struct{ root string }

func (d dirSource) find(name string) (io.ReadCloser, error) {
	path := filepath.Join(d.root, name+".class")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vmerrors.WrapIoError(err, "opening %s", path)
	}
	return f, nil
}

// archiveSource resolves entries inside a .jar or .jmod. jmod archives
// store classes under a "classes/" prefix and carry a 4-byte "JM\x01\x00"
// header before the zip central directory; jars have none.
type archiveSource struct {
	path   string
	prefix string
	reader *zip.Reader
	data   []byte
}

func newArchiveSource(path string, isJmod bool) (*archiveSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, vmerrors.WrapIoError(err, "reading archive %s", path)
	}
	prefix := ""
	if isJmod {
		prefix = "classes/"
		raw = raw[4:]
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, vmerrors.WrapIoError(err, "opening archive %s", path)
	}
	return &archiveSource{path: path, prefix: prefix, reader: zr, data: raw}, nil
}

func (a *archiveSource) find(name string) (io.ReadCloser, error) {
	target := a.prefix + name + ".class"
	for _, file := range a.reader.File {
		if file.Name == target {
			rc, err := file.Open()
			if err != nil {
				return nil, vmerrors.WrapIoError(err, "opening %s in %s", target, a.path)
			}
			return rc, nil
		}
	}
	return nil, nil
}

// PathClassLoader resolves classes against an ordered list of classpath
// entries (directories, .jar files, .jmod files), caching every class it
// has already parsed. Within one PathClassLoader the entries are searched
// in order with no delegation between them; MultiClassLoader below adds a
// parent-first split on top of it.
type PathClassLoader struct {
	sources []classSource
	cache   map[string]*classfile.ClassFile
}

// NewPathClassLoader builds a loader from classpath entries in search
// order. Each entry may be a directory, a .jar, or a .jmod.
func NewPathClassLoader(classpath []string) (*PathClassLoader, error) {
	loader := &PathClassLoader{cache: make(map[string]*classfile.ClassFile)}
	for _, entry := range classpath {
		info, err := os.Stat(entry)
		if err != nil {
			return nil, vmerrors.WrapIoError(err, "resolving classpath entry %s", entry)
		}
		switch {
		case info.IsDir():
			loader.sources = append(loader.sources, dirSource{root: entry})
		case filepath.Ext(entry) == ".jmod":
			src, err := newArchiveSource(entry, true)
			if err != nil {
				return nil, err
			}
			loader.sources = append(loader.sources, src)
		case filepath.Ext(entry) == ".jar":
			src, err := newArchiveSource(entry, false)
			if err != nil {
				return nil, err
			}
			loader.sources = append(loader.sources, src)
		default:
			return nil, vmerrors.NewIoError("unrecognized classpath entry %s (want directory, .jar, or .jmod)", entry)
		}
	}
	return loader, nil
}

func (cl *PathClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := cl.cache[name]; ok {
		return cf, nil
	}
	for _, src := range cl.sources {
		rc, err := src.find(name)
		if err != nil {
			return nil, err
		}
		if rc == nil {
			continue
		}
		cf, err := classfile.Parse(rc)
		rc.Close()
		if err != nil {
			return nil, vmerrors.WrapParseError(err, "parsing class %s", name)
		}
		cl.cache[name] = cf
		return cf, nil
	}
	return nil, vmerrors.NewLinkageError("ClassNotFoundException: %s", name)
}

// MultiClassLoader chains a parent loader (consulted first, mirroring the
// delegation model a bootstrap/platform loader enforces) in front of a
// PathClassLoader for application classes.
type MultiClassLoader struct {
	Parent ClassLoader
	App    *PathClassLoader
}

func NewMultiClassLoader(parent ClassLoader, classpath []string) (*MultiClassLoader, error) {
	app, err := NewPathClassLoader(classpath)
	if err != nil {
		return nil, err
	}
	return &MultiClassLoader{Parent: parent, App: app}, nil
}

func (cl *MultiClassLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cl.Parent != nil {
		if cf, err := cl.Parent.LoadClass(name); err == nil {
			return cf, nil
		}
	}
	return cl.App.LoadClass(name)
}
