package vm

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeClassFile(t *testing.T, dir, className string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, className+".class")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func trivialClass(name, super string) []byte {
	return newClassBuilder().build(name, super, nil)
}

func TestPathClassLoaderDirectory(t *testing.T) {
	dir := t.TempDir()
	writeClassFile(t, dir, "Hello", trivialClass("Hello", "java/lang/Object"))

	loader, err := NewPathClassLoader([]string{dir})
	require.NoError(t, err)

	cf, err := loader.LoadClass("Hello")
	require.NoError(t, err)
	name, err := cf.ClassName()
	require.NoError(t, err)
	require.Equal(t, "Hello", name)
}

func TestPathClassLoaderCache(t *testing.T) {
	dir := t.TempDir()
	writeClassFile(t, dir, "Hello", trivialClass("Hello", "java/lang/Object"))

	loader, err := NewPathClassLoader([]string{dir})
	require.NoError(t, err)

	cf1, err := loader.LoadClass("Hello")
	require.NoError(t, err)
	cf2, err := loader.LoadClass("Hello")
	require.NoError(t, err)
	require.Same(t, cf1, cf2)
}

func TestPathClassLoaderNotFound(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewPathClassLoader([]string{dir})
	require.NoError(t, err)

	_, err = loader.LoadClass("com/nonexistent/Foo")
	require.Error(t, err)
}

func TestPathClassLoaderJar(t *testing.T) {
	dir := t.TempDir()
	jarPath := filepath.Join(dir, "lib.jar")
	f, err := os.Create(jarPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("pkg/Greeter.class")
	require.NoError(t, err)
	_, err = w.Write(trivialClass("pkg/Greeter", "java/lang/Object"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	loader, err := NewPathClassLoader([]string{jarPath})
	require.NoError(t, err)

	cf, err := loader.LoadClass("pkg/Greeter")
	require.NoError(t, err)
	name, err := cf.ClassName()
	require.NoError(t, err)
	require.Equal(t, "pkg/Greeter", name)
}

func TestPathClassLoaderJmod(t *testing.T) {
	dir := t.TempDir()
	jmodPath := filepath.Join(dir, "java.base.jmod")
	f, err := os.Create(jmodPath)
	require.NoError(t, err)
	_, err = f.Write([]byte("JM\x01\x00"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("classes/java/lang/Integer.class")
	require.NoError(t, err)
	_, err = w.Write(trivialClass("java/lang/Integer", "java/lang/Number"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	loader, err := NewPathClassLoader([]string{jmodPath})
	require.NoError(t, err)

	cf, err := loader.LoadClass("java/lang/Integer")
	require.NoError(t, err)
	name, err := cf.ClassName()
	require.NoError(t, err)
	require.Equal(t, "java/lang/Integer", name)
}

func TestMultiClassLoaderDelegatesToParentFirst(t *testing.T) {
	platformDir := t.TempDir()
	writeClassFile(t, platformDir, "java/lang/Integer", trivialClass("java/lang/Integer", "java/lang/Number"))
	platform, err := NewPathClassLoader([]string{platformDir})
	require.NoError(t, err)

	appDir := t.TempDir()
	writeClassFile(t, appDir, "Hello", trivialClass("Hello", "java/lang/Object"))

	multi, err := NewMultiClassLoader(platform, []string{appDir})
	require.NoError(t, err)

	cf, err := multi.LoadClass("Hello")
	require.NoError(t, err)
	name, err := cf.ClassName()
	require.NoError(t, err)
	require.Equal(t, "Hello", name)

	cf, err = multi.LoadClass("java/lang/Integer")
	require.NoError(t, err)
	name, err = cf.ClassName()
	require.NoError(t, err)
	require.Equal(t, "java/lang/Integer", name)
}

func TestMultiClassLoaderNotFound(t *testing.T) {
	appDir := t.TempDir()
	multi, err := NewMultiClassLoader(nil, []string{appDir})
	require.NoError(t, err)

	_, err = multi.LoadClass("NonExistentClass")
	require.Error(t, err)
}

func TestPathClassLoaderUnrecognizedEntry(t *testing.T) {
	dir := t.TempDir()
	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("hi"), 0o644))

	_, err := NewPathClassLoader([]string{txtPath})
	require.Error(t, err)
}
