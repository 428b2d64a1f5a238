package fs

import (
	"errors"
	iofs "io/fs"
	"path"
	"strings"
)

// ReadOnlyFileSystem adapts an io/fs.FS (os.DirFS, embed.FS, fstest.MapFS)
// to FileSystem. Paths are slash-separated and relative to the FS root.
type ReadOnlyFileSystem struct {
	fs iofs.FS
}

func NewReadOnlyFileSystem(fsys iofs.FS) *ReadOnlyFileSystem {
	return &ReadOnlyFileSystem{fs: fsys}
}

func clean(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}

func (fs *ReadOnlyFileSystem) ReadFile(p string) ([]byte, error) {
	return iofs.ReadFile(fs.fs, clean(p))
}

func (fs *ReadOnlyFileSystem) DirFS(dir string) (iofs.FS, error) {
	dir = clean(dir)
	if dir == "." {
		return fs.fs, nil
	}
	return iofs.Sub(fs.fs, dir)
}

func (fs *ReadOnlyFileSystem) FileExists(p string) bool {
	_, err := iofs.Stat(fs.fs, clean(p))
	return err == nil
}

func (fs *ReadOnlyFileSystem) WriteFile(path string, data []byte, perm iofs.FileMode) error {
	return errors.New("read-only filesystem")
}

func (fs *ReadOnlyFileSystem) MkdirAll(path string, perm iofs.FileMode) error {
	return errors.New("read-only filesystem")
}

func (fs *ReadOnlyFileSystem) Remove(path string) error {
	return errors.New("read-only filesystem")
}
