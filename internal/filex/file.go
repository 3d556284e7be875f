// Package filex provides the immutable, byte-addressable file source used by
// the digest engine and the part transfer loop, plus a data-dir helper.
package filex

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File is a read-only source with a fixed size. Reads at arbitrary offsets
// must not disturb each other, which is what io.ReaderAt guarantees.
type File interface {
	io.ReaderAt
	Size() int64
	Name() string
}

// Extension returns the lowercase text after the last dot of name, or an
// empty string when name has no dot.
func Extension(name string) string {
	base := filepath.Base(name)
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// LocalFile is a File backed by an *os.File. Size is captured at Open time.
type LocalFile struct {
	f    *os.File
	size int64
	name string
}

func Open(path string) (*LocalFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &LocalFile{f: f, size: st.Size(), name: filepath.Base(path)}, nil
}

func (l *LocalFile) ReadAt(p []byte, off int64) (int, error) { return l.f.ReadAt(p, off) }
func (l *LocalFile) Size() int64                             { return l.size }
func (l *LocalFile) Name() string                            { return l.name }
func (l *LocalFile) Close() error                            { return l.f.Close() }

// MemFile is an in-memory File.
type MemFile struct {
	r    *bytes.Reader
	name string
}

func FromBytes(name string, data []byte) *MemFile {
	return &MemFile{r: bytes.NewReader(data), name: name}
}

func (m *MemFile) ReadAt(p []byte, off int64) (int, error) { return m.r.ReadAt(p, off) }
func (m *MemFile) Size() int64                             { return m.r.Size() }
func (m *MemFile) Name() string                            { return m.name }

// ReadWindow reads exactly the bytes of [off, off+n) from f. A short read is
// an error: windows are never partially consumed.
func ReadWindow(f File, off int64, n int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := f.ReadAt(buf, off)
	if int64(read) == n {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read [%d,%d): %w", off, off+n, err)
}

// EnsureSubDir creates base/dirName if needed and returns its path. An empty
// base means the user's config directory.
func EnsureSubDir(base, dirName string) (string, error) {
	if base == "" {
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("config dir: %w", err)
		}
		base = cfg
	}

	dir := filepath.Join(base, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
