// Package archive holds the files of a mission archive in memory.
//
// Files are claimed exclusively by the object that owns them or read in
// shared mode when many objects reuse them, such as default templates.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	ErrFormat        = errors.New("invalid archive")
	ErrDuplicateFile = errors.New("file name already taken")
	ErrMissingFile   = errors.New("missing file")
)

type Archive struct {
	files map[string][]byte
}

func New() *Archive {
	return &Archive{files: make(map[string][]byte)}
}

// Load reads every entry of a zip stream. Directory entries are skipped.
func Load(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	a := New()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrFormat, f.Name, err)
		}
		if err := a.Add(f.Name, data); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func LoadBytes(data []byte) (*Archive, error) {
	return Load(bytes.NewReader(data), int64(len(data)))
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (a *Archive) Len() int {
	return len(a.files)
}

func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

// Names returns the file names in sorted order.
func (a *Archive) Names() []string {
	return slices.Sorted(maps.Keys(a.files))
}

// Find returns the sorted names matching pred.
func (a *Archive) Find(pred func(name string) bool) []string {
	var out []string
	for _, name := range a.Names() {
		if pred(name) {
			out = append(out, name)
		}
	}
	return out
}

func (a *Archive) Add(name string, data []byte) error {
	if a.files == nil {
		a.files = make(map[string][]byte)
	}
	if _, ok := a.files[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFile, name)
	}
	a.files[name] = data
	return nil
}

// Replace stores data under name and returns the previous contents.
func (a *Archive) Replace(name string, data []byte) ([]byte, bool) {
	if a.files == nil {
		a.files = make(map[string][]byte)
	}
	old, ok := a.files[name]
	a.files[name] = data
	return old, ok
}

func (a *Archive) Remove(name string) bool {
	_, ok := a.files[name]
	delete(a.files, name)
	return ok
}

// Claim removes name and hands its contents to the caller.
func (a *Archive) Claim(name string) ([]byte, error) {
	data, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
	}
	delete(a.files, name)
	return data, nil
}

// Read returns a copy of name, leaving it in place for other readers.
func (a *Archive) Read(name string) ([]byte, error) {
	data, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
	}
	return bytes.Clone(data), nil
}

// Merge adds every file of other to a. A name collision fails the merge
// and leaves a unchanged.
func (a *Archive) Merge(other *Archive) error {
	for name := range other.files {
		if a.Has(name) {
			return fmt.Errorf("%w: %s", ErrDuplicateFile, name)
		}
	}
	for name, data := range other.files {
		_ = a.Add(name, data)
	}
	return nil
}

func (a *Archive) Clone() *Archive {
	c := New()
	for name, data := range a.files {
		c.files[name] = bytes.Clone(data)
	}
	return c
}

// Write encodes the archive as a zip stream with entries in name order.
func (a *Archive) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range a.Names() {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		if _, err := fw.Write(a.files[name]); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	return nil
}

func (a *Archive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
