// Package atomicfile writes files through a temporary sibling that is renamed
// over the destination only once its content is complete, so readers never
// observe a partially written file.
package atomicfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// File is a pending write to Path. Writes go to a hidden temporary file in
// the same directory; Commit publishes it, Abort discards it.
type File struct {
	*os.File

	// Path is the final destination.
	Path string

	sealed bool
	done   bool
}

// Create opens a new temporary file next to path with mode perm.
func Create(path string, perm os.FileMode) (*File, error) {
	dir, base := filepath.Split(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, err
	}
	return &File{File: f, Path: path}, nil
}

// TempPath returns the name of the temporary file.
func (f *File) TempPath() string {
	return f.File.Name()
}

// Seal flushes the temporary file to stable storage and closes it, leaving
// only the rename to Commit. No further writes are possible. On failure the
// temporary file is removed.
func (f *File) Seal() error {
	if f.done {
		return errors.New("atomicfile: already committed or aborted")
	}
	if f.sealed {
		return nil
	}
	if err := f.File.Sync(); err != nil {
		f.discard()
		return err
	}
	if err := f.File.Close(); err != nil {
		f.sealed = true
		f.discard()
		return err
	}
	f.sealed = true
	return nil
}

// Commit seals the temporary file if needed and renames it to Path. On
// failure the temporary file is removed.
func (f *File) Commit() error {
	if err := f.Seal(); err != nil {
		return err
	}
	f.done = true
	if err := os.Rename(f.TempPath(), f.Path); err != nil {
		os.Remove(f.TempPath())
		return err
	}
	return nil
}

// Abort closes and removes the temporary file. It is a no-op after Commit or
// a previous Abort, so it can be deferred unconditionally.
func (f *File) Abort() {
	if f.done {
		return
	}
	f.discard()
}

func (f *File) discard() {
	f.done = true
	if !f.sealed {
		f.File.Close()
	}
	os.Remove(f.TempPath())
}
