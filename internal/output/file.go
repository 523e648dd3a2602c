// internal/output/file.go
package output

import (
	"fmt"
	"os"
	"path/filepath"
)

// pendingFile is a temporary file next to its final path. Commit renames it
// into place; Discard removes it. Exactly one of the two takes effect.
type pendingFile struct {
	*os.File
	path string
	done bool
}

func createPendingFile(path string) (*pendingFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &pendingFile{File: f, path: path}, nil
}

// Commit syncs and closes the temporary file and moves it to the final path.
func (p *pendingFile) Commit() error {
	if p.done {
		return ErrSinkClosed
	}
	p.done = true

	tmp := p.File.Name()
	if err := p.File.Sync(); err != nil {
		p.File.Close()
		os.Remove(tmp)
		return err
	}
	if err := p.File.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Discard closes and removes the temporary file.
func (p *pendingFile) Discard() error {
	if p.done {
		return nil
	}
	p.done = true

	closeErr := p.File.Close()
	if err := os.Remove(p.File.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}
