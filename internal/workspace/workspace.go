// Package workspace provides per-request scratch directories for uploaded
// schedules and generated documents, plus a janitor that removes
// directories left behind by requests that never cleaned up.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	appLog "shiftcal/internal/log"
)

// ErrTooLarge is returned by Save when the input exceeds the limit.
var ErrTooLarge = errors.New("file too large")

// Workspace is one request's private directory. It is not safe for
// concurrent use; each conversion owns its own Workspace.
type Workspace struct {
	ID  string
	Dir string
}

// New creates a fresh workspace under root.
func New(root string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	id := uuid.NewString()
	dir := filepath.Join(root, dirPrefix+id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	appLog.Debug("workspace created", "id", id, "dir", dir)
	return &Workspace{ID: id, Dir: dir}, nil
}

// Path returns the location of name inside the workspace. Directory parts
// of name are dropped.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, baseName(name))
}

// Save copies r into the workspace as name. When limit > 0 and r holds more
// than limit bytes, the partial file is removed and ErrTooLarge returned.
func (w *Workspace) Save(name string, r io.Reader, limit int64) (string, error) {
	path := w.Path(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", copyErr
	case closeErr != nil:
		_ = os.Remove(path)
		return "", closeErr
	case limit > 0 && n > limit:
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}
	return path, nil
}

// WriteFile stores data in the workspace as name.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens a file previously stored in the workspace.
func (w *Workspace) Open(name string) (*os.File, error) {
	return os.Open(w.Path(name))
}

// Close removes the workspace and everything in it. It is safe to call
// more than once.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	err := os.RemoveAll(w.Dir)
	if err == nil {
		appLog.Debug("workspace removed", "id", w.ID)
	}
	return err
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
