// Package storage persists artifacts such as screenshots.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FilePersister will persist files. It abstracts away the where and how of
// writing files to the source destination.
type FilePersister interface {
	Persist(ctx context.Context, path string, data io.Reader) error
}

// LocalFilePersister will persist files to the local disk.
type LocalFilePersister struct{}

// Persist writes data to path on the local disk, creating parent
// directories. The file is written next to its destination and renamed into
// place, so readers never see a partial file.
func (l *LocalFilePersister) Persist(ctx context.Context, path string, data io.Reader) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := filepath.Clean(path)
	dir := filepath.Dir(cp)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating a local directory %q: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(cp)+".*")
	if err != nil {
		return fmt.Errorf("creating a temporary file in %q: %w", dir, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(f, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %q: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing the local file %q: %w", tmp, err)
	}
	if err = os.Chmod(tmp, 0o600); err != nil {
		return fmt.Errorf("setting permissions of %q: %w", tmp, err)
	}
	if err = os.Rename(tmp, cp); err != nil {
		return fmt.Errorf("moving %q to %q: %w", tmp, cp, err)
	}

	return nil
}

// MemoryPersister keeps persisted files in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	files map[string][]byte
}

// Persist stores the contents of data under path.
func (m *MemoryPersister) Persist(_ context.Context, path string, data io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return fmt.Errorf("reading data for %q: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[filepath.Clean(path)] = buf.Bytes()

	return nil
}

// File returns the contents stored under path.
func (m *MemoryPersister) File(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[filepath.Clean(path)]
	return b, ok
}

// Paths returns the stored paths in order.
func (m *MemoryPersister) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ps := make([]string, 0, len(m.files))
	for p := range m.files {
		ps = append(ps, p)
	}
	sort.Strings(ps)
	return ps
}
