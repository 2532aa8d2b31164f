package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFilePersister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		path         string
		existingData string
		data         string
		truncates    bool
	}{
		{
			name: "just_file",
			path: "test.txt",
			data: "some data",
		},
		{
			name: "with_dir",
			path: "path/test.txt",
			data: "some data",
		},
		{
			name:         "truncates",
			path:         "test.txt",
			data:         "some data",
			truncates:    true,
			existingData: "existing data",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			p := filepath.Join(dir, tt.path)
			var err error

			// We want to make sure that the persister truncates the existing
			// data and therefore overwrites existing data. This sets up a file
			// with some existing data that should be overwritten.
			if tt.truncates {
				err = os.WriteFile(p, []byte(tt.existingData), 0o600)
				require.NoError(t, err)
			}

			l := &LocalFilePersister{}
			err = l.Persist(context.Background(), p, strings.NewReader(tt.data))
			assert.NoError(t, err)

			i, err := os.Stat(p)
			require.NoError(t, err)
			assert.False(t, i.IsDir())

			f, err := os.Open(filepath.Clean(p))
			require.NoError(t, err)
			defer func() {
				err = f.Close()
				require.NoError(t, err)
			}()

			bb, err := io.ReadAll(f)
			require.NoError(t, err)

			if tt.truncates {
				assert.NotEqual(t, tt.existingData, string(bb))
			}

			assert.Equal(t, tt.data, string(bb))

			entries, err := os.ReadDir(filepath.Dir(p))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "no temporary files may be left behind")
		})
	}
}

func TestLocalFilePersisterCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := filepath.Join(t.TempDir(), "shot.png")
	l := &LocalFilePersister{}
	require.ErrorIs(t, l.Persist(ctx, p, strings.NewReader("x")), context.Canceled)

	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}

func TestMemoryPersister(t *testing.T) {
	t.Parallel()

	var m MemoryPersister
	require.NoError(t, m.Persist(context.Background(), "b/shot.png", strings.NewReader("png")))
	require.NoError(t, m.Persist(context.Background(), "a/./shot.png", strings.NewReader("other")))

	b, ok := m.File("b/shot.png")
	require.True(t, ok)
	assert.Equal(t, "png", string(b))
	assert.Equal(t, []string{"a/shot.png", "b/shot.png"}, m.Paths())

	_, ok = m.File("missing.png")
	assert.False(t, ok)
}
