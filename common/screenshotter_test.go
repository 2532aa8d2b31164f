package common_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/sim"
)

func TestSaveScreenshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	abs := filepath.Join(t.TempDir(), "abs.png")
	tests := []struct {
		name     string
		path     string
		conf     map[string]string
		wantPath string
		wantSave bool
		wantErr  error
	}{
		{name: "relative", path: "login.png", wantPath: filepath.Join("shots", "login.png"), wantSave: true},
		{name: "extension added", path: "login", wantPath: filepath.Join("shots", "login.png"), wantSave: true},
		{name: "absolute", path: abs, wantPath: abs, wantSave: true},
		{name: "disabled", path: "login.png", conf: map[string]string{common.KeyScreenshotsAllow: "false"}},
		{name: "wrong extension", path: "login.jpg", wantErr: common.ErrInvalidArgument},
		{name: "empty path", path: " ", wantErr: common.ErrInvalidArgument},
		{
			name: "malformed switch", path: "login.png",
			conf: map[string]string{common.KeyScreenshotsAllow: "sometimes"}, wantErr: common.ErrConfiguration,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tv := newTestView(t, sim.Page{HTML: "<p/>"}, tt.conf)
			saved, err := tv.SaveScreenshot(ctx, tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, tv.persister.Paths())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSave, saved)
			if !tt.wantSave {
				assert.Empty(t, tv.persister.Paths())
				return
			}
			b, ok := tv.persister.File(tt.wantPath)
			require.True(t, ok, "saved at %v", tv.persister.Paths())
			assert.Equal(t, []byte("\x89PNG"), b[:4])
		})
	}
}
