package sim

import (
	"context"
	"fmt"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
)

type dialog struct {
	target *Target
	kind   string
	text   string
	// polls left before the dialog becomes visible
	hidden int
}

func (d *dialog) Text() string { return d.text }

func (d *dialog) Accept(ctx context.Context) error { return d.close(ctx, "accept") }

func (d *dialog) Dismiss(ctx context.Context) error { return d.close(ctx, "dismiss") }

func (d *dialog) close(ctx context.Context, action string) error {
	t := d.target
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(ctx, "Dialog"); err != nil {
		return err
	}
	if t.dialog != d {
		return fmt.Errorf("%w: dialog %q is already closed", common.ErrNoDialogPresent, d.text)
	}
	t.dialog = nil
	t.dialogs = append(t.dialogs, DialogRecord{Type: d.kind, Text: d.text, Action: action})
	return nil
}

// openDialog is called by alert and confirm. Without native dialogs they
// are ignored, as on a headless surface.
func (t *Target) openDialog(kind, text string) bool {
	if !t.native {
		t.logger.Debugf("sim:openDialog", "ignoring %s %q", kind, text)
		return true
	}
	t.dialog = &dialog{target: t, kind: kind, text: text, hidden: t.dialogDelay}
	return true
}

// NativeDialogCapable reports whether the target was built with native dialogs.
func (t *Target) NativeDialogCapable() bool { return t.native }

// DialogsOpenAsync reports whether dialogs show up after the click returns.
func (t *Target) DialogsOpenAsync() bool { return t.async }

// ActiveDialog returns the open native dialog.
func (t *Target) ActiveDialog(ctx context.Context) (api.Dialog, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(ctx, "ActiveDialog"); err != nil {
		return nil, err
	}
	if !t.native || t.dialog == nil {
		return nil, common.ErrNoDialogPresent
	}
	if t.dialog.hidden > 0 {
		t.dialog.hidden--
		return nil, common.ErrNoDialogPresent
	}
	return t.dialog, nil
}

var (
	_ api.Target            = (*Target)(nil)
	_ api.Screenshotter     = (*Target)(nil)
	_ api.AsyncDialogOpener = (*Target)(nil)
)
