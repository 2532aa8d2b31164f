package cdp

import (
	"context"

	"github.com/chromedp/cdproto"
	cdpp "github.com/chromedp/cdproto/page"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
)

var dialogEvents = []cdproto.MethodType{
	cdproto.EventPageJavascriptDialogOpening,
	cdproto.EventPageJavascriptDialogClosed,
}

var _ api.Dialog = &dialog{}

type dialog struct {
	target  *Target
	session *session
	kind    cdpp.DialogType
	text    string
}

func (d *dialog) Text() string { return d.text }

func (d *dialog) Accept(ctx context.Context) error { return d.handle(ctx, true) }

func (d *dialog) Dismiss(ctx context.Context) error { return d.handle(ctx, false) }

func (d *dialog) handle(ctx context.Context, accept bool) error {
	d.session.dialogMu.Lock()
	open := d.session.dialog == d
	d.session.dialogMu.Unlock()
	if !open {
		return common.ErrNoDialogPresent
	}

	sctx := WithSessionID(ctx, string(d.session.id))
	if err := d.target.client.Page.HandleJavaScriptDialog(sctx, accept); err != nil {
		return common.CommunicationError("Page.handleJavaScriptDialog", err)
	}
	d.target.logger.Debugf("dialog:handle", "%s %q accept:%t", d.kind, d.text, accept)

	d.session.dialogMu.Lock()
	if d.session.dialog == d {
		d.session.dialog = nil
	}
	d.session.dialogMu.Unlock()

	return nil
}

// watchDialogs tracks the dialog open in s until the subscription is
// cancelled.
func (t *Target) watchDialogs(s *session, events <-chan *Event) {
	for evt := range events {
		switch ev := evt.Data.(type) {
		case *cdpp.EventJavascriptDialogOpening:
			t.logger.Debugf("Target:watchDialogs", "session:%s %s opened: %q", s.id, ev.Type, ev.Message)
			s.dialogMu.Lock()
			s.dialog = &dialog{target: t, session: s, kind: ev.Type, text: ev.Message}
			s.dialogMu.Unlock()
		case *cdpp.EventJavascriptDialogClosed:
			s.dialogMu.Lock()
			s.dialog = nil
			s.dialogMu.Unlock()
		}
	}
}

func (t *Target) NativeDialogCapable() bool { return true }

// DialogsOpenAsync is true: clicks do not wait for the dialog they open.
func (t *Target) DialogsOpenAsync() bool { return true }

func (t *Target) ActiveDialog(ctx context.Context) (api.Dialog, error) {
	_, s, err := t.sessionContext(ctx)
	if err != nil {
		return nil, err
	}
	s.dialogMu.Lock()
	defer s.dialogMu.Unlock()
	if s.dialog == nil {
		return nil, common.ErrNoDialogPresent
	}
	return s.dialog, nil
}
