/*
 *
 * xk6-browser - a browser automation extension for k6
 * Copyright (C) 2021 Load Impact
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common/js"
)

const (
	alertCookie   = "alertMsg"
	newlineMarker = "#newLine#"
)

// DialogAction is what to do with a dialog.
type DialogAction int

// Dialog actions.
const (
	DialogAccept DialogAction = iota
	DialogDismiss
)

func (a DialogAction) String() string {
	if a == DialogDismiss {
		return "dismiss"
	}
	return "accept"
}

// DialogResult describes a handled dialog. Present is false when no dialog
// was found; a present dialog may still have no text.
type DialogResult struct {
	Text    null.String
	Action  DialogAction
	Present bool
}

// DialogStrategy handles the dialog raised by a click.
type DialogStrategy interface {
	// BeforeClick runs before the triggering click.
	BeforeClick(ctx context.Context, t api.Target, action DialogAction) error
	// AfterClick finds the dialog and applies action to it.
	AfterClick(ctx context.Context, t api.Target, action DialogAction) (DialogResult, error)
	// Present reports whether a dialog is showing.
	Present(ctx context.Context, t api.Target) (bool, error)
}

// dialogStrategy picks the strategy matching the target's capabilities.
func (v *View) dialogStrategy() (DialogStrategy, error) {
	if !v.target.NativeDialogCapable() {
		return &cookieDialogs{v: v}, nil
	}
	nd := &nativeDialogs{v: v}
	if a, ok := v.target.(api.AsyncDialogOpener); ok && a.DialogsOpenAsync() {
		p, err := v.policy(KeyDialogNativeTimeout, KeyDialogInterval, 0, ErrNoDialogPresent)
		if err != nil {
			return nil, err
		}
		nd.wait = &p
	}
	return nd, nil
}

// nativeDialogs drives real modal dialogs. When wait is set the dialog is
// polled for, because the click returns before the dialog opens.
type nativeDialogs struct {
	v    *View
	wait *PollPolicy
}

func (*nativeDialogs) BeforeClick(context.Context, api.Target, DialogAction) error { return nil }

func (n *nativeDialogs) AfterClick(ctx context.Context, t api.Target, action DialogAction) (DialogResult, error) {
	var (
		d   api.Dialog
		err error
	)
	if n.wait != nil {
		d, err = Wait(ctx, t, *n.wait, Condition[api.Dialog]{
			Description: "an alert to be present",
			Check: func(ctx context.Context, t api.Target) (api.Dialog, bool, error) {
				d, err := t.ActiveDialog(ctx)
				return d, err == nil, err
			},
		}, n.v.waitOpts("dialog")...)
	} else {
		d, err = t.ActiveDialog(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrNoDialogPresent, err)
		}
		return DialogResult{}, err
	}

	text := d.Text()
	n.v.logger.Debugf("nativeDialogs:AfterClick", "dialog text:%q action:%s", text, action)
	if action == DialogDismiss {
		err = d.Dismiss(ctx)
	} else {
		err = d.Accept(ctx)
	}
	if err != nil {
		return DialogResult{}, fmt.Errorf("trying to %s dialog: %w", action, err)
	}

	return DialogResult{Text: null.StringFrom(text), Action: action, Present: true}, nil
}

func (*nativeDialogs) Present(ctx context.Context, t api.Target) (bool, error) {
	_, err := t.ActiveDialog(ctx)
	if errors.Is(err, ErrNoDialogPresent) {
		return false, nil
	}
	return err == nil, err
}

// cookieDialogs emulates dialogs for targets that cannot show them: the
// page's alert and confirm are replaced before the click and the message
// is read back from the alertMsg cookie afterwards.
type cookieDialogs struct {
	v *View
}

func (c *cookieDialogs) BeforeClick(ctx context.Context, t api.Target, action DialogAction) error {
	if err := t.DeleteCookie(ctx, alertCookie); err != nil {
		return fmt.Errorf("clearing %s cookie: %w", alertCookie, err)
	}
	if _, err := t.ExecuteScript(ctx, js.DialogOverrideScript, action == DialogAccept); err != nil {
		return fmt.Errorf("overriding page dialogs: %w", err)
	}
	return nil
}

func (c *cookieDialogs) AfterClick(ctx context.Context, t api.Target, action DialogAction) (DialogResult, error) {
	raw, _, err := t.Cookie(ctx, alertCookie)
	if err != nil {
		return DialogResult{}, fmt.Errorf("reading %s cookie: %w", alertCookie, err)
	}
	msg := strings.TrimSpace(raw)
	if msg == "" {
		return DialogResult{}, fmt.Errorf("%w: %s cookie is empty", ErrNoDialogPresent, alertCookie)
	}
	if err := t.DeleteCookie(ctx, alertCookie); err != nil {
		return DialogResult{}, fmt.Errorf("clearing %s cookie: %w", alertCookie, err)
	}

	text := strings.ReplaceAll(msg, newlineMarker, "\n")
	c.v.logger.Debugf("cookieDialogs:AfterClick", "dialog text:%q action:%s", text, action)

	return DialogResult{Text: null.StringFrom(text), Action: action, Present: true}, nil
}

func (c *cookieDialogs) Present(ctx context.Context, t api.Target) (bool, error) {
	raw, _, err := t.Cookie(ctx, alertCookie)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(raw) != "", nil
}

// ClickAndHandleAlert clicks el and applies action to the dialog it raises.
// With mustBePresent a missing dialog fails with ErrNoDialogPresent,
// otherwise it yields a result with Present unset.
func (v *View) ClickAndHandleAlert(
	ctx context.Context, el api.ElementRef, action DialogAction, mustBePresent bool,
) (DialogResult, error) {
	s, err := v.dialogStrategy()
	if err != nil {
		return DialogResult{}, err
	}
	if err := s.BeforeClick(ctx, v.target, action); err != nil {
		return DialogResult{}, err
	}
	if err := v.target.ElementClick(ctx, el); err != nil {
		return DialogResult{}, fmt.Errorf("clicking %s: %w", el.ID(), err)
	}

	res, err := s.AfterClick(ctx, v.target, action)
	if errors.Is(err, ErrNoDialogPresent) && !mustBePresent {
		v.logger.Debugf("View:ClickAndHandleAlert", "no dialog after clicking %s: %v", el.ID(), err)
		return DialogResult{Action: action}, nil
	}
	if err != nil {
		return DialogResult{}, err
	}

	return res, nil
}

// ClickAndAcceptAlert clicks el and accepts the dialog it must raise.
func (v *View) ClickAndAcceptAlert(ctx context.Context, el api.ElementRef) (DialogResult, error) {
	return v.ClickAndHandleAlert(ctx, el, DialogAccept, true)
}

// ClickAndDismissAlert clicks el and dismisses the dialog it must raise.
func (v *View) ClickAndDismissAlert(ctx context.Context, el api.ElementRef) (DialogResult, error) {
	return v.ClickAndHandleAlert(ctx, el, DialogDismiss, true)
}

// ClickAndAcceptAlertIfPresent clicks el and accepts a dialog if one shows.
func (v *View) ClickAndAcceptAlertIfPresent(ctx context.Context, el api.ElementRef) (DialogResult, error) {
	return v.ClickAndHandleAlert(ctx, el, DialogAccept, false)
}

// IsAlertPresent reports whether a dialog is showing.
func (v *View) IsAlertPresent(ctx context.Context) (bool, error) {
	s, err := v.dialogStrategy()
	if err != nil {
		return false, err
	}
	return s.Present(ctx, v.target)
}

// WaitForAlertToBePresent waits for a dialog to show.
func (v *View) WaitForAlertToBePresent(ctx context.Context) error {
	s, err := v.dialogStrategy()
	if err != nil {
		return err
	}
	p, err := v.policy(KeyDialogNativeTimeout, KeyDialogInterval, 0)
	if err != nil {
		return err
	}
	return WaitBool(ctx, v.target, p, "an alert to be present", s.Present, v.waitOpts("dialog")...)
}
