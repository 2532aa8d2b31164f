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
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common/js"
)

// SetValue writes value into el and returns what the field holds afterwards.
//
// Each attempt clicks, clears, types and reads the value back. An attempt is
// repeated, up to the configured number of retries, only when a non-blank
// value read back blank. Any other mismatch is logged as a warning and not
// returned as an error, since the page may legitimately transform input.
func (v *View) SetValue(ctx context.Context, el api.ElementRef, value string) (string, error) {
	attempts, err := v.conf.Int(KeyFieldRetries)
	if err != nil {
		return "", err
	}
	if attempts < 1 {
		attempts = 1
	}

	var got string
	for i := 1; i <= attempts; i++ {
		v.metrics.AddFieldAttempt()
		if got, err = v.writeField(ctx, el, value); err != nil {
			return "", fmt.Errorf("setting value of %s (attempt %d): %w", el.ID(), i, err)
		}
		if strings.TrimSpace(got) != "" || strings.TrimSpace(value) == "" {
			break
		}
		v.logger.Debugf("View:SetValue", "attempt %d: %s read back blank, want %q", i, el.ID(), value)
	}

	if !strings.EqualFold(got, value) {
		v.logger.Warnf("View:SetValue", "%s holds %q instead of %q", el.ID(), got, value)
	}

	return got, nil
}

func (v *View) writeField(ctx context.Context, el api.ElementRef, value string) (string, error) {
	if err := v.target.ElementClick(ctx, el); err != nil {
		return "", err
	}
	if err := v.target.ElementClear(ctx, el); err != nil {
		return "", err
	}
	if err := v.target.ElementSendKeys(ctx, el, value); err != nil {
		return "", err
	}
	return v.attr(ctx, el, "value")
}

// GetValue returns the current value of el.
func (v *View) GetValue(ctx context.Context, el api.ElementRef) (string, error) {
	return v.attr(ctx, el, "value")
}

// WaitForFieldToPopulate waits for the whole value of field to match pattern.
func (v *View) WaitForFieldToPopulate(
	ctx context.Context, timeout time.Duration, pattern string, field api.ElementRef,
) error {
	return v.TriggerAndWaitForFieldToPopulate(ctx, timeout, pattern, field, nil)
}

// TriggerAndWaitForFieldToPopulate waits for the whole value of field to
// match pattern. After every poll that does not match, trigger (if set) is
// focused and blurred to provoke the page into populating field again.
func (v *View) TriggerAndWaitForFieldToPopulate(
	ctx context.Context, timeout time.Duration, pattern string, field, trigger api.ElementRef,
) error {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return fmt.Errorf("%w: field pattern %q: %v", ErrInvalidArgument, pattern, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: field wait timeout must be positive, got %s", ErrInvalidArgument, timeout)
	}
	p, err := v.policy("", KeyFieldInterval, timeout)
	if err != nil {
		return err
	}
	id, err := v.attr(ctx, field, "id")
	if err != nil {
		return err
	}

	return WaitBool(ctx, v.target, p,
		fmt.Sprintf("Field #%s never matched the regex: '%s'", id, pattern),
		func(ctx context.Context, t api.Target) (bool, error) {
			text, err := v.attr(ctx, field, "value")
			if err != nil {
				return false, err
			}
			v.logger.Debugf("View:TriggerAndWaitForFieldToPopulate", "current field text: %q", text)
			if re.MatchString(text) {
				return true, nil
			}
			if trigger != nil {
				if err := v.FocusElement(ctx, trigger); err != nil {
					return false, err
				}
				if err := v.BlurElement(ctx, trigger); err != nil {
					return false, err
				}
			}
			return false, nil
		}, v.waitOpts("field_populate")...)
}

// FocusElement fires a focus event on el.
func (v *View) FocusElement(ctx context.Context, el api.ElementRef) error {
	return v.triggerEvent(ctx, el, "focus")
}

// BlurElement fires a blur event on el.
func (v *View) BlurElement(ctx context.Context, el api.ElementRef) error {
	return v.triggerEvent(ctx, el, "blur")
}

func (v *View) triggerEvent(ctx context.Context, el api.ElementRef, event string) error {
	v.logger.Debugf("View:triggerEvent", "%s element %s", event, el.ID())
	if _, err := v.target.ExecuteScript(ctx, js.TriggerEventScript, el, event); err != nil {
		return fmt.Errorf("triggering %s on %s: %w", event, el.ID(), err)
	}
	return nil
}
