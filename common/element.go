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
	"strings"
	"time"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common/js"
)

type elementState struct {
	Displayed   bool
	Enabled     bool
	Tag         string
	TextContent string
	InnerText   *string
}

func (v *View) elementState(ctx context.Context, el api.ElementRef) (elementState, error) {
	raw, err := v.target.ExecuteScript(ctx, js.ElementStateScript, el)
	if err != nil {
		return elementState{}, fmt.Errorf("reading state of %s: %w", el.ID(), err)
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return elementState{}, fmt.Errorf("reading state of %s: unexpected %T", el.ID(), raw)
	}

	var s elementState
	s.Displayed, _ = m["displayed"].(bool)
	s.Enabled, _ = m["enabled"].(bool)
	s.Tag, _ = m["tag"].(string)
	s.TextContent, _ = m["textContent"].(string)
	if it, ok := m["innerText"].(string); ok {
		s.InnerText = &it
	}

	return s, nil
}

// WaitForPresenceOfElement waits for loc to match an element. A zero
// timeout uses the configured element timeout.
func (v *View) WaitForPresenceOfElement(ctx context.Context, loc api.Locator, timeout time.Duration) (api.ElementRef, error) {
	p, err := v.policy(KeyElementTimeout, KeyPageLoadInterval, timeout, ErrNotFound)
	if err != nil {
		return nil, err
	}
	return Wait(ctx, v.target, p, Condition[api.ElementRef]{
		Description: fmt.Sprintf("presence of element located by %s", loc),
		Check: func(ctx context.Context, t api.Target) (api.ElementRef, bool, error) {
			el, err := t.FindElement(ctx, loc)
			return el, err == nil, err
		},
	}, v.waitOpts("element_presence")...)
}

// WaitForPresenceOfAllElements waits for loc to match at least one element
// and returns every match.
func (v *View) WaitForPresenceOfAllElements(ctx context.Context, loc api.Locator, timeout time.Duration) ([]api.ElementRef, error) {
	p, err := v.policy(KeyElementTimeout, KeyPageLoadInterval, timeout, ErrNotFound)
	if err != nil {
		return nil, err
	}
	return Wait(ctx, v.target, p, Condition[[]api.ElementRef]{
		Description: fmt.Sprintf("presence of any elements located by %s", loc),
		Check: func(ctx context.Context, t api.Target) ([]api.ElementRef, bool, error) {
			els, err := t.FindElements(ctx, loc)
			return els, err == nil && len(els) > 0, err
		},
	}, v.waitOpts("element_presence")...)
}

// WaitForElementToAppear waits, with the configured element timeout and
// interval, for loc to match an element.
func (v *View) WaitForElementToAppear(ctx context.Context, loc api.Locator) (api.ElementRef, error) {
	p, err := v.policy(KeyElementTimeout, KeyElementInterval, 0, ErrNotFound)
	if err != nil {
		return nil, err
	}
	return Wait(ctx, v.target, p, Condition[api.ElementRef]{
		Description: fmt.Sprintf("element %s to appear", loc),
		Check: func(ctx context.Context, t api.Target) (api.ElementRef, bool, error) {
			el, err := t.FindElement(ctx, loc)
			return el, err == nil, err
		},
	}, v.waitOpts("element_appear")...)
}

// WaitForElementToBeClickable waits for loc to match a displayed, enabled
// element.
func (v *View) WaitForElementToBeClickable(ctx context.Context, loc api.Locator, timeout time.Duration) (api.ElementRef, error) {
	p, err := v.policy(KeyElementTimeout, KeyPageLoadInterval, timeout, ErrNotFound)
	if err != nil {
		return nil, err
	}
	return Wait(ctx, v.target, p, Condition[api.ElementRef]{
		Description: fmt.Sprintf("element to be clickable: %s", loc),
		Check: func(ctx context.Context, t api.Target) (api.ElementRef, bool, error) {
			el, err := t.FindElement(ctx, loc)
			if err != nil {
				return nil, false, err
			}
			s, err := v.elementState(ctx, el)
			if err != nil {
				return nil, false, err
			}
			return el, s.Displayed && s.Enabled, nil
		},
	}, v.waitOpts("element_clickable")...)
}

// GetHiddenText returns the text of el even when it is not displayed.
// textContent is used where innerText is unavailable or the target renders
// without dialogs, matching the headless drivers.
func (v *View) GetHiddenText(ctx context.Context, el api.ElementRef) (string, error) {
	s, err := v.elementState(ctx, el)
	if err != nil {
		return "", err
	}
	if s.InnerText != nil && *s.InnerText != s.TextContent {
		v.logger.Debugf("View:GetHiddenText", "textContent(%q) and innerText(%q) differ", s.TextContent, *s.InnerText)
	}
	if s.InnerText == nil || !v.target.NativeDialogCapable() {
		return s.TextContent, nil
	}
	return *s.InnerText, nil
}

// ScrollIntoView scrolls el into the viewport.
func (v *View) ScrollIntoView(ctx context.Context, el api.ElementRef) error {
	if _, err := v.target.ExecuteScript(ctx, "arguments[0].scrollIntoView();", el); err != nil {
		return fmt.Errorf("scrolling %s into view: %w", el.ID(), err)
	}
	return nil
}

// ParseDescriptionList turns the dt and dd children of a dl into a map from
// term to description.
func (v *View) ParseDescriptionList(ctx context.Context, termsAndDescriptions []api.ElementRef) (map[string]string, error) {
	list := make(map[string]string, len(termsAndDescriptions))
	var term string

	for _, el := range termsAndDescriptions {
		s, err := v.elementState(ctx, el)
		if err != nil {
			return nil, err
		}
		text := s.TextContent
		if s.InnerText != nil {
			text = *s.InnerText
		}
		text = strings.TrimSpace(text)
		v.logger.Debugf("View:ParseDescriptionList", "tag(%s) text(%s)", s.Tag, text)

		switch s.Tag {
		case "dt":
			term = text
		case "dd":
			if prev, ok := list[term]; ok {
				return nil, fmt.Errorf("key (%s) with multiple values (%s) and (%s)", term, prev, text)
			}
			list[term] = text
		default:
			return nil, fmt.Errorf("%w: unexpected tag in description list, tag is %s", ErrInvalidArgument, s.Tag)
		}
	}

	return list, nil
}

// WaitForDialogToAppear waits for a displayed jQuery UI dialog that contains
// an element matching contentSelector and has no .blockUI overlay left,
// then returns the dialog element.
func (v *View) WaitForDialogToAppear(ctx context.Context, contentSelector string) (api.ElementRef, error) {
	p, err := v.policy(KeyElementTimeout, KeyPageLoadInterval, 0)
	if err != nil {
		return nil, err
	}
	return Wait(ctx, v.target, p, Condition[api.ElementRef]{
		Description: fmt.Sprintf("jQuery UI dialog containing %q to load", contentSelector),
		Check: func(ctx context.Context, t api.Target) (api.ElementRef, bool, error) {
			raw, err := t.ExecuteScript(ctx, js.DialogScopeScript, contentSelector)
			if err != nil {
				return nil, false, err
			}
			if raw == nil {
				v.logger.Debugf("View:WaitForDialogToAppear", "dialog not yet present")
				return nil, false, nil
			}
			res, ok := raw.([]interface{})
			if !ok || len(res) != 2 {
				return nil, false, fmt.Errorf("locating dialog: unexpected %v", raw)
			}
			dialog, ok := res[0].(api.ElementRef)
			if !ok {
				return nil, false, fmt.Errorf("locating dialog: unexpected %T", res[0])
			}
			if blocks, _ := res[1].(float64); blocks > 0 {
				v.logger.Debugf("View:WaitForDialogToAppear", "dialog loading...")
				return nil, false, nil
			}
			return dialog, true, nil
		},
	}, v.waitOpts("dialog_appear")...)
}
