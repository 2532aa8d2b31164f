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
)

// WindowMode says whether the window being looked for was just opened.
type WindowMode int

// Window modes.
const (
	ExpectExisting WindowMode = iota
	ExpectNew
)

// minWindows is the window count that must be reached before searching.
//
// This assumes at most two windows are open at a time; with three or more
// windows ExpectNew may start searching before the new one has appeared.
func (m WindowMode) minWindows() int {
	if m == ExpectNew {
		return 2
	}
	return 1
}

func (m WindowMode) String() string {
	if m == ExpectNew {
		return "new"
	}
	return "existing"
}

// ElementMarker looks up an element in whatever window is active. It must
// return an error matching ErrNotFound when the element is absent.
type ElementMarker struct {
	Name   string
	Lookup func(ctx context.Context, t api.Target) (api.ElementRef, error)
}

// LocatorMarker returns an ElementMarker backed by a locator.
func LocatorMarker(loc api.Locator) ElementMarker {
	return ElementMarker{
		Name: loc.String(),
		Lookup: func(ctx context.Context, t api.Target) (api.ElementRef, error) {
			return t.FindElement(ctx, loc)
		},
	}
}

// WindowCriteria identifies the window to switch to. At least one field must
// be set, and Element and Locator are mutually exclusive.
type WindowCriteria struct {
	Element *ElementMarker
	Locator *api.Locator
	Title   null.String
}

func (c WindowCriteria) String() string {
	var parts []string
	if c.Element != nil {
		parts = append(parts, "element "+c.Element.Name)
	}
	if c.Locator != nil {
		parts = append(parts, "locator "+c.Locator.String())
	}
	if c.Title.Valid {
		parts = append(parts, fmt.Sprintf("title %q", c.Title.String))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (c WindowCriteria) validate() error {
	if c.Element == nil && c.Locator == nil && !c.Title.Valid {
		return fmt.Errorf("%w: element, locator, and title are all unset; cannot determine the correct window",
			ErrInvalidArgument)
	}
	if c.Element != nil && c.Locator != nil {
		return fmt.Errorf("%w: element and locator cannot both be used to identify a window", ErrInvalidArgument)
	}
	return nil
}

// SwitchToNewWindow switches to a newly opened window containing loc and,
// if title is valid, with that title.
func (v *View) SwitchToNewWindow(ctx context.Context, loc api.Locator, title null.String) (api.WindowHandle, error) {
	return v.SwitchToWindow(ctx, WindowCriteria{Locator: &loc, Title: title}, ExpectNew)
}

// SwitchToOpenWindow switches back to an already open window containing loc.
func (v *View) SwitchToOpenWindow(ctx context.Context, loc api.Locator, title null.String) (api.WindowHandle, error) {
	return v.SwitchToWindow(ctx, WindowCriteria{Locator: &loc, Title: title}, ExpectExisting)
}

// SwitchToNewWindowWithElement is SwitchToNewWindow using an element marker.
func (v *View) SwitchToNewWindowWithElement(
	ctx context.Context, el ElementMarker, title null.String,
) (api.WindowHandle, error) {
	return v.SwitchToWindow(ctx, WindowCriteria{Element: &el, Title: title}, ExpectNew)
}

// SwitchToOpenWindowWithElement is SwitchToOpenWindow using an element marker.
func (v *View) SwitchToOpenWindowWithElement(
	ctx context.Context, el ElementMarker, title null.String,
) (api.WindowHandle, error) {
	return v.SwitchToWindow(ctx, WindowCriteria{Element: &el, Title: title}, ExpectExisting)
}

// SwitchToWindow makes the window matching c the active one and returns its
// handle. Every open window is tried in turn, so the active window on
// failure is whichever was tried last.
func (v *View) SwitchToWindow(ctx context.Context, c WindowCriteria, mode WindowMode) (api.WindowHandle, error) {
	if err := c.validate(); err != nil {
		return "", err
	}
	v.logger.Debugf("View:SwitchToWindow", "criteria:%s mode:%s", c, mode)

	p, err := v.policy(KeyWindowTimeout, KeyWindowInterval, 0)
	if err != nil {
		return "", fmt.Errorf("switching to window: %w", err)
	}
	want := mode.minWindows()
	handles, err := Wait(ctx, v.target, p, Condition[[]api.WindowHandle]{
		Description: fmt.Sprintf("at least %d window(s) to be open", want),
		Check: func(ctx context.Context, t api.Target) ([]api.WindowHandle, bool, error) {
			hs, err := t.WindowHandles(ctx)
			if err != nil {
				return nil, false, err
			}
			return hs, len(hs) >= want, nil
		},
	}, v.waitOpts("window_count")...)
	if err != nil {
		return "", err
	}
	v.logger.Debugf("View:SwitchToWindow", "window handles: %v", handles)

	for _, h := range handles {
		ok, err := v.tryWindow(ctx, h, c)
		if err != nil {
			return "", err
		}
		if ok {
			v.logger.Debugf("View:SwitchToWindow", "matched window %q", h)
			return h, nil
		}
	}

	return "", &WindowNotFoundError{Criteria: c, Handles: handles}
}

// tryWindow switches to h and reports whether it satisfies c. Missing
// markers and title mismatches are not errors.
func (v *View) tryWindow(ctx context.Context, h api.WindowHandle, c WindowCriteria) (bool, error) {
	v.logger.Debugf("View:tryWindow", "switch to window %q", h)
	if err := v.target.SwitchToWindow(ctx, h); err != nil {
		return false, fmt.Errorf("switching to window %q: %w", h, err)
	}
	v.window = h
	v.tracer.TraceWindowSwitch(ctx, string(h))

	// The window may still be loading when switched to.
	if err := v.WaitForPageToLoad(ctx); err != nil {
		return false, err
	}

	if c.Element != nil {
		if _, err := c.Element.Lookup(ctx, v.target); err != nil {
			if errors.Is(err, ErrNotFound) {
				v.logger.Debugf("View:tryWindow", "window %q lacks element %s", h, c.Element.Name)
				return false, nil
			}
			return false, err
		}
	}
	if c.Locator != nil {
		if _, err := v.target.FindElement(ctx, *c.Locator); err != nil {
			if errors.Is(err, ErrNotFound) {
				v.logger.Debugf("View:tryWindow", "window %q lacks %s", h, c.Locator)
				return false, nil
			}
			return false, err
		}
	}
	if c.Title.Valid {
		title, err := v.target.Title(ctx)
		if err != nil {
			return false, err
		}
		if title != c.Title.String {
			v.logger.Debugf("View:tryWindow", "window %q title %q does not match %q", h, title, c.Title.String)
			return false, nil
		}
	}

	return true, nil
}
