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

	"github.com/partnet/seauto/api"
)

const readyStateComplete = "complete"

var pageLoaded = Condition[string]{ //nolint:gochecknoglobals
	Description: "the page to load",
	Check: func(ctx context.Context, t api.Target) (string, bool, error) {
		state, err := t.ReadyState(ctx)
		if err != nil {
			return "", false, err
		}
		return state, state == readyStateComplete, nil
	},
}

// WaitForPageToLoad blocks until the active window's document is fully
// loaded. Communication errors are ignored while polling, since the target
// may be briefly unreachable mid-navigation.
func (v *View) WaitForPageToLoad(ctx context.Context) error {
	return v.waitForPageToLoad(ctx, true)
}

// WaitForPageToLoadStrict is WaitForPageToLoad without ignoring
// communication errors.
func (v *View) WaitForPageToLoadStrict(ctx context.Context) error {
	return v.waitForPageToLoad(ctx, false)
}

func (v *View) waitForPageToLoad(ctx context.Context, ignoreCommErrors bool) error {
	var ignoring []error
	if ignoreCommErrors {
		ignoring = append(ignoring, ErrCommunication)
	}
	p, err := v.policy(KeyPageLoadTimeout, KeyPageLoadInterval, 0, ignoring...)
	if err != nil {
		return fmt.Errorf("waiting for page to load: %w", err)
	}

	v.logger.Debugf("View:waitForPageToLoad", "timeout:%s ignoring:%t", p.Timeout, ignoreCommErrors)
	_, err = Wait(ctx, v.target, p, pageLoaded, v.waitOpts("page_ready")...)

	return err
}

// ClickAndWait clicks el and waits for the resulting page to load.
func (v *View) ClickAndWait(ctx context.Context, el api.ElementRef) error {
	if err := v.target.ElementClick(ctx, el); err != nil {
		return fmt.Errorf("clicking %s: %w", el.ID(), err)
	}
	return v.WaitForPageToLoad(ctx)
}
