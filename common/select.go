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
	"github.com/partnet/seauto/common/js"
)

const (
	selectByText  = "text"
	selectByValue = "value"
)

type dropdownOption struct {
	Text     string
	Value    string
	Selected bool
}

// SelectByVisibleText selects the option of the select el whose visible
// text, with whitespace collapsed, is text.
func (v *View) SelectByVisibleText(ctx context.Context, el api.ElementRef, text string) error {
	v.logger.Debugf("View:SelectByVisibleText", "text:%q element:%s", text, el.ID())
	return v.selectOption(ctx, el, selectByText, text)
}

// SelectByValue selects the option of the select el whose value is value.
func (v *View) SelectByValue(ctx context.Context, el api.ElementRef, value string) error {
	v.logger.Debugf("View:SelectByValue", "value:%q element:%s", value, el.ID())
	return v.selectOption(ctx, el, selectByValue, value)
}

// SelectByVisibleTextAndWait selects by visible text and waits for the page
// the selection may load.
func (v *View) SelectByVisibleTextAndWait(ctx context.Context, el api.ElementRef, text string) error {
	if err := v.SelectByVisibleText(ctx, el, text); err != nil {
		return err
	}
	return v.WaitForPageToLoad(ctx)
}

func (v *View) selectOption(ctx context.Context, el api.ElementRef, by, want string) error {
	raw, err := v.target.ExecuteScript(ctx, js.SelectOptionScript, el, by, want)
	if err != nil {
		return fmt.Errorf("selecting %s %q in %s: %w", by, want, el.ID(), err)
	}
	idx, ok := raw.(float64)
	if !ok {
		return fmt.Errorf("selecting %s %q in %s: unexpected %T", by, want, el.ID(), raw)
	}
	switch idx {
	case -1:
		return fmt.Errorf("%w: no option with %s %q in %s", ErrNotFound, by, want, el.ID())
	case -2:
		return fmt.Errorf("%w: %s is not a select element", ErrInvalidArgument, el.ID())
	case -3:
		return fmt.Errorf("%w: option with %s %q in %s is disabled", ErrInvalidArgument, by, want, el.ID())
	}
	return nil
}

func (v *View) dropdownOptions(ctx context.Context, el api.ElementRef) ([]dropdownOption, error) {
	raw, err := v.target.ExecuteScript(ctx, js.DropdownOptionsScript, el)
	if err != nil {
		return nil, fmt.Errorf("reading options of %s: %w", el.ID(), err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s is not a select element", ErrInvalidArgument, el.ID())
	}
	entries, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("reading options of %s: unexpected %T", el.ID(), raw)
	}

	opts := make([]dropdownOption, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("reading options of %s: unexpected %T", el.ID(), e)
		}
		var o dropdownOption
		o.Text, _ = m["text"].(string)
		o.Value, _ = m["value"].(string)
		o.Selected, _ = m["selected"].(bool)
		opts = append(opts, o)
	}

	return opts, nil
}

// GetSelectedVisibleText returns the visible text of the first selected
// option of el. An empty select fails with ErrNotFound.
func (v *View) GetSelectedVisibleText(ctx context.Context, el api.ElementRef) (string, error) {
	opts, err := v.dropdownOptions(ctx, el)
	if err != nil {
		return "", err
	}
	for _, o := range opts {
		if o.Selected {
			v.logger.Debugf("View:GetSelectedVisibleText", "visible text: %q", o.Text)
			return o.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no option of %s is selected", ErrNotFound, el.ID())
}

// GetDropdownOptions returns the visible text of every option of el in
// document order.
func (v *View) GetDropdownOptions(ctx context.Context, el api.ElementRef) ([]string, error) {
	opts, err := v.dropdownOptions(ctx, el)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(opts))
	for i, o := range opts {
		texts[i] = o.Text
	}
	v.logger.Debugf("View:GetDropdownOptions", "found options: %v", texts)
	return texts, nil
}
