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

	"github.com/tidwall/gjson"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common/js"
)

// InjectAjaxListener arms the response listener in the active window's
// document. Responses received from then on are captured in order. The
// listener does not survive navigation and must be armed again afterwards.
func (v *View) InjectAjaxListener(ctx context.Context) error {
	if _, err := v.target.ExecuteScript(ctx, js.ResponseListenerScript); err != nil {
		return fmt.Errorf("injecting response listener: %w", err)
	}
	v.logger.Debugf("View:InjectAjaxListener", "response listener armed")
	return nil
}

// ResetAjaxListener forgets every response captured so far.
func (v *View) ResetAjaxListener(ctx context.Context) error {
	if _, err := v.target.ExecuteScript(ctx, js.ResponseListenerResetScript); err != nil {
		return fmt.Errorf("resetting response listener: %w", err)
	}
	return nil
}

// WaitForAjaxResponse waits for a captured response that is a JSON object
// with a top-level key named key and returns the first such document.
// Captured responses that are not JSON objects are logged and skipped.
func (v *View) WaitForAjaxResponse(ctx context.Context, key string) (gjson.Result, error) {
	p, err := v.policy(KeyAjaxTimeout, KeyAjaxInterval, 0)
	if err != nil {
		return gjson.Result{}, err
	}

	return Wait(ctx, v.target, p, Condition[gjson.Result]{
		Description: fmt.Sprintf("Ajax request with json key '%s' was never found", key),
		Check: func(ctx context.Context, t api.Target) (gjson.Result, bool, error) {
			responses, err := v.capturedResponses(ctx)
			if err != nil {
				return gjson.Result{}, false, err
			}
			for _, doc := range responses {
				if hasTopLevelKey(doc, key) {
					return doc, true, nil
				}
			}
			return gjson.Result{}, false, nil
		},
	}, v.waitOpts("ajax_response")...)
}

// capturedResponses returns the parsed JSON objects captured so far.
func (v *View) capturedResponses(ctx context.Context) ([]gjson.Result, error) {
	raw, err := v.target.ExecuteScript(ctx, js.ResponseListenerReadScript)
	if err != nil {
		return nil, fmt.Errorf("reading captured responses: %w", err)
	}
	if raw == nil {
		v.logger.Debugf("View:capturedResponses", "response listener is not armed")
		return nil, nil
	}
	entries, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("reading captured responses: unexpected %T", raw)
	}
	v.metrics.AddCapturedResponses(len(entries))

	docs := make([]gjson.Result, 0, len(entries))
	for i, e := range entries {
		body, ok := e.(string)
		if !ok || !gjson.Valid(body) {
			v.logger.Warnf("View:capturedResponses", "skipping response %d, not JSON: %.200v", i, e)
			continue
		}
		doc := gjson.Parse(body)
		if !doc.IsObject() {
			v.logger.Warnf("View:capturedResponses", "skipping response %d, not a JSON object: %.200s", i, body)
			continue
		}
		v.logger.Debugf("View:capturedResponses", "response %d: %.200s", i, body)
		docs = append(docs, doc)
	}

	return docs, nil
}

func hasTopLevelKey(doc gjson.Result, key string) bool {
	found := false
	doc.ForEach(func(k, _ gjson.Result) bool {
		found = k.String() == key
		return !found
	})
	return found
}
