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
	"strconv"
	"strings"
	"time"
)

// Configuration keys read by the view at call time.
const (
	KeyPageLoadTimeout     = "page.load.timeout"
	KeyPageLoadInterval    = "page.load.interval"
	KeyWindowTimeout       = "window.timeout"
	KeyWindowInterval      = "window.interval"
	KeyDialogNativeTimeout = "dialog.native.timeout"
	KeyDialogInterval      = "dialog.interval"
	KeyAjaxTimeout         = "ajax.timeout"
	KeyAjaxInterval        = "ajax.interval"
	KeyElementTimeout      = "element.timeout"
	KeyElementInterval     = "element.interval"
	KeyFieldRetries        = "field.retries"
	KeyFieldInterval       = "field.interval"
	KeyScreenshotsAllow    = "screenshots.allow"
	KeyScreenshotsDir      = "screenshots.dir"
)

// Defaults holds the raw default value of every key. Bare numbers are
// seconds for duration keys.
var Defaults = map[string]string{ //nolint:gochecknoglobals
	KeyPageLoadTimeout:     "90",
	KeyPageLoadInterval:    "500ms",
	KeyWindowTimeout:       "15",
	KeyWindowInterval:      "500ms",
	KeyDialogNativeTimeout: "3",
	KeyDialogInterval:      "250ms",
	KeyAjaxTimeout:         "90",
	KeyAjaxInterval:        "1s",
	KeyElementTimeout:      "30",
	KeyElementInterval:     "5s",
	KeyFieldRetries:        "3",
	KeyFieldInterval:       "500ms",
	KeyScreenshotsAllow:    "true",
	KeyScreenshotsDir:      "target/screenshots",
}

// Config resolves settings when an operation runs, so a bad value surfaces
// from the operation that needs it.
type Config interface {
	Duration(key string) (time.Duration, error)
	Int(key string) (int, error)
	Bool(key string) (bool, error)
	String(key string) (string, error)
}

// ParseDuration reads raw as whole seconds or as a Go duration.
func ParseDuration(key, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, &ConfigurationError{Key: key, Value: raw, Err: strconv.ErrRange}
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Value: raw, Err: err}
	}
	if d < 0 {
		return 0, &ConfigurationError{Key: key, Value: raw, Err: strconv.ErrRange}
	}
	return d, nil
}

// ParseInt reads raw as a non-negative integer.
func ParseInt(key, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ConfigurationError{Key: key, Value: raw, Err: err}
	}
	if n < 0 {
		return 0, &ConfigurationError{Key: key, Value: raw, Err: strconv.ErrRange}
	}
	return n, nil
}

// ParseBool reads raw as a boolean.
func ParseBool(key, raw string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, &ConfigurationError{Key: key, Value: raw, Err: err}
	}
	return b, nil
}

// MapConfig is a Config over raw string values, falling back to Defaults.
type MapConfig map[string]string

func (m MapConfig) raw(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return Defaults[key]
}

// Duration implements Config.
func (m MapConfig) Duration(key string) (time.Duration, error) { return ParseDuration(key, m.raw(key)) }

// Int implements Config.
func (m MapConfig) Int(key string) (int, error) { return ParseInt(key, m.raw(key)) }

// Bool implements Config.
func (m MapConfig) Bool(key string) (bool, error) { return ParseBool(key, m.raw(key)) }

// String implements Config.
func (m MapConfig) String(key string) (string, error) { return m.raw(key), nil }
