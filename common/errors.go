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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/partnet/seauto/api"
)

// Error kinds returned by the synchronization primitives. Match them with
// errors.Is; the typed errors below carry the diagnostics.
var (
	ErrTimeout         = errors.New("timeout")
	ErrNotFound        = errors.New("not found")
	ErrWindowNotFound  = errors.New("window not found")
	ErrNoDialogPresent = errors.New("no dialog present")
	ErrConfiguration   = errors.New("configuration error")
	ErrCommunication   = errors.New("communication error")
	ErrInvalidArgument = errors.New("invalid argument")
)

// TimeoutError is returned when a condition was not met in time.
type TimeoutError struct {
	Description string
	Elapsed     time.Duration
	Polls       int
	// LastErr is the last error swallowed while polling, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s (%d polls) waiting for %s",
		e.Elapsed.Round(time.Millisecond), e.Polls, e.Description)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

// Unwrap makes TimeoutError match ErrTimeout only, never LastErr.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// WindowNotFoundError is returned when no open window matched the criteria.
type WindowNotFoundError struct {
	Criteria WindowCriteria
	Handles  []api.WindowHandle
}

func (e *WindowNotFoundError) Error() string {
	hs := make([]string, len(e.Handles))
	for i, h := range e.Handles {
		hs[i] = string(h)
	}
	return fmt.Sprintf("no window matching %s among handles [%s]", e.Criteria, strings.Join(hs, ", "))
}

func (e *WindowNotFoundError) Unwrap() error { return ErrWindowNotFound }

// NotFoundError reports a missing element.
type NotFoundError struct {
	Locator api.Locator
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no element found for %s", e.Locator)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConfigurationError reports a malformed configuration value.
type ConfigurationError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid value %q for %q: %v", e.Value, e.Key, e.Err)
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// CommunicationError wraps a failure talking to the remote target.
func CommunicationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrCommunication, err)
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
