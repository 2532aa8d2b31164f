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
	"time"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/log"
	"github.com/partnet/seauto/metrics"
	"github.com/partnet/seauto/storage"
	"github.com/partnet/seauto/trace"
)

// ViewOptions configures a View. Zero fields get working defaults.
type ViewOptions struct {
	Logger    *log.Logger
	Config    Config
	Metrics   *metrics.Collector
	Tracer    *trace.Tracer
	Persister storage.FilePersister
}

// View groups the synchronization operations a scenario performs against
// one target. A View is bound to its target and, like the target, must not
// be shared between goroutines.
type View struct {
	target    api.Target
	logger    *log.Logger
	conf      Config
	metrics   *metrics.Collector
	tracer    *trace.Tracer
	persister storage.FilePersister

	window api.WindowHandle
}

// NewView returns a View driving t.
func NewView(t api.Target, opts ViewOptions) *View {
	v := &View{
		target:    t,
		logger:    opts.Logger,
		conf:      opts.Config,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		persister: opts.Persister,
	}
	if v.logger == nil {
		v.logger = log.NewNullLogger()
	}
	if v.conf == nil {
		v.conf = MapConfig{}
	}
	if v.metrics == nil {
		v.metrics = metrics.Nop()
	}
	if v.tracer == nil {
		v.tracer = trace.NewNoopTracer()
	}
	if v.persister == nil {
		v.persister = &storage.LocalFilePersister{}
	}

	return v
}

// Target returns the target the view drives.
func (v *View) Target() api.Target { return v.target }

func (v *View) waitOpts(operation string) []WaitOption {
	return []WaitOption{
		WithOperation(operation),
		WithLogger(v.logger),
		WithMetrics(v.metrics),
		WithTracer(v.tracer, string(v.window)),
	}
}

// policy builds a PollPolicy from configuration. A configured timeout or
// interval that cannot drive a wait is a *ConfigurationError naming its key.
// A non-zero timeout overrides the configured one, and when it is not
// longer than the configured interval the interval becomes half of it.
func (v *View) policy(timeoutKey, intervalKey string, timeout time.Duration, ignoring ...error) (PollPolicy, error) {
	interval, err := v.conf.Duration(intervalKey)
	if err != nil {
		return PollPolicy{}, err
	}
	if interval <= 0 {
		return PollPolicy{}, v.configError(intervalKey, errors.New("poll interval must be positive"))
	}

	switch {
	case timeout == 0:
		if timeout, err = v.conf.Duration(timeoutKey); err != nil {
			return PollPolicy{}, err
		}
		if timeout <= 0 {
			return PollPolicy{}, v.configError(timeoutKey, errors.New("timeout must be positive"))
		}
		if interval >= timeout {
			return PollPolicy{}, v.configError(intervalKey,
				fmt.Errorf("poll interval must be shorter than %s (%s)", timeoutKey, timeout))
		}
	case interval >= timeout:
		interval = timeout / 2
	}

	return NewPollPolicy(timeout, interval, ignoring...)
}

func (v *View) configError(key string, err error) error {
	raw, _ := v.conf.String(key)
	return &ConfigurationError{Key: key, Value: raw, Err: err}
}

func (v *View) attr(ctx context.Context, el api.ElementRef, name string) (string, error) {
	val, _, err := v.target.ElementAttribute(ctx, el, name)
	return val, err
}
