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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/log"
	"github.com/partnet/seauto/metrics"
	"github.com/partnet/seauto/trace"
)

// Condition is a named predicate evaluated against a target. Check reports
// the result and whether the condition is satisfied. Check may have side
// effects and is run on every poll.
type Condition[T any] struct {
	Description string
	Check       func(ctx context.Context, t api.Target) (T, bool, error)
}

func (c Condition[T]) String() string { return c.Description }

// PollPolicy controls how long and how often a condition is evaluated.
type PollPolicy struct {
	Timeout  time.Duration
	Interval time.Duration
	// Ignoring lists the errors that count as "not yet" instead of failing
	// the wait. They are matched with errors.Is.
	Ignoring []error
}

// NewPollPolicy returns a validated PollPolicy.
func NewPollPolicy(timeout, interval time.Duration, ignoring ...error) (PollPolicy, error) {
	p := PollPolicy{Timeout: timeout, Interval: interval, Ignoring: ignoring}
	if err := p.Validate(); err != nil {
		return PollPolicy{}, err
	}
	return p, nil
}

// Validate checks that the interval is positive and shorter than the timeout.
func (p PollPolicy) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidArgument, p.Interval)
	}
	if p.Interval >= p.Timeout {
		return fmt.Errorf("%w: poll interval %s must be shorter than timeout %s",
			ErrInvalidArgument, p.Interval, p.Timeout)
	}
	return nil
}

type waitOptions struct {
	operation string
	window    string
	logger    *log.Logger
	metrics   *metrics.Collector
	tracer    *trace.Tracer
}

// WaitOption customises a single Wait.
type WaitOption func(*waitOptions)

// WithOperation names the wait in logs, metrics and spans.
func WithOperation(name string) WaitOption {
	return func(o *waitOptions) { o.operation = name }
}

// WithLogger logs every poll to l.
func WithLogger(l *log.Logger) WaitOption {
	return func(o *waitOptions) { o.logger = l }
}

// WithMetrics records the wait outcome in c.
func WithMetrics(c *metrics.Collector) WaitOption {
	return func(o *waitOptions) { o.metrics = c }
}

// WithTracer records a span for the wait, parented under window's span.
func WithTracer(tr *trace.Tracer, window string) WaitOption {
	return func(o *waitOptions) {
		o.tracer = tr
		o.window = window
	}
}

// Wait evaluates cond immediately and then once per policy interval until
// it is satisfied, the policy timeout elapses, or Check returns an error
// that the policy does not ignore.
//
// On timeout it returns a *TimeoutError. Cancelling ctx aborts the wait
// with ctx's error.
func Wait[T any](
	ctx context.Context, t api.Target, policy PollPolicy, cond Condition[T], opts ...WaitOption,
) (T, error) {
	var zero T
	o := waitOptions{operation: "wait", logger: log.NewNullLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := policy.Validate(); err != nil {
		return zero, err
	}

	ctx, span := o.tracer.TraceWait(ctx, o.window, "seauto.wait")
	defer span.End()
	span.SetAttributes(
		attribute.String("wait.operation", o.operation),
		attribute.String("wait.description", cond.Description),
		attribute.String("wait.timeout", policy.Timeout.String()),
	)

	var (
		start   = time.Now()
		polls   int
		lastErr error
		timer   *time.Timer
	)
	finish := func(outcome string, err error) {
		elapsed := time.Since(start)
		o.metrics.ObserveWait(o.operation, outcome, elapsed, polls)
		span.SetAttributes(
			attribute.Int("wait.polls", polls),
			attribute.String("wait.outcome", outcome),
			attribute.Int64("wait.elapsed_ms", elapsed.Milliseconds()),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		polls++
		v, ok, err := cond.Check(ctx, t)
		switch {
		case err != nil && isAny(err, policy.Ignoring):
			o.logger.Debugf("poll", "op:%s poll:%d %q ignoring error: %v", o.operation, polls, cond.Description, err)
			lastErr = err
		case err != nil:
			o.logger.Debugf("poll", "op:%s poll:%d %q aborted: %v", o.operation, polls, cond.Description, err)
			finish(metrics.OutcomeError, err)
			return zero, err
		case ok:
			o.logger.Debugf("poll", "op:%s poll:%d %q satisfied", o.operation, polls, cond.Description)
			finish(metrics.OutcomeSatisfied, nil)
			return v, nil
		default:
			o.logger.Tracef("poll", "op:%s poll:%d %q not yet", o.operation, polls, cond.Description)
		}

		if elapsed := time.Since(start); elapsed >= policy.Timeout {
			terr := &TimeoutError{
				Description: cond.Description,
				Elapsed:     elapsed,
				Polls:       polls,
				LastErr:     lastErr,
			}
			finish(metrics.OutcomeTimeout, terr)
			return zero, terr
		}

		if timer == nil {
			timer = time.NewTimer(policy.Interval)
		} else {
			timer.Reset(policy.Interval)
		}
		select {
		case <-ctx.Done():
			finish(metrics.OutcomeCanceled, ctx.Err())
			return zero, fmt.Errorf("waiting for %s: %w", cond.Description, ctx.Err())
		case <-timer.C:
		}
	}
}

// WaitBool is a convenience for conditions that produce no value.
func WaitBool(
	ctx context.Context, t api.Target, policy PollPolicy, description string,
	check func(ctx context.Context, t api.Target) (bool, error), opts ...WaitOption,
) error {
	_, err := Wait(ctx, t, policy, Condition[struct{}]{
		Description: description,
		Check: func(ctx context.Context, t api.Target) (struct{}, bool, error) {
			ok, err := check(ctx, t)
			return struct{}{}, ok, err
		},
	}, opts...)
	return err
}
