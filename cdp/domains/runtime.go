package domains

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	cdpr "github.com/chromedp/cdproto/runtime"
)

// Runtime exposes the CDP Runtime domain actions. Both calls report a
// script exception separately from a protocol error.
type Runtime interface {
	Evaluate(ctx context.Context, expression string) (*cdpr.RemoteObject, *cdpr.ExceptionDetails, error)
	CallFunctionOn(ctx context.Context, params *cdpr.CallFunctionOnParams) (*cdpr.RemoteObject, *cdpr.ExceptionDetails, error)
}

var _ Runtime = &runtime{}

type runtime struct {
	exec cdp.Executor
}

// NewRuntime returns a new CDP Runtime domain wrapper.
func NewRuntime(exec cdp.Executor) Runtime {
	return &runtime{exec}
}

func (r *runtime) Evaluate(ctx context.Context, expression string) (*cdpr.RemoteObject, *cdpr.ExceptionDetails, error) {
	return cdpr.Evaluate(expression).Do(cdp.WithExecutor(ctx, r.exec))
}

func (r *runtime) CallFunctionOn(
	ctx context.Context, params *cdpr.CallFunctionOnParams,
) (*cdpr.RemoteObject, *cdpr.ExceptionDetails, error) {
	return params.Do(cdp.WithExecutor(ctx, r.exec))
}
