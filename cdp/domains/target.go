package domains

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpt "github.com/chromedp/cdproto/target"
)

// Target exposes the CDP Target domain actions.
type Target interface {
	GetTargets(ctx context.Context) ([]*cdpt.Info, error)
	AttachToTarget(ctx context.Context, id cdpt.ID) (cdpt.SessionID, error)
	DetachFromTarget(ctx context.Context, sid cdpt.SessionID) error
	ActivateTarget(ctx context.Context, id cdpt.ID) error
}

var _ Target = &target{}

type target struct {
	exec cdp.Executor
}

// NewTarget returns a new CDP Target domain wrapper.
func NewTarget(exec cdp.Executor) Target {
	return &target{exec}
}

func (t *target) GetTargets(ctx context.Context) ([]*cdpt.Info, error) {
	infos, err := cdpt.GetTargets().Do(cdp.WithExecutor(ctx, t.exec))
	if err != nil {
		return nil, fmt.Errorf("executing getTargets: %w", err)
	}

	return infos, nil
}

// AttachToTarget attaches to id in flat mode, so commands reach the target
// by session ID over the browser connection.
func (t *target) AttachToTarget(ctx context.Context, id cdpt.ID) (cdpt.SessionID, error) {
	action := cdpt.AttachToTarget(id).WithFlatten(true)
	sid, err := action.Do(cdp.WithExecutor(ctx, t.exec))
	if err != nil {
		return "", fmt.Errorf("attaching to target %s: %w", id, err)
	}

	return sid, nil
}

func (t *target) DetachFromTarget(ctx context.Context, sid cdpt.SessionID) error {
	action := cdpt.DetachFromTarget().WithSessionID(sid)
	if err := action.Do(cdp.WithExecutor(ctx, t.exec)); err != nil {
		return fmt.Errorf("detaching from session %s: %w", sid, err)
	}

	return nil
}

func (t *target) ActivateTarget(ctx context.Context, id cdpt.ID) error {
	if err := cdpt.ActivateTarget(id).Do(cdp.WithExecutor(ctx, t.exec)); err != nil {
		return fmt.Errorf("activating target %s: %w", id, err)
	}

	return nil
}
