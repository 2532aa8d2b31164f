package domains

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpi "github.com/chromedp/cdproto/input"

	"github.com/partnet/seauto/keyboard"
)

// Input exposes the CDP Input domain keyboard actions.
type Input interface {
	InsertText(ctx context.Context, text string) error
	KeyDown(ctx context.Context, def keyboard.Definition) error
	KeyUp(ctx context.Context, def keyboard.Definition) error
}

var _ Input = &input{}

type input struct {
	exec cdp.Executor
}

// NewInput returns a new CDP Input domain wrapper.
func NewInput(exec cdp.Executor) Input {
	return &input{exec}
}

func (i *input) InsertText(ctx context.Context, text string) error {
	if err := cdpi.InsertText(text).Do(cdp.WithExecutor(ctx, i.exec)); err != nil {
		return fmt.Errorf("cannot execute insert text: %w", err)
	}
	return nil
}

func (i *input) KeyDown(ctx context.Context, def keyboard.Definition) error {
	keyType := cdpi.KeyDown
	if def.Text == "" {
		keyType = cdpi.KeyRawDown
	}

	action := cdpi.DispatchKeyEvent(keyType).
		WithKey(def.Key).
		WithWindowsVirtualKeyCode(def.KeyCode).
		WithCode(def.Code).
		WithLocation(def.Location).
		WithIsKeypad(def.Location == 3).
		WithText(def.Text).
		WithUnmodifiedText(def.Text)
	if err := action.Do(cdp.WithExecutor(ctx, i.exec)); err != nil {
		return fmt.Errorf("cannot execute dispatch key event down: %w", err)
	}

	return nil
}

func (i *input) KeyUp(ctx context.Context, def keyboard.Definition) error {
	action := cdpi.DispatchKeyEvent(cdpi.KeyUp).
		WithKey(def.Key).
		WithWindowsVirtualKeyCode(def.KeyCode).
		WithCode(def.Code).
		WithLocation(def.Location)
	if err := action.Do(cdp.WithExecutor(ctx, i.exec)); err != nil {
		return fmt.Errorf("cannot execute dispatch key event up: %w", err)
	}

	return nil
}
