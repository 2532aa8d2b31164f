package api

import (
	"context"
)

// WindowHandle identifies one open window or tab. It is only valid while that
// window stays open.
type WindowHandle string

// ElementRef is an opaque reference to a node in the rendered document of
// the window it was found in.
type ElementRef interface {
	ID() string
}

// Target is the public interface of a remote, controllable rendering surface.
// A Target is owned by a single scenario and must not be used concurrently.
type Target interface {
	// ExecuteScript runs script as the body of a function whose arguments
	// are args. ElementRefs may be passed in and come back out, along with
	// scalars and slices of either.
	ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)
	FindElement(ctx context.Context, loc Locator) (ElementRef, error)
	FindElements(ctx context.Context, loc Locator) ([]ElementRef, error)

	WindowHandles(ctx context.Context) ([]WindowHandle, error)
	CurrentWindow(ctx context.Context) (WindowHandle, error)
	SwitchToWindow(ctx context.Context, h WindowHandle) error
	ReadyState(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	// Cookie reports the value of the named cookie and whether it is set.
	Cookie(ctx context.Context, name string) (string, bool, error)
	SetCookie(ctx context.Context, name, value string) error
	DeleteCookie(ctx context.Context, name string) error

	// ElementAttribute reports the current property or attribute value of
	// el and whether it has one.
	ElementAttribute(ctx context.Context, el ElementRef, name string) (string, bool, error)
	ElementClick(ctx context.Context, el ElementRef) error
	ElementClear(ctx context.Context, el ElementRef) error
	ElementSendKeys(ctx context.Context, el ElementRef, text string) error

	// NativeDialogCapable is false for surfaces that cannot show modal
	// dialogs, in which case ActiveDialog always fails.
	NativeDialogCapable() bool
	ActiveDialog(ctx context.Context) (Dialog, error)
}

// Dialog is an open native modal dialog.
type Dialog interface {
	Text() string
	Accept(ctx context.Context) error
	Dismiss(ctx context.Context) error
}

// AsyncDialogOpener is implemented by targets whose click returns before a
// dialog it triggers has opened.
type AsyncDialogOpener interface {
	DialogsOpenAsync() bool
}

// Screenshotter is implemented by targets that can capture the active window.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}
