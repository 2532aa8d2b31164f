// Package sim provides an in-process api.Target backed by a parsed HTML
// document and a goja runtime. It drives the synchronization primitives in
// tests and dry runs without a browser.
package sim

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/log"
)

// Interactions counts what was done to an element, keyed by its id attribute.
type Interactions struct {
	Clicks int
	Clears int
	Writes int
}

// DialogRecord is a native dialog that was opened and answered.
type DialogRecord struct {
	Type   string
	Text   string
	Action string
}

// Option configures a Target.
type Option func(*Target)

// WithNativeDialogs makes alert and confirm open native dialogs.
func WithNativeDialogs() Option {
	return func(t *Target) { t.native = true }
}

// WithAsyncDialogs makes native dialogs become visible only after the given
// number of ActiveDialog queries, like a surface whose click returns early.
func WithAsyncDialogs(delay int) Option {
	return func(t *Target) {
		t.native = true
		t.async = true
		t.dialogDelay = delay
	}
}

// WithLogger sets the logger of the target.
func WithLogger(l *log.Logger) Option {
	return func(t *Target) { t.logger = l }
}

// WithFaults installs fn to be consulted before every remote operation.
// A non-nil return fails the operation as a communication error.
func WithFaults(fn func(op string) error) Option {
	return func(t *Target) { t.fault = fn }
}

// Target is a simulated rendering surface.
type Target struct {
	mu     sync.Mutex
	logger *log.Logger

	native      bool
	async       bool
	dialogDelay int
	fault       func(op string) error

	windows map[api.WindowHandle]*window
	order   []api.WindowHandle
	current *window

	cookies      map[string]string
	dialog       *dialog
	dialogs      []DialogRecord
	ignoreWrites map[string]int
	interactions map[string]*Interactions
}

// New returns a Target with first loaded in its only window.
func New(first Page, opts ...Option) (*Target, error) {
	t := &Target{
		logger:       log.NewNullLogger(),
		windows:      make(map[api.WindowHandle]*window),
		cookies:      make(map[string]string),
		ignoreWrites: make(map[string]int),
		interactions: make(map[string]*Interactions),
	}
	for _, opt := range opts {
		opt(t)
	}
	h, err := t.OpenWindow(first)
	if err != nil {
		return nil, err
	}
	t.current = t.windows[h]
	return t, nil
}

// OpenWindow loads p into a new window without switching to it.
func (t *Target) OpenWindow(p Page) (api.WindowHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := api.WindowHandle(uuid.NewString())
	w, err := newWindow(t, h, p)
	if err != nil {
		return "", err
	}
	t.windows[h] = w
	t.order = append(t.order, h)
	t.logger.Debugf("sim:OpenWindow", "opened %s with %q", h, p.URL)
	return h, nil
}

// CloseWindow closes h. Closing the current window leaves no window active.
func (t *Target) CloseWindow(h api.WindowHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.windows, h)
	for i, o := range t.order {
		if o == h {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	if t.current != nil && t.current.handle == h {
		t.current = nil
	}
}

// Navigate replaces the document of the current window. Scripts injected
// into the previous document are lost.
func (t *Target) Navigate(p Page) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return fmt.Errorf("no current window")
	}
	w, err := newWindow(t, t.current.handle, p)
	if err != nil {
		return err
	}
	t.windows[w.handle] = w
	t.current = w
	return nil
}

// Respond completes a successful XMLHttpRequest carrying body in the
// current window.
func (t *Target) Respond(body string) error {
	return t.RespondStatus(200, body)
}

// RespondStatus completes an XMLHttpRequest with the given status and body.
func (t *Target) RespondStatus(status int, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return fmt.Errorf("no current window")
	}
	_, err := t.current.call("__simRespond(arguments[0], arguments[1], arguments[2]);",
		t.current.page.URL+"/xhr", status, body)
	return err
}

// IgnoreWrites drops the first n SendKeys into the element with the given id.
func (t *Target) IgnoreWrites(id string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ignoreWrites[id] = n
}

// Interactions returns the counters of the element with the given id.
func (t *Target) Interactions(id string) Interactions {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.interactions[id]; ok {
		return *c
	}
	return Interactions{}
}

// Dialogs returns the native dialogs answered so far.
func (t *Target) Dialogs() []DialogRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]DialogRecord(nil), t.dialogs...)
}

func (t *Target) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.fault != nil {
		if err := t.fault(op); err != nil {
			return common.CommunicationError(op, err)
		}
	}
	return nil
}

func (t *Target) begin(ctx context.Context, op string) (*window, error) {
	if err := t.check(ctx, op); err != nil {
		return nil, err
	}
	if t.current == nil {
		return nil, common.CommunicationError(op, fmt.Errorf("no current window"))
	}
	return t.current, nil
}

func (t *Target) count(el *element, w *window) *Interactions {
	id, _ := attr(w.nodes[el.index], "id")
	c, ok := t.interactions[id]
	if !ok {
		c = &Interactions{}
		t.interactions[id] = c
	}
	return c
}

// ExecuteScript runs script as a function body in the current window.
func (t *Target) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "ExecuteScript")
	if err != nil {
		return nil, err
	}
	return w.call(script, args...)
}

// FindElement returns the first element matching loc.
func (t *Target) FindElement(ctx context.Context, loc api.Locator) (api.ElementRef, error) {
	els, err := t.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, &common.NotFoundError{Locator: loc}
	}
	return els[0], nil
}

// FindElements returns every element matching loc.
func (t *Target) FindElements(ctx context.Context, loc api.Locator) ([]api.ElementRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "FindElements")
	if err != nil {
		return nil, err
	}
	sel, ok := loc.Selector()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not supported by the simulator", common.ErrInvalidArgument, loc)
	}
	var els []api.ElementRef
	for _, i := range w.query(-1, sel) {
		els = append(els, &element{window: w.handle, index: i.(int)})
	}
	return els, nil
}

// WindowHandles returns the open windows in the order they were opened.
func (t *Target) WindowHandles(ctx context.Context) ([]api.WindowHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(ctx, "WindowHandles"); err != nil {
		return nil, err
	}
	return append([]api.WindowHandle(nil), t.order...), nil
}

// CurrentWindow returns the handle of the active window.
func (t *Target) CurrentWindow(ctx context.Context) (api.WindowHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "CurrentWindow")
	if err != nil {
		return "", err
	}
	return w.handle, nil
}

// SwitchToWindow makes h the active window.
func (t *Target) SwitchToWindow(ctx context.Context, h api.WindowHandle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(ctx, "SwitchToWindow"); err != nil {
		return err
	}
	w, ok := t.windows[h]
	if !ok {
		return common.CommunicationError("SwitchToWindow", fmt.Errorf("no such window %s", h))
	}
	t.current = w
	return nil
}

// ReadyState reports the next readiness state of the current window.
func (t *Target) ReadyState(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "ReadyState")
	if err != nil {
		return "", err
	}
	return w.nextReadyState(), nil
}

// Title returns the title of the current window.
func (t *Target) Title(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "Title")
	if err != nil {
		return "", err
	}
	return w.title(), nil
}

// Cookie reports the value of the named cookie.
func (t *Target) Cookie(ctx context.Context, name string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.begin(ctx, "Cookie"); err != nil {
		return "", false, err
	}
	v, ok := t.cookies[name]
	return v, ok, nil
}

// SetCookie sets the named cookie.
func (t *Target) SetCookie(ctx context.Context, name, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.begin(ctx, "SetCookie"); err != nil {
		return err
	}
	t.cookies[name] = value
	return nil
}

// DeleteCookie removes the named cookie.
func (t *Target) DeleteCookie(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.begin(ctx, "DeleteCookie"); err != nil {
		return err
	}
	delete(t.cookies, name)
	return nil
}

func (t *Target) cookieString() string {
	parts := make([]string, 0, len(t.cookies))
	for _, k := range sortedKeys(t.cookies) {
		parts = append(parts, k+"="+t.cookies[k])
	}
	return strings.Join(parts, "; ")
}

// parseCookie applies a document.cookie assignment. An expires attribute
// deletes the cookie.
func (t *Target) parseCookie(s string) {
	parts := strings.Split(s, ";")
	name, value, _ := strings.Cut(parts[0], "=")
	name = strings.TrimSpace(name)
	for _, p := range parts[1:] {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(p)), "expires=") {
			delete(t.cookies, name)
			return
		}
	}
	t.cookies[name] = value
}

// ElementAttribute returns the value property for "value" and the markup
// attribute otherwise.
func (t *Target) ElementAttribute(ctx context.Context, ref api.ElementRef, name string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "ElementAttribute")
	if err != nil {
		return "", false, err
	}
	el, err := w.element(ref)
	if err != nil {
		return "", false, err
	}
	n := w.nodes[el.index]
	if name == "value" {
		return w.value(n), true, nil
	}
	v, ok := attr(n, name)
	return v, ok, nil
}

// ElementClick dispatches a click event to el.
func (t *Target) ElementClick(ctx context.Context, ref api.ElementRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "ElementClick")
	if err != nil {
		return err
	}
	el, err := w.element(ref)
	if err != nil {
		return err
	}
	t.count(el, w).Clicks++
	_, err = w.call("arguments[0].click();", ref)
	return err
}

// ElementClear empties the value of el.
func (t *Target) ElementClear(ctx context.Context, ref api.ElementRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "ElementClear")
	if err != nil {
		return err
	}
	el, err := w.element(ref)
	if err != nil {
		return err
	}
	t.count(el, w).Clears++
	w.values[w.nodes[el.index]] = ""
	return nil
}

// ElementSendKeys appends text to the value of el.
func (t *Target) ElementSendKeys(ctx context.Context, ref api.ElementRef, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.begin(ctx, "ElementSendKeys")
	if err != nil {
		return err
	}
	el, err := w.element(ref)
	if err != nil {
		return err
	}
	n := w.nodes[el.index]
	t.count(el, w).Writes++
	id, _ := attr(n, "id")
	if t.ignoreWrites[id] > 0 {
		t.ignoreWrites[id]--
		t.logger.Debugf("sim:ElementSendKeys", "dropping write into #%s", id)
		return nil
	}
	w.values[n] = w.value(n) + text
	return nil
}

// Screenshot returns a blank PNG.
func (t *Target) Screenshot(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.begin(ctx, "Screenshot"); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
