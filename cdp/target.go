package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdpr "github.com/chromedp/cdproto/runtime"
	cdpt "github.com/chromedp/cdproto/target"

	"github.com/partnet/seauto/api"
	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/keyboard"
	"github.com/partnet/seauto/log"
)

var (
	_ api.Target            = &Target{}
	_ api.Screenshotter     = &Target{}
	_ api.AsyncDialogOpener = &Target{}
)

const (
	findCSSScript   = `return Array.prototype.slice.call(document.querySelectorAll(arguments[0]));`
	findXPathScript = `var r = document.evaluate(arguments[0], document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
var out = [];
for (var i = 0; i < r.snapshotLength; i++) { out.push(r.snapshotItem(i)); }
return out;`
	attributeScript = `var e = arguments[0], n = arguments[1];
if (n === 'value') { return e.value === undefined || e.value === null ? null : String(e.value); }
return e.getAttribute(n);`
	clearScript = `var e = arguments[0];
e.value = '';
e.dispatchEvent(new Event('input', {bubbles: true}));
e.dispatchEvent(new Event('change', {bubbles: true}));`
	setCookieScript = `document.cookie = arguments[0] + '=' + arguments[1] + '; path=/';`

	detachTimeout = time.Second
)

// Options configures a Target.
type Options struct {
	Logger *log.Logger
	// Layout names the keyboard layout used to type special keys.
	// Defaults to "us".
	Layout string
}

// session is a page target attached over the shared connection.
type session struct {
	id       cdpt.SessionID
	targetID cdpt.ID
	cancel   func()

	dialogMu sync.Mutex
	dialog   *dialog
}

// Target is an api.Target driving a browser over CDP. Window handles are
// page target IDs.
type Target struct {
	client *Client
	logger *log.Logger
	layout keyboard.Layout

	mu       sync.Mutex
	sessions map[cdpt.ID]*session
	current  *session
}

// Dial connects to the browser at wsURL and attaches to its first page.
func Dial(ctx context.Context, wsURL string, opts Options) (*Target, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNullLogger()
	}
	if opts.Layout == "" {
		opts.Layout = "us"
	}

	client := NewClient(context.Background(), opts.Logger)
	if err := client.Connect(wsURL); err != nil {
		return nil, common.CommunicationError("connect", err)
	}
	t := &Target{
		client:   client,
		logger:   opts.Logger,
		layout:   keyboard.LayoutFor(opts.Layout),
		sessions: make(map[cdpt.ID]*session),
	}

	handles, err := t.WindowHandles(ctx)
	if err == nil && len(handles) == 0 {
		err = errors.New("browser has no open page")
	}
	if err == nil {
		err = t.SwitchToWindow(ctx, handles[0])
	}
	if err != nil {
		_ = t.Close()
		return nil, err
	}

	return t, nil
}

// Close detaches from every page and closes the connection. The browser
// itself is left running.
func (t *Target) Close() error {
	t.mu.Lock()
	sessions := make([]*session, 0, len(t.sessions))
	for id, s := range t.sessions {
		sessions = append(sessions, s)
		delete(t.sessions, id)
	}
	t.current = nil
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
	defer cancel()
	for _, s := range sessions {
		s.cancel()
		if err := t.client.Target.DetachFromTarget(ctx, s.id); err != nil {
			t.logger.Debugf("Target:Close", "session:%s: %v", s.id, err)
		}
	}

	return t.client.Close()
}

// sessionContext routes ctx to the active window.
func (t *Target) sessionContext(ctx context.Context) (context.Context, *session, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	t.mu.Lock()
	s := t.current
	t.mu.Unlock()
	if s == nil {
		return nil, nil, fmt.Errorf("%w: no active window", common.ErrWindowNotFound)
	}
	return WithSessionID(ctx, string(s.id)), s, nil
}

func (t *Target) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	sctx, _, err := t.sessionContext(ctx)
	if err != nil {
		return nil, err
	}

	win, exc, err := t.client.Runtime.Evaluate(sctx, "window")
	if err != nil {
		return nil, common.CommunicationError("Runtime.evaluate", err)
	}
	if exc != nil {
		return nil, &ScriptError{Details: exc}
	}

	return t.callFunction(sctx, win.ObjectID, "function(){"+script+"\n}", args...)
}

func (t *Target) evaluate(ctx context.Context, expression string) (interface{}, error) {
	sctx, _, err := t.sessionContext(ctx)
	if err != nil {
		return nil, err
	}
	res, exc, err := t.client.Runtime.Evaluate(sctx, expression)
	if err != nil {
		return nil, common.CommunicationError("Runtime.evaluate", err)
	}
	if exc != nil {
		return nil, &ScriptError{Details: exc}
	}
	return t.convert(sctx, res)
}

func (t *Target) evaluateString(ctx context.Context, expression string) (string, error) {
	v, err := t.evaluate(ctx, expression)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

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

func (t *Target) FindElements(ctx context.Context, loc api.Locator) ([]api.ElementRef, error) {
	script, arg := findXPathScript, loc.Value
	if sel, ok := loc.Selector(); ok {
		script, arg = findCSSScript, sel
	}

	res, err := t.ExecuteScript(ctx, script, arg)
	if err != nil {
		var se *ScriptError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidArgument, loc, err)
		}
		return nil, err
	}

	items, _ := res.([]interface{})
	els := make([]api.ElementRef, 0, len(items))
	for _, it := range items {
		if el, ok := it.(api.ElementRef); ok {
			els = append(els, el)
		}
	}
	return els, nil
}

func (t *Target) WindowHandles(ctx context.Context) ([]api.WindowHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := t.client.Target.GetTargets(ctx)
	if err != nil {
		return nil, common.CommunicationError("Target.getTargets", err)
	}

	var handles []api.WindowHandle
	for _, ti := range infos {
		if ti.Type == "page" {
			handles = append(handles, api.WindowHandle(ti.TargetID))
		}
	}
	return handles, nil
}

func (t *Target) CurrentWindow(ctx context.Context) (api.WindowHandle, error) {
	_, s, err := t.sessionContext(ctx)
	if err != nil {
		return "", err
	}
	return api.WindowHandle(s.targetID), nil
}

func (t *Target) SwitchToWindow(ctx context.Context, h api.WindowHandle) error {
	handles, err := t.WindowHandles(ctx)
	if err != nil {
		return err
	}
	var open bool
	for _, oh := range handles {
		open = open || oh == h
	}
	if !open {
		return fmt.Errorf("%w: %s is not open", common.ErrWindowNotFound, h)
	}

	id := cdpt.ID(h)
	t.mu.Lock()
	s := t.sessions[id]
	t.mu.Unlock()
	if s == nil {
		if s, err = t.attach(ctx, id); err != nil {
			return err
		}
	}

	if err := t.client.Target.ActivateTarget(ctx, id); err != nil {
		return common.CommunicationError("Target.activateTarget", err)
	}
	t.mu.Lock()
	t.current = s
	t.mu.Unlock()
	t.logger.Debugf("Target:SwitchToWindow", "window:%s session:%s", id, s.id)

	return nil
}

func (t *Target) attach(ctx context.Context, id cdpt.ID) (*session, error) {
	sid, err := t.client.Target.AttachToTarget(ctx, id)
	if err != nil {
		return nil, common.CommunicationError("Target.attachToTarget", err)
	}
	s := &session{id: sid, targetID: id}

	sctx := WithSessionID(ctx, string(sid))
	events, cancel := t.client.Subscribe(sctx, dialogEvents...)
	s.cancel = cancel
	go t.watchDialogs(s, events)

	if err := t.client.Page.Enable(sctx); err != nil {
		cancel()
		return nil, common.CommunicationError("Page.enable", err)
	}

	t.mu.Lock()
	t.sessions[id] = s
	t.mu.Unlock()

	return s, nil
}

func (t *Target) ReadyState(ctx context.Context) (string, error) {
	return t.evaluateString(ctx, "document.readyState")
}

func (t *Target) Title(ctx context.Context) (string, error) {
	return t.evaluateString(ctx, "document.title")
}

func (t *Target) Cookie(ctx context.Context, name string) (string, bool, error) {
	sctx, _, err := t.sessionContext(ctx)
	if err != nil {
		return "", false, err
	}
	cookies, err := t.client.Network.GetCookies(sctx)
	if err != nil {
		return "", false, common.CommunicationError("Network.getCookies", err)
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true, nil
		}
	}
	return "", false, nil
}

func (t *Target) SetCookie(ctx context.Context, name, value string) error {
	_, err := t.ExecuteScript(ctx, setCookieScript, name, value)
	return err
}

func (t *Target) DeleteCookie(ctx context.Context, name string) error {
	href, err := t.evaluateString(ctx, "location.href")
	if err != nil {
		return err
	}
	sctx, _, err := t.sessionContext(ctx)
	if err != nil {
		return err
	}
	if err := t.client.Network.DeleteCookie(sctx, name, href); err != nil {
		return common.CommunicationError("Network.deleteCookies", err)
	}
	return nil
}

func (t *Target) ElementAttribute(ctx context.Context, el api.ElementRef, name string) (string, bool, error) {
	v, err := t.ExecuteScript(ctx, attributeScript, el, name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return fmt.Sprint(v), true, nil
}

// ElementClick clicks el without waiting for the reply, which the browser
// holds back while a dialog opened by the click is showing.
func (t *Target) ElementClick(ctx context.Context, el api.ElementRef) error {
	sctx, _, err := t.sessionContext(ctx)
	if err != nil {
		return err
	}
	arg, err := callArgument(sctx, el)
	if err != nil {
		return err
	}

	params := cdpr.CallFunctionOn("function(){this.click()}").WithObjectID(arg.ObjectID)
	if err := t.client.ExecuteWithoutExpectationOnReply(sctx, cdpr.CommandCallFunctionOn, params); err != nil {
		return common.CommunicationError("Runtime.callFunctionOn", err)
	}
	return nil
}

func (t *Target) ElementClear(ctx context.Context, el api.ElementRef) error {
	_, err := t.ExecuteScript(ctx, clearScript, el)
	return err
}

// ElementSendKeys focuses el and types text. Runes the layout maps to a key
// are pressed, everything else is inserted as text.
func (t *Target) ElementSendKeys(ctx context.Context, el api.ElementRef, text string) error {
	if _, err := t.ExecuteScript(ctx, "arguments[0].focus();", el); err != nil {
		return err
	}
	sctx, _, err := t.sessionContext(ctx)
	if err != nil {
		return err
	}

	var run []rune
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		defer func() { run = run[:0] }()
		if err := t.client.Input.InsertText(sctx, string(run)); err != nil {
			return common.CommunicationError("Input.insertText", err)
		}
		return nil
	}

	for _, r := range text {
		key, ok := t.layout.KeyForRune(r)
		if !ok {
			run = append(run, r)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		def, ok := t.layout.KeyDefinition(key)
		if !ok {
			return fmt.Errorf("%w: key %q has no definition in layout %q", common.ErrInvalidArgument, key, t.layout.Name)
		}
		if err := t.client.Input.KeyDown(sctx, def); err != nil {
			return common.CommunicationError("Input.dispatchKeyEvent", err)
		}
		if err := t.client.Input.KeyUp(sctx, def); err != nil {
			return common.CommunicationError("Input.dispatchKeyEvent", err)
		}
	}

	return flush()
}

// Screenshot captures the active window as PNG.
func (t *Target) Screenshot(ctx context.Context) ([]byte, error) {
	sctx, _, err := t.sessionContext(ctx)
	if err != nil {
		return nil, err
	}
	buf, err := t.client.Page.CaptureScreenshot(sctx)
	if err != nil {
		return nil, common.CommunicationError("Page.captureScreenshot", err)
	}
	return buf, nil
}

// BrowserVersion describes the connected browser.
type BrowserVersion struct {
	Protocol  string `json:"protocolVersion"`
	Product   string `json:"product"`
	Revision  string `json:"revision"`
	UserAgent string `json:"userAgent"`
	JSVersion string `json:"jsVersion"`
}

// Version reports the version of the connected browser.
func (t *Target) Version(ctx context.Context) (BrowserVersion, error) {
	var v BrowserVersion
	var err error
	v.Protocol, v.Product, v.Revision, v.UserAgent, v.JSVersion, err = t.client.Browser.GetVersion(ctx)
	if err != nil {
		return BrowserVersion{}, common.CommunicationError("Browser.getVersion", err)
	}
	return v, nil
}

// Navigate loads url in the active window.
func (t *Target) Navigate(ctx context.Context, url string) error {
	sctx, _, err := t.sessionContext(ctx)
	if err != nil {
		return err
	}
	if _, err := t.client.Page.Navigate(sctx, url); err != nil {
		return common.CommunicationError("Page.navigate", err)
	}
	return nil
}
