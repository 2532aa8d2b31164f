package sim

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/partnet/seauto/api"
)

//go:embed prelude.js
var prelude string

// Page is the content loaded into a simulated window.
type Page struct {
	URL   string
	Title string
	HTML  string
	// ReadyStates are reported by successive readiness queries. The last
	// one sticks; an empty list always reports "complete".
	ReadyStates []string
}

type element struct {
	window api.WindowHandle
	index  int
}

func (e *element) ID() string { return fmt.Sprintf("%s/%d", e.window, e.index) }

// window is one simulated document with its own script runtime.
type window struct {
	target *Target
	handle api.WindowHandle
	page   Page
	doc    *goquery.Document
	vm     *goja.Runtime

	nodes    []*html.Node
	index    map[*html.Node]int
	values   map[*html.Node]string
	selected map[*html.Node]int
	states   []string
}

func newWindow(t *Target, h api.WindowHandle, p Page) (*window, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, fmt.Errorf("parsing page %q: %w", p.URL, err)
	}
	w := &window{
		target: t,
		handle: h,
		page:   p,
		doc:    doc,
		vm:     goja.New(),
		index:  make(map[*html.Node]int),
		values:   make(map[*html.Node]string),
		selected: make(map[*html.Node]int),
		states:   append([]string(nil), p.ReadyStates...),
	}
	if err := w.vm.Set("__host", w.bindings()); err != nil {
		return nil, err
	}
	if _, err := w.vm.RunString(prelude); err != nil {
		return nil, fmt.Errorf("loading prelude: %w", err)
	}
	return w, nil
}

func (w *window) bindings() map[string]interface{} {
	return map[string]interface{}{
		"query":       w.query,
		"getValue":    func(id int) string { return w.value(w.nodes[id]) },
		"setValue":    func(id int, v string) { w.setValue(w.nodes[id], v) },
		"getSelected": func(id int) int { return w.selectedIndex(w.nodes[id]) },
		"setSelected": func(id, i int) { w.selected[w.nodes[id]] = i },
		"attr":        w.jsAttr,
		"tag":         func(id int) string { return w.nodes[id].Data },
		"text":        func(id int) string { return w.text(w.nodes[id]) },
		"displayed":   func(id int) bool { return displayed(w.nodes[id]) },
		"getCookie":   w.target.cookieString,
		"setCookie":   w.target.parseCookie,
		"title":       w.title,
		"readyState":  w.peekReadyState,
		"dialog":      w.target.openDialog,
	}
}

func (w *window) ref(n *html.Node) int {
	if i, ok := w.index[n]; ok {
		return i
	}
	w.nodes = append(w.nodes, n)
	w.index[n] = len(w.nodes) - 1
	return len(w.nodes) - 1
}

// query returns the node indexes matching selector below scope, or below
// the document root when scope is negative.
func (w *window) query(scope int, selector string) []interface{} {
	sel := w.doc.Find(selector)
	if scope >= 0 {
		sel = goquery.NewDocumentFromNode(w.nodes[scope]).Find(selector)
	}
	out := make([]interface{}, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, w.ref(n))
	}
	return out
}

func (w *window) jsAttr(id int, name string) interface{} {
	if v, ok := attr(w.nodes[id], name); ok {
		return v
	}
	return nil
}

func (w *window) value(n *html.Node) string {
	switch n.Data {
	case "select":
		opts := options(n)
		if i := w.selectedIndex(n); i >= 0 && i < len(opts) {
			return w.value(opts[i])
		}
		return ""
	case "option":
		if v, ok := attr(n, "value"); ok {
			return v
		}
		return strings.Join(strings.Fields(w.text(n)), " ")
	}
	if v, ok := w.values[n]; ok {
		return v
	}
	if n.Data == "textarea" {
		return w.text(n)
	}
	v, _ := attr(n, "value")
	return v
}

// setValue selects the first option with value v when n is a select.
func (w *window) setValue(n *html.Node, v string) {
	if n.Data != "select" {
		w.values[n] = v
		return
	}
	w.selected[n] = -1
	for i, o := range options(n) {
		if w.value(o) == v {
			w.selected[n] = i
			return
		}
	}
}

// selectedIndex defaults to the first option marked selected, or to the
// first option when none is.
func (w *window) selectedIndex(n *html.Node) int {
	if i, ok := w.selected[n]; ok {
		return i
	}
	opts := options(n)
	for i, o := range opts {
		if _, ok := attr(o, "selected"); ok {
			return i
		}
	}
	if len(opts) == 0 {
		return -1
	}
	return 0
}

func options(n *html.Node) []*html.Node {
	return goquery.NewDocumentFromNode(n).Find("option").Nodes
}

func (w *window) text(n *html.Node) string {
	return goquery.NewDocumentFromNode(n).Text()
}

func (w *window) title() string {
	if w.page.Title != "" {
		return w.page.Title
	}
	return strings.TrimSpace(w.doc.Find("title").First().Text())
}

func (w *window) peekReadyState() string {
	if len(w.states) == 0 {
		return "complete"
	}
	return w.states[0]
}

func (w *window) nextReadyState() string {
	s := w.peekReadyState()
	if len(w.states) > 1 {
		w.states = w.states[1:]
	}
	return s
}

// call runs script as a function body with args and converts the result.
func (w *window) call(script string, args ...interface{}) (interface{}, error) {
	fn, err := w.vm.RunString("(function(){" + script + "\n})")
	if err != nil {
		return nil, err
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("script did not compile to a function")
	}
	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		if jsArgs[i], err = w.toJS(a); err != nil {
			return nil, err
		}
	}
	res, err := callable(goja.Undefined(), jsArgs...)
	if err != nil {
		return nil, err
	}
	return w.export(res), nil
}

func (w *window) toJS(v interface{}) (goja.Value, error) {
	switch v := v.(type) {
	case api.ElementRef:
		el, err := w.element(v)
		if err != nil {
			return nil, err
		}
		wrap, _ := goja.AssertFunction(w.vm.Get("__simWrap"))
		return wrap(goja.Undefined(), w.vm.ToValue(el.index))
	case []interface{}:
		vals := make([]interface{}, len(v))
		for i, e := range v {
			jv, err := w.toJS(e)
			if err != nil {
				return nil, err
			}
			vals[i] = jv
		}
		return w.vm.NewArray(vals...), nil
	}
	return w.vm.ToValue(v), nil
}

func (w *window) export(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return normalize(v.Export())
	}
	if id := obj.Get("__simId"); id != nil && !goja.IsUndefined(id) {
		return &element{window: w.handle, index: int(id.ToInteger())}
	}
	switch obj.ClassName() {
	case "Array":
		n := int(obj.Get("length").ToInteger())
		out := make([]interface{}, n)
		for i := 0; i < n; i++ {
			out[i] = w.export(obj.Get(fmt.Sprint(i)))
		}
		return out
	case "Object":
		out := make(map[string]interface{})
		for _, k := range obj.Keys() {
			out[k] = w.export(obj.Get(k))
		}
		return out
	}
	return normalize(obj.Export())
}

// normalize reports every number as float64, as a JSON transport would.
func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	}
	return v
}

func (w *window) element(ref api.ElementRef) (*element, error) {
	el, ok := ref.(*element)
	if !ok || el.window != w.handle || el.index >= len(w.nodes) {
		return nil, fmt.Errorf("stale element %s in window %s", ref.ID(), w.handle)
	}
	return el, nil
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// displayed reports whether neither n nor an ancestor is hidden.
func displayed(n *html.Node) bool {
	if n.Data == "input" {
		if t, _ := attr(n, "type"); t == "hidden" {
			return false
		}
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if _, ok := attr(p, "hidden"); ok {
			return false
		}
		style, _ := attr(p, "style")
		if strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
