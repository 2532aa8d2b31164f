package cdp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeRequest is a CDP command as received by fakeBrowser.
type fakeRequest struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

func (r fakeRequest) param(t *testing.T, name string) interface{} {
	t.Helper()

	var params map[string]interface{}
	if err := json.Unmarshal(r.Params, &params); err != nil {
		t.Errorf("decoding %s params: %v", r.Method, err)
	}
	return params[name]
}

// fakeError makes a handler reply with a CDP error.
type fakeError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// fakeNoReply makes a handler swallow the command.
type fakeNoReply struct{}

type fakeHandler func(req fakeRequest) interface{}

// fakeBrowser is a websocket server speaking enough CDP to drive a Target.
// Commands without a handler get an empty result.
type fakeBrowser struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]fakeHandler
	requests []fakeRequest
	conn     *websocket.Conn
	writeMu  sync.Mutex
}

func newFakeBrowser(t *testing.T) *fakeBrowser {
	t.Helper()

	fb := &fakeBrowser{t: t, handlers: make(map[string]fakeHandler)}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var upgrader websocket.Upgrader
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() {
			if err := conn.Close(); err != nil {
				t.Logf("closing websocket connection: %v", err)
			}
		}()
		fb.mu.Lock()
		fb.conn = conn
		fb.mu.Unlock()
		fb.serve(conn)
	}))
	t.Cleanup(fb.srv.Close)

	return fb
}

func (fb *fakeBrowser) url() string {
	return "ws://" + fb.srv.Listener.Addr().String()
}

func (fb *fakeBrowser) handle(method string, h fakeHandler) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[method] = h
}

// reply installs a handler that always replies with result.
func (fb *fakeBrowser) reply(method string, result interface{}) {
	fb.handle(method, func(fakeRequest) interface{} { return result })
}

func (fb *fakeBrowser) received(method string) []fakeRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	var out []fakeRequest
	for _, r := range fb.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// emit sends an event to the client.
func (fb *fakeBrowser) emit(sessionID, method string, params interface{}) {
	fb.mu.Lock()
	conn := fb.conn
	fb.mu.Unlock()
	require.NotNil(fb.t, conn, "no client connected")

	fb.write(conn, map[string]interface{}{
		"method":    method,
		"sessionId": sessionID,
		"params":    params,
	})
}

func (fb *fakeBrowser) serve(conn *websocket.Conn) {
	for {
		_, buf, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req fakeRequest
		if err := json.Unmarshal(buf, &req); err != nil {
			fb.t.Errorf("decoding CDP request %s: %v", buf, err)
			return
		}

		fb.mu.Lock()
		fb.requests = append(fb.requests, req)
		h := fb.handlers[req.Method]
		fb.mu.Unlock()

		var result interface{} = struct{}{}
		if h != nil {
			result = h(req)
		}
		msg := map[string]interface{}{"id": req.ID}
		if req.SessionID != "" {
			msg["sessionId"] = req.SessionID
		}
		switch r := result.(type) {
		case fakeNoReply:
			continue
		case *fakeError:
			msg["error"] = r
		default:
			msg["result"] = r
		}
		fb.write(conn, msg)
	}
}

func (fb *fakeBrowser) write(conn *websocket.Conn, msg interface{}) {
	buf, err := json.Marshal(msg)
	require.NoError(fb.t, err)

	fb.writeMu.Lock()
	defer fb.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
		fb.t.Logf("writing CDP message: %v", err)
	}
}

// remote builds a Runtime.RemoteObject reply.
func remote(fields map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"result": fields}
}

// withPages installs the handlers a Target needs to attach to pages. Each
// page target ID is attached as session "S-<id>".
func (fb *fakeBrowser) withPages(pages ...map[string]interface{}) {
	infos := make([]map[string]interface{}, 0, len(pages)+1)
	infos = append(infos, map[string]interface{}{
		"targetId": "worker", "type": "service_worker", "title": "", "url": "",
	})
	for _, p := range pages {
		info := map[string]interface{}{"type": "page", "attached": false}
		for k, v := range p {
			info[k] = v
		}
		infos = append(infos, info)
	}
	fb.reply("Target.getTargets", map[string]interface{}{"targetInfos": infos})
	fb.handle("Target.attachToTarget", func(req fakeRequest) interface{} {
		return map[string]interface{}{"sessionId": "S-" + req.param(fb.t, "targetId").(string)}
	})
	fb.reply("Runtime.evaluate", remote(map[string]interface{}{"type": "object", "objectId": "window"}))
}
