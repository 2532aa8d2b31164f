package cdp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
	"github.com/oxtoacart/bpool"

	"github.com/partnet/seauto/log"
)

const (
	wsBufferSize    = 1 << 20
	wsWriteDeadline = 10 * time.Second
)

// connection is a websocket carrying CDP messages. Reads and writes must
// each happen from a single goroutine.
type connection struct {
	ws     *websocket.Conn
	wsURL  string
	logger *log.Logger
	bufs   *bpool.BufferPool

	closeOnce sync.Once
}

func dial(ctx context.Context, wsURL string, logger *log.Logger) (*connection, error) {
	wd := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   wsBufferSize,
		WriteBufferSize:  wsBufferSize,
		Proxy:            http.ProxyFromEnvironment,
	}
	ws, resp, err := wd.DialContext(ctx, wsURL, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing %q: %w", wsURL, err)
	}
	// CDP messages carrying screenshots can be large
	ws.SetReadLimit(64 << 20)

	return &connection{
		ws:     ws,
		wsURL:  wsURL,
		logger: logger,
		bufs:   bpool.NewBufferPool(16),
	}, nil
}

func (c *connection) readMessage() (*cdproto.Message, error) {
	_, buf, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}

	var msg cdproto.Message
	lexer := jlexer.Lexer{Data: buf}
	msg.UnmarshalEasyJSON(&lexer)
	if err := lexer.Error(); err != nil {
		return nil, fmt.Errorf("decoding CDP message: %w", err)
	}

	return &msg, nil
}

func (c *connection) writeMessage(msg *cdproto.Message) error {
	var encoder jwriter.Writer
	msg.MarshalEasyJSON(&encoder)
	if err := encoder.Error; err != nil {
		return fmt.Errorf("encoding CDP message: %w", err)
	}

	buf := c.bufs.Get()
	defer c.bufs.Put(buf)
	if _, err := encoder.DumpTo(buf); err != nil {
		return fmt.Errorf("encoding CDP message: %w", err)
	}

	if err := c.ws.SetWriteDeadline(time.Now().Add(wsWriteDeadline)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, buf.Bytes())
}

// Close sends a close frame and closes the websocket.
func (c *connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.logger.Debugf("connection:Close", "wsURL:%q", c.wsURL)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

// handleIOError logs err unless it is the result of a normal close.
func (c *connection) handleIOError(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Debugf("connection:handleIOError", "wsURL:%q closed: %v", c.wsURL, err)
		return
	}
	c.logger.Errorf("connection:handleIOError", "wsURL:%q err:%v", c.wsURL, err)
}
