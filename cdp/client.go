// Package cdp drives a Chromium-based browser over the Chrome DevTools
// Protocol and exposes it as an api.Target.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"

	"github.com/partnet/seauto/cdp/domains"
	"github.com/partnet/seauto/log"
)

var _ cdp.Executor = &Client{}

// ErrClosed is returned for commands issued after the connection closed.
var ErrClosed = errors.New("CDP connection closed")

// Client manages CDP communication with the browser.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger

	Browser domains.Browser
	Page    domains.Page
	Target  domains.Target
	Runtime domains.Runtime
	Network domains.Network
	Input   domains.Input

	conn      *connection
	msgID     int64
	sendCh    chan *cdproto.Message
	msgSubsMu sync.Mutex
	msgSubs   map[int64]chan *cdproto.Message
	errorCh   chan error
	done      chan struct{}
	closeOnce sync.Once

	watcher *eventWatcher
	wsURL   string
}

// NewClient returns a new Client that is unusable until a CDP connection is
// established with Connect().
func NewClient(ctx context.Context, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		sendCh:  make(chan *cdproto.Message, 32), // Buffered to avoid blocking in Execute
		msgSubs: make(map[int64]chan *cdproto.Message),
		errorCh: make(chan error, 1),
		done:    make(chan struct{}),
		watcher: newEventWatcher(ctx, logger),
	}

	c.Browser = domains.NewBrowser(c)
	c.Page = domains.NewPage(c)
	c.Target = domains.NewTarget(c)
	c.Runtime = domains.NewRuntime(c)
	c.Network = domains.NewNetwork(c)
	c.Input = domains.NewInput(c)

	return c
}

// Connect to the browser that exposes a CDP API at wsURL.
func (c *Client) Connect(wsURL string) (err error) {
	if c.wsURL != "" {
		return fmt.Errorf("CDP connection already established to %q", c.wsURL)
	}

	if c.conn, err = dial(c.ctx, wsURL, c.logger); err != nil {
		return err
	}
	c.logger.Infof("cdp", "established CDP connection to %q", wsURL)
	c.wsURL = wsURL

	go c.recvLoop()
	go c.sendLoop()

	return nil
}

// Close disconnects from the browser's CDP API and stops the client loops.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Done is closed once the connection is lost or closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Execute implements cdproto.Executor and performs a synchronous send and
// receive.
func (c *Client) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	id := atomic.AddInt64(&c.msgID, 1)
	c.logger.Debugf("Client:Execute", "wsURL:%q id:%d method:%q", c.wsURL, id, method)

	msg, err := c.newMessage(ctx, id, method, params)
	if err != nil {
		return err
	}

	// Register for the reply before sending so it cannot be missed.
	recvCh := make(chan *cdproto.Message, 1)
	c.msgSubsMu.Lock()
	c.msgSubs[id] = recvCh
	c.msgSubsMu.Unlock()
	defer func() {
		c.msgSubsMu.Lock()
		delete(c.msgSubs, id)
		c.msgSubsMu.Unlock()
	}()

	return c.send(ctx, msg, recvCh, res)
}

// ExecuteWithoutExpectationOnReply sends a command without waiting for its
// reply. It is used for commands whose reply may be held back by the
// browser, like a click that opens a modal dialog.
func (c *Client) ExecuteWithoutExpectationOnReply(ctx context.Context, method string, params easyjson.Marshaler) error {
	// Certain methods aren't available to the user directly.
	if method == target.CommandCloseTarget {
		return errors.New("to close the target, close its window")
	}

	id := atomic.AddInt64(&c.msgID, 1)
	c.logger.Debugf("Client:ExecuteWithoutExpectationOnReply", "wsURL:%q id:%d method:%q", c.wsURL, id, method)
	msg, err := c.newMessage(ctx, id, method, params)
	if err != nil {
		return err
	}

	return c.send(ctx, msg, nil, nil)
}

// Subscribe returns a channel that will be notified when the provided CDP
// events are received for the session in ctx, and a cancellation function
// that will unsubscribe and close the channel.
func (c *Client) Subscribe(ctx context.Context, events ...cdproto.MethodType) (<-chan *Event, func()) {
	return c.watcher.subscribe(target.SessionID(GetSessionID(ctx)), events...)
}

func (c *Client) newMessage(ctx context.Context, id int64, method string, params easyjson.Marshaler) (*cdproto.Message, error) {
	var buf []byte
	if params != nil {
		var err error
		if buf, err = easyjson.Marshal(params); err != nil {
			return nil, fmt.Errorf("encoding %s params: %w", method, err)
		}
	}

	// If we don't specify a session (a session ID in the JSON message),
	// it will be a message for the browser target. With a session ID set
	// in the context it is routed to that page instead.
	return &cdproto.Message{
		ID:        id,
		SessionID: target.SessionID(GetSessionID(ctx)),
		Method:    cdproto.MethodType(method),
		Params:    buf,
	}, nil
}

func (c *Client) send(ctx context.Context, msg *cdproto.Message, recvCh chan *cdproto.Message, res easyjson.Unmarshaler) error {
	select {
	case c.sendCh <- msg:
	case err := <-c.errorCh:
		return err
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Block waiting for response.
	if recvCh == nil {
		return nil
	}
	select {
	case msg := <-recvCh:
		switch {
		case msg.Error != nil:
			return msg.Error
		case res != nil:
			return easyjson.Unmarshal(msg.Result, res)
		}
	case err := <-c.errorCh:
		return err
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (c *Client) recvLoop() {
	defer close(c.done)

	for {
		msg, err := c.conn.readMessage()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && c.ctx.Err() == nil {
				c.conn.handleIOError(err)
			}
			c.cancel()
			return
		}

		switch {
		case msg.Method != "":
			evt, err := cdproto.UnmarshalMessage(msg)
			if err != nil {
				c.logger.Debugf("Client:recvLoop", "unmarshalling CDP event %q: %v", msg.Method, err)
				continue
			}
			c.watcher.notify(&Event{
				Name:      msg.Method,
				Data:      evt,
				SessionID: msg.SessionID,
			})
		case msg.ID > 0:
			c.msgSubsMu.Lock()
			ch, ok := c.msgSubs[msg.ID]
			delete(c.msgSubs, msg.ID)
			c.msgSubsMu.Unlock()
			if !ok {
				c.logger.Tracef("Client:recvLoop", "no one waits for reply %d", msg.ID)
				continue
			}
			ch <- msg
		default:
			c.logger.Errorf("Client:recvLoop", "ignoring malformed incoming CDP message (missing id or method): %#v", msg)
		}
	}
}

func (c *Client) sendLoop() {
	for {
		select {
		case msg := <-c.sendCh:
			if err := c.conn.writeMessage(msg); err != nil {
				c.conn.handleIOError(err)
				select {
				case c.errorCh <- fmt.Errorf("writing %s: %w", msg.Method, err):
				default:
				}
			}
		case <-c.ctx.Done():
			c.logger.Debugf("Client:sendLoop", "returning, ctx.Err: %q", c.ctx.Err())
			_ = c.conn.Close()
			return
		}
	}
}
