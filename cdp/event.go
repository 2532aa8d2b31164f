package cdp

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/target"

	"github.com/partnet/seauto/log"
)

// Event is a CDP event received from the browser.
type Event struct {
	Name      cdproto.MethodType
	Data      interface{}
	SessionID target.SessionID
}

type subscriber struct {
	sessionID target.SessionID
	events    map[cdproto.MethodType]bool
	ch        chan *Event
}

type eventWatcher struct {
	ctx    context.Context
	logger *log.Logger

	subsMu sync.RWMutex
	subs   map[int64]*subscriber
	nextID int64
}

func newEventWatcher(ctx context.Context, logger *log.Logger) *eventWatcher {
	return &eventWatcher{
		ctx:    ctx,
		logger: logger,
		subs:   make(map[int64]*subscriber),
	}
}

// subscribe returns a channel receiving events for sessionID, and a
// function that unsubscribes and closes the channel.
func (w *eventWatcher) subscribe(sessionID target.SessionID, events ...cdproto.MethodType) (<-chan *Event, func()) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()

	s := &subscriber{
		sessionID: sessionID,
		events:    make(map[cdproto.MethodType]bool, len(events)),
		ch:        make(chan *Event, 8),
	}
	for _, evt := range events {
		s.events[evt] = true
	}
	id := w.nextID
	w.nextID++
	w.subs[id] = s

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			w.subsMu.Lock()
			defer w.subsMu.Unlock()
			delete(w.subs, id)
			close(s.ch)
		})
	}
}

func (w *eventWatcher) notify(evt *Event) {
	w.subsMu.RLock()
	defer w.subsMu.RUnlock()

	for _, s := range w.subs {
		if s.sessionID != evt.SessionID || !s.events[evt.Name] {
			continue
		}
		select {
		case s.ch <- evt:
		case <-w.ctx.Done():
			return
		default:
			w.logger.Warnf("eventWatcher:notify", "dropping %s for session %s, subscriber is slow", evt.Name, evt.SessionID)
		}
	}
}
