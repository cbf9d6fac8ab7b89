package browser

import (
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
)

// Chrome lifecycle event names.
const (
	lifecycleInit              = "init"
	lifecycleNetworkAlmostIdle = "networkAlmostIdle"
)

// idleWatcher tracks lifecycle events of the main frame and signals once the
// current document reaches networkAlmostIdle. It also records the HTTP status of
// the last main-frame document response.
type idleWatcher struct {
	mu     sync.Mutex
	frame  cdp.FrameID
	armed  bool
	loader cdp.LoaderID
	done   chan struct{}
	closed bool
	status int
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{done: make(chan struct{})}
}

func (w *idleWatcher) setFrame(frame cdp.FrameID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frame = frame
}

// arm resets state ahead of a navigation. Events before arm are ignored.
func (w *idleWatcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armed = true
	w.loader = ""
	w.status = 0
	w.done = make(chan struct{})
	w.closed = false
}

func (w *idleWatcher) idle() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *idleWatcher) documentStatus() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// handle is registered with chromedp.ListenTarget and must not block.
func (w *idleWatcher) handle(ev any) {
	switch e := ev.(type) {
	case *page.EventLifecycleEvent:
		w.lifecycle(e.FrameID, e.LoaderID, e.Name)
	case *network.EventResponseReceived:
		if e.Type == network.ResourceTypeDocument && e.Response != nil {
			w.response(e.FrameID, int(e.Response.Status))
		}
	}
}

func (w *idleWatcher) lifecycle(frame cdp.FrameID, loader cdp.LoaderID, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed || frame != w.frame {
		return
	}
	switch name {
	case lifecycleInit:
		if loader == w.loader {
			return
		}
		w.loader = loader
		// a redirect or client-side navigation started a new document
		if w.closed {
			w.done = make(chan struct{})
			w.closed = false
		}
	case lifecycleNetworkAlmostIdle:
		if loader == w.loader && !w.closed {
			close(w.done)
			w.closed = true
		}
	}
}

func (w *idleWatcher) response(frame cdp.FrameID, status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.armed && frame == w.frame {
		w.status = status
	}
}
