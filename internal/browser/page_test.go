package browser

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	assert.Equal(t, "Request Blocked", DetectBlock("<h1>Request Blocked</h1>"))
	assert.Equal(t, "You have been blocked", DetectBlock("<p>Sorry, You have been blocked.</p>"))
	assert.Empty(t, DetectBlock("<p>request blocked</p>"), "markers are case-sensitive literals")
	assert.Empty(t, DetectBlock(resumePage))
}

func TestFindDownloadHref(t *testing.T) {
	href, ok := FindDownloadHref(resumePage)
	assert.True(t, ok)
	assert.Equal(t, "/api/resume/42.pdf", href)

	_, ok = FindDownloadHref(`<button data-testid="header-download-resume-button">Download</button>`)
	assert.False(t, ok, "button without href is not an affordance")

	_, ok = FindDownloadHref(`<a data-testid="other-button" href="/x">x</a>`)
	assert.False(t, ok)

	href, ok = FindDownloadHref(`<a href="https://cdn.example.com/r.pdf" class="b" data-testid="header-download-resume-button">x</a>`)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/r.pdf", href)
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Candidate", PageTitle(resumePage))
	assert.Empty(t, PageTitle("<p>no title</p>"))
}

func TestCookieHeader(t *testing.T) {
	assert.Equal(t, "", CookieHeader(nil))
	assert.Equal(t, "a=1", CookieHeader([]Cookie{{Name: "a", Value: "1"}}))
	assert.Equal(t, "a=1; b=2", CookieHeader([]Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}))
}

func TestResolveHref(t *testing.T) {
	assert.Equal(t, "https://h.example/a/b.pdf", resolveHref("https://h.example/x/y", "/a/b.pdf"))
	assert.Equal(t, "https://o.example/r.pdf", resolveHref("https://h.example/x", "https://o.example/r.pdf"))
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(10 * time.Millisecond):
		return false
	}
}

func TestIdleWatcher_SignalsForCurrentDocument(t *testing.T) {
	w := newIdleWatcher()
	w.setFrame("main")

	// Events before arm belong to the blank tab and are ignored.
	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "blank", Name: lifecycleInit})
	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "blank", Name: lifecycleNetworkAlmostIdle})

	w.arm()
	assert.False(t, isClosed(w.idle()))

	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "L1", Name: lifecycleInit})
	w.handle(&page.EventLifecycleEvent{FrameID: "child", LoaderID: "L1", Name: lifecycleNetworkAlmostIdle})
	assert.False(t, isClosed(w.idle()), "other frames do not count")

	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "L1", Name: lifecycleNetworkAlmostIdle})
	assert.True(t, isClosed(w.idle()))
}

func TestIdleWatcher_NewDocumentResets(t *testing.T) {
	w := newIdleWatcher()
	w.setFrame("main")
	w.arm()

	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "L1", Name: lifecycleInit})
	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "L1", Name: lifecycleNetworkAlmostIdle})
	assert.True(t, isClosed(w.idle()))

	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "L2", Name: lifecycleInit})
	assert.False(t, isClosed(w.idle()))

	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "L1", Name: lifecycleNetworkAlmostIdle})
	assert.False(t, isClosed(w.idle()), "stale loader ignored")

	w.handle(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "L2", Name: lifecycleNetworkAlmostIdle})
	assert.True(t, isClosed(w.idle()))
}

func TestIdleWatcher_DocumentStatus(t *testing.T) {
	w := newIdleWatcher()
	w.setFrame(cdp.FrameID("main"))
	w.arm()

	w.handle(&network.EventResponseReceived{FrameID: "main", Type: network.ResourceTypeDocument, Response: &network.Response{Status: 302}})
	w.handle(&network.EventResponseReceived{FrameID: "main", Type: network.ResourceTypeScript, Response: &network.Response{Status: 404}})
	w.handle(&network.EventResponseReceived{FrameID: "main", Type: network.ResourceTypeDocument, Response: &network.Response{Status: 200}})
	w.handle(&network.EventResponseReceived{FrameID: "ad", Type: network.ResourceTypeDocument, Response: &network.Response{Status: 500}})

	assert.Equal(t, 200, w.documentStatus())
}
