package browser

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-retriever/internal/fingerprint"
)

const (
	viewURL   = "https://cts.indeed.com/v1/abc"
	landedURL = "https://employers.indeed.com/candidates/view?id=42"

	resumePage = `<html><head><title>Candidate</title></head><body>
		<a data-testid="header-download-resume-button" href="/api/resume/42.pdf">Download</a>
	</body></html>`
)

type fakePage struct {
	nav      *Navigation
	navErr   error
	html     string
	cookies  []Cookie
	fetch    *FetchResult
	fetchErr error
	panicOn  string

	closed       int
	fetchURL     string
	fetchHeaders map[string]string
	navTimeout   time.Duration
}

func (p *fakePage) Navigate(url string, timeout time.Duration) (*Navigation, error) {
	if p.panicOn == "navigate" {
		panic("driver crashed")
	}
	p.navTimeout = timeout
	if p.navErr != nil {
		return nil, p.navErr
	}
	if p.nav != nil {
		return p.nav, nil
	}
	return &Navigation{URL: landedURL, Status: 200}, nil
}

func (p *fakePage) HTML() (string, error) { return p.html, nil }

func (p *fakePage) Cookies() ([]Cookie, error) { return p.cookies, nil }

func (p *fakePage) Fetch(url string, headers map[string]string, _ time.Duration) (*FetchResult, error) {
	p.fetchURL = url
	p.fetchHeaders = headers
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.fetch, nil
}

func (p *fakePage) Close() error {
	p.closed++
	return nil
}

type fakeLauncher struct {
	page     *fakePage
	err      error
	profile  fingerprint.Profile
	script   string
	launches int
}

func (l *fakeLauncher) Launch(_ context.Context, profile fingerprint.Profile, script string) (Page, error) {
	l.launches++
	l.profile = profile
	l.script = script
	if l.err != nil {
		return nil, l.err
	}
	return l.page, nil
}

type recordedSleeps struct {
	delays []time.Duration
}

func (s *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRetriever(l Launcher, sleeps *recordedSleeps) *Retriever {
	return NewRetriever(l, &Options{
		Sleep:  sleeps.sleep,
		Logger: quietLogger(),
	})
}

func TestRetrieve_Success(t *testing.T) {
	page := &fakePage{
		html:    resumePage,
		cookies: []Cookie{{Name: "CTK", Value: "abc"}, {Name: "SOCK", Value: "x=y"}},
		fetch:   &FetchResult{OK: true, Status: 200, Data: "JVBERi0xLjQ="},
	}
	launcher := &fakeLauncher{page: page}
	sleeps := &recordedSleeps{}
	profile := fingerprint.FallbackProfile()

	dl, err := newTestRetriever(launcher, sleeps).Retrieve(context.Background(), viewURL, profile)
	require.NoError(t, err)

	assert.Equal(t, "JVBERi0xLjQ=", dl.Data)
	assert.Equal(t, landedURL, dl.PageURL)
	assert.Equal(t, "https://employers.indeed.com/api/resume/42.pdf", dl.DownloadURL)
	assert.Equal(t, "CTK=abc; SOCK=x=y", dl.Cookies)
	assert.Equal(t, dl.DownloadURL, page.fetchURL)
	assert.Equal(t, "CTK=abc; SOCK=x=y", page.fetchHeaders["Cookie"])
	assert.Equal(t, "application/pdf", page.fetchHeaders["Accept"])
	assert.Equal(t, DefaultNavigationTimeout, page.navTimeout)
	assert.Equal(t, 1, page.closed)

	assert.Equal(t, profile.UserAgent, launcher.profile.UserAgent)
	assert.Contains(t, launcher.script, "webdriver")
}

func TestRetrieve_DelaysWithinBounds(t *testing.T) {
	page := &fakePage{html: resumePage, fetch: &FetchResult{OK: true, Status: 200, Data: "AA=="}}
	sleeps := &recordedSleeps{}

	_, err := newTestRetriever(&fakeLauncher{page: page}, sleeps).
		Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())
	require.NoError(t, err)

	require.Len(t, sleeps.delays, 2)
	assert.GreaterOrEqual(t, sleeps.delays[0], time.Second)
	assert.Less(t, sleeps.delays[0], 3*time.Second)
	assert.GreaterOrEqual(t, sleeps.delays[1], 2*time.Second)
	assert.Less(t, sleeps.delays[1], 5*time.Second)
}

func TestRetrieve_DelaysDeterministicPerProfile(t *testing.T) {
	run := func() []time.Duration {
		page := &fakePage{html: resumePage, fetch: &FetchResult{OK: true, Status: 200, Data: "AA=="}}
		sleeps := &recordedSleeps{}
		_, err := newTestRetriever(&fakeLauncher{page: page}, sleeps).
			Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())
		require.NoError(t, err)
		return sleeps.delays
	}
	assert.Equal(t, run(), run())
}

func TestRetrieve_Blocked(t *testing.T) {
	for _, marker := range BlockMarkers {
		page := &fakePage{html: "<html><body><h1>" + marker + "</h1></body></html>"}

		_, err := newTestRetriever(&fakeLauncher{page: page}, &recordedSleeps{}).
			Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())

		var blocked *BlockedError
		require.ErrorAs(t, err, &blocked)
		assert.Equal(t, marker, blocked.Marker)
		assert.Empty(t, page.fetchURL, "no download after a block page")
		assert.Equal(t, 1, page.closed)
	}
}

func TestRetrieve_AffordanceMissing(t *testing.T) {
	page := &fakePage{html: "<html><head><title>Sign in</title></head><body>Please sign in</body></html>"}

	_, err := newTestRetriever(&fakeLauncher{page: page}, &recordedSleeps{}).
		Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())

	var missing *AffordanceNotFoundError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Sign in", missing.PageTitle)
	assert.Equal(t, landedURL, missing.URL)
	assert.Equal(t, 1, page.closed)
}

func TestRetrieve_NonSuccessStatus(t *testing.T) {
	page := &fakePage{
		html:  resumePage,
		fetch: &FetchResult{OK: false, Status: 403, StatusText: "Forbidden"},
	}

	_, err := newTestRetriever(&fakeLauncher{page: page}, &recordedSleeps{}).
		Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())

	var retrieval *RetrievalError
	require.ErrorAs(t, err, &retrieval)
	assert.Equal(t, 403, retrieval.Status)
	assert.Equal(t, "Forbidden", retrieval.StatusText)
	assert.Contains(t, err.Error(), "HTTP 403")
	assert.Equal(t, 1, page.closed)
}

func TestRetrieve_FetchScriptError(t *testing.T) {
	page := &fakePage{
		html:  resumePage,
		fetch: &FetchResult{OK: false, Error: "TypeError: Failed to fetch"},
	}

	_, err := newTestRetriever(&fakeLauncher{page: page}, &recordedSleeps{}).
		Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())

	var retrieval *RetrievalError
	require.ErrorAs(t, err, &retrieval)
	assert.Zero(t, retrieval.Status)
	assert.Contains(t, err.Error(), "Failed to fetch")
	assert.Equal(t, 1, page.closed)
}

func TestRetrieve_FetchTransportError(t *testing.T) {
	cause := errors.New("context deadline exceeded")
	page := &fakePage{html: resumePage, fetchErr: cause}

	_, err := newTestRetriever(&fakeLauncher{page: page}, &recordedSleeps{}).
		Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())

	var retrieval *RetrievalError
	require.ErrorAs(t, err, &retrieval)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, page.closed)
}

func TestRetrieve_NavigationTimeout(t *testing.T) {
	page := &fakePage{navErr: &NavigationError{URL: viewURL, Timeout: true, Cause: context.DeadlineExceeded}}

	_, err := newTestRetriever(&fakeLauncher{page: page}, &recordedSleeps{}).
		Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())

	var nav *NavigationError
	require.ErrorAs(t, err, &nav)
	assert.True(t, nav.Timeout)
	assert.Equal(t, 1, page.closed)
}

func TestRetrieve_LaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{err: errors.New("chrome not found")}

	_, err := newTestRetriever(launcher, &recordedSleeps{}).
		Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())

	var launch *LaunchError
	require.ErrorAs(t, err, &launch)
	assert.Equal(t, 1, launcher.launches)
}

func TestRetrieve_PanicStillClosesOnce(t *testing.T) {
	page := &fakePage{panicOn: "navigate"}

	assert.Panics(t, func() {
		_, _ = newTestRetriever(&fakeLauncher{page: page}, &recordedSleeps{}).
			Retrieve(context.Background(), viewURL, fingerprint.FallbackProfile())
	})
	assert.Equal(t, 1, page.closed)
}

func TestRetrieve_CancelledContextDuringDelay(t *testing.T) {
	page := &fakePage{html: resumePage}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetriever(&fakeLauncher{page: page}, &Options{Logger: quietLogger()})
	_, err := r.Retrieve(ctx, viewURL, fingerprint.FallbackProfile())

	var nav *NavigationError
	require.ErrorAs(t, err, &nav)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, page.closed)
}

func TestRetrieve_SnapshotHook(t *testing.T) {
	page := &fakePage{html: "<html><body>You have been blocked</body></html>"}
	var gotURL, gotHTML, gotSession string

	r := NewRetriever(&fakeLauncher{page: page}, &Options{
		Sleep:  (&recordedSleeps{}).sleep,
		Logger: quietLogger(),
		OnSnapshot: func(ctx context.Context, pageURL, pageHTML string) {
			gotURL, gotHTML, gotSession = pageURL, pageHTML, SessionID(ctx)
		},
	})
	ctx := WithSessionID(context.Background(), "s-1")
	_, err := r.Retrieve(ctx, viewURL, fingerprint.FallbackProfile())
	require.Error(t, err)

	assert.Equal(t, landedURL, gotURL)
	assert.Equal(t, page.html, gotHTML)
	assert.Equal(t, "s-1", gotSession)
}

func TestSessionID_Unset(t *testing.T) {
	assert.Empty(t, SessionID(context.Background()))
}

func TestOnceCloser(t *testing.T) {
	page := &fakePage{}
	c := &onceCloser{page: page}
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, page.closed)
}
