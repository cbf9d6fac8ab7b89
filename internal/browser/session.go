package browser

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-retriever/internal/fingerprint"
)

// Default time limits.
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultRetrievalTimeout  = 60 * time.Second
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SnapshotFunc receives the rendered page of every session that got past navigation.
// ctx carries the session ID set with WithSessionID, if any.
type SnapshotFunc func(ctx context.Context, pageURL, pageHTML string)

type sessionKey struct{}

// WithSessionID tags ctx with a session ID for logs and snapshots.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the ID set with WithSessionID, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Options configures a Retriever.
type Options struct {
	NavigationTimeout  time.Duration
	RetrievalTimeout   time.Duration
	PreNavigationDelay fingerprint.Delay
	DwellDelay         fingerprint.Delay
	Sleep              SleepFunc
	OnSnapshot         SnapshotFunc
	Logger             *logrus.Logger
}

// DefaultOptions returns the production timing policy.
func DefaultOptions() *Options {
	return &Options{
		NavigationTimeout:  DefaultNavigationTimeout,
		RetrievalTimeout:   DefaultRetrievalTimeout,
		PreNavigationDelay: fingerprint.PreNavigationDelay,
		DwellDelay:         fingerprint.DwellDelay,
		Sleep:              Sleep,
		Logger:             logrus.StandardLogger(),
	}
}

// Sleep is a context-aware time.Sleep.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Download is a successfully retrieved resume.
type Download struct {
	PageURL     string
	PageStatus  int
	DownloadURL string
	Cookies     string
	// Data is the base64-encoded file body.
	Data string
}

// Retriever runs one browser session per Retrieve call. It holds no per-session
// state and is safe for concurrent use.
type Retriever struct {
	launcher Launcher
	opts     Options
}

// NewRetriever creates a Retriever. Zero-valued options fall back to defaults.
func NewRetriever(launcher Launcher, opts *Options) *Retriever {
	defaults := DefaultOptions()
	if opts == nil {
		opts = defaults
	}
	o := *opts
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = defaults.NavigationTimeout
	}
	if o.RetrievalTimeout <= 0 {
		o.RetrievalTimeout = defaults.RetrievalTimeout
	}
	if o.PreNavigationDelay == (fingerprint.Delay{}) {
		o.PreNavigationDelay = defaults.PreNavigationDelay
	}
	if o.DwellDelay == (fingerprint.Delay{}) {
		o.DwellDelay = defaults.DwellDelay
	}
	if o.Sleep == nil {
		o.Sleep = defaults.Sleep
	}
	if o.Logger == nil {
		o.Logger = defaults.Logger
	}
	return &Retriever{launcher: launcher, opts: o}
}

// onceCloser makes Page.Close idempotent.
type onceCloser struct {
	page Page
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.page.Close() })
	return c.err
}

// Retrieve launches a browser under profile, opens link, and downloads the resume
// inside the page. The browser is closed before Retrieve returns or panics.
func (r *Retriever) Retrieve(ctx context.Context, link string, profile fingerprint.Profile) (*Download, error) {
	log := r.opts.Logger.WithField("url", link)
	if id := SessionID(ctx); id != "" {
		log = log.WithField("session_id", id)
	}

	script, err := fingerprint.EvasionScript(profile)
	if err != nil {
		return nil, &LaunchError{Message: "failed to build evasion script", Cause: err}
	}

	page, err := r.launcher.Launch(ctx, profile, script)
	if err != nil {
		return nil, &LaunchError{Message: "failed to start browser", Cause: err}
	}
	closer := &onceCloser{page: page}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			log.WithError(cerr).Debug("Browser close reported an error")
		}
	}()

	rnd := profile.Rand()

	if err := r.opts.Sleep(ctx, r.opts.PreNavigationDelay.Pick(rnd)); err != nil {
		return nil, &NavigationError{URL: link, Cause: err}
	}

	log.Debug("Navigating to resume page")
	nav, err := page.Navigate(link, r.opts.NavigationTimeout)
	if err != nil {
		return nil, err
	}
	log = log.WithFields(logrus.Fields{"landed": nav.URL, "status": nav.Status})
	log.Debug("Landed on page")

	if err := r.opts.Sleep(ctx, r.opts.DwellDelay.Pick(rnd)); err != nil {
		return nil, &NavigationError{URL: link, Cause: err}
	}

	pageHTML, err := page.HTML()
	if err != nil {
		return nil, &NavigationError{URL: nav.URL, Cause: err}
	}
	if r.opts.OnSnapshot != nil {
		r.opts.OnSnapshot(ctx, nav.URL, pageHTML)
	}

	if marker := DetectBlock(pageHTML); marker != "" {
		log.WithField("marker", marker).Warn("Block page detected")
		return nil, &BlockedError{URL: nav.URL, Marker: marker}
	}

	href, ok := FindDownloadHref(pageHTML)
	if !ok {
		title := PageTitle(pageHTML)
		log.WithFields(logrus.Fields{"title": title, "bytes": len(pageHTML)}).
			Warn("Download button missing; page state not recognized")
		return nil, &AffordanceNotFoundError{URL: nav.URL, PageTitle: title}
	}
	downloadURL := resolveHref(nav.URL, href)

	cookies, err := page.Cookies()
	if err != nil {
		return nil, &RetrievalError{URL: downloadURL, Message: "failed to read cookies", Cause: err}
	}
	cookieHeader := CookieHeader(cookies)

	log.WithFields(logrus.Fields{"download": downloadURL, "cookies": len(cookies)}).Debug("Fetching resume in page")
	res, err := page.Fetch(downloadURL, map[string]string{
		"Cookie": cookieHeader,
		"Accept": "application/pdf",
	}, r.opts.RetrievalTimeout)
	if err != nil {
		return nil, &RetrievalError{URL: downloadURL, Message: "in-page fetch failed", Cause: err}
	}
	if !res.OK {
		if res.Status != 0 {
			return nil, &RetrievalError{URL: downloadURL, Status: res.Status, StatusText: res.StatusText}
		}
		return nil, &RetrievalError{URL: downloadURL, Message: res.Error}
	}

	return &Download{
		PageURL:     nav.URL,
		PageStatus:  nav.Status,
		DownloadURL: downloadURL,
		Cookies:     cookieHeader,
		Data:        res.Data,
	}, nil
}

// resolveHref resolves a possibly relative href against the page URL.
func resolveHref(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
