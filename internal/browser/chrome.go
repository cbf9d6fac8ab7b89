package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/resume-retriever/internal/fingerprint"
)

// ChromeOptions configures the Chrome process.
type ChromeOptions struct {
	// ExecPath overrides the Chrome binary. CHROME_PATH is used when empty.
	ExecPath string
	Headless bool
}

// ChromeLauncher starts one Chrome process per Launch via chromedp.
type ChromeLauncher struct {
	opts ChromeOptions
}

// NewChromeLauncher creates a launcher.
func NewChromeLauncher(opts ChromeOptions) *ChromeLauncher {
	return &ChromeLauncher{opts: opts}
}

// allocatorOptions builds the launch flags. The user agent passed here must match
// the page-level override set in Launch.
func (l *ChromeLauncher) allocatorOptions(profile fingerprint.Profile) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent(profile.UserAgent),
		chromedp.WindowSize(profile.ViewportWidth, profile.ViewportHeight),
	)
	if len(profile.Languages) > 0 {
		opts = append(opts, chromedp.Flag("lang", profile.Languages[0]))
	}

	execPath := l.opts.ExecPath
	if execPath == "" {
		execPath = os.Getenv("CHROME_PATH")
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}

// Launch starts Chrome and prepares its first tab with the evasion profile.
func (l *ChromeLauncher) Launch(ctx context.Context, profile fingerprint.Profile, evasionScript string) (Page, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocatorOptions(profile)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	p := &chromePage{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		watch:         newIdleWatcher(),
	}
	chromedp.ListenTarget(browserCtx, p.watch.handle)

	err := chromedp.Run(browserCtx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		emulation.SetUserAgentOverride(profile.UserAgent).
			WithAcceptLanguage(profile.AcceptLanguage()).
			WithPlatform(profile.Platform),
		emulation.SetDeviceMetricsOverride(
			int64(profile.ViewportWidth), int64(profile.ViewportHeight), profile.DeviceScaleFactor, false),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language":           profile.AcceptLanguage(),
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
			"Upgrade-Insecure-Requests": "1",
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(evasionScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to initialize page: %w", err)
	}

	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		p.watch.setFrame(cdp.FrameID(c.Target.TargetID))
	}
	return p, nil
}

// chromePage is the single tab of a chromedp browser.
type chromePage struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	watch         *idleWatcher
}

// Navigate loads rawURL and waits for the main frame's networkAlmostIdle lifecycle
// event (no more than two connections for 500ms), bounded by timeout.
func (p *chromePage) Navigate(rawURL string, timeout time.Duration) (*Navigation, error) {
	navCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	p.watch.arm()
	if err := chromedp.Run(navCtx, chromedp.Navigate(rawURL)); err != nil {
		return nil, &NavigationError{URL: rawURL, Timeout: isDeadline(navCtx), Cause: err}
	}

	select {
	case <-p.watch.idle():
	case <-navCtx.Done():
		return nil, &NavigationError{URL: rawURL, Timeout: isDeadline(navCtx), Cause: navCtx.Err()}
	}

	var location string
	if err := chromedp.Run(p.ctx, chromedp.Location(&location)); err != nil {
		return nil, &NavigationError{URL: rawURL, Cause: err}
	}
	return &Navigation{URL: location, Status: p.watch.documentStatus()}, nil
}

func isDeadline(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// HTML returns the rendered DOM.
func (p *chromePage) HTML() (string, error) {
	var html string
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// Cookies returns the cookies visible to the current page.
func (p *chromePage) Cookies() ([]Cookie, error) {
	var raw []*network.Cookie
	err := chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

// fetchScript downloads a URL from inside the page so the request carries the
// page's origin and cookies, and returns the body base64 encoded.
const fetchScript = `(async (url, headers) => {
  try {
    const res = await fetch(url, { method: "GET", headers: headers, credentials: "include" });
    if (!res.ok) {
      return { ok: false, status: res.status, statusText: res.statusText };
    }
    const bytes = new Uint8Array(await res.arrayBuffer());
    let binary = "";
    const chunk = 0x8000;
    for (let i = 0; i < bytes.length; i += chunk) {
      binary += String.fromCharCode.apply(null, bytes.subarray(i, i + chunk));
    }
    return { ok: true, status: res.status, statusText: res.statusText, data: btoa(binary) };
  } catch (e) {
    return { ok: false, error: String(e) };
  }
})(%s, %s)`

// Fetch performs the in-page download.
func (p *chromePage) Fetch(rawURL string, headers map[string]string, timeout time.Duration) (*FetchResult, error) {
	urlArg, err := json.Marshal(rawURL)
	if err != nil {
		return nil, err
	}
	headerArg, err := json.Marshal(headers)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	var res FetchResult
	err = chromedp.Run(fetchCtx, chromedp.Evaluate(
		fmt.Sprintf(fetchScript, urlArg, headerArg),
		&res,
		func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
			return ep.WithAwaitPromise(true)
		},
	))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Close shuts Chrome down and releases the allocator.
func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancelBrowser()
	p.cancelAlloc()
	return err
}
