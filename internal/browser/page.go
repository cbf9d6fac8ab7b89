package browser

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/resume-retriever/internal/fingerprint"
)

// DownloadButtonTestID identifies the download control on the resume page.
// This couples to the vendor's current markup.
const DownloadButtonTestID = "header-download-resume-button"

// BlockMarkers are literal substrings of the vendor's block pages.
var BlockMarkers = []string{
	"Request Blocked",
	"You have been blocked",
}

// Launcher starts a browser configured for a profile and returns its only page.
type Launcher interface {
	Launch(ctx context.Context, profile fingerprint.Profile, evasionScript string) (Page, error)
}

// Page is the single tab of a launched browser. Close terminates the browser process.
type Page interface {
	Navigate(url string, timeout time.Duration) (*Navigation, error)
	HTML() (string, error)
	Cookies() ([]Cookie, error)
	Fetch(url string, headers map[string]string, timeout time.Duration) (*FetchResult, error)
	Close() error
}

// Navigation describes where a navigation landed.
type Navigation struct {
	URL    string
	Status int
}

// Cookie is a name/value pair from the session's jar.
type Cookie struct {
	Name  string
	Value string
}

// FetchResult is the outcome of an in-page fetch. Data is base64 encoded.
type FetchResult struct {
	OK         bool   `json:"ok"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Data       string `json:"data"`
	Error      string `json:"error"`
}

// DetectBlock returns the first block marker found in pageHTML, or "".
func DetectBlock(pageHTML string) string {
	for _, marker := range BlockMarkers {
		if strings.Contains(pageHTML, marker) {
			return marker
		}
	}
	return ""
}

// FindDownloadHref returns the href of the download control.
func FindDownloadHref(pageHTML string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", false
	}
	sel := doc.Find(`[data-testid="` + DownloadButtonTestID + `"][href]`).First()
	href, _ := sel.Attr("href")
	href = strings.TrimSpace(href)
	return href, href != ""
}

// PageTitle returns the document title, used to describe unexpected pages in logs.
func PageTitle(pageHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// CookieHeader joins cookies into a Cookie header value.
func CookieHeader(cookies []Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
