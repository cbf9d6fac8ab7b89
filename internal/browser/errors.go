// Package browser drives one headless browser session to fetch a resume from the job board.
package browser

import "fmt"

// LaunchError represents a failure starting or configuring the browser.
type LaunchError struct {
	Message string
	Cause   error
}

func (e *LaunchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("browser launch error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("browser launch error: %s", e.Message)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// NavigationError represents a failed or timed-out navigation.
type NavigationError struct {
	URL     string
	Timeout bool
	Cause   error
}

func (e *NavigationError) Error() string {
	what := "navigation failed"
	if e.Timeout {
		what = "navigation timed out"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s for %s: %v", what, e.URL, e.Cause)
	}
	return fmt.Sprintf("%s for %s", what, e.URL)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// BlockedError means the rendered page was an anti-automation block page.
type BlockedError struct {
	URL    string
	Marker string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked at %s: page contains %q", e.URL, e.Marker)
}

// AffordanceNotFoundError means the page rendered without the download control.
type AffordanceNotFoundError struct {
	URL       string
	PageTitle string
}

func (e *AffordanceNotFoundError) Error() string {
	return fmt.Sprintf("download button not found at %s (title %q)", e.URL, e.PageTitle)
}

// RetrievalError represents a failed in-page download.
// Status is zero when the request never produced an HTTP response.
type RetrievalError struct {
	URL        string
	Status     int
	StatusText string
	Message    string
	Cause      error
}

func (e *RetrievalError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("retrieval error for %s: HTTP %d %s", e.URL, e.Status, e.StatusText)
	case e.Cause != nil:
		return fmt.Sprintf("retrieval error for %s: %s: %v", e.URL, e.Message, e.Cause)
	default:
		return fmt.Sprintf("retrieval error for %s: %s", e.URL, e.Message)
	}
}

func (e *RetrievalError) Unwrap() error {
	return e.Cause
}
