package scrape

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/resume-retriever/internal/artifact"
	"github.com/jonathan/resume-retriever/internal/browser"
)

// Outcome is the coarse result a caller branches on.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailure  Outcome = "failure"
)

// Kind identifies why a scrape did not succeed.
type Kind string

const (
	KindNone               Kind = ""
	KindLinkNotFound       Kind = "LinkNotFound"
	KindBlocked            Kind = "Blocked"
	KindNavigationTimeout  Kind = "NavigationTimeout"
	KindNavigationFailed   Kind = "NavigationFailed"
	KindAffordanceNotFound Kind = "AffordanceNotFound"
	KindRetrievalFailed    Kind = "RetrievalFailed"
	KindPersistenceFailed  Kind = "PersistenceFailed"
	KindInternal           Kind = "Internal"
)

// Outcome returns the outcome a failure of this kind is reported as.
func (k Kind) Outcome() Outcome {
	switch k {
	case KindNone:
		return OutcomeSuccess
	case KindLinkNotFound, KindAffordanceNotFound:
		return OutcomeNotFound
	case KindBlocked:
		return OutcomeBlocked
	default:
		return OutcomeFailure
	}
}

// Result is the outcome of one scrape. Filename and Filepath are set only on success.
type Result struct {
	Outcome    Outcome       `json:"outcome"`
	Kind       Kind          `json:"kind,omitempty"`
	Filename   string        `json:"filename,omitempty"`
	Filepath   string        `json:"filepath,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Status     int           `json:"status,omitempty"`
	StatusText string        `json:"status_text,omitempty"`
	SessionID  string        `json:"session_id"`
	Source     string        `json:"source,omitempty"`
	Link       string        `json:"link,omitempty"`
	Strategy   string        `json:"strategy,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// Succeeded reports whether a file was written.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Retryable reports whether retrying the same email later may succeed.
// Blocks are never retryable here; repeated automated retries are themselves a signal.
func (r Result) Retryable() bool {
	switch r.Kind {
	case KindNavigationTimeout, KindNavigationFailed, KindRetrievalFailed:
		return true
	default:
		return false
	}
}

// fail sets the failure fields of r from kind and err.
func (r *Result) fail(kind Kind, reason string, err error) {
	r.Outcome = kind.Outcome()
	r.Kind = kind
	r.Reason = reason
	r.Err = err
	r.Filename = ""
	r.Filepath = ""
}

// classify maps an error from retrieval or persistence onto the result.
func (r *Result) classify(err error) {
	var (
		blocked    *browser.BlockedError
		affordance *browser.AffordanceNotFoundError
		nav        *browser.NavigationError
		retrieval  *browser.RetrievalError
		launch     *browser.LaunchError
		persist    *artifact.Error
	)

	switch {
	case errors.As(err, &blocked):
		r.fail(KindBlocked, blocked.Marker, err)
	case errors.As(err, &affordance):
		r.fail(KindAffordanceNotFound, "download button not found", err)
	case errors.As(err, &nav):
		if nav.Timeout {
			r.fail(KindNavigationTimeout, "navigation timed out", err)
		} else {
			r.fail(KindNavigationFailed, "navigation failed", err)
		}
	case errors.As(err, &retrieval):
		reason := retrieval.Message
		if retrieval.Status != 0 {
			reason = fmt.Sprintf("HTTP %d %s", retrieval.Status, retrieval.StatusText)
		}
		r.fail(KindRetrievalFailed, reason, err)
		r.Status = retrieval.Status
		r.StatusText = retrieval.StatusText
	case errors.As(err, &persist):
		r.fail(KindPersistenceFailed, persist.Message, err)
	case errors.As(err, &launch):
		r.fail(KindInternal, launch.Message, err)
	default:
		r.fail(KindInternal, err.Error(), err)
	}
}
