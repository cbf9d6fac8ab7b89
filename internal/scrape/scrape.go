// Package scrape sequences link extraction, the browser session, and the artifact
// persister into a single Result per email.
package scrape

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-retriever/internal/artifact"
	"github.com/jonathan/resume-retriever/internal/browser"
	"github.com/jonathan/resume-retriever/internal/fingerprint"
	"github.com/jonathan/resume-retriever/internal/linkextract"
)

// ProfileSource supplies a fresh fingerprint per session.
type ProfileSource interface {
	NewProfile() fingerprint.Profile
}

// Retriever runs one browser session and returns the downloaded payload.
type Retriever interface {
	Retrieve(ctx context.Context, link string, profile fingerprint.Profile) (*browser.Download, error)
}

// Persister writes a downloaded payload to disk.
type Persister interface {
	Save(encoded string, id *artifact.Identity, dir string) (*artifact.Artifact, error)
}

// Recorder stores finished attempts. Errors are logged and otherwise ignored.
type Recorder interface {
	RecordResult(ctx context.Context, res Result) error
}

// Request is one email to process.
type Request struct {
	// HTML is the decoded email body.
	HTML     string
	Identity *artifact.Identity
	// Dir is the output directory; empty uses the scraper's default.
	Dir string
	// Source names the input for logs and the ledger, e.g. the .eml path.
	Source string
}

// ProgressEvent is emitted as a scrape moves through its stages.
type ProgressEvent struct {
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Source    string `json:"source,omitempty"`
}

// ProgressCallback is called for every ProgressEvent.
type ProgressCallback func(event ProgressEvent)

// Stage names used in ProgressEvent.
const (
	StageExtract  = "extract"
	StageBrowse   = "browse"
	StagePersist  = "persist"
	StageFinished = "finished"
)

// Options holds the optional collaborators of a Scraper.
type Options struct {
	Extractor  *linkextract.Extractor
	Profiles   ProfileSource
	Recorder   Recorder
	OutputDir  string
	Logger     *logrus.Logger
	OnProgress ProgressCallback
}

// Scraper is safe for concurrent use; each Scrape owns its own browser session.
type Scraper struct {
	retriever  Retriever
	persister  Persister
	extractor  *linkextract.Extractor
	profiles   ProfileSource
	recorder   Recorder
	outputDir  string
	log        *logrus.Logger
	onProgress ProgressCallback
}

// New creates a Scraper. Nil options fields use the default extractor, a
// crypto-seeded profile provider and the logrus standard logger.
func New(retriever Retriever, persister Persister, opts Options) *Scraper {
	s := &Scraper{
		retriever:  retriever,
		persister:  persister,
		extractor:  opts.Extractor,
		profiles:   opts.Profiles,
		recorder:   opts.Recorder,
		outputDir:  opts.OutputDir,
		log:        opts.Logger,
		onProgress: opts.OnProgress,
	}
	if s.extractor == nil {
		s.extractor = linkextract.NewExtractor(linkextract.DefaultVendorHost)
	}
	if s.profiles == nil {
		s.profiles = fingerprint.NewProvider()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Scrape processes one email. It never panics and never returns an error;
// every failure is reported through the Result.
func (s *Scraper) Scrape(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	res = Result{SessionID: uuid.NewString(), Source: req.Source}
	log := s.log.WithFields(logrus.Fields{"session_id": res.SessionID, "source": req.Source})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("stack", string(debug.Stack())).Errorf("Scrape panicked: %v", r)
			res.fail(KindInternal, fmt.Sprintf("internal error: %v", r), fmt.Errorf("panic: %v", r))
		}
		res.Duration = time.Since(start)
		s.finish(ctx, log, res)
	}()

	s.progress(res, StageExtract, "Searching email for resume link")
	cand, ok := s.extractor.Extract(req.HTML)
	if !ok {
		if all := s.extractor.Candidates(req.HTML); len(all) > 0 {
			log.WithField("candidates", all).Info("Trusted URLs present but none matched a strategy")
		}
		res.fail(KindLinkNotFound, "resume link not found in email", nil)
		return res
	}
	res.Link, res.Strategy = cand.URL, cand.Strategy
	log = log.WithFields(logrus.Fields{"strategy": cand.Strategy, "url": cand.URL})

	s.progress(res, StageBrowse, "Opening resume page")
	sessionCtx := browser.WithSessionID(ctx, res.SessionID)
	dl, err := s.retriever.Retrieve(sessionCtx, cand.URL, s.profiles.NewProfile())
	if err != nil {
		res.classify(err)
		return res
	}

	s.progress(res, StagePersist, "Saving resume")
	dir := req.Dir
	if dir == "" {
		dir = s.outputDir
	}
	art, err := s.persister.Save(dl.Data, req.Identity, dir)
	if err != nil {
		res.classify(err)
		if res.Kind == KindInternal {
			res.Kind, res.Outcome = KindPersistenceFailed, KindPersistenceFailed.Outcome()
		}
		return res
	}

	res.Outcome = OutcomeSuccess
	res.Filename = art.Filename
	res.Filepath = art.Filepath
	return res
}

func (s *Scraper) finish(ctx context.Context, log *logrus.Entry, res Result) {
	entry := log.WithFields(logrus.Fields{"outcome": res.Outcome, "duration": res.Duration.Round(time.Millisecond)})
	switch res.Outcome {
	case OutcomeSuccess:
		entry.WithField("file", res.Filepath).Info("Resume saved")
	case OutcomeNotFound:
		entry.WithField("kind", res.Kind).Warn(res.Reason)
	default:
		entry.WithFields(logrus.Fields{"kind": res.Kind, "retryable": res.Retryable()}).
			WithError(res.Err).Error("Scrape failed")
	}

	s.progress(res, StageFinished, string(res.Outcome))

	if s.recorder != nil {
		// The attempt is recorded even when the caller's context was cancelled.
		if err := s.recorder.RecordResult(context.WithoutCancel(ctx), res); err != nil {
			log.WithError(err).Warn("Failed to record scrape attempt")
		}
	}
}

func (s *Scraper) progress(res Result, stage, message string) {
	if s.onProgress == nil {
		return
	}
	s.onProgress(ProgressEvent{Stage: stage, Message: message, SessionID: res.SessionID, Source: res.Source})
}
