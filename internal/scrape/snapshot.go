package scrape

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/resume-retriever/internal/artifact"
	"github.com/jonathan/resume-retriever/internal/browser"
)

// SnapshotWriter stores rendered pages for debugging.
type SnapshotWriter interface {
	SaveSnapshot(dir, name, pageHTML string) (string, error)
}

// SnapshotHook returns a browser.SnapshotFunc that writes every rendered page to
// dir as "<session>_page.html". It returns nil when dir is empty.
func SnapshotHook(w SnapshotWriter, dir string, log *logrus.Logger) browser.SnapshotFunc {
	if dir == "" || w == nil {
		return nil
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(ctx context.Context, pageURL, pageHTML string) {
		name := browser.SessionID(ctx)
		if name == "" {
			name = "session"
		}
		path, err := w.SaveSnapshot(dir, name, pageHTML)
		if err != nil {
			log.WithError(err).WithField("url", pageURL).Warn("Failed to save page snapshot")
			return
		}
		log.WithFields(logrus.Fields{"url": pageURL, "snapshot": path}).Debug("Saved page snapshot")
	}
}

var _ SnapshotWriter = (*artifact.Persister)(nil)
