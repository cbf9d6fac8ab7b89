// Package artifact writes retrieved resumes to disk under a name derived from the applicant.
package artifact

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
)

// UnknownApplicantStem is used when either name part is missing.
const UnknownApplicantStem = "Unknown_Applicant"

const resumeSuffix = "_Resume.pdf"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

var pdfMagic = []byte("%PDF")

// Identity is the applicant a resume belongs to. Either field may be empty.
type Identity struct {
	FirstName string
	LastName  string
}

// Artifact is a file written by the persister.
type Artifact struct {
	Filename string
	Filepath string
	Size     int
}

// Error represents a failure decoding or writing an artifact. Nothing is left on
// disk when it is returned.
type Error struct {
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("artifact error for %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("artifact error for %s: %s", e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sanitize replaces every character outside [A-Za-z0-9_] with "_".
func Sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

// Stem returns the sanitized "{first}_{last}" stem, or UnknownApplicantStem.
func (id *Identity) Stem() string {
	if id == nil {
		return UnknownApplicantStem
	}
	first := strings.TrimSpace(id.FirstName)
	last := strings.TrimSpace(id.LastName)
	if first == "" || last == "" {
		return UnknownApplicantStem
	}
	return Sanitize(first + "_" + last)
}

// Filename returns "{stem}_Resume.pdf" for id.
func Filename(id *Identity) string {
	return id.Stem() + resumeSuffix
}

// Persister decodes and writes resumes.
type Persister struct {
	log *logrus.Logger
}

// NewPersister creates a persister. A nil logger uses the logrus standard logger.
func NewPersister(log *logrus.Logger) *Persister {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Persister{log: log}
}

// Save decodes the base64 payload and atomically writes it into dir.
// Writers to the same name race; the last rename wins.
func (p *Persister) Save(encoded string, id *Identity, dir string) (*Artifact, error) {
	filename := Filename(id)
	path := filepath.Join(dir, filename)

	info, err := os.Stat(dir)
	if err != nil {
		return nil, &Error{Path: path, Message: "output directory unavailable", Cause: err}
	}
	if !info.IsDir() {
		return nil, &Error{Path: path, Message: "output path is not a directory"}
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, &Error{Path: path, Message: "malformed base64 payload", Cause: err}
	}
	if len(data) == 0 {
		return nil, &Error{Path: path, Message: "empty payload"}
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		p.log.WithFields(logrus.Fields{"file": filename, "bytes": len(data)}).
			Warn("Downloaded resume does not look like a PDF")
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return nil, &Error{Path: path, Message: "failed to write file", Cause: err}
	}

	return &Artifact{Filename: filename, Filepath: path, Size: len(data)}, nil
}

// SaveSnapshot writes a rendered page for later inspection as "{name}_page.html".
func (p *Persister) SaveSnapshot(dir, name, pageHTML string) (string, error) {
	path := filepath.Join(dir, Sanitize(name)+"_page.html")
	if err := renameio.WriteFile(path, []byte(pageHTML), 0o644); err != nil {
		return "", &Error{Path: path, Message: "failed to write page snapshot", Cause: err}
	}
	return path, nil
}
