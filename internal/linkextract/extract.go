// Package linkextract finds the resume-view link inside notification email HTML.
// Sender templates vary and bodies often arrive with quoted-printable artifacts, so
// extraction runs an ordered list of matchers and the first trusted match wins.
package linkextract

import (
	"net/url"
	"strings"
)

// DefaultVendorHost is the job board's redirect/tracking host.
const DefaultVendorHost = "cts.indeed.com"

// trustedPathPrefix is the path every resume-view redirect lives under.
const trustedPathPrefix = "/v1/"

// Candidate is a normalized resume-view URL and the matcher that produced it.
type Candidate struct {
	URL      string
	Strategy string
}

// Matcher is a single link discovery strategy.
// Match returns the raw (not yet normalized) URL it found.
type Matcher interface {
	Name() string
	Match(doc string) (string, bool)
}

// Extractor applies matchers in order and gates results on the vendor host.
type Extractor struct {
	host     string
	matchers []Matcher
}

// NewExtractor creates an extractor for host. When no matchers are given the
// default strategy order is used.
func NewExtractor(host string, matchers ...Matcher) *Extractor {
	if host == "" {
		host = DefaultVendorHost
	}
	if len(matchers) == 0 {
		matchers = DefaultMatchers(host)
	}
	return &Extractor{host: strings.ToLower(host), matchers: matchers}
}

// Host returns the trusted vendor host.
func (e *Extractor) Host() string {
	return e.host
}

// Matchers returns the strategy names in evaluation order.
func (e *Extractor) Matchers() []string {
	names := make([]string, 0, len(e.matchers))
	for _, m := range e.matchers {
		names = append(names, m.Name())
	}
	return names
}

// Extract returns the first trusted candidate. A match that fails the trusted-domain
// gate is treated as absent and the next matcher is tried.
func (e *Extractor) Extract(htmlContent string) (Candidate, bool) {
	for _, m := range e.matchers {
		raw, ok := m.Match(htmlContent)
		if !ok {
			continue
		}
		normalized := Normalize(raw)
		if !e.Trusted(normalized) {
			continue
		}
		return Candidate{URL: normalized, Strategy: m.Name()}, true
	}
	return Candidate{}, false
}

// Candidates returns every distinct trusted URL in the document, in order of
// appearance. It is diagnostic only and never feeds retrieval.
func (e *Extractor) Candidates(htmlContent string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range bareURLPattern(e.host).FindAllString(htmlContent, -1) {
		normalized := Normalize(raw)
		if !e.Trusted(normalized) || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

// Trusted reports whether rawURL is an https URL on the vendor host under /v1/.
func (e *Extractor) Trusted(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "https" {
		return false
	}
	if strings.ToLower(u.Hostname()) != e.host {
		return false
	}
	return strings.HasPrefix(u.Path, trustedPathPrefix)
}

// Normalize removes quoted-printable "=3D" artifacts and escaped ampersands.
// Only "&amp;" is unescaped: full entity decoding would turn query keys such as
// "&not..." into symbols.
func Normalize(rawURL string) string {
	s := strings.ReplaceAll(rawURL, "=3D", "=")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return strings.TrimSpace(s)
}
