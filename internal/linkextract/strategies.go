package linkextract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy names, in default evaluation order.
const (
	StrategyAnchor      = "anchor"
	StrategyEncodedHref = "encoded-href"
	StrategyBareURL     = "bare-url"
	StrategyProximity   = "proximity"
)

// linkText is the visible label of the resume-view button in notification emails.
const linkText = "view resume"

// ProximityWindow is how many bytes before and after the link text are searched for an href.
const ProximityWindow = 150

var (
	linkTextPattern = regexp.MustCompile(`(?i)view resume`)
	anyHrefPattern  = regexp.MustCompile(`(?i)href="([^"]+)"`)
)

// DefaultMatchers returns the standard strategy order for host.
func DefaultMatchers(host string) []Matcher {
	return []Matcher{
		&AnchorMatcher{Host: host},
		&EncodedHrefMatcher{Host: host},
		&BareURLMatcher{Host: host},
		&ProximityMatcher{Window: ProximityWindow},
	}
}

func trustedPrefixPattern(host string) string {
	return `https://` + regexp.QuoteMeta(strings.ToLower(host)) + `/v1/`
}

func bareURLPattern(host string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + trustedPrefixPattern(host) + `[^"'\s<>]+`)
}

// AnchorMatcher finds an <a> whose href is on the trusted pattern and whose text
// begins with "View resume".
type AnchorMatcher struct {
	Host string
}

// Name implements Matcher.
func (m *AnchorMatcher) Name() string { return StrategyAnchor }

// Match implements Matcher.
func (m *AnchorMatcher) Match(doc string) (string, bool) {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", false
	}
	hrefPattern := regexp.MustCompile(`(?i)^` + trustedPrefixPattern(m.Host))

	var found string
	parsed.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !hrefPattern.MatchString(href) {
			return true
		}
		text := strings.ToLower(strings.Join(strings.Fields(s.Text()), " "))
		if !strings.HasPrefix(text, linkText) {
			return true
		}
		found = href
		return false
	})
	return found, found != ""
}

// EncodedHrefMatcher recovers hrefs whose "=" survived as the quoted-printable "=3D".
type EncodedHrefMatcher struct {
	Host string
}

// Name implements Matcher.
func (m *EncodedHrefMatcher) Name() string { return StrategyEncodedHref }

// Match implements Matcher.
func (m *EncodedHrefMatcher) Match(doc string) (string, bool) {
	re := regexp.MustCompile(`(?i)href=3D"(` + trustedPrefixPattern(m.Host) + `[^"]+)"`)
	match := re.FindStringSubmatch(doc)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// BareURLMatcher returns the first trusted URL anywhere in the document.
type BareURLMatcher struct {
	Host string
}

// Name implements Matcher.
func (m *BareURLMatcher) Name() string { return StrategyBareURL }

// Match implements Matcher.
func (m *BareURLMatcher) Match(doc string) (string, bool) {
	found := bareURLPattern(m.Host).FindString(doc)
	return found, found != ""
}

// ProximityMatcher looks for any href near the first "View resume" text. It does not
// check the host itself; the extractor's trusted-domain gate does.
type ProximityMatcher struct {
	Window int
}

// Name implements Matcher.
func (m *ProximityMatcher) Name() string { return StrategyProximity }

// Match implements Matcher.
func (m *ProximityMatcher) Match(doc string) (string, bool) {
	loc := linkTextPattern.FindStringIndex(doc)
	if loc == nil {
		return "", false
	}
	start := max(0, loc[0]-m.Window)
	end := min(len(doc), loc[0]+m.Window)

	match := anyHrefPattern.FindStringSubmatch(doc[start:end])
	if match == nil {
		return "", false
	}
	return match[1], true
}
