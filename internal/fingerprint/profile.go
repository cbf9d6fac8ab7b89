// Package fingerprint generates the browser identity used by one scrape session.
package fingerprint

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"strings"
)

// Viewport and language defaults shared by every profile.
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultScaleFactor    = 1.0

	// PluginCount is the number of fake plugin descriptors exposed to the page.
	PluginCount = 5
)

// DefaultLanguages is reported as navigator.languages. A single language is itself
// a bot signal, so it always lists several.
var DefaultLanguages = []string{"en-US", "en", "es"}

// Plugin is one fake navigator.plugins entry.
type Plugin struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	Length      int    `json:"length"`
}

// Profile is a randomized, internally consistent browser identity.
type Profile struct {
	UserAgent         string
	Platform          string
	ViewportWidth     int
	ViewportHeight    int
	DeviceScaleFactor float64
	Languages         []string
	Plugins           []Plugin

	// Seed drives the session's delay jitter.
	Seed uint64
}

// AcceptLanguage renders Languages as an Accept-Language header value.
func (p Profile) AcceptLanguage() string {
	parts := make([]string, 0, len(p.Languages))
	for i, lang := range p.Languages {
		if i == 0 {
			parts = append(parts, lang)
			continue
		}
		q := 1.0 - 0.1*float64(i)
		if q < 0.1 {
			q = 0.1
		}
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", lang, q))
	}
	return strings.Join(parts, ",")
}

// Rand returns a generator seeded from the profile. Each call starts the same sequence.
func (p Profile) Rand() *mrand.Rand {
	return mrand.New(mrand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
}

// agent is a desktop user agent template and the navigator.platform that matches it.
// Only Chrome agents are listed since the engine underneath is Chromium.
type agent struct {
	template string
	platform string
}

var desktopAgents = []agent{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36", "Win32"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36", "MacIntel"},
	{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36", "Linux x86_64"},
}

const (
	minChromeMajor = 128
	maxChromeMajor = 138
)

// Provider produces fresh profiles.
type Provider struct {
	entropy io.Reader
}

// NewProvider returns a provider seeded from crypto/rand.
func NewProvider() *Provider {
	return &Provider{entropy: rand.Reader}
}

// NewProviderWithEntropy returns a provider seeded from r. Tests use a fixed reader.
func NewProviderWithEntropy(r io.Reader) *Provider {
	return &Provider{entropy: r}
}

// NewProfile generates a profile. If the entropy source fails it returns
// FallbackProfile rather than an error.
func (p *Provider) NewProfile() Profile {
	var seed [16]byte
	if p.entropy == nil {
		return FallbackProfile()
	}
	if _, err := io.ReadFull(p.entropy, seed[:]); err != nil {
		return FallbackProfile()
	}
	r := mrand.New(mrand.NewPCG(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:])))

	a := desktopAgents[r.IntN(len(desktopAgents))]
	major := minChromeMajor + r.IntN(maxChromeMajor-minChromeMajor+1)

	return Profile{
		UserAgent:         fmt.Sprintf(a.template, major),
		Platform:          a.platform,
		ViewportWidth:     DefaultViewportWidth,
		ViewportHeight:    DefaultViewportHeight,
		DeviceScaleFactor: DefaultScaleFactor,
		Languages:         append([]string(nil), DefaultLanguages...),
		Plugins:           randomPlugins(r, PluginCount),
		Seed:              r.Uint64(),
	}
}

// FallbackProfile is a fixed plausible identity.
func FallbackProfile() Profile {
	a := desktopAgents[0]
	return Profile{
		UserAgent:         fmt.Sprintf(a.template, 134),
		Platform:          a.platform,
		ViewportWidth:     DefaultViewportWidth,
		ViewportHeight:    DefaultViewportHeight,
		DeviceScaleFactor: DefaultScaleFactor,
		Languages:         append([]string(nil), DefaultLanguages...),
		Plugins: []Plugin{
			{Name: "PDF Viewer", Description: "Portable Document Format", Filename: "internal-pdf-viewer", Length: 2},
			{Name: "Chrome PDF Viewer", Description: "Portable Document Format", Filename: "internal-pdf-viewer", Length: 2},
			{Name: "Chromium PDF Viewer", Description: "Portable Document Format", Filename: "internal-pdf-viewer", Length: 2},
			{Name: "Microsoft Edge PDF Viewer", Description: "Portable Document Format", Filename: "internal-pdf-viewer", Length: 2},
			{Name: "WebKit built-in PDF", Description: "Portable Document Format", Filename: "internal-pdf-viewer", Length: 2},
		},
		Seed: 0x5eed,
	}
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomPlugins(r *mrand.Rand, n int) []Plugin {
	plugins := make([]Plugin, n)
	for i := range plugins {
		plugins[i] = Plugin{
			Name:        randomToken(r, 6+r.IntN(4)),
			Description: randomToken(r, 6+r.IntN(4)),
			Filename:    randomToken(r, 6+r.IntN(4)),
			Length:      1 + r.IntN(10),
		}
	}
	return plugins
}

func randomToken(r *mrand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = tokenAlphabet[r.IntN(len(tokenAlphabet))]
	}
	return string(b)
}
