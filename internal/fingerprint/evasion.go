package fingerprint

import (
	"encoding/json"
	"fmt"
	mrand "math/rand/v2"
	"time"
)

// Override is one navigator property patch applied before any page script runs.
// Delete removes the property from the navigator prototype instead of redefining it.
type Override struct {
	Property string `json:"property"`
	Value    any    `json:"value,omitempty"`
	Delete   bool   `json:"delete,omitempty"`
}

// Overrides returns the evasion patches for p.
func Overrides(p Profile) []Override {
	return []Override{
		{Property: "webdriver", Delete: true},
		{Property: "languages", Value: p.Languages},
		{Property: "plugins", Value: p.Plugins},
		{Property: "platform", Value: p.Platform},
	}
}

const scriptTemplate = `(() => {
  const overrides = %s;
  const proto = Object.getPrototypeOf(navigator);
  for (const o of overrides) {
    if (o.delete) {
      try { delete proto[o.property]; } catch (e) {}
      continue;
    }
    const value = o.value;
    try {
      Object.defineProperty(navigator, o.property, { get: () => value, configurable: true });
    } catch (e) {}
  }
})();`

// Script renders overrides into a single init script.
func Script(overrides []Override) (string, error) {
	data, err := json.Marshal(overrides)
	if err != nil {
		return "", fmt.Errorf("failed to encode overrides: %w", err)
	}
	return fmt.Sprintf(scriptTemplate, data), nil
}

// EvasionScript is Script(Overrides(p)).
func EvasionScript(p Profile) (string, error) {
	return Script(Overrides(p))
}

// Delay is a jitter range [Min, Max).
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// Human-like pauses around navigation.
var (
	PreNavigationDelay = Delay{Min: 1 * time.Second, Max: 3 * time.Second}
	DwellDelay         = Delay{Min: 2 * time.Second, Max: 5 * time.Second}
)

// Pick draws a duration in [d.Min, d.Max).
func (d Delay) Pick(r *mrand.Rand) time.Duration {
	span := d.Max - d.Min
	if span <= 0 {
		return d.Min
	}
	return d.Min + time.Duration(r.Int64N(int64(span)))
}
