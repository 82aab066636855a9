package feedback

import (
	"fmt"
	"math"
	"strings"
)

// Style is a named impact preset. The set is closed.
type Style uint8

const (
	Light Style = iota
	Medium
	Heavy
	Soft
	Rigid

	numStyles
)

var styleNames = [numStyles]string{
	Light:  "light",
	Medium: "medium",
	Heavy:  "heavy",
	Soft:   "soft",
	Rigid:  "rigid",
}

// Styles returns all declared styles in declaration order.
func Styles() []Style {
	out := make([]Style, 0, numStyles)
	for s := Style(0); s < numStyles; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s is one of the declared styles.
func (s Style) Valid() bool { return s < numStyles }

func (s Style) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Style(%d)", uint8(s))
	}
	return styleNames[s]
}

// ParseStyle parses a style name (case-insensitive, surrounding whitespace ignored).
func ParseStyle(name string) (Style, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for s := Style(0); s < numStyles; s++ {
		if styleNames[s] == n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

func (s Style) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DefaultIntensity is the intensity used by Session.Impact.
const DefaultIntensity = 1.0

// ClampIntensity maps any float64 into [0, 1].
//
// Values below 0 become 0, values above 1 become 1, and NaN becomes 0.
func ClampIntensity(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}
