package claims

import (
	"errors"
	"fmt"
	"time"
)

// ExpiryCustom selects CustomMinutes instead of a preset offset
const ExpiryCustom int64 = -1

// DefaultExpiry is used when no usable offset is given
const DefaultExpiry = time.Hour

// MaxExpiry is the largest offset exp can be set to
const MaxExpiry = 10 * 365 * 24 * time.Hour

// MaxCustomMinutes is MaxExpiry in minutes
const MaxCustomMinutes = int64(MaxExpiry / time.Minute)

const maxExpirySeconds = int64(MaxExpiry / time.Second)

var ErrExpiryOutOfRange = errors.New("expiry out of range")

// Expiry describes how far in the future exp is set
type Expiry struct {
	Offset        int64 // Seconds, one of the presets or ExpiryCustom
	CustomMinutes int64 // Used when Offset is ExpiryCustom
}

// Seconds resolves the expiry to a number of seconds. A custom expiry with no
// positive minute count and any other non-positive offset fall back to one hour.
// Offsets above MaxExpiry are capped.
func (e Expiry) Seconds() int64 {
	fallback := int64(DefaultExpiry / time.Second)
	switch {
	case e.Offset == ExpiryCustom:
		if e.CustomMinutes <= 0 {
			return fallback
		}
		return min(e.CustomMinutes, MaxCustomMinutes) * 60
	case e.Offset > 0:
		return min(e.Offset, maxExpirySeconds)
	default:
		return fallback
	}
}

// Validate rejects values Seconds would replace or cap: negative offsets other
// than ExpiryCustom, negative minute counts and anything beyond MaxExpiry.
// Zero is accepted and means the default.
func (e Expiry) Validate() error {
	switch {
	case e.Offset == ExpiryCustom:
		if e.CustomMinutes < 0 || e.CustomMinutes > MaxCustomMinutes {
			return fmt.Errorf("%w: custom minutes %d not in [0, %d]", ErrExpiryOutOfRange, e.CustomMinutes, MaxCustomMinutes)
		}
	case e.Offset < 0 || e.Offset > maxExpirySeconds:
		return fmt.Errorf("%w: offset %d not in [0, %d] seconds", ErrExpiryOutOfRange, e.Offset, maxExpirySeconds)
	case e.CustomMinutes < 0 || e.CustomMinutes > MaxCustomMinutes:
		return fmt.Errorf("%w: custom minutes %d not in [0, %d]", ErrExpiryOutOfRange, e.CustomMinutes, MaxCustomMinutes)
	}
	return nil
}

// Duration returns Seconds as a time.Duration
func (e Expiry) Duration() time.Duration {
	return time.Duration(e.Seconds()) * time.Second
}

func (e Expiry) String() string {
	if e.Offset == ExpiryCustom {
		return fmt.Sprintf("custom (%d minutes)", e.CustomMinutes)
	}
	for _, p := range presets {
		if p.Offset == e.Offset {
			return p.Label
		}
	}
	return e.Duration().String()
}

// Preset is a selectable expiry offset
type Preset struct {
	Label  string
	Offset int64
}

var presets = []Preset{
	{"5 minutes", 300},
	{"15 minutes", 900},
	{"1 hour", 3600},
	{"6 hours", 21600},
	{"1 day", 86400},
	{"Custom", ExpiryCustom},
}

// Presets returns the selectable expiry offsets, Custom last
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// IsPreset reports whether offset is one of the preset values, Custom included
func IsPreset(offset int64) bool {
	for _, p := range presets {
		if p.Offset == offset {
			return true
		}
	}
	return false
}
