package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultZone is the timezone all reservation times are compared in.
const DefaultZone = "Asia/Manila"

// Clock supplies the current time normalized to a fixed timezone. It is
// injected everywhere a time comparison happens so tests can pin the clock.
type Clock interface {
	Now() time.Time
}

type zoneClock struct {
	inner clockwork.Clock
	loc   *time.Location
}

func (c zoneClock) Now() time.Time {
	return c.inner.Now().In(c.loc)
}

// In wraps any clockwork clock so that Now always reports in loc.
func In(inner clockwork.Clock, loc *time.Location) Clock {
	return zoneClock{inner: inner, loc: loc}
}

// System returns the wall clock normalized to loc.
func System(loc *time.Location) Clock {
	return In(clockwork.NewRealClock(), loc)
}

// LoadZone resolves an IANA zone name, falling back to DefaultZone when name
// is empty.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	return time.LoadLocation(name)
}
