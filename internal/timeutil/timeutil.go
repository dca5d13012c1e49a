// Package timeutil centralizes timestamp formatting and the fixed
// dashboard timezone. All calendar math is done against one
// configured zone, never the host's local zone.
package timeutil

import "time"

// DefaultZone is the timezone the dashboard reports in.
const DefaultZone = "America/Sao_Paulo"

// Format renders t as RFC3339 UTC with millisecond precision.
// The zero time renders as "".
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.999Z07:00")
}

// Ptr returns Format(t) as a *string, or nil for the zero time.
// Useful for nullable JSON fields.
func Ptr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := Format(t)
	return &s
}

// Clock converts instants to civil dates and hours in one fixed
// timezone. The now func is replaceable for tests.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a Clock for the named IANA zone.
func NewClock(zone string) (*Clock, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewClockAt creates a Clock with a fixed now func, for tests.
func NewClockAt(zone string, now func() time.Time) (*Clock, error) {
	c, err := NewClock(zone)
	if err != nil {
		return nil, err
	}
	c.now = now
	return c, nil
}

// Now returns the current instant in the clock's zone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Location returns the clock's timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// LocalDate returns t as a YYYY-MM-DD string in the clock's zone.
// The zero time returns "" so a bad row can never take down a
// dashboard tile.
func (c *Clock) LocalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(c.loc).Format("2006-01-02")
}

// LocalHour returns the hour of day (0-23) of t in the clock's
// zone, or 0 for the zero time.
func (c *Clock) LocalHour(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	return t.In(c.loc).Hour()
}
