package clock

import "time"

// The roster runs on a single fixed wall-clock offset with no DST.
// Every timestamp in the system is a naive local time from this clock;
// no component reads OS time directly.

const DefaultOffsetHours = -4

// Clock is the injectable time source.
type Clock interface {
	Now() time.Time
}

// Zone builds the fixed-offset location used for all wall-clock values.
func Zone(offsetHours int) *time.Location {
	return time.FixedZone("roster", offsetHours*3600)
}

type systemClock struct {
	loc *time.Location
}

// System returns a Clock pinned to the given UTC offset.
func System(offsetHours int) Clock {
	return &systemClock{loc: Zone(offsetHours)}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Fixed is a Clock frozen at a single instant, for deterministic tests.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }

// Stepped is a mutable test Clock whose instant can be advanced.
type Stepped struct {
	Current time.Time
}

func (s *Stepped) Now() time.Time { return s.Current }

// Advance moves the stepped clock forward.
func (s *Stepped) Advance(d time.Duration) { s.Current = s.Current.Add(d) }

// ToUTC converts a local wall-clock value to UTC for audit fields.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// FromUTC renders a UTC instant in the roster wall clock.
func FromUTC(t time.Time, offsetHours int) time.Time {
	return t.In(Zone(offsetHours))
}
