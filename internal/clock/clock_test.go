package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemUsesFixedOffset(t *testing.T) {
	c := System(DefaultOffsetHours)
	now := c.Now()

	_, offset := now.Zone()
	assert.Equal(t, -4*3600, offset)
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, Zone(DefaultOffsetHours))
	c := Fixed{At: at}
	assert.True(t, c.Now().Equal(at))
}

func TestSteppedClockAdvances(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, Zone(DefaultOffsetHours))
	c := &Stepped{Current: start}

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())
}

func TestUTCRoundTrip(t *testing.T) {
	local := time.Date(2025, 6, 1, 12, 0, 0, 0, Zone(DefaultOffsetHours))
	utc := ToUTC(local)
	require.Equal(t, 16, utc.Hour())

	back := FromUTC(utc, DefaultOffsetHours)
	assert.True(t, back.Equal(local))
	assert.Equal(t, 12, back.Hour())
}
