package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want Clock
	}{
		{"09:30", 570},
		{" 18:05 ", 1085},
		{"9", 540},
		{"", 0},
		{"garbage", 0},
		{"ab:15", 15},
		{"23:59", 1439},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ParseClock(c.in), "ParseClock(%q)", c.in)
	}
}

func TestClockStringWrapsPastMidnight(t *testing.T) {
	assert.Equal(t, "00:00", Clock(0).String())
	assert.Equal(t, "10:15", Clock(615).String())
	assert.Equal(t, "01:30", Clock(MinutesPerDay+90).String())
	assert.Equal(t, 1, Clock(MinutesPerDay+90).Hour())
}

func TestClockTextRoundTrip(t *testing.T) {
	var c Clock
	assert.NoError(t, c.UnmarshalText([]byte("21:45")))
	b, err := c.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "21:45", string(b))
}

func TestClockTextKeepsDayOffset(t *testing.T) {
	b, err := Clock(MinutesPerDay + 75).MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "25:15", string(b))

	var c Clock
	assert.NoError(t, c.UnmarshalText(b))
	assert.Equal(t, Clock(MinutesPerDay+75), c)
}
