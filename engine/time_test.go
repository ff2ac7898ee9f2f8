package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tally/engine"
)

func TestParseTimePoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-01-15", "2025-01-15"},
		{"2025-01-15 10:30", "2025-01-15 10:30"},
		{"2025-01-15 10:30:59", "2025-01-15 10:30"},
		{"2025-01-15T10:30", "2025-01-15 10:30"},
		{"2025-01-15T23:30:00+05:30", "2025-01-15 23:30"},
		{"15-Jan-2025", "2025-01-15"},
		{" 15-Jan-2025 08:05 ", "2025-01-15 08:05"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tp, err := engine.ParseTimePoint(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tp.String())
		})
	}

	_, err := engine.ParseTimePoint("2025/01/15")
	assert.Error(t, err)
}

func TestTimePoint_DateStripsTime(t *testing.T) {
	ts := engine.NewTimestamp(2025, time.January, 15, 23, 59)
	day := engine.NewTimePoint(2025, time.January, 15)

	assert.True(t, ts.Date().Equal(day))
	assert.True(t, ts.After(day))
	assert.True(t, day.AddDays(1).After(ts))
	assert.True(t, day.BeforeOrEqual(ts.Date()))
}
