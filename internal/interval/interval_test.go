package interval

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.October, 12, hour, minute, 0, 0, time.UTC)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "24:00", want: MinutesPerDay},
		{in: " 7:05 ", want: 425},
		{in: "24:01", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "-1:00", wantErr: true},
		{in: "0930", wantErr: true},
		{in: "aa:bb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockJSON(t *testing.T) {
	data, err := json.Marshal(NewClock(19, 30))
	require.NoError(t, err)
	assert.JSONEq(t, `"19:30"`, string(data))

	var c Clock
	require.NoError(t, json.Unmarshal([]byte(`"06:15"`), &c))
	assert.Equal(t, NewClock(6, 15), c)
	assert.Error(t, json.Unmarshal([]byte(`615`), &c))
}

func TestClockOnUsesUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 2026-10-13 02:00 at UTC+10 is still 2026-10-12 in UTC.
	local := time.Date(2026, time.October, 13, 2, 0, 0, 0, loc)

	got := NewClock(9, 0).On(local)
	assert.Equal(t, at(9, 0), got)
}

func TestWeekStartIsSunday(t *testing.T) {
	// 2026-10-15 is a Thursday.
	got := WeekStart(time.Date(2026, time.October, 15, 18, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.October, 11, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Sunday, got.Weekday())
}

func TestOverlapsHalfOpen(t *testing.T) {
	a := Range{Start: at(10, 0), End: at(10, 30)}

	assert.True(t, a.Overlaps(Range{Start: at(10, 15), End: at(10, 45)}))
	assert.True(t, a.Overlaps(Range{Start: at(9, 0), End: at(12, 0)}))
	assert.False(t, a.Overlaps(Range{Start: at(10, 30), End: at(11, 0)}), "touching end is free")
	assert.False(t, a.Overlaps(Range{Start: at(9, 30), End: at(10, 0)}), "touching start is free")
}

func TestCoalesce(t *testing.T) {
	got := Coalesce([]Range{
		{Start: at(14, 0), End: at(16, 0)},
		{Start: at(9, 0), End: at(11, 0)},
		{Start: at(10, 0), End: at(12, 0)},
		{Start: at(12, 0), End: at(13, 0)},
		{Start: at(15, 0), End: at(15, 30)},
		{Start: at(18, 0), End: at(18, 0)},
	})

	assert.Equal(t, []Range{
		{Start: at(9, 0), End: at(13, 0)},
		{Start: at(14, 0), End: at(16, 0)},
	}, got)
	assert.Equal(t, 360, TotalMinutes(got))
	assert.Nil(t, Coalesce(nil))
}
