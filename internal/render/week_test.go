package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWeek() *model.WeekSchedule {
	start := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)
	week := &model.WeekSchedule{WeekStart: start}
	for i := 0; i < 7; i++ {
		week.Days = append(week.Days, model.DaySchedule{Date: start.AddDate(0, 0, i)})
	}

	monday := start.AddDate(0, 0, 1)
	week.Days[1].Windows = []interval.Range{
		{Start: monday.Add(9 * time.Hour), End: monday.Add(12 * time.Hour)},
		{Start: monday.Add(14 * time.Hour), End: monday.Add(18 * time.Hour)},
	}
	week.Days[1].Bookings = []*model.Booking{
		{ID: 1, ClientID: 42, ScheduledStart: monday.Add(10 * time.Hour), DurationMinutes: 60, Status: model.BookingStatusScheduled},
	}
	week.Days[3].Blocked = true
	return week
}

func TestWeekPNGDecodes(t *testing.T) {
	week := sampleWeek()

	data, err := WeekPNG(week, week.WeekStart.AddDate(0, 0, 1).Add(11*time.Hour))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestWeekPNGRejectsEmptyWeek(t *testing.T) {
	_, err := WeekPNG(nil, time.Now())
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = WeekPNG(&model.WeekSchedule{}, time.Now())
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestCalculateHourRange(t *testing.T) {
	hours := calculateHourRange(sampleWeek())
	assert.Equal(t, 8, hours.start)
	assert.Equal(t, 19, hours.end)
	assert.Equal(t, 11, hours.total)

	empty := &model.WeekSchedule{Days: []model.DaySchedule{{Date: time.Now()}}}
	hours = calculateHourRange(empty)
	assert.Equal(t, defaultMinHour-hourPaddingTop, hours.start)
	assert.Equal(t, defaultMaxHour+hourPaddingBot, hours.end)
}
