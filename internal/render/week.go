package render

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Layout
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 120
	dayPaddingX      = 8
	minBlockHeight   = 8.0
	blockRadius      = 6.0
	shadowOffset     = 3.0
	totalDaysInWeek  = 7
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultMinHour   = 8
	defaultMaxHour   = 20
	bookingInsetX    = 14.0
	labelInsetY      = 18.0
	maxLabelRuneSize = 18
)

var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	windowColor       = color.RGBA{133, 193, 85, 220}
	bookedColor       = color.RGBA{255, 182, 193, 255}
	blockedColor      = color.RGBA{158, 158, 158, 200}
	blockTextColor    = color.RGBA{20, 24, 28, 230}
	bookedTextColor   = color.RGBA{120, 40, 50, 255}
	blockShadowColor  = color.RGBA{0, 0, 0, 20}
	legendItemColor   = color.RGBA{70, 74, 78, 220}
	blockedHatchColor = color.NRGBA{120, 120, 120, 90}
)

type hourRange struct {
	start int
	end   int
	total int
}

type canvas struct {
	dc         *gg.Context
	hours      hourRange
	dayWidth   int
	dayHeight  int
	cellHeight float64
}

// WeekPNG draws a coach's week: open windows in green, scheduled bookings on top of
// them and exception days greyed out. now marks today and the current time line.
func WeekPNG(week *model.WeekSchedule, now time.Time) ([]byte, error) {
	if week == nil || len(week.Days) == 0 {
		return nil, fmt.Errorf("render week: %w", model.ErrInvalidInput)
	}

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	hours := calculateHourRange(week)
	c := &canvas{
		dc:        dc,
		hours:     hours,
		dayWidth:  (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek,
		dayHeight: imageHeight - headerHeight,
	}
	c.cellHeight = float64(c.dayHeight) / float64(hours.total)

	today := interval.Day(now)
	todayIndex := -1

	c.drawHeader(week)
	c.drawHourLabels()
	for i, day := range week.Days {
		if i >= totalDaysInWeek {
			break
		}
		isToday := day.Date.Equal(today)
		if isToday {
			todayIndex = i
		}
		c.drawDay(i, day, isToday)
	}
	if todayIndex >= 0 {
		c.drawCurrentTimeLine(now.UTC())
	}
	c.drawLegend()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// calculateHourRange fits the grid to the earliest window or booking and the latest
// end, padded by an hour on each side.
func calculateHourRange(week *model.WeekSchedule) hourRange {
	minHour, maxHour := 24, 0
	widen := func(start, end time.Time, day time.Time) {
		startH := int(start.Sub(day) / time.Hour)
		endMin := int(end.Sub(day) / time.Minute)
		endH := (endMin + 59) / 60
		minHour = min(minHour, startH)
		maxHour = max(maxHour, endH)
	}

	for _, day := range week.Days {
		if !day.Blocked {
			for _, w := range day.Windows {
				widen(w.Start, w.End, day.Date)
			}
		}
		for _, b := range day.Bookings {
			widen(b.ScheduledStart, b.ScheduledEnd(), day.Date)
		}
	}

	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	start := max(0, minHour-hourPaddingTop)
	end := min(24, maxHour+hourPaddingBot)
	if end <= start {
		end = start + 1
	}
	return hourRange{start: start, end: end, total: end - start}
}

func (c *canvas) drawHeader(week *model.WeekSchedule) {
	first := week.Days[0].Date
	last := week.Days[len(week.Days)-1].Date

	title := first.Format("January 2006")
	if first.Month() != last.Month() {
		title = first.Format("January") + " - " + last.Format("January 2006")
	}

	c.dc.SetColor(textColor)
	c.dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/4, 0, 0.5)
}

func (c *canvas) drawHourLabels() {
	c.dc.SetColor(hourLabelColor)
	for i := 0; i <= c.hours.total; i++ {
		y := float64(headerHeight) + float64(i)*c.cellHeight
		label := interval.NewClock(c.hours.start+i, 0).String()
		c.dc.DrawStringAnchored(label, float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func (c *canvas) drawDay(index int, day model.DaySchedule, isToday bool) {
	dc := c.dc
	x := float64(leftLabelsWidth + index*c.dayWidth)
	y := float64(headerHeight)
	w := float64(c.dayWidth)

	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case index%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, w, float64(c.dayHeight))
	dc.Fill()

	dc.SetColor(textColor)
	dc.DrawStringAnchored(day.Date.Format("02.01"), x+w/2, y-30, 0.5, 0.5)
	dc.DrawStringAnchored(day.Date.Format("Mon"), x+w/2, y-14, 0.5, 0.5)

	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)
	for i := 0; i <= c.hours.total; i++ {
		hy := y + float64(i)*c.cellHeight
		dc.DrawLine(x, hy, x+w, hy)
		dc.Stroke()
	}

	if day.Blocked {
		c.drawBlocked(x, y, w)
	} else {
		for _, win := range day.Windows {
			label := interval.NewClock(0, int(win.Start.Sub(day.Date)/time.Minute)).String()
			c.drawBlock(day.Date, win.Start, win.End, x+dayPaddingX, w-2*dayPaddingX, windowColor, blockTextColor, label)
		}
	}

	for _, b := range day.Bookings {
		label := fmt.Sprintf("%s #%d", b.ScheduledStart.Format("15:04"), b.ClientID)
		c.drawBlock(day.Date, b.ScheduledStart, b.ScheduledEnd(), x+bookingInsetX, w-2*bookingInsetX, bookedColor, bookedTextColor, label)
	}
}

func (c *canvas) drawBlocked(x, y, w float64) {
	dc := c.dc
	dc.SetColor(blockedColor)
	dc.DrawRectangle(x+dayPaddingX, y, w-2*dayPaddingX, float64(c.dayHeight))
	dc.Fill()

	dc.SetColor(blockedHatchColor)
	dc.SetLineWidth(1)
	for hy := y; hy < y+float64(c.dayHeight); hy += 24 {
		dc.DrawLine(x+dayPaddingX, hy, x+w-dayPaddingX, hy+24)
		dc.Stroke()
	}
}

func (c *canvas) drawBlock(day, start, end time.Time, x, width float64, fill, text color.RGBA, label string) {
	dc := c.dc
	startHour := start.Sub(day).Hours()
	endHour := end.Sub(day).Hours()

	blockY := float64(headerHeight) + (startHour-float64(c.hours.start))*c.cellHeight
	height := max((endHour-startHour)*c.cellHeight, minBlockHeight)

	dc.SetColor(blockShadowColor)
	dc.DrawRoundedRectangle(x+shadowOffset, blockY+2+shadowOffset, width, height-4, blockRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x, blockY+2, width, height-4, blockRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, blockY+2, width, height-4, blockRadius)
	dc.Stroke()

	if height > 20 {
		if r := []rune(label); len(r) > maxLabelRuneSize {
			label = string(r[:maxLabelRuneSize-3]) + "..."
		}
		dc.SetColor(text)
		dc.DrawStringAnchored(label, x+6, blockY+labelInsetY, 0, 0)
	}
}

func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func (c *canvas) drawCurrentTimeLine(now time.Time) {
	hour := now.Sub(interval.Day(now)).Hours()
	if hour < float64(c.hours.start) || hour > float64(c.hours.end) {
		return
	}

	y := float64(headerHeight) + (hour-float64(c.hours.start))*c.cellHeight
	c.dc.SetColor(currentTimeColor)
	c.dc.SetLineWidth(2.0)
	c.dc.DrawLine(float64(leftLabelsWidth), y, float64(leftLabelsWidth+totalDaysInWeek*c.dayWidth), y)
	c.dc.Stroke()
}

func (c *canvas) drawLegend() {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Open", windowColor},
		{"Booked", bookedColor},
		{"Blocked", blockedColor},
	}

	const boxW, boxH = 20.0, 14.0
	x := float64(leftLabelsWidth + totalDaysInWeek*c.dayWidth + 10)
	y := float64(imageHeight) - 78.0

	for _, item := range items {
		c.dc.SetColor(item.clr)
		c.dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		c.dc.Fill()

		c.dc.SetColor(legendItemColor)
		c.dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2, 0, 0.5)
		y += boxH + 14
	}
}
