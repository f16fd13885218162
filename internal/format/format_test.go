package format

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"eventcal/internal/model"
)

func at(hour, minute int) model.StartTime {
	return model.StartTime{At: time.Date(2026, time.October, 20, hour, minute, 0, 0, time.UTC)}
}

func TestDateLabel(t *testing.T) {
	assert.Equal(t, "Tuesday, October 20", DateLabel(time.Date(2026, time.October, 20, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Sunday, March 1", DateLabel(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Thursday, December 31", DateLabel(time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC)))
}

func TestDateLabelUsesInstantLocation(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*3600)
	// 03:00 UTC on the 21st is still the 20th in UTC-7.
	instant := time.Date(2026, time.October, 21, 3, 0, 0, 0, time.UTC).In(loc)
	assert.Equal(t, "Tuesday, October 20", DateLabel(instant))
}

func TestTimeLabelMorning(t *testing.T) {
	for hour := 0; hour < 12; hour++ {
		label, ok := TimeLabel(at(hour, 5))
		assert.True(t, ok)
		assert.Equal(t, " "+strconv.Itoa(hour)+":05am", label)
	}
}

func TestTimeLabelAfternoon(t *testing.T) {
	for hour := 12; hour < 24; hour++ {
		label, ok := TimeLabel(at(hour, 30))
		assert.True(t, ok)
		assert.Equal(t, " "+strconv.Itoa(hour-12)+":30pm", label)
	}
}

func TestTimeLabelMidnightAndNoonKeepZeroHour(t *testing.T) {
	label, _ := TimeLabel(at(0, 0))
	assert.Equal(t, " 0:00am", label)

	label, _ = TimeLabel(at(12, 45))
	assert.Equal(t, " 0:45pm", label)
}

func TestTimeLabelDateOnly(t *testing.T) {
	st := at(14, 0)
	st.DateOnly = true
	label, ok := TimeLabel(st)
	assert.False(t, ok)
	assert.Empty(t, label)
}

func TestPadNumber(t *testing.T) {
	for n := 0; n <= 9; n++ {
		out := PadNumber(n)
		assert.Len(t, out, 2)
		assert.Equal(t, "0"+strconv.Itoa(n), out)
	}
	for n := 10; n <= 59; n++ {
		assert.Equal(t, strconv.Itoa(n), PadNumber(n))
	}
}
