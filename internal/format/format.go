// Package format turns event start instants into the labels shown on the page.
package format

import (
	"strconv"
	"time"

	"eventcal/internal/model"
)

var weekdays = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var months = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// DateLabel returns "<Weekday>, <Month> <Day>" in the instant's own location,
// e.g. "Tuesday, October 20".
func DateLabel(t time.Time) string {
	return weekdays[t.Weekday()] + ", " + months[t.Month()-1] + " " + strconv.Itoa(t.Day())
}

// TimeLabel returns " <h>:<mm>am" or " <h>:<mm>pm" for timed instants and
// false for date-only ones.
//
// The hour is not mapped onto a 1..12 clock: midnight renders as " 0:MMam"
// and noon as " 0:MMpm".
func TimeLabel(st model.StartTime) (string, bool) {
	if st.DateOnly {
		return "", false
	}
	hour := st.At.Hour()
	minutes := PadNumber(st.At.Minute())
	if hour < 12 {
		return " " + strconv.Itoa(hour) + ":" + minutes + "am", true
	}
	return " " + strconv.Itoa(hour-12) + ":" + minutes + "pm", true
}

// PadNumber left-pads single digit values with a zero.
func PadNumber(n int) string {
	if n <= 9 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
