package resolution

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RenderedLayout is the layout ticket pages use for timestamps.
const RenderedLayout = "02/01/2006 15:04"

// ErrMalformedDate is returned when a rendered date cannot be split or read.
var ErrMalformedDate = errors.New("malformed rendered date")

// ParseRenderedDate reads "D/M/YYYY H:MM" in loc with zero seconds.
//
// Components need not be zero padded. Out-of-range values are not rejected;
// they roll over the way time.Date normalizes them (32/01 is 01/02).
func ParseRenderedDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	datePart, timePart, ok := strings.Cut(value, " ")
	if !ok || datePart == "" || timePart == "" {
		return time.Time{}, fmt.Errorf("%w: %q: want date and time separated by a space", ErrMalformedDate, value)
	}
	// Anything after a second space is ignored.
	timePart, _, _ = strings.Cut(timePart, " ")

	dateFields, err := splitInts(datePart, "/", 3)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: date: %v", ErrMalformedDate, value, err)
	}
	timeFields, err := splitInts(timePart, ":", 2)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: time: %v", ErrMalformedDate, value, err)
	}

	day, month, year := dateFields[0], dateFields[1], dateFields[2]
	hour, minute := timeFields[0], timeFields[1]

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), nil
}

// FormatRenderedDate is the inverse used by server-rendered pages.
func FormatRenderedDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(RenderedLayout)
}

func splitInts(part, sep string, want int) ([]int, error) {
	fields := strings.Split(part, sep)
	if len(fields) < want {
		return nil, fmt.Errorf("want %d fields separated by %q, got %d", want, sep, len(fields))
	}
	out := make([]int, want)
	for i := 0; i < want; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i+1, err)
		}
		out[i] = n
	}
	return out, nil
}
