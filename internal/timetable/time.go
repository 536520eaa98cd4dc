// Package timetable turns raw WebUntis periods into a minimal,
// deduplicated, chronologically consistent list of lessons.
package timetable

import (
	"fmt"
	"time"
)

// untisLayout parses the concatenation of a YYYYMMDD date and a
// zero-padded HHMM time.
const untisLayout = "200601021504"

// ParseError reports a date/time integer pair that does not resolve to a
// valid timestamp. Callers skip the offending record and continue.
type ParseError struct {
	Date int
	Time int
	err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timetable: invalid date/time %d/%d: %v", e.Date, e.Time, e.err)
}

func (e *ParseError) Unwrap() error { return e.err }

// ParseUntisTime converts the WebUntis compact encoding into a naive
// (zone-less) timestamp. The time integer carries no leading zeros
// (830 means 08:30) and is padded to four digits before parsing.
func ParseUntisTime(date, hhmm int) (time.Time, error) {
	s := fmt.Sprintf("%08d%04d", date, hhmm)
	t, err := time.Parse(untisLayout, s)
	if err != nil {
		return time.Time{}, &ParseError{Date: date, Time: hhmm, err: err}
	}
	return t, nil
}
