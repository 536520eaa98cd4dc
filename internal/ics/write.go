// Package ics serializes consolidated lessons into an iCalendar file.
package ics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "untiscal/internal/log"
	"untiscal/internal/timetable"
)

const (
	prodID       = "-//untiscal//WebUntis Sync//EN"
	calendarName = "WebUntis Timetable"
	uidDomain    = "untiscal"

	descSeparator = "--------------------"
)

// Emitter builds iCalendar output for a fixed display timezone.
type Emitter struct {
	tzName string
	loc    *time.Location
}

// NewEmitter creates an Emitter for the given IANA timezone name.
func NewEmitter(tzName string) (*Emitter, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("ics: load timezone %q: %w", tzName, err)
	}
	return &Emitter{tzName: tzName, loc: loc}, nil
}

// Calendar maps every lesson to one VEVENT. Set-valued fields are
// sorted before joining so repeated runs over the same input produce
// byte-identical output.
func (e *Emitter) Calendar(lessons []*timetable.Lesson) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetVersion("2.0")
	cal.SetXWRCalName(calendarName)
	cal.SetXWRTimezone(e.tzName)

	now := time.Now().UTC()

	for _, l := range lessons {
		uid := fmt.Sprintf("%d-%d-%d@%s", l.ID, l.Date, l.StartTime, uidDomain)

		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(now)
		ev.SetStartAt(e.localize(l.Start))
		ev.SetEndAt(e.localize(l.End))
		ev.SetSummary(summaryFor(l))

		if desc := descriptionFor(l); desc != "" {
			ev.SetDescription(desc)
		}
		if rooms := timetable.SortedSet(l.Rooms); len(rooms) > 0 {
			ev.SetLocation(strings.Join(rooms, ", "))
		}
	}

	return cal
}

// WriteFile serializes the calendar and atomically replaces the file at
// path. The previous artifact is fully overwritten; there is no
// incremental update.
func (e *Emitter) WriteFile(path string, lessons []*timetable.Lesson) error {
	if path == "" {
		return errors.New("ics: output path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data := []byte(e.Calendar(lessons).Serialize())

	tmp, err := os.CreateTemp(dir, ".untiscal-*.ics.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	appLog.Info("calendar written", "path", path, "event_count", len(lessons))
	return nil
}

// localize reinterprets a naive timestamp's wall-clock fields in the
// emitter's timezone.
func (e *Emitter) localize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, e.loc)
}

// summaryFor joins the sorted subjects, falling back to the literal
// lesson placeholder, and appends the substitution text when present.
func summaryFor(l *timetable.Lesson) string {
	summary := strings.Join(timetable.SortedSet(l.Subjects), ", ")
	if summary == "" {
		summary = timetable.SubjectFallback
	}
	if l.SubstText != "" {
		summary = fmt.Sprintf("%s (%s)", summary, l.SubstText)
	}
	return summary
}

// descriptionFor builds the event description: teachers line, classes
// line, then a separator followed by the annotation fields when any of
// them is non-empty.
func descriptionFor(l *timetable.Lesson) string {
	parts := make([]string, 0, 6)

	if teachers := timetable.SortedSet(l.Teachers); len(teachers) > 0 {
		parts = append(parts, strings.Join(teachers, " / "))
	}
	if classes := timetable.SortedSet(l.Classes); len(classes) > 0 {
		parts = append(parts, strings.Join(classes, " / "))
	}

	if l.LsText != "" || l.Info != "" || l.SubstText != "" {
		parts = append(parts, descSeparator)
		if l.LsText != "" {
			parts = append(parts, "Lesson: "+l.LsText)
		}
		if l.Info != "" {
			parts = append(parts, "Info: "+l.Info)
		}
		if l.SubstText != "" {
			parts = append(parts, "Substitution: "+l.SubstText)
		}
	}

	return strings.Join(parts, "\n")
}
