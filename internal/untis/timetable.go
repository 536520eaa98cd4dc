package untis

import (
	"context"
	"errors"
	"time"

	appLog "untiscal/internal/log"
)

// chunkDays is the maximum date-range width of a single getTimetable
// call. Large ranges are split so that one failing window does not cost
// the whole sync.
const chunkDays = 30

const dateLayout = "20060102"

// namedElement is the subset of getClasses/getStudents entries we need.
type namedElement struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ResolveElement determines the timetable element to fetch. A configured
// class id wins; otherwise the first class returned by getClasses is
// used, and if the account sees no classes, the first student from
// getStudents.
func (c *Client) ResolveElement(ctx context.Context, classID int) (Element, error) {
	if classID != 0 {
		appLog.Info("using configured class id", "class_id", classID)
		return Element{ID: classID, Type: ElementClass}, nil
	}

	var classes []namedElement
	if err := c.call(ctx, "getClasses", map[string]any{}, &classes); err != nil {
		return Element{}, err
	}
	if len(classes) > 0 {
		appLog.Info("using first class", "name", classes[0].Name, "id", classes[0].ID, "available", len(classes))
		return Element{ID: classes[0].ID, Type: ElementClass}, nil
	}

	var students []namedElement
	if err := c.call(ctx, "getStudents", map[string]any{}, &students); err != nil {
		return Element{}, err
	}
	if len(students) > 0 {
		appLog.Info("using first student", "name", students[0].Name, "id", students[0].ID)
		return Element{ID: students[0].ID, Type: ElementStudent}, nil
	}

	return Element{}, errors.New("untis: account sees no classes and no students")
}

// Timetable fetches all periods for the element between start and end
// (inclusive). The range is split into chunkDays-wide windows fetched
// independently; a failed window is logged and contributes no periods,
// so partial provider outages yield a partial but usable result.
func (c *Client) Timetable(ctx context.Context, el Element, start, end time.Time) []Period {
	periods := make([]Period, 0)

	for ws := start; !ws.After(end); ws = ws.AddDate(0, 0, chunkDays) {
		we := ws.AddDate(0, 0, chunkDays-1)
		if we.After(end) {
			we = end
		}

		chunk, err := c.timetableWindow(ctx, el, ws, we)
		if err != nil {
			appLog.Error("timetable window fetch failed, skipping", err,
				"start", ws.Format(dateLayout), "end", we.Format(dateLayout))
			continue
		}
		periods = append(periods, chunk...)
	}

	appLog.Info("timetable fetched",
		"start", start.Format(dateLayout), "end", end.Format(dateLayout), "period_count", len(periods))
	return periods
}

func (c *Client) timetableWindow(ctx context.Context, el Element, start, end time.Time) ([]Period, error) {
	idNameLong := []string{"id", "name", "longname"}
	params := map[string]any{
		"options": map[string]any{
			"element": map[string]any{
				"id":   el.ID,
				"type": el.Type,
			},
			"startDate":        start.Format(dateLayout),
			"endDate":          end.Format(dateLayout),
			"showBooking":      true,
			"showInfo":         true,
			"showSubstText":    true,
			"showLsText":       true,
			"showStudentgroup": true,
			"classFields":      idNameLong,
			"roomFields":       idNameLong,
			"subjectFields":    idNameLong,
			"teacherFields":    idNameLong,
		},
	}

	var periods []Period
	if err := c.call(ctx, "getTimetable", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}
