package timetable

import (
	"sort"
	"time"

	"untiscal/internal/untis"
)

// SubjectFallback is used when a period carries no subject entries at
// all, both as the grouping key and as the emitted summary.
const SubjectFallback = "Lesson"

// Lesson is the normalized form of one or more raw periods. Set-valued
// fields are unordered and deduplicated; merges union them. The text
// fields are pipe-delimited unions (see MergeUniqueText).
type Lesson struct {
	// ID is the first contributing period's id, kept only for UID
	// composition. Not unique after merges.
	ID int

	// Date and StartTime keep the provider's integer encodings for UID
	// composition. Start/End are the parsed timestamps; End is extended
	// forward by the adjacency merge.
	Date      int
	StartTime int
	EndTime   int
	Start     time.Time
	End       time.Time

	// SubjectKey is the display string of the first raw subject entry
	// (SubjectFallback if the period had none). It is fixed at
	// normalization and never recomputed after merges.
	SubjectKey string

	Subjects map[string]struct{}
	Teachers map[string]struct{}
	Rooms    map[string]struct{}
	Classes  map[string]struct{}

	Info      string
	LsText    string
	SubstText string
}

// NewLesson normalizes one raw period. It returns a *ParseError when the
// date/time integers do not resolve to a valid timestamp; the caller
// skips such records. Cancellation filtering happens in the consolidator.
func NewLesson(p untis.Period) (*Lesson, error) {
	start, err := ParseUntisTime(p.Date, p.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseUntisTime(p.Date, p.EndTime)
	if err != nil {
		return nil, err
	}

	key := SubjectFallback
	if len(p.Subjects) > 0 {
		key = p.Subjects[0].DisplayName()
	}

	return &Lesson{
		ID:         p.ID,
		Date:       p.Date,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
		Start:      start,
		End:        end,
		SubjectKey: key,
		Subjects:   displaySet(p.Subjects),
		Teachers:   displaySet(p.Teachers),
		Rooms:      displaySet(p.Rooms),
		Classes:    displaySet(p.Classes),
		Info:       p.Info,
		LsText:     p.LsText,
		SubstText:  p.SubstText,
	}, nil
}

// absorb merges other into l: set union on the four entity sets and
// text union on the three annotation fields. Times are left untouched;
// the adjacency merge adjusts End itself.
func (l *Lesson) absorb(other *Lesson) {
	unionInto(l.Subjects, other.Subjects)
	unionInto(l.Teachers, other.Teachers)
	unionInto(l.Rooms, other.Rooms)
	unionInto(l.Classes, other.Classes)
	l.mergeText(other)
}

func (l *Lesson) mergeText(other *Lesson) {
	l.Info = MergeUniqueText(l.Info, other.Info)
	l.LsText = MergeUniqueText(l.LsText, other.LsText)
	l.SubstText = MergeUniqueText(l.SubstText, other.SubstText)
}

// displaySet collects the display strings of a raw entity list into a
// set; duplicates collapse.
func displaySet(entities []untis.Entity) map[string]struct{} {
	set := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		set[e.DisplayName()] = struct{}{}
	}
	return set
}

func unionInto(dst, src map[string]struct{}) {
	for v := range src {
		dst[v] = struct{}{}
	}
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}

// SortedSet converts a set to a sorted slice for deterministic output.
func SortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
