package timetable

import (
	"sort"
	"time"

	appLog "untiscal/internal/log"
	"untiscal/internal/untis"
)

// Consolidate runs the full normalization pipeline over raw periods:
// filter cancellations and unparseable records, sort, collapse exact
// duplicates (MergeExact), then collapse contiguous blocks
// (MergeAdjacent). The result is strictly ordered by start time and
// cannot be merged any further.
func Consolidate(periods []untis.Period) []*Lesson {
	lessons := normalize(periods)
	sortLessons(lessons)
	lessons = MergeExact(lessons)
	return MergeAdjacent(lessons)
}

// normalize applies NewLesson to every period, dropping cancelled and
// unparseable records. Drops are logged and never abort the batch.
func normalize(periods []untis.Period) []*Lesson {
	lessons := make([]*Lesson, 0, len(periods))
	for _, p := range periods {
		if p.Code == untis.CodeCancelled {
			appLog.Debug("skipping cancelled period", "id", p.ID, "date", p.Date, "start", p.StartTime)
			continue
		}
		l, err := NewLesson(p)
		if err != nil {
			appLog.Error("skipping unparseable period", err, "id", p.ID)
			continue
		}
		lessons = append(lessons, l)
	}
	return lessons
}

// sortLessons stable-sorts by start time, tie-broken on SubjectKey so
// grouping stays deterministic when several subjects start together.
func sortLessons(lessons []*Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		if !lessons[i].Start.Equal(lessons[j].Start) {
			return lessons[i].Start.Before(lessons[j].Start)
		}
		return lessons[i].SubjectKey < lessons[j].SubjectKey
	})
}

// exactKey identifies a horizontal merge group: identical start and end
// timestamps and the same subject key.
type exactKey struct {
	start   int64
	end     int64
	subject string
}

// MergeExact collapses lessons sharing (start, end, SubjectKey) into
// one. The first lesson seen for a key becomes the accumulator; later
// ones are absorbed via set union and text union. The result is
// re-sorted by start time.
func MergeExact(lessons []*Lesson) []*Lesson {
	groups := make(map[exactKey]*Lesson, len(lessons))
	out := make([]*Lesson, 0, len(lessons))

	for _, l := range lessons {
		k := exactKey{start: l.Start.Unix(), end: l.End.Unix(), subject: l.SubjectKey}
		if acc, ok := groups[k]; ok {
			acc.absorb(l)
			continue
		}
		groups[k] = l
		out = append(out, l)
	}

	sortLessons(out)
	return out
}

// MergeAdjacent collapses contiguous blocks: a candidate is folded into
// the previous output lesson iff the previous end equals the candidate
// start exactly and SubjectKey, Teachers, Rooms and Classes all match.
// The Subjects set is deliberately not compared; adjacent blocks with
// the same key may drift in their subject sets without blocking the
// merge. On merge the previous lesson's end extends forward and the
// text fields union; the candidate is discarded. Input must be sorted
// by start time.
func MergeAdjacent(lessons []*Lesson) []*Lesson {
	if len(lessons) == 0 {
		return lessons
	}

	out := make([]*Lesson, 0, len(lessons))
	out = append(out, lessons[0])

	for _, cand := range lessons[1:] {
		prev := out[len(out)-1]
		if !adjacentMergeable(prev, cand) {
			out = append(out, cand)
			continue
		}
		prev.End = cand.End
		prev.EndTime = cand.EndTime
		prev.mergeText(cand)
	}

	return out
}

func adjacentMergeable(prev, cand *Lesson) bool {
	return prev.End.Equal(cand.Start) &&
		prev.SubjectKey == cand.SubjectKey &&
		setsEqual(prev.Teachers, cand.Teachers) &&
		setsEqual(prev.Rooms, cand.Rooms) &&
		setsEqual(prev.Classes, cand.Classes)
}

// Range converts a days-back/days-forward window relative to now into
// concrete range bounds, truncated to whole days.
func Range(now time.Time, daysBack, daysForward int) (start, end time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, -daysBack), day.AddDate(0, 0, daysForward)
}
