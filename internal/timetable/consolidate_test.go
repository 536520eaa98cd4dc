package timetable

import (
	"testing"

	"untiscal/internal/untis"
)

func entities(names ...string) []untis.Entity {
	out := make([]untis.Entity, 0, len(names))
	for _, n := range names {
		out = append(out, untis.Entity{Name: n})
	}
	return out
}

func period(id, start, end int, subject string, teachers, rooms []string) untis.Period {
	return untis.Period{
		ID:        id,
		Date:      20250113,
		StartTime: start,
		EndTime:   end,
		Subjects:  entities(subject),
		Teachers:  entities(teachers...),
		Rooms:     entities(rooms...),
		Classes:   entities("1A"),
	}
}

func TestNewLessonDisplayStrings(t *testing.T) {
	p := untis.Period{
		ID:        7,
		Date:      20250113,
		StartTime: 800,
		EndTime:   900,
		Subjects: []untis.Entity{
			{Name: "MATH", Longname: "Mathematics"},
			{Name: "MATH", Longname: "Mathematics"}, // duplicate collapses
		},
		Teachers: []untis.Entity{{Name: "SMI"}},
	}

	l, err := NewLesson(p)
	if err != nil {
		t.Fatalf("NewLesson: %v", err)
	}
	if l.SubjectKey != "Mathematics" {
		t.Fatalf("SubjectKey = %q, want longname %q", l.SubjectKey, "Mathematics")
	}
	if len(l.Subjects) != 1 {
		t.Fatalf("Subjects = %v, want one entry", SortedSet(l.Subjects))
	}
	if _, ok := l.Teachers["SMI"]; !ok {
		t.Fatalf("Teachers = %v, want name fallback SMI", SortedSet(l.Teachers))
	}
}

func TestNewLessonSubjectFallback(t *testing.T) {
	p := untis.Period{ID: 1, Date: 20250113, StartTime: 800, EndTime: 900}
	l, err := NewLesson(p)
	if err != nil {
		t.Fatalf("NewLesson: %v", err)
	}
	if l.SubjectKey != SubjectFallback {
		t.Fatalf("SubjectKey = %q, want %q", l.SubjectKey, SubjectFallback)
	}
}

func TestConsolidateEmpty(t *testing.T) {
	if got := Consolidate(nil); len(got) != 0 {
		t.Fatalf("Consolidate(nil) = %d lessons, want 0", len(got))
	}
}

func TestConsolidateSingle(t *testing.T) {
	got := Consolidate([]untis.Period{period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"})})
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1", len(got))
	}
	if got[0].SubjectKey != "Math" || got[0].StartTime != 800 || got[0].EndTime != 900 {
		t.Fatalf("unexpected lesson: %+v", got[0])
	}
}

func TestConsolidateFiltersCancelled(t *testing.T) {
	cancelled := period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"})
	cancelled.Code = untis.CodeCancelled

	got := Consolidate([]untis.Period{cancelled})
	if len(got) != 0 {
		t.Fatalf("cancelled period survived consolidation: %+v", got[0])
	}

	// Cancelled twins must not leak into a merge either.
	kept := period(2, 800, 900, "Math", []string{"Jones"}, []string{"101"})
	got = Consolidate([]untis.Period{cancelled, kept})
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1", len(got))
	}
	if _, ok := got[0].Teachers["Smith"]; ok {
		t.Fatalf("cancelled period's teacher merged into output: %v", SortedSet(got[0].Teachers))
	}
}

func TestConsolidateSkipsUnparseable(t *testing.T) {
	bad := period(1, 800, 900, "Math", nil, nil)
	bad.Date = 20251301 // month 13
	good := period(2, 800, 900, "Math", nil, nil)

	got := Consolidate([]untis.Period{bad, good})
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1 (bad record skipped, batch kept)", len(got))
	}
	if got[0].ID != 2 {
		t.Fatalf("surviving lesson id = %d, want 2", got[0].ID)
	}
}

func TestMergeExactUnionsTeachers(t *testing.T) {
	got := Consolidate([]untis.Period{
		period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"}),
		period(2, 800, 900, "Math", []string{"Jones"}, []string{"101"}),
	})
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1", len(got))
	}
	teachers := SortedSet(got[0].Teachers)
	if len(teachers) != 2 || teachers[0] != "Jones" || teachers[1] != "Smith" {
		t.Fatalf("teachers = %v, want union [Jones Smith]", teachers)
	}
}

func TestMergeExactKeepsDifferentSubjectsApart(t *testing.T) {
	got := Consolidate([]untis.Period{
		period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"}),
		period(2, 800, 900, "History", []string{"Smith"}, []string{"101"}),
	})
	if len(got) != 2 {
		t.Fatalf("got %d lessons, want 2 (distinct subject keys)", len(got))
	}
}

func TestMergeExactTextUnion(t *testing.T) {
	a := period(1, 800, 900, "Math", nil, nil)
	a.Info = "bring calculator"
	b := period(2, 800, 900, "Math", nil, nil)
	b.Info = "bring calculator | room change"

	got := Consolidate([]untis.Period{a, b})
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1", len(got))
	}
	if got[0].Info != "bring calculator | room change" {
		t.Fatalf("Info = %q, want deduplicated union", got[0].Info)
	}
}

func TestMergeAdjacentContiguousBlocks(t *testing.T) {
	got := Consolidate([]untis.Period{
		period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"}),
		period(2, 900, 1000, "Math", []string{"Smith"}, []string{"101"}),
	})
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1 merged block", len(got))
	}
	if got[0].StartTime != 800 || got[0].EndTime != 1000 {
		t.Fatalf("merged block spans %d-%d, want 800-1000", got[0].StartTime, got[0].EndTime)
	}
}

func TestMergeAdjacentDifferentRooms(t *testing.T) {
	got := Consolidate([]untis.Period{
		period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"}),
		period(2, 900, 1000, "Math", []string{"Smith"}, []string{"102"}),
	})
	if len(got) != 2 {
		t.Fatalf("got %d lessons, want 2 (room change blocks the merge)", len(got))
	}
}

func TestMergeAdjacentGap(t *testing.T) {
	got := Consolidate([]untis.Period{
		period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"}),
		period(2, 915, 1015, "Math", []string{"Smith"}, []string{"101"}),
	})
	if len(got) != 2 {
		t.Fatalf("got %d lessons, want 2 (gap breaks contiguity)", len(got))
	}
}

// Adjacency eligibility compares SubjectKey but deliberately not the
// subjects set; blocks whose sets drifted apart during the exact merge
// still fold together.
func TestMergeAdjacentIgnoresSubjectSet(t *testing.T) {
	a := period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"})
	b := period(2, 900, 1000, "Math", []string{"Smith"}, []string{"101"})
	b.Subjects = append(b.Subjects, untis.Entity{Name: "Statistics"})

	got := Consolidate([]untis.Period{a, b})
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1 (subject-set drift must not block the merge)", len(got))
	}
	subjects := SortedSet(got[0].Subjects)
	if len(subjects) != 1 || subjects[0] != "Math" {
		t.Fatalf("subjects = %v, want accumulator's own set [Math]", subjects)
	}
}

func TestConsolidateOutputSorted(t *testing.T) {
	got := Consolidate([]untis.Period{
		period(3, 1200, 1300, "History", []string{"Lee"}, []string{"201"}),
		period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"}),
		period(2, 1000, 1100, "Art", []string{"Kim"}, []string{"301"}),
	})
	if len(got) != 3 {
		t.Fatalf("got %d lessons, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start.Before(got[i-1].Start) {
			t.Fatalf("output not sorted: %v before %v", got[i].Start, got[i-1].Start)
		}
	}

	// No duplicate (start, end, subjectKey) triple survives.
	seen := make(map[exactKey]bool)
	for _, l := range got {
		k := exactKey{start: l.Start.Unix(), end: l.End.Unix(), subject: l.SubjectKey}
		if seen[k] {
			t.Fatalf("duplicate (start,end,subjectKey) in output: %+v", k)
		}
		seen[k] = true
	}
}

func TestConsolidateThreeWayChain(t *testing.T) {
	// Two identical 08:00 fragments collapse horizontally, then the
	// 09:00 block folds in vertically.
	got := Consolidate([]untis.Period{
		period(1, 800, 900, "Math", []string{"Smith"}, []string{"101"}),
		period(2, 800, 900, "Math", []string{"Smith"}, []string{"101"}),
		period(3, 900, 1000, "Math", []string{"Smith"}, []string{"101"}),
	})
	if len(got) != 1 {
		t.Fatalf("got %d lessons, want 1", len(got))
	}
	if got[0].StartTime != 800 || got[0].EndTime != 1000 {
		t.Fatalf("merged block spans %d-%d, want 800-1000", got[0].StartTime, got[0].EndTime)
	}
	if got[0].ID != 1 {
		t.Fatalf("accumulator id = %d, want first-seen 1", got[0].ID)
	}
}
