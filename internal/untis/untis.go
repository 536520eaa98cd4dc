// Package untis implements the subset of the WebUntis JSON-RPC API needed
// to retrieve a timetable: session authentication, class/student element
// discovery and chunked period retrieval.
package untis

// Element types as defined by the WebUntis API.
const (
	ElementClass   = 1
	ElementStudent = 5
)

// Element identifies the timetable owner (a class or a student).
type Element struct {
	ID   int
	Type int
}

// Entity is a named sub-entity of a period (subject, teacher, room or
// class). Longname is optional and preferred for display.
type Entity struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Longname string `json:"longname"`
}

// DisplayName resolves the display string of an entity: longname if
// present and non-empty, else name, else the empty string.
func (e Entity) DisplayName() string {
	if e.Longname != "" {
		return e.Longname
	}
	return e.Name
}

// Period is one raw timetable record as delivered by getTimetable.
// Date is YYYYMMDD; StartTime/EndTime are HHMM with leading zeros
// dropped (830 means 08:30).
type Period struct {
	ID        int      `json:"id"`
	Date      int      `json:"date"`
	StartTime int      `json:"startTime"`
	EndTime   int      `json:"endTime"`
	Code      string   `json:"code"`
	Subjects  []Entity `json:"su"`
	Teachers  []Entity `json:"te"`
	Rooms     []Entity `json:"ro"`
	Classes   []Entity `json:"kl"`
	Info      string   `json:"info"`
	LsText    string   `json:"lstext"`
	SubstText string   `json:"substText"`
}

// CodeCancelled marks a cancelled period; such records never reach the
// output calendar.
const CodeCancelled = "cancelled"
