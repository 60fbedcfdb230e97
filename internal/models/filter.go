package models

import (
	"strconv"
	"strings"
)

// Session is the teaching shift a schedule row belongs to.
type Session string

const (
	SessionMorning   Session = "morning"
	SessionAfternoon Session = "afternoon"
)

// WireValue returns the value the timetable service expects for ca_hoc.
func (s Session) WireValue() string {
	switch s {
	case SessionMorning:
		return "sang"
	case SessionAfternoon:
		return "chieu"
	default:
		return ""
	}
}

// SessionLabel renders a ca_hoc wire value for humans.
func SessionLabel(wire string) string {
	switch wire {
	case "sang":
		return "Sáng"
	case "chieu":
		return "Chiều"
	case "toi":
		return "Tối"
	default:
		return wire
	}
}

// WeekdayLabel renders a thu value (2 = Monday ... 7 = Saturday).
func WeekdayLabel(day int) string {
	switch {
	case day >= 2 && day <= 7:
		return "Thứ " + strconv.Itoa(day)
	case day == 8:
		return "Chủ nhật"
	default:
		return ""
	}
}

// SortField is a sortable column of the schedule list.
type SortField string

const (
	SortByWeekday SortField = "weekday"
	SortByPeriod  SortField = "period"
	SortBySubject SortField = "subject"
	SortByTeacher SortField = "teacher"
)

// WireValue returns the sort_by parameter value.
func (f SortField) WireValue() string {
	switch f {
	case SortByWeekday:
		return "thu"
	case SortByPeriod:
		return "tiet"
	case SortBySubject:
		return "mon_hoc"
	case SortByTeacher:
		return "giao_vien"
	default:
		return ""
	}
}

// SortDirection orders the list.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Toggle flips the direction.
func (d SortDirection) Toggle() SortDirection {
	if d == SortDesc {
		return SortAsc
	}
	return SortDesc
}

// Draft field names accepted by the filter store.
const (
	FieldSearch  = "search"
	FieldWeekday = "weekday"
	FieldSession = "session"
	FieldTeacher = "teacher"
	FieldClass   = "class"
)

// FilterDraft holds filter values being edited and not yet applied.
// Zero values mean "no filter".
type FilterDraft struct {
	Search    string  `json:"search"`
	Weekday   int     `json:"weekday,omitempty" validate:"omitempty,min=2,max=7"`
	Session   Session `json:"session,omitempty" validate:"omitempty,oneof=morning afternoon"`
	TeacherID int64   `json:"teacher_id,omitempty" validate:"omitempty,gt=0"`
	ClassID   int64   `json:"class_id,omitempty" validate:"omitempty,gt=0"`
	Page      int     `json:"page" validate:"min=1"`
}

// EmptyDraft returns the default draft.
func EmptyDraft() FilterDraft {
	return FilterDraft{Page: 1}
}

// ActiveCount counts fields that differ from the empty default. Page is not a filter.
func (d FilterDraft) ActiveCount() int {
	count := 0
	if d.Search != "" {
		count++
	}
	if d.Weekday != 0 {
		count++
	}
	if d.Session != "" {
		count++
	}
	if d.TeacherID != 0 {
		count++
	}
	if d.ClassID != 0 {
		count++
	}
	return count
}

// ScheduleFilters converts the draft into wire filters without sort or paging.
func (d FilterDraft) ScheduleFilters() ScheduleFilters {
	f := ScheduleFilters{
		SubjectName: strings.TrimSpace(d.Search),
		Session:     d.Session.WireValue(),
		TeacherID:   d.TeacherID,
		ClassID:     d.ClassID,
	}
	if d.Weekday != 0 {
		f.Weekdays = []int{d.Weekday}
	}
	return f
}

// AppliedFilters is the filter, sort and page combination driving the list.
type AppliedFilters struct {
	FilterDraft
	SortField     SortField     `json:"sort_field" validate:"required,oneof=weekday period subject teacher"`
	SortDirection SortDirection `json:"sort_direction" validate:"required,oneof=asc desc"`
}

// DefaultApplied is the state before the user applies anything.
func DefaultApplied() AppliedFilters {
	return AppliedFilters{FilterDraft: EmptyDraft(), SortField: SortByWeekday, SortDirection: SortAsc}
}

// ScheduleFilters converts applied filters into wire filters including sort.
func (a AppliedFilters) ScheduleFilters() ScheduleFilters {
	f := a.FilterDraft.ScheduleFilters()
	f.SortBy = a.SortField.WireValue()
	f.SortOrder = string(a.SortDirection)
	return f
}

// ScheduleFilters mirrors the query parameters of the all-schedules endpoint.
type ScheduleFilters struct {
	ClassID      int64
	ClassName    string
	Grade        int
	TeacherID    int64
	TeacherName  string
	SubjectID    int64
	SubjectName  string
	Session      string
	AcademicYear string
	Term         int
	Room         string
	Weekdays     []int
	Periods      []int
	SortBy       string
	SortOrder    string
}

// ParseID parses a positive identifier; empty input yields 0.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
