package models

// SubjectRef is the subject embedded in a schedule row.
type SubjectRef struct {
	ID   int64  `json:"id"`
	Name string `json:"ten_mon"`
	Code string `json:"ma_mon"`
}

// TeacherRef is the teacher embedded in a schedule row.
type TeacherRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ClassRef is the class embedded in a schedule row.
type ClassRef struct {
	ID   int64  `json:"id"`
	Name string `json:"ten_lop"`
}

// ScheduleRow is one timetable entry. Only the server produces these.
type ScheduleRow struct {
	ID           int64      `json:"id"`
	Weekday      int        `json:"thu"`
	WeekdayText  string     `json:"thu_text"`
	Period       int        `json:"tiet"`
	Session      string     `json:"ca_hoc"`
	SessionText  string     `json:"ca_hoc_text"`
	Subject      SubjectRef `json:"mon_hoc"`
	Teacher      TeacherRef `json:"giao_vien"`
	Class        ClassRef   `json:"lop"`
	Room         string     `json:"phong_hoc,omitempty"`
	AcademicYear string     `json:"nam_hoc"`
	Term         int        `json:"hoc_ky"`
	CreatedAt    string     `json:"ngay_tao,omitempty"`
	UpdatedAt    string     `json:"ngay_cap_nhat,omitempty"`
}
