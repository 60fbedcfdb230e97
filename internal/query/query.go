// Package query serialises filters into ordered query parameters.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/schedule-browser/internal/models"
)

// Pair is one key/value parameter.
type Pair struct {
	Key   string
	Value string
}

// Query is an ordered parameter list. Keys may repeat.
type Query []Pair

// Build serialises schedule filters. Empty fields contribute nothing, so equal
// filters always produce equal queries.
func Build(f models.ScheduleFilters) Query {
	var q Query
	q = q.addID("lop_id", f.ClassID)
	q = q.addString("ten_lop", f.ClassName)
	q = q.addInt("khoi", f.Grade)
	q = q.addID("giao_vien_id", f.TeacherID)
	q = q.addString("ten_giao_vien", f.TeacherName)
	q = q.addID("mon_hoc_id", f.SubjectID)
	q = q.addString("ten_mon_hoc", f.SubjectName)
	q = q.addString("ca_hoc", f.Session)
	q = q.addString("nam_hoc", f.AcademicYear)
	q = q.addInt("hoc_ky", f.Term)
	q = q.addString("phong_hoc", f.Room)
	q = q.addString("sort_by", f.SortBy)
	q = q.addString("sort_order", f.SortOrder)
	for _, day := range f.Weekdays {
		q = q.addInt("thu[]", day)
	}
	for _, period := range f.Periods {
		q = q.addInt("tiet[]", period)
	}
	return q
}

// Reference builds the query for a reference-list search.
func Reference(search string, extra ...Pair) Query {
	var q Query
	q = q.addString("search", search)
	for _, p := range extra {
		q = q.addString(p.Key, p.Value)
	}
	return q
}

// ClassSearch builds the class reference query with its optional narrowing.
func ClassSearch(s models.ClassSearch) Query {
	q := Reference(s.Search)
	q = q.addInt("khoi", s.Grade)
	q = q.addString("nam_hoc", s.AcademicYear)
	return q
}

// WithPage returns a copy with page and per_page appended.
func (q Query) WithPage(page, perPage int) Query {
	out := make(Query, len(q), len(q)+2)
	copy(out, q)
	out = out.addInt("page", page)
	out = out.addInt("per_page", perPage)
	return out
}

// Get returns every value stored under key in order.
func (q Query) Get(key string) []string {
	var values []string
	for _, p := range q {
		if p.Key == key {
			values = append(values, p.Value)
		}
	}
	return values
}

// Equal compares two queries including order.
func (q Query) Equal(other Query) bool {
	if len(q) != len(other) {
		return false
	}
	for i := range q {
		if q[i] != other[i] {
			return false
		}
	}
	return true
}

// Encode renders the query string preserving order.
func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func (q Query) addString(key, value string) Query {
	value = strings.TrimSpace(value)
	if value == "" {
		return q
	}
	return append(q, Pair{Key: key, Value: value})
}

// Zero is never a meaningful value for the numeric parameters we send.
func (q Query) addInt(key string, value int) Query {
	if value <= 0 {
		return q
	}
	return append(q, Pair{Key: key, Value: strconv.Itoa(value)})
}

func (q Query) addID(key string, value int64) Query {
	if value <= 0 {
		return q
	}
	return append(q, Pair{Key: key, Value: strconv.FormatInt(value, 10)})
}
