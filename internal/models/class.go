package models

import "fmt"

// Class is a reference entry used to populate the class filter.
type Class struct {
	ID              int64  `json:"id"`
	Name            string `json:"ten_lop"`
	Grade           int    `json:"khoi"`
	AcademicYear    string `json:"nam_hoc"`
	Size            int    `json:"si_so,omitempty"`
	HomeroomTeacher string `json:"gvcn,omitempty"`
}

func (c Class) RefID() int64        { return c.ID }
func (c Class) DisplayName() string { return c.Name }

// Label is the option title shown in the class select.
func (c Class) Label() string {
	return fmt.Sprintf("%s (Khối %d)", c.Name, c.Grade)
}

// ClassSearch narrows the class reference list.
type ClassSearch struct {
	Search       string
	Grade        int
	AcademicYear string
}
