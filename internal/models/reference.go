package models

// ReferenceEntity is the minimal identity shared by teachers, classes and subjects.
type ReferenceEntity interface {
	RefID() int64
	DisplayName() string
}
