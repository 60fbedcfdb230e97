package models

// Subject is a reference entry for subject labels.
type Subject struct {
	ID      int64  `json:"id"`
	Name    string `json:"ten_mon"`
	Code    string `json:"ma_mon"`
	Grade   int    `json:"khoi,omitempty"`
	Periods int    `json:"so_tiet_hoc,omitempty"`
}

func (s Subject) RefID() int64        { return s.ID }
func (s Subject) DisplayName() string { return s.Name }
