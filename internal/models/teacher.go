package models

// Teacher is a reference entry used to populate the teacher filter.
type Teacher struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
}

func (t Teacher) RefID() int64        { return t.ID }
func (t Teacher) DisplayName() string { return t.Name }
