package enums

import "fmt"

// ComplaintStatus tracks how support handled a customer complaint.
type ComplaintStatus string

const (
	ComplaintStatusOpen     ComplaintStatus = "open"
	ComplaintStatusInReview ComplaintStatus = "in_review"
	ComplaintStatusResolved ComplaintStatus = "resolved"
	ComplaintStatusRejected ComplaintStatus = "rejected"
)

var validComplaintStatuses = []ComplaintStatus{
	ComplaintStatusOpen,
	ComplaintStatusInReview,
	ComplaintStatusResolved,
	ComplaintStatusRejected,
}

func (c ComplaintStatus) String() string {
	return string(c)
}

func (c ComplaintStatus) IsValid() bool {
	for _, candidate := range validComplaintStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsClosed reports whether the complaint accepts no further updates.
func (c ComplaintStatus) IsClosed() bool {
	return c == ComplaintStatusResolved || c == ComplaintStatusRejected
}

func ParseComplaintStatus(value string) (ComplaintStatus, error) {
	for _, candidate := range validComplaintStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid complaint status %q", value)
}
