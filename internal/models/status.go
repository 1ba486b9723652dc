package models

// Status tracks a record through the reporting workflow. The set of
// values is closed but transitions are not: any valid status may replace
// any other. Only membership in the set is validated.
type Status string

const (
	StatusNotAssigned Status = "Not Assigned"
	StatusUnreported  Status = "Unreported"
	StatusDraft       Status = "Draft"
	StatusReviewed    Status = "Reviewed"
	StatusReported    Status = "Reported"
)

// ValidStatuses lists every accepted status value, in workflow order.
var ValidStatuses = []Status{
	StatusNotAssigned,
	StatusUnreported,
	StatusDraft,
	StatusReviewed,
	StatusReported,
}

// Valid reports whether s is one of the five workflow statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotAssigned, StatusUnreported, StatusDraft, StatusReviewed, StatusReported:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
