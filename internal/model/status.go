package model

import "fmt"

// StatusName is the closed set of lifecycle states a Request can be in.
type StatusName string

const (
	StatusDraft      StatusName = "DRAFT"
	StatusInProgress StatusName = "IN_PROGRESS"
	StatusDone       StatusName = "DONE"
	StatusCancelled  StatusName = "CANCELLED"
	StatusSubmitted  StatusName = "SUBMITTED"
)

var statusNames = []StatusName{
	StatusDraft,
	StatusInProgress,
	StatusDone,
	StatusCancelled,
	StatusSubmitted,
}

// StatusNames returns every known status name in catalog order.
func StatusNames() []StatusName {
	out := make([]StatusName, len(statusNames))
	copy(out, statusNames)
	return out
}

func (s StatusName) String() string { return string(s) }

// IsValid reports whether the value is a known StatusName.
func (s StatusName) IsValid() bool {
	for _, candidate := range statusNames {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStatusName converts raw input into a StatusName.
func ParseStatusName(value string) (StatusName, error) {
	for _, candidate := range statusNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid status name %q", value)
}

// Status is an immutable catalog entry.
type Status struct {
	ID          int64      `json:"id"`
	Name        StatusName `json:"name"`
	Description string     `json:"description"`
}
