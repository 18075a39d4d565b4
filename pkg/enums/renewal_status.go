package enums

import "fmt"

// RenewalStatus tracks a manual renewal request raised through the admin UI.
type RenewalStatus string

const (
	RenewalStatusNone      RenewalStatus = "NONE"
	RenewalStatusRequested RenewalStatus = "REQUESTED"
	RenewalStatusApproved  RenewalStatus = "APPROVED"
)

var validRenewalStatuses = []RenewalStatus{
	RenewalStatusNone,
	RenewalStatusRequested,
	RenewalStatusApproved,
}

func (r RenewalStatus) String() string {
	return string(r)
}

func (r RenewalStatus) IsValid() bool {
	for _, candidate := range validRenewalStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseRenewalStatus(value string) (RenewalStatus, error) {
	for _, candidate := range validRenewalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid renewal status %q", value)
}
