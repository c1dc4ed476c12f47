package enums

import "fmt"

// BillStatus tracks the lifecycle of a bill. Bills are append-only; the only
// status written today is completed, but the column leaves room for
// compensating records later.
type BillStatus string

const (
	BillStatusCompleted BillStatus = "completed"
)

var validBillStatuses = []BillStatus{
	BillStatusCompleted,
}

// String implements fmt.Stringer.
func (b BillStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillStatus.
func (b BillStatus) IsValid() bool {
	for _, candidate := range validBillStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillStatus converts raw input into a BillStatus.
func ParseBillStatus(value string) (BillStatus, error) {
	for _, candidate := range validBillStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bill status %q", value)
}
