package enums

import "fmt"

// ReturnReason is the closed set of reason codes accepted on return items.
type ReturnReason string

const (
	ReturnReasonWrongSize      ReturnReason = "wrong_size"
	ReturnReasonWrongColor     ReturnReason = "wrong_color"
	ReturnReasonDamaged        ReturnReason = "damaged"
	ReturnReasonNotAsDescribed ReturnReason = "not_as_described"
	ReturnReasonChangedMind    ReturnReason = "changed_mind"
	ReturnReasonQuality        ReturnReason = "quality"
	ReturnReasonOther          ReturnReason = "other"
)

var validReturnReasons = []ReturnReason{
	ReturnReasonWrongSize,
	ReturnReasonWrongColor,
	ReturnReasonDamaged,
	ReturnReasonNotAsDescribed,
	ReturnReasonChangedMind,
	ReturnReasonQuality,
	ReturnReasonOther,
}

// String implements fmt.Stringer.
func (r ReturnReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnReason.
func (r ReturnReason) IsValid() bool {
	for _, candidate := range validReturnReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnReason converts raw input into a ReturnReason.
func ParseReturnReason(value string) (ReturnReason, error) {
	for _, candidate := range validReturnReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return reason %q", value)
}
