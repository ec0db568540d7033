package enums

import "fmt"

// ReturnStatus is the lifecycle state of a return request. Transitions are
// validated against the transition table below on every write; any edge not
// listed is rejected.
type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusLabelSent ReturnStatus = "label_sent"
	ReturnStatusInTransit ReturnStatus = "in_transit"
	ReturnStatusReceived  ReturnStatus = "received"
	ReturnStatusRefunded  ReturnStatus = "refunded"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusCancelled ReturnStatus = "cancelled"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusLabelSent,
	ReturnStatusInTransit,
	ReturnStatusReceived,
	ReturnStatusRefunded,
	ReturnStatusRejected,
	ReturnStatusCancelled,
}

// returnTransitions is the single source of truth for legal edges.
var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusRequested: {ReturnStatusApproved, ReturnStatusCancelled},
	ReturnStatusApproved:  {ReturnStatusLabelSent, ReturnStatusRejected, ReturnStatusCancelled},
	ReturnStatusLabelSent: {ReturnStatusInTransit, ReturnStatusCancelled},
	ReturnStatusInTransit: {ReturnStatusReceived, ReturnStatusCancelled},
	ReturnStatusReceived:  {ReturnStatusRefunded},
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (r ReturnStatus) IsTerminal() bool {
	return len(returnTransitions[r]) == 0 && r.IsValid()
}

// CanTransitionTo reports whether the edge r -> target is legal.
func (r ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	for _, candidate := range returnTransitions[r] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
