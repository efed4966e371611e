package domain

import (
	"fmt"
	"strings"
)

// Referability is the lead status gate's verdict for a status.
type Referability int

const (
	// ReferabilityUnspecified means the status carries no explicit flag and the
	// status name decides.
	ReferabilityUnspecified Referability = iota
	ReferabilityReferable
	ReferabilityNotReferable
)

var closedStatuses = map[string]struct{}{
	"closed":    {},
	"converted": {},
}

// ReferabilityFromFlag maps the nullable can_be_referred column.
func ReferabilityFromFlag(flag *bool) Referability {
	switch {
	case flag == nil:
		return ReferabilityUnspecified
	case *flag:
		return ReferabilityReferable
	default:
		return ReferabilityNotReferable
	}
}

// Allows reports whether a lead in status may be handed off.
func (r Referability) Allows(status string) bool {
	switch r {
	case ReferabilityReferable:
		return true
	case ReferabilityNotReferable:
		return false
	default:
		_, closed := closedStatuses[strings.ToLower(strings.TrimSpace(status))]
		return !closed
	}
}

func (r Referability) String() string {
	switch r {
	case ReferabilityReferable:
		return "referable"
	case ReferabilityNotReferable:
		return "not_referable"
	default:
		return "unspecified"
	}
}

// NotReferableMessage is the rejection shown when the gate denies a handoff.
func NotReferableMessage(status string) string {
	return fmt.Sprintf("Leads with status \"%s\" cannot be referred.", status)
}
