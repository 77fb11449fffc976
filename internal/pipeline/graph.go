// Package pipeline defines the candidate recruiting pipeline as a static status
// graph: an adjacency table of legal forward transitions consulted by a single
// CanTransition function, plus the canonical ordering used to detect retreats.
package pipeline

import "fmt"

// Status is a candidate's position in the recruiting pipeline.
type Status string

const (
	StatusLead               Status = "lead"
	StatusTestSent           Status = "test_sent"
	StatusTestPassed         Status = "test_passed"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusInterviewPassed    Status = "interview_passed"
	StatusIntroDayScheduled  Status = "intro_day_scheduled"
	StatusIntroDayPassed     Status = "intro_day_passed"
	StatusHired              Status = "hired"
	StatusDeclined           Status = "declined"
)

// ordering is the canonical pipeline progression, used for retreat detection.
var ordering = []Status{
	StatusLead,
	StatusTestSent,
	StatusTestPassed,
	StatusInterviewScheduled,
	StatusInterviewPassed,
	StatusIntroDayScheduled,
	StatusIntroDayPassed,
	StatusHired,
}

var rank = func() map[Status]int {
	m := make(map[Status]int, len(ordering))
	for i, s := range ordering {
		m[s] = i
	}
	return m
}()

// transitions lists every legal forward edge. Terminal states (hired, declined)
// have no outgoing edges. Declined is reachable from every non-terminal state.
var transitions = map[Status][]Status{
	StatusLead:               {StatusTestSent, StatusTestPassed, StatusInterviewScheduled, StatusDeclined},
	StatusTestSent:           {StatusTestPassed, StatusDeclined},
	StatusTestPassed:         {StatusInterviewScheduled, StatusDeclined},
	StatusInterviewScheduled: {StatusInterviewPassed, StatusDeclined},
	StatusInterviewPassed:    {StatusIntroDayScheduled, StatusDeclined},
	StatusIntroDayScheduled:  {StatusIntroDayPassed, StatusDeclined},
	StatusIntroDayPassed:     {StatusHired, StatusDeclined},
}

// All returns every defined pipeline status.
func All() []Status {
	return []Status{
		StatusLead,
		StatusTestSent,
		StatusTestPassed,
		StatusInterviewScheduled,
		StatusInterviewPassed,
		StatusIntroDayScheduled,
		StatusIntroDayPassed,
		StatusHired,
		StatusDeclined,
	}
}

// Parse converts a raw string to a Status, returning an error for unknown values.
func Parse(s string) (Status, error) {
	st := Status(s)
	for _, known := range All() {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("pipeline: unknown status %q", s)
}

// CanTransition reports whether moving current → target is a legal edge.
func CanTransition(current, target Status) bool {
	for _, allowed := range transitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// IsRetreat reports whether target sits strictly earlier than current in the
// canonical ordering. Callers typically treat a retreat as a silent no-op to
// absorb out-of-order webhook delivery. Declined is never a retreat.
func IsRetreat(current, target Status) bool {
	currentRank, okCurrent := rank[current]
	targetRank, okTarget := rank[target]
	if !okCurrent || !okTarget {
		return false
	}
	return targetRank < currentRank
}
