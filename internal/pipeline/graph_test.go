package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionClosure(t *testing.T) {
	// Every legal edge must be forward (or to declined); everything else is rejected.
	legal := map[[2]Status]bool{}
	for current, targets := range transitions {
		for _, target := range targets {
			legal[[2]Status{current, target}] = true
		}
	}

	for _, current := range All() {
		for _, target := range All() {
			got := CanTransition(current, target)
			require.Equal(t, legal[[2]Status{current, target}], got,
				"transition %s -> %s", current, target)
		}
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	require.True(t, IsTerminal(StatusHired))
	require.True(t, IsTerminal(StatusDeclined))

	for _, target := range All() {
		require.False(t, CanTransition(StatusHired, target))
		require.False(t, CanTransition(StatusDeclined, target))
	}
}

func TestDeclinedReachableFromEveryNonTerminalState(t *testing.T) {
	for _, current := range All() {
		if IsTerminal(current) {
			continue
		}
		require.True(t, CanTransition(current, StatusDeclined), "from %s", current)
	}
}

func TestIsRetreat(t *testing.T) {
	require.True(t, IsRetreat(StatusInterviewPassed, StatusTestSent))
	require.False(t, IsRetreat(StatusTestSent, StatusInterviewPassed))
	require.False(t, IsRetreat(StatusTestSent, StatusTestSent))

	// Declined has no rank, so it is never a retreat in either direction.
	require.False(t, IsRetreat(StatusInterviewPassed, StatusDeclined))
	require.False(t, IsRetreat(StatusDeclined, StatusLead))
}

func TestParse(t *testing.T) {
	status, err := Parse("intro_day_passed")
	require.NoError(t, err)
	require.Equal(t, StatusIntroDayPassed, status)

	_, err = Parse("promoted_to_ceo")
	require.Error(t, err)
}
