package match

// Outcome is the resolved result of a deadline expiry. Keeping the decision
// pure lets the store apply it inside a single write and the tests exercise
// the scoring rules without a database.
type Outcome struct {
	Status       Status
	WinnerID     *string
	Player1Score int
	Player2Score int
	Source       string
}

// AckForfeitOutcome decides the result of a match whose acknowledgement
// deadline passed while still PENDING_ACKNOWLEDGEMENT.
//
// Both players acknowledged: no forfeit, the match proceeds (ok is false).
// Exactly one acknowledged: that player wins 7-0. Neither acknowledged: both
// lose, 0-0, no winner.
func AckForfeitOutcome(m *Match) (Outcome, bool) {
	if m.Player1Acknowledged && m.Player2Acknowledged {
		return Outcome{}, false
	}

	out := Outcome{Status: StatusForfeited}
	switch {
	case m.Player1Acknowledged:
		winner := m.Player1ID
		out.WinnerID = &winner
		out.Player1Score = ForfeitWinScore
		out.Source = AckForfeitSource(m.Player2ID)
	case m.Player2Acknowledged:
		winner := m.Player2ID
		out.WinnerID = &winner
		out.Player2Score = ForfeitWinScore
		out.Source = AckForfeitSource(m.Player1ID)
	default:
		out.Source = SourceAckForfeitBoth
	}
	return out, true
}

// TimeoutOutcome decides the result of a SCHEDULED match whose deadline
// passed before it ever started. The winner is determined by
// acknowledgement alone; with both or neither acknowledged there is no
// winner. IN_PROGRESS matches never reach this path.
func TimeoutOutcome(m *Match) Outcome {
	out := Outcome{Status: StatusTimeout, Source: SourceTimeout}
	switch {
	case m.Player1Acknowledged && !m.Player2Acknowledged:
		winner := m.Player1ID
		out.WinnerID = &winner
		out.Player1Score = ForfeitWinScore
	case m.Player2Acknowledged && !m.Player1Acknowledged:
		winner := m.Player2ID
		out.WinnerID = &winner
		out.Player2Score = ForfeitWinScore
	}
	return out
}
