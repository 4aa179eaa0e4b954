package match_test

import (
	"testing"

	"github.com/mavh/rallyrank/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingMatch(p1Acked, p2Acked bool) *match.Match {
	return &match.Match{
		ID:                  "m1",
		Player1ID:           "alice",
		Player2ID:           "bob",
		Status:              match.StatusPendingAcknowledgement,
		Player1Acknowledged: p1Acked,
		Player2Acknowledged: p2Acked,
	}
}

func TestAckForfeitOutcome(t *testing.T) {
	t.Run("both acknowledged means no forfeit", func(t *testing.T) {
		_, forfeited := match.AckForfeitOutcome(pendingMatch(true, true))
		assert.False(t, forfeited)
	})

	t.Run("sole acknowledger wins seven nil", func(t *testing.T) {
		out, forfeited := match.AckForfeitOutcome(pendingMatch(true, false))
		require.True(t, forfeited)
		require.NotNil(t, out.WinnerID)
		assert.Equal(t, "alice", *out.WinnerID)
		assert.Equal(t, match.ForfeitWinScore, out.Player1Score)
		assert.Equal(t, 0, out.Player2Score)
		assert.Equal(t, match.StatusForfeited, out.Status)
		assert.Equal(t, "ack_forfeit:bob_no_ack", out.Source)
	})

	t.Run("player two as sole acknowledger", func(t *testing.T) {
		out, forfeited := match.AckForfeitOutcome(pendingMatch(false, true))
		require.True(t, forfeited)
		require.NotNil(t, out.WinnerID)
		assert.Equal(t, "bob", *out.WinnerID)
		assert.Equal(t, 0, out.Player1Score)
		assert.Equal(t, match.ForfeitWinScore, out.Player2Score)
		assert.Equal(t, "ack_forfeit:alice_no_ack", out.Source)
	})

	t.Run("neither acknowledged means both lose", func(t *testing.T) {
		out, forfeited := match.AckForfeitOutcome(pendingMatch(false, false))
		require.True(t, forfeited)
		assert.Nil(t, out.WinnerID)
		assert.Equal(t, 0, out.Player1Score)
		assert.Equal(t, 0, out.Player2Score)
		assert.Equal(t, match.SourceAckForfeitBoth, out.Source)
	})
}

func TestTimeoutOutcome(t *testing.T) {
	t.Run("both acknowledged means no winner", func(t *testing.T) {
		out := match.TimeoutOutcome(pendingMatch(true, true))
		assert.Equal(t, match.StatusTimeout, out.Status)
		assert.Nil(t, out.WinnerID)
		assert.Equal(t, 0, out.Player1Score)
		assert.Equal(t, 0, out.Player2Score)
		assert.Equal(t, match.SourceTimeout, out.Source)
	})

	t.Run("acknowledged but unplayed player wins", func(t *testing.T) {
		out := match.TimeoutOutcome(pendingMatch(false, true))
		require.NotNil(t, out.WinnerID)
		assert.Equal(t, "bob", *out.WinnerID)
		assert.Equal(t, match.ForfeitWinScore, out.Player2Score)
	})
}
