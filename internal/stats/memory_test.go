package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Djttt/rpsls-battle/internal/game"
)

func TestMemoryTally(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.RecordOutcome(ctx, "alice", game.Win))
	require.NoError(t, m.RecordOutcome(ctx, "alice", game.Win))
	require.NoError(t, m.RecordOutcome(ctx, "alice", game.Loss))
	require.NoError(t, m.RecordOutcome(ctx, "bob", game.Win))
	require.NoError(t, m.RecordOutcome(ctx, "bob", game.Draw))
	require.NoError(t, m.RecordOutcome(ctx, "carol", game.Loss))

	entries, err := m.TopByWins(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Player: "alice", Wins: 2, Losses: 1}, entries[0])
	assert.Equal(t, Entry{Player: "bob", Wins: 1, Draws: 1}, entries[1])
	assert.Equal(t, Entry{Player: "carol", Losses: 1}, entries[2])
}

func TestMemoryTopByWinsTruncates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, p := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.RecordOutcome(ctx, p, game.Win))
	}

	entries, err := m.TopByWins(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMemoryRejectsUnknownOutcome(t *testing.T) {
	m := NewMemory()
	err := m.RecordOutcome(context.Background(), "alice", game.Outcome("rage-quit"))
	require.Error(t, err)
}
