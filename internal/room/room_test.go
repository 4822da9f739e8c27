package room

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Djttt/rpsls-battle/internal/apperr"
	"github.com/Djttt/rpsls-battle/internal/game"
)

// fakeRecorder counts outcomes so tests can assert the stats sink is
// hit exactly once per player per finished match.
type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string][]game.Outcome
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{outcomes: make(map[string][]game.Outcome)}
}

func (f *fakeRecorder) RecordOutcome(_ context.Context, player string, outcome game.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[player] = append(f.outcomes[player], outcome)
	return nil
}

func newTestRoom(t *testing.T, s Settings) (*Room, *fakeRecorder) {
	t.Helper()
	rec := newFakeRecorder()
	reg := NewRegistry(zap.NewNop(), rec)
	rm, err := reg.Create("alice", "10.0.0.1", s)
	require.NoError(t, err)
	return rm, rec
}

func kindOf(err error) apperr.Kind { return apperr.KindOf(err) }

func TestHostIsAlwaysMemberAndReady(t *testing.T) {
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 2, BestOf: 1})
	snap := rm.State(0)

	require.Contains(t, snap.Players, "alice")
	assert.Equal(t, StatusReady, snap.Players["alice"].Status)
	assert.Equal(t, PhaseLobby, snap.Phase)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, EvtRoomCreated, snap.Events[0].Kind)
}

func TestJoinGuards(t *testing.T) {
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 2, BestOf: 1, Password: "sekrit"})

	err := rm.Join("bob", "10.0.0.2", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))

	require.NoError(t, rm.Join("bob", "10.0.0.2", "sekrit"))

	err = rm.Join("bob", "10.0.0.2", "sekrit")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, kindOf(err), "duplicate join")

	err = rm.Join("carol", "10.0.0.3", "sekrit")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, kindOf(err), "room full")
}

func TestJoinRejectedOutsideLobby(t *testing.T) {
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 3, BestOf: 1})
	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))
	_, err := rm.ToggleReady("bob")
	require.NoError(t, err)
	require.NoError(t, rm.Start("alice"))

	err = rm.Join("carol", "10.0.0.3", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, kindOf(err))
}

func TestToggleReadyIsAnInvolution(t *testing.T) {
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 2, BestOf: 1})
	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))

	first, err := rm.ToggleReady("bob")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, first)

	second, err := rm.ToggleReady("bob")
	require.NoError(t, err)
	assert.Equal(t, StatusNotReady, second)

	_, err = rm.ToggleReady("mallory")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))
}

func TestStartGuards(t *testing.T) {
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 3, BestOf: 3})

	err := rm.Start("alice")
	require.Error(t, err, "cannot start alone")
	assert.Equal(t, apperr.KindConflict, kindOf(err))

	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))

	err = rm.Start("bob")
	require.Error(t, err, "only the host starts")
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))

	err = rm.Start("alice")
	require.Error(t, err, "bob is not ready")
	assert.Equal(t, apperr.KindConflict, kindOf(err))

	_, err = rm.ToggleReady("bob")
	require.NoError(t, err)
	require.NoError(t, rm.Start("alice"))

	snap := rm.State(0)
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, 1, snap.Round)

	err = rm.Start("alice")
	require.Error(t, err, "double start")
	assert.Equal(t, apperr.KindConflict, kindOf(err))
}

func TestBestOfThreeMatch(t *testing.T) {
	ctx := context.Background()
	rm, rec := newTestRoom(t, Settings{MaxPlayers: 2, BestOf: 3})
	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))
	_, err := rm.ToggleReady("bob")
	require.NoError(t, err)
	require.NoError(t, rm.Start("alice"))

	// Round 1: rock crushes scissors.
	require.NoError(t, rm.SubmitMove(ctx, "alice", game.Rock))

	snap := rm.State(0)
	assert.True(t, snap.Players["alice"].Moved)
	assert.Empty(t, snap.Players["alice"].Move, "moves stay hidden mid-round")

	require.NoError(t, rm.SubmitMove(ctx, "bob", game.Scissors))

	snap = rm.State(0)
	assert.Equal(t, 2, snap.Round)
	assert.Equal(t, 1, snap.Players["alice"].Score)
	assert.Equal(t, 0, snap.Players["bob"].Score)
	assert.False(t, snap.Players["alice"].Moved, "moves reset between rounds")

	last := snap.Events[len(snap.Events)-1]
	assert.Equal(t, EvtRoundOver, last.Kind)
	assert.Equal(t, game.Rock, last.Moves["alice"])
	assert.Equal(t, map[string]int{"alice": 1, "bob": 0}, last.Deltas)

	// Round 2: paper disproves spock.
	require.NoError(t, rm.SubmitMove(ctx, "alice", game.Paper))
	require.NoError(t, rm.SubmitMove(ctx, "bob", game.Spock))

	snap = rm.State(0)
	assert.Equal(t, 3, snap.Round)
	assert.Equal(t, 2, snap.Players["alice"].Score)

	// Round 3: a draw still ends the series at best_of.
	require.NoError(t, rm.SubmitMove(ctx, "alice", game.Lizard))
	require.NoError(t, rm.SubmitMove(ctx, "bob", game.Lizard))

	snap = rm.State(0)
	assert.Equal(t, PhaseFinished, snap.Phase)
	assert.Equal(t, game.Lizard, snap.Players["alice"].Move, "finished rooms reveal moves")

	last = snap.Events[len(snap.Events)-1]
	require.Equal(t, EvtGameOver, last.Kind)
	assert.Equal(t, game.Win, last.Outcomes["alice"])
	assert.Equal(t, game.Loss, last.Outcomes["bob"])

	assert.Equal(t, []game.Outcome{game.Win}, rec.outcomes["alice"])
	assert.Equal(t, []game.Outcome{game.Loss}, rec.outcomes["bob"])

	err = rm.SubmitMove(ctx, "alice", game.Rock)
	require.Error(t, err, "no round after the match ends")
	assert.Equal(t, apperr.KindConflict, kindOf(err))
}

func TestSubmitMoveGuards(t *testing.T) {
	ctx := context.Background()
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 2, BestOf: 1})

	err := rm.SubmitMove(ctx, "alice", game.Rock)
	require.Error(t, err, "no round in the lobby")
	assert.Equal(t, apperr.KindConflict, kindOf(err))

	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))
	_, err = rm.ToggleReady("bob")
	require.NoError(t, err)
	require.NoError(t, rm.Start("alice"))

	err = rm.SubmitMove(ctx, "mallory", game.Rock)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 3, BestOf: 1})
	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))
	require.NoError(t, rm.Join("carol", "10.0.0.3", ""))

	destroyed, err := rm.Leave(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, destroyed, "room survives a guest leaving")

	snap := rm.State(0)
	assert.NotContains(t, snap.Players, "bob")
	assert.Equal(t, EvtPlayerLeft, snap.Events[len(snap.Events)-1].Kind)

	destroyed, err = rm.Leave(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, destroyed, "host leaving destroys the room")
}

func TestLeaveLastPlayerDestroysRoom(t *testing.T) {
	ctx := context.Background()
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 2, BestOf: 1})
	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))

	destroyed, err := rm.Leave(ctx, "bob")
	require.NoError(t, err)
	require.False(t, destroyed)

	destroyed, err = rm.Leave(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, destroyed)

	_, err = rm.Leave(ctx, "alice")
	require.Error(t, err, "leaving twice is rejected")
}

func TestLeaveResolvesRoundWhenRemainingAllMoved(t *testing.T) {
	ctx := context.Background()
	rm, rec := newTestRoom(t, Settings{MaxPlayers: 3, BestOf: 1})
	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))
	require.NoError(t, rm.Join("carol", "10.0.0.3", ""))
	_, err := rm.ToggleReady("bob")
	require.NoError(t, err)
	_, err = rm.ToggleReady("carol")
	require.NoError(t, err)
	require.NoError(t, rm.Start("alice"))

	require.NoError(t, rm.SubmitMove(ctx, "alice", game.Rock))
	require.NoError(t, rm.SubmitMove(ctx, "bob", game.Scissors))

	// Carol was the only one still to move; her leaving must not leave
	// the round open forever.
	destroyed, err := rm.Leave(ctx, "carol")
	require.NoError(t, err)
	require.False(t, destroyed)

	snap := rm.State(0)
	assert.Equal(t, PhaseFinished, snap.Phase)
	assert.Equal(t, 1, snap.Players["alice"].Score)
	assert.Equal(t, 0, snap.Players["bob"].Score)
	assert.NotContains(t, snap.Players, "carol")

	// The log shows the departure first, then the resolution.
	last := snap.Events[len(snap.Events)-1]
	require.Equal(t, EvtGameOver, last.Kind)
	assert.Equal(t, EvtPlayerLeft, snap.Events[len(snap.Events)-2].Kind)
	assert.NotContains(t, last.Moves, "carol")

	assert.Equal(t, []game.Outcome{game.Win}, rec.outcomes["alice"])
	assert.Equal(t, []game.Outcome{game.Loss}, rec.outcomes["bob"])
	assert.Empty(t, rec.outcomes["carol"], "the leaver records no outcome")
}

func TestLeaveMidRoundWithMovesOutstandingKeepsRoundOpen(t *testing.T) {
	ctx := context.Background()
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 3, BestOf: 1})
	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))
	require.NoError(t, rm.Join("carol", "10.0.0.3", ""))
	_, err := rm.ToggleReady("bob")
	require.NoError(t, err)
	_, err = rm.ToggleReady("carol")
	require.NoError(t, err)
	require.NoError(t, rm.Start("alice"))

	require.NoError(t, rm.SubmitMove(ctx, "alice", game.Rock))

	// Bob and carol both still owe a move, so bob leaving resolves
	// nothing.
	destroyed, err := rm.Leave(ctx, "bob")
	require.NoError(t, err)
	require.False(t, destroyed)

	snap := rm.State(0)
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, EvtPlayerLeft, snap.Events[len(snap.Events)-1].Kind)
}

func TestEmoteHasNoPhaseCheck(t *testing.T) {
	ctx := context.Background()
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 2, BestOf: 1})

	require.NoError(t, rm.Emote("alice", "wave"))

	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))
	_, err := rm.ToggleReady("bob")
	require.NoError(t, err)
	require.NoError(t, rm.Start("alice"))
	require.NoError(t, rm.SubmitMove(ctx, "alice", game.Rock))
	require.NoError(t, rm.SubmitMove(ctx, "bob", game.Scissors))

	require.NoError(t, rm.Emote("bob", "gg"), "emotes still work after the match")

	err = rm.Emote("mallory", "hi")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))
}

func TestAcceptStartsQuickMatchWhenFull(t *testing.T) {
	rec := newFakeRecorder()
	reg := NewRegistry(zap.NewNop(), rec)
	rm, err := reg.CreateQuick("alice", "10.0.0.1", "pw")
	require.NoError(t, err)

	err = rm.Accept("bob", "10.0.0.2", "nope")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, kindOf(err))

	require.NoError(t, rm.Accept("bob", "10.0.0.2", "pw"))

	snap := rm.State(0)
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, 1, snap.BestOf)
	assert.Equal(t, 2, snap.MaxPlayers)

	err = rm.Accept("carol", "10.0.0.3", "pw")
	require.Error(t, err, "match already underway")
	assert.Equal(t, apperr.KindConflict, kindOf(err))
}

func TestEventLogSinceAndResync(t *testing.T) {
	rm, _ := newTestRoom(t, Settings{MaxPlayers: 2, BestOf: 1})
	require.NoError(t, rm.Join("bob", "10.0.0.2", ""))

	// Push well past the log bound.
	for i := 0; i < eventLogCap+10; i++ {
		_, err := rm.ToggleReady("bob")
		require.NoError(t, err)
	}

	snap := rm.State(0)
	assert.True(t, snap.Resync, "a poller at seq 0 fell off the log")
	assert.Len(t, snap.Events, eventLogCap)

	snap = rm.State(snap.LatestSeq - 1)
	assert.False(t, snap.Resync)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, snap.LatestSeq, snap.Events[0].Seq)

	snap = rm.State(snap.LatestSeq)
	assert.Empty(t, snap.Events, "caught-up poller sees nothing new")
	assert.False(t, snap.Resync)
}
