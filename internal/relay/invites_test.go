package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxDropsOldestWhenFull(t *testing.T) {
	box := NewInbox(3)
	for i, roomID := range []string{"r1", "r2", "r3", "r4", "r5"} {
		box.Add("bob", Invite{
			From:   "alice",
			RoomID: roomID,
			At:     time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	invites := box.List("bob")
	require.Len(t, invites, 3)
	assert.Equal(t, "r3", invites[0].RoomID)
	assert.Equal(t, "r5", invites[2].RoomID)
}

func TestInboxListDoesNotConsume(t *testing.T) {
	box := NewInbox(DefaultInboxCap)
	box.Add("bob", Invite{From: "alice", RoomID: "r1"})

	first := box.List("bob")
	second := box.List("bob")
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	// Mutating the returned slice must not leak into the box.
	first[0].RoomID = "tampered"
	assert.Equal(t, "r1", box.List("bob")[0].RoomID)
}

func TestInboxIsPerTarget(t *testing.T) {
	box := NewInbox(DefaultInboxCap)
	box.Add("bob", Invite{From: "alice", RoomID: "r1"})

	assert.Empty(t, box.List("carol"))
	assert.Len(t, box.List("bob"), 1)
}
