package room

import (
	"time"

	"github.com/Djttt/rpsls-battle/internal/game"
)

type EventKind string

const (
	EvtRoomCreated   EventKind = "room_created"
	EvtPlayerJoined  EventKind = "player_joined"
	EvtReadyUpdate   EventKind = "ready_update"
	EvtGameStart     EventKind = "game_start"
	EvtMoveSubmitted EventKind = "move_submitted"
	EvtRoundOver     EventKind = "round_over"
	EvtGameOver      EventKind = "game_over"
	EvtPlayerLeft    EventKind = "player_left"
	EvtEmote         EventKind = "emote"
)

// Event is one entry in a room's sequenced log. Moves only ever appear
// on round_over and game_over events; in-flight rounds stay hidden.
type Event struct {
	Seq      uint64                  `json:"seq"`
	Kind     EventKind               `json:"kind"`
	At       time.Time               `json:"at"`
	Player   string                  `json:"player,omitempty"`
	Status   PlayerStatus            `json:"status,omitempty"`
	Emote    string                  `json:"emote,omitempty"`
	Round    int                     `json:"round,omitempty"`
	Moves    map[string]game.Move    `json:"moves,omitempty"`
	Deltas   map[string]int          `json:"deltas,omitempty"`
	Scores   map[string]int          `json:"scores,omitempty"`
	Outcomes map[string]game.Outcome `json:"outcomes,omitempty"`
}

// eventLogCap bounds the per-room log. A poller further behind than this
// gets a resync signal instead of a gap it cannot detect.
const eventLogCap = 64

type eventLog struct {
	entries []Event
	nextSeq uint64
}

func (l *eventLog) append(e Event) {
	l.nextSeq++
	e.Seq = l.nextSeq
	e.At = time.Now()
	l.entries = append(l.entries, e)
	if len(l.entries) > eventLogCap {
		l.entries = l.entries[len(l.entries)-eventLogCap:]
	}
}

// since returns every retained event with Seq > seq. The second return
// is true when events newer than seq have already been evicted, meaning
// the caller missed some and must resynchronize from the snapshot.
func (l *eventLog) since(seq uint64) ([]Event, bool) {
	if len(l.entries) == 0 {
		return nil, false
	}
	oldest := l.entries[0].Seq
	resync := seq+1 < oldest
	var out []Event
	for _, e := range l.entries {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out, resync
}
