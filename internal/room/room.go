// Package room implements the host-authoritative state machine for one
// game session and the registry that owns all sessions in the process.
// Every mutating operation on a Room runs under that Room's own lock;
// the registry never serializes across rooms.
package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Djttt/rpsls-battle/internal/apperr"
	"github.com/Djttt/rpsls-battle/internal/game"
)

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

type PlayerStatus string

const (
	StatusReady    PlayerStatus = "ready"
	StatusNotReady PlayerStatus = "not_ready"
)

// Settings are fixed at room creation.
type Settings struct {
	MaxPlayers int
	BestOf     int
	Password   string
}

func (s Settings) validate() error {
	if s.MaxPlayers < 2 {
		return apperr.Validation("max_players must be at least 2, got %d", s.MaxPlayers)
	}
	if s.BestOf < 1 {
		return apperr.Validation("best_of must be at least 1, got %d", s.BestOf)
	}
	return nil
}

type player struct {
	name     string
	addr     string
	status   PlayerStatus
	score    int
	move     game.Move
	moved    bool
	joinedAt time.Time
}

// Recorder is the externally-owned stats sink; the room reports each
// player's outcome exactly once per finished match.
type Recorder interface {
	RecordOutcome(ctx context.Context, player string, outcome game.Outcome) error
}

type Room struct {
	mu sync.Mutex

	id       string
	host     string
	settings Settings
	// quick rooms come from a challenge: the accept handshake starts the
	// match as soon as the room fills.
	quick bool

	phase   Phase
	round   int
	players map[string]*player
	log     eventLog

	stats  Recorder
	logger *zap.Logger
}

func newRoom(id, host, hostAddr string, s Settings, quick bool, stats Recorder, logger *zap.Logger) *Room {
	r := &Room{
		id:       id,
		host:     host,
		settings: s,
		quick:    quick,
		phase:    PhaseLobby,
		players:  make(map[string]*player),
		stats:    stats,
		logger:   logger,
	}
	// The host is always a member, and always ready.
	r.players[host] = &player{
		name:     host,
		addr:     hostAddr,
		status:   StatusReady,
		joinedAt: time.Now(),
	}
	r.log.append(Event{Kind: EvtRoomCreated, Player: host})
	return r
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Host() string { return r.host }

// Join adds a player during the lobby phase. The password check runs
// before the capacity check so a wrong password on a full room still
// reads as unauthorized.
func (r *Room) Join(name, addr, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settings.Password != "" && password != r.settings.Password {
		return apperr.Unauthorized("wrong room password")
	}
	if r.phase != PhaseLobby {
		return apperr.Conflict("room is not accepting players")
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return apperr.Conflict("room is full")
	}
	if _, ok := r.players[name]; ok {
		return apperr.Conflict("%s is already in the room", name)
	}

	r.players[name] = &player{
		name:     name,
		addr:     addr,
		status:   StatusNotReady,
		joinedAt: time.Now(),
	}
	r.log.append(Event{Kind: EvtPlayerJoined, Player: name})
	return nil
}

// ToggleReady flips the player's ready status and returns the new one.
func (r *Room) ToggleReady(name string) (PlayerStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[name]
	if !ok {
		return "", apperr.Unauthorized("%s is not in the room", name)
	}
	if p.status == StatusReady {
		p.status = StatusNotReady
	} else {
		p.status = StatusReady
	}
	r.log.append(Event{Kind: EvtReadyUpdate, Player: name, Status: p.status})
	return p.status, nil
}

// Start moves the room from lobby to active. Host only; needs at least
// two players and every non-host player ready.
func (r *Room) Start(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name != r.host {
		return apperr.Unauthorized("only the host can start the game")
	}
	if r.phase != PhaseLobby {
		return apperr.Conflict("game already started")
	}
	if len(r.players) < 2 {
		return apperr.Conflict("need at least 2 players to start")
	}
	for _, p := range r.players {
		if p.name != r.host && p.status != StatusReady {
			return apperr.Conflict("%s is not ready", p.name)
		}
	}
	r.startLocked()
	return nil
}

func (r *Room) startLocked() {
	r.phase = PhaseActive
	r.round = 1
	for _, p := range r.players {
		p.score = 0
		p.move = ""
		p.moved = false
	}
	r.log.append(Event{Kind: EvtGameStart, Round: r.round})
}

// SubmitMove records the player's move for the current round. When the
// last outstanding move lands, the round resolves in the same critical
// section, so two concurrent submitters cannot both trigger resolution.
func (r *Room) SubmitMove(ctx context.Context, name string, mv game.Move) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseActive {
		return apperr.Conflict("no round in progress")
	}
	p, ok := r.players[name]
	if !ok {
		return apperr.Unauthorized("%s is not in the room", name)
	}

	p.move = mv
	p.moved = true

	for _, q := range r.players {
		if !q.moved {
			r.log.append(Event{Kind: EvtMoveSubmitted, Player: name, Round: r.round})
			return nil
		}
	}
	r.resolveLocked(ctx)
	return nil
}

func (r *Room) resolveLocked(ctx context.Context) {
	moves := make(map[string]game.Move, len(r.players))
	for _, p := range r.players {
		moves[p.name] = p.move
	}

	deltas := game.ScoreRound(moves)
	scores := make(map[string]int, len(r.players))
	for _, p := range r.players {
		p.score += deltas[p.name]
		scores[p.name] = p.score
	}

	if r.round >= r.settings.BestOf {
		r.phase = PhaseFinished
		outcomes := game.Outcomes(scores)
		r.log.append(Event{
			Kind:     EvtGameOver,
			Round:    r.round,
			Moves:    moves,
			Deltas:   deltas,
			Scores:   scores,
			Outcomes: outcomes,
		})
		r.recordLocked(ctx, outcomes)
		return
	}

	r.log.append(Event{
		Kind:   EvtRoundOver,
		Round:  r.round,
		Moves:  moves,
		Deltas: deltas,
		Scores: scores,
	})
	r.round++
	for _, p := range r.players {
		p.move = ""
		p.moved = false
	}
}

// recordLocked pushes final outcomes to the stats sink. A failed write
// never undoes the finished transition; it only leaves the leaderboard
// behind, so it is logged at error level and swallowed.
func (r *Room) recordLocked(ctx context.Context, outcomes map[string]game.Outcome) {
	if r.stats == nil {
		return
	}
	for name, oc := range outcomes {
		if err := r.stats.RecordOutcome(ctx, name, oc); err != nil {
			r.logger.Error("stats record failed, leaderboard will drift",
				zap.String("room", r.id),
				zap.String("player", name),
				zap.Error(err),
			)
		}
	}
}

// Leave removes a player. When the host leaves, or the last player
// leaves, the room is destroyed: the caller must drop it from the
// registry and no event is emitted. When the leaver was the only one
// holding up an active round, the round resolves for the remaining
// players.
func (r *Room) Leave(ctx context.Context, name string) (destroyed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[name]; !ok {
		return false, apperr.Unauthorized("%s is not in the room", name)
	}
	delete(r.players, name)

	if name == r.host || len(r.players) == 0 {
		return true, nil
	}
	r.log.append(Event{Kind: EvtPlayerLeft, Player: name})

	if r.phase == PhaseActive {
		for _, p := range r.players {
			if !p.moved {
				return false, nil
			}
		}
		r.resolveLocked(ctx)
	}
	return false, nil
}

// Emote records an emote event. Deliberately no phase check: players
// can emote in the lobby, mid-round, and after the match.
func (r *Room) Emote(name, emote string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[name]; !ok {
		return apperr.Unauthorized("%s is not in the room", name)
	}
	r.log.append(Event{Kind: EvtEmote, Player: name, Emote: emote})
	return nil
}

// Accept is the host-side half of the invite handshake: the invited
// guest joins already ready, and a challenge room starts the moment it
// fills.
func (r *Room) Accept(name, addr, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settings.Password != "" && password != r.settings.Password {
		return apperr.Unauthorized("wrong room password")
	}
	if r.phase != PhaseLobby {
		return apperr.Conflict("match already underway")
	}
	if _, ok := r.players[name]; ok {
		return apperr.Conflict("%s is already in the room", name)
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return apperr.Conflict("room is full")
	}

	r.players[name] = &player{
		name:     name,
		addr:     addr,
		status:   StatusReady,
		joinedAt: time.Now(),
	}
	r.log.append(Event{Kind: EvtPlayerJoined, Player: name})

	if r.quick && len(r.players) == r.settings.MaxPlayers {
		r.startLocked()
	}
	return nil
}

type PlayerView struct {
	Status   PlayerStatus `json:"status"`
	Score    int          `json:"score"`
	Moved    bool         `json:"moved"`
	Move     game.Move    `json:"move,omitempty"`
	Addr     string       `json:"addr,omitempty"`
	JoinedAt time.Time    `json:"joined_at"`
}

type Snapshot struct {
	ID          string                `json:"id"`
	Host        string                `json:"host"`
	Phase       Phase                 `json:"phase"`
	Round       int                   `json:"round"`
	MaxPlayers  int                   `json:"max_players"`
	BestOf      int                   `json:"best_of"`
	HasPassword bool                  `json:"has_password"`
	Players     map[string]PlayerView `json:"players"`
	LatestSeq   uint64                `json:"latest_seq"`
	Events      []Event               `json:"events,omitempty"`
	Resync      bool                  `json:"resync,omitempty"`
}

// State returns a snapshot plus every event after since. Raw moves stay
// hidden while a round is in flight; only a finished room exposes them
// outside of round_over/game_over events.
func (r *Room) State(since uint64) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make(map[string]PlayerView, len(r.players))
	for name, p := range r.players {
		v := PlayerView{
			Status:   p.status,
			Score:    p.score,
			Moved:    p.moved,
			Addr:     p.addr,
			JoinedAt: p.joinedAt,
		}
		if r.phase == PhaseFinished {
			v.Move = p.move
		}
		players[name] = v
	}

	events, resync := r.log.since(since)
	return Snapshot{
		ID:          r.id,
		Host:        r.host,
		Phase:       r.phase,
		Round:       r.round,
		MaxPlayers:  r.settings.MaxPlayers,
		BestOf:      r.settings.BestOf,
		HasPassword: r.settings.Password != "",
		Players:     players,
		LatestSeq:   r.log.nextSeq,
		Events:      events,
		Resync:      resync,
	}
}
