// Package httpapi exposes the core over HTTP. Handlers stay thin:
// decode, resolve the room (local or via relay), apply, encode.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Djttt/rpsls-battle/internal/apperr"
	"github.com/Djttt/rpsls-battle/internal/discovery"
	"github.com/Djttt/rpsls-battle/internal/game"
	"github.com/Djttt/rpsls-battle/internal/relay"
	"github.com/Djttt/rpsls-battle/internal/room"
	"github.com/Djttt/rpsls-battle/internal/stats"
	"github.com/Djttt/rpsls-battle/pkg/types"
)

type Handlers struct {
	logger  *zap.Logger
	rooms   *room.Registry
	peers   *discovery.Directory
	relay   *relay.Client
	invites *relay.Inbox
	stats   stats.Recorder
}

func NewHandlers(
	logger *zap.Logger,
	rooms *room.Registry,
	peers *discovery.Directory,
	relayClient *relay.Client,
	invites *relay.Inbox,
	recorder stats.Recorder,
) *Handlers {
	return &Handlers{
		logger:  logger,
		rooms:   rooms,
		peers:   peers,
		relay:   relayClient,
		invites: invites,
		stats:   recorder,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// --- discovery ---

func (h *Handlers) StartDiscovery(w http.ResponseWriter, r *http.Request) {
	player := playerFrom(r)
	if err := h.peers.StartListening(); err != nil {
		writeError(w, apperr.Persistence(err, "start discovery listener"))
		return
	}
	if err := h.peers.StartBroadcasting(player); err != nil {
		writeError(w, apperr.Persistence(err, "start discovery broadcast"))
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "discovery started"})
}

func (h *Handlers) ListPeers(w http.ResponseWriter, r *http.Request) {
	player := playerFrom(r)
	all := h.peers.Peers()
	peers := make([]discovery.Peer, 0, len(all))
	for _, p := range all {
		if p.Name != player {
			peers = append(peers, p)
		}
	}
	writeJSON(w, http.StatusOK, peers)
}

// --- rooms: local intents ---

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rm, err := h.rooms.Create(playerFrom(r), remoteHost(r), room.Settings{
		MaxPlayers: req.MaxPlayers,
		BestOf:     req.BestOf,
		Password:   req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.CreateRoomResponse{RoomID: rm.ID()})
}

func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	player := playerFrom(r)

	var req types.JoinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if rm, err := h.rooms.Get(roomID); err == nil {
		if err := rm.Join(player, remoteHost(r), req.Password); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.StatusResponse{Status: "joined"})
		return
	}

	if req.HostAddr == "" {
		writeError(w, apperr.NotFound("room %s is not hosted here and no host_addr was given", roomID))
		return
	}
	err := h.relay.Join(r.Context(), req.HostAddr, roomID, types.JoinRequest{
		Player:   player,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "joined"})
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	player := playerFrom(r)

	var req types.ReadyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if rm, err := h.rooms.Get(roomID); err == nil {
		status, err := rm.ToggleReady(player)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ReadyResponse{Status: string(status)})
		return
	}

	if req.HostAddr == "" {
		writeError(w, apperr.NotFound("room %s is not hosted here and no host_addr was given", roomID))
		return
	}
	status, err := h.relay.Ready(r.Context(), req.HostAddr, roomID, player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ReadyResponse{Status: status})
}

func (h *Handlers) Start(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rm.Start(playerFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "started"})
}

func (h *Handlers) Move(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	player := playerFrom(r)

	var req types.MoveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	mv, ok := game.Parse(req.Move)
	if !ok {
		writeError(w, apperr.Validation("unknown move %q", req.Move))
		return
	}

	if rm, err := h.rooms.Get(roomID); err == nil {
		if err := rm.SubmitMove(r.Context(), player, mv); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.StatusResponse{Status: "move received"})
		return
	}

	if req.HostAddr == "" {
		writeError(w, apperr.NotFound("room %s is not hosted here and no host_addr was given", roomID))
		return
	}
	err := h.relay.Move(r.Context(), req.HostAddr, roomID, types.MoveRequest{Player: player, Move: req.Move})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "move received"})
}

func (h *Handlers) Emote(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	player := playerFrom(r)

	var req types.EmoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Emote == "" {
		writeError(w, apperr.Validation("missing emote"))
		return
	}

	if rm, err := h.rooms.Get(roomID); err == nil {
		if err := rm.Emote(player, req.Emote); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.StatusResponse{Status: "emote sent"})
		return
	}

	if req.HostAddr == "" {
		writeError(w, apperr.NotFound("room %s is not hosted here and no host_addr was given", roomID))
		return
	}
	err := h.relay.Emote(r.Context(), req.HostAddr, roomID, types.EmoteRequest{Player: player, Emote: req.Emote})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "emote sent"})
}

func (h *Handlers) Leave(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	player := playerFrom(r)

	var req types.LeaveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if rm, err := h.rooms.Get(roomID); err == nil {
		h.leaveLocal(w, r, rm, player)
		return
	}

	if req.HostAddr == "" {
		writeError(w, apperr.NotFound("room %s is not hosted here and no host_addr was given", roomID))
		return
	}
	if err := h.relay.Leave(r.Context(), req.HostAddr, roomID, player); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "left"})
}

func (h *Handlers) leaveLocal(w http.ResponseWriter, r *http.Request, rm *room.Room, player string) {
	destroyed, err := rm.Leave(r.Context(), player)
	if err != nil {
		writeError(w, err)
		return
	}
	if destroyed {
		h.rooms.Delete(rm.ID())
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "left"})
}

// Accept is the guest-side half of the invite handshake: it forwards a
// notifyAccept to the host named in the invite.
func (h *Handlers) Accept(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	player := playerFrom(r)

	var req types.AcceptRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.HostAddr == "" {
		writeError(w, apperr.Validation("missing host_addr"))
		return
	}

	err := h.relay.NotifyAccept(r.Context(), req.HostAddr, roomID, types.AcceptRequest{
		Player:   player,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "accepted"})
}

// Challenge creates a 2-player best-of-1 room and delivers an invite to
// the target. If delivery fails the room is rolled back before the
// error surfaces, so no orphaned room lingers.
func (h *Handlers) Challenge(w http.ResponseWriter, r *http.Request) {
	player := playerFrom(r)

	var req types.ChallengeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TargetAddr == "" || req.TargetPlayer == "" {
		writeError(w, apperr.Validation("missing target_addr or target_player"))
		return
	}

	rm, err := h.rooms.CreateQuick(player, remoteHost(r), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.relay.DeliverInvite(r.Context(), req.TargetAddr, types.InviteNotice{
		TargetPlayer: req.TargetPlayer,
		FromPlayer:   player,
		RoomID:       rm.ID(),
		HasPassword:  req.Password != "",
	})
	if err != nil {
		h.rooms.Delete(rm.ID())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChallengeResponse{RoomID: rm.ID(), Status: "invite_sent"})
}

func (h *Handlers) ListInvites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.invites.List(playerFrom(r)))
}

// --- peer-facing endpoints ---

func (h *Handlers) ReceiveInvite(w http.ResponseWriter, r *http.Request) {
	var inv types.InviteNotice
	if err := decode(r, &inv); err != nil {
		writeError(w, err)
		return
	}
	if inv.TargetPlayer == "" || inv.FromPlayer == "" || inv.RoomID == "" {
		writeError(w, apperr.Validation("missing invite fields"))
		return
	}
	fromAddr := inv.FromAddr
	if fromAddr == "" {
		fromAddr = remoteHost(r)
	}
	h.invites.Add(inv.TargetPlayer, relay.Invite{
		From:        inv.FromPlayer,
		FromAddr:    fromAddr,
		RoomID:      inv.RoomID,
		HasPassword: inv.HasPassword,
		At:          time.Now(),
	})
	h.logger.Info("invite received",
		zap.String("target", inv.TargetPlayer),
		zap.String("from", inv.FromPlayer),
		zap.String("room", inv.RoomID),
	)
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "invite received"})
}

func (h *Handlers) RoomState(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)

	if rm, err := h.rooms.Get(roomID); err == nil {
		writeJSON(w, http.StatusOK, rm.State(since))
		return
	}

	if hostAddr := r.URL.Query().Get("host_addr"); hostAddr != "" {
		snap, err := h.relay.FetchState(r.Context(), hostAddr, roomID, since)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}
	writeError(w, apperr.NotFound("room %s not found", roomID))
}

func (h *Handlers) RemoteJoin(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req types.JoinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Player == "" {
		writeError(w, apperr.Validation("missing player"))
		return
	}
	addr := req.Addr
	if addr == "" {
		addr = remoteHost(r)
	}
	if err := rm.Join(req.Player, addr, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "joined"})
}

func (h *Handlers) RemoteReady(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req types.ReadyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, err := rm.ToggleReady(req.Player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ReadyResponse{Status: string(status)})
}

func (h *Handlers) RemoteMove(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req types.MoveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	mv, ok := game.Parse(req.Move)
	if !ok {
		writeError(w, apperr.Validation("unknown move %q", req.Move))
		return
	}
	if err := rm.SubmitMove(r.Context(), req.Player, mv); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "move received"})
}

func (h *Handlers) RemoteEmote(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req types.EmoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := rm.Emote(req.Player, req.Emote); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "emote sent"})
}

func (h *Handlers) RemoteLeave(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req types.LeaveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.leaveLocal(w, r, rm, req.Player)
}

func (h *Handlers) NotifyAccept(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Get(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req types.AcceptRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Player == "" {
		writeError(w, apperr.Validation("missing player"))
		return
	}
	addr := req.Addr
	if addr == "" {
		addr = remoteHost(r)
	}
	if err := rm.Accept(req.Player, addr, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "accepted"})
}

// --- leaderboard ---

func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, apperr.Validation("n must be a positive integer"))
			return
		}
		n = parsed
	}
	entries, err := h.stats.TopByWins(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- helpers ---

// decode tolerates an empty body: operations like ready carry no
// required fields when issued against the hosting instance.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("bad request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), types.ErrorBody{
		Error: err.Error(),
		Code:  string(apperr.KindOf(err)),
	})
}

// remoteHost strips the port from the request's source address. Relayed
// joins record this as the joining player's address, matching how
// discovery identifies peers.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
