// Package types defines the wire shapes shared by the HTTP handlers and
// the relay client, so both sides of a peer call agree on field names.
package types

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type CreateRoomRequest struct {
	MaxPlayers int    `json:"max_players"`
	BestOf     int    `json:"best_of"`
	Password   string `json:"password,omitempty"`
}

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

// JoinRequest serves both the local call and the relayed remote_join.
// HostAddr is only meaningful locally: it tells this instance where the
// room actually lives. Addr is only meaningful remotely: it is the
// joiner's address as the host should record it (the host falls back to
// the connection's source address when empty).
type JoinRequest struct {
	Player   string `json:"player"`
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	HostAddr string `json:"host_addr,omitempty"`
}

type ReadyRequest struct {
	Player   string `json:"player"`
	HostAddr string `json:"host_addr,omitempty"`
}

type ReadyResponse struct {
	Status string `json:"status"`
}

type MoveRequest struct {
	Player   string `json:"player"`
	Move     string `json:"move"`
	HostAddr string `json:"host_addr,omitempty"`
}

type EmoteRequest struct {
	Player   string `json:"player"`
	Emote    string `json:"emote"`
	HostAddr string `json:"host_addr,omitempty"`
}

type LeaveRequest struct {
	Player   string `json:"player"`
	HostAddr string `json:"host_addr,omitempty"`
}

type AcceptRequest struct {
	Player   string `json:"player"`
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	HostAddr string `json:"host_addr,omitempty"`
}

type ChallengeRequest struct {
	TargetAddr   string `json:"target_addr"`
	TargetPlayer string `json:"target_player"`
	Password     string `json:"password,omitempty"`
}

type ChallengeResponse struct {
	RoomID string `json:"room_id"`
	Status string `json:"status"`
}

// InviteNotice is the inbound deliverInvite payload.
type InviteNotice struct {
	TargetPlayer string `json:"target_player"`
	FromPlayer   string `json:"from_player"`
	FromAddr     string `json:"from_addr,omitempty"`
	RoomID       string `json:"room_id"`
	HasPassword  bool   `json:"has_password"`
}
