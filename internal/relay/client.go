// Package relay implements the cross-instance side of the protocol: a
// typed client for the host's public endpoints, and the bounded invite
// box that inbound deliverInvite calls append to.
//
// Every call is at-most-once: a timeout or connection failure surfaces
// as an unreachable error and is never retried.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Djttt/rpsls-battle/internal/apperr"
	"github.com/Djttt/rpsls-battle/internal/room"
	"github.com/Djttt/rpsls-battle/pkg/types"
)

// DefaultPeerPort is the API port every instance is assumed to listen
// on; discovery only exchanges addresses.
const DefaultPeerPort = 5001

// Per-operation timeouts. Lobby-phase handshakes get the long one,
// in-round traffic the short one.
const (
	slowCallTimeout = 5 * time.Second
	fastCallTimeout = 2 * time.Second
)

type Client struct {
	http     *http.Client
	logger   *zap.Logger
	peerPort int
}

type ClientOption func(*Client)

func WithPeerPort(port int) ClientOption {
	return func(c *Client) { c.peerPort = port }
}

func NewClient(logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		http:     &http.Client{},
		logger:   logger,
		peerPort: DefaultPeerPort,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeliverInvite drops an invite at the target instance.
func (c *Client) DeliverInvite(ctx context.Context, addr string, inv types.InviteNotice) error {
	return c.post(ctx, slowCallTimeout, addr, "/api/relay/invite", inv, nil)
}

// Join relays a local player's join intent to the room's host.
func (c *Client) Join(ctx context.Context, addr, roomID string, req types.JoinRequest) error {
	return c.post(ctx, slowCallTimeout, addr, "/api/rooms/"+roomID+"/remote_join", req, nil)
}

// Ready relays a ready toggle and returns the player's new status.
func (c *Client) Ready(ctx context.Context, addr, roomID, player string) (string, error) {
	var resp types.ReadyResponse
	err := c.post(ctx, fastCallTimeout, addr, "/api/rooms/"+roomID+"/remote_ready",
		types.ReadyRequest{Player: player}, &resp)
	return resp.Status, err
}

// NotifyAccept tells the host that the invited player accepted.
func (c *Client) NotifyAccept(ctx context.Context, addr, roomID string, req types.AcceptRequest) error {
	return c.post(ctx, slowCallTimeout, addr, "/api/rooms/"+roomID+"/notify_accept", req, nil)
}

// Move relays a move submission.
func (c *Client) Move(ctx context.Context, addr, roomID string, req types.MoveRequest) error {
	return c.post(ctx, fastCallTimeout, addr, "/api/rooms/"+roomID+"/remote_move", req, nil)
}

// Emote relays an emote.
func (c *Client) Emote(ctx context.Context, addr, roomID string, req types.EmoteRequest) error {
	return c.post(ctx, fastCallTimeout, addr, "/api/rooms/"+roomID+"/remote_emote", req, nil)
}

// Leave relays a leave intent.
func (c *Client) Leave(ctx context.Context, addr, roomID, player string) error {
	return c.post(ctx, fastCallTimeout, addr, "/api/rooms/"+roomID+"/remote_leave",
		types.LeaveRequest{Player: player}, nil)
}

// FetchState polls the host's get_state endpoint.
func (c *Client) FetchState(ctx context.Context, addr, roomID string, since uint64) (*room.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, fastCallTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/api/rooms/%s/state?since=%d", c.peerAddr(addr), roomID, since)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Validation("bad state request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Unreachable(err, "peer %s unreachable", addr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.wireError(resp)
	}
	var snap room.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, apperr.Unreachable(err, "peer %s sent a bad snapshot", addr)
	}
	return &snap, nil
}

func (c *Client) post(ctx context.Context, timeout time.Duration, addr, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.Validation("bad relay payload: %v", err)
	}

	url := "http://" + c.peerAddr(addr) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperr.Validation("bad relay request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("relay call failed", zap.String("peer", addr), zap.String("path", path), zap.Error(err))
		return apperr.Unreachable(err, "peer %s unreachable", addr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.wireError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Unreachable(err, "peer %s sent a bad response", addr)
		}
	}
	return nil
}

// wireError reconstructs the typed error from the structured code in the
// response body, falling back to the HTTP status when the body is not
// ours.
func (c *Client) wireError(resp *http.Response) error {
	var body types.ErrorBody
	if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Code != "" {
		return apperr.FromWire(body.Code, body.Error)
	}
	return apperr.New(apperr.KindUnreachable, "peer returned status %d", resp.StatusCode)
}

// peerAddr appends the well-known peer port when addr carries none.
func (c *Client) peerAddr(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(c.peerPort))
}
