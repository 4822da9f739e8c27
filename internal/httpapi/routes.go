package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes wires the full surface: the identity-scoped local API and the
// public peer-facing relay endpoints. The remote_* and notify_accept
// handlers are deliberately unauthenticated; the room password is their
// only guard.
func Routes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		// Peer-facing endpoints, called by other instances.
		r.Post("/relay/invite", h.ReceiveInvite)
		r.Get("/leaderboard", h.Leaderboard)

		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Get("/state", h.RoomState)
			r.Post("/remote_join", h.RemoteJoin)
			r.Post("/remote_ready", h.RemoteReady)
			r.Post("/remote_move", h.RemoteMove)
			r.Post("/remote_emote", h.RemoteEmote)
			r.Post("/remote_leave", h.RemoteLeave)
			r.Post("/notify_accept", h.NotifyAccept)

			// Local participant intents.
			r.Group(func(r chi.Router) {
				r.Use(RequirePlayer)
				r.Post("/join", h.Join)
				r.Post("/ready", h.Ready)
				r.Post("/start", h.Start)
				r.Post("/move", h.Move)
				r.Post("/emote", h.Emote)
				r.Post("/leave", h.Leave)
				r.Post("/accept", h.Accept)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(RequirePlayer)
			r.Post("/discovery/start", h.StartDiscovery)
			r.Get("/discovery/peers", h.ListPeers)
			r.Post("/rooms", h.CreateRoom)
			r.Post("/challenge", h.Challenge)
			r.Get("/invites", h.ListInvites)
		})
	})

	return r
}
