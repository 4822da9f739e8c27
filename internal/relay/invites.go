package relay

import (
	"sync"
	"time"
)

type Invite struct {
	From        string    `json:"from_user"`
	FromAddr    string    `json:"from_addr"`
	RoomID      string    `json:"room_id"`
	HasPassword bool      `json:"has_password"`
	At          time.Time `json:"timestamp"`
}

const DefaultInboxCap = 32

// Inbox queues invites per target identity. Listing never removes
// entries; the bound is enforced on write with a drop-oldest policy, so
// a flood of deliverInvite calls cannot grow memory without limit.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	byTarget map[string][]Invite
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCap
	}
	return &Inbox{
		capacity: capacity,
		byTarget: make(map[string][]Invite),
	}
}

func (b *Inbox) Add(target string, inv Invite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := append(b.byTarget[target], inv)
	if len(queue) > b.capacity {
		queue = queue[len(queue)-b.capacity:]
	}
	b.byTarget[target] = queue
}

func (b *Inbox) List(target string) []Invite {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := b.byTarget[target]
	out := make([]Invite, len(queue))
	copy(out, queue)
	return out
}
