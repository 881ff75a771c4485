package notify

import (
	"sync"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Inbox is the client-side dismissal memory for join prompts. Dismissals are
// keyed by session id and live only in client memory: a dismissed prompt does
// not reappear until a different session starts, and a fresh client forgets
// dismissals entirely. This is deliberately not authoritative server state.
type Inbox struct {
	mu        sync.Mutex
	dismissed map[string]bool // sessionID
}

func NewInbox() *Inbox {
	return &Inbox{dismissed: make(map[string]bool)}
}

// Dismiss remembers that the prompt for a session was waved away.
func (i *Inbox) Dismiss(sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.dismissed[sessionID] = true
}

// Dismissed reports whether a session's prompt was locally dismissed.
func (i *Inbox) Dismissed(sessionID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dismissed[sessionID]
}

// Filter drops notifications whose session was locally dismissed.
func (i *Inbox) Filter(notifications []*types.Notification) []*types.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := notifications[:0:0]
	for _, n := range notifications {
		if !i.dismissed[n.SessionID] {
			out = append(out, n)
		}
	}
	return out
}
