package ports

import (
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/google/uuid"
)

// Host is the authoritative execution context supplied by the process embedding the engine.
// It is the only place allowed to mutate presentation state visible to clients.
type Host interface {
	// IsActive reports whether the host still accepts work.
	IsActive() bool
	// ConnectedClients returns the number of currently connected clients.
	ConnectedClients() int
	// RunNow queues fn on the authoritative context.
	RunNow(fn func()) error
	// RunAfterTicks queues fn to run ticks host ticks from now.
	RunAfterTicks(ticks int64, fn func()) error
}

// ClientDirectory lists connected clients.
type ClientDirectory interface {
	Clients() []identity.Client
	Client(id string) (identity.Client, bool)
}

// ClientRegistry records client connections on the host.
type ClientRegistry interface {
	// Connect registers client and reports whether it was not connected before.
	Connect(client identity.Client) bool
	// Disconnect removes a client and reports whether it was connected.
	Disconnect(id uuid.UUID) bool
}
