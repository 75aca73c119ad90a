package host

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	"github.com/avatarctic/tabrefresh/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultTickRate = 20

type delayedTask struct {
	due int64
	fn  func()
}

type clientState struct {
	client       identity.Client
	connectedAt  time.Time
	presentation presentation.Snapshot
}

// ClientView is a connected client together with the presentation last applied to it.
type ClientView struct {
	identity.Client
	ConnectedAt  time.Time             `json:"connected_at"`
	Presentation presentation.Snapshot `json:"presentation"`
}

// Loop is a standalone authoritative context. A single goroutine advances a fixed-rate tick and
// runs queued work in submission order; delayed work runs on the tick it falls due.
// Loop also keeps the client registry and acts as the presentation surface.
type Loop struct {
	interval time.Duration
	logger   *logrus.Logger

	mu      sync.Mutex
	active  bool
	tick    int64
	now     []func()
	delayed []delayedTask
	clients map[uuid.UUID]*clientState

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a loop running tickRate ticks per second.
func NewLoop(tickRate int, logger *logrus.Logger) *Loop {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	return &Loop{
		interval: time.Second / time.Duration(tickRate),
		logger:   logger,
		clients:  make(map[uuid.UUID]*clientState),
	}
}

// Start runs the loop in its own goroutine until Stop is called or ctx is done.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.active = true
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		l.run(ctx)
	}()
}

// Stop halts the loop and waits for the current tick to finish. Queued work is dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (l *Loop) run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.deactivate()
			return
		case <-ticker.C:
			l.Step()
		}
	}
}

func (l *Loop) deactivate() {
	l.mu.Lock()
	dropped := len(l.now) + len(l.delayed)
	l.active = false
	l.now = nil
	l.delayed = nil
	l.cancel = nil
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.WithField("dropped", dropped).Info("Host loop stopped")
	}
}

// Step advances one tick and runs everything due on it. The tick goroutine calls it; tests may
// drive it directly.
func (l *Loop) Step() {
	l.mu.Lock()
	l.tick++
	current := l.tick
	batch := l.now
	l.now = nil
	remaining := l.delayed[:0]
	for _, d := range l.delayed {
		if d.due <= current {
			batch = append(batch, d.fn)
		} else {
			remaining = append(remaining, d)
		}
	}
	l.delayed = remaining
	l.mu.Unlock()

	for _, fn := range batch {
		err := utils.RunSafely("host task", func() error {
			fn()
			return nil
		})
		if err != nil && l.logger != nil {
			l.logger.WithField("tick", current).WithError(err).Error("Host task failed")
		}
	}
}

// CurrentTick returns the number of ticks run so far.
func (l *Loop) CurrentTick() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tick
}

func (l *Loop) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Loop) ConnectedClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Loop) RunNow(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return domain.ErrHostInactive
	}
	l.now = append(l.now, fn)
	return nil
}

func (l *Loop) RunAfterTicks(ticks int64, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return domain.ErrHostInactive
	}
	if ticks <= 0 {
		l.now = append(l.now, fn)
		return nil
	}
	l.delayed = append(l.delayed, delayedTask{due: l.tick + ticks, fn: fn})
	return nil
}

func (l *Loop) Connect(client identity.Client) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.clients[client.ID]; ok {
		existing.client = client
		return false
	}
	l.clients[client.ID] = &clientState{client: client, connectedAt: time.Now()}
	return true
}

func (l *Loop) Disconnect(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.clients[id]; !ok {
		return false
	}
	delete(l.clients, id)
	return true
}

// Clients returns the connected clients ordered by name.
func (l *Loop) Clients() []identity.Client {
	l.mu.Lock()
	out := make([]identity.Client, 0, len(l.clients))
	for _, c := range l.clients {
		out = append(out, c.client)
	}
	l.mu.Unlock()

	slices.SortFunc(out, func(a, b identity.Client) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

func (l *Loop) Client(id string) (identity.Client, bool) {
	key, err := uuid.Parse(id)
	if err != nil {
		return identity.Client{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[key]
	if !ok {
		return identity.Client{}, false
	}
	return c.client, true
}

// View returns the registry entry of a connected client.
func (l *Loop) View(id uuid.UUID) (ClientView, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[id]
	if !ok {
		return ClientView{}, false
	}
	return ClientView{Client: c.client, ConnectedAt: c.connectedAt, Presentation: c.presentation}, true
}

// Apply records field as the client's visible presentation. Disconnected clients are ignored.
func (l *Loop) Apply(_ context.Context, client identity.Client, field presentation.Field, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.clients[client.ID]; ok {
		c.presentation = c.presentation.With(field, value)
	}
	return nil
}
