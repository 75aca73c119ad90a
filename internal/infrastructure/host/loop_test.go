package host_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/host"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	_ ports.Host                = (*host.Loop)(nil)
	_ ports.ClientDirectory     = (*host.Loop)(nil)
	_ ports.ClientRegistry      = (*host.Loop)(nil)
	_ ports.PresentationSurface = (*host.Loop)(nil)
)

func startLoop(t *testing.T) *host.Loop {
	t.Helper()
	l := host.NewLoop(200, nil)
	l.Start(context.Background())
	t.Cleanup(l.Stop)
	return l
}

func TestLoop_InactiveRejectsWork(t *testing.T) {
	l := host.NewLoop(20, nil)
	require.False(t, l.IsActive())
	require.ErrorIs(t, l.RunNow(func() {}), domain.ErrHostInactive)
	require.ErrorIs(t, l.RunAfterTicks(3, func() {}), domain.ErrHostInactive)
}

func TestLoop_RunsQueuedWorkInOrder(t *testing.T) {
	l := startLoop(t)

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, l.RunNow(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued work did not run")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLoop_RunAfterTicksWaitsForTick(t *testing.T) {
	l := startLoop(t)

	start := l.CurrentTick()
	ran := make(chan int64, 1)
	require.NoError(t, l.RunAfterTicks(10, func() { ran <- l.CurrentTick() }))

	select {
	case at := <-ran:
		require.GreaterOrEqual(t, at, start+10)
	case <-time.After(2 * time.Second):
		t.Fatal("delayed work did not run")
	}
}

func TestLoop_PanickingTaskDoesNotStopLoop(t *testing.T) {
	l := startLoop(t)

	require.NoError(t, l.RunNow(func() { panic("boom") }))
	ran := make(chan struct{})
	require.NoError(t, l.RunNow(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped after panic")
	}
	require.True(t, l.IsActive())
}

func TestLoop_StopDeactivates(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := host.NewLoop(100, nil)
	l.Start(context.Background())
	require.True(t, l.IsActive())

	l.Stop()
	require.False(t, l.IsActive())
	require.ErrorIs(t, l.RunNow(func() {}), domain.ErrHostInactive)

	// restartable
	l.Start(context.Background())
	require.True(t, l.IsActive())
	l.Stop()
}

func TestLoop_ClientRegistry(t *testing.T) {
	l := host.NewLoop(20, nil)
	bob := identity.Client{ID: uuid.New(), Name: "bob"}
	alice := identity.Client{ID: uuid.New(), Name: "alice"}

	require.True(t, l.Connect(bob))
	require.True(t, l.Connect(alice))
	require.False(t, l.Connect(alice))
	require.Equal(t, 2, l.ConnectedClients())
	require.Equal(t, []identity.Client{alice, bob}, l.Clients())

	got, ok := l.Client(bob.ID.String())
	require.True(t, ok)
	require.Equal(t, bob, got)
	_, ok = l.Client("not-a-uuid")
	require.False(t, ok)

	require.NoError(t, l.Apply(context.Background(), bob, presentation.FieldHeader, "hi"))
	view, ok := l.View(bob.ID)
	require.True(t, ok)
	require.Equal(t, "hi", view.Presentation.Header)

	require.True(t, l.Disconnect(bob.ID))
	require.False(t, l.Disconnect(bob.ID))
	require.Equal(t, 1, l.ConnectedClients())
	require.NoError(t, l.Apply(context.Background(), bob, presentation.FieldHeader, "gone"))
}
