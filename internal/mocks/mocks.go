package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain"
	"github.com/avatarctic/tabrefresh/internal/core/domain/animation"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	"github.com/google/uuid"
)

// PermissionRepositoryMock is a lightweight mock for PermissionRepository
type PermissionRepositoryMock struct {
	GetProfileFn  func(ctx context.Context, id uuid.UUID) (identity.Profile, error)
	AssignGroupFn func(ctx context.Context, id uuid.UUID, group, prefix, suffix string) error
	UpsertGroupFn func(ctx context.Context, group string, weight int) error
}

func (m *PermissionRepositoryMock) GetProfile(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
	if m.GetProfileFn != nil {
		return m.GetProfileFn(ctx, id)
	}
	return identity.Profile{}, domain.ErrProfileNotFound
}
func (m *PermissionRepositoryMock) AssignGroup(ctx context.Context, id uuid.UUID, group, prefix, suffix string) error {
	if m.AssignGroupFn != nil {
		return m.AssignGroupFn(ctx, id, group, prefix, suffix)
	}
	return nil
}
func (m *PermissionRepositoryMock) UpsertGroup(ctx context.Context, group string, weight int) error {
	if m.UpsertGroupFn != nil {
		return m.UpsertGroupFn(ctx, group, weight)
	}
	return nil
}

// ProfileInvalidatorMock is a lightweight mock for ProfileInvalidator
type ProfileInvalidatorMock struct {
	ForgetFn func(ctx context.Context, id uuid.UUID) error
}

func (m *ProfileInvalidatorMock) Forget(ctx context.Context, id uuid.UUID) error {
	if m.ForgetFn != nil {
		return m.ForgetFn(ctx, id)
	}
	return nil
}

// HostMock runs hand-offs inline unless overridden. It reports itself active by default.
type HostMock struct {
	IsActiveFn         func() bool
	ConnectedClientsFn func() int
	RunNowFn           func(fn func()) error
	RunAfterTicksFn    func(ticks int64, fn func()) error
}

func (m *HostMock) IsActive() bool {
	if m.IsActiveFn != nil {
		return m.IsActiveFn()
	}
	return true
}
func (m *HostMock) ConnectedClients() int {
	if m.ConnectedClientsFn != nil {
		return m.ConnectedClientsFn()
	}
	return 0
}
func (m *HostMock) RunNow(fn func()) error {
	if m.RunNowFn != nil {
		return m.RunNowFn(fn)
	}
	fn()
	return nil
}
func (m *HostMock) RunAfterTicks(ticks int64, fn func()) error {
	if m.RunAfterTicksFn != nil {
		return m.RunAfterTicksFn(ticks, fn)
	}
	fn()
	return nil
}

// ClientDirectoryMock serves a fixed client list unless overridden.
type ClientDirectoryMock struct {
	List     []identity.Client
	ClientFn func(id string) (identity.Client, bool)
}

func (m *ClientDirectoryMock) Clients() []identity.Client {
	return append([]identity.Client(nil), m.List...)
}
func (m *ClientDirectoryMock) Client(id string) (identity.Client, bool) {
	if m.ClientFn != nil {
		return m.ClientFn(id)
	}
	for _, c := range m.List {
		if c.ID.String() == id {
			return c, true
		}
	}
	return identity.Client{}, false
}

// AppliedField is one call recorded by SurfaceMock.
type AppliedField struct {
	ClientID uuid.UUID
	Field    presentation.Field
	Value    string
}

// SurfaceMock records every applied field.
type SurfaceMock struct {
	ApplyFn func(ctx context.Context, client identity.Client, field presentation.Field, value string) error

	mu      sync.Mutex
	applied []AppliedField
}

func (m *SurfaceMock) Apply(ctx context.Context, client identity.Client, field presentation.Field, value string) error {
	if m.ApplyFn != nil {
		if err := m.ApplyFn(ctx, client, field, value); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.applied = append(m.applied, AppliedField{ClientID: client.ID, Field: field, Value: value})
	m.mu.Unlock()
	return nil
}

func (m *SurfaceMock) Applied() []AppliedField {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AppliedField(nil), m.applied...)
}

func (m *SurfaceMock) Reset() {
	m.mu.Lock()
	m.applied = nil
	m.mu.Unlock()
}

// AnimationSourceMock is a lightweight mock for AnimationSource
type AnimationSourceMock struct {
	LoadFn func(ctx context.Context) (map[string]animation.RawDefinition, error)
}

func (m *AnimationSourceMock) Load(ctx context.Context) (map[string]animation.RawDefinition, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx)
	}
	return map[string]animation.RawDefinition{}, nil
}

// CacheMock is an in-memory ports.Cache that ignores TTLs.
type CacheMock struct {
	GetErr error
	SetErr error

	mu    sync.Mutex
	items map[string][]byte
}

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}
func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string][]byte)
	}
	m.items[key] = append([]byte(nil), value...)
	return nil
}
func (m *CacheMock) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
func (m *CacheMock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// HealthCheckerMock is a lightweight mock for HealthChecker
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

// FailingProvider returns a provider func that always fails with msg.
func FailingProvider(msg string) func(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
	return func(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
		return identity.Profile{}, fmt.Errorf("%s", msg)
	}
}
