package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	config "github.com/avatarctic/tabrefresh/configs"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/domain/presentation"
	tmocks "github.com/avatarctic/tabrefresh/internal/mocks"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis overrides the handful of commands used here; anything else panics on the nil embed.
type fakeRedis struct {
	redis.Cmdable

	mu        sync.Mutex
	values    map[string]string
	ttls      map[string]time.Duration
	published []string
	channels  []string
	err       error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), f.err)
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.channels = append(f.channels, channel)
	switch m := message.(type) {
	case []byte:
		f.published = append(f.published, string(m))
	case string:
		f.published = append(f.published, m)
	}
	return redis.NewIntResult(1, nil)
}

func TestRedisCache_NamespacedRoundTrip(t *testing.T) {
	fake := newFakeRedis()
	c := NewRedisCache(fake, "tabrefresh", "", "profiles")
	ctx := context.Background()

	assert.Equal(t, "tabrefresh:profiles:k", c.Key("k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second))
	assert.Equal(t, time.Duration(0), fake.ttls["tabrefresh:profiles:k"])

	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ = c.Get(ctx, "k")
	require.False(t, ok)
}

func TestRedisCache_PropagatesErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	c := NewRedisCache(fake)

	assert.Equal(t, "k", c.Key("k"))
	_, _, err := c.Get(context.Background(), "k")
	require.ErrorContains(t, err, "connection refused")
	require.Error(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
}

func TestSnapshotPublisher_PublishesAndDelegates(t *testing.T) {
	fake := newFakeRedis()
	next := &tmocks.SurfaceMock{}
	p := NewSnapshotPublisher(fake, "presentation", next)
	client := identity.Client{ID: uuid.New(), Name: "alex"}

	require.NoError(t, p.Apply(context.Background(), client, presentation.FieldFooter, "bye"))

	require.Len(t, next.Applied(), 1)
	require.Equal(t, []string{"presentation"}, fake.channels)
	var msg PresentationMessage
	require.NoError(t, json.Unmarshal([]byte(fake.published[0]), &msg))
	assert.Equal(t, PresentationMessage{ClientID: client.ID, Client: "alex", Field: presentation.FieldFooter, Value: "bye"}, msg)
}

func TestSnapshotPublisher_NextFailureSkipsPublish(t *testing.T) {
	fake := newFakeRedis()
	next := &tmocks.SurfaceMock{ApplyFn: func(ctx context.Context, client identity.Client, field presentation.Field, value string) error {
		return errors.New("gone")
	}}
	p := NewSnapshotPublisher(fake, "presentation", next)

	require.Error(t, p.Apply(context.Background(), identity.Client{ID: uuid.New()}, presentation.FieldHeader, "x"))
	require.Empty(t, fake.published)
}

func TestChangeListener_Dispatch(t *testing.T) {
	var got []uuid.UUID
	l := NewChangeListener(nil, "changes", func(ctx context.Context, id uuid.UUID) {
		got = append(got, id)
	}, nil)

	id := uuid.New()
	require.True(t, l.dispatch(context.Background(), " "+id.String()+"\n"))
	require.False(t, l.dispatch(context.Background(), "not-a-uuid"))
	require.Equal(t, []uuid.UUID{id}, got)
}

func TestPublishChange(t *testing.T) {
	fake := newFakeRedis()
	id := uuid.New()

	require.NoError(t, PublishChange(context.Background(), fake, "changes", id))
	require.Equal(t, []string{id.String()}, fake.published)

	fake.err = errors.New("down")
	require.Error(t, PublishChange(context.Background(), fake, "changes", id))
}

func TestOptions(t *testing.T) {
	opts := Options(&config.RedisConfig{Host: "cache", Port: "6380", DB: 2, PoolSize: 7, ReadTimeout: time.Second})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}
