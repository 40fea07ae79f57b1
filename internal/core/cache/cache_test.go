package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestTypedWithoutRedis(t *testing.T) {
	profiles := NewTyped[profile](nil, "user:", time.Minute)
	assert.Equal(t, "user:1", profiles.Key("1"))
	var calls int32
	load := func(ctx context.Context) (*profile, error) {
		atomic.AddInt32(&calls, 1)
		return &profile{ID: "1", Name: "Demo"}, nil
	}
	p, err := profiles.Get(context.Background(), "1", load)
	require.NoError(t, err)
	assert.Equal(t, "Demo", p.Name)
	assert.EqualValues(t, 1, calls)
	assert.NoError(t, profiles.Forget(context.Background(), "1"))
}

func TestTypedAbsent(t *testing.T) {
	profiles := NewTyped[profile](NewNoop(), "user:", time.Minute)
	p, err := profiles.Get(context.Background(), "x",
		func(ctx context.Context) (*profile, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, p)

	boom := errors.New("db down")
	_, err = profiles.Get(context.Background(), "y",
		func(ctx context.Context) (*profile, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestGetOrLoadError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewNoop().GetOrLoad(context.Background(), "k", time.Minute,
		func(ctx context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestGetOrLoadSingleflight(t *testing.T) {
	c := NewNoop()
	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("v"), nil
	}
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.GetOrLoad(context.Background(), "same", time.Minute, load)
			assert.NoError(t, err)
			assert.Equal(t, "v", string(b))
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestUnreachableRedisFallsBackToLoad(t *testing.T) {
	c := New("127.0.0.1:1", "", 0)
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	b, err := c.GetOrLoad(ctx, "k", time.Minute, func(ctx context.Context) ([]byte, error) { return []byte("db"), nil })
	require.NoError(t, err)
	assert.Equal(t, "db", string(b))

	_, err = c.Revoked(ctx, "jti")
	assert.Error(t, err)
	assert.Error(t, c.Ping(ctx))
}

func TestNoopHelpers(t *testing.T) {
	c := NewNoop()
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Delete(context.Background(), "a"))
	assert.NoError(t, c.Close())
}
