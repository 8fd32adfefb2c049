package disaster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitch(t *testing.T) {
	ctx := context.Background()
	s := NewSwitch(false)
	assert.False(t, s.Active(ctx))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(i%2 == 0)
		}()
		go func() {
			defer wg.Done()
			_ = s.Active(ctx)
		}()
	}
	wg.Wait()

	s.Set(true)
	assert.True(t, s.Active(ctx))
}

type fakeKV struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
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

func (f *fakeKV) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisOverride(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{values: map[string]string{}}
	o := NewRedisOverride(kv, "bloodlink:disaster")

	t.Run("missing key is off", func(t *testing.T) {
		assert.False(t, o.Active(ctx))
	})

	t.Run("set then read", func(t *testing.T) {
		require.NoError(t, o.Set(ctx, true))
		assert.Equal(t, "true", kv.values["bloodlink:disaster"])
		assert.True(t, o.Active(ctx))
	})

	t.Run("accepts other boolean spellings", func(t *testing.T) {
		kv.values["bloodlink:disaster"] = "1"
		assert.True(t, o.Active(ctx))
		kv.values["bloodlink:disaster"] = "0"
		assert.False(t, o.Active(ctx))
	})

	t.Run("garbage reads as off", func(t *testing.T) {
		kv.values["bloodlink:disaster"] = "maybe"
		assert.False(t, o.Active(ctx))
	})

	t.Run("keeps last known value when redis fails", func(t *testing.T) {
		kv.values["bloodlink:disaster"] = "true"
		require.True(t, o.Active(ctx))

		kv.err = errors.New("connection refused")
		assert.True(t, o.Active(ctx))
		assert.Error(t, o.Set(ctx, false))
		assert.True(t, o.Active(ctx))
		kv.err = nil
	})
}
