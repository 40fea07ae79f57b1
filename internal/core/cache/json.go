package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// errAbsent 让 GetOrLoad 跳过写缓存；不存在的记录不做负缓存
var errAbsent = errors.New("cache: absent")

// Typed 同一前缀下的 JSON 对象缓存
type Typed[T any] struct {
	c      *Cache
	prefix string
	ttl    time.Duration
}

func NewTyped[T any](c *Cache, prefix string, ttl time.Duration) *Typed[T] {
	if c == nil {
		c = NewNoop()
	}
	return &Typed[T]{c: c, prefix: prefix, ttl: ttl}
}

func (t *Typed[T]) Key(id string) string { return t.prefix + id }

// Get load 返回 (nil, nil) 时原样返回 nil，不写缓存
func (t *Typed[T]) Get(ctx context.Context, id string, load func(ctx context.Context) (*T, error)) (*T, error) {
	b, err := t.c.GetOrLoad(ctx, t.Key(id), t.ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errAbsent
		}
		return json.Marshal(v)
	})
	if errors.Is(err, errAbsent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		// 旧格式数据：删掉后回源
		_ = t.c.Delete(ctx, t.Key(id))
		return load(ctx)
	}
	return &out, nil
}

func (t *Typed[T]) Forget(ctx context.Context, id string) error {
	return t.c.Delete(ctx, t.Key(id))
}
