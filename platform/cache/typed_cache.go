package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// TypedCache provides type-safe access over a CacheService. Values read back
// from a remote level arrive as JSON and are decoded into T.
type TypedCache[T any] struct {
	cache CacheService
	sf    singleflight.Group
}

func NewTypedCache[T any](cache CacheService) *TypedCache[T] {
	return &TypedCache[T]{cache: cache}
}

func (tc *TypedCache[T]) Set(key string, value T, expiration time.Duration) error {
	return tc.cache.SetCache(key, value, expiration)
}

func (tc *TypedCache[T]) Get(key string) (T, bool, error) {
	var zero T

	rawValue, exists := tc.cache.GetCache(key)
	if !exists {
		return zero, false, nil
	}

	if typedValue, ok := rawValue.(T); ok {
		return typedValue, true, nil
	}

	var result T
	switch v := rawValue.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &result); err != nil {
			return zero, true, fmt.Errorf("failed to unmarshal cache value: %w", err)
		}
		return result, true, nil
	case []byte:
		if err := json.Unmarshal(v, &result); err != nil {
			return zero, true, fmt.Errorf("failed to unmarshal cache value: %w", err)
		}
		return result, true, nil
	default:
		jsonData, err := json.Marshal(rawValue)
		if err != nil {
			return zero, true, fmt.Errorf("failed to marshal intermediate value: %w", err)
		}
		if err := json.Unmarshal(jsonData, &result); err != nil {
			return zero, true, fmt.Errorf("failed to unmarshal cache value: %w", err)
		}
		return result, true, nil
	}
}

// GetOrLoad returns the cached value or runs load once for all concurrent
// callers of the same key and caches its result.
func (tc *TypedCache[T]) GetOrLoad(key string, expiration time.Duration, load func() (T, error)) (T, error) {
	if value, ok, err := tc.Get(key); err == nil && ok {
		return value, nil
	}
	res, err, _ := tc.sf.Do(key, func() (interface{}, error) {
		value, err := load()
		if err != nil {
			return nil, err
		}
		// a failed cache write still serves the loaded value
		_ = tc.Set(key, value, expiration)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func (tc *TypedCache[T]) Delete(key string) error {
	return tc.cache.DelCache(key)
}
