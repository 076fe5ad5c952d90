package cache

import "time"

// CacheService is a key/value cache with per-entry expiration.
type CacheService interface {
	GetCache(key string) (interface{}, bool)
	SetCache(key string, value interface{}, expiration time.Duration) error
	DelCache(key string) error
}
