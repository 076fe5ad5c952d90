package cache

import (
	"time"

	"go_branch_chat/pkg/logging"
)

// l1Share is the fraction of the requested TTL kept in memory when a remote
// level exists.
const l1Share = 0.3

type Service struct {
	l1 *L1CacheService
	l2 CacheService
}

// NewCacheService layers l1 over l2. l2 may be nil, in which case the memory
// level keeps the full TTL.
func NewCacheService(l1 *L1CacheService, l2 CacheService) CacheService {
	return &Service{l1: l1, l2: l2}
}

func (cs *Service) GetCache(key string) (interface{}, bool) {
	if data, ok := cs.l1.Get(key); ok {
		return data, ok
	}
	if cs.l2 == nil {
		return nil, false
	}
	if data, ok := cs.l2.GetCache(key); ok {
		return data, ok
	}
	return nil, false
}

func (cs *Service) SetCache(key string, value interface{}, expiration time.Duration) error {
	if cs.l2 == nil {
		cs.l1.Set(key, value, expiration)
		return nil
	}
	if err := cs.l2.SetCache(key, value, expiration); err != nil {
		logging.Logger.Error().Err(err).Str("key", key).Msg("l2 fail SetCache")
		return err
	}
	cs.l1.Set(key, value, time.Duration(float64(expiration)*l1Share))
	return nil
}

func (cs *Service) DelCache(key string) error {
	cs.l1.Del(key)
	if cs.l2 == nil {
		return nil
	}
	if err := cs.l2.DelCache(key); err != nil {
		logging.Logger.Error().Err(err).Str("key", key).Msg("l2 fail DelCache")
		return err
	}
	return nil
}
