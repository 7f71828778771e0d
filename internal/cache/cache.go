// Package cache keeps short-lived copies of service responses so that repeated
// renders do not refetch the same run.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/recebe/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// RunKey is the cache key of a single run
func RunKey(id string) string {
	return "recebe:v1:run:" + id
}

// ListKey is the cache key of a run listing query. Parts are hashed so any
// cursor or filter text is safe to use as a file name.
func ListKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "recebe:v1:list:" + hex.EncodeToString(hash[:8])
}

// New builds the cache described by the configuration. A disabled cache is nil.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Persist && cfg.Dir != "" {
		return NewLayeredCache(cfg.RunTTL, cfg.Dir, cfg.RunTTL)
	}
	return NewMemoryCache(cfg.RunTTL, 0)
}
