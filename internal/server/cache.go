package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	ttlcache "github.com/jellydator/ttlcache/v3"

	"github.com/had-nu/envpatrol/internal/types"
)

func newCache(ttl time.Duration) *ttlcache.Cache[string, types.ScanResult] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return ttlcache.New[string, types.ScanResult](
		ttlcache.WithTTL[string, types.ScanResult](ttl),
		ttlcache.WithDisableTouchOnHit[string, types.ScanResult](),
	)
}

func contentKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// scan returns the cached result for content, scanning on a miss. Aborted
// scans depend on timing and are never cached.
func (s *Server) scan(ctx context.Context, content string) types.ScanResult {
	var fresh types.ScanResult
	loader := ttlcache.LoaderFunc[string, types.ScanResult](
		func(c *ttlcache.Cache[string, types.ScanResult], key string) *ttlcache.Item[string, types.ScanResult] {
			fresh = s.scanner.Scan(ctx, content)
			if fresh.Aborted {
				return nil
			}
			return c.Set(key, fresh, ttlcache.DefaultTTL)
		},
	)

	item := s.cache.Get(contentKey(content), ttlcache.WithLoader[string, types.ScanResult](loader))
	if item == nil {
		return fresh
	}
	return item.Value()
}
