// Package cache provides the time-boxed result cache that backs the
// aggregation queries. Keys are content-addressed from the SQL text and its
// bound parameters, namespaced per query family. The cache is a pure
// performance layer: callers must behave identically whether it is cold,
// expired or warm.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Query family namespaces. Kept separate so a deploy can flush one family
// without touching the other.
const (
	NamespaceCampaignRevenue  = "campaign-revenue-queries"
	NamespaceDashboardRevenue = "dashboard-revenue-queries"
)

// DefaultTTL bounds the staleness window of cached aggregates. There is no
// invalidation on write.
const DefaultTTL = 15 * time.Minute

// QueryCache is a key-value store with TTL semantics. Implementations must
// treat concurrent Set calls for the same key as last-writer-wins; values for
// the same key are recomputed identically, so no locking is required.
type QueryCache interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives a cache key from a query family, the SQL text and its bound
// parameters.
func Key(namespace, sql string, params ...any) string {
	h := sha256.New()
	h.Write([]byte(sql))
	for _, p := range params {
		fmt.Fprintf(h, "|%v", p)
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))
}
