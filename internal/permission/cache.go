package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache holds grant snapshots in Redis, keyed by identity id plus role so a
// snapshot is never trusted across an identity or role switch. Invalidation
// is explicit: provisioning writes call Invalidate.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

type cachedGrants struct {
	Role   Role         `json:"role"`
	Pages  []PageGrant  `json:"pages"`
	Charts []ChartGrant `json:"charts"`
}

func grantKey(identityID uuid.UUID, role Role) string {
	return fmt.Sprintf("grants:%s:%s", identityID, role)
}

// Get returns a cached grant set, or ok=false on a miss. Redis failures are
// treated as misses; the caller falls through to the store.
func (c *Cache) Get(ctx context.Context, identityID uuid.UUID, role Role) (GrantSet, bool) {
	if c == nil || c.client == nil {
		return GrantSet{}, false
	}
	payload, err := c.client.Get(ctx, grantKey(identityID, role)).Bytes()
	if err != nil {
		return GrantSet{}, false
	}
	var cached cachedGrants
	if err := json.Unmarshal(payload, &cached); err != nil {
		return GrantSet{}, false
	}
	if cached.Role != role {
		return GrantSet{}, false
	}
	return NewGrantSet(cached.Role, cached.Pages, cached.Charts), true
}

// Put stores a loaded grant set. Unloaded sets are never cached.
func (c *Cache) Put(ctx context.Context, identityID uuid.UUID, set GrantSet) error {
	if c == nil || c.client == nil {
		return nil
	}
	if set.State != StateLoaded {
		return errors.New("permission: refusing to cache an unloaded grant set")
	}
	pages := make([]PageGrant, 0, len(set.Pages))
	for page, allowed := range set.Pages {
		pages = append(pages, PageGrant{IdentityID: identityID, Page: page, Allowed: allowed})
	}
	raw, err := json.Marshal(cachedGrants{Role: set.Role, Pages: pages, Charts: set.Charts})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, grantKey(identityID, set.Role), raw, c.ttl).Err()
}

// Invalidate drops every cached snapshot for an identity, across all roles.
func (c *Cache) Invalidate(ctx context.Context, identityID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	keys := make([]string, 0, 3)
	for _, role := range []Role{RoleAdmin, RoleBusinessManager, RoleUser} {
		keys = append(keys, grantKey(identityID, role))
	}
	return c.client.Del(ctx, keys...).Err()
}
