package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-payhooks/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const userCacheKeyPrefix = "go-payhooks::user::v1"

// CachedUserDirectory is a read-through cache in front of a UserDirectory.
type CachedUserDirectory struct {
	base  core.UserDirectory
	cache repositorycache.CacheService
}

func NewCachedUserDirectory(
	base core.UserDirectory,
	cacheService repositorycache.CacheService,
) (*CachedUserDirectory, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base user directory is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: user cache service is required")
	}
	return &CachedUserDirectory{base: base, cache: cacheService}, nil
}

// UserCacheKey returns go-payhooks::user::v1::<user_id> with the id path escaped.
func UserCacheKey(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("sqlstore: user id is required")
	}
	return userCacheKeyPrefix + "::" + url.PathEscape(userID), nil
}

func (d *CachedUserDirectory) FindUser(ctx context.Context, userID string) (core.User, error) {
	if d == nil || d.base == nil || d.cache == nil {
		return core.User{}, fmt.Errorf("sqlstore: cached user directory is not configured")
	}
	key, err := UserCacheKey(userID)
	if err != nil {
		return core.User{}, err
	}
	return repositorycache.GetOrFetch(ctx, d.cache, key, func(ctx context.Context) (core.User, error) {
		return d.base.FindUser(ctx, strings.TrimSpace(userID))
	})
}

// Invalidate drops the cached entry for userID. Errors are ignored; the next
// read refetches once the entry expires.
func (d *CachedUserDirectory) Invalidate(ctx context.Context, userID string) {
	if d == nil || d.cache == nil {
		return
	}
	key, err := UserCacheKey(userID)
	if err != nil {
		return
	}
	_ = d.cache.Delete(ctx, key)
}
