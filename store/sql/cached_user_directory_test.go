package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-payhooks/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubUserDirectory struct {
	mu    sync.Mutex
	user  core.User
	calls int
	err   error
}

func (s *stubUserDirectory) FindUser(_ context.Context, _ string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return core.User{}, s.err
	}
	return s.user, nil
}

func TestCachedUserDirectory_MissFetchThenHit(t *testing.T) {
	base := &stubUserDirectory{user: core.User{ID: "usr_1", City: "Puebla"}}
	directory, err := NewCachedUserDirectory(base, newTestUserCacheService(t))
	if err != nil {
		t.Fatalf("new cached directory: %v", err)
	}

	for i := 0; i < 3; i++ {
		user, err := directory.FindUser(context.Background(), "usr_1")
		if err != nil {
			t.Fatalf("find user %d: %v", i, err)
		}
		if user.City != "Puebla" {
			t.Fatalf("expected cached city, got %q", user.City)
		}
	}
	if base.calls != 1 {
		t.Fatalf("expected one base lookup, got %d", base.calls)
	}
}

func TestCachedUserDirectory_InvalidateRefetches(t *testing.T) {
	base := &stubUserDirectory{user: core.User{ID: "usr_1", LTV: 10}}
	directory, err := NewCachedUserDirectory(base, newTestUserCacheService(t))
	if err != nil {
		t.Fatalf("new cached directory: %v", err)
	}
	ctx := context.Background()
	if _, err := directory.FindUser(ctx, "usr_1"); err != nil {
		t.Fatalf("find user: %v", err)
	}

	base.mu.Lock()
	base.user.LTV = 20
	base.mu.Unlock()
	directory.Invalidate(ctx, "usr_1")

	user, err := directory.FindUser(ctx, "usr_1")
	if err != nil {
		t.Fatalf("find user after invalidate: %v", err)
	}
	if user.LTV != 20 {
		t.Fatalf("expected refetched ltv 20, got %d", user.LTV)
	}
	if base.calls != 2 {
		t.Fatalf("expected two base lookups, got %d", base.calls)
	}
}

func TestCachedUserDirectory_PropagatesBaseError(t *testing.T) {
	base := &stubUserDirectory{err: errors.New("db down")}
	directory, err := NewCachedUserDirectory(base, newTestUserCacheService(t))
	if err != nil {
		t.Fatalf("new cached directory: %v", err)
	}
	if _, err := directory.FindUser(context.Background(), "usr_1"); err == nil {
		t.Fatalf("expected base error")
	}
	if _, err := directory.FindUser(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestUserCacheKey_EscapesID(t *testing.T) {
	key, err := UserCacheKey("a/b c")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if key != "go-payhooks::user::v1::a%2Fb%20c" {
		t.Fatalf("unexpected cache key %q", key)
	}
}

func newTestUserCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	cacheService, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return cacheService
}
