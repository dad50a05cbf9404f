package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, cfg), mr
}

func loginConfig() Config {
	return Config{
		EnableLoginThrottle:   true,
		EnableIPThrottle:      true,
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	}
}

func TestLoginThrottleTripsAfterBudget(t *testing.T) {
	l, _ := newTestLimiter(t, loginConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: unexpected check error %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: unexpected increment error %v", i, err)
		}
	}

	if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if n, err := l.GetLoginAttempts(ctx, "alice"); err != nil || n != 3 {
		t.Fatalf("expected 3 attempts, got %d (%v)", n, err)
	}
}

func TestLoginThrottleIPKeyIsShared(t *testing.T) {
	l, _ := newTestLimiter(t, loginConfig())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := l.IncrementLogin(ctx, id, "10.0.0.9"); err != nil {
			t.Fatalf("increment %s: %v", id, err)
		}
	}
	if err := l.CheckLogin(ctx, "fresh-user", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected per-IP limit to trip for a new identifier, got %v", err)
	}
	if err := l.CheckLogin(ctx, "fresh-user", "10.0.0.10"); err != nil {
		t.Fatalf("expected other IPs to be unaffected, got %v", err)
	}
}

func TestLoginThrottleWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, loginConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.IncrementLogin(ctx, "alice", "")
	}
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, loginConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.IncrementLogin(ctx, "alice", "10.0.0.1")
	}
	if err := l.ResetLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("expected reset counters, got %v", err)
	}
}

func TestRefreshThrottlePerUser(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableRefreshThrottle:   true,
		MaxRefreshAttempts:      2,
		RefreshCooldownDuration: time.Minute,
		KeyPrefix:               "tokenauth",
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckRefresh(ctx, "alice"); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if err := l.CheckRefresh(ctx, "alice"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckRefresh(ctx, "bob"); err != nil {
		t.Fatalf("expected other users to be unaffected, got %v", err)
	}
}

func TestDisabledThrottlesNeverTouchRedis(t *testing.T) {
	l, mr := newTestLimiter(t, Config{})
	ctx := context.Background()

	if err := l.CheckRefresh(ctx, "alice"); err != nil {
		t.Fatalf("CheckRefresh: %v", err)
	}
	if err := l.IncrementLogin(ctx, "alice", "1.2.3.4"); err != nil {
		t.Fatalf("IncrementLogin: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestRedisFailureIsWrapped(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		EnableRefreshThrottle:   true,
		MaxRefreshAttempts:      1,
		RefreshCooldownDuration: time.Minute,
	})
	mr.SetError("LOADING")

	if err := l.CheckRefresh(context.Background(), "alice"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestNilLimiterIsNoop(t *testing.T) {
	var l *Limiter
	ctx := context.Background()
	if err := l.CheckLogin(ctx, "a", "b"); err != nil {
		t.Fatalf("CheckLogin: %v", err)
	}
	if err := l.CheckRefresh(ctx, "a"); err != nil {
		t.Fatalf("CheckRefresh: %v", err)
	}
}
