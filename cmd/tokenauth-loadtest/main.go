// Command tokenauth-loadtest drives an in-process engine through login,
// refresh and replay phases and prints latency percentiles per phase.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type userState struct {
	id   string
	mu   sync.Mutex
	pair *tokenauth.TokenPair
	// consumed holds refresh tokens already rotated away, replayed in the last phase.
	consumed []tokenauth.TokenPair
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to log in")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "refresh operations")
		replays     = flag.Int("replays", 10000, "replayed refresh tokens")
		throttle    = flag.Bool("throttle", false, "enable the refresh throttle")
		redisAddr   = flag.String("redis-addr", "", "redis address for the throttle; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *replays < 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency and ops must be > 0, replays >= 0")
		os.Exit(2)
	}

	cfg := tokenauth.DefaultConfig()
	cfg.JWT.Secret = make([]byte, 64)
	if _, err := rand.Read(cfg.JWT.Secret); err != nil {
		fmt.Fprintf(os.Stderr, "secret: %v\n", err)
		os.Exit(1)
	}
	cfg.JWT.Issuer = "tokenauth-loadtest"
	cfg.Metrics.Enabled = true

	builder := tokenauth.New()
	if *throttle {
		cfg.Security.EnableRefreshThrottle = true
		cfg.Security.MaxRefreshAttempts = *ops
		client, cleanup, err := connectRedis(*redisAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer cleanup()
		builder = builder.WithRedis(client)
	}

	engine, err := builder.WithConfig(cfg).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	states := make([]*userState, *users)
	for i := range states {
		states[i] = &userState{id: fmt.Sprintf("user-%d", i)}
	}

	loginStats := runLoginPhase(ctx, engine, states, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)
	replayStats, accepted := runReplayPhase(ctx, engine, states, *replays, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("refresh", refreshStats)
	printStats("replay", replayStats)

	st := engine.RefreshStats()
	fmt.Printf("store: users=%d records=%d active=%d\n", st.Users, st.Records, st.Active)
	if accepted > 0 {
		fmt.Fprintf(os.Stderr, "replay phase accepted %d consumed tokens\n", accepted)
		os.Exit(1)
	}
}

func connectRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// work runs fn for indexes [0, n) across concurrency workers and collects latencies.
func work(n, concurrency int, fn func(r *mrand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, n)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= n {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runLoginPhase(ctx context.Context, engine *tokenauth.Engine, states []*userState, concurrency int) phaseStats {
	return work(len(states), concurrency, func(_ *mrand.Rand, i int) error {
		s := states[i]
		pair, err := engine.Login(ctx, tokenauth.Identity{UserID: s.id, Name: s.id})
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.pair = pair
		s.mu.Unlock()
		return nil
	})
}

func runRefreshPhase(ctx context.Context, engine *tokenauth.Engine, states []*userState, ops, concurrency int) phaseStats {
	return work(ops, concurrency, func(r *mrand.Rand, _ int) error {
		s := states[r.Intn(len(states))]
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pair == nil {
			return errors.New("user has no pair")
		}
		next, err := engine.Refresh(ctx, s.pair.AccessToken, s.pair.RefreshToken)
		if err != nil {
			return err
		}
		s.consumed = append(s.consumed, *s.pair)
		s.pair = next
		return nil
	})
}

// runReplayPhase presents consumed refresh tokens again. Every replay must be
// rejected; the second result counts the ones that were not.
func runReplayPhase(ctx context.Context, engine *tokenauth.Engine, states []*userState, replays, concurrency int) (phaseStats, int64) {
	var candidates []tokenauth.TokenPair
	for _, s := range states {
		candidates = append(candidates, s.consumed...)
	}
	if len(candidates) == 0 || replays == 0 {
		return phaseStats{}, 0
	}

	var accepted int64
	stats := work(replays, concurrency, func(r *mrand.Rand, _ int) error {
		p := candidates[r.Intn(len(candidates))]
		_, err := engine.Refresh(ctx, p.AccessToken, p.RefreshToken)
		if err == nil {
			atomic.AddInt64(&accepted, 1)
			return nil
		}
		if errors.Is(err, tokenauth.ErrRefreshTokenRevoked) {
			return err
		}
		return fmt.Errorf("unexpected replay error: %w", err)
	})
	return stats, accepted
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

// For the replay phase failures are the rejected replays.
func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
