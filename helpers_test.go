package tokenauth

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("tokenauth-test-secret-0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// testConfig keeps Argon2 cheap so password tests stay fast.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = append([]byte(nil), testSecret...)
	cfg.JWT.Issuer = "tokenauth-test"
	cfg.JWT.Audiences = []string{"tokenauth-api"}
	cfg.JWT.ValidateAudience = true
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *testClock) {
	t.Helper()
	clock := newTestClock()
	engine, err := New().WithConfig(cfg).WithClock(clock.Now).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, clock
}

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

type mockUserProvider struct {
	mu           sync.Mutex
	users        map[string]UserRecord
	byIdentifier map[string]string
	getByIDCalls int
}

func newMockUserProvider(t *testing.T, users ...UserRecord) *mockUserProvider {
	t.Helper()
	up := &mockUserProvider{
		users:        make(map[string]UserRecord),
		byIdentifier: make(map[string]string),
	}
	for _, u := range users {
		up.users[u.UserID] = u
		up.byIdentifier[u.Identifier] = u.UserID
	}
	return up
}

func (m *mockUserProvider) GetUserByIdentifier(identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byIdentifier[identifier]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *mockUserProvider) GetUserByID(userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDCalls++
	u, ok := m.users[userID]
	if !ok {
		return UserRecord{}, errors.New("no such user")
	}
	return u, nil
}

func (m *mockUserProvider) setRoles(userID string, roles ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.Roles = roles
	m.users[userID] = u
}
