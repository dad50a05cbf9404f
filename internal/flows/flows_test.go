package flows

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/refresh"
)

var errLimited = errors.New("limited")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubLimiter struct {
	err   error
	calls []string
}

func (l *stubLimiter) CheckRefresh(_ context.Context, userID string) error {
	l.calls = append(l.calls, userID)
	return l.err
}

type failingCodec struct {
	TokenCodec
}

func (failingCodec) Mint(jwt.ClaimSet, time.Time) (string, error) {
	return "", jwt.ErrSigningFailed
}

func testClaims(id Identity) jwt.ClaimSet {
	set := jwt.ClaimSet{
		{Type: jwt.ClaimUniqueName, Value: id.Name},
		{Type: jwt.ClaimName, Value: id.Name},
		{Type: jwt.ClaimIssuedAt, Value: "1700000000"},
		{Type: jwt.ClaimSubject, Value: id.UserID},
	}
	for _, r := range id.Roles {
		set = append(set, jwt.Claim{Type: jwt.ClaimRole, Value: r})
	}
	return set
}

type fixture struct {
	clock  *clock
	codec  *jwt.Manager
	store  *refresh.Store
	tokens Tokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	codec, err := jwt.NewManager(jwt.Config{
		Secret: []byte("flows-test-secret-0123456789abcdef"),
		Issuer: "tokenauth-test",
		Now:    c.Now,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	store := refresh.NewStore(refresh.Config{Now: c.Now})
	return &fixture{
		clock: c,
		codec: codec,
		store: store,
		tokens: Tokens{
			Codec:      codec,
			Store:      store,
			Claims:     testClaims,
			Now:        c.Now,
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
	}
}

func (f *fixture) login(t *testing.T, userID string) LoginResult {
	t.Helper()
	res := RunLogin(context.Background(), Identity{UserID: userID, Name: userID}, LoginDeps{Tokens: f.tokens})
	if res.Failure != LoginFailureNone {
		t.Fatalf("login failed: %d %v", res.Failure, res.Err)
	}
	return res
}

func TestRunLoginIssuesPair(t *testing.T) {
	f := newFixture(t)
	res := f.login(t, "alice")

	if !res.AccessExpiresAt.Equal(f.clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected access expiry %v", res.AccessExpiresAt)
	}
	if !res.Refresh.ExpiresAt.Equal(f.clock.Now().Add(24 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry %v", res.Refresh.ExpiresAt)
	}

	decoded, err := f.codec.Decode(res.AccessToken, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Subject != "alice" {
		t.Fatalf("unexpected subject %q", decoded.Subject)
	}
}

func TestRunLoginRejectsEmptyUser(t *testing.T) {
	f := newFixture(t)
	res := RunLogin(context.Background(), Identity{UserID: "  "}, LoginDeps{Tokens: f.tokens})
	if res.Failure != LoginFailureIdentity {
		t.Fatalf("expected identity failure, got %d", res.Failure)
	}
	if len(f.store.Family("  ")) != 0 {
		t.Fatal("no refresh token may be issued for an empty identity")
	}
}

func TestRunLoginMintFailure(t *testing.T) {
	f := newFixture(t)
	tokens := f.tokens
	tokens.Codec = failingCodec{TokenCodec: f.codec}

	res := RunLogin(context.Background(), Identity{UserID: "alice"}, LoginDeps{Tokens: tokens})
	if res.Failure != LoginFailureIssueAccess || !errors.Is(res.Err, jwt.ErrSigningFailed) {
		t.Fatalf("expected access issuance failure, got %d %v", res.Failure, res.Err)
	}
}

func TestRunRefreshAcceptsExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "alice")

	f.clock.Advance(2 * time.Hour)
	res := RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, RefreshDeps{Tokens: f.tokens})
	if res.Failure != RefreshFailureNone {
		t.Fatalf("expected refresh success, got %d %v", res.Failure, res.Err)
	}
	if res.Refresh.Token == first.Refresh.Token || res.AccessToken == first.AccessToken {
		t.Fatal("expected a new token pair")
	}
}

func TestRunRefreshClassifiesReuse(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "alice")
	deps := RefreshDeps{Tokens: f.tokens}

	second := RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, deps)
	if second.Failure != RefreshFailureNone {
		t.Fatalf("refresh: %d %v", second.Failure, second.Err)
	}

	replay := RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, deps)
	if replay.Failure != RefreshFailureReuse || !errors.Is(replay.Err, refresh.ErrRefreshTokenRevoked) {
		t.Fatalf("expected reuse failure wrapping ErrRefreshTokenRevoked, got %d %v", replay.Failure, replay.Err)
	}
	if replay.FamilyRevoked != 0 {
		t.Fatal("family must stay intact unless revocation on reuse is enabled")
	}
	if rec, _ := f.store.Lookup("alice", second.Refresh.Token); !rec.IsActive(f.clock.Now()) {
		t.Fatal("current token must stay active")
	}
}

func TestRunRefreshReuseRevokesFamilyWhenEnabled(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "alice")
	deps := RefreshDeps{Tokens: f.tokens, RevokeFamilyOnReuse: true}

	second := RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, deps)
	replay := RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, deps)
	if replay.Failure != RefreshFailureReuse || replay.FamilyRevoked != 1 {
		t.Fatalf("expected one record revoked on reuse, got %d (%d)", replay.FamilyRevoked, replay.Failure)
	}

	after := RunRefresh(context.Background(), second.AccessToken, second.Refresh.Token, deps)
	if after.Failure != RefreshFailureRevoked {
		t.Fatalf("expected revoked failure after family revocation, got %d", after.Failure)
	}
}

func TestRunRefreshNotFoundForForeignToken(t *testing.T) {
	f := newFixture(t)
	alice := f.login(t, "alice")
	bob := f.login(t, "bob")

	res := RunRefresh(context.Background(), bob.AccessToken, alice.Refresh.Token, RefreshDeps{Tokens: f.tokens})
	if res.Failure != RefreshFailureNotFound || !errors.Is(res.Err, refresh.ErrRefreshTokenNotFound) {
		t.Fatalf("expected not found, got %d %v", res.Failure, res.Err)
	}
}

func TestRunRefreshDecodeFailure(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "alice")

	res := RunRefresh(context.Background(), first.AccessToken+"x", first.Refresh.Token, RefreshDeps{Tokens: f.tokens})
	if res.Failure != RefreshFailureDecode || !errors.Is(res.Err, jwt.ErrSignatureInvalid) {
		t.Fatalf("expected decode failure, got %d %v", res.Failure, res.Err)
	}
	if rec, _ := f.store.Lookup("alice", first.Refresh.Token); !rec.IsActive(f.clock.Now()) {
		t.Fatal("a rejected access token must not consume the refresh token")
	}
}

func TestRunRefreshBlankTokenNeverReachesStore(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "alice")

	res := RunRefresh(context.Background(), first.AccessToken, " ", RefreshDeps{Tokens: f.tokens})
	if res.Failure != RefreshFailureNotFound || !errors.Is(res.Err, refresh.ErrRefreshTokenNotFound) {
		t.Fatalf("expected not found, got %d %v", res.Failure, res.Err)
	}
	if got := len(f.store.Family("alice")); got != 1 {
		t.Fatalf("expected family of 1 record, got %d", got)
	}
}

func TestRunRefreshCarriesTokenRoles(t *testing.T) {
	f := newFixture(t)
	first := RunLogin(context.Background(), Identity{UserID: "bob", Name: "bob", Roles: []string{"Reader", "Auditor"}}, LoginDeps{Tokens: f.tokens})

	res := RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, RefreshDeps{Tokens: f.tokens})
	if res.Failure != RefreshFailureNone {
		t.Fatalf("refresh: %d %v", res.Failure, res.Err)
	}
	decoded, err := f.codec.Decode(res.AccessToken, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if roles := decoded.Values(jwt.ClaimRole); len(roles) != 2 || roles[0] != "Reader" || roles[1] != "Auditor" {
		t.Fatalf("expected roles from the presented token, got %v", roles)
	}
}

func TestRunRefreshRateLimit(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "alice")

	limiter := &stubLimiter{err: errLimited}
	deps := RefreshDeps{
		Tokens:        f.tokens,
		RateLimiter:   limiter,
		IsRateLimited: func(err error) bool { return errors.Is(err, errLimited) },
	}
	res := RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, deps)
	if res.Failure != RefreshFailureRateLimited {
		t.Fatalf("expected rate limited, got %d", res.Failure)
	}
	if len(limiter.calls) != 1 || limiter.calls[0] != "alice" {
		t.Fatalf("expected limiter keyed by user id, got %v", limiter.calls)
	}

	limiter.err = errors.New("redis down")
	res = RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, deps)
	if res.Failure != RefreshFailureLimiterUnavailable {
		t.Fatalf("expected limiter unavailable, got %d", res.Failure)
	}
	if rec, _ := f.store.Lookup("alice", first.Refresh.Token); !rec.IsActive(f.clock.Now()) {
		t.Fatal("a throttled refresh must not consume the refresh token")
	}
}

func TestRunRefreshRederivesClaims(t *testing.T) {
	f := newFixture(t)
	first := RunLogin(context.Background(), Identity{UserID: "u1", Name: "Alice", Roles: []string{"Admin"}}, LoginDeps{Tokens: f.tokens})

	deps := RefreshDeps{
		Tokens: f.tokens,
		ResolveIdentity: func(_ context.Context, id Identity) Identity {
			id.Roles = []string{"Reader"}
			return id
		},
	}
	res := RunRefresh(context.Background(), first.AccessToken, first.Refresh.Token, deps)
	if res.Failure != RefreshFailureNone {
		t.Fatalf("refresh: %d %v", res.Failure, res.Err)
	}

	decoded, err := f.codec.Decode(res.AccessToken, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if roles := decoded.Values(jwt.ClaimRole); len(roles) != 1 || roles[0] != "Reader" {
		t.Fatalf("expected re-derived roles, got %v", roles)
	}
	if name, _ := decoded.Get(jwt.ClaimName); name != "Alice" {
		t.Fatalf("expected name to carry over, got %q", name)
	}
}

func TestRunRevoke(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "alice")
	deps := RevokeDeps{Codec: f.codec, Store: f.store}

	if res := RunRevoke(context.Background(), first.AccessToken, first.Refresh.Token, deps); res.Failure != RevokeFailureNone {
		t.Fatalf("revoke: %d %v", res.Failure, res.Err)
	}
	if res := RunRevoke(context.Background(), first.AccessToken, first.Refresh.Token, deps); res.Failure != RevokeFailureRevoked {
		t.Fatalf("expected double revoke to fail, got %d", res.Failure)
	}
	if res := RunRevoke(context.Background(), first.AccessToken, "never-issued", deps); res.Failure != RevokeFailureNone {
		t.Fatalf("expected unknown token revoke to succeed, got %d", res.Failure)
	}
}

func TestRunRevokeRequiresLiveAccessToken(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "alice")

	f.clock.Advance(time.Hour + 2*time.Minute)
	res := RunRevoke(context.Background(), first.AccessToken, first.Refresh.Token, RevokeDeps{Codec: f.codec, Store: f.store})
	if res.Failure != RevokeFailureDecode || !errors.Is(res.Err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired access token to be rejected, got %d %v", res.Failure, res.Err)
	}
}

func TestRunRevokeNoTokens(t *testing.T) {
	f := newFixture(t)
	token, err := f.codec.Mint(testClaims(Identity{UserID: "ghost", Name: "ghost"}), f.clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	res := RunRevoke(context.Background(), token, "anything", RevokeDeps{Codec: f.codec, Store: f.store})
	if res.Failure != RevokeFailureNoTokens || !errors.Is(res.Err, refresh.ErrNoTokensForUser) {
		t.Fatalf("expected no tokens failure, got %d %v", res.Failure, res.Err)
	}
}

func TestRunValidate(t *testing.T) {
	f := newFixture(t)
	res := RunLogin(context.Background(), Identity{UserID: "u7", Name: "Grace", Roles: []string{"Admin", "Ops"}}, LoginDeps{Tokens: f.tokens})

	v := RunValidate(context.Background(), res.AccessToken, ValidateDeps{Codec: f.codec})
	if v.Failure != ValidateFailureNone {
		t.Fatalf("validate: %v", v.Err)
	}
	if v.Identity.UserID != "u7" || v.Identity.Name != "Grace" || len(v.Identity.Roles) != 2 {
		t.Fatalf("unexpected identity %+v", v.Identity)
	}

	f.clock.Advance(time.Hour + 2*time.Minute)
	if v := RunValidate(context.Background(), res.AccessToken, ValidateDeps{Codec: f.codec}); v.Failure != ValidateFailureDecode {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestIdentityFromDecodedNameFallback(t *testing.T) {
	cases := []struct {
		claims jwt.ClaimSet
		want   string
	}{
		{jwt.ClaimSet{{Type: jwt.ClaimSubject, Value: "s"}, {Type: jwt.ClaimName, Value: "n"}, {Type: jwt.ClaimUniqueName, Value: "u"}}, "n"},
		{jwt.ClaimSet{{Type: jwt.ClaimSubject, Value: "s"}, {Type: jwt.ClaimUniqueName, Value: "u"}}, "u"},
		{jwt.ClaimSet{{Type: jwt.ClaimSubject, Value: "s"}}, "s"},
	}
	for i, tc := range cases {
		got := IdentityFromDecoded(&jwt.Decoded{Subject: "s", Claims: tc.claims})
		if got.Name != tc.want {
			t.Fatalf("case %s: expected %q, got %q", strconv.Itoa(i), tc.want, got.Name)
		}
	}
}
