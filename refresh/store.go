package refresh

import (
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/tokenauth/internal"
)

const maxIssueAttempts = 4

// Config defines the store's clock and token source. Zero values select the
// wall clock and internal.NewRefreshToken.
type Config struct {
	Now         func() time.Time
	TokenSource func() (string, error)
}

// Stats is a point-in-time count of the store's contents.
type Stats struct {
	Users   int
	Records int
	Active  int
}

type family struct {
	mu      sync.Mutex
	records []Record
	index   map[string]int
}

// Store holds every user's refresh-token family for the lifetime of the process.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	families map[string]*family
	owners   map[string]string

	now         func() time.Time
	tokenSource func() (string, error)
}

// NewStore returns an empty store.
func NewStore(cfg Config) *Store {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TokenSource == nil {
		cfg.TokenSource = internal.NewRefreshToken
	}
	return &Store{
		families:    make(map[string]*family),
		owners:      make(map[string]string),
		now:         cfg.Now,
		tokenSource: cfg.TokenSource,
	}
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Issue attaches a freshly generated token to the user's family.
func (s *Store) Issue(userID string, expiry time.Time) (Record, error) {
	f := s.familyFor(userID, true)

	f.mu.Lock()
	defer f.mu.Unlock()

	return s.issueLocked(f, userID, s.now(), expiry)
}

// Rotate consumes presented and issues its replacement as one step with respect to
// every other Rotate and Revoke for the same user. An empty presented token skips
// the consume step, which is how a login starts a family.
func (s *Store) Rotate(userID, presented string, newExpiry time.Time) (Record, error) {
	if presented == "" {
		return s.Issue(userID, newExpiry)
	}

	f := s.familyFor(userID, false)
	if f == nil {
		return Record{}, ErrRefreshTokenNotFound
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	pos, ok := f.index[presented]
	if !ok {
		return Record{}, ErrRefreshTokenNotFound
	}

	now := s.now()
	if !f.records[pos].IsActive(now) {
		return Record{}, ErrRefreshTokenRevoked
	}

	next, err := s.issueLocked(f, userID, now, newExpiry)
	if err != nil {
		return Record{}, err
	}

	consumed := &f.records[pos]
	consumed.RevokedAt = now
	consumed.ReplacedBy = next.Token

	return next, nil
}

// Revoke tombstones token. Unknown tokens are a silent success; a token that is
// already inactive is reported with ErrRefreshTokenRevoked.
func (s *Store) Revoke(userID, token string) error {
	f := s.familyFor(userID, false)
	if f == nil {
		return ErrNoTokensForUser
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	pos, ok := f.index[token]
	if !ok {
		return nil
	}

	now := s.now()
	if !f.records[pos].IsActive(now) {
		return ErrRefreshTokenRevoked
	}
	f.records[pos].RevokedAt = now
	return nil
}

// RevokeFamily tombstones every active record of the user and returns how many
// it revoked.
func (s *Store) RevokeFamily(userID string) int {
	f := s.familyFor(userID, false)
	if f == nil {
		return 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := s.now()
	revoked := 0
	for i := range f.records {
		if f.records[i].IsActive(now) {
			f.records[i].RevokedAt = now
			revoked++
		}
	}
	return revoked
}

// Lookup returns a copy of the user's record for token.
func (s *Store) Lookup(userID, token string) (Record, bool) {
	f := s.familyFor(userID, false)
	if f == nil {
		return Record{}, false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	pos, ok := f.index[token]
	if !ok {
		return Record{}, false
	}
	return f.records[pos], true
}

// Family returns a copy of the user's records in issuance order.
func (s *Store) Family(userID string) []Record {
	f := s.familyFor(userID, false)
	if f == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out
}

// Stats counts users and records. Families are visited one at a time, so the result
// is not a consistent snapshot under concurrent writes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	families := make([]*family, 0, len(s.families))
	for _, f := range s.families {
		families = append(families, f)
	}
	s.mu.RUnlock()

	now := s.now()
	st := Stats{Users: len(families)}
	for _, f := range families {
		f.mu.Lock()
		st.Records += len(f.records)
		for i := range f.records {
			if f.records[i].IsActive(now) {
				st.Active++
			}
		}
		f.mu.Unlock()
	}
	return st
}

func (s *Store) familyFor(userID string, create bool) *family {
	s.mu.RLock()
	f := s.families[userID]
	s.mu.RUnlock()
	if f != nil || !create {
		return f
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f = s.families[userID]; f == nil {
		f = &family{index: make(map[string]int)}
		s.families[userID] = f
	}
	return f
}

// issueLocked must be called with f.mu held. It takes s.mu only to reserve the token
// value, so the lock order is always family first, store second.
func (s *Store) issueLocked(f *family, userID string, now, expiry time.Time) (Record, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		token, err := s.tokenSource()
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrTokenSource, err)
		}
		if token == "" || !s.reserve(token, userID) {
			continue
		}

		rec := Record{
			Token:     token,
			UserID:    userID,
			IssuedAt:  now,
			ExpiresAt: expiry,
		}
		f.index[token] = len(f.records)
		f.records = append(f.records, rec)
		return rec, nil
	}
	return Record{}, ErrTokenCollision
}

func (s *Store) reserve(token, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.owners[token]; taken {
		return false
	}
	s.owners[token] = userID
	return true
}
