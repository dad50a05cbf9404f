// Package directory is an in-memory user directory backing password logins
// of the tokenauthd server.
package directory

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MrEthical07/tokenauth"
	"github.com/google/uuid"
)

var (
	ErrDuplicateIdentifier = errors.New("identifier already registered")
	ErrEmptyIdentifier     = errors.New("identifier is required")
)

// HashFunc hashes a plaintext password. (*tokenauth.Engine).HashPassword fits.
type HashFunc func(password string) (string, error)

// User is a registration request.
type User struct {
	Identifier string
	Name       string
	Email      string
	Password   string
	Roles      []string
}

// Directory implements tokenauth.UserProvider. Identifiers are matched
// case-insensitively.
type Directory struct {
	mu           sync.RWMutex
	byID         map[string]tokenauth.UserRecord
	byIdentifier map[string]string

	openLogin bool
}

// New returns an empty directory. In open-login mode the HTTP API issues
// tokens for any username without consulting the directory.
func New(openLogin bool) *Directory {
	return &Directory{
		byID:         make(map[string]tokenauth.UserRecord),
		byIdentifier: make(map[string]string),
		openLogin:    openLogin,
	}
}

func (d *Directory) OpenLogin() bool {
	return d != nil && d.openLogin
}

// Add registers u under a fresh UUID and returns the stored record.
func (d *Directory) Add(u User, hash HashFunc) (tokenauth.UserRecord, error) {
	key := normalize(u.Identifier)
	if key == "" {
		return tokenauth.UserRecord{}, ErrEmptyIdentifier
	}

	encoded, err := hash(u.Password)
	if err != nil {
		return tokenauth.UserRecord{}, fmt.Errorf("hash password for %q: %w", u.Identifier, err)
	}

	rec := tokenauth.UserRecord{
		UserID:       uuid.NewString(),
		Identifier:   strings.TrimSpace(u.Identifier),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: encoded,
		Roles:        append([]string(nil), u.Roles...),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byIdentifier[key]; taken {
		return tokenauth.UserRecord{}, ErrDuplicateIdentifier
	}
	d.byID[rec.UserID] = rec
	d.byIdentifier[key] = rec.UserID
	return copyRecord(rec), nil
}

// SetRoles replaces the roles of a user. Tokens minted on the next refresh
// carry the new roles.
func (d *Directory) SetRoles(userID string, roles ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[userID]
	if !ok {
		return tokenauth.ErrUserNotFound
	}
	rec.Roles = append([]string(nil), roles...)
	d.byID[userID] = rec
	return nil
}

func (d *Directory) GetUserByIdentifier(identifier string) (tokenauth.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byIdentifier[normalize(identifier)]
	if !ok {
		return tokenauth.UserRecord{}, tokenauth.ErrUserNotFound
	}
	return copyRecord(d.byID[id]), nil
}

func (d *Directory) GetUserByID(userID string) (tokenauth.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.byID[userID]
	if !ok {
		return tokenauth.UserRecord{}, tokenauth.ErrUserNotFound
	}
	return copyRecord(rec), nil
}

// Len returns the number of registered users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func copyRecord(rec tokenauth.UserRecord) tokenauth.UserRecord {
	rec.Roles = append([]string(nil), rec.Roles...)
	return rec
}
