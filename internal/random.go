package internal

import (
	"crypto/rand"
	"encoding/base64"
)

// RefreshTokenRawSize is the number of random bytes behind a refresh token (512 bits).
const RefreshTokenRawSize = 64

// NewRefreshToken returns RefreshTokenRawSize bytes from crypto/rand, base64url
// encoded without padding.
func NewRefreshToken() (string, error) {
	var raw [RefreshTokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, safe in JSON bodies and headers
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
