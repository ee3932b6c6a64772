package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	tokenSeparator  = "."
	tokenFieldCount = 4
	defaultTokenTTL = 24 * time.Hour
)

// Token validation failures. Callers usually collapse these into a single
// forbidden response, the distinction exists for logging.
var (
	ErrTokenMalformed = errors.New("storage: malformed download token")
	ErrTokenSignature = errors.New("storage: download token signature mismatch")
	ErrTokenExpired   = errors.New("storage: download token expired")
)

// SignedURLSigner creates and validates signed download tokens. A token binds
// a resource ID (report job or document) to its stored file path, so a leaked
// path cannot be fetched under a different resource's token.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a signed token referencing the resource and file path.
// The signature covers the exact prefix that travels in the token.
func (s *SignedURLSigner) Generate(resourceID, relPath string) (string, time.Time, error) {
	if resourceID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("resourceID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	prefix := strings.Join([]string{
		resourceID,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(relPath)),
	}, tokenSeparator)
	return prefix + tokenSeparator + s.sign(prefix), expiresAt, nil
}

// Parse validates a token and returns the embedded metadata.
// When allowExpired is true, the timestamp check is skipped (used by cleanup
// routines that need the path of an already stale file).
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (resourceID, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != tokenFieldCount {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	prefix := strings.Join(parts[:3], tokenSeparator)
	if !hmac.Equal([]byte(s.sign(prefix)), []byte(parts[3])) {
		return "", "", time.Time{}, ErrTokenSignature
	}

	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	expiresAt = time.Unix(expUnix, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}

	rawPath, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	return parts[0], string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) sign(prefix string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(prefix)) //nolint:errcheck
	return hex.EncodeToString(mac.Sum(nil))
}
