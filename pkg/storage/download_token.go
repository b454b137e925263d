package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrTokenExpired marks a structurally valid download link past its
// deadline.
var ErrTokenExpired = errors.New("download token expired")

// DownloadSigner mints the signed tokens behind schedule export links.
// A token pins the schedule kind and the artifact it was issued for.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner constructs a signer. ttl bounds how long issued
// links stay valid.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for one export artifact.
func (s *DownloadSigner) Sign(kind, artifact string) (string, time.Time, error) {
	if kind == "" || artifact == "" {
		return "", time.Time{}, fmt.Errorf("kind and artifact required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	payload := encodePayload(kind, artifact, expiresAt.Unix())
	return payload + "." + s.seal(payload), expiresAt, nil
}

// Verify checks the seal and deadline and returns the pinned schedule
// kind and artifact name.
func (s *DownloadSigner) Verify(token string) (kind, artifact string, err error) {
	payload, seal, ok := strings.Cut(token, ".")
	if !ok {
		return "", "", fmt.Errorf("malformed download token")
	}
	if !hmac.Equal([]byte(s.seal(payload)), []byte(seal)) {
		return "", "", fmt.Errorf("download token signature mismatch")
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", "", fmt.Errorf("decode download token: %w", err)
	}
	fields := strings.Split(string(raw), "\n")
	if len(fields) != 3 {
		return "", "", fmt.Errorf("malformed download token")
	}
	expUnix, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("malformed download token")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", "", ErrTokenExpired
	}
	return fields[0], fields[1], nil
}

func encodePayload(kind, artifact string, expUnix int64) string {
	raw := kind + "\n" + artifact + "\n" + strconv.FormatInt(expUnix, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (s *DownloadSigner) seal(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
