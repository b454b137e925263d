package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("secret", 5*time.Minute)

	token, expiresAt, err := signer.Sign("helpdesk", "schedule-helpdesk-20260302-090000.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	kind, artifact, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "helpdesk", kind)
	assert.Equal(t, "schedule-helpdesk-20260302-090000.csv", artifact)
}

func TestDownloadSignerRejectsTampering(t *testing.T) {
	signer := NewDownloadSigner("secret", 5*time.Minute)
	token, _, err := signer.Sign("lab", "schedule-lab.pdf")
	require.NoError(t, err)

	payload, seal, ok := strings.Cut(token, ".")
	require.True(t, ok)

	forged := encodePayload("lab", "../../etc/passwd", time.Now().Add(time.Hour).Unix())
	_, _, err = signer.Verify(forged + "." + seal)
	require.Error(t, err)

	_, _, err = signer.Verify(payload)
	require.Error(t, err)

	other := NewDownloadSigner("different-secret", 5*time.Minute)
	_, _, err = other.Verify(token)
	require.Error(t, err)
}

func TestDownloadSignerExpired(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Sign("helpdesk", "schedule-helpdesk.csv")
	require.NoError(t, err)

	_, _, err = signer.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}
