package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("acc", "ref", "hodl-ledger", time.Minute, time.Hour)

	access, refresh, exp, err := tm.GeneratePair("feeder", RoleIngest)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	c, err := tm.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "feeder", c.ClientID)
	assert.Equal(t, RoleIngest, c.Role)

	c, err = tm.ParseRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, "feeder", c.ClientID)

	// tokens are not interchangeable
	_, err = tm.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignIssuerAndExpired(t *testing.T) {
	tm := NewTokenManager("acc", "ref", "hodl-ledger", time.Minute, time.Hour)
	other := NewTokenManager("acc", "ref", "someone-else", time.Minute, time.Hour)

	access, _, _, err := other.GeneratePair("feeder", RoleIngest)
	require.NoError(t, err)
	_, err = tm.ParseAccess(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("acc", "ref", "hodl-ledger", -time.Minute, time.Hour)
	access, _, _, err = expired.GeneratePair("feeder", RoleIngest)
	require.NoError(t, err)
	_, err = tm.ParseAccess(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifySecret(t *testing.T) {
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)

	assert.NoError(t, VerifySecret("s3cret", hash))
	assert.Error(t, VerifySecret("wrong", hash))
	assert.Error(t, VerifySecret("s3cret", ""))
}
