package jwtware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyfuncOptionsRefreshErrorHandlerIsSafe(t *testing.T) {
	opts := keyfuncOptions(nil)
	require.NotNil(t, opts.RefreshErrorHandler)
	require.NotPanics(t, func() {
		opts.RefreshErrorHandler(errors.New("refresh failed"))
	})

	require.Equal(t, time.Hour, opts.RefreshInterval)
	require.Equal(t, 5*time.Minute, opts.RefreshRateLimit)
	require.Equal(t, 10*time.Second, opts.RefreshTimeout)
	require.True(t, opts.RefreshUnknownKID)
}

func TestClaimsCapabilityFloors(t *testing.T) {
	guest := &Claims{UserRole: "guest"}
	require.True(t, guest.CanRead(""))
	require.False(t, guest.CanEdit(""))

	coord := &Claims{UserRole: "coord"}
	require.True(t, coord.CanCreate(""))
	require.False(t, coord.CanDelete(""))

	admin := &Claims{UserRole: "admin"}
	require.True(t, admin.CanDelete(""))

	unknown := &Claims{UserRole: "superuser"}
	require.False(t, unknown.CanRead(""))
	require.False(t, unknown.IsAtLeast("guest"))
}
