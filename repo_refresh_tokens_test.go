package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokensIssueAndGet(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)
	user := seedUser(t, db)
	ctx := context.Background()

	issued, err := repo.Issue(ctx, user.ID, "workstation", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, issued)
	assert.NotEqual(t, uuid.Nil, issued.ID)
	assert.Equal(t, user.ID, issued.UserID)
	assert.Equal(t, "workstation", issued.Device)
	assert.Nil(t, issued.RevokedAt)

	found, err := repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, found.ID)
	assert.Equal(t, user.ID, found.UserID)
}

func TestRefreshTokensGetByIDNotFound(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRefreshTokensRotate(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)
	user := seedUser(t, db)
	ctx := context.Background()

	original := seedRefreshToken(t, db, user.ID)

	replacement, err := repo.Rotate(ctx, original.ID, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, replacement)
	assert.NotEqual(t, original.ID, replacement.ID)
	assert.Equal(t, user.ID, replacement.UserID)
	assert.Equal(t, original.Device, replacement.Device)
	assert.Nil(t, replacement.RevokedAt)

	rotated, err := repo.GetByID(ctx, original.ID)
	require.NoError(t, err)
	assert.True(t, rotated.Revoked())
	require.NotNil(t, rotated.ReplacedBy)
	assert.Equal(t, replacement.ID, *rotated.ReplacedBy)
}

func TestRefreshTokensRotateReplayIsReuse(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)
	user := seedUser(t, db)
	ctx := context.Background()

	original := seedRefreshToken(t, db, user.ID)

	_, err := repo.Rotate(ctx, original.ID, time.Hour)
	require.NoError(t, err)

	_, err = repo.Rotate(ctx, original.ID, time.Hour)
	require.Error(t, err)
	assert.True(t, IsReuseDetectedError(err))
}

func TestRefreshTokensRotateExpired(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)
	user := seedUser(t, db)
	ctx := context.Background()

	stale := seedRefreshToken(t, db, user.ID, func(rt *RefreshToken) {
		rt.IssuedAt = time.Now().Add(-2 * time.Hour)
		rt.ExpiresAt = time.Now().Add(-time.Hour)
	})

	_, err := repo.Rotate(ctx, stale.ID, time.Hour)
	require.Error(t, err)
	assert.True(t, IsTokenExpiredError(err))
}

func TestRefreshTokensRotateUnknown(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)

	_, err := repo.Rotate(context.Background(), uuid.New(), time.Hour)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRefreshTokensConcurrentRotateSingleWinner(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)
	user := seedUser(t, db)
	ctx := context.Background()

	original := seedRefreshToken(t, db, user.ID)

	const workers = 8
	results := make(chan error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := repo.Rotate(ctx, original.ID, time.Hour)
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	var wins, replays int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case IsReuseDetectedError(err):
			replays++
		default:
			t.Fatalf("unexpected rotation error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, replays)
}

func TestRefreshTokensRevokeIdempotent(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)
	user := seedUser(t, db)
	ctx := context.Background()

	token := seedRefreshToken(t, db, user.ID)

	require.NoError(t, repo.Revoke(ctx, token.ID))
	require.NoError(t, repo.Revoke(ctx, token.ID))
	require.NoError(t, repo.Revoke(ctx, uuid.New()))

	revoked, err := repo.GetByID(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, revoked.Revoked())
}

func TestRefreshTokensRevokeAllForUser(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)
	user := seedUser(t, db)
	other := seedUser(t, db)
	ctx := context.Background()

	seedRefreshToken(t, db, user.ID)
	seedRefreshToken(t, db, user.ID)
	seedRefreshToken(t, db, user.ID, func(rt *RefreshToken) {
		at := time.Now().Add(-time.Minute)
		rt.RevokedAt = &at
	})
	bystander := seedRefreshToken(t, db, other.ID)

	affected, err := repo.RevokeAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	untouched, err := repo.GetByID(ctx, bystander.ID)
	require.NoError(t, err)
	assert.False(t, untouched.Revoked())
}

func TestRefreshTokensPurgeExpired(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRefreshTokensRepository(db)
	user := seedUser(t, db)
	ctx := context.Background()

	grace := 24 * time.Hour

	longDead := seedRefreshToken(t, db, user.ID, func(rt *RefreshToken) {
		rt.IssuedAt = time.Now().Add(-72 * time.Hour)
		rt.ExpiresAt = time.Now().Add(-48 * time.Hour)
	})
	// Expired but still inside the grace window; its replay must stay
	// classifiable.
	recentlyDead := seedRefreshToken(t, db, user.ID, func(rt *RefreshToken) {
		rt.IssuedAt = time.Now().Add(-2 * time.Hour)
		rt.ExpiresAt = time.Now().Add(-time.Hour)
	})
	live := seedRefreshToken(t, db, user.ID)

	removed, err := repo.PurgeExpired(ctx, grace)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.GetByID(ctx, longDead.ID)
	assert.True(t, errors.IsNotFound(err))

	_, err = repo.GetByID(ctx, recentlyDead.ID)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, live.ID)
	require.NoError(t, err)

	removed, err = repo.PurgeExpired(ctx, grace)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}
