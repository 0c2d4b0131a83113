package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// storeRetryBackoff is the single pause between the first failed store call
// and its one retry.
const storeRetryBackoff = 100 * time.Millisecond

// RefreshTokens persists browser sessions. Every mutation that could race
// with another node runs inside one transaction with a conditional update,
// so rotation of the same token can succeed at most once.
type RefreshTokens interface {
	Issue(ctx context.Context, userID uuid.UUID, device string, ttl time.Duration) (*RefreshToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*RefreshToken, error)
	Rotate(ctx context.Context, id uuid.UUID, ttl time.Duration) (*RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	PurgeExpired(ctx context.Context, grace time.Duration) (int64, error)
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db  *bun.DB
	now func() time.Time
}

var _ RefreshTokens = (*refreshTokens)(nil)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(t *RefreshToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *RefreshToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

// Issue creates a fresh session record for a successful login.
func (r *refreshTokens) Issue(ctx context.Context, userID uuid.UUID, device string, ttl time.Duration) (*RefreshToken, error) {
	now := r.now()
	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Device:    device,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	var created *RefreshToken
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		created, err = r.Repository.Create(ctx, record)
		return err
	})
	if err != nil {
		return nil, storeError(err, "issue refresh token failed")
	}

	return created, nil
}

func (r *refreshTokens) GetByID(ctx context.Context, id uuid.UUID) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := r.withRetry(ctx, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
	})

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, storeError(err, "refresh token lookup failed")
	}

	return record, nil
}

// Rotate revokes the presented token and issues its replacement in one
// transaction. The conditional update is the concurrency gate: of N
// concurrent rotations of the same token, exactly one flips the row, the
// rest observe a revoked record and get the reuse signal.
func (r *refreshTokens) Rotate(ctx context.Context, id uuid.UUID, ttl time.Duration) (*RefreshToken, error) {
	var replacement *RefreshToken

	err := r.withRetry(ctx, func(ctx context.Context) error {
		replacement = nil
		return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			now := r.now()
			next := &RefreshToken{
				ID:       uuid.New(),
				IssuedAt: now,
			}

			res, err := tx.NewUpdate().
				Model((*RefreshToken)(nil)).
				Set("revoked_at = ?", now).
				Set("replaced_by = ?", next.ID).
				Where("?TableAlias.id = ?", id).
				Where("?TableAlias.revoked_at IS NULL").
				Where("?TableAlias.expires_at > ?", now).
				Exec(ctx)
			if err != nil {
				return err
			}

			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}

			if affected == 0 {
				return r.classifyRotateFailureTx(ctx, tx, id, now)
			}

			prev := &RefreshToken{}
			if err := tx.NewSelect().
				Model(prev).
				Where("?TableAlias.id = ?", id).
				Limit(1).
				Scan(ctx); err != nil {
				return err
			}

			next.UserID = prev.UserID
			next.Device = prev.Device
			next.ExpiresAt = now.Add(ttl)

			if _, err := tx.NewInsert().Model(next).Exec(ctx); err != nil {
				return err
			}

			replacement = next
			return nil
		})
	})

	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, storeError(err, "rotate refresh token failed")
	}

	return replacement, nil
}

// classifyRotateFailureTx figures out why the conditional update matched
// nothing: replayed, expired, or never issued.
func (r *refreshTokens) classifyRotateFailureTx(ctx context.Context, tx bun.Tx, id uuid.UUID, now time.Time) error {
	record := &RefreshToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return err
	}

	if record.Revoked() {
		return ErrReuseDetected
	}

	if record.ExpiredAt(now) {
		return ErrTokenExpired
	}

	// Row exists, live, yet the update missed it: a concurrent rotation won
	// between our update and this read. Treat as replay.
	return ErrReuseDetected
}

// Revoke marks one session revoked. Revoking an already revoked or unknown
// token is not an error; logout must be idempotent.
func (r *refreshTokens) Revoke(ctx context.Context, id uuid.UUID) error {
	err := r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().
			Model((*RefreshToken)(nil)).
			Set("revoked_at = ?", r.now()).
			Where("?TableAlias.id = ?", id).
			Where("?TableAlias.revoked_at IS NULL").
			Exec(ctx)
		return err
	})

	if err != nil {
		return storeError(err, "revoke refresh token failed")
	}

	return nil
}

// RevokeAllForUser revokes every live session of one account. Used on reuse
// detection, account disabling, and password resets.
func (r *refreshTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var affected int64

	err := r.withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.NewUpdate().
			Model((*RefreshToken)(nil)).
			Set("revoked_at = ?", r.now()).
			Where("?TableAlias.user_id = ?", userID).
			Where("?TableAlias.revoked_at IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})

	if err != nil {
		return 0, storeError(err, "revoke user sessions failed")
	}

	return affected, nil
}

// PurgeExpired deletes rows expired or revoked for longer than grace. The
// grace window keeps recently rotated rows around so a replayed predecessor
// still classifies as reuse rather than unknown.
func (r *refreshTokens) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	var affected int64

	err := r.withRetry(ctx, func(ctx context.Context) error {
		cutoff := r.now().Add(-grace)
		res, err := r.db.NewDelete().
			Model((*RefreshToken)(nil)).
			WhereGroup(" AND ", func(q *bun.DeleteQuery) *bun.DeleteQuery {
				return q.
					Where("?TableAlias.expires_at < ?", cutoff).
					WhereOr("?TableAlias.revoked_at < ?", cutoff)
			}).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})

	if err != nil {
		return 0, storeError(err, "purge refresh tokens failed")
	}

	return affected, nil
}

// withRetry runs fn, retrying exactly once after a short pause when the
// failure looks infrastructural. Domain outcomes pass through untouched.
func (r *refreshTokens) withRetry(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || isDomainError(err) || ctx.Err() != nil {
		return err
	}

	select {
	case <-time.After(storeRetryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	return fn(ctx)
}

// isDomainError separates auth semantics from store availability. Retrying
// a reuse detection would double-fire the alarm.
func isDomainError(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.TextCode {
		case TextCodeReuseDetected, TextCodeTokenExpired, TextCodeTokenMalformed:
			return true
		}
	}
	return false
}
