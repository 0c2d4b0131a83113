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

// PasswordResets persists single-use reset records. The row id is the token
// embedded in the emailed link.
type PasswordResets interface {
	Request(ctx context.Context, user *User, ttl time.Duration) (*PasswordReset, error)
	GetByID(ctx context.Context, id uuid.UUID) (*PasswordReset, error)
	Consume(ctx context.Context, id uuid.UUID) (*PasswordReset, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type passwordResets struct {
	repository.Repository[*PasswordReset]
	db  *bun.DB
	now func() time.Time
}

var _ PasswordResets = (*passwordResets)(nil)

func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	repo := repository.NewRepository[*PasswordReset](db, repository.ModelHandlers[*PasswordReset]{
		NewRecord: func() *PasswordReset { return &PasswordReset{} },
		GetID: func(p *PasswordReset) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *PasswordReset, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &passwordResets{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

// Request creates a new pending reset record for the user.
func (r *passwordResets) Request(ctx context.Context, user *User, ttl time.Duration) (*PasswordReset, error) {
	now := r.now()
	userID := user.ID
	record := &PasswordReset{
		ID:        uuid.New(),
		UserID:    &userID,
		Status:    ResetRequestedStatus,
		Email:     user.Email,
		ExpiresAt: now.Add(ttl),
	}

	created, err := r.Repository.Create(ctx, record)
	if err != nil {
		return nil, storeError(err, "create password reset failed")
	}

	return created, nil
}

func (r *passwordResets) GetByID(ctx context.Context, id uuid.UUID) (*PasswordReset, error) {
	record := &PasswordReset{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, storeError(err, "password reset lookup failed")
	}

	return record, nil
}

// Consume flips a pending record to changed, exactly once. A second consume
// of the same token, or a consume past expiry, fails.
func (r *passwordResets) Consume(ctx context.Context, id uuid.UUID) (*PasswordReset, error) {
	var consumed *PasswordReset

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := r.now()

		res, err := tx.NewUpdate().
			Model((*PasswordReset)(nil)).
			Set("status = ?", ResetChangedStatus).
			Set("reseted_at = ?", now).
			Where("?TableAlias.id = ?", id).
			Where("?TableAlias.status = ?", ResetRequestedStatus).
			Where("?TableAlias.expires_at > ?", now).
			Where("?TableAlias.deleted_at IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}

		record := &PasswordReset{}
		if err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx); err != nil {
			if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
				return repository.NewRecordNotFound().
					WithMetadata(map[string]any{
						"id": id.String(),
					})
			}
			return err
		}

		if affected == 0 {
			if record.Consumed() {
				return errors.New("reset token already used", errors.CategoryConflict).
					WithCode(errors.CodeConflict)
			}
			return ErrTokenExpired
		}

		consumed = record
		return nil
	})

	if err != nil {
		var richErr *errors.Error
		if isDomainError(err) || (errors.As(err, &richErr) && richErr.Category == errors.CategoryConflict) {
			return nil, err
		}
		return nil, storeError(err, "consume password reset failed")
	}

	return consumed, nil
}

// PurgeExpired flips stale pending records to expired and deletes records
// older than a week. Safe to run repeatedly.
func (r *passwordResets) PurgeExpired(ctx context.Context) (int64, error) {
	var affected int64

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := r.now()

		res, err := tx.NewUpdate().
			Model((*PasswordReset)(nil)).
			Set("status = ?", ResetExpiredStatus).
			Where("?TableAlias.status = ?", ResetRequestedStatus).
			Where("?TableAlias.expires_at <= ?", now).
			Where("?TableAlias.deleted_at IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}

		marked, err := res.RowsAffected()
		if err != nil {
			return err
		}

		cutoff := now.Add(-7 * 24 * time.Hour)
		res, err = tx.NewDelete().
			Model((*PasswordReset)(nil)).
			Where("?TableAlias.expires_at < ?", cutoff).
			ForceDelete().
			Exec(ctx)
		if err != nil {
			return err
		}

		deleted, err := res.RowsAffected()
		if err != nil {
			return err
		}

		affected = marked + deleted
		return nil
	})

	if err != nil {
		return 0, storeError(err, "purge password resets failed")
	}

	return affected, nil
}
