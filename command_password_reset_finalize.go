package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type FinalizePasswordResetMessage struct {
	Session  string `json:"session" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Reset token from the emailed link."`
	Password string `json:"password" doc:"New password."`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

type FinalizePasswordResetHandler struct {
	repo     RepositoryManager
	sessions RefreshTokens
	activity ActivitySink
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	tokenID, err := uuid.Parse(event.Session)
	if err != nil {
		return goerrors.New("reset token is not valid", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if event.Password == "" {
		return ErrNoEmptyString
	}

	reset, err := h.repo.PasswordResets().Consume(ctx, tokenID)
	if err != nil {
		return err
	}

	if reset.UserID == nil {
		return goerrors.New("reset record has no user", goerrors.CategoryInternal)
	}

	user, err := h.repo.Users().GetByID(ctx, reset.UserID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for password reset")
	}

	// Reusing the current password defeats the point of the reset.
	if user.PasswordHash != "" {
		if err := ComparePasswordAndHash(event.Password, user.PasswordHash); err == nil {
			return goerrors.New("new password must differ from the current one", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest)
		}
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		return err
	}

	if err := h.repo.Users().ResetPassword(ctx, user.ID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist new password")
	}

	// Every open session dies with the old password.
	if h.sessions != nil {
		if _, err := h.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke sessions after password reset")
		}
	}

	if h.activity != nil {
		h.activity.Record(ctx, PasswordWasReset(user.ID.String()))
		h.activity.Record(ctx, SessionsRevoked(user.ID.String(), "password reset"))
	}

	return nil
}
