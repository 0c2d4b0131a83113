package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Password reset stages as the views see them.
const (
	ResetInit        = "reset_init"
	ResetLinkSent    = "link_sent"
	ChangingPassword = "changing_password"
	ResetUnknown     = "reset_unknown"
	ChangeFinalized  = "change_finalized"
)

type InitializePasswordResetMessage struct {
	Stage      string `json:"stage" doc:"Reset flow stage."`
	Email      string `json:"email" example:"ada@internum.example" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Reset   *PasswordReset
	Stage   string
	Success bool
}

type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	activity ActivitySink
	resetTTL time.Duration
	logger   Logger
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Stage != ResetInit {
		return goerrors.New("unknown or invalid stage for password reset initialization", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"stage": event.Stage})
	}

	ttl := h.resetTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// Unknown emails get the exact same outward response; only the
			// missing email gives it away, and we do not send one.
			resp.Stage = ResetLinkSent
			resp.Success = true
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	reset, err := h.repo.PasswordResets().Request(ctx, user, ttl)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
	}

	h.sendResetLink(reset)

	if h.activity != nil {
		h.activity.Record(ctx, ResetRequested(event.Email))
	}

	resp.Reset = reset
	resp.Stage = ResetLinkSent
	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// sendResetLink dispatches the email without blocking the request. Delivery
// failures are logged; the requester cannot learn anything from them.
func (h *InitializePasswordResetHandler) sendResetLink(reset *PasswordReset) {
	if h.mailer == nil {
		return
	}

	logger := h.logger
	if logger == nil {
		logger = defLogger{}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		body := "<p>A password reset was requested for your account.</p>" +
			"<p><a href=\"/password-reset/" + reset.ID.String() + "\">Choose a new password</a></p>" +
			"<p>The link expires at " + reset.ExpiresAt.UTC().Format(time.RFC1123) + ".</p>"

		if err := h.mailer.Send(ctx, reset.Email, "Password reset", body); err != nil {
			logger.Error("password reset email delivery failed: %v", err)
		}
	}()
}
