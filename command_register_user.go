package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name" doc:"Given name."`
	LastName  string `json:"last_name" doc:"Family name."`
	Username  string `json:"username" doc:"Login name; defaults to the email's local part."`
	Email     string `json:"email" example:"ada@internum.example" doc:"Account email."`
	Password  string `json:"password" doc:"Initial password."`
	Role      string `json:"role" doc:"Portal role; defaults to member."`
}

func (p RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	repo     RepositoryManager
	activity ActivitySink
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	username := strings.TrimSpace(event.Username)
	if username == "" {
		if at := strings.Index(event.Email, "@"); at > 0 {
			username = event.Email[:at]
		}
	}

	if username == "" {
		return goerrors.New("registration requires a username or email", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if _, err := h.repo.Users().GetByUsername(ctx, username); err == nil {
		return goerrors.New("username is already taken", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithMetadata(map[string]any{"username": username})
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		return err
	}

	role := event.Role
	if role == "" {
		role = RoleMember
	}
	if _, ok := ParseRole(role); !ok {
		return goerrors.New("unknown role", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": event.Role})
	}

	user := &User{
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		Username:     username,
		Email:        event.Email,
		PasswordHash: hash,
		Role:         role,
	}

	created, err := h.repo.Users().Register(ctx, user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register user")
	}

	if h.activity != nil {
		h.activity.Record(ctx, UserRegistered(created.ID.String(), created.Email))
	}

	return nil
}
