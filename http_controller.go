package auth

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// GetRouterSession pulls the session the middleware parked in router locals.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	stored := c.Locals(key)
	if stored == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := stored.(AuthClaims)
	if !ok {
		if session, ok := stored.(Session); ok {
			if so, ok := session.(SessionObject); ok {
				return &so, nil
			}
			if so, ok := session.(*SessionObject); ok {
				return so, nil
			}
		}
		return nil, ErrUnableToDecodeSession
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		return nil, err
	}

	so, ok := session.(SessionObject)
	if !ok {
		return nil, ErrUnableToMapClaims
	}

	return &so, nil
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("refresh.post")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.PasswordReset, controller.PasswordResetGet).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Get(fmt.Sprintf("%s/:uuid", controller.Routes.PasswordReset), controller.PasswordResetForm).
		SetName("pwd-reset-do.get")
	app.Post(fmt.Sprintf("%s/:uuid", controller.Routes.PasswordReset), controller.PasswordResetExecute).
		SetName("pwd-reset-do.post")
}

type AuthControllerRoutes struct {
	Login         string
	Logout        string
	Refresh       string
	Register      string
	PasswordReset string
}

type AuthControllerViews struct {
	Login         string
	Logout        string
	Register      string
	PasswordReset string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Sessions     RefreshTokens
	Mailer       Mailer
	Activity     ActivitySink
	ResetTTL     time.Duration
	Config       Config
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultControllerErrHandler,
		Activity:     NopActivitySink{},
		Routes: &AuthControllerRoutes{
			Login:         "/login",
			Logout:        "/logout",
			Refresh:       "/auth/refresh_token",
			Register:      "/register",
			PasswordReset: "/password-reset",
		},
		Views: &AuthControllerViews{
			Login:         "login",
			Logout:        "logout",
			Register:      "register",
			PasswordReset: "password_reset",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier  string `form:"identifier" json:"identifier"`
	Password    string `form:"password" json:"password"`
	DeviceLabel string `form:"device_label" json:"device_label"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetDeviceLabel returns the optional device label shown in session lists
func (r LoginRequest) GetDeviceLabel() string {
	return r.DeviceLabel
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		// One generic message for every failure mode except the cooldown;
		// the form must not leak whether the account exists.
		msg := "The credentials provided are invalid"
		if IsReuseDetectedError(err) || errors.Is(err, ErrTooManyLoginAttempts) {
			msg = "Too many attempts, try again shortly"
		}
		errs["authentication"] = msg
		return ctx.Status(fiber.StatusUnauthorized).Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	return ctx.Redirect("/", router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	if err := a.Auther.Logout(ctx); err != nil {
		a.Logger.Error("logout error: %v", err)
	}
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

// RefreshPost rotates the session from the refresh cookie. Single-page
// clients call it directly when an access token expires between requests.
func (a *AuthController) RefreshPost(ctx router.Context) error {
	if err := a.Auther.Refresh(ctx); err != nil {
		status := fiber.StatusUnauthorized
		if IsReuseDetectedError(err) {
			status = fiber.StatusConflict
		}
		return ctx.JSON(status, map[string]string{
			"error": "session could not be refreshed",
		})
	}

	return ctx.Status(fiber.StatusNoContent).SendString("")
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterUserMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register user validate payload: %v", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
	}

	registerUser := RegisterUserHandler{repo: a.Repo, activity: a.Activity}
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: %v", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering user",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful user registration",
	}).Redirect("/", fiber.StatusSeeOther)
}

const (
	stageKey   = "stage"
	sessionKey = "session"
	emailKey   = "email"
)

func (a *AuthController) PasswordResetGet(ctx router.Context) error {
	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": nil,
		"reset": map[string]string{
			stageKey: ResetInit,
		},
	})
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
	Stage string `form:"stage" json:"stage"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Stage,
			validation.Required,
			validation.In(
				ResetInit,
			),
		),
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("password reset parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: %v", err)
		errs := FormatValidationErrorToMap(err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := InitializePasswordResetMessage{
		Stage: payload.Stage,
		Email: payload.Email,
	}

	initPwdReset := InitializePasswordResetHandler{
		repo:     a.Repo,
		mailer:   a.Mailer,
		activity: a.Activity,
		resetTTL: a.resetTTL(),
		logger:   a.Logger,
	}

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset init error: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error requesting password reset",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	// The response is the same whether or not the email matched a user.
	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": map[string]string{},
		"reset": map[string]string{
			stageKey: ResetLinkSent,
			emailKey: payload.Email,
		},
	})
}

func (a *AuthController) PasswordResetForm(ctx router.Context) error {
	sessionID := ctx.Param("uuid")

	currentStage := ChangingPassword
	if reset, err := a.lookupReset(ctx, sessionID); err != nil || reset == nil {
		currentStage = ResetUnknown
	}

	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": map[string]string{},
		"reset": map[string]string{
			sessionKey: sessionID,
			stageKey:   currentStage,
		},
	})
}

// PasswordResetVerifyPayload holds values for password reset
type PasswordResetVerifyPayload struct {
	Stage           string `form:"stage" json:"stage"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetVerifyPayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Stage,
			validation.Required,
			validation.In(
				ChangingPassword,
			),
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordResetExecute(ctx router.Context) error {
	sessionID := ctx.Param("uuid")

	errs := map[string]string{}
	payload := new(PasswordResetVerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		errs["form"] = "Failed to parse form"
		a.Logger.Error("password reset parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: %v", err)
		errs = FormatValidationErrorToMap(err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	input := FinalizePasswordResetMessage{
		Session:  sessionID,
		Password: payload.Password,
	}

	finalizePwdReset := FinalizePasswordResetHandler{
		repo:     a.Repo,
		sessions: a.Sessions,
		activity: a.Activity,
	}

	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		errs["validation"] = err.Error()
		return ctx.Render(a.Views.PasswordReset, router.ViewContext{
			"errors": errs,
			"reset": router.ViewContext{
				stageKey:   ChangingPassword,
				sessionKey: sessionID,
				emailKey:   "",
			},
		})
	}

	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": errs,
		"reset": router.ViewContext{
			stageKey:   ChangeFinalized,
			sessionKey: sessionID,
		},
	})
}

func (a *AuthController) resetTTL() time.Duration {
	if a.ResetTTL > 0 {
		return a.ResetTTL
	}
	if a.Config != nil {
		return a.Config.GetResetTokenTTL()
	}
	return 30 * time.Minute
}

func (a *AuthController) lookupReset(ctx router.Context, sessionID string) (*PasswordReset, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, ErrUnableToParseData
	}

	reset, err := a.Repo.PasswordResets().GetByID(ctx.Context(), id)
	if err != nil {
		return nil, err
	}

	if reset.Consumed() || reset.Status == ResetExpiredStatus {
		return nil, nil
	}

	return reset, nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a field
// to message map for the views.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func defaultControllerErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
