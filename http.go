package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/internum/auth/middleware/jwtware"
)

// Middleware guards routes with access token validation and silent refresh.
type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	OptionalRoute(cfg Config) router.MiddlewareFunc
}

// RouteAuthenticator wires the Authenticator into HTTP: cookies in, cookies
// out, and the middleware deciding between proceed, silent refresh, and
// reject.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// ProtectedRoute rejects unauthenticated requests. An expired access token
// with a live refresh cookie goes through one silent refresh before any
// rejection.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return a.makeRoute(cfg, errorHandler, false)
}

// OptionalRoute behaves like ProtectedRoute but lets anonymous requests
// through without a session.
func (a *RouteAuthenticator) OptionalRoute(cfg Config) router.MiddlewareFunc {
	return a.makeRoute(cfg, a.MakeClientRouteAuthErrorHandler(true), true)
}

func (a *RouteAuthenticator) makeRoute(cfg Config, errorHandler func(router.Context, error) error, optional bool) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return jwtware.New(jwtware.Config{
			ErrorHandler: a.makeRefreshingErrorHandler(cfg, errorHandler, optional),
			SigningKey: jwtware.SigningKey{
				Key:    []byte(cfg.GetSigningKey()),
				JWTAlg: cfg.GetSigningMethod(),
			},
			AuthScheme:     cfg.GetAuthScheme(),
			ContextKey:     cfg.GetContextKey(),
			TokenLookup:    cfg.GetTokenLookup(),
			TokenValidator: a.middlewareValidator(),
		})
	}
}

// middlewareValidator hands the authenticator's validator to jwtware so both
// layers reject tokens for the same reasons. Falls back to jwtware's own
// key-based parsing when the authenticator exposes no token service.
func (a *RouteAuthenticator) middlewareValidator() jwtware.TokenValidator {
	type tokenServiced interface {
		TokenService() TokenService
	}

	ts, ok := a.auth.(tokenServiced)
	if !ok {
		return nil
	}

	return validatorAdapter{validator: ts.TokenService()}
}

type validatorAdapter struct {
	validator TokenValidator
}

func (va validatorAdapter) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := va.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// makeRefreshingErrorHandler classifies why token validation failed and
// drives the decision table: refresh silently, reject, or continue without
// a session.
func (a *RouteAuthenticator) makeRefreshingErrorHandler(cfg Config, errorHandler func(router.Context, error) error, optional bool) func(router.Context, error) error {
	return func(c router.Context, err error) error {
		state := AccessExpired
		switch {
		case IsTokenExpiredError(err):
			state = AccessExpired
		case IsMalformedError(err):
			// jwtware reports a missing token the same way as a mangled
			// one; only the cookie jar tells them apart.
			if a.presentedToken(c, cfg) == "" {
				state = AccessNone
			} else {
				state = AccessInvalid
			}
		default:
			state = AccessInvalid
		}

		refreshID, hasRefresh := a.refreshCookieID(c)

		switch DecideRefresh(state, hasRefresh) {
		case DecisionRefresh:
			if rerr := a.silentRefresh(c, cfg, refreshID); rerr != nil {
				a.Logger.Warn("silent refresh failed: %v", rerr)
				a.clearSessionCookies(c)
				return errorHandler(c, rerr)
			}
			return c.Next()
		case DecisionAnonymous:
			// No token at all: only optional routes proceed without a session.
			if optional {
				return c.Next()
			}
			return errorHandler(c, err)
		default:
			return errorHandler(c, err)
		}
	}
}

// silentRefresh rotates the refresh token and replants both cookies, then
// parks the fresh session where the downstream handlers expect it.
func (a *RouteAuthenticator) silentRefresh(c router.Context, cfg Config, refreshID uuid.UUID) error {
	pair, err := a.auth.Refresh(c.Context(), refreshID)
	if err != nil {
		return err
	}

	a.setSessionCookies(c, pair)

	session, err := a.auth.SessionFromToken(pair.AccessToken)
	if err != nil {
		return err
	}

	c.Locals(cfg.GetContextKey(), session)
	c.SetContext(WithSession(c.Context(), session))

	return nil
}

// Login verifies the payload and, on success, plants the session cookies.
func (a *RouteAuthenticator) Login(c router.Context, payload LoginPayload) error {
	pair, err := a.auth.Login(c.Context(), payload.GetIdentifier(), payload.GetPassword(), payload.GetDeviceLabel())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.setSessionCookies(c, pair)
	return nil
}

// Refresh rotates the session from the refresh cookie, for clients calling
// the refresh endpoint directly instead of relying on the middleware.
func (a *RouteAuthenticator) Refresh(c router.Context) error {
	refreshID, ok := a.refreshCookieID(c)
	if !ok {
		return ErrUnableToFindSession
	}

	pair, err := a.auth.Refresh(c.Context(), refreshID)
	if err != nil {
		a.clearSessionCookies(c)
		return err
	}

	a.setSessionCookies(c, pair)
	return nil
}

// Logout revokes the session and clears both cookies. Always clears, even
// when revocation fails; the browser must not keep dead credentials.
func (a *RouteAuthenticator) Logout(c router.Context) error {
	refreshID, ok := a.refreshCookieID(c)

	a.clearSessionCookies(c)

	if !ok {
		return nil
	}

	if err := a.auth.Logout(c.Context(), refreshID); err != nil {
		a.Logger.Error("Logout revocation error: %v", err)
		return err
	}

	return nil
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) presentedToken(c router.Context, cfg Config) string {
	if header := c.GetString(router.HeaderAuthorization, ""); header != "" {
		return header
	}
	return c.Cookies(cfg.GetAccessCookieName())
}

func (a *RouteAuthenticator) refreshCookieID(c router.Context) (uuid.UUID, bool) {
	raw := c.Cookies(a.cfg.GetRefreshCookieName())
	if raw == "" {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

func (a *RouteAuthenticator) setSessionCookies(c router.Context, pair *TokenPair) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetAccessCookieName(),
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.RefreshToken.ExpiresAt,
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookie(),
		SameSite: a.cfg.GetCookieSameSite(),
	})

	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetRefreshCookieName(),
		Value:    pair.RefreshToken.ID.String(),
		Path:     a.cfg.GetRefreshCookiePath(),
		Expires:  pair.RefreshToken.ExpiresAt,
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookie(),
		SameSite: a.cfg.GetCookieSameSite(),
	})
}

func (a *RouteAuthenticator) clearSessionCookies(c router.Context) {
	a.cookieDel(c, a.cfg.GetAccessCookieName(), "/")
	a.cookieDel(c, a.cfg.GetRefreshCookieName(), a.cfg.GetRefreshCookiePath())
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name, path string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetSecureCookie(),
		SameSite: a.cfg.GetCookieSameSite(),
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error %s (%s), redirecting to login from %s",
		richErr.Message,
		richErr.TextCode,
		c.OriginalURL(),
	)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect("/login", statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler %s (%s): %s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
