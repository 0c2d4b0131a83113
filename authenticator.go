package auth

import (
	"context"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Auther implements Authenticator over an identity provider and the session
// store. One access token plus one refresh record come out of every
// successful login or rotation.
type Auther struct {
	provider        IdentityProvider
	sessions        RefreshTokens
	signingKey      []byte
	accessTokenTTL  time.Duration
	refreshTTL      time.Duration
	issuer          string
	audience        []string
	logger          Logger
	tokenService    TokenService
	tokenValidator  TokenValidator
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, sessions RefreshTokens, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetAccessTokenTTL(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:        provider,
		sessions:        sessions,
		signingKey:      []byte(opts.GetSigningKey()),
		accessTokenTTL:  opts.GetAccessTokenTTL(),
		refreshTTL:      opts.GetRefreshTokenTTL(),
		audience:        opts.GetAudience(),
		issuer:          opts.GetIssuer(),
		logger:          defLogger{},
		tokenService:    tokenService,
		activitySink:    NopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	s.tokenService = NewTokenService(
		s.signingKey,
		s.accessTokenTTL,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithTokenService replaces the token service, e.g. to change TTLs in tests.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	if sink != nil {
		s.activitySink = sink
	}
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching JWTs.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and opens a session. The returned pair carries
// the signed access token and the persisted refresh record whose id goes
// into the refresh cookie.
func (s *Auther) Login(ctx context.Context, identifier, password string, device ...string) (*TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, ErrIdentityNotFound
	}

	if _, err := s.ensureIdentityActive(identity); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, ErrUnableToParseData.Category, "identity id is not a uuid").
			WithTextCode(ErrUnableToParseData.TextCode)
	}

	access, expiresAt, err := s.generateJWT(ctx, identity)
	if err != nil {
		return nil, err
	}

	label := ""
	if len(device) > 0 {
		label = device[0]
	}

	refresh, err := s.sessions.Issue(ctx, userID, label, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refresh,
	}, nil
}

// Refresh rotates the presented refresh token and mints a fresh access
// token. Replaying an already rotated token revokes the whole session family
// before the reuse error surfaces.
func (s *Auther) Refresh(ctx context.Context, refreshTokenID uuid.UUID) (*TokenPair, error) {
	replacement, err := s.sessions.Rotate(ctx, refreshTokenID, s.refreshTTL)
	if err != nil {
		if IsReuseDetectedError(err) {
			s.handleReuse(ctx, refreshTokenID)
			return nil, err
		}
		if errors.IsNotFound(err) {
			return nil, ErrUnableToFindSession
		}
		return nil, err
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, replacement.UserID.String())
	if err != nil {
		s.logger.Error("Refresh identity lookup failed: %v", err)
		return nil, err
	}

	// Disabled accounts stop refreshing the moment the flag lands, even
	// with a live refresh token in hand.
	if _, err := s.ensureIdentityActive(identity); err != nil {
		if revErr := s.sessions.Revoke(ctx, replacement.ID); revErr != nil {
			s.logger.Error("Refresh failed to revoke replacement for disabled account: %v", revErr)
		}
		return nil, err
	}

	access, expiresAt, err := s.generateJWT(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.activitySink.Record(ctx, TokenRefreshed(replacement.UserID.String()))

	return &TokenPair{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		RefreshToken:    replacement,
	}, nil
}

// Logout revokes the presented session. Unknown or already revoked tokens
// succeed silently.
func (s *Auther) Logout(ctx context.Context, refreshTokenID uuid.UUID) error {
	record, err := s.sessions.GetByID(ctx, refreshTokenID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := s.sessions.Revoke(ctx, refreshTokenID); err != nil {
		return err
	}

	s.activitySink.Record(ctx, LoggedOut(record.UserID.String()))

	return nil
}

// handleReuse revokes every session of the token's owner. The replayed
// token itself may have been purged already; then there is no family left
// to revoke and the reuse error alone must do.
func (s *Auther) handleReuse(ctx context.Context, refreshTokenID uuid.UUID) {
	record, err := s.sessions.GetByID(ctx, refreshTokenID)
	if err != nil {
		s.logger.Error("reuse handling could not load token %s: %v", refreshTokenID, err)
		return
	}

	userID := record.UserID.String()
	s.activitySink.Record(ctx, ReuseDetected(userID, refreshTokenID.String()))

	if _, err := s.sessions.RevokeAllForUser(ctx, record.UserID); err != nil {
		s.logger.Error("reuse handling could not revoke sessions for %s: %v", userID, err)
		return
	}

	s.activitySink.Record(ctx, SessionsRevoked(userID, "refresh token reuse"))
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())
	if err != nil {
		s.logger.Error("IdentityFromSession find identity by identifier: %s", err)
		return nil, err
	}

	return identity, nil
}

func (s *Auther) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		return nil, err
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %v", err)
		return nil, err
	}

	return session, nil
}

// generateJWT builds, decorates, guards, and signs the access claims.
func (s *Auther) generateJWT(ctx context.Context, identity Identity) (string, time.Time, error) {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	expiresAt := now.Add(s.accessTokenTTL)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:       identity.ID(),
		UserRole:  identity.Role(),
		TokenType: TokenTypeAccess,
	}

	ensureTokenID(&claims.RegisteredClaims)

	snapshot := captureImmutableClaims(claims)
	if err := s.claimsDecorator.Decorate(ctx, identity, claims); err != nil {
		s.logger.Error("claims decorator failed: %v", err)
		return "", time.Time{}, err
	}
	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims: %v", err)
		return "", time.Time{}, err
	}

	signed, err := s.tokenService.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (s *Auther) ensureIdentityActive(identity Identity) (UserStatus, error) {
	status, ok := identityStatus(identity)
	if !ok {
		return "", nil
	}

	if status == "" {
		status = UserStatusActive
	}

	if err := statusAuthError(status); err != nil {
		return status, err
	}

	return status, nil
}

type statusAwareIdentity interface {
	Status() UserStatus
}

func identityStatus(identity Identity) (UserStatus, bool) {
	if identity == nil {
		return "", false
	}

	if sa, ok := identity.(statusAwareIdentity); ok {
		return sa.Status(), true
	}

	return "", false
}
