package auth

import "time"

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetRefreshCookiePath() string
	GetCookieSameSite() string
	GetSecureCookie() bool
	GetSchedulerInterval() time.Duration
	GetPurgeGracePeriod() time.Duration
}

// SimpleConfig is a plain-struct Config with portal defaults. Zero values
// fall back to the defaults the original deployment shipped with.
type SimpleConfig struct {
	SigningKey        string
	SigningMethod     string
	ContextKey        string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ResetTokenTTL     time.Duration
	TokenLookup       string
	AuthScheme        string
	Issuer            string
	Audience          []string
	AccessCookieName  string
	RefreshCookieName string
	RefreshCookiePath string
	CookieSameSite    string
	SecureCookie      bool
	SchedulerInterval time.Duration
	PurgeGracePeriod  time.Duration
}

var _ Config = (*SimpleConfig)(nil)

func (c *SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c *SimpleConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return "HS256"
	}
	return c.SigningMethod
}

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return 15 * time.Minute
	}
	return c.AccessTokenTTL
}

func (c *SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.RefreshTokenTTL
}

func (c *SimpleConfig) GetResetTokenTTL() time.Duration {
	if c.ResetTokenTTL <= 0 {
		return 30 * time.Minute
	}
	return c.ResetTokenTTL
}

func (c *SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization,cookie:" + c.GetAccessCookieName()
	}
	return c.TokenLookup
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *SimpleConfig) GetIssuer() string {
	if c.Issuer == "" {
		return "internum"
	}
	return c.Issuer
}

func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetAccessCookieName() string {
	if c.AccessCookieName == "" {
		return "internum_access"
	}
	return c.AccessCookieName
}

func (c *SimpleConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return "internum_refresh"
	}
	return c.RefreshCookieName
}

// GetRefreshCookiePath controls where browsers attach the refresh cookie.
// The default covers the whole site so the middleware can refresh silently;
// deployments that only refresh through the dedicated endpoint can narrow
// it to that route.
func (c *SimpleConfig) GetRefreshCookiePath() string {
	if c.RefreshCookiePath == "" {
		return "/"
	}
	return c.RefreshCookiePath
}

func (c *SimpleConfig) GetCookieSameSite() string {
	if c.CookieSameSite == "" {
		return "Strict"
	}
	return c.CookieSameSite
}

func (c *SimpleConfig) GetSecureCookie() bool { return c.SecureCookie }

func (c *SimpleConfig) GetSchedulerInterval() time.Duration {
	if c.SchedulerInterval <= 0 {
		return time.Hour
	}
	return c.SchedulerInterval
}

func (c *SimpleConfig) GetPurgeGracePeriod() time.Duration {
	if c.PurgeGracePeriod <= 0 {
		return 24 * time.Hour
	}
	return c.PurgeGracePeriod
}
