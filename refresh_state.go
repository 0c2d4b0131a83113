package auth

// AccessState classifies the access token presented with a request.
type AccessState int

const (
	// AccessNone means no token was presented at all.
	AccessNone AccessState = iota
	// AccessValid means the token verified and is inside its lifetime.
	AccessValid
	// AccessExpired means the token verified structurally but is past expiry.
	AccessExpired
	// AccessInvalid means the token failed signature or claim checks.
	AccessInvalid
)

// RefreshDecision is what the middleware does with a request after
// classifying its access token.
type RefreshDecision int

const (
	// DecisionProceed lets the request through with its current session.
	DecisionProceed RefreshDecision = iota
	// DecisionRefresh attempts a silent refresh before answering.
	DecisionRefresh
	// DecisionReject answers unauthenticated without trying anything.
	DecisionReject
	// DecisionAnonymous continues without a session, for optional-auth routes.
	DecisionAnonymous
)

// ClassifyAccessToken maps a validation result onto an AccessState. Pure
// function so the middleware's branching is testable without HTTP plumbing.
func ClassifyAccessToken(raw string, err error) AccessState {
	if raw == "" {
		return AccessNone
	}
	switch {
	case err == nil:
		return AccessValid
	case IsTokenExpiredError(err):
		return AccessExpired
	default:
		return AccessInvalid
	}
}

// DecideRefresh is the middleware's decision table. Only an expired but
// otherwise well formed token earns a silent refresh; a tampered token never
// does, with or without a refresh cookie in hand.
func DecideRefresh(state AccessState, hasRefreshToken bool) RefreshDecision {
	switch state {
	case AccessValid:
		return DecisionProceed
	case AccessExpired:
		if hasRefreshToken {
			return DecisionRefresh
		}
		return DecisionReject
	case AccessNone:
		if hasRefreshToken {
			return DecisionRefresh
		}
		return DecisionAnonymous
	default:
		return DecisionReject
	}
}
