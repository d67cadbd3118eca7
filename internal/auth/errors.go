package auth

import (
	"fmt"
	"net/http"
)

// FlowErrorKind classifies OAuth flow failures. Each kind maps to a fixed
// HTTP status on the callback endpoint and tells the caller whether the
// environment, the request, or the provider is at fault.
type FlowErrorKind string

const (
	// KindConfigurationError means the Slack client id/secret are unset.
	// Fix the environment; retrying will not help.
	KindConfigurationError FlowErrorKind = "configuration_error"

	// KindSessionUnavailable means no session id could be resolved from the
	// request context. The caller must retry over a proper connection.
	KindSessionUnavailable FlowErrorKind = "session_unavailable"

	// KindProviderDenied means Slack reported an error on the callback
	// (e.g. the user declined authorization).
	KindProviderDenied FlowErrorKind = "provider_denied"

	// KindMissingCode means the callback carried no authorization code.
	KindMissingCode FlowErrorKind = "missing_code"

	// KindMissingState means the callback carried no state parameter,
	// possibly a CSRF attempt.
	KindMissingState FlowErrorKind = "missing_state"

	// KindInvalidOrExpiredState means the state token was unknown, expired,
	// already consumed, or bound to a different session.
	KindInvalidOrExpiredState FlowErrorKind = "invalid_or_expired_state"

	// KindTokenExchangeFailed means the code-for-token exchange with Slack
	// failed. Terminal for this attempt; the user restarts the flow.
	KindTokenExchangeFailed FlowErrorKind = "token_exchange_failed"
)

// FlowError is a structured OAuth flow failure with the HTTP status the
// callback endpoint should answer with.
type FlowError struct {
	Kind        FlowErrorKind
	Description string
	Status      int
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// NewFlowError creates a flow error with an explicit status.
func NewFlowError(kind FlowErrorKind, description string, status int) *FlowError {
	return &FlowError{Kind: kind, Description: description, Status: status}
}

var (
	// ErrNotConfigured is returned by IssueURL when provider credentials
	// are absent.
	ErrNotConfigured = NewFlowError(KindConfigurationError,
		"OAuth not configured. Please set SLACK_CLIENT_ID and SLACK_CLIENT_SECRET.",
		http.StatusInternalServerError)

	// ErrNoSession is returned by IssueURL when the request context does
	// not resolve to a session id.
	ErrNoSession = NewFlowError(KindSessionUnavailable,
		"No session ID found. Unable to generate OAuth URL.",
		http.StatusBadRequest)

	// ErrMissingCode is the callback failure for an absent code parameter.
	ErrMissingCode = NewFlowError(KindMissingCode,
		"No authorization code received.",
		http.StatusBadRequest)

	// ErrMissingState is the callback failure for an absent state
	// parameter.
	ErrMissingState = NewFlowError(KindMissingState,
		"Missing OAuth state parameter. This may indicate a CSRF attack attempt.",
		http.StatusBadRequest)

	// ErrInvalidState is the callback failure for an unknown, expired,
	// consumed, or mismatched state token.
	ErrInvalidState = NewFlowError(KindInvalidOrExpiredState,
		"Invalid or expired OAuth state parameter. Please generate a new OAuth URL and try again.",
		http.StatusBadRequest)
)

// ProviderDeniedError builds the failure for a provider-reported callback
// error, keeping the provider's error code in the description.
func ProviderDeniedError(providerError string) *FlowError {
	return NewFlowError(KindProviderDenied,
		fmt.Sprintf("Authorization was not granted: %s", providerError),
		http.StatusBadRequest)
}

// ExchangeFailedError wraps a failed code-for-token exchange. The
// underlying error text never contains token material.
func ExchangeFailedError(err error) *FlowError {
	return NewFlowError(KindTokenExchangeFailed,
		fmt.Sprintf("Token exchange with Slack failed: %v", err),
		http.StatusInternalServerError)
}
