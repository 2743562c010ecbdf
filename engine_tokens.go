package goVerify

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVerify/token"
)

// IssueActionToken signs value under the action salt. The token never
// expires; use IssueTimedActionToken for links that must.
func (e *Engine) IssueActionToken(value string, action Action) (string, error) {
	return e.tokens.Issue(value, string(action))
}

// ValidateActionToken returns the value of an untimed token issued for
// action. A timed token, or one issued for another action, is rejected. A
// string that does not parse as a token fails with ErrValidation.
func (e *Engine) ValidateActionToken(tok string, action Action) (string, error) {
	if err := token.CheckFormat(tok); err != nil {
		e.metricInc(MetricTokenRejected)
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	value, ok := e.tokens.Validate(tok, string(action))
	if !ok {
		e.metricInc(MetricTokenRejected)
		return "", ErrAuthenticationFailed
	}
	return value, nil
}

// IssueTimedActionToken signs value under the action salt with the current
// time as issued-at.
func (e *Engine) IssueTimedActionToken(value string, action Action) (string, error) {
	return e.tokens.IssueTimed(value, string(action))
}

// ValidateTimedActionToken returns the value of a timed token issued for
// action no more than maxAge ago. A zero maxAge selects Token.MaxAge.
//
// An old token returns ErrExpired, an unparsable one ErrValidation; every
// other rejection returns ErrAuthenticationFailed.
func (e *Engine) ValidateTimedActionToken(tok string, action Action, maxAge time.Duration) (string, error) {
	if err := token.CheckFormat(tok); err != nil {
		e.metricInc(MetricTokenRejected)
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if maxAge <= 0 {
		maxAge = e.config.Token.MaxAge
	}
	value, err := e.tokens.ValidateTimed(tok, string(action), maxAge, e.now())
	if err != nil {
		e.metricInc(MetricTokenRejected)
		if errors.Is(err, token.ErrExpired) {
			return "", ErrExpired
		}
		return "", ErrAuthenticationFailed
	}
	return value, nil
}
