package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/signing"
)

const (
	// HeaderAccountID names the account a signed request is made for.
	HeaderAccountID = "X-Account-ID"
	// HeaderTimestamp carries the signing timestamp in unix seconds.
	HeaderTimestamp = "X-Timestamp"
	// HeaderSignature carries the 64 hex character request signature.
	HeaderSignature = "X-Signature"

	// MaxSignedBodyBytes caps the body read for signing.
	MaxSignedBodyBytes = 1 << 20
)

type accountIDContextKey struct{}
type tokenValueContextKey struct{}

// AccountIDFromContext returns the account verified by RequireSignedRequest
// or RequireAccessCode.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDContextKey{}).(string)
	return id, ok
}

// TokenValueFromContext returns the value carried by a token verified in
// RequireActionToken.
func TokenValueFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenValueContextKey{}).(string)
	return v, ok
}

// RequireSignedRequest verifies the X-Signature header over the method, path,
// timestamp and params. Params is the raw query string for GET, HEAD and
// DELETE and the raw body otherwise; the body is restored for next.
func RequireSignedRequest(engine *goVerify.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			accountID := r.Header.Get(HeaderAccountID)
			ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
			if accountID == "" || err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			params, err := signedParams(r)
			if err != nil {
				http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
				return
			}

			req := signing.Request{
				Method:    r.Method,
				Path:      r.URL.Path,
				Params:    params,
				Timestamp: ts,
				Signature: r.Header.Get(HeaderSignature),
			}
			ctx := clientContext(r)
			if err := engine.VerifySignedRequest(ctx, accountID, req); err != nil {
				reject(w, err)
				return
			}

			ctx = context.WithValue(ctx, accountIDContextKey{}, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func signedParams(r *http.Request) (string, error) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return r.URL.RawQuery, nil
	}
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxSignedBodyBytes+1))
	_ = r.Body.Close()
	if err != nil {
		return "", err
	}
	if len(body) > MaxSignedBodyBytes {
		return "", errors.New("body exceeds limit")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return string(body), nil
}

func clientContext(r *http.Request) context.Context {
	ctx := r.Context()
	if ip := clientIP(r); ip != "" {
		ctx = goVerify.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = goVerify.WithUserAgent(ctx, ua)
	}
	return ctx
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func reject(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, goVerify.ErrStoreUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, goVerify.ErrAccountLocked):
		http.Error(w, "account locked", http.StatusLocked)
	case errors.Is(err, goVerify.ErrValidation):
		http.Error(w, "bad request", http.StatusBadRequest)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
