package middleware

import (
	"context"
	"net/http"

	goVerify "github.com/MrEthical07/goVerify"
)

// RequireActionToken verifies the bearer token as a timed action token for
// action, using the configured maximum age.
func RequireActionToken(engine *goVerify.Engine, action goVerify.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			tok, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			value, err := engine.ValidateTimedActionToken(tok, action, 0)
			if err != nil {
				reject(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), tokenValueContextKey{}, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
