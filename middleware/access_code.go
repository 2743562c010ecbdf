package middleware

import (
	"context"
	"net/http"

	goVerify "github.com/MrEthical07/goVerify"
)

// RequireAccessCode redeems the bearer access code for action. The code is
// consumed even when next fails.
func RequireAccessCode(engine *goVerify.Engine, action goVerify.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			c, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := clientContext(r)
			accountID, err := engine.RedeemAccessCode(ctx, c, action)
			if err != nil {
				reject(w, err)
				return
			}

			ctx = context.WithValue(ctx, accountIDContextKey{}, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
