package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// DebugAuthConfig holds debug endpoint authentication configuration.
type DebugAuthConfig struct {
	// Token for Bearer authentication on debug endpoints.
	Token string
	// FallbackAuthConfig is used when Token is empty.
	FallbackAuthConfig *AuthConfig
}

// DebugAuth protects debug endpoints. A configured token requires
// "Bearer <token>"; otherwise enabled basic auth is used. With neither,
// every request is forbidden.
func DebugAuth(config *DebugAuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Token != "" {
				if checkBearerToken(r, config.Token) {
					next.ServeHTTP(w, r)
					return
				}
				forbiddenDebug(w)
				return
			}

			if fallback := config.FallbackAuthConfig; fallback != nil {
				if enabled, _, _ := fallback.get(); enabled {
					if !fallback.check(r) {
						unauthorized(w, "vitals-debug")
						return
					}
					next.ServeHTTP(w, r)
					return
				}
			}

			forbiddenDebug(w)
		})
	}
}

func checkBearerToken(r *http.Request, expectedToken string) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1
}

func forbiddenDebug(w http.ResponseWriter) {
	http.Error(w, "Forbidden - Debug authentication required", http.StatusForbidden)
}
