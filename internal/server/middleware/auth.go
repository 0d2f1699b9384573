package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
)

// AuthConfig holds basic auth credentials. It is shared with the server
// so credentials can be swapped on reload.
type AuthConfig struct {
	mu       sync.RWMutex
	Enabled  bool
	User     string
	Password string
}

func (c *AuthConfig) Update(enabled bool, user, password string) {
	c.mu.Lock()
	c.Enabled = enabled
	c.User = user
	c.Password = password
	c.mu.Unlock()
}

func (c *AuthConfig) get() (enabled bool, user, password string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Enabled, c.User, c.Password
}

// check validates the request's basic auth credentials.
func (c *AuthConfig) check(r *http.Request) bool {
	_, wantUser, wantPass := c.get()

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	return userMatch && passMatch
}

// Auth creates a Basic Auth middleware.
// Paths ending with "*" are treated as prefixes (e.g. "/debug/*").
func Auth(config *AuthConfig, excludePaths ...string) Middleware {
	exactExcludes := make(map[string]bool)
	var prefixExcludes []string

	for _, path := range excludePaths {
		if prefix, ok := strings.CutSuffix(path, "*"); ok {
			prefixExcludes = append(prefixExcludes, prefix)
		} else {
			exactExcludes[path] = true
		}
	}

	excluded := func(path string) bool {
		if exactExcludes[path] {
			return true
		}
		for _, prefix := range prefixExcludes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enabled, _, _ := config.get()
			if !enabled || r.Method == http.MethodOptions || excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !config.check(r) {
				unauthorized(w, "vitals")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
