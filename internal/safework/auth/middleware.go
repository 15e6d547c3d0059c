package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	e "github.com/gartstein/safework/internal/safework/errors"
	"go.uber.org/zap"
)

// HTTPMiddleware rejects requests without a valid bearer token, except for
// the public paths. A path ending in "/" matches its whole subtree.
func HTTPMiddleware(next http.Handler, authorizer Authorizer, logger *zap.Logger, publicPaths ...string) http.Handler {
	logger = logger.Named("auth_middleware")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path, publicPaths) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeUnauthorized(w, "authorization header required")
			return
		}

		id, err := authorizer.Authorize(tokenString)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, e.ErrTokenExpired) {
				msg = "token expired"
			}
			logger.Debug("Rejected request", zap.String("path", r.URL.Path), zap.Error(err))
			writeUnauthorized(w, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func isPublicPath(path string, public []string) bool {
	for _, p := range public {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="safework"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
