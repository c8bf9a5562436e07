package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ServiceRole is the role claim the IdP puts in backend service tokens.
const ServiceRole = "service_role"

var (
	errMissingToken = errors.New("bearer token required")
	errInvalidToken = errors.New("invalid or expired token")
	errForbidden    = errors.New("token lacks service_role")
)

// Claims are the parts of the IdP token the API cares about.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies HS256 bearer tokens signed with secret and requires the
// service role. An empty secret disables the check.
func Auth(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				deny(w, http.StatusUnauthorized, errMissingToken)
				return
			}

			var claims Claims
			if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
				return key, nil
			}); err != nil {
				logger.Warn("token validation failed",
					zap.String("correlation_id", GetCorrelationID(r.Context())),
					zap.Error(err),
				)
				deny(w, http.StatusUnauthorized, errInvalidToken)
				return
			}
			if claims.Role != ServiceRole {
				deny(w, http.StatusForbidden, errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("Bearer "):])
}

func deny(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
