package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/quarryhq/quarry/cmd/server/config"
)

// AuthMiddleware provides authentication middleware. Disabled by default;
// when enabled it guards every route except the health endpoint.
type AuthMiddleware struct {
	config config.AuthConfig
	logger zerolog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(cfg config.AuthConfig, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		config: cfg,
		logger: logger,
	}
}

// Handler wraps next with authentication.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for health checks
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		authCtx, err := m.authenticate(r)
		if err != nil {
			m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}

		next.ServeHTTP(w, r.WithContext(authCtx))
	})
}

// authenticate performs authentication based on configured type.
func (m *AuthMiddleware) authenticate(r *http.Request) (context.Context, error) {
	if !m.config.Enabled {
		return r.Context(), nil
	}

	switch m.config.Type {
	case "basic":
		return m.authenticateBasic(r)
	case "bearer":
		return m.authenticateBearer(r)
	case "jwt":
		return m.authenticateJWT(r)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", m.config.Type)
	}
}

// authenticateBasic performs basic authentication.
func (m *AuthMiddleware) authenticateBasic(r *http.Request) (context.Context, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Basic ") {
		return nil, fmt.Errorf("invalid authorization header")
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, "Basic "))
	if err != nil {
		return nil, fmt.Errorf("invalid credentials encoding")
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid credentials format")
	}
	username, password := parts[0], parts[1]

	userInfo, ok := m.config.BasicAuth.Users[username]
	if !ok {
		return nil, fmt.Errorf("invalid credentials")
	}

	// Constant time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(password), []byte(userInfo.Password)) != 1 {
		return nil, fmt.Errorf("invalid credentials")
	}

	ctx := context.WithValue(r.Context(), contextKeyUser, username)
	ctx = context.WithValue(ctx, contextKeyRoles, userInfo.Roles)
	return ctx, nil
}

// authenticateBearer performs bearer token authentication.
func (m *AuthMiddleware) authenticateBearer(r *http.Request) (context.Context, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	username, ok := m.config.BearerAuth.Tokens[token]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}

	return context.WithValue(r.Context(), contextKeyUser, username), nil
}

// authenticateJWT performs JWT authentication with an HMAC secret.
func (m *AuthMiddleware) authenticateJWT(r *http.Request) (context.Context, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if m.config.JWTAuth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.JWTAuth.Issuer))
	}
	if m.config.JWTAuth.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.config.JWTAuth.Audience))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.config.JWTAuth.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return context.WithValue(r.Context(), contextKeyUser, subject), nil
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("invalid authorization header")
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

// Context keys for authentication
type contextKey string

const (
	contextKeyUser  contextKey = "user"
	contextKeyRoles contextKey = "roles"
)

// GetUser extracts the authenticated user from context.
func GetUser(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(contextKeyUser).(string)
	return user, ok
}

// GetRoles extracts the user's roles from context.
func GetRoles(ctx context.Context) ([]string, bool) {
	roles, ok := ctx.Value(contextKeyRoles).([]string)
	return roles, ok
}
