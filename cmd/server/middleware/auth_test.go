package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/quarry/cmd/server/config"
)

func setupTestAuthMiddleware(t *testing.T, authType string) *AuthMiddleware {
	t.Helper()

	cfg := config.AuthConfig{
		Enabled: true,
		Type:    authType,
	}

	switch authType {
	case "basic":
		cfg.BasicAuth.Users = map[string]config.UserInfo{
			"testuser": {
				Password: "testpass",
				Roles:    []string{"admin"},
			},
		}
	case "bearer":
		cfg.BearerAuth.Tokens = map[string]string{
			"test-token": "testuser",
		}
	case "jwt":
		cfg.JWTAuth = config.JWTAuthConfig{
			Secret:   "test-secret",
			Issuer:   "test-issuer",
			Audience: "test-audience",
		}
	}

	return NewAuthMiddleware(cfg, zerolog.New(zerolog.NewTestWriter(t)))
}

func doAuthRequest(m *AuthMiddleware, path string, headers map[string]string) (*httptest.ResponseRecorder, string) {
	var user string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, user
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	m := NewAuthMiddleware(config.AuthConfig{Enabled: false}, zerolog.Nop())

	rec, _ := doAuthRequest(m, "/tables", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthSkipsHealth(t *testing.T) {
	m := setupTestAuthMiddleware(t, "bearer")

	rec, _ := doAuthRequest(m, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	m := setupTestAuthMiddleware(t, "basic")

	t.Run("valid credentials", func(t *testing.T) {
		creds := base64.StdEncoding.EncodeToString([]byte("testuser:testpass"))
		rec, user := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Basic " + creds})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "testuser", user)
	})

	t.Run("wrong password", func(t *testing.T) {
		creds := base64.StdEncoding.EncodeToString([]byte("testuser:wrong"))
		rec, _ := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Basic " + creds})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec, _ := doAuthRequest(m, "/tables", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestBearerAuth(t *testing.T) {
	m := setupTestAuthMiddleware(t, "bearer")

	t.Run("valid token", func(t *testing.T) {
		rec, user := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Bearer test-token"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "testuser", user)
	})

	t.Run("unknown token", func(t *testing.T) {
		rec, _ := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec, _ := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Basic abc"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func signTestJWT(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTAuth(t *testing.T) {
	m := setupTestAuthMiddleware(t, "jwt")

	baseClaims := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "testuser",
			"iss": "test-issuer",
			"aud": "test-audience",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	t.Run("valid token", func(t *testing.T) {
		signed := signTestJWT(t, "test-secret", baseClaims())
		rec, user := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Bearer " + signed})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "testuser", user)
	})

	t.Run("wrong secret", func(t *testing.T) {
		signed := signTestJWT(t, "other-secret", baseClaims())
		rec, _ := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Bearer " + signed})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := baseClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		signed := signTestJWT(t, "test-secret", claims)
		rec, _ := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Bearer " + signed})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := baseClaims()
		claims["iss"] = "someone-else"
		signed := signTestJWT(t, "test-secret", claims)
		rec, _ := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Bearer " + signed})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := baseClaims()
		delete(claims, "sub")
		signed := signTestJWT(t, "test-secret", claims)
		rec, _ := doAuthRequest(m, "/tables", map[string]string{"Authorization": "Bearer " + signed})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
