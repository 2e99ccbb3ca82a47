package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(a *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/test", a.JWTAuth(), func(c *gin.Context) {
		subject, _ := GetSubject(c)
		c.String(http.StatusOK, subject)
	})
	return r
}

func TestGenerateToken(t *testing.T) {
	a := NewAuthenticator("secret")

	token, err := a.GenerateToken("cli", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.Subject)
	assert.Equal(t, "runs", claims.Scope)
}

func TestGenerateToken_Disabled(t *testing.T) {
	_, err := NewAuthenticator("").GenerateToken("cli", time.Hour)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	a := NewAuthenticator("secret")
	valid, err := a.GenerateToken("cli", time.Hour)
	require.NoError(t, err)
	expired, err := a.GenerateToken("cli", -time.Minute)
	require.NoError(t, err)
	foreign, err := NewAuthenticator("other").GenerateToken("cli", time.Hour)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "cli"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedBody   string
	}{
		{"Missing authorization header", "", http.StatusUnauthorized, ""},
		{"Invalid token format", "InvalidToken", http.StatusUnauthorized, ""},
		{"Wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"Expired token", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"Wrong secret", "Bearer " + foreign, http.StatusUnauthorized, ""},
		{"Unsigned token", "Bearer " + unsigned, http.StatusUnauthorized, ""},
		{"Valid token", "Bearer " + valid, http.StatusOK, "cli"},
	}

	r := newAuthRouter(a)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestJWTAuth_Disabled(t *testing.T) {
	r := newAuthRouter(NewAuthenticator(""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestGetSubject_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetSubject(c)
	assert.False(t, ok)
}
