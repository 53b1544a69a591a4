package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = m.GenerateToken("")
	assert.Error(t, err)
}

func TestJWTManager_RejectsBadTokens(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	other, err := NewJWTManager("another-secret", time.Hour).GenerateToken("user-1")
	require.NoError(t, err)
	_, err = m.ValidateToken(other)
	assert.Error(t, err, "wrong signature")

	expired, err := NewJWTManager("secret", -time.Minute).GenerateToken("user-1")
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.Error(t, err, "expired")

	_, err = m.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	var seen string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
	}))

	testCases := []struct {
		name    string
		prepare func(r *http.Request)
		want    string
	}{
		{
			name:    "bearer header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			want:    "user-1",
		},
		{
			name:    "session cookie",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) },
			want:    "user-1",
		},
		{
			name:    "malformed header stays anonymous",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", token) },
			want:    "",
		},
		{
			name:    "invalid token stays anonymous",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") },
			want:    "",
		},
		{
			name:    "no credentials",
			prepare: func(r *http.Request) {},
			want:    "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = "unset"
			req := httptest.NewRequest(http.MethodGet, "/articles", nil)
			tc.prepare(req)

			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, seen)
		})
	}
}
