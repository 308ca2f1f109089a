package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"knowledgehub/backend/internal/config"
	"knowledgehub/backend/internal/repository"
	"knowledgehub/backend/pkg/models"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

func fakeJWT(t *testing.T, issuer, email, name string) string {
	t.Helper()
	claims := map[string]interface{}{
		"iss":   issuer,
		"aud":   "test-client",
		"sub":   "test-user",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Add(-1 * time.Minute).Unix(),
		"email": email,
		"name":  name,
	}
	headerData := map[string]interface{}{
		"alg": "RS256",
		"typ": "JWT",
		"kid": "test-key",
	}
	headerBytes, err := json.Marshal(headerData)
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(headerBytes) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func apiVerifier(issuer string) *oidc.IDTokenVerifier {
	return oidc.NewVerifier(issuer, &MockKeySet{}, &oidc.Config{
		ClientID:          "test-client",
		SkipClientIDCheck: true, // Matches logic in auth.go for apiVerifier
	})
}

func TestRequireAuth_BypassMode(t *testing.T) {
	store := repository.NewMemoryStore()
	cfg := &config.Config{
		Environment:   "DEV",
		DevModeBypass: true,
	}
	a, err := New(context.Background(), cfg, store, &NoOpLogger{})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/publish-requests", nil)
	rec := httptest.NewRecorder()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		assert.True(t, ok, "user should be in context")
		assert.Equal(t, "dev@localhost", user.Email)
		assert.Equal(t, models.RoleAdmin, user.GlobalRole, "bypass account is an admin")
		w.WriteHeader(http.StatusOK)
	})

	a.RequireAuth(nextHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second request resolves the same provisioned row.
	first, err := store.GetUserByEmail(context.Background(), "dev@localhost")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		assert.Equal(t, first.ID, user.ID)
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/publish-requests", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_BearerToken_AutoProvisions(t *testing.T) {
	store := repository.NewMemoryStore()
	issuer := "https://test-issuer.com"

	a := &Auth{
		apiVerifier: apiVerifier(issuer),
		store:       store,
		logger:      &NoOpLogger{},
	}

	req := httptest.NewRequest("GET", "/api/v1/publish-requests", nil)
	req.Header.Set("Authorization", "Bearer "+fakeJWT(t, issuer, "new.author@example.com", "New Author"))
	rec := httptest.NewRecorder()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		assert.True(t, ok, "user should be in context")
		assert.Equal(t, "new.author@example.com", user.Email)
		assert.Equal(t, "New Author", user.Name)
		assert.Equal(t, models.RoleUser, user.GlobalRole, "first login gets the default role")
		w.WriteHeader(http.StatusOK)
	})

	a.RequireAuth(nextHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Logf("Response Body: %s", rec.Body.String())
	}
	assert.Equal(t, http.StatusOK, rec.Code)

	provisioned, err := store.GetUserByEmail(context.Background(), "new.author@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, provisioned.ID)
}

func TestRequireAuth_BearerToken_ResolvesExistingUser(t *testing.T) {
	store := repository.NewMemoryStore()
	issuer := "https://test-issuer.com"
	existing := &models.User{ID: "u1", Email: "auditor@example.com", Name: "Auditor", GlobalRole: models.RoleAuditor}
	require.NoError(t, store.CreateUser(context.Background(), existing))

	a := &Auth{
		apiVerifier: apiVerifier(issuer),
		store:       store,
		logger:      &NoOpLogger{},
	}

	req := httptest.NewRequest("GET", "/api/v1/publish-requests", nil)
	req.Header.Set("Authorization", "Bearer "+fakeJWT(t, issuer, "auditor@example.com", "Auditor"))
	rec := httptest.NewRecorder()

	a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, models.RoleAuditor, user.GlobalRole, "stored role wins over the default")
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_NoCredentialsRedirects(t *testing.T) {
	a := &Auth{
		apiVerifier: apiVerifier("https://test-issuer.com"),
		store:       repository.NewMemoryStore(),
		logger:      &NoOpLogger{},
	}

	req := httptest.NewRequest("GET", "/api/v1/publish-requests", nil)
	rec := httptest.NewRecorder()

	a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
