package routes

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perchsocial/perch/store"
	"github.com/perchsocial/perch/utils"
)

var signingKey *rsa.PrivateKey

// TestMain pins the environment before the cached config loads: a real
// verification key, a throwaway access-log path and a tight rate limit so the
// throttle is observable in two requests.
func TestMain(m *testing.M) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	signingKey = key
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		panic(err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	dir, err := os.MkdirTemp("", "router-test")
	if err != nil {
		panic(err)
	}

	os.Setenv("IDENTITY_PUBLIC_KEY", string(publicPEM))
	os.Setenv("GIN_PATH", filepath.Join(dir, "gin.log"))
	os.Setenv("GIN_MODE", "test")
	os.Setenv("RATE_LIMIT_PER_MINUTE", "2")

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func setupTestRouter(t *testing.T) (*testRouter, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	verifier, err := utils.NewIdentityVerifier(os.Getenv("IDENTITY_PUBLIC_KEY"))
	require.NoError(t, err)
	r := SetupRouter(Deps{
		Store:       m,
		Coordinator: store.NewCoordinator(m, zap.NewNop().Sugar()),
		Verifier:    verifier,
	})
	return &testRouter{engine: r}, m
}

type testRouter struct {
	engine http.Handler
}

func (tr *testRouter) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	tr.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (tr *testRouter) postWithToken(path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	tr.engine.ServeHTTP(w, req)
	return w
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	claims := utils.IdentityClaims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(signingKey)
	require.NoError(t, err)
	return token
}

// The documented paths are mounted at the root, with no version prefix.
func TestRoutesMountedAtRoot(t *testing.T) {
	tr, _ := setupTestRouter(t)

	assert.Equal(t, http.StatusOK, tr.get("/posts").Code)
	assert.Equal(t, http.StatusOK, tr.get("/health").Code)

	w := tr.get("/api/v1/posts")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "40400")
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	tr, _ := setupTestRouter(t)

	w := tr.get("/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")
}

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	tr, _ := setupTestRouter(t)
	token := bearerToken(t, "provider-alice")

	// RATE_LIMIT_PER_MINUTE=2 leaves a burst of one token per client.
	first := tr.postWithToken("/users/sync", token)
	require.Equal(t, http.StatusOK, first.Code)

	second := tr.postWithToken("/users/sync", token)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "42901")
}
