package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/infra/security"
	"github.com/foroescolar/escuela-api/internal/repository"
	"github.com/foroescolar/escuela-api/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryRevocationStore struct {
	mu     sync.Mutex
	tokens map[string]struct{}
}

func newMemoryRevocationStore() *memoryRevocationStore {
	return &memoryRevocationStore{tokens: make(map[string]struct{})}
}

func (s *memoryRevocationStore) Add(_ context.Context, token string, _ time.Duration) error {
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *memoryRevocationStore) Contains(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok, nil
}

func (s *memoryRevocationStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tokens))
	for token := range s.tokens {
		out = append(out, token)
	}
	return out, nil
}

type memoryUserRepo struct {
	users map[string]*domain.User
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type authFixture struct {
	tokens    *usecase.TokenService
	codec     *security.TokenCodec
	blacklist *usecase.Blacklist
	users     *memoryUserRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	codec, err := security.NewTokenCodec(security.CodecOptions{
		Secret:   "test-secret-with-enough-entropy",
		Issuer:   "Foro Escolar",
		Lifetime: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenCodec returned error: %v", err)
	}

	blacklist := usecase.NewBlacklist(newMemoryRevocationStore(), nil, zap.NewNop(), usecase.BlacklistOptions{})
	t.Cleanup(blacklist.Close)

	tokens := usecase.NewTokenService(
		codec,
		security.NewTokenCache(100),
		security.NewNegativeCache(30*time.Minute),
		blacklist,
		nil,
		zap.NewNop(),
	)

	users := &memoryUserRepo{users: map[string]*domain.User{
		"ana@example.com": {ID: 7, Email: "ana@example.com", Name: "Ana", Role: domain.RoleEstudiante, Active: true},
	}}

	return &authFixture{tokens: tokens, codec: codec, blacklist: blacklist, users: users}
}

func (f *authFixture) issue(t *testing.T) string {
	t.Helper()
	token, err := f.tokens.Issue(&domain.User{ID: 7, Email: "ana@example.com", Name: "Ana", Role: domain.RoleEstudiante})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	return token
}

// serve runs a request through the given middleware chain followed by a
// terminal handler that records the principal it saw.
func serve(chain []gin.HandlerFunc, method, path, token string) (*httptest.ResponseRecorder, *domain.Principal) {
	engine := gin.New()
	engine.Use(EnrichContext())
	engine.Use(chain...)

	var seen *domain.Principal
	engine.Any("/*any", func(c *gin.Context) {
		seen = GetPrincipal(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec, seen
}

func decodeFilterError(t *testing.T, rec *httptest.ResponseRecorder) FilterError {
	t.Helper()
	var fe FilterError
	if err := json.Unmarshal(rec.Body.Bytes(), &fe); err != nil {
		t.Fatalf("decode error payload: %v (body: %s)", err, rec.Body.String())
	}
	return fe
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"Bearer   spaced  ", "spaced", true},
		{"bearer abc", "", false},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}

		token, ok := ExtractBearerToken(c)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("ExtractBearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

func TestAuthenticateNoHeaderPassesThroughAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	chain := []gin.HandlerFunc{Authenticate(f.tokens, f.users, zap.NewNop())}

	rec, seen := serve(chain, http.MethodGet, "/api/resource", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != nil {
		t.Fatalf("expected no principal for an anonymous request")
	}
}

func TestAuthenticateGarbageTokenPassesThroughAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	chain := []gin.HandlerFunc{Authenticate(f.tokens, f.users, zap.NewNop())}

	rec, seen := serve(chain, http.MethodGet, "/api/resource", "not-a-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != nil {
		t.Fatalf("expected no principal for a garbage token")
	}
}

func TestAuthenticateValidTokenAttachesPrincipal(t *testing.T) {
	f := newAuthFixture(t)
	token := f.issue(t)
	chain := []gin.HandlerFunc{Authenticate(f.tokens, f.users, zap.NewNop())}

	rec, seen := serve(chain, http.MethodGet, "/api/resource", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil {
		t.Fatalf("expected a principal to be attached")
	}
	if seen.ID != 7 || seen.Role != domain.RoleEstudiante {
		t.Fatalf("unexpected principal: %+v", seen)
	}
}

func TestAuthenticateExpiredTokenAborts(t *testing.T) {
	f := newAuthFixture(t)
	f.codec.WithClock(func() time.Time { return time.Now().UTC().Add(-25 * time.Hour) })
	token := f.issue(t)
	chain := []gin.HandlerFunc{Authenticate(f.tokens, f.users, zap.NewNop())}

	rec, _ := serve(chain, http.MethodGet, "/api/resource", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	fe := decodeFilterError(t, rec)
	if fe.Code != CodeTokenExpired {
		t.Fatalf("expected code %s, got %s", CodeTokenExpired, fe.Code)
	}
	if fe.Details["path"] != "/api/resource" {
		t.Fatalf("expected the request path in details, got %q", fe.Details["path"])
	}
	if fe.Details["trace_id"] == "" {
		t.Fatalf("expected a trace id in details")
	}
}

func TestAuthenticateRevokedTokenAborts(t *testing.T) {
	f := newAuthFixture(t)
	token := f.issue(t)
	if err := f.tokens.Invalidate(context.Background(), token); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}
	chain := []gin.HandlerFunc{Authenticate(f.tokens, f.users, zap.NewNop())}

	rec, _ := serve(chain, http.MethodGet, "/api/resource", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if fe := decodeFilterError(t, rec); fe.Code != CodeTokenInvalidated {
		t.Fatalf("expected code %s, got %s", CodeTokenInvalidated, fe.Code)
	}
}

func TestAuthenticateUnknownAccountPassesThroughAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.tokens.Issue(&domain.User{ID: 99, Email: "ghost@example.com", Role: domain.RoleEstudiante})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	chain := []gin.HandlerFunc{Authenticate(f.tokens, f.users, zap.NewNop())}

	rec, seen := serve(chain, http.MethodGet, "/api/resource", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != nil {
		t.Fatalf("expected no principal for an unknown account")
	}
}
