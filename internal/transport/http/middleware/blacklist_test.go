package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBlacklistGuardNoTokenPassesThrough(t *testing.T) {
	f := newAuthFixture(t)
	chain := []gin.HandlerFunc{BlacklistGuard(f.blacklist)}

	rec, _ := serve(chain, http.MethodGet, "/api/resource", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBlacklistGuardAllowsUnrevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	token := f.issue(t)
	chain := []gin.HandlerFunc{
		Authenticate(f.tokens, f.users, nil),
		BlacklistGuard(f.blacklist),
	}

	rec, _ := serve(chain, http.MethodGet, "/api/resource", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBlacklistGuardRejectsTokenRevokedMidSession(t *testing.T) {
	f := newAuthFixture(t)
	token := f.issue(t)

	// Revocation lands between authentication and the guard, the window the
	// guard exists to close.
	chain := []gin.HandlerFunc{
		Authenticate(f.tokens, f.users, nil),
		func(c *gin.Context) {
			f.blacklist.MergeRevoked(token)
			c.Next()
		},
		BlacklistGuard(f.blacklist),
	}

	rec, _ := serve(chain, http.MethodGet, "/api/resource", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if fe := decodeFilterError(t, rec); fe.Code != CodeTokenInvalidated {
		t.Fatalf("expected code %s, got %s", CodeTokenInvalidated, fe.Code)
	}
}
