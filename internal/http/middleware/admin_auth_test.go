package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/convodesk/platform/internal/tenancy"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, businessID string) string {
	t.Helper()
	claims := AdminClaims{
		BusinessID: businessID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAdminJWT_ValidToken(t *testing.T) {
	var gotBusiness string
	handler := AdminJWT(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBusiness, _ = tenancy.BusinessIDFromContext(r.Context())
		claims, ok := AdminClaimsFromContext(r.Context())
		if !ok {
			t.Error("expected claims in context")
		}
		if claims.Subject != "admin@example.com" {
			t.Errorf("subject = %q", claims.Subject)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/rules", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "biz-1"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotBusiness != "biz-1" {
		t.Errorf("business id = %q, want biz-1", gotBusiness)
	}
}

func TestAdminJWT_MissingHeader(t *testing.T) {
	handler := AdminJWT(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/rules", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAdminJWT_WrongSecret(t *testing.T) {
	handler := AdminJWT(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/rules", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "biz-1"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAdminJWT_MissingBusinessScope(t *testing.T) {
	handler := AdminJWT(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/rules", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, ""))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestAdminJWT_DisabledWithoutSecret(t *testing.T) {
	handler := AdminJWT("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/rules", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "biz-1"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
