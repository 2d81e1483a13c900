package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedRequest(t *testing.T, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestJWTMiddlewareRoundTrip(t *testing.T) {
	token, err := GenerateStaffToken("u1", "student", "Ada", "ada@example.com", "", "")
	if err != nil {
		t.Fatal(err)
	}

	var got *Claims
	handler := JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClaimsFrom(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, token))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got == nil || got.UserID != "u1" || got.Role != "student" || got.Email != "ada@example.com" {
		t.Errorf("claims = %+v", got)
	}
}

func TestJWTMiddlewareRejectsBadTokens(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not run")
			}))
			req := httptest.NewRequest("GET", "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, expected 401", rec.Code)
			}
		})
	}
}

func TestClaimsAdminChecks(t *testing.T) {
	tests := []struct {
		name       string
		claims     *Claims
		admin      bool
		superAdmin bool
	}{
		{"plain admin", &Claims{Role: "admin"}, true, false},
		{"super admin", &Claims{Role: "super_admin"}, true, true},
		{"scr staff counts as admin", &Claims{Role: "staff", StaffRank: "SCR"}, true, false},
		{"other staff does not", &Claims{Role: "staff", StaffRank: "jcr"}, false, false},
		{"student", &Claims{Role: "student"}, false, false},
		{"nil claims", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.IsAdmin(); got != tt.admin {
				t.Errorf("IsAdmin = %v, expected %v", got, tt.admin)
			}
			if got := tt.claims.IsSuperAdmin(); got != tt.superAdmin {
				t.Errorf("IsSuperAdmin = %v, expected %v", got, tt.superAdmin)
			}
		})
	}
}

func TestRequireAdminGate(t *testing.T) {
	adminToken, err := GenerateStaffToken("u1", "admin", "Warden", "warden@example.com", "", "")
	if err != nil {
		t.Fatal(err)
	}
	studentToken, err := GenerateStaffToken("u2", "student", "Ada", "ada@example.com", "", "")
	if err != nil {
		t.Fatal(err)
	}

	handler := JWTMiddleware(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, adminToken))
	if rec.Code != http.StatusNoContent {
		t.Errorf("admin status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, studentToken))
	if rec.Code != http.StatusForbidden {
		t.Errorf("student status = %d, expected 403", rec.Code)
	}
}
