package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"p9e.in/hallfix/config"
	"p9e.in/hallfix/models"
)

// Claims are the custom payload in the portal JWT.
type Claims struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	StaffRank string `json:"staffRank,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	jwt.RegisteredClaims
}

// unexported type prevents collisions in context
type ctxKey int

const userClaimsKey ctxKey = iota

// GenerateToken creates a signed JWT valid for 24 h.
func GenerateToken(userID, role, name, email string) (string, error) {
	return GenerateStaffToken(userID, role, name, email, "", "")
}

// GenerateStaffToken additionally carries a staff rank and maintenance
// specialty for scoped portals.
func GenerateStaffToken(userID, role, name, email, staffRank, specialty string) (string, error) {
	claims := Claims{
		UserID:    userID,
		Name:      name,
		Email:     email,
		Role:      role,
		StaffRank: staffRank,
		Specialty: specialty,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(config.JWTSecret())
}

// JWTMiddleware validates the token and stashes the Claims in ctx.
func JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "missing Authorization header", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "invalid auth header", http.StatusUnauthorized)
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(t *jwt.Token) (interface{}, error) {
			return config.JWTSecret(), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			http.Error(w, "invalid token claims", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFrom pulls the authenticated Claims out of the request context.
func ClaimsFrom(r *http.Request) *Claims {
	claims, _ := r.Context().Value(userClaimsKey).(*Claims)
	return claims
}

// IsAdmin reports whether the claims carry an administrative role, or the
// staff role with the senior common-room rank which is treated as admin.
func (c *Claims) IsAdmin() bool {
	if c == nil {
		return false
	}
	if models.IsAdminRole(c.Role) {
		return true
	}
	return strings.EqualFold(c.Role, models.RoleStaff) && strings.EqualFold(c.StaffRank, "scr")
}

// IsSuperAdmin reports whether the claims carry the elevated admin role.
func (c *Claims) IsSuperAdmin() bool {
	return c != nil && models.IsSuperAdminRole(c.Role)
}

// RequireAdmin gates a subrouter to admin-capable claims.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ClaimsFrom(r).IsAdmin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperAdmin gates destructive operations to the elevated role.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ClaimsFrom(r).IsSuperAdmin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
