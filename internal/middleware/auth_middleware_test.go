package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"subpass-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

func testContext(t *testing.T, claims *jwt.Claims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if claims != nil {
		c.Set("claims", claims)
		c.Set("address", claims.Address)
	}
	return c, w
}

func TestRequireRole(t *testing.T) {
	m := &AuthMiddleware{}

	tests := []struct {
		name       string
		claims     *jwt.Claims
		wantStatus int
	}{
		{"admin allowed", &jwt.Claims{Address: "0xabc", Roles: []string{"admin"}}, http.StatusOK},
		{"wrong role denied", &jwt.Claims{Address: "0xabc", Roles: []string{"moderator"}}, http.StatusForbidden},
		{"no roles denied", &jwt.Claims{Address: "0xabc"}, http.StatusForbidden},
		{"no claims denied", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext(t, tt.claims)
			m.RequireRole("admin")(c)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK && !c.IsAborted() {
				t.Error("denied request must abort the chain")
			}
		})
	}
}

func TestRoleHelpers(t *testing.T) {
	c, _ := testContext(t, &jwt.Claims{Address: "0xabc", Roles: []string{"admin"}})
	if !HasRole(c, "admin") {
		t.Error("HasRole(admin) = false")
	}
	if HasRole(c, "moderator") {
		t.Error("HasRole(moderator) = true")
	}
	if !IsAdmin(c) {
		t.Error("IsAdmin = false")
	}
	if !IsAuthenticated(c) {
		t.Error("IsAuthenticated = false")
	}

	anon, _ := testContext(t, nil)
	if IsAdmin(anon) {
		t.Error("IsAdmin on anonymous context = true")
	}
	if IsAuthenticated(anon) {
		t.Error("IsAuthenticated on anonymous context = true")
	}
}
