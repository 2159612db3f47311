package jwt

import (
	"testing"
	"time"
)

const testAddr = "0x2222222222222222222222222222222222222222"

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := LoadAndBuild(Config{
		Issuer:   "subpass",
		Audience: "subpass-users",
		TTL:      time.Hour,
		KID:      "test-key",
	})
	if err != nil {
		t.Fatalf("LoadAndBuild: %v", err)
	}
	return m
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, jti, err := m.Generator.GenerateAccessToken(testAddr, []string{"admin"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if jti == "" {
		t.Fatal("empty jti")
	}

	claims, err := m.Verifier.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Address != testAddr {
		t.Errorf("address = %s, want %s", claims.Address, testAddr)
	}
	if claims.ID != jti {
		t.Errorf("jti = %s, want %s", claims.ID, jti)
	}
	if !claims.IsAdmin() {
		t.Error("admin role lost in round trip")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, _, err := m.Generator.GenerateRefreshToken(testAddr, []string{"admin"})
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims, err := m.Verifier.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("VerifyRefreshToken: %v", err)
	}
	if claims.Address != testAddr {
		t.Errorf("address = %s, want %s", claims.Address, testAddr)
	}
	if !claims.HasRole("admin") {
		t.Error("roles must survive the refresh token so a refreshed session keeps them")
	}
}

func TestTokenPurposeIsEnforced(t *testing.T) {
	m := newTestManager(t)

	access, _, err := m.Generator.GenerateAccessToken(testAddr, nil)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	refresh, _, err := m.Generator.GenerateRefreshToken(testAddr, nil)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	if _, err := m.Verifier.VerifyAccessToken(refresh); err == nil {
		t.Error("refresh token accepted as access token")
	}
	if _, err := m.Verifier.VerifyRefreshToken(access); err == nil {
		t.Error("access token accepted as refresh token")
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	m := newTestManager(t)
	other, err := LoadAndBuild(Config{
		Issuer:   "someone-else",
		Audience: "subpass-users",
		TTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("LoadAndBuild: %v", err)
	}

	token, _, err := other.Generator.GenerateAccessToken(testAddr, nil)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := m.Verifier.Verify(token); err == nil {
		t.Error("token from a foreign keypair and issuer verified")
	}
}

func TestClaimsRoles(t *testing.T) {
	tests := []struct {
		name      string
		roles     []string
		role      string
		wantHas   bool
		wantAdmin bool
	}{
		{"admin", []string{"admin"}, "admin", true, true},
		{"other role", []string{"moderator"}, "admin", false, false},
		{"among several", []string{"moderator", "admin"}, "moderator", true, true},
		{"no roles", nil, "admin", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Claims{Roles: tt.roles}
			if got := c.HasRole(tt.role); got != tt.wantHas {
				t.Errorf("HasRole(%q) = %v, want %v", tt.role, got, tt.wantHas)
			}
			if got := c.IsAdmin(); got != tt.wantAdmin {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.wantAdmin)
			}
		})
	}
}
