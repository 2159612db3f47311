// internal/middleware/helpers.go
package middleware

import (
	"subpass-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// GetAddress gets the authenticated wallet address from context
func GetAddress(c *gin.Context) (string, bool) {
	v, exists := c.Get("address")
	if !exists {
		return "", false
	}
	address, ok := v.(string)
	return address, ok
}

// MustGetAddress gets the wallet address from context or panics
func MustGetAddress(c *gin.Context) string {
	address, exists := GetAddress(c)
	if !exists {
		panic("address not found in context")
	}
	return address
}

// GetJTI gets the session token id from context
func GetJTI(c *gin.Context) (string, bool) {
	v, exists := c.Get("jti")
	if !exists {
		return "", false
	}
	jti, ok := v.(string)
	return jti, ok
}

// MustGetJTI gets the session token id from context or panics
func MustGetJTI(c *gin.Context) string {
	jti, exists := GetJTI(c)
	if !exists {
		panic("jti not found in context")
	}
	return jti
}

// GetClaims gets the verified session claims from context
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

// HasRole checks if the session carries a specific role
func HasRole(c *gin.Context, role string) bool {
	claims, ok := GetClaims(c)
	return ok && claims.HasRole(role)
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("address")
	return exists
}

// IsAdmin checks if the session carries the admin role
func IsAdmin(c *gin.Context) bool {
	claims, ok := GetClaims(c)
	return ok && claims.IsAdmin()
}
