// internal/pkg/session/types.go
package session

import "time"

// SessionData is the Redis-backed record for one issued token. Address is the
// wallet address the session acts as.
type SessionData struct {
	JTI            string    `json:"jti"`
	Address        string    `json:"address"`
	Roles          []string  `json:"roles"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}
