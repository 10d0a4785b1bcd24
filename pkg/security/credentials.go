package security

import "sync"

// Credentials supplies the session secret used for encrypted tab content.
// The second return value is false when no secret is available.
type Credentials interface {
	Secret() (string, bool)
}

// SessionCredentials holds the user's password for the lifetime of a
// session only. It is never persisted.
type SessionCredentials struct {
	mu     sync.RWMutex
	secret string
}

// NewSessionCredentials creates credentials holding secret, which may be empty
func NewSessionCredentials(secret string) *SessionCredentials {
	return &SessionCredentials{secret: secret}
}

// Secret returns the held secret
func (c *SessionCredentials) Secret() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.secret, c.secret != ""
}

// Set replaces the held secret
func (c *SessionCredentials) Set(secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.secret = secret
}

// Clear forgets the held secret, as on logout
func (c *SessionCredentials) Clear() {
	c.Set("")
}

// NoCredentials never has a secret
type NoCredentials struct{}

// Secret always reports no secret
func (NoCredentials) Secret() (string, bool) { return "", false }
