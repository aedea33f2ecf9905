package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks active administrator sessions against a single
// configured identity.
//
// Two token modes exist. Without a secret, Login returns the raw session
// ID and Validate checks registry membership only. With a secret
// configured, Login returns an HMAC-signed, time-limited credential; a
// session is then honored only if the signature verifies, the embedded
// expiry has not passed, AND the session ID is still registered — so
// Revoke takes effect before natural expiry.
type Manager struct {
	mu       sync.RWMutex
	username string
	password string
	secret   []byte
	ttl      time.Duration
	sessions map[string]time.Time // session ID -> issued at
}

// NewManager creates a session manager for the given admin identity.
// secret may be empty to disable signed credentials; ttl applies only to
// signed credentials.
func NewManager(username, password, secret string, ttl time.Duration) *Manager {
	m := &Manager{
		username: username,
		password: password,
		ttl:      ttl,
		sessions: make(map[string]time.Time),
	}
	if secret != "" {
		m.secret = []byte(secret)
	}
	return m
}

// Login checks the presented credentials and, on success, mints and
// registers a new session token.
func (m *Manager) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) == 1
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}

	id := uuid.New().String()

	m.mu.Lock()
	m.sessions[id] = time.Now()
	m.mu.Unlock()

	if m.secret == nil {
		return id, nil
	}
	return m.sign(id, time.Now().Add(m.ttl)), nil
}

// Validate checks whether the presented token identifies a live session.
func (m *Manager) Validate(token string) error {
	id, err := m.resolve(token)
	if err != nil {
		return err
	}

	m.mu.RLock()
	_, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return ErrInvalidSession
	}
	return nil
}

// Revoke removes the session behind the token. Validation of the same
// token fails afterwards regardless of credential expiry. Revoking an
// unknown or malformed token is a no-op.
func (m *Manager) Revoke(token string) {
	id, err := m.resolve(token)
	if err != nil {
		return
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// resolve extracts the session ID from a token, verifying signature and
// expiry in signed mode.
func (m *Manager) resolve(token string) (string, error) {
	if m.secret == nil {
		if token == "" {
			return "", ErrInvalidSession
		}
		return token, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidSession
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return "", ErrInvalidSession
	}
	id, expStr, sig := parts[0], parts[1], parts[2]

	expected := m.signature(id, expStr)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return "", ErrInvalidSession
	}

	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", ErrInvalidSession
	}
	if time.Now().Unix() > exp {
		return "", ErrSessionExpired
	}

	return id, nil
}

func (m *Manager) sign(id string, expiry time.Time) string {
	expStr := strconv.FormatInt(expiry.Unix(), 10)
	sig := m.signature(id, expStr)
	payload := id + "|" + expStr + "|" + sig
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func (m *Manager) signature(id, expStr string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id + "|" + expStr))
	return hex.EncodeToString(mac.Sum(nil))
}
