// Package session tracks the device operator's authentication state. The
// data source router asks it one question: is an authenticated session
// present right now. Tokens are JWTs so the wrapped web UI can hold one
// across reloads; passwords are bcrypt hashes.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"sakupos/backend/internal/domain"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Session struct {
	Username  string
	Role      string
	Token     string
	ExpiresAt time.Time
}

type credential struct {
	passwordHash string
	role         string
}

type claims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

type Manager struct {
	mu      sync.RWMutex
	secret  []byte
	ttl     time.Duration
	users   map[string]credential
	current *Session
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		users:  make(map[string]credential),
	}
}

// Register adds or replaces an account. Used at startup for seeded operators.
func (m *Manager) Register(username, password, role string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("username and password required")
	}
	if role == "" {
		role = "cashier"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[username] = credential{passwordHash: string(hash), role: role}
	return nil
}

// Login verifies credentials and makes the resulting session the device's
// current one, which flips the data source router to the remote store.
func (m *Manager) Login(req domain.LoginRequest) (Session, error) {
	username := strings.TrimSpace(req.Username)

	m.mu.RLock()
	cred, ok := m.users[username]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.passwordHash), []byte(req.Password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(m.ttl)
	token, err := m.sign(username, cred.role, expiresAt)
	if err != nil {
		return Session{}, err
	}

	session := Session{
		Username:  username,
		Role:      cred.role,
		Token:     token,
		ExpiresAt: expiresAt,
	}

	m.mu.Lock()
	m.current = &session
	m.mu.Unlock()
	return session, nil
}

// Logout drops the current session, flipping the router back to local.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// Current returns the active session, expiring it lazily.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()

	if current == nil {
		return Session{}, false
	}
	if time.Now().UTC().After(current.ExpiresAt) {
		m.Logout()
		return Session{}, false
	}
	return *current, true
}

// Authenticated is the selection signal the data source router consumes.
func (m *Manager) Authenticated() bool {
	_, ok := m.Current()
	return ok
}

// Verify parses and validates a bearer token.
func (m *Manager) Verify(token string) (Session, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &claims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidCredentials
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	return Session{
		Username:  c.Subject,
		Role:      c.Role,
		Token:     token,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (m *Manager) sign(username, role string, expiresAt time.Time) (string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
		},
		Role: role,
	})
	return token.SignedString(m.secret)
}
