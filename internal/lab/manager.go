package lab

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/vectorlab/backend/internal/challenge"
	"github.com/vectorlab/backend/internal/config"
	"github.com/vectorlab/backend/internal/events"
)

// SessionManager owns every live lab session.
type SessionManager struct {
	sessions  map[string]*Session // keyed by session token
	config    *config.Config
	publisher events.Publisher
	clock     challenge.Clock
	mu        sync.RWMutex
}

var (
	// Global session manager instance
	Manager *SessionManager
)

// InitializeManager sets up the global session manager and starts its expiry checker.
func InitializeManager(ctx context.Context, cfg *config.Config, pub events.Publisher) {
	Manager = NewManager(cfg, pub)
	go Manager.StartExpiryChecker(ctx)
}

type ManagerOption func(*SessionManager)

// WithManagerClock sets the clock for session stamps and expiry checks.
func WithManagerClock(c challenge.Clock) ManagerOption {
	return func(m *SessionManager) { m.clock = c }
}

// NewManager creates a session manager. pub may be nil.
func NewManager(cfg *config.Config, pub events.Publisher, opts ...ManagerOption) *SessionManager {
	if cfg == nil {
		cfg = &config.Config{}
	}
	m := &SessionManager{
		sessions:  make(map[string]*Session),
		config:    cfg,
		publisher: pub,
		clock:     challenge.SystemClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func (m *SessionManager) tickInterval() time.Duration {
	if m.config.ChallengeTickMillis > 0 {
		return time.Duration(m.config.ChallengeTickMillis) * time.Millisecond
	}
	return challenge.DefaultTickInterval
}

func (m *SessionManager) expiry() time.Duration {
	if m.config.SessionExpiryMinutes > 0 {
		return time.Duration(m.config.SessionExpiryMinutes) * time.Minute
	}
	return time.Hour
}

// Create starts a new session with the default vectors.
func (m *SessionManager) Create() *Session {
	token := generateToken(16)
	engine := challenge.NewDefaultEngine(
		challenge.WithClock(m.clock),
		challenge.WithTickInterval(m.tickInterval()),
	)
	s := NewSession(token,
		WithCanvas(float64(m.config.CanvasWidth), float64(m.config.CanvasHeight)),
		WithPublisher(m.publisher),
		WithEngine(engine),
		WithSessionClock(m.clock),
	)

	m.mu.Lock()
	m.sessions[token] = s
	count := len(m.sessions)
	m.mu.Unlock()

	log.Printf("[LAB] Session created: %s (active=%d)", token, count)
	return s
}

// Get retrieves a session by its token
func (m *SessionManager) Get(token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[token]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End closes a session and forgets it.
func (m *SessionManager) End(token string) error {
	m.mu.Lock()
	s, exists := m.sessions[token]
	if !exists {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, token)
	m.mu.Unlock()

	s.Close()
	log.Printf("[LAB] Session ended: %s", token)
	return nil
}

// ActiveCount returns the number of live sessions
func (m *SessionManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll ends every session, used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// StartExpiryChecker runs a background job that ends idle sessions until ctx is done.
func (m *SessionManager) StartExpiryChecker(ctx context.Context) {
	interval := time.Duration(m.config.SessionCheckIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[LAB] Expiry checker started (interval=%s expiry=%s)", interval, m.expiry())
	for {
		select {
		case <-ctx.Done():
			log.Println("[LAB] Expiry checker stopping")
			return
		case <-ticker.C:
			m.checkExpiredSessions()
		}
	}
}

// checkExpiredSessions ends sessions idle longer than the expiry and
// announces each one. It returns how many were ended.
func (m *SessionManager) checkExpiredSessions() int {
	// Collect candidates under read lock
	m.mu.RLock()
	now := m.clock.Now()
	var expired []string
	for token, s := range m.sessions {
		if now.Sub(s.LastActive()) >= m.expiry() {
			expired = append(expired, token)
		}
	}
	m.mu.RUnlock()

	ended := 0
	for _, token := range expired {
		// Re-check under lock to avoid racing a fresh event
		m.mu.Lock()
		s, ok := m.sessions[token]
		if !ok || m.clock.Now().Sub(s.LastActive()) < m.expiry() {
			m.mu.Unlock()
			continue
		}
		delete(m.sessions, token)
		m.mu.Unlock()

		s.Close()
		ended++
		log.Printf("[LAB] Session %s expired after inactivity", token)

		if m.publisher != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := m.publisher.Publish(ctx, events.Event{Type: events.SessionExpired, SessionToken: token, At: now})
			cancel()
			if err != nil {
				log.Printf("[LAB] Failed to publish expiry for %s: %v", token, err)
			}
		}
	}
	return ended
}
