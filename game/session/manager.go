package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/tetrisgame/game/engine"
	"github.com/wricardo/mcp-training/tetrisgame/game/service"
	"github.com/wricardo/mcp-training/tetrisgame/logx"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// TickListener receives every gravity tick that moved or locked a piece
type TickListener func(sessionID string, result engine.TickResult, state *engine.GameState)

// Option configures a Manager
type Option func(*Manager)

// WithPersistence enables auto-save through p
func WithPersistence(p SessionPersistence) Option {
	return func(m *Manager) { m.persistence = p }
}

// WithLogger sets the logger used for persistence warnings
func WithLogger(l logx.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithGravity enables or disables background gravity for new sessions.
// Enabled by default.
func WithGravity(enabled bool) Option {
	return func(m *Manager) { m.gravityEnabled = enabled }
}

// WithClock injects the clock shared by engines and gravity schedulers
func WithClock(clock engine.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithTickListener registers fn for gravity ticks
func WithTickListener(fn TickListener) Option {
	return func(m *Manager) { m.onTick = fn }
}

// Manager handles game session lifecycle. Every session with automatic
// gravity owns one goroutine running an engine.GravityScheduler; the
// goroutine lives until the session is deleted, expired or the manager closed.
type Manager struct {
	sessions       map[string]*service.Session
	gravity        map[string]context.CancelFunc
	persistence    SessionPersistence
	log            logx.Logger
	clock          engine.Clock
	gravityEnabled bool
	onTick         TickListener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		sessions:       make(map[string]*service.Session),
		gravity:        make(map[string]context.CancelFunc),
		log:            logx.Nop(),
		gravityEnabled: true,
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(persistence SessionPersistence, opts ...Option) *Manager {
	return NewManager(append([]Option{WithPersistence(persistence)}, opts...)...)
}

// SetTickListener replaces the gravity tick listener
func (m *Manager) SetTickListener(fn TickListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTick = fn
}

// Create creates a new session with the given ID and configuration
func (m *Manager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	} else if strings.ContainsAny(id, `/\.`) || len(id) > 64 {
		return nil, ErrInvalidSessionID
	}

	// Check if session already exists (case-insensitive)
	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	var opts []engine.Option
	if m.clock != nil {
		opts = append(opts, engine.WithClock(m.clock))
	}
	eng, err := engine.NewEngine(config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	session := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.sessions[strings.ToLower(id)] = session
	m.startGravity(session)

	// Auto-save if persistence is enabled
	if m.persistence != nil {
		if err := m.persistence.Save(session); err != nil {
			m.log.Warnf("failed to persist session %s: %v", id, err)
		}
	}

	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	// Try loading from persistence if not in memory
	if m.persistence != nil && m.persistence.Exists(id) {
		loaded, err := m.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// Another caller may have loaded it meanwhile
		if existing, ok := m.sessions[strings.ToLower(id)]; ok {
			return existing, nil
		}
		m.sessions[strings.ToLower(id)] = loaded
		m.startGravity(loaded)

		return loaded, nil
	}

	return nil, ErrSessionNotFound
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, config)
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session from memory and storage and stops its gravity
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	_, inMemory := m.sessions[key]
	if inMemory {
		delete(m.sessions, key)
		m.stopGravity(key)
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteFromMemory removes a session from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	m.stopGravity(key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}

	session.LastAccessedAt = time.Now()

	if m.persistence != nil {
		if err := m.persistence.Save(session); err != nil {
			m.log.Warnf("failed to persist session %s after access update: %v", id, err)
		}
	}

	return nil
}

// Save saves a specific session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.persistence.Save(session)
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for key, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, key)
			m.stopGravity(key)
			removed++
		}
	}

	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GravityCount returns the number of running gravity goroutines
func (m *Manager) GravityCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.gravity)
}

// Close stops every gravity goroutine and waits for them to exit
func (m *Manager) Close() error {
	m.cancel()
	m.mu.Lock()
	m.gravity = make(map[string]context.CancelFunc)
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range sessionIDs {
		if _, exists := m.sessions[strings.ToLower(id)]; exists {
			continue
		}

		session, err := m.persistence.Load(id)
		if err != nil {
			m.log.Warnf("failed to load persisted session %s: %v", id, err)
			continue
		}

		m.sessions[strings.ToLower(id)] = session
		m.startGravity(session)
		loadedCount++
	}

	if loadedCount > 0 {
		m.log.Infof("loaded %d persisted sessions from storage", loadedCount)
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessions := m.List()

	errorCount := 0
	for _, session := range sessions {
		if err := m.persistence.Save(session); err != nil {
			m.log.Warnf("failed to save session %s: %v", session.ID, err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}

// startGravity launches the scheduler for session. Caller holds m.mu.
func (m *Manager) startGravity(session *service.Session) {
	if !m.gravityEnabled || session.Config.Gravity.Manual || m.ctx.Err() != nil {
		return
	}
	key := strings.ToLower(session.ID)
	if _, running := m.gravity[key]; running {
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.gravity[key] = cancel

	scheduler := engine.NewGravityScheduler(session.Engine, m.clock)
	id := session.ID
	scheduler.OnTick = func(res engine.TickResult, state *engine.GameState) {
		m.mu.RLock()
		listener := m.onTick
		m.mu.RUnlock()
		if listener != nil {
			listener(id, res, state)
		}
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		scheduler.Run(ctx)
	}()
}

// stopGravity cancels the scheduler for key. Caller holds m.mu.
func (m *Manager) stopGravity(key string) {
	if cancel, ok := m.gravity[key]; ok {
		cancel()
		delete(m.gravity, key)
	}
}

// generateSessionID generates a random unused 4-character session ID.
// Caller holds m.mu.
func (m *Manager) generateSessionID() string {
	bytes := make([]byte, 2)
	for {
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if !m.sessionExists(id) {
			return id
		}
	}
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
