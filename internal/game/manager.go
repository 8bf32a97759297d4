package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/playmatatu/balldrop/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrTooManySessions = errors.New("too many active sessions")

const liveSessionsKey = "balldrop:sessions:live"

// SessionManager owns every live sandbox session of this process.
type SessionManager struct {
	sessions map[string]*Session // keyed by session ID
	rdb      *redis.Client       // autosaves and live counter, optional
	config   *config.Config
	frames   FrameSink
	events   EventSink
	mu       sync.RWMutex
}

var (
	// Global session manager instance
	Manager *SessionManager
)

// InitializeManager creates the global manager and starts its background jobs.
func InitializeManager(ctx context.Context, rdb *redis.Client, cfg *config.Config, frames FrameSink, events EventSink) {
	Manager = NewSessionManager(rdb, cfg, frames, events)
	go Manager.StartIdleChecker(ctx)
	go Manager.StartAutosaver(ctx)
}

// NewSessionManager creates a session manager
func NewSessionManager(rdb *redis.Client, cfg *config.Config, frames FrameSink, events EventSink) *SessionManager {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		rdb:      rdb,
		config:   cfg,
		frames:   frames,
		events:   events,
	}
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func newID(prefix string) string {
	return prefix + "_" + generateToken(6)
}

// Create starts a new session for a player. Options left empty fall back to
// the configured defaults.
func (m *SessionManager) Create(playerID int, opts Options) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		return nil, ErrTooManySessions
	}
	if opts.SpawnRate == 0 && m.config.DefaultSpawnRate > 0 {
		opts.SpawnRate = m.config.DefaultSpawnRate
	}
	if opts.Events == nil {
		opts.Events = m.events
	}

	id := "sbx_" + generateToken(8)
	s := NewSession(id, playerID, opts, m.frames, SessionConfig{
		FrameRate:     m.config.FrameRate,
		BroadcastRate: m.config.BroadcastRate,
	})
	m.sessions[id] = s

	if m.rdb != nil {
		if err := m.rdb.Incr(context.Background(), liveSessionsKey).Err(); err != nil {
			log.Printf("[REDIS] Failed to bump live session counter: %v", err)
		}
	}
	log.Printf("[SESSION] Created %s for player %d (active=%d)", id, playerID, len(m.sessions))
	return s, nil
}

// Get returns a live session by ID.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// GetForPlayer returns a session only if playerID owns it.
func (m *SessionManager) GetForPlayer(id string, playerID int) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if s.PlayerID != playerID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ListForPlayer returns the sessions of a player, oldest first.
func (m *SessionManager) ListForPlayer(playerID int) []*Session {
	m.mu.RLock()
	var out []*Session
	for _, s := range m.sessions {
		if s.PlayerID == playerID {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// End autosaves and stops a session, then forgets it.
func (m *SessionManager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.autosave(ctx, s)
	s.Stop()

	if m.rdb != nil {
		if err := m.rdb.Decr(context.Background(), liveSessionsKey).Err(); err != nil {
			log.Printf("[REDIS] Failed to drop live session counter: %v", err)
		}
	}
	log.Printf("[SESSION] Ended %s", id)
	return nil
}

// EndForPlayer stops every session of a player.
func (m *SessionManager) EndForPlayer(playerID int) int {
	n := 0
	for _, s := range m.ListForPlayer(playerID) {
		if m.End(s.ID) == nil {
			n++
		}
	}
	return n
}

// GetActiveSessionCount returns the number of live sessions
func (m *SessionManager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartIdleChecker ends sessions without commands for SessionIdleMinutes.
func (m *SessionManager) StartIdleChecker(ctx context.Context) {
	if m.config.SessionIdleMinutes <= 0 {
		return
	}
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.expireIdle(time.Duration(m.config.SessionIdleMinutes) * time.Minute)
		}
	}
}

func (m *SessionManager) expireIdle(maxIdle time.Duration) int {
	// Collect candidates under read lock
	m.mu.RLock()
	now := time.Now()
	var idle []string
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > maxIdle {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		log.Printf("[IDLE] Session %s idle for more than %s; ending", id, maxIdle)
		m.End(id)
	}
	return len(idle)
}

// StartAutosaver periodically writes every live session to Redis.
func (m *SessionManager) StartAutosaver(ctx context.Context) {
	if m.rdb == nil {
		log.Println("[REDIS] No client; autosave disabled")
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			live := make([]*Session, 0, len(m.sessions))
			for _, s := range m.sessions {
				live = append(live, s)
			}
			m.mu.RUnlock()

			for _, s := range live {
				m.autosave(ctx, s)
			}
		}
	}
}

func (m *SessionManager) autosave(ctx context.Context, s *Session) {
	if m.rdb == nil {
		return
	}
	res, err := s.Execute(ctx, Save{})
	if err != nil || res.Save == nil {
		return
	}
	if err := m.saveToRedis(ctx, s.PlayerID, res.Save); err != nil {
		log.Printf("[REDIS] Autosave of %s failed: %v", s.ID, err)
	}
}

func autosaveKey(playerID int) string {
	return "sandbox:" + strconv.Itoa(playerID) + ":autosave"
}

// saveToRedis stores a save file as msgpack with the configured expiry.
func (m *SessionManager) saveToRedis(ctx context.Context, playerID int, f *SaveFile) error {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return err
	}
	ttl := time.Duration(m.config.AutosaveTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return m.rdb.SetEx(ctx, autosaveKey(playerID), data, ttl).Err()
}

// LoadAutosave returns the latest autosave of a player, or redis.Nil when
// there is none.
func (m *SessionManager) LoadAutosave(ctx context.Context, playerID int) (*SaveFile, error) {
	if m.rdb == nil {
		return nil, redis.Nil
	}
	data, err := m.rdb.Get(ctx, autosaveKey(playerID)).Bytes()
	if err != nil {
		return nil, err
	}
	var f SaveFile
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteAutosave drops a player's autosave.
func (m *SessionManager) DeleteAutosave(ctx context.Context, playerID int) error {
	if m.rdb == nil {
		return nil
	}
	return m.rdb.Del(ctx, autosaveKey(playerID)).Err()
}

// Shutdown autosaves and stops every session.
func (m *SessionManager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.End(id)
	}
}
