package notifications

import (
	"context"
	"sync"
	"time"

	"harfzaar/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	presenceOnlineSetKey  = "bazm:online_users"
	presenceLastSeenKeyNS = "bazm:last_seen:"
	defaultPresenceTTL    = 90 * time.Second
	defaultOfflineGrace   = 5 * time.Second
	defaultReaperInterval = 60 * time.Second
)

// PresenceConfig controls Redis presence and the offline grace window.
type PresenceConfig struct {
	LastSeenTTL        time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
	// OnUserOnline runs when a user's first socket opens anywhere.
	OnUserOnline func(userID string)
	// OnUserOffline runs once the user has had no socket for the grace period.
	OnUserOffline func(userID string)
}

// ConnectionManager counts Bazm sockets per user, mirrors presence in Redis so
// several instances agree, and reports online/offline transitions. A reconnect
// inside the grace window does not produce an offline transition.
type ConnectionManager struct {
	rdb *redis.Client
	cfg PresenceConfig

	mu        sync.Mutex
	local     map[string]int
	timers    map[string]*time.Timer
	announced map[string]bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewConnectionManager creates a manager and starts the Redis reaper when Redis is available.
func NewConnectionManager(rdb *redis.Client, cfg PresenceConfig) *ConnectionManager {
	if cfg.LastSeenTTL <= 0 {
		cfg.LastSeenTTL = defaultPresenceTTL
	}
	if cfg.OfflineGracePeriod <= 0 {
		cfg.OfflineGracePeriod = defaultOfflineGrace
	}
	if cfg.ReaperInterval <= 0 {
		cfg.ReaperInterval = defaultReaperInterval
	}
	m := &ConnectionManager{
		rdb:       rdb,
		cfg:       cfg,
		local:     make(map[string]int),
		timers:    make(map[string]*time.Timer),
		announced: make(map[string]bool),
		stopCh:    make(chan struct{}),
	}
	if rdb != nil {
		go m.reaperLoop()
	}
	return m
}

// Stop halts the reaper and pending offline timers.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		for userID, t := range m.timers {
			t.Stop()
			delete(m.timers, userID)
		}
		m.mu.Unlock()
	})
}

// Register records a new socket for userID.
func (m *ConnectionManager) Register(ctx context.Context, userID string) {
	m.mu.Lock()
	if t, ok := m.timers[userID]; ok {
		t.Stop()
		delete(m.timers, userID)
	}
	m.local[userID]++
	first := !m.announced[userID]
	m.announced[userID] = true
	m.mu.Unlock()

	m.Touch(ctx, userID)
	if first && m.cfg.OnUserOnline != nil {
		m.cfg.OnUserOnline(userID)
	}
}

// Touch refreshes the user's last-seen key.
func (m *ConnectionManager) Touch(ctx context.Context, userID string) {
	if m.rdb == nil {
		return
	}
	if err := m.rdb.SAdd(ctx, presenceOnlineSetKey, userID).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "presence SADD failed", "user_id", userID, "error", err)
	}
	if err := m.rdb.SetEx(ctx, lastSeenKey(userID), time.Now().Unix(), m.cfg.LastSeenTTL).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "presence SETEX failed", "user_id", userID, "error", err)
	}
}

// Unregister drops one socket. The last one starts the offline grace timer.
func (m *ConnectionManager) Unregister(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.local[userID]
	if !ok {
		return
	}
	if n > 1 {
		m.local[userID] = n - 1
		return
	}
	delete(m.local, userID)

	if t, ok := m.timers[userID]; ok {
		t.Stop()
	}
	m.timers[userID] = time.AfterFunc(m.cfg.OfflineGracePeriod, func() {
		m.finalizeOffline(context.Background(), userID)
	})
}

// IsOnline reports whether userID has a socket here or a fresh last-seen key.
func (m *ConnectionManager) IsOnline(ctx context.Context, userID string) bool {
	m.mu.Lock()
	local := m.local[userID] > 0
	m.mu.Unlock()
	if local || m.rdb == nil {
		return local
	}
	n, err := m.rdb.Exists(ctx, lastSeenKey(userID)).Result()
	return err == nil && n > 0
}

// reapOnce removes users whose last-seen key expired, e.g. after another instance crashed.
func (m *ConnectionManager) reapOnce(ctx context.Context) {
	if m.rdb == nil {
		return
	}
	members, err := m.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	if err != nil {
		return
	}
	for _, userID := range members {
		n, err := m.rdb.Exists(ctx, lastSeenKey(userID)).Result()
		if err != nil || n > 0 {
			continue
		}
		_ = m.rdb.SRem(ctx, presenceOnlineSetKey, userID).Err()

		m.mu.Lock()
		hasLocal := m.local[userID] > 0
		m.mu.Unlock()
		if !hasLocal {
			m.emitOffline(userID)
		}
	}
}

func (m *ConnectionManager) reaperLoop() {
	ticker := time.NewTicker(m.cfg.ReaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reapOnce(context.Background())
		}
	}
}

func (m *ConnectionManager) finalizeOffline(ctx context.Context, userID string) {
	m.mu.Lock()
	delete(m.timers, userID)
	if m.local[userID] > 0 {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.rdb != nil {
		if n, err := m.rdb.Exists(ctx, lastSeenKey(userID)).Result(); err == nil && n > 0 {
			// Another instance may still hold a socket; the reaper settles it.
			return
		}
		_ = m.rdb.SRem(ctx, presenceOnlineSetKey, userID).Err()
	}
	m.emitOffline(userID)
}

func (m *ConnectionManager) emitOffline(userID string) {
	m.mu.Lock()
	if !m.announced[userID] {
		m.mu.Unlock()
		return
	}
	delete(m.announced, userID)
	m.mu.Unlock()
	if m.cfg.OnUserOffline != nil {
		m.cfg.OnUserOffline(userID)
	}
}

func lastSeenKey(userID string) string {
	return presenceLastSeenKeyNS + userID
}
