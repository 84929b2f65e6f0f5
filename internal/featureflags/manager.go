// Package featureflags gates optional features such as the AI endpoints.
package featureflags

import (
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
	"sync"
)

// rule is a parsed flag value. pct is 0..100; on and off are 100 and 0.
type rule struct {
	raw     string
	pct     int
	rollout bool
}

func parseRule(value string) rule {
	r := rule{raw: value}
	switch value {
	case "on", "true", "1":
		r.pct = 100
	case "off", "false", "0":
	default:
		n, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
		if err != nil || !strings.HasSuffix(value, "%") {
			return r
		}
		r.pct = min(max(n, 0), 100)
		r.rollout = r.pct > 0 && r.pct < 100
	}
	return r
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "ai_quiz=on,ai_chatbot=25%,ai_image_search=off"
//
// Values are on/true/1, off/false/0 or N% for a deterministic per-user
// rollout. Anything else reads as off.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]rule
}

// NewManager parses a comma-separated flag list. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]rule)}
	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			continue
		}
		m.flags[key] = parseRule(value)
	}
	return m
}

// Enabled reports whether name is on for userID. A partial rollout is off
// for an empty userID.
func (m *Manager) Enabled(name string, userID string) bool {
	if m == nil {
		return false
	}
	name = normalize(name)

	m.mu.RLock()
	r, ok := m.flags[name]
	m.mu.RUnlock()

	switch {
	case !ok:
		return false
	case !r.rollout:
		return r.pct == 100
	case userID == "":
		return false
	default:
		return rolloutBucket(name, userID) < r.pct
	}
}

// Set overrides a single flag value at runtime.
func (m *Manager) Set(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[normalize(name)] = parseRule(normalize(value))
}

// Raw returns the configured values as written.
func (m *Manager) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.flags))
	for k, r := range m.flags {
		out[k] = r.raw
	}
	return out
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID string) map[string]bool {
	m.mu.RLock()
	names := maps.Clone(m.flags)
	m.mu.RUnlock()

	out := make(map[string]bool, len(names))
	for name := range names {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + userID))
	return int(h.Sum32() % 100)
}
