package telegram

import (
	"sync"
	"time"
)

// Input states for multi-step conversation flows.
const (
	awaitNick      = "await_nick"
	awaitEmail     = "await_email"
	awaitHour      = "await_hour"
	awaitQuiet     = "await_quiet"
	awaitDays      = "await_days"
	awaitBroadcast = "await_broadcast"
)

// session is one pending conversational step for a chat.
type session struct {
	state     string
	expiresAt time.Time
}

// sessionStore keeps per-chat wizard sessions with a TTL, so an
// abandoned flow cannot swallow an unrelated message days later.
type sessionStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[int64]session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, m: make(map[int64]session)}
}

func (s *sessionStore) begin(chatID int64, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = session{state: state, expiresAt: time.Now().Add(s.ttl)}
}

// take returns and clears the chat's pending state, or "" if none is
// active or it expired.
func (s *sessionStore) take(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[chatID]
	if !ok {
		return ""
	}
	delete(s.m, chatID)
	if time.Now().After(sess.expiresAt) {
		return ""
	}
	return sess.state
}

func (s *sessionStore) clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
