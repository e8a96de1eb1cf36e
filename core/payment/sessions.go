package payment

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/karo/core"
)

const defaultSessionTTL = 15 * time.Minute

var ErrSessionNotFound = core.NewNotFoundError("scan session not found")

// Sessions holds the open scan sessions. A session belongs to the staff member who
// opened it and expires after a period without activity.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*ScanSession
	ttl      time.Duration
}

func NewSessions(conf *core.Config) *Sessions {
	ttl := conf.Scan.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Sessions{
		sessions: make(map[string]*ScanSession),
		ttl:      ttl,
	}
}

// Open creates a scanning session for the staff member.
func (s *Sessions) Open(staffID string) *ScanSession {
	sess := NewScanSession(staffID)
	sess.Start()

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session if it exists, has not expired and belongs to staffID.
func (s *Sessions) Get(id, staffID string) (*ScanSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.StaffID() != staffID || s.expired(sess, NowFunc()) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Sessions) Close(id, staffID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.StaffID() != staffID {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune drops expired sessions and returns how many were dropped.
func (s *Sessions) Prune() int {
	now := NowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Run prunes expired sessions periodically until ctx is done.
func (s *Sessions) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

func (s *Sessions) expired(sess *ScanSession, now time.Time) bool {
	return now.UnixNano()-sess.touchedAt() > int64(s.ttl)
}
