package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

type MemoryStorage struct {
	mu           sync.RWMutex
	participants map[string]*models.Participant
	sessions     map[string]*models.Session
	turns        map[string][]*models.Turn
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		participants: make(map[string]*models.Participant),
		sessions:     make(map[string]*models.Session),
		turns:        make(map[string][]*models.Turn),
	}
}

// Participant methods
func (s *MemoryStorage) SaveParticipant(ctx context.Context, participant *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = time.Now()
	}
	p := *participant
	s.participants[p.ID] = &p
	return nil
}

func (s *MemoryStorage) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, exists := s.participants[id]; exists {
		out := *p
		return &out, nil
	}
	return nil, ErrNotFound
}

// Session methods
func (s *MemoryStorage) CreateSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	sess := *session
	s.sessions[sess.ID] = &sess
	return nil
}

func (s *MemoryStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, exists := s.sessions[id]; exists {
		out := *sess
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) EndSession(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return ErrNotFound
	}
	if sess.EndedAt == nil {
		sess.EndedAt = &at
	}
	return nil
}

// Turn methods
func (s *MemoryStorage) SaveTurn(ctx context.Context, turn *models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	t := *turn
	s.turns[t.SessionID] = append(s.turns[t.SessionID], &t)
	return nil
}

func (s *MemoryStorage) CountTurns(ctx context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.turns[sessionID]), nil
}

func (s *MemoryStorage) LastTurn(ctx context.Context, sessionID string, sender models.Sender) (*models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Sender == sender {
			out := *turns[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) ListTurns(ctx context.Context, sessionID string) ([]*models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]*models.Turn, 0, len(s.turns[sessionID]))
	for _, t := range s.turns[sessionID] {
		out := *t
		turns = append(turns, &out)
	}
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].TurnIndex < turns[j].TurnIndex
	})
	return turns, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
