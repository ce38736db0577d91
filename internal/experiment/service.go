package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/internal/models"
	"github.com/xaenox/shopbot-experiment/internal/preference"
	"github.com/xaenox/shopbot-experiment/internal/storage"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSessionEnded = errors.New("session has ended")
)

// TurnResult is the outcome of one participant message
type TurnResult struct {
	TurnIndex int                     `json:"turn_index"`
	Vector    models.PreferenceVector `json:"preference_vector"`
	Focus     preference.Focus        `json:"focus"`
	Drift     float64                 `json:"drift"`
	*Response
}

// Service records sessions and turns around the Orchestrator. Turns of the
// same session are handled one at a time, in arrival order; turns of
// different sessions run concurrently.
type Service struct {
	store        storage.Storage
	analyzer     *preference.Analyzer
	orchestrator *Orchestrator
	assigner     Assigner
	logger       *zap.Logger
	now          func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is dropped from the map once nobody holds or waits on it
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(store storage.Storage, analyzer *preference.Analyzer, orchestrator *Orchestrator, assigner Assigner, logger *zap.Logger) *Service {
	return &Service{
		store:        store,
		analyzer:     analyzer,
		orchestrator: orchestrator,
		assigner:     assigner,
		logger:       logger,
		now:          time.Now,
		locks:        make(map[string]*sessionLock),
	}
}

// StartSession assigns a group and opens a new session. An empty
// participantID creates a new participant.
func (s *Service) StartSession(ctx context.Context, participantID string) (*models.Session, error) {
	groupID := s.assigner.Assign()
	cond, err := ConditionFor(groupID)
	if err != nil {
		return nil, err
	}

	if participantID == "" {
		participantID = uuid.New().String()
	}
	participant := &models.Participant{ID: participantID, GroupID: groupID}
	if err := s.store.SaveParticipant(ctx, participant); err != nil {
		return nil, fmt.Errorf("failed to save participant: %w", err)
	}

	session := &models.Session{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		GroupID:       groupID,
		Adaptivity:    cond.Adaptivity,
		Calibration:   cond.Calibration,
		StartedAt:     s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Started session",
		zap.String("session_id", session.ID),
		zap.String("participant_id", participantID),
		zap.String("group_id", groupID))
	return session, nil
}

// HandleMessage scores the message, stores the user turn, asks the
// assistant for a reply and stores the assistant turn.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, ErrSessionEnded
	}

	count, err := s.store.CountTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turnIndex := count/2 + 1

	vector := s.analyzer.ComputeVector(text)
	focus := s.analyzer.IdentifyFocus(text)

	var drift float64
	lastUser, err := s.store.LastTurn(ctx, sessionID, models.SenderUser)
	if err != nil {
		return nil, err
	}
	if lastUser != nil {
		drift = preference.Drift(&vector, lastUser.Preference)
	}

	userTurn := &models.Turn{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		ParticipantID: session.ParticipantID,
		Sender:        models.SenderUser,
		Content:       text,
		TurnIndex:     turnIndex,
		CreatedAt:     s.now(),
		Preference:    &vector,
		Drift:         &drift,
		Focus:         string(focus),
	}
	if err := s.store.SaveTurn(ctx, userTurn); err != nil {
		return nil, fmt.Errorf("failed to save user turn: %w", err)
	}

	var history []models.ProductSummary
	lastAssistant, err := s.store.LastTurn(ctx, sessionID, models.SenderAssistant)
	if err != nil {
		// Missing history only weakens continuity
		s.logger.Warn("Failed to load previous recommendations",
			zap.Error(err),
			zap.String("session_id", sessionID))
	} else if lastAssistant != nil {
		history = lastAssistant.RecommendedProducts
	}

	cond := session.Condition()
	resp, err := s.orchestrator.Respond(ctx, text, cond, history)
	if err != nil {
		return nil, err
	}

	assistantTurn := &models.Turn{
		ID:                  uuid.New().String(),
		SessionID:           sessionID,
		ParticipantID:       session.ParticipantID,
		Sender:              models.SenderAssistant,
		Content:             resp.Reply,
		TurnIndex:           turnIndex,
		CreatedAt:           s.now(),
		Adaptivity:          cond.Adaptivity,
		Calibration:         cond.Calibration,
		RecommendedProducts: resp.Products,
	}
	if err := s.store.SaveTurn(ctx, assistantTurn); err != nil {
		return nil, fmt.Errorf("failed to save assistant turn: %w", err)
	}

	s.logger.Info("Handled turn",
		zap.String("session_id", sessionID),
		zap.Int("turn_index", turnIndex),
		zap.String("focus", string(focus)),
		zap.Float64("drift", drift),
		zap.String("tier", string(resp.Tier)),
		zap.Int("products", len(resp.Products)))

	return &TurnResult{
		TurnIndex: turnIndex,
		Vector:    vector,
		Focus:     focus,
		Drift:     drift,
		Response:  resp,
	}, nil
}

// EndSession marks the session finished. Ending twice keeps the first time.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.store.EndSession(ctx, sessionID, s.now()); err != nil {
		return err
	}

	s.logger.Info("Ended session", zap.String("session_id", sessionID))
	return nil
}

func (s *Service) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

func (s *Service) History(ctx context.Context, sessionID string) ([]*models.Turn, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListTurns(ctx, sessionID)
}

// LatestProducts returns the products surfaced by the most recent assistant turn
func (s *Service) LatestProducts(ctx context.Context, sessionID string) ([]models.ProductSummary, error) {
	turn, err := s.store.LastTurn(ctx, sessionID, models.SenderAssistant)
	if err != nil || turn == nil {
		return nil, err
	}
	return turn.RecommendedProducts, nil
}

func (s *Service) lockSession(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}
