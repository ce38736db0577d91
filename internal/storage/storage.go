package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

var ErrNotFound = errors.New("not found")

type Storage interface {
	SaveParticipant(ctx context.Context, participant *models.Participant) error
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
	Close() error

	SessionStorage
	TurnStorage
}

type SessionStorage interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	EndSession(ctx context.Context, id string, at time.Time) error
}

type TurnStorage interface {
	SaveTurn(ctx context.Context, turn *models.Turn) error
	CountTurns(ctx context.Context, sessionID string) (int, error)
	// LastTurn returns the most recent turn from sender, or nil if there is none
	LastTurn(ctx context.Context, sessionID string, sender models.Sender) (*models.Turn, error)
	ListTurns(ctx context.Context, sessionID string) ([]*models.Turn, error)
}
