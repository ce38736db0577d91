package models

import "time"

// Level is one of the two settings of an experimental manipulation
type Level string

const (
	LevelHigh Level = "HIGH"
	LevelLow  Level = "LOW"
)

// Condition is the 2x2 experimental cell a session is assigned to
type Condition struct {
	Adaptivity  Level `json:"adaptivity"`
	Calibration Level `json:"calibration"`
}

// Participant represents a person taking part in the experiment
type Participant struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents one experimental conversation with a fixed condition
type Session struct {
	ID            string     `json:"session_id"`
	ParticipantID string     `json:"participant_id"`
	GroupID       string     `json:"group_id"`
	Adaptivity    Level      `json:"adaptivity"`
	Calibration   Level      `json:"calibration"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

func (s *Session) Condition() Condition {
	return Condition{Adaptivity: s.Adaptivity, Calibration: s.Calibration}
}

// Ended reports whether the session has been closed
func (s *Session) Ended() bool {
	return s.EndedAt != nil
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "ai"
)

// Turn is a single stored message of a session. User turns carry the
// preference signal, assistant turns carry the condition levels and the
// products surfaced to the participant.
type Turn struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	Sender        Sender    `json:"sender"`
	Content       string    `json:"content"`
	TurnIndex     int       `json:"turn_index"`
	CreatedAt     time.Time `json:"created_at"`

	Preference *PreferenceVector `json:"preference_vector,omitempty"`
	Drift      *float64          `json:"preference_drift,omitempty"`
	Focus      string            `json:"focus_dimension,omitempty"`

	Adaptivity          Level            `json:"ai_adaptability_level,omitempty"`
	Calibration         Level            `json:"ai_calibration_level,omitempty"`
	RecommendedProducts []ProductSummary `json:"recommended_products,omitempty"`
}
