package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))
	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err = s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) SaveParticipant(ctx context.Context, participant *models.Participant) error {
	query := `
		INSERT INTO participants (id, group_id)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET group_id = EXCLUDED.group_id
		RETURNING created_at`

	err := s.db.QueryRowContext(ctx, query, participant.ID, participant.GroupID).Scan(&participant.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving participant: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	query := `SELECT id, group_id, created_at FROM participants WHERE id = $1`

	p := &models.Participant{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.GroupID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStorage) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO experiment_sessions (id, participant_id, group_id, assigned_adaptivity, assigned_calibration)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING started_at`

	err := s.db.QueryRowContext(ctx, query,
		session.ID,
		session.ParticipantID,
		session.GroupID,
		session.Adaptivity,
		session.Calibration,
	).Scan(&session.StartedAt)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, participant_id, group_id, assigned_adaptivity, assigned_calibration, started_at, ended_at
		FROM experiment_sessions
		WHERE id = $1`

	sess := &models.Session{}
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&sess.ParticipantID,
		&sess.GroupID,
		&sess.Adaptivity,
		&sess.Calibration,
		&sess.StartedAt,
		&endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return sess, nil
}

func (s *PostgresStorage) EndSession(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE experiment_sessions
		SET ended_at = COALESCE(ended_at, $1)
		WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("error ending session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) SaveTurn(ctx context.Context, turn *models.Turn) error {
	vector, err := marshalNullable(turn.Preference)
	if err != nil {
		return fmt.Errorf("error encoding preference vector: %w", err)
	}
	var products sql.NullString
	if turn.RecommendedProducts != nil {
		encoded, err := json.Marshal(turn.RecommendedProducts)
		if err != nil {
			return fmt.Errorf("error encoding recommended products: %w", err)
		}
		products = sql.NullString{String: string(encoded), Valid: true}
	}

	query := `
		INSERT INTO interaction_turns (
			id, session_id, participant_id, sender, content, turn_index,
			preference_vector, preference_drift, focus_dimension,
			ai_adaptability_level, ai_calibration_level, recommended_products)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	err = s.db.QueryRowContext(ctx, query,
		turn.ID,
		turn.SessionID,
		turn.ParticipantID,
		turn.Sender,
		turn.Content,
		turn.TurnIndex,
		vector,
		turn.Drift,
		nullString(turn.Focus),
		nullString(string(turn.Adaptivity)),
		nullString(string(turn.Calibration)),
		products,
	).Scan(&turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving turn: %w", err)
	}
	return nil
}

func (s *PostgresStorage) CountTurns(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interaction_turns WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting turns: %w", err)
	}
	return n, nil
}

const turnColumns = `
	id, session_id, participant_id, sender, content, turn_index,
	preference_vector, preference_drift, focus_dimension,
	ai_adaptability_level, ai_calibration_level, recommended_products, created_at`

func (s *PostgresStorage) LastTurn(ctx context.Context, sessionID string, sender models.Sender) (*models.Turn, error) {
	query := `SELECT ` + turnColumns + `
		FROM interaction_turns
		WHERE session_id = $1 AND sender = $2
		ORDER BY turn_index DESC, seq DESC
		LIMIT 1`

	turn, err := s.scanTurn(s.db.QueryRowContext(ctx, query, sessionID, sender))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying last turn: %w", err)
	}
	return turn, nil
}

func (s *PostgresStorage) ListTurns(ctx context.Context, sessionID string) ([]*models.Turn, error) {
	query := `SELECT ` + turnColumns + `
		FROM interaction_turns
		WHERE session_id = $1
		ORDER BY turn_index, seq`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying turns: %w", err)
	}
	defer rows.Close()

	var turns []*models.Turn
	for rows.Next() {
		turn, err := s.scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStorage) scanTurn(row rowScanner) (*models.Turn, error) {
	turn := &models.Turn{}
	var (
		vector, products         []byte
		drift                    sql.NullFloat64
		focus, adapt, calibrated sql.NullString
	)
	err := row.Scan(
		&turn.ID,
		&turn.SessionID,
		&turn.ParticipantID,
		&turn.Sender,
		&turn.Content,
		&turn.TurnIndex,
		&vector,
		&drift,
		&focus,
		&adapt,
		&calibrated,
		&products,
		&turn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	// A stored value that no longer decodes is treated as absent
	if len(vector) > 0 {
		var v models.PreferenceVector
		if err := json.Unmarshal(vector, &v); err != nil {
			s.logger.Warn("Discarding malformed preference vector",
				zap.Error(err),
				zap.String("turn_id", turn.ID))
		} else {
			turn.Preference = &v
		}
	}
	if len(products) > 0 {
		if err := json.Unmarshal(products, &turn.RecommendedProducts); err != nil {
			s.logger.Warn("Discarding malformed recommended products",
				zap.Error(err),
				zap.String("turn_id", turn.ID))
			turn.RecommendedProducts = nil
		}
	}
	if drift.Valid {
		turn.Drift = &drift.Float64
	}
	turn.Focus = focus.String
	turn.Adaptivity = models.Level(adapt.String)
	turn.Calibration = models.Level(calibrated.String)
	return turn, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// marshalNullable encodes v for a JSONB column; JSON goes over the wire as
// text since lib/pq sends []byte as bytea.
func marshalNullable(v *models.PreferenceVector) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(encoded), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
