package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/errors"
	"gutpulse-engine/pkg/scoring"
)

// Session is one stored recording session.
type Session struct {
	ID                       string
	PatientID                string
	CreatedAt                time.Time
	DurationSeconds          float64
	InterventionKind         scoring.InterventionKind
	InterventionStartSeconds sql.NullFloat64
	Analytics                *scoring.SessionAnalytics
}

// Repository provides session persistence and history reads. It
// implements scoring.SessionStore.
type Repository struct {
	db     *MySQLDatabase
	logger *logrus.Logger
}

// NewRepository creates a new repository
func NewRepository(db *MySQLDatabase, logger *logrus.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// SaveSession persists a session record with its analytics.
func (r *Repository) SaveSession(session *Session) error {
	ctx, cancel := r.db.getContext()
	defer cancel()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	var analyticsJSON []byte
	if session.Analytics != nil {
		var err error
		analyticsJSON, err = json.Marshal(session.Analytics)
		if err != nil {
			return fmt.Errorf("failed to encode analytics: %w", err)
		}
	}

	query := `
		INSERT INTO sessions (
			id, patient_id, created_at, duration_seconds,
			intervention_kind, intervention_start_seconds, analytics
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.db.ExecContext(ctx, query,
		session.ID, session.PatientID, session.CreatedAt, session.DurationSeconds,
		int(session.InterventionKind), session.InterventionStartSeconds, analyticsJSON,
	)
	if err != nil {
		r.logger.WithError(err).WithField("session_id", session.ID).Error("Failed to save session")
		return errors.Wrap(err, "saving session")
	}

	r.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"patient_id": session.PatientID,
	}).Debug("Session saved")
	return nil
}

// SessionsWithAnalytics returns the patient's sessions that carry
// analytics, newest first. Read failures are returned to the caller;
// an error here must never be treated as an empty history.
func (r *Repository) SessionsWithAnalytics(patientID string) ([]scoring.SessionRecord, error) {
	ctx, cancel := r.db.getContext()
	defer cancel()

	query := `
		SELECT created_at, analytics
		FROM sessions
		WHERE patient_id = ? AND analytics IS NOT NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSessionStoreUnavailable, err.Error(),
			map[string]interface{}{"patient_id": patientID})
	}
	defer rows.Close()

	var records []scoring.SessionRecord
	for rows.Next() {
		var createdAt time.Time
		var analyticsJSON []byte
		if err := rows.Scan(&createdAt, &analyticsJSON); err != nil {
			return nil, errors.Wrap(err, "scanning session row")
		}

		var analytics scoring.SessionAnalytics
		if err := json.Unmarshal(analyticsJSON, &analytics); err != nil {
			return nil, errors.Wrap(err, "decoding session analytics",
				map[string]interface{}{"patient_id": patientID})
		}

		records = append(records, scoring.SessionRecord{
			CreatedAt: createdAt,
			Analytics: &analytics,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrSessionStoreUnavailable, err.Error())
	}

	return records, nil
}
