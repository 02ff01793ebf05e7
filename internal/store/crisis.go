package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

// CrisisStore persists escalation records and reads emergency contacts.
// Escalations are compliance records: rows are created, flagged, and
// resolved, never deleted.
type CrisisStore struct {
	db *sql.DB
}

func NewCrisisStore(db *sql.DB) *CrisisStore {
	return &CrisisStore{db: db}
}

// CreateEscalation inserts a new escalation record.
func (s *CrisisStore) CreateEscalation(ctx context.Context, e *domain.CrisisEscalation) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	dataJSON, _ := json.Marshal(e.EscalationData)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_crisis_escalations
			(id, user_id, trigger_notification_id, escalation_level, escalation_data,
			 professional_notified, emergency_contacts_notified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		e.ID, e.UserID, e.TriggerNotificationID, e.EscalationLevel, dataJSON,
		e.ProfessionalNotified, e.EmergencyContactsNotified)
	return err
}

// SetNotifiedFlags records which fan-outs have fired for an escalation.
func (s *CrisisStore) SetNotifiedFlags(ctx context.Context, id uuid.UUID, professional, emergencyContacts bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notify_crisis_escalations
		SET professional_notified = $2, emergency_contacts_notified = $3
		WHERE id = $1`, id, professional, emergencyContacts)
	return err
}

// Resolve stamps resolved_at on an open escalation. Returns ErrNotFound for
// unknown or already-resolved ids.
func (s *CrisisStore) Resolve(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notify_crisis_escalations SET resolved_at = NOW()
		WHERE id = $1 AND resolved_at IS NULL`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveEmergencyContacts returns a user's active emergency contacts that
// have an email address.
func (s *CrisisStore) ActiveEmergencyContacts(ctx context.Context, userID uuid.UUID) ([]domain.EmergencyContact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, email, is_active
		FROM notify_emergency_contacts
		WHERE user_id = $1 AND is_active = TRUE AND email <> ''`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.EmergencyContact
	for rows.Next() {
		var c domain.EmergencyContact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.IsActive); err != nil {
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
