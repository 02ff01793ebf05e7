package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/havenwell/notify-engine/internal/domain"
)

// CampaignStore owns campaigns, their step sequences, and enrollments.
type CampaignStore struct {
	db *sql.DB
}

func NewCampaignStore(db *sql.DB) *CampaignStore {
	return &CampaignStore{db: db}
}

// GetCampaign loads a campaign with its ordered step sequence.
func (s *CampaignStore) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	var c domain.Campaign
	var audienceJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, campaign_type, target_audience, status, started_at, completed_at, created_at
		FROM notify_campaigns WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.CampaignType, &audienceJSON, &c.Status,
		&c.StartedAt, &c.CompletedAt, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	json.Unmarshal(audienceJSON, &c.TargetAudience)

	steps, err := s.listSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Steps = steps
	return &c, nil
}

func (s *CampaignStore) listSteps(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignStep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, campaign_id, step_order, title, message, delay_hours, delivery_methods
		FROM notify_campaign_steps WHERE campaign_id = $1
		ORDER BY step_order ASC`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.CampaignStep
	for rows.Next() {
		var st domain.CampaignStep
		var methods pq.StringArray
		if err := rows.Scan(&st.ID, &st.CampaignID, &st.StepOrder, &st.Title,
			&st.Message, &st.DelayHours, &methods); err != nil {
			continue
		}
		st.DeliveryMethods = make([]domain.Channel, len(methods))
		for i, m := range methods {
			st.DeliveryMethods[i] = domain.Channel(m)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// SetStatus transitions a campaign's lifecycle state, stamping started_at or
// completed_at as appropriate.
func (s *CampaignStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	var err error
	switch status {
	case domain.CampaignRunning:
		_, err = s.db.ExecContext(ctx,
			`UPDATE notify_campaigns SET status = $2, started_at = COALESCE(started_at, NOW()) WHERE id = $1`,
			id, status)
	case domain.CampaignCompleted:
		_, err = s.db.ExecContext(ctx,
			`UPDATE notify_campaigns SET status = $2, completed_at = NOW() WHERE id = $1`,
			id, status)
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE notify_campaigns SET status = $2 WHERE id = $1`, id, status)
	}
	return err
}

// CreateEnrollment inserts an enrollment for a (campaign, user) pair. The
// unique constraint makes double enrollment a no-op; the bool reports whether
// a row was actually inserted so callers can tell a fresh enrollment from a
// conflict.
func (s *CampaignStore) CreateEnrollment(ctx context.Context, e *domain.CampaignEnrollment) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_campaign_enrollments
			(id, campaign_id, user_id, current_step, completion_status, enrolled_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (campaign_id, user_id) DO NOTHING`,
		e.ID, e.CampaignID, e.UserID, e.CurrentStep, e.CompletionStatus)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// GetEnrollment loads the enrollment for a (campaign, user) pair.
func (s *CampaignStore) GetEnrollment(ctx context.Context, campaignID, userID uuid.UUID) (*domain.CampaignEnrollment, error) {
	var e domain.CampaignEnrollment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, campaign_id, user_id, current_step, completion_status, enrolled_at, completed_at
		FROM notify_campaign_enrollments
		WHERE campaign_id = $1 AND user_id = $2`, campaignID, userID,
	).Scan(&e.ID, &e.CampaignID, &e.UserID, &e.CurrentStep, &e.CompletionStatus,
		&e.EnrolledAt, &e.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// AdvanceEnrollment bumps current_step from the expected value. The guard on
// the old step makes concurrent advancement for the same pair a no-op for the
// loser; current_step can only increase.
func (s *CampaignStore) AdvanceEnrollment(ctx context.Context, campaignID, userID uuid.UUID, fromStep int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notify_campaign_enrollments
		SET current_step = current_step + 1
		WHERE campaign_id = $1 AND user_id = $2
		  AND current_step = $3 AND completion_status = 'active'`,
		campaignID, userID, fromStep)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// FinishEnrollment moves an active enrollment to a terminal state.
func (s *CampaignStore) FinishEnrollment(ctx context.Context, campaignID, userID uuid.UUID, status domain.EnrollmentStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notify_campaign_enrollments
		SET completion_status = $3, completed_at = NOW()
		WHERE campaign_id = $1 AND user_id = $2 AND completion_status = 'active'`,
		campaignID, userID, status)
	return err
}

// CountActiveEnrollments returns the number of enrollments still active for
// a campaign.
func (s *CampaignStore) CountActiveEnrollments(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notify_campaign_enrollments
		WHERE campaign_id = $1 AND completion_status = 'active'`, campaignID).Scan(&n)
	return n, err
}

// Metrics computes the on-demand campaign report straight from the
// enrollment table.
func (s *CampaignStore) Metrics(ctx context.Context, campaignID uuid.UUID) (*domain.CampaignMetrics, error) {
	m := &domain.CampaignMetrics{CampaignID: campaignID}
	var avgHours sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE completion_status = 'completed'),
		        COUNT(*) FILTER (WHERE completion_status = 'opted_out'),
		        COUNT(*) FILTER (WHERE completion_status = 'failed'),
		        AVG(EXTRACT(EPOCH FROM (completed_at - enrolled_at)) / 3600.0)
		          FILTER (WHERE completion_status = 'completed')
		FROM notify_campaign_enrollments WHERE campaign_id = $1`, campaignID,
	).Scan(&m.TotalEnrolled, &m.Completed, &m.OptedOut, &m.Failed, &avgHours)
	if err != nil {
		return nil, err
	}
	if m.TotalEnrolled > 0 {
		m.CompletionRate = float64(m.Completed) / float64(m.TotalEnrolled)
		m.OptOutRate = float64(m.OptedOut) / float64(m.TotalEnrolled)
	}
	if avgHours.Valid {
		m.AverageCompletionTimeHours = avgHours.Float64
	}
	return m, nil
}
