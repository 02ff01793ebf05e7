package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/domain"
)

func TestCampaignStore_CreateEnrollment(t *testing.T) {
	t.Run("fresh pair inserts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		e := &domain.CampaignEnrollment{
			CampaignID:       uuid.New(),
			UserID:           uuid.New(),
			CompletionStatus: domain.EnrollmentActive,
		}
		mock.ExpectExec("INSERT INTO notify_campaign_enrollments").
			WillReturnResult(sqlmock.NewResult(0, 1))

		created, err := NewCampaignStore(db).CreateEnrollment(context.Background(), e)
		if err != nil {
			t.Fatalf("CreateEnrollment() error: %v", err)
		}
		if !created {
			t.Error("fresh enrollment should report created")
		}
	})

	t.Run("conflicting pair reports not created", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		e := &domain.CampaignEnrollment{
			CampaignID:       uuid.New(),
			UserID:           uuid.New(),
			CompletionStatus: domain.EnrollmentActive,
		}
		mock.ExpectExec("INSERT INTO notify_campaign_enrollments").
			WillReturnResult(sqlmock.NewResult(0, 0))

		created, err := NewCampaignStore(db).CreateEnrollment(context.Background(), e)
		if err != nil {
			t.Fatalf("CreateEnrollment() error: %v", err)
		}
		if created {
			t.Error("conflicting enrollment must not report created")
		}
	})
}

func TestCampaignStore_AdvanceEnrollment(t *testing.T) {
	t.Run("active enrollment at expected step advances", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		campaignID, userID := uuid.New(), uuid.New()
		mock.ExpectExec("UPDATE notify_campaign_enrollments").
			WithArgs(campaignID, userID, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		advanced, err := NewCampaignStore(db).AdvanceEnrollment(context.Background(), campaignID, userID, 2)
		if err != nil {
			t.Fatalf("AdvanceEnrollment() error: %v", err)
		}
		if !advanced {
			t.Error("matching step should advance")
		}
	})

	t.Run("stale step guard loses", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		campaignID, userID := uuid.New(), uuid.New()
		mock.ExpectExec("UPDATE notify_campaign_enrollments").
			WithArgs(campaignID, userID, 0).
			WillReturnResult(sqlmock.NewResult(0, 0))

		advanced, err := NewCampaignStore(db).AdvanceEnrollment(context.Background(), campaignID, userID, 0)
		if err != nil {
			t.Fatalf("AdvanceEnrollment() error: %v", err)
		}
		if advanced {
			t.Error("stale step must not advance")
		}
	})
}

func TestInAppStore_MarkReadNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	userID, id := uuid.New(), uuid.New()
	mock.ExpectExec("UPDATE notify_inapp").
		WithArgs(id, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewInAppStore(db).MarkRead(context.Background(), userID, id)
	if err != ErrNotFound {
		t.Errorf("MarkRead() error = %v, want ErrNotFound", err)
	}
}
