package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/havenwell/notify-engine/internal/domain"
)

func TestQueueStore_Claim(t *testing.T) {
	t.Run("pending job is claimed", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		id := uuid.New()
		mock.ExpectExec("UPDATE notify_queue").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := NewQueueStore(db).Claim(context.Background(), id)
		if err != nil {
			t.Fatalf("Claim() error: %v", err)
		}
		if !claimed {
			t.Error("pending job should be claimed")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("already-claimed job is not claimed again", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		id := uuid.New()
		mock.ExpectExec("UPDATE notify_queue").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := NewQueueStore(db).Claim(context.Background(), id)
		if err != nil {
			t.Fatalf("Claim() error: %v", err)
		}
		if claimed {
			t.Error("second claim must lose")
		}
	})
}

func TestQueueStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	userID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "template_id", "type", "title", "message", "priority",
		"delivery_methods", "data", "scheduled_for", "status", "retry_count", "created_at",
	}).AddRow(id, userID, nil, "milestone_achieved", "Milestone", "You did it",
		"medium", pq.StringArray{"in_app", "email"}, []byte(`{"days":7}`), now, "pending", 0, now)

	mock.ExpectQuery("SELECT (.+) FROM notify_queue WHERE id").
		WithArgs(id).
		WillReturnRows(rows)

	job, err := NewQueueStore(db).Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if job.ID != id || job.UserID != userID {
		t.Error("job ids should round-trip")
	}
	if len(job.DeliveryMethods) != 2 || job.DeliveryMethods[0] != domain.ChannelInApp {
		t.Errorf("delivery methods = %v", job.DeliveryMethods)
	}
	if job.Data["days"] != float64(7) {
		t.Errorf("data = %v", job.Data)
	}
}

func TestQueueStore_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM notify_queue WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewQueueStore(db).Get(context.Background(), id)
	if err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestQueueStore_Requeue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	next := time.Now().Add(2 * time.Minute)
	mock.ExpectExec("UPDATE notify_queue").
		WithArgs(id, next).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewQueueStore(db).Requeue(context.Background(), id, next); err != nil {
		t.Fatalf("Requeue() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestQueueStore_FailExhausted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE notify_queue").
		WithArgs(domain.MaxRetries).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewQueueStore(db).FailExhausted(context.Background(), domain.MaxRetries)
	if err != nil {
		t.Fatalf("FailExhausted() error: %v", err)
	}
	if n != 3 {
		t.Errorf("failed count = %d, want 3", n)
	}
}
