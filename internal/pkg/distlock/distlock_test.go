package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPGAdvisoryLock_AcquireReleaseOnOneSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	lock := NewPGAdvisoryLock(db, "queue-scan")

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(lock.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	// The unlock must run on the same session that locked; it is only issued
	// while the acquired connection is still held.
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(lock.lockID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("Acquire() = (%v, %v), want (true, nil)", ok, err)
	}
	if lock.conn == nil {
		t.Fatal("winning the lock must pin the session connection")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if lock.conn != nil {
		t.Error("release must return the pinned connection")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPGAdvisoryLock_ContendedAcquireHoldsNoConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	lock := NewPGAdvisoryLock(db, "queue-scan")

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(lock.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if ok {
		t.Fatal("contended lock must not be acquired")
	}
	if lock.conn != nil {
		t.Error("losing the lock must not pin a connection")
	}

	// Release without ownership is a no-op: no unlock statement expected.
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisLock_MutualExclusion(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	lockA := NewRedisLock(client, "scan", time.Minute)
	lockB := NewRedisLock(client, "scan", time.Minute)

	ok, err := lockA.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = lockB.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire error: %v", err)
	}
	if ok {
		t.Fatal("second holder must not acquire a held lock")
	}

	if err := lockA.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	ok, err = lockB.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire after release = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestRedisLock_ReleaseOnlyByOwner(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	owner := NewRedisLock(client, "scan", time.Minute)
	intruder := NewRedisLock(client, "scan", time.Minute)

	if ok, _ := owner.Acquire(ctx); !ok {
		t.Fatal("owner should acquire")
	}

	// A non-owner release is a no-op; the owner still holds the lock.
	if err := intruder.Release(ctx); err != nil {
		t.Fatalf("intruder release error: %v", err)
	}
	if ok, _ := intruder.Acquire(ctx); ok {
		t.Fatal("lock should still be held by the owner")
	}
}

func TestRedisLock_ExpiresByTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	lockA := NewRedisLock(client, "scan", 50*time.Millisecond)
	lockB := NewRedisLock(client, "scan", 50*time.Millisecond)

	if ok, _ := lockA.Acquire(ctx); !ok {
		t.Fatal("first acquire should succeed")
	}

	mr.FastForward(100 * time.Millisecond)

	if ok, _ := lockB.Acquire(ctx); !ok {
		t.Fatal("lock should be acquirable after TTL expiry")
	}
}
