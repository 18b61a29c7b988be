package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"prospecting_backend/internal/workflows/service"
	"prospecting_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLock(t *testing.T) (*RunLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRunLockWithClient(client, logger.Discard()), mr
}

func TestRunLockIsExclusive(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "workflow-run:a", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := lock.Acquire(ctx, "workflow-run:a", time.Minute); !errors.Is(err, service.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if other, err := lock.Acquire(ctx, "workflow-run:b", time.Minute); err != nil {
		t.Fatalf("other key must be free: %v", err)
	} else {
		other()
	}

	release()
	again, err := lock.Acquire(ctx, "workflow-run:a", time.Minute)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestRunLockExpires(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	if _, err := lock.Acquire(ctx, "workflow-run:a", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	release, err := lock.Acquire(ctx, "workflow-run:a", time.Minute)
	if err != nil {
		t.Fatalf("expected expired lock to be free: %v", err)
	}
	release()
}

func TestRunLockReleaseKeepsForeignLock(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	stale, err := lock.Acquire(ctx, "workflow-run:a", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := lock.Acquire(ctx, "workflow-run:a", time.Minute); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	stale()
	if !mr.Exists(runLockPrefix + "workflow-run:a") {
		t.Fatal("a stale release must not delete the current holder's lock")
	}
}

func TestRunLockReleaseSurvivesCancelledContext(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx, cancel := context.WithCancel(context.Background())

	release, err := lock.Acquire(ctx, "workflow-run:a", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	cancel()
	release()

	if mr.Exists(runLockPrefix + "workflow-run:a") {
		t.Fatal("expected lock released")
	}
}
