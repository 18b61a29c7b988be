package scheduler

import (
	"context"
	"fmt"
	"time"

	"prospecting_backend/internal/workflows/service"
	"prospecting_backend/platform/config"
	"prospecting_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	runLockPrefix  = "prospecting:lock:"
	releaseTimeout = 5 * time.Second
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a redis lock keeping two runs of one workflow apart, across
// API and worker processes.
type RunLock struct {
	client redis.UniversalClient
	log    *logger.Logger
}

func NewRunLock(cfg config.SchedulerConfig, log *logger.Logger) (*RunLock, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := parseRedisURL(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RunLock{client: client, log: log}, nil
}

// NewRunLockWithClient wraps an existing client.
func NewRunLockWithClient(client redis.UniversalClient, log *logger.Logger) *RunLock {
	return &RunLock{client: client, log: log}
}

// Acquire takes the lock for ttl. It returns service.ErrRunInProgress when
// someone else holds it.
func (l *RunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	redisKey := runLockPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, service.ErrRunInProgress
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("release run lock failed", "key", redisKey, "error", err)
		}
	}, nil
}

func (l *RunLock) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
