package state

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// StateManager persists feed-job progress so an interrupted export
// resumes where it stopped, and tracks the consecutive-failure count
// the driver uses to abort a hopeless run early.
type StateManager interface {
	GetLastExportedPage(ctx context.Context, jobID string) (int, error)
	SetLastExportedPage(ctx context.Context, jobID string, page int) error
	ClearProgress(ctx context.Context, jobID string) error
	IncrConsecutiveFailures(ctx context.Context, jobID string) (int, error)
	ResetConsecutiveFailures(ctx context.Context, jobID string) error
}

type redisStateManager struct {
	redisClient *redis.Client
	pagePrefix  string
	failPrefix  string
}

func NewRedisStateManager(redisClient *redis.Client) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		pagePrefix:  "ugc:progress:page:",
		failPrefix:  "ugc:progress:failures:",
	}
}

func (s *redisStateManager) GetLastExportedPage(ctx context.Context, jobID string) (int, error) {
	val, err := s.redisClient.Get(ctx, s.pagePrefix+jobID).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // No progress saved yet
		}
		return 0, fmt.Errorf("failed to get last exported page for job %s: %w", jobID, err)
	}

	page, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse page number for job %s: %w", jobID, err)
	}

	return page, nil
}

func (s *redisStateManager) SetLastExportedPage(ctx context.Context, jobID string, page int) error {
	if err := s.redisClient.Set(ctx, s.pagePrefix+jobID, page, 0).Err(); err != nil {
		return fmt.Errorf("failed to set last exported page for job %s: %w", jobID, err)
	}
	return nil
}

func (s *redisStateManager) ClearProgress(ctx context.Context, jobID string) error {
	if err := s.redisClient.Del(ctx, s.pagePrefix+jobID, s.failPrefix+jobID).Err(); err != nil {
		return fmt.Errorf("failed to clear progress for job %s: %w", jobID, err)
	}
	return nil
}

func (s *redisStateManager) IncrConsecutiveFailures(ctx context.Context, jobID string) (int, error) {
	count, err := s.redisClient.Incr(ctx, s.failPrefix+jobID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count failure for job %s: %w", jobID, err)
	}
	return int(count), nil
}

func (s *redisStateManager) ResetConsecutiveFailures(ctx context.Context, jobID string) error {
	if err := s.redisClient.Del(ctx, s.failPrefix+jobID).Err(); err != nil {
		return fmt.Errorf("failed to reset failure count for job %s: %w", jobID, err)
	}
	return nil
}
