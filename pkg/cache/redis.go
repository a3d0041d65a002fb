package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/lms-grading-api/pkg/config"
)

// NewRedis returns the process-wide Redis client. It is created once at startup and
// injected into every consumer.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return client, nil
}

// ActivityKey addresses the cached metadata snapshot of an activity.
func ActivityKey(activityID int64) string {
	return "activity:" + strconv.FormatInt(activityID, 10)
}

// ResultsKey addresses the last computed answer snapshot of a user for an activity.
func ResultsKey(activityID int64, userID string) string {
	return ActivityKey(activityID) + ":user:" + userID + ":results"
}

// SubmissionKey addresses a file or URL submission blob.
func SubmissionKey(activityID int64, userID string) string {
	return ActivityKey(activityID) + ":user:" + userID + ":submission"
}

// URLSubmissionKey addresses a link submission blob.
func URLSubmissionKey(activityID int64, userID string) string {
	return ActivityKey(activityID) + ":user:" + userID + ":urlsubmission"
}
