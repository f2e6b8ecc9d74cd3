package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceTracker marks participants online with an expiring key per team:
// SET contest:presence:{participantID} {unix seconds} EX ttl
// so liveness is shared across every instance behind the load balancer.
type PresenceTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresenceTracker(client *redis.Client, ttl time.Duration) *PresenceTracker {
	return &PresenceTracker{client: client, ttl: ttl}
}

func (p *PresenceTracker) Touch(ctx context.Context, participantID string) error {
	return p.client.Set(ctx, presenceKey(participantID), strconv.FormatInt(time.Now().Unix(), 10), p.ttl).Err()
}

func (p *PresenceTracker) Online(ctx context.Context, participantIDs []string) (map[string]bool, error) {
	online := make(map[string]bool, len(participantIDs))
	if len(participantIDs) == 0 {
		return online, nil
	}
	keys := make([]string, len(participantIDs))
	for i, id := range participantIDs {
		keys[i] = presenceKey(id)
	}
	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v != nil {
			online[participantIDs[i]] = true
		}
	}
	return online, nil
}

func (p *PresenceTracker) Forget(ctx context.Context, participantID string) error {
	return p.client.Del(ctx, presenceKey(participantID)).Err()
}

func presenceKey(participantID string) string {
	return "contest:presence:" + participantID
}
