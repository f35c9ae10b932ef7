package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/pkg/totp"
)

// replayTTL outlives the ±1 step acceptance window of a code.
const replayTTL = 3 * totp.Period * time.Second

// ReplayGuard remembers accepted TOTP steps so a code works only once.
// Key format: totp:used:<account_id>:<step>
type ReplayGuard struct {
	client *redis.Client
}

func NewReplayGuard(client *redis.Client) *ReplayGuard {
	return &ReplayGuard{client: client}
}

// MarkUsed claims step for accountID. It reports false when the step was
// already claimed.
func (g *ReplayGuard) MarkUsed(ctx context.Context, accountID string, step uint64) (bool, error) {
	fresh, err := g.client.SetNX(ctx, g.key(accountID, step), "1", replayTTL).Result()
	if err != nil {
		return false, domain.StorageErr("totp replay check", err)
	}
	return fresh, nil
}

func (g *ReplayGuard) key(accountID string, step uint64) string {
	return fmt.Sprintf("totp:used:%s:%d", accountID, step)
}
