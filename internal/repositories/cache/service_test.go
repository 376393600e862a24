package cache

import (
	"context"
	"testing"
	"time"

	"tourneypay/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	s := NewCacheService(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), time.Minute)
	defer s.Close()

	assert.Equal(t, "wallet:user:42", s.GenerateKey("wallet", "user", uint(42)))
	assert.Equal(t, "user:id:7", s.GenerateKey("user", "id", 7))
}

func TestUnreachableRedisReportsError(t *testing.T) {
	s := NewCacheService(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	}), time.Minute)
	defer s.Close()

	ctx := context.Background()
	info, err := s.GetWallet(ctx, 1)
	assert.Error(t, err)
	assert.Nil(t, info)
	assert.Error(t, s.HealthCheck(ctx))
	assert.Error(t, s.CacheWallet(ctx, models.WalletInfo{UserID: 1, Version: 3}))
}
