// Package cache keeps short-lived JSON snapshots in Redis. The ledger store
// stays authoritative; callers treat every cache error as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tourneypay/internal/models"

	"github.com/redis/go-redis/v9"
)

// storeNewer writes a wallet snapshot unless the cached one carries a higher
// version. KEYS[1] key, ARGV[1] snapshot, ARGV[2] version, ARGV[3] ttl in ms.
var storeNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, snap = pcall(cjson.decode, cur)
	if ok and type(snap) == 'table' and tonumber(snap.version) and tonumber(snap.version) > tonumber(ARGV[2]) then
		return 0
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Client exposes the underlying connection for pub/sub users.
func (s *CacheService) Client() *redis.Client {
	return s.client
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// User caching
func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}
	return s.Set(ctx, s.GenerateKey("user", "id", user.ID), user)
}

// GetUser returns nil without error on a miss.
func (s *CacheService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	found, err := s.Get(ctx, s.GenerateKey("user", "id", userID), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// CacheWallet stores the snapshot unless a newer version is already cached,
// so a reader that loaded the row before a commit cannot overwrite the
// snapshot written after it.
func (s *CacheService) CacheWallet(ctx context.Context, info models.WalletInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet snapshot: %w", err)
	}
	key := s.GenerateKey("wallet", "user", info.UserID)
	return storeNewer.Run(ctx, s.client, []string{key}, data, info.Version, s.ttl.Milliseconds()).Err()
}

// GetWallet returns nil without error on a miss.
func (s *CacheService) GetWallet(ctx context.Context, userID uint) (*models.WalletInfo, error) {
	var info models.WalletInfo
	found, err := s.Get(ctx, s.GenerateKey("wallet", "user", userID), &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

func (s *CacheService) InvalidateWallet(ctx context.Context, userID uint) error {
	return s.Delete(ctx, s.GenerateKey("wallet", "user", userID))
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
