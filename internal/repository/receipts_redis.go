package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iamsernine/aptoseidon/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisReceiptStore persists receipts across restarts, closing the
// double-charge window a crash between settlement and finalize would open.
type RedisReceiptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReceiptStore(cfg *config.Config) (*RedisReceiptStore, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(cfg.Redis.ReceiptTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	return &RedisReceiptStore{client: rdb, ttl: ttl}, nil
}

func (s *RedisReceiptStore) Get(ctx context.Context, walletAddress, recipient, amount string) (string, bool) {
	hash, err := s.client.Get(ctx, receiptKey(walletAddress, recipient, amount)).Result()
	if err != nil || hash == "" {
		return "", false
	}
	return hash, true
}

func (s *RedisReceiptStore) Put(ctx context.Context, walletAddress, recipient, amount, txHash string) error {
	// NX: the first settlement wins, later ones never overwrite it.
	return s.client.SetNX(ctx, receiptKey(walletAddress, recipient, amount), txHash, s.ttl).Err()
}
