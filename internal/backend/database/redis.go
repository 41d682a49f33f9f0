package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisIndexKey      = "portfolio:items"
	redisItemKeyPrefix = "portfolio:item:"
)

// RedisDatabase stores each item as a JSON document and keeps a sorted set
// scored by upload time for newest-first listing.
type RedisDatabase struct {
	client *redis.Client
}

// NewRedisDatabase accepts either a redis:// URL or a plain host:port address.
func NewRedisDatabase(connectionString string) (DatabaseService, error) {
	var opts *redis.Options
	if strings.Contains(connectionString, "://") {
		parsed, err := redis.ParseURL(connectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		if connectionString == "" {
			return nil, errors.New("redis database requires an address")
		}
		opts = &redis.Options{Addr: connectionString}
	}

	return &RedisDatabase{client: redis.NewClient(opts)}, nil
}

func (s *RedisDatabase) CreateDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisDatabase) DoesDatabaseExist() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

func (s *RedisDatabase) Close() error {
	return s.client.Close()
}

func (s *RedisDatabase) CreateItem(ctx context.Context, item *PortfolioItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, redisItemKey(item.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store item %s: %w", item.ID, err)
	}
	if !created {
		return fmt.Errorf("item with id %s already exists", item.ID)
	}

	if err := s.client.ZAdd(ctx, redisIndexKey, redis.Z{
		Score:  float64(item.UploadedAt.UnixNano()),
		Member: item.ID,
	}).Err(); err != nil {
		_ = s.client.Del(ctx, redisItemKey(item.ID)).Err()
		return fmt.Errorf("failed to index item %s: %w", item.ID, err)
	}
	return nil
}

func (s *RedisDatabase) GetItems(ctx context.Context) ([]*PortfolioItem, error) {
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	items := make([]*PortfolioItem, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisItemKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry without a document; skip rather than fail the listing
			continue
		}
		var item PortfolioItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("failed to decode item %s: %w", ids[i], err)
		}
		items = append(items, &item)
	}

	// float64 scores lose sub-microsecond precision
	sortNewestFirst(items)
	return items, nil
}

func (s *RedisDatabase) GetItemByID(ctx context.Context, id string) (*PortfolioItem, error) {
	raw, err := s.client.Get(ctx, redisItemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	var item PortfolioItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item %s: %w", id, err)
	}
	return &item, nil
}

func (s *RedisDatabase) DeleteItem(ctx context.Context, id string) (*PortfolioItem, error) {
	item, err := s.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisItemKey(id))
		pipe.ZRem(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return item, nil
}

func redisItemKey(id string) string {
	return redisItemKeyPrefix + id
}
