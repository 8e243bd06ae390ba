package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/webcrawl/internal/model"
)

// DefaultRedisPrefix is the key prefix for stored pages.
const DefaultRedisPrefix = "webcrawl:page:"

// RedisStore stores pages in Redis, one key per URL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisTTL expires stored pages after ttl. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// OpenRedis connects to the Redis server at rawURL
// ("redis://[:password@]host:port/db") and verifies the connection.
func OpenRedis(ctx context.Context, rawURL string, opts ...RedisOption) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	s := &RedisStore{
		client: redis.NewClient(redisOpts),
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.client.Ping(ctx).Err(); err != nil {
		_ = s.client.Close()
		return nil, &StoreError{Err: fmt.Errorf("failed to connect to redis at %s: %w", redisOpts.Addr, err)}
	}

	return s, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// redisPage is the JSON form of a stored page. model.Page omits HTML from
// JSON, so the store carries its own record.
type redisPage struct {
	URL         string    `json:"url"`
	HTML        []byte    `json:"html"`
	FetchedAt   time.Time `json:"fetched_at"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Hash        string    `json:"hash"`
}

func (s *RedisStore) key(url string) string {
	return s.prefix + url
}

// Store inserts page with SETNX unless its URL is already present.
func (s *RedisStore) Store(ctx context.Context, page *model.Page) (bool, error) {
	if page == nil {
		return false, &StoreError{Err: ErrNilPage}
	}

	payload, err := json.Marshal(redisPage{
		URL:         page.URL,
		HTML:        page.HTML,
		FetchedAt:   page.FetchedAt,
		StatusCode:  page.StatusCode,
		ContentType: page.ContentType,
		Hash:        page.Hash,
	})
	if err != nil {
		return false, &StoreError{URL: page.URL, Err: err}
	}

	inserted, err := s.client.SetNX(ctx, s.key(page.URL), payload, s.ttl).Result()
	if err != nil {
		return false, &StoreError{URL: page.URL, Err: err}
	}
	return inserted, nil
}

// GetPage reads a stored page. Returns nil, nil if the URL is not stored.
func (s *RedisStore) GetPage(ctx context.Context, url string) (*model.Page, error) {
	val, err := s.client.Get(ctx, s.key(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, &StoreError{URL: url, Err: err}
	}

	var rec redisPage
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, &StoreError{URL: url, Err: fmt.Errorf("failed to decode page: %w", err)}
	}

	return &model.Page{
		URL:         rec.URL,
		HTML:        rec.HTML,
		FetchedAt:   rec.FetchedAt,
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Hash:        rec.Hash,
	}, nil
}
