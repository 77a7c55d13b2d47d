package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"

	tt "github.com/gnolang/revxslt/internal/types"
)

const defaultPrefix = "revxslt:record:"

// Redis keeps the latest record of each source as JSON, with one sorted set
// per template indexing the sources it was matched against.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*Redis)

// WithTTL expires records after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *Redis) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *Redis) {
		s.prefix = prefix
	}
}

// OpenRedis connects to the server named by a redis:// URL.
func OpenRedis(ctx context.Context, url string, opts ...RedisOption) (*Redis, error) {
	options, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := backend.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedis(client, opts...), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *backend.Client, opts ...RedisOption) *Redis {
	s := &Redis{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Redis) key(source string) string {
	return s.prefix + source
}

func (s *Redis) indexKey(template string) string {
	if template == "" {
		return s.prefix + "index"
	}
	return s.prefix + "index:" + template
}

func (s *Redis) Save(ctx context.Context, r tt.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	member := backend.Z{Score: float64(r.ExtractedAt.Unix()), Member: r.Source}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(r.Source), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(""), member)
	if r.Template != "" {
		pipe.ZAdd(ctx, s.indexKey(r.Template), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *Redis) Load(ctx context.Context, source string) (tt.Record, error) {
	val, err := s.client.Get(ctx, s.key(source)).Bytes()
	if errors.Is(err, backend.Nil) {
		return tt.Record{}, ErrNotFound
	}
	if err != nil {
		return tt.Record{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var r tt.Record
	if err := json.Unmarshal(val, &r); err != nil {
		return tt.Record{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return r, nil
}

// List skips index members whose record expired or was matched against
// another template since.
func (s *Redis) List(ctx context.Context, template string) ([]tt.Record, error) {
	sources, err := s.client.ZRange(ctx, s.indexKey(template), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]tt.Record, 0, len(sources))
	for _, source := range sources {
		r, err := s.Load(ctx, source)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if template != "" && r.Template != template {
			continue
		}
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Source < records[j].Source })
	return records, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
