package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eppla/storefront/internal/types"
)

const redisBackend = "redis"

// RedisRemote keeps catalog documents as JSON strings under "<prefix><doc>"
type RedisRemote struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisRemote wraps a client; prefix defaults to "catalog:"
func NewRedisRemote(client redis.Cmdable, prefix string) *RedisRemote {
	if prefix == "" {
		prefix = "catalog:"
	}
	return &RedisRemote{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisRemote) Name() string { return redisBackend }

func (r *RedisRemote) key(doc string) string {
	return r.prefix + doc
}

func (r *RedisRemote) Push(ctx context.Context, doc types.CatalogDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog document: %w", err)
	}
	if err := r.client.Set(ctx, r.key(ActiveCatalogDocument), body, 0).Err(); err != nil {
		return r.wrap("push", err)
	}
	return nil
}

func (r *RedisRemote) Pull(ctx context.Context) (types.CatalogDocument, bool, error) {
	body, err := r.client.Get(ctx, r.key(ActiveCatalogDocument)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.CatalogDocument{}, false, nil
	}
	if err != nil {
		return types.CatalogDocument{}, false, r.wrap("pull", err)
	}

	var doc types.CatalogDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return types.CatalogDocument{}, false, r.wrap("pull", fmt.Errorf("corrupt catalog document: %w", err))
	}
	return doc, true, nil
}

func (r *RedisRemote) HealthCheck(ctx context.Context, client string) (HealthReport, error) {
	report := newHealthReport(client, r.now())
	body, err := json.Marshal(report)
	if err != nil {
		return HealthReport{}, err
	}
	if err := r.client.Set(ctx, r.key(HealthCheckDocument), body, 0).Err(); err != nil {
		return HealthReport{}, r.wrap("health check write", err)
	}

	stored, err := r.client.Get(ctx, r.key(HealthCheckDocument)).Bytes()
	if err != nil {
		return HealthReport{}, r.wrap("health check read", err)
	}
	var got HealthReport
	if err := json.Unmarshal(stored, &got); err != nil {
		return HealthReport{}, r.wrap("health check read", err)
	}
	return got, nil
}

func (r *RedisRemote) wrap(op string, err error) error {
	return types.NewRemoteError(redisBackend, op, classifyRedisError(err), err)
}

// ACL and read-only replica errors mean the write was refused by policy
func classifyRedisError(err error) error {
	msg := err.Error()
	if strings.HasPrefix(msg, "NOPERM") || strings.HasPrefix(msg, "READONLY") || strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS") {
		return types.ErrRemoteWriteDenied
	}
	return types.ErrRemoteUnreachable
}
