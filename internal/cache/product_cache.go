// Package cache keeps single-product reads out of the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"catalog/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix     = "catalog:product:"
	versionSuffix = ":version"

	// versionTTL bounds how long a deleted product's version key lingers.
	versionTTL = 24 * time.Hour
)

// setIfVersion writes KEYS[1] only while KEYS[2] still holds the version the
// caller read before going to the database. A missing version counts as 0.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[2] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// RedisProductCache stores products as JSON under catalog:product:<id>, next
// to a version counter under catalog:product:<id>:version that every Delete
// increments. Write and delete failures are logged, never returned: the
// database stays the source of truth.
type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration, log *logrus.Entry) *RedisProductCache {
	return &RedisProductCache{
		client: client,
		ttl:    ttl,
		log:    log.WithField("component", "product_cache"),
	}
}

// Get returns a nil product on a miss, together with the current version to
// hand back to Set.
func (c *RedisProductCache) Get(ctx context.Context, id uuid.UUID) (*model.Product, int64, error) {
	key := productKey(id)
	values, err := c.client.MGet(ctx, key, versionKey(id)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis mget %s: %w", key, err)
	}

	version, err := parseVersion(values[1])
	if err != nil {
		return nil, 0, fmt.Errorf("redis version %s: %w", key, err)
	}
	raw, ok := values[0].(string)
	if !ok {
		return nil, version, nil
	}

	product, err := decodeProduct([]byte(raw))
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("dropping undecodable cache entry")
		return nil, version, c.client.Del(ctx, key).Err()
	}
	if product.ID != id {
		c.log.WithField("key", key).Warnf("cache id mismatch: %s", product.ID)
		return nil, version, c.client.Del(ctx, key).Err()
	}
	return product, version, nil
}

// Set is skipped when a Delete ran after the version was read, so a slow
// reader cannot put back a row that was changed under it.
func (c *RedisProductCache) Set(ctx context.Context, product *model.Product, version int64) {
	data, err := json.Marshal(product)
	if err != nil {
		c.log.WithError(err).Warn("failed to marshal product for caching")
		return
	}
	keys := []string{productKey(product.ID), versionKey(product.ID)}
	stored, err := setIfVersion.Run(ctx, c.client, keys, data, version, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.log.WithError(err).Warn("redis SET failed")
		return
	}
	if stored == 0 {
		c.log.WithField("product_id", product.ID).Debug("skipped caching stale product")
	}
}

func (c *RedisProductCache) Delete(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, productKey(id))
			pipe.Incr(ctx, versionKey(id))
			pipe.Expire(ctx, versionKey(id), versionTTL)
		}
		return nil
	})
	if err != nil {
		c.log.WithError(err).Warn("redis DEL failed")
	}
}

// Ping checks the connection at startup.
func (c *RedisProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func productKey(id uuid.UUID) string {
	return keyPrefix + id.String()
}

func versionKey(id uuid.UUID) string {
	return productKey(id) + versionSuffix
}

// parseVersion reads an MGET slot; a missing key is version 0.
func parseVersion(v interface{}) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected version type %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}

func decodeProduct(data []byte) (*model.Product, error) {
	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
