package notification

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CacheEntry 一次缓存读取。未命中时用 Generation 做条件回填
type CacheEntry struct {
	Count      int64
	Hit        bool
	Generation string
}

// UnreadCache 缓存每个用户的未读数。
// Invalidate 会推进代数，Fill 只在代数与读取时一致时写入，
// 所以 COUNT(*) 期间发生的已读/新增不会被旧值覆盖。
type UnreadCache interface {
	Get(ctx context.Context, userID uuid.UUID) (CacheEntry, error)
	Fill(ctx context.Context, userID uuid.UUID, generation string, n int64) (bool, error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// 代数 key 比计数活得久，过期后从 "0" 重新开始
const generationTTL = 24 * time.Hour

type RedisUnreadCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisUnreadCache(rdb *redis.Client, ttl time.Duration) *RedisUnreadCache {
	return &RedisUnreadCache{rdb: rdb, ttl: ttl}
}

// 两个 key 带同一个 hash tag，集群下落在同一 slot，脚本才能同时访问
func unreadKey(userID uuid.UUID) string {
	return "unread:{" + userID.String() + "}"
}

func generationKey(userID uuid.UUID) string {
	return "unread:{" + userID.String() + "}:gen"
}

func (c *RedisUnreadCache) Get(ctx context.Context, userID uuid.UUID) (CacheEntry, error) {
	vals, err := c.rdb.MGet(ctx, unreadKey(userID), generationKey(userID)).Result()
	if err != nil {
		return CacheEntry{}, err
	}

	entry := CacheEntry{Generation: "0"}
	if g, ok := vals[1].(string); ok {
		entry.Generation = g
	}
	if s, ok := vals[0].(string); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return CacheEntry{}, errors.New("unread cache: malformed count " + strconv.Quote(s))
		}
		entry.Count, entry.Hit = n, true
	}
	return entry, nil
}

// KEYS[1] 计数 KEYS[2] 代数；ARGV[1] 读取时的代数 ARGV[2] 计数 ARGV[3] 毫秒 TTL
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (c *RedisUnreadCache) Fill(ctx context.Context, userID uuid.UUID, generation string, n int64) (bool, error) {
	stored, err := fillScript.Run(ctx, c.rdb,
		[]string{unreadKey(userID), generationKey(userID)},
		generation, n, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *RedisUnreadCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Expire(ctx, generationKey(userID), generationTTL)
		pipe.Del(ctx, unreadKey(userID))
		return nil
	})
	return err
}
