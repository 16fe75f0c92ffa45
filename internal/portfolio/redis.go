package portfolio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-dslr-studio/internal/photoshoot"
)

type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	UseTLS   bool
}

// Connect dials Redis and pings it before returning.
func Connect(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	var tlsConfig *tls.Config
	if opts.UseTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		TLSConfig:    tlsConfig,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// addShotScript stores the body and appends the id in one step. A body left
// without an order entry is overwritten and re-listed.
var addShotScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
	for _, id in ipairs(redis.call('LRANGE', KEYS[2], 0, -1)) do
		if id == ARGV[1] then
			return 0
		end
	end
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
end
redis.call('RPUSH', KEYS[2], ARGV[1])
return 1
`)

// RedisStore keeps each owner's shots in a hash (id -> JSON) plus a list of
// IDs that preserves insertion order.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is nil")
	}
	if prefix == "" {
		prefix = "aidslr"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisStore) List(ctx context.Context, owner string) ([]photoshoot.Shot, error) {
	owner, err := validateOwner(owner)
	if err != nil {
		return nil, err
	}

	ids, err := s.rdb.LRange(ctx, s.orderKey(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list portfolio ids: %w", err)
	}
	if len(ids) == 0 {
		return []photoshoot.Shot{}, nil
	}

	values, err := s.rdb.HMGet(ctx, s.shotsKey(owner), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load portfolio shots: %w", err)
	}

	shots := make([]photoshoot.Shot, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// id without a body: a concurrent Remove won the race
			continue
		}
		var shot photoshoot.Shot
		if err := json.Unmarshal([]byte(raw), &shot); err != nil {
			return nil, fmt.Errorf("decode shot %s: %w", ids[i], err)
		}
		shots = append(shots, shot)
	}
	return shots, nil
}

func (s *RedisStore) Add(ctx context.Context, owner string, shot photoshoot.Shot) (bool, error) {
	owner, err := validateOwner(owner)
	if err != nil {
		return false, err
	}
	if err := validateShot(shot); err != nil {
		return false, err
	}

	raw, err := json.Marshal(shot)
	if err != nil {
		return false, fmt.Errorf("encode shot: %w", err)
	}

	added, err := addShotScript.Run(ctx, s.rdb, []string{s.shotsKey(owner), s.orderKey(owner)}, shot.ID, string(raw)).Int()
	if err != nil {
		return false, fmt.Errorf("save shot: %w", err)
	}
	return added == 1, nil
}

func (s *RedisStore) Remove(ctx context.Context, owner string, id string) (bool, error) {
	owner, err := validateOwner(owner)
	if err != nil {
		return false, err
	}

	var del *redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.HDel(ctx, s.shotsKey(owner), id)
		pipe.LRem(ctx, s.orderKey(owner), 0, id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("remove shot: %w", err)
	}
	return del.Val() > 0, nil
}

func (s *RedisStore) shotsKey(owner string) string {
	return fmt.Sprintf("%s:portfolio:%s:shots", s.prefix, owner)
}

func (s *RedisStore) orderKey(owner string) string {
	return fmt.Sprintf("%s:portfolio:%s:order", s.prefix, owner)
}
