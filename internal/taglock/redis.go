package taglock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PabloPavan/snipshare_api/internal"
)

// Redis locks keys across processes with SET NX PX. Each lock carries a
// random token and is only deleted by its holder.
type Redis struct {
	Client        *redis.Client
	Prefix        string
	TTL           time.Duration
	RetryInterval time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = "snipshare:taglock:"
	}
	return &Redis{Client: client, Prefix: p, TTL: ttl}
}

func (r *Redis) Lock(ctx context.Context, keys []string) (func(), error) {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	retry := r.RetryInterval
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ttl)
		defer cancel()
	}

	token := internal.RandomHex(16)
	keys = sortedUnique(keys)
	held := make([]string, 0, len(keys))

	for _, k := range keys {
		if err := r.acquire(ctx, r.Prefix+k, token, ttl, retry); err != nil {
			r.release(held, token)
			return nil, err
		}
		held = append(held, r.Prefix+k)
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(held, token) })
	}, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string, ttl, retry time.Duration) error {
	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	for {
		ok, err := r.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Redis) release(keys []string, token string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		_ = releaseScript.Run(ctx, r.Client, []string{keys[i]}, token).Err()
	}
}
