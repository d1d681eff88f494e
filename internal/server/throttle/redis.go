// Package throttle limits signup and reset requests per source IP.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/gophwallet/internal/common"
)

const defaultPrefix = "gophwallet:throttle:"

// Fixed window: the first hit creates the counter with a TTL of one window.
var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return {0, ttl}
end
return {1, ttl}
`)

type RedisThrottle struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

func NewRedisThrottle(client redis.Scripter, limit int, window time.Duration) *RedisThrottle {
	return &RedisThrottle{
		client: client,
		limit:  limit,
		window: window,
		prefix: defaultPrefix,
	}
}

// Allow counts one request for key. It returns EnhanceYourCalm once the key
// exceeds the limit within the current window.
func (t *RedisThrottle) Allow(ctx context.Context, key string) error {
	windowMS := t.window.Milliseconds()
	if windowMS <= 0 {
		return fmt.Errorf("invalid throttle window %s", t.window)
	}

	res, err := windowScript.Run(ctx, t.client, []string{t.prefix + key}, t.limit, windowMS).Int64Slice()
	if err != nil {
		return fmt.Errorf("throttle %s: %w", key, err)
	}
	if len(res) != 2 {
		return fmt.Errorf("throttle %s: unexpected redis response %v", key, res)
	}

	if res[0] == 0 {
		retry := time.Duration(res[1]) * time.Millisecond
		return common.EnhanceYourCalm("too many requests, retry in %s.", retry.Round(time.Second))
	}
	return nil
}
