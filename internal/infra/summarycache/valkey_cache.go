package summarycache

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/0xTanzim/contentchat/internal/domain/summarize"
)

// ValkeyCache stores finished summaries in a Valkey-compatible database so
// repeated requests for the same source text skip the pipeline entirely.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "contentchat"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

// Get implements summarize.Cache.
func (c *ValkeyCache) Get(ctx context.Context, key string) (string, bool, error) {
	cmd := c.client.B().Get().Key(c.fullKey(key)).Build()
	value, err := c.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set implements summarize.Cache.
func (c *ValkeyCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	builder := c.client.B().Set().Key(c.fullKey(key)).Value(value)
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) fullKey(key string) string {
	return c.prefix + ":" + key
}

var _ summarize.Cache = (*ValkeyCache)(nil)
