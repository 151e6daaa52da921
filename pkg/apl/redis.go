// pkg/apl/redis.go
package apl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"saleorauth/pkg/metrics"
)

// redisHashKey is the single hash holding every credential record; fields
// are keyed by saleorApiUrl. One key keeps IsConfigured a cheap EXISTS.
const redisHashKey = "saleor-app:auth"

// RedisAPL stores credential records in a Redis hash. Each Set/Delete is a
// single atomic hash operation, so concurrent writers for distinct URLs do
// not race each other the way the file backend's whole-file rewrite does.
type RedisAPL struct {
	cli *redis.Client
	log *zap.SugaredLogger
}

func NewRedisAPL(cli *redis.Client, log *zap.SugaredLogger) *RedisAPL {
	return &RedisAPL{cli: cli, log: log.Named("apl.redis")}
}

func (r *RedisAPL) Get(ctx context.Context, saleorAPIURL string) (AuthData, bool) {
	raw, err := r.cli.HGet(ctx, redisHashKey, saleorAPIURL).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Errorw("redis read failed, treating as absent", "saleorApiUrl", saleorAPIURL, "err", err)
		}
		return AuthData{}, false
	}
	var d AuthData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		r.log.Errorw("redis entry unparsable, treating as absent", "saleorApiUrl", saleorAPIURL, "err", err)
		return AuthData{}, false
	}
	return d, true
}

func (r *RedisAPL) Set(ctx context.Context, data AuthData) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode auth data for %s: %w", data.SaleorAPIURL, err)
	}
	if err := r.cli.HSet(ctx, redisHashKey, data.SaleorAPIURL, buf).Err(); err != nil {
		metrics.StoreOp("redis", "set", false)
		return fmt.Errorf("persist auth data for %s: %w", data.SaleorAPIURL, err)
	}
	metrics.StoreOp("redis", "set", true)
	r.log.Debugw("auth data saved", "saleorApiUrl", data.SaleorAPIURL)
	return nil
}

func (r *RedisAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	if err := r.cli.HDel(ctx, redisHashKey, saleorAPIURL).Err(); err != nil {
		metrics.StoreOp("redis", "delete", false)
		return fmt.Errorf("delete auth data for %s: %w", saleorAPIURL, err)
	}
	metrics.StoreOp("redis", "delete", true)
	return nil
}

func (r *RedisAPL) GetAll(ctx context.Context) []AuthData {
	entries, err := r.cli.HGetAll(ctx, redisHashKey).Result()
	if err != nil {
		r.log.Errorw("redis read failed, treating as empty", "err", err)
		return nil
	}
	out := make([]AuthData, 0, len(entries))
	for url, raw := range entries {
		var d AuthData
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			r.log.Errorw("redis entry unparsable, skipping", "saleorApiUrl", url, "err", err)
			continue
		}
		out = append(out, d)
	}
	return out
}

func (r *RedisAPL) IsConfigured(ctx context.Context) bool {
	exists, err := r.cli.Exists(ctx, redisHashKey).Result()
	if err != nil {
		r.log.Errorw("redis exists check failed, reporting configurable", "err", err)
		return true
	}
	if exists == 0 {
		// Hash never written (or fully deleted): configurable.
		return true
	}
	n, err := r.cli.HLen(ctx, redisHashKey).Result()
	if err != nil {
		return true
	}
	return n > 0
}
