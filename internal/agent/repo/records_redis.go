package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	errx "github.com/homefix-assistant/server/internal/core/error"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

// RedisRecordStore keeps each table as a Redis list of JSON documents.
type RedisRecordStore struct {
	rdb redis.Cmdable
}

func NewRedisRecordStore(rdb redis.Cmdable) *RedisRecordStore {
	return &RedisRecordStore{rdb: rdb}
}

func (r *RedisRecordStore) tableKey(t Table) string {
	return fmt.Sprintf("records:%s", t)
}

func (r *RedisRecordStore) Append(ctx context.Context, table Table, record json.RawMessage) error {
	key := r.tableKey(table)
	if err := r.rdb.RPush(ctx, key, []byte(record)).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push record to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisRecordStore) Load(ctx context.Context, table Table) ([]json.RawMessage, error) {
	key := r.tableKey(table)
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load records from redis")
		return nil, errx.WrapRedis(err)
	}
	out := make([]json.RawMessage, 0, len(rows))
	for _, s := range rows {
		out = append(out, json.RawMessage(s))
	}
	return out, nil
}

func (r *RedisRecordStore) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(Tables))
	for _, t := range Tables {
		keys = append(keys, r.tableKey(t))
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		logx.Error().Err(err).Msg("failed to clear record tables in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ RecordStore = (*RedisRecordStore)(nil)
