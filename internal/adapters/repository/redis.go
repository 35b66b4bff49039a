package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/gazecluster/internal/domain/model"
	"github.com/okian/gazecluster/pkg/logger"
	"github.com/okian/gazecluster/pkg/metrics"
)

const (
	backendRedis = "redis"

	fieldFixations = "fixations"
	fieldSaccades  = "saccades"
	fieldLastSeen  = "last_seen"

	defaultRedisPrefix = "gaze:"
)

// evictScript removes every session whose last-seen score is strictly below
// the cutoff. KEYS[1] is the index set, ARGV[1] the cutoff in microseconds,
// ARGV[2] the hash key prefix.
var evictScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
for _, id in ipairs(ids) do
	redis.call('DEL', ARGV[2] .. id)
	redis.call('ZREM', KEYS[1], id)
end
return #ids
`)

// RedisConfig holds the connection settings of the Redis backend.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// RedisStore implements Store on Redis so several replicas can share one
// aggregation state. Each session is a hash; a sorted set scored by
// last-seen time indexes them.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	indexKey  string
	entryBase string

	logger logger.Logger
	gauge  sessionGauge
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and starts the metrics updater.
func NewRedisStore(ctx context.Context, cfg RedisConfig, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	o := newOptions(opts)
	s := &RedisStore{
		client:    client,
		prefix:    prefix,
		indexKey:  prefix + "sessions",
		entryBase: prefix + "session:",
		logger:    o.logger.Named(backendRedis),
	}
	s.gauge.start(ctx, o.metricsUpdateInterval, s.Count)
	s.logger.Info(ctx, "connected to redis", logger.String("addr", cfg.Addr), logger.String("prefix", prefix))
	return s, nil
}

func (s *RedisStore) entryKey(sessionID string) string {
	return s.entryBase + sessionID
}

// Upsert implements Store.Upsert. The hash and its index score are written
// in one MULTI so a sweep never sees one without the other.
func (s *RedisStore) Upsert(ctx context.Context, sessionID string, fixations []model.Fixation, saccades []model.Saccade, now time.Time) error {
	start := time.Now()
	if fixations == nil {
		fixations = []model.Fixation{}
	}
	if saccades == nil {
		saccades = []model.Saccade{}
	}
	fixJSON, err := json.Marshal(fixations)
	if err != nil {
		return fmt.Errorf("encode fixations: %w", err)
	}
	sacJSON, err := json.Marshal(saccades)
	if err != nil {
		return fmt.Errorf("encode saccades: %w", err)
	}
	seen := now.UnixMicro()

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.entryKey(sessionID),
			fieldFixations, fixJSON,
			fieldSaccades, sacJSON,
			fieldLastSeen, seen,
		)
		pipe.ZAdd(ctx, s.indexKey, redis.Z{Score: float64(seen), Member: sessionID})
		return nil
	})
	metrics.RecordStoreLatency(backendRedis, "upsert", sinceMs(start))
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", sessionID, err)
	}
	return nil
}

// Snapshot implements Store.Snapshot. Sessions evicted between reading the
// index and reading their hash are skipped.
func (s *RedisStore) Snapshot(ctx context.Context) ([]model.SessionEntry, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(backendRedis, "snapshot", sinceMs(start)) }()

	ids, err := s.client.ZRange(ctx, s.indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(ids) == 0 {
		return []model.SessionEntry{}, nil
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HMGet(ctx, s.entryKey(id), fieldFixations, fieldSaccades, fieldLastSeen)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}

	out := make([]model.SessionEntry, 0, len(ids))
	for i, cmd := range cmds {
		entry, err := decodeEntry(ids[i], cmd.Val())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// EvictStale implements Store.EvictStale with a single Lua script.
func (s *RedisStore) EvictStale(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	start := time.Now()
	cutoff := now.Add(-ttl).UnixMicro()

	removed, err := evictScript.Run(ctx, s.client, []string{s.indexKey}, strconv.FormatInt(cutoff, 10), s.entryBase).Int()
	metrics.RecordStoreLatency(backendRedis, "evict", sinceMs(start))
	if err != nil {
		return 0, fmt.Errorf("evict stale sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Debug(ctx, "evicted stale sessions", logger.Int("removed", removed))
	}
	return removed, nil
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (model.SessionEntry, error) {
	vals, err := s.client.HMGet(ctx, s.entryKey(sessionID), fieldFixations, fieldSaccades, fieldLastSeen).Result()
	if err != nil {
		return model.SessionEntry{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return decodeEntry(sessionID, vals)
}

// Count implements Store.Count. Errors are logged and reported as zero.
func (s *RedisStore) Count(ctx context.Context) int {
	n, err := s.client.ZCard(ctx, s.indexKey).Result()
	if err != nil {
		s.logger.Warn(ctx, "failed to count sessions", logger.Error(err))
		return 0
	}
	return int(n)
}

// Close stops the metrics updater and closes the client.
func (s *RedisStore) Close() error {
	s.gauge.close()
	return s.client.Close()
}

// decodeEntry builds an entry from an HMGET reply in field order
// fixations, saccades, last_seen.
func decodeEntry(sessionID string, vals []interface{}) (model.SessionEntry, error) {
	if len(vals) != 3 || vals[0] == nil || vals[2] == nil {
		return model.SessionEntry{}, ErrNotFound
	}
	fixRaw, ok1 := vals[0].(string)
	sacRaw, ok2 := vals[1].(string)
	seenRaw, ok3 := vals[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return model.SessionEntry{}, fmt.Errorf("%w: %s has unexpected field types", ErrCorruptEntry, sessionID)
	}

	entry := model.SessionEntry{SessionID: sessionID}
	if err := json.Unmarshal([]byte(fixRaw), &entry.Fixations); err != nil {
		return model.SessionEntry{}, fmt.Errorf("%w: %s fixations: %v", ErrCorruptEntry, sessionID, err)
	}
	if err := json.Unmarshal([]byte(sacRaw), &entry.Saccades); err != nil {
		return model.SessionEntry{}, fmt.Errorf("%w: %s saccades: %v", ErrCorruptEntry, sessionID, err)
	}
	micros, err := strconv.ParseInt(seenRaw, 10, 64)
	if err != nil {
		return model.SessionEntry{}, fmt.Errorf("%w: %s last_seen: %v", ErrCorruptEntry, sessionID, err)
	}
	entry.LastSeen = time.UnixMicro(micros)
	return entry, nil
}
