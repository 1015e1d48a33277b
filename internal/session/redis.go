package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jordanhubbard/weft/internal/metrics"
	"github.com/jordanhubbard/weft/pkg/types"
)

const (
	sessionKeyPrefix = "weft:session:"
	lockKeyPrefix    = "weft:session-lock:"
	lockTTL          = 10 * time.Second
	lockRetryDelay   = 25 * time.Millisecond
)

// unlockScript releases a lock only if it still holds this acquisition's
// token, so a holder that outlived the TTL cannot release the next
// holder's lock.
const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// redisClient is the slice of the go-redis API the store uses. Tests
// substitute a stub to exercise failure paths without a server.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStore persists sessions in Redis. Per-session serialization uses a
// SET NX lock key with a TTL so a crashed holder cannot wedge the session
// forever.
type RedisStore struct {
	client  redisClient
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewRedisStore creates a store against the given Redis address. ttl
// bounds session lifetime; zero means no expiry.
func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		ttl:     ttl,
		metrics: metrics.NewMetrics(),
	}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Load fetches and decodes a session.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*types.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		s.metrics.SessionLoads.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("load %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		s.metrics.SessionLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load %s: %w", sessionID, err)
	}

	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.metrics.SessionLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	s.metrics.SessionLoads.WithLabelValues("hit").Inc()
	return &sess, nil
}

// Save encodes and stores a session.
func (s *RedisStore) Save(ctx context.Context, session *types.Session) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("save: session ID required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.SessionID, err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.SessionID, data, s.ttl).Err(); err != nil {
		s.metrics.SessionSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("save %s: %w", session.SessionID, err)
	}
	s.metrics.SessionSaves.WithLabelValues("ok").Inc()
	return nil
}

// WithSession acquires the session's lock key, then runs the
// load-modify-save cycle. Only a missing session is created fresh; any
// other load failure aborts the cycle so a transient Redis error cannot
// overwrite the stored session with a blank one.
func (s *RedisStore) WithSession(ctx context.Context, sessionID string, fn func(*types.Session) error) error {
	lockKey := lockKeyPrefix + sessionID
	token := uuid.NewString()
	for {
		ok, err := s.client.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("lock %s: %w", sessionID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	defer s.client.Eval(context.WithoutCancel(ctx), unlockScript, []string{lockKey}, token)

	sess, err := s.Load(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		sess = types.NewSession(sessionID)
	} else if err != nil {
		return err
	}

	if err := fn(sess); err != nil {
		return err
	}
	return s.Save(ctx, sess)
}
