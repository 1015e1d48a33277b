package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/weft/internal/metrics"
	"github.com/jordanhubbard/weft/pkg/types"
)

// stubRedis fakes the slice of the go-redis API the store uses.
type stubRedis struct {
	data   map[string]string
	getErr error

	setCalls   int
	lockTokens []interface{}
	evalScript string
	evalKeys   []string
	evalArgs   []interface{}
}

func newStubRedis() *stubRedis {
	return &stubRedis{data: make(map[string]string)}
}

func (c *stubRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	v, ok := c.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *stubRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	c.setCalls++
	if b, ok := value.([]byte); ok {
		c.data[key] = string(b)
	}
	return redis.NewStatusResult("OK", nil)
}

func (c *stubRedis) SetNX(_ context.Context, _ string, value interface{}, _ time.Duration) *redis.BoolCmd {
	c.lockTokens = append(c.lockTokens, value)
	return redis.NewBoolResult(true, nil)
}

func (c *stubRedis) Eval(_ context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	c.evalScript = script
	c.evalKeys = keys
	c.evalArgs = args
	return redis.NewCmdResult(int64(1), nil)
}

func (c *stubRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (c *stubRedis) Close() error { return nil }

func setupRedisStore(t *testing.T) (*RedisStore, *stubRedis) {
	t.Helper()
	stub := newStubRedis()
	return &RedisStore{client: stub, metrics: metrics.NewMetrics()}, stub
}

func TestRedisWithSession_MissingSessionIsCreated(t *testing.T) {
	s, stub := setupRedisStore(t)

	err := s.WithSession(context.Background(), "s1", func(sess *types.Session) error {
		sess.UserID = "u1"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.setCalls)

	var stored types.Session
	require.NoError(t, json.Unmarshal([]byte(stub.data[sessionKeyPrefix+"s1"]), &stored))
	assert.Equal(t, "u1", stored.UserID)
}

func TestRedisWithSession_TransientLoadErrorAbortsCycle(t *testing.T) {
	s, stub := setupRedisStore(t)

	// Seed a stored session, then make the next GET fail transiently.
	sess := types.NewSession("s1")
	sess.AddAudit("Analytics Agent: Computing behavioral vector from 3 events")
	require.NoError(t, s.Save(context.Background(), sess))
	before := stub.data[sessionKeyPrefix+"s1"]

	stub.getErr = errors.New("connection reset by peer")
	called := false
	err := s.WithSession(context.Background(), "s1", func(sess *types.Session) error {
		called = true
		return nil
	})

	// The failed load must abort the cycle, not hand fn a blank session
	// whose save would wipe the stored event history and audit log.
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, before, stub.data[sessionKeyPrefix+"s1"])
}

func TestRedisWithSession_UnlockUsesAcquisitionToken(t *testing.T) {
	s, stub := setupRedisStore(t)

	require.NoError(t, s.WithSession(context.Background(), "s1", func(*types.Session) error {
		return nil
	}))

	// The release must check-and-delete with this acquisition's token so
	// a holder that outlived the lock TTL cannot free a later holder's
	// lock.
	require.Len(t, stub.lockTokens, 1)
	token := stub.lockTokens[0]
	assert.NotEmpty(t, token)
	assert.Equal(t, unlockScript, stub.evalScript)
	assert.Equal(t, []string{lockKeyPrefix + "s1"}, stub.evalKeys)
	require.Len(t, stub.evalArgs, 1)
	assert.Equal(t, token, stub.evalArgs[0])
}

func TestRedisWithSession_DistinctTokensPerAcquisition(t *testing.T) {
	s, stub := setupRedisStore(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.WithSession(context.Background(), "s1", func(*types.Session) error {
			return nil
		}))
	}

	require.Len(t, stub.lockTokens, 2)
	assert.NotEqual(t, stub.lockTokens[0], stub.lockTokens[1])
}
