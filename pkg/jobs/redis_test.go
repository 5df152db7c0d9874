package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeList struct {
	lists map[string][]string
}

func newFakeList() *fakeList {
	return &fakeList{lists: map[string][]string{}}
}

func (f *fakeList) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		var s string
		switch val := v.(type) {
		case []byte:
			s = string(val)
		case string:
			s = val
		}
		f.lists[key] = append([]string{s}, f.lists[key]...)
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeList) BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	for _, key := range keys {
		items := f.lists[key]
		if len(items) == 0 {
			continue
		}
		last := items[len(items)-1]
		f.lists[key] = items[:len(items)-1]
		return redis.NewStringSliceResult([]string{key, last}, nil)
	}
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func TestRedisOutboxRoundTrip(t *testing.T) {
	list := newFakeList()
	var handled []Job
	outbox := NewRedisOutbox(list, "outbox", func(ctx context.Context, job Job) error {
		handled = append(handled, job)
		return nil
	}, QueueConfig{})

	require.NoError(t, outbox.Enqueue(context.Background(), Job{ID: "a", Type: "mirror.resync"}))
	require.NoError(t, outbox.Enqueue(context.Background(), Job{ID: "b", Type: "notification.checkin"}))

	assert.True(t, outbox.ProcessOne(context.Background()))
	assert.True(t, outbox.ProcessOne(context.Background()))
	assert.False(t, outbox.ProcessOne(context.Background()))

	require.Len(t, handled, 2)
	assert.Equal(t, "a", handled[0].ID)
	assert.Equal(t, "b", handled[1].ID)
}

func TestRedisOutboxDeadLettersWithoutRetries(t *testing.T) {
	list := newFakeList()
	outbox := NewRedisOutbox(list, "outbox", func(context.Context, Job) error {
		return errors.New("smtp down")
	}, QueueConfig{RetryDelay: time.Millisecond})

	require.NoError(t, outbox.Enqueue(context.Background(), Job{ID: "a", Type: "notification.checkin"}))
	assert.True(t, outbox.ProcessOne(context.Background()))

	assert.Empty(t, list.lists["outbox"])
	require.Len(t, list.lists["outbox:dead"], 1)

	var dead Job
	require.NoError(t, json.Unmarshal([]byte(list.lists["outbox:dead"][0]), &dead))
	assert.Equal(t, "a", dead.ID)
	assert.Equal(t, 1, dead.Attempt)
}

func TestRedisOutboxRequeuesWhenRetriesRemain(t *testing.T) {
	list := newFakeList()
	outbox := NewRedisOutbox(list, "outbox", func(context.Context, Job) error {
		return errors.New("quota")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})

	require.NoError(t, outbox.Enqueue(context.Background(), Job{ID: "a"}))
	assert.True(t, outbox.ProcessOne(context.Background()))
	require.Len(t, list.lists["outbox"], 1)
	assert.Empty(t, list.lists["outbox:dead"])

	assert.True(t, outbox.ProcessOne(context.Background()))
	assert.Empty(t, list.lists["outbox"])
	assert.Len(t, list.lists["outbox:dead"], 1)
}
