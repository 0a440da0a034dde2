package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyAcquireLock(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(rdb, 24*time.Hour)
	key := KeyIdemNotification("ORDER-1")

	mock.ExpectSetNX(key, "LOCK", 30*time.Second).SetVal(true)
	mock.ExpectSetNX(key, "LOCK", 30*time.Second).SetVal(false)

	ok, err := store.AcquireLock(context.Background(), key, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.AcquireLock(context.Background(), key, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second delivery does not get the lock")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencySaveAndReplay(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(rdb, 24*time.Hour)
	key := KeyIdemNotification("ORDER-1")
	payload := `{"order_id":"ORDER-1","tickets_issued":3}`

	mock.ExpectSet(key, "RES:"+payload, 24*time.Hour).SetVal("OK")
	mock.ExpectGet(key).SetVal("RES:" + payload)

	require.NoError(t, store.SaveResult(context.Background(), key, payload))

	got, found, err := store.GetResult(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyGetResultMisses(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(rdb, 24*time.Hour)
	key := KeyIdemNotification("ORDER-1")

	mock.ExpectGet(key).RedisNil()

	_, found, err := store.GetResult(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, found, "absent key is not a stored result")

	// A lock in flight is not a result either.
	mock.ExpectGet(key).SetVal("LOCK")

	_, found, err = store.GetResult(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyIsLocked(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(rdb, 24*time.Hour)
	key := KeyIdemNotification("ORDER-1")

	mock.ExpectGet(key).SetVal("LOCK")

	locked, err := store.IsLocked(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, locked)

	mock.ExpectGet(key).RedisNil()

	locked, err = store.IsLocked(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, locked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRelease(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewIdempotencyStore(rdb, 24*time.Hour)
	key := KeyIdemNotification("ORDER-1")

	mock.ExpectDel(key).SetVal(1)

	require.NoError(t, store.Release(context.Background(), key))
	assert.NoError(t, mock.ExpectationsWereMet())
}
