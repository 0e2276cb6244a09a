package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/futuresbot/internal/domain"
)

func sampleCandles() []domain.Candle {
	t0 := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	return []domain.Candle{
		{OpenTime: t0, Open: 100, High: 105, Low: 99, Close: 104, Volume: 10},
		{OpenTime: t0.Add(15 * time.Minute), Open: 104, High: 106, Low: 101, Close: 102, Volume: 7},
	}
}

func TestKlineCache_Miss(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("klines:BTCUSDT:15m:100").RedisNil()

	kc := NewKlineCache(Wrap(rdb), time.Minute)
	got, ok, err := kc.Get(context.Background(), "BTCUSDT", "15m", 100)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKlineCache_SetThenHit(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	candles := sampleCandles()
	b, err := json.Marshal(candles)
	require.NoError(t, err)

	mock.ExpectSet("klines:BTCUSDT:15m:100", b, 30*time.Second).SetVal("OK")
	mock.ExpectGet("klines:BTCUSDT:15m:100").SetVal(string(b))

	kc := NewKlineCache(Wrap(rdb), 30*time.Second)
	ctx := context.Background()
	require.NoError(t, kc.Set(ctx, "BTCUSDT", "15m", 100, candles))

	got, ok, err := kc.Get(ctx, "BTCUSDT", "15m", 100)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, candles, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKlineCache_CorruptEntryEvicted(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("klines:ETHUSDT:5m:50").SetVal("{not json")
	mock.ExpectDel("klines:ETHUSDT:5m:50").SetVal(1)

	kc := NewKlineCache(Wrap(rdb), 0)
	assert.Equal(t, defaultKlineTTL, kc.ttl)
	_, ok, err := kc.Get(context.Background(), "ETHUSDT", "5m", 50)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKlineKey_Escapes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "klines:A_B_C:1_m:10", klineKey("A:B C", "1:m", 10))
}

func TestTrailingStore_SaveDeleteLoad(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	st := domain.TrailingState{
		Symbol:     "BTCUSDT",
		ATR:        120,
		Direction:  domain.DirectionLong,
		EntryPrice: 65000,
		PeakPrice:  65500,
		Multiplier: 1.8,
		OpenedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	b, err := json.Marshal(st)
	require.NoError(t, err)

	mock.ExpectHSet(trailingHash, "BTCUSDT", b).SetVal(1)
	mock.ExpectHDel(trailingHash, "ETHUSDT").SetVal(0)
	mock.ExpectHGetAll(trailingHash).SetVal(map[string]string{
		"BTCUSDT": string(b),
		"BADUSDT": "garbage",
	})

	ts := NewTrailingStore(Wrap(rdb))
	ctx := context.Background()
	require.NoError(t, ts.Save(ctx, st))
	require.NoError(t, ts.Delete(ctx, "ETHUSDT"))

	all, err := ts.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, st, all[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockManager_Held(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectSetArgs("lock:open:BTCUSDT", "token", redis.SetArgs{Mode: "NX", TTL: 30 * time.Second}).RedisNil()

	lm := NewLockManager(Wrap(rdb))
	_, err := lm.Acquire(context.Background(), "open:BTCUSDT", 30*time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockManager_RedisError(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectSetArgs("lock:open:ETHUSDT", "token", redis.SetArgs{Mode: "NX", TTL: time.Second}).SetErr(errors.New("conn refused"))

	lm := NewLockManager(Wrap(rdb))
	_, err := lm.Acquire(context.Background(), "open:ETHUSDT", time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLockHeld)
}

func TestSignalBus_PublishAndAppend(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload := []byte(`{"symbol":"BTCUSDT"}`)
	mock.ExpectPublish(domain.ChannelTrades, payload).SetVal(1)
	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: domain.StreamTrades,
		MaxLen: streamCap(domain.StreamTrades),
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).SetVal("1-0")

	bus := NewSignalBus(Wrap(rdb))
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domain.ChannelTrades, payload))
	require.NoError(t, bus.StreamAppend(ctx, domain.StreamTrades, payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignalBus_StreamReadEmpty(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectXRead(&redis.XReadArgs{Streams: []string{domain.StreamTrades, "0"}, Count: 10}).RedisNil()

	bus := NewSignalBus(Wrap(rdb))
	msgs, err := bus.StreamRead(context.Background(), domain.StreamTrades, "0", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHasPattern(t *testing.T) {
	t.Parallel()
	assert.True(t, hasPattern("futbot:*"))
	assert.False(t, hasPattern("futbot:trades"))
}

func TestNamespaceKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "klines:BTCUSDT", namespace("").key("klines", "BTCUSDT"))
	assert.Equal(t, "futbot:lock:open:BTCUSDT", namespace("futbot").key("lock", "open:BTCUSDT"))
}

func TestNamespacedTrailingHash(t *testing.T) {
	t.Parallel()
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectHDel("futbot:"+trailingHash, "BTCUSDT").SetVal(1)

	c := &Client{rdb: rdb, ns: "futbot"}
	require.NoError(t, NewTrailingStore(c).Delete(context.Background(), "BTCUSDT"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverDropsOldest(t *testing.T) {
	t.Parallel()
	out := make(chan []byte, 2)
	deliver(out, []byte("a"))
	deliver(out, []byte("b"))
	deliver(out, []byte("c"))

	assert.Equal(t, "b", string(<-out))
	assert.Equal(t, "c", string(<-out))
}

func TestStreamCap(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(5000), streamCap(domain.StreamTrades))
	assert.Equal(t, defaultStreamCap, streamCap("stream:other"))
}

func TestClampBackoff(t *testing.T) {
	t.Parallel()
	assert.Equal(t, minWaitBackoff, clampBackoff(0))
	assert.Equal(t, 250*time.Millisecond, clampBackoff(250*time.Millisecond))
	assert.Equal(t, maxWaitBackoff, clampBackoff(time.Minute))
}

func TestRateLimiter_WaitNRejectsOversizedWeight(t *testing.T) {
	t.Parallel()
	rdb, _ := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	rl := NewRateLimiter(Wrap(rdb))
	err := rl.WaitN(context.Background(), "binance:rest", 50, 40, time.Minute)
	require.Error(t, err)
}
