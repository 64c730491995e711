package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testEvent(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

func shutdown(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Shutdown(ctx))
}

func TestBus_DeliversInOrder(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), 16)

	var mu sync.Mutex
	var got []EventType
	b.SubscribeFunc(All, func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type())
		return nil
	})

	want := []EventType{CurveCreated, TradeExecuted, TradeExecuted, CurveGraduated, CurveMigrated}
	for _, typ := range want {
		require.NoError(t, b.Publish(testEvent(typ)))
	}
	shutdown(t, b)

	assert.Equal(t, want, got)
	assert.Equal(t, uint64(len(want)), b.Stats().Published)
}

func TestBus_SubscribeByType(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), 16)

	var trades, claims int
	b.SubscribeFunc(TradeExecuted, func(context.Context, Event) error { trades++; return nil })
	sub := b.SubscribeFunc(FeesClaimed, func(context.Context, Event) error { claims++; return nil })

	require.NoError(t, b.PublishSync(context.Background(), testEvent(TradeExecuted)))
	require.NoError(t, b.PublishSync(context.Background(), testEvent(FeesClaimed)))
	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, b.PublishSync(context.Background(), testEvent(FeesClaimed)))
	shutdown(t, b)

	assert.Equal(t, 1, trades)
	assert.Equal(t, 1, claims)
	assert.Equal(t, map[EventType]int{TradeExecuted: 1}, b.Stats().Handlers)
}

func TestBus_HandlerErrors(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), 4)
	boom := errors.New("boom")
	b.SubscribeFunc(CurveCreated, func(context.Context, Event) error { return boom })

	err := b.PublishSync(context.Background(), testEvent(CurveCreated))
	assert.ErrorIs(t, err, boom)
	shutdown(t, b)
	assert.Equal(t, uint64(1), b.Stats().HandlerFailures)
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), 1)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	b.SubscribeFunc(All, func(context.Context, Event) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	require.NoError(t, b.Publish(testEvent(TradeExecuted)))
	<-started
	require.NoError(t, b.Publish(testEvent(TradeExecuted)))

	err := b.Publish(testEvent(TradeExecuted))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, uint64(1), b.Stats().Dropped)

	close(release)
	shutdown(t, b)
}

func TestBus_PublishAfterShutdown(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), 1)
	shutdown(t, b)
	shutdown(t, b)
	assert.ErrorIs(t, b.Publish(testEvent(CurveCreated)), ErrBusClosed)
}

func TestBus_ShutdownDeliversEveryAcceptedEvent(t *testing.T) {
	for i := 0; i < 20; i++ {
		b := NewBus(zap.NewNop(), 1024)

		var delivered atomic.Uint64
		b.SubscribeFunc(All, func(context.Context, Event) error {
			delivered.Add(1)
			return nil
		})

		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					if err := b.Publish(testEvent(TradeExecuted)); errors.Is(err, ErrBusClosed) {
						return
					}
				}
			}()
		}
		time.Sleep(time.Millisecond)
		shutdown(t, b)
		wg.Wait()

		stats := b.Stats()
		assert.Equal(t, stats.Published, delivered.Load())
		assert.Zero(t, stats.Pending)
	}
}
