package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type item struct {
	key int64
	seq int
}

func TestDispatchKeepsPerKeyOrder(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int64][]int)

	d := New[int64, item](func(ctx context.Context, it item) {
		if it.seq%3 == 0 {
			time.Sleep(time.Millisecond)
		}
		mu.Lock()
		seen[it.key] = append(seen[it.key], it.seq)
		mu.Unlock()
	}, nil)

	ctx := context.Background()
	for seq := 0; seq < 30; seq++ {
		for key := int64(1); key <= 4; key++ {
			require.True(t, d.Dispatch(ctx, key, item{key: key, seq: seq}))
		}
	}
	d.Close()

	for key := int64(1); key <= 4; key++ {
		got := seen[key]
		require.Len(t, got, 30)
		for i, seq := range got {
			require.Equal(t, i, seq, "key %d out of order: %v", key, got)
		}
	}
	require.Zero(t, d.Pending())
}

func TestSlowKeyDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	fastDone := make(chan struct{})

	d := New[string, string](func(ctx context.Context, it string) {
		switch it {
		case "slow":
			<-release
		case "fast":
			close(fastDone)
		}
	}, nil)

	ctx := context.Background()
	d.Dispatch(ctx, "a", "slow")
	d.Dispatch(ctx, "b", "fast")

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fast session was blocked by slow session")
	}
	close(release)
	d.Close()
}

func TestDispatchAfterCloseIsRejected(t *testing.T) {
	d := New[int, int](func(context.Context, int) {}, nil)
	d.Close()
	require.False(t, d.Dispatch(context.Background(), 1, 1))
}

func TestPanicDoesNotKillQueue(t *testing.T) {
	var got []int
	d := New[int, int](func(ctx context.Context, v int) {
		if v == 1 {
			panic("boom")
		}
		got = append(got, v)
	}, testLogger{t})
	ctx := context.Background()
	d.Dispatch(ctx, 7, 1)
	d.Dispatch(ctx, 7, 2)
	d.Close()
	require.Equal(t, []int{2}, got)
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, args ...any) {
	l.t.Logf(format, args...)
}
