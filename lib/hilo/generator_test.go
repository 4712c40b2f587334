package hilo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDB = "shop"

func newTestGenerator(t *testing.T, client IRangeClient, tag string, opts *Options) *Generator {
	t.Helper()
	g, err := NewGenerator(client, testDB, tag, opts)
	require.NoError(t, err)
	return g
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond)
}

func TestParallelRequestsShareOneRange(t *testing.T) {
	client := newFakeClient("A")
	g := newTestGenerator(t, client, "users", nil)

	const parallel = 32
	ids := make(chan int64, parallel)

	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := g.NextID(context.Background())
			if assert.NoError(t, err) {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.Less(t, id, int64(33))
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, parallel)
	assert.Equal(t, int64(1), client.nextCalls.Load())
}

func TestDocumentIDFormat(t *testing.T) {
	client := newFakeClient("A")
	g := newTestGenerator(t, client, "users", nil)

	id, err := g.GenerateDocumentID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "users/1-A", id)

	untagged := newTestGenerator(t, newFakeClient(""), "products", nil)
	id, err = untagged.GenerateDocumentID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "products/1", id)
}

func TestCapacityDoubles(t *testing.T) {
	client := newFakeClient("A")
	client.setMax(testDB, "users", 64)
	g := newTestGenerator(t, client, "users", nil)
	ctx := context.Background()

	for i := 0; i < 32; i++ {
		_, err := g.NextID(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(96), client.max(testDB, "users"))
	assert.Equal(t, int64(32), g.Capacity())

	id, err := g.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(97), id)
	assert.Equal(t, int64(160), client.max(testDB, "users"))
	assert.Equal(t, int64(64), g.Capacity())

	value, next, ok := g.Range()
	require.True(t, ok)
	assert.Equal(t, RangeValue{Low: 97, High: 160}, value)
	assert.Equal(t, int64(98), next)
}

func TestCapacityIsCapped(t *testing.T) {
	client := newFakeClient("A")
	g := newTestGenerator(t, client, "users", &Options{Capacity: 2, MaxCapacity: 4, Separator: "/"})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := g.NextID(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4), g.Capacity())
	// 2 + 4 + 4 + 4 + 4 + 4 covers 22 ids
	assert.Equal(t, int64(6), client.nextCalls.Load())
}

func TestReturnUnusedRangeOnDispose(t *testing.T) {
	client := newFakeClient("A")
	client.setMax(testDB, "users", 32)
	g := newTestGenerator(t, client, "users", nil)
	ctx := context.Background()

	for _, want := range []string{"users/33-A", "users/34-A"} {
		id, err := g.GenerateDocumentID(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	require.NoError(t, g.ReturnUnusedRange(ctx))
	assert.Equal(t, int64(34), client.max(testDB, "users"))
	_, _, ok := g.Range()
	assert.False(t, ok)

	// returning twice is a no-op
	require.NoError(t, g.ReturnUnusedRange(ctx))
	assert.Equal(t, int64(1), client.returnCalls.Load())

	// the generator keeps working after a return
	id, err := g.GenerateDocumentID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "users/35-A", id)
}

func TestPicksUpWhereItLeftOff(t *testing.T) {
	client := newFakeClient("A")
	ctx := context.Background()

	first := newTestGenerator(t, client, "users", nil)
	for i := 0; i < 10; i++ {
		_, err := first.NextID(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, first.ReturnUnusedRange(ctx))

	second := newTestGenerator(t, client, "users", nil)
	id, err := second.GenerateDocumentID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "users/11-A", id)
}

func TestReturnWithoutRangeIsNoop(t *testing.T) {
	client := newFakeClient("A")
	g := newTestGenerator(t, client, "users", &Options{Capacity: 1, MaxCapacity: 1, Separator: "/"})
	ctx := context.Background()

	require.NoError(t, g.ReturnUnusedRange(ctx))

	// exhausted range
	_, err := g.NextID(ctx)
	require.NoError(t, err)
	require.NoError(t, g.ReturnUnusedRange(ctx))

	assert.Equal(t, int64(0), client.returnCalls.Load())
}

func TestCannotGoDown(t *testing.T) {
	client := newFakeClient("A")
	g := newTestGenerator(t, client, "users", nil)
	ctx := context.Background()

	seen := make(map[int64]bool)
	first, err := g.NextID(ctx)
	require.NoError(t, err)
	seen[first] = true

	// another writer lowers the counter below what was already granted
	client.setMax(testDB, "users", 12)

	for i := 0; i < 128; i++ {
		id, err := g.NextID(ctx)
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 129)
	assert.Equal(t, int64(1), client.conflicts.Load())
}

func TestGeneratorsOfTwoStoresNeverCollide(t *testing.T) {
	client := newFakeClient("A")
	ctx := context.Background()
	generators := []*Generator{
		newTestGenerator(t, client, "users", &Options{Capacity: 3, MaxCapacity: 8, Separator: "/"}),
		newTestGenerator(t, client, "users", &Options{Capacity: 5, MaxCapacity: 8, Separator: "/"}),
	}

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		g := generators[w%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id, err := g.NextID(ctx)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %d", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 8*200)
}

func TestStaleTokenIsRetried(t *testing.T) {
	client := newFakeClient("A")
	ctx := context.Background()
	opts := &Options{Capacity: 1, MaxCapacity: 1, Separator: "/"}
	first := newTestGenerator(t, client, "users", opts)
	second := newTestGenerator(t, client, "users", opts)

	id, err := first.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id, err = second.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	// the counter moved since the first generator's grant
	id, err = first.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, int64(1), client.conflicts.Load())
	assert.Equal(t, int64(4), client.nextCalls.Load())
}

func TestFetchErrorReachesEveryWaiter(t *testing.T) {
	client := newFakeClient("A")
	client.gate = make(chan struct{})
	client.failNext.Store(true)
	g := newTestGenerator(t, client, "users", nil)

	const parallel = 8
	errs := make(chan error, parallel)
	for i := 0; i < parallel; i++ {
		go func() {
			_, err := g.NextID(context.Background())
			errs <- err
		}()
	}

	waitFor(t, func() bool { return client.nextCalls.Load() >= 1 })
	time.Sleep(20 * time.Millisecond)
	close(client.gate)

	for i := 0; i < parallel; i++ {
		assert.ErrorIs(t, <-errs, errUnavailable)
	}

	// the failed fetch does not block later calls
	client.failNext.Store(false)
	id, err := g.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	client := newFakeClient("A")
	client.gate = make(chan struct{})
	g := newTestGenerator(t, client, "users", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := g.NextID(ctx)
		cancelled <- err
	}()
	waitFor(t, func() bool { return client.nextCalls.Load() == 1 })

	other := make(chan error, 1)
	go func() {
		_, err := g.NextID(context.Background())
		other <- err
	}()

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	close(client.gate)
	assert.NoError(t, <-other)
	assert.Equal(t, int64(1), client.nextCalls.Load())
}

func TestInvalidGrantIsRejected(t *testing.T) {
	g := newTestGenerator(t, &stubClient{grant: RangeGrant{Range: RangeValue{Low: 0, High: 10}}}, "users", nil)
	_, err := g.NextID(context.Background())
	assert.ErrorIs(t, err, ErrInvalidRange)

	g = newTestGenerator(t, &stubClient{grant: RangeGrant{Range: RangeValue{Low: 5, High: 4}}}, "users", nil)
	_, err = g.NextID(context.Background())
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestRepeatedConflictOnSameTokenFails(t *testing.T) {
	g := newTestGenerator(t, &stubClient{err: &ConflictError{Max: 3, Token: ""}}, "users", nil)
	_, err := g.NextID(context.Background())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestEndlessConflictsAreBounded(t *testing.T) {
	client := &churningClient{}
	g := newTestGenerator(t, client, "users", &Options{
		Capacity:           8,
		MaxCapacity:        8,
		Separator:          "/",
		MaxConflictRetries: 3,
		ConflictBackoff:    time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := g.NextID(ctx)
	require.ErrorIs(t, err, ErrTooManyConflicts)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(4), client.calls.Load())

	// nothing keeps running after the caller got its answer
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(4), client.calls.Load())

	// the next call starts a new fetch instead of waiting on the old one
	_, err = g.NextID(ctx)
	require.ErrorIs(t, err, ErrTooManyConflicts)
	assert.Equal(t, int64(8), client.calls.Load())

	// the observed token and floor are kept
	last := client.lastReq.Load()
	require.NotNil(t, last)
	assert.Equal(t, "7", last.LastToken)
	assert.Equal(t, int64(70), last.LastMax)
}

func TestConflictsThatSettleSucceed(t *testing.T) {
	client := &churningClient{settleAfter: 2}
	g := newTestGenerator(t, client, "users", &Options{
		Capacity:        8,
		MaxCapacity:     8,
		Separator:       "/",
		ConflictBackoff: time.Millisecond,
	})

	id, err := g.NextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(21), id)
	assert.Equal(t, int64(3), client.calls.Load())
}

func TestNewGeneratorValidation(t *testing.T) {
	client := newFakeClient("A")

	tests := []struct {
		name     string
		client   IRangeClient
		database string
		tag      string
		opts     *Options
	}{
		{"nil client", nil, testDB, "users", nil},
		{"empty database", client, "", "users", nil},
		{"empty tag", client, testDB, "", nil},
		{"zero capacity", client, testDB, "users", &Options{Capacity: 0, MaxCapacity: 10, Separator: "/"}},
		{"negative capacity", client, testDB, "users", &Options{Capacity: -1, MaxCapacity: 10, Separator: "/"}},
		{"max below capacity", client, testDB, "users", &Options{Capacity: 8, MaxCapacity: 4, Separator: "/"}},
		{"empty separator", client, testDB, "users", &Options{Capacity: 8, MaxCapacity: 8}},
		{"negative conflict retries", client, testDB, "users", &Options{Capacity: 8, MaxCapacity: 8, Separator: "/", MaxConflictRetries: -1}},
		{"negative conflict backoff", client, testDB, "users", &Options{Capacity: 8, MaxCapacity: 8, Separator: "/", ConflictBackoff: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.client, tt.database, tt.tag, tt.opts)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestContextAlreadyCancelled(t *testing.T) {
	client := newFakeClient("A")
	g := newTestGenerator(t, client, "users", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.NextID(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), client.nextCalls.Load())
}
