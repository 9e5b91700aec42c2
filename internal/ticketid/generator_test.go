package ticketid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Next(context.Context, string) (int64, error) {
	return 0, errors.New("counter offline")
}

func TestSequentialCodes(t *testing.T) {
	g := NewGenerator("TKT", NewMemoryStore(0), nil)
	ctx := context.Background()

	assert.Equal(t, "TKT00001", g.Next(ctx))
	assert.Equal(t, "TKT00002", g.Next(ctx))
	assert.Equal(t, "TKT123456", g.Sequential(123456))
	assert.True(t, g.IsSequential("TKT00002"))
	assert.False(t, g.IsPlaceholder("TKT00002"))
}

func TestPlaceholderOnCounterFailure(t *testing.T) {
	g := NewGenerator("TKT", failingStore{}, nil)
	g.clock = func() time.Time { return time.UnixMilli(1712345678901) }

	code := g.Next(context.Background())

	assert.Regexp(t, `^TKTT1712345678901-[0-9a-f]{6}$`, code)
	assert.True(t, g.IsPlaceholder(code))
	assert.False(t, g.IsSequential(code))
	assert.True(t, g.Matches(code))
}

func TestNilStoreUsesPlaceholder(t *testing.T) {
	g := NewGenerator("", nil, nil)
	assert.True(t, g.IsPlaceholder(g.Next(context.Background())))
}

func TestPlaceholdersNeverMatchSequentialShape(t *testing.T) {
	g := NewGenerator("TKT", nil, nil)
	for i := 0; i < 50; i++ {
		assert.False(t, g.IsSequential(g.Placeholder()))
	}
}

func TestConcurrentAllocationIsUnique(t *testing.T) {
	g := NewGenerator("TKT", NewMemoryStore(0), nil)
	ctx := context.Background()

	const workers = 64
	codes := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- g.Next(ctx)
		}()
	}
	wg.Wait()
	close(codes)

	seen := map[string]struct{}{}
	for code := range codes {
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, workers)
}

func TestMemoryStoreSeedNeverLowers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	require.NoError(t, store.SeedCounter(ctx, CounterName, 7))
	require.NoError(t, store.SeedCounter(ctx, CounterName, 3))

	g := NewGenerator("TKT", store, nil)
	assert.Equal(t, "TKT00008", g.Next(ctx))
}
