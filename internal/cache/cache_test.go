package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("a", 42)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestCache_MissingKey(t *testing.T) {
	c := New(10, time.Minute)
	_, ok := c.Get("missing")
	require.False(t, ok)
}

func TestCache_ExpiredEntryEvicted(t *testing.T) {
	c := New(10, time.Millisecond)
	c.Put("a", 1)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestCache_EvictsBatchWhenFull(t *testing.T) {
	c := New(5, time.Minute)
	for i := 0; i < 5; i++ {
		c.Put(string(rune('a'+i)), i)
	}
	require.Equal(t, 5, c.Len())

	c.Put("f", 5)
	require.Less(t, c.Len(), 6)
}

func TestKey_StableForSameInputs(t *testing.T) {
	k1 := Key(1, "hello world", 5)
	k2 := Key(1, "hello world", 5)
	k3 := Key(1, "different", 5)

	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}

func TestKey_TruncatesContentPastLimit(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	short := make([]byte, 1000)
	for i := range short {
		short[i] = 'x'
	}

	require.Equal(t, Key(1, string(short), 5), Key(1, string(long), 5))
}

func TestGroup_DedupesConcurrentCalls(t *testing.T) {
	g := NewGroup()
	var calls atomic.Int64

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, shared, err := g.Do("key", func() (any, error) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				return "result", nil
			})
			require.NoError(t, err)
			results[idx] = shared
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())

	sharedCount := 0
	for _, s := range results {
		if s {
			sharedCount++
		}
	}
	require.Equal(t, 9, sharedCount)
}

func TestGroup_SeparateKeysRunIndependently(t *testing.T) {
	g := NewGroup()
	v1, shared1, err1 := g.Do("k1", func() (any, error) { return 1, nil })
	v2, shared2, err2 := g.Do("k2", func() (any, error) { return 2, nil })

	require.NoError(t, err1)
	require.NoError(t, err2)
	require.False(t, shared1)
	require.False(t, shared2)
	require.Equal(t, 1, v1)
	require.Equal(t, 2, v2)
}
