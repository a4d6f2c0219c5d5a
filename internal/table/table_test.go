package table

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sampleEntry holds one record {id: 1, value: "teste"}, estimated at 32 bytes.
func sampleEntry(key string, opts EntryOptions) *Entry {
	return NewEntry(key, map[string]Record{
		"1": {"id": 1, "value": "teste"},
	}, opts)
}

func liveOptions() EntryOptions {
	return EntryOptions{TTLHours: 1, Expirable: true}
}

func sumSizes(t *Table) int64 {
	var total int64
	for _, v := range t.Snapshot() {
		total += v.Size
	}
	return total
}

func TestTable_AddOrReplace(t *testing.T) {
	tests := []struct {
		name     string
		capacity int64
		preload  []*Entry
		entry    *Entry
		wantErr  error
		wantUsed int64
	}{
		{
			name:     "fits in empty table",
			capacity: 1024,
			entry:    sampleEntry("a", liveOptions()),
			wantUsed: 32,
		},
		{
			name:     "larger than capacity",
			capacity: 31,
			entry:    sampleEntry("a", liveOptions()),
			wantErr:  ErrNotEnoughCapacity,
		},
		{
			name:     "zero capacity rejects non-empty entry",
			capacity: 0,
			entry:    sampleEntry("a", liveOptions()),
			wantErr:  ErrNotEnoughCapacity,
		},
		{
			name:     "no free space",
			capacity: 40,
			preload:  []*Entry{sampleEntry("a", liveOptions())},
			entry:    sampleEntry("b", liveOptions()),
			wantErr:  ErrNotEnoughSpace,
			wantUsed: 32,
		},
		{
			name:     "replace applies size delta",
			capacity: 40,
			preload:  []*Entry{sampleEntry("a", liveOptions())},
			entry: NewEntry("a", map[string]Record{
				"1": {"id": 1},
			}, liveOptions()),
			wantUsed: 12,
		},
		{
			name:     "replace with same size fits a full table",
			capacity: 32,
			preload:  []*Entry{sampleEntry("a", liveOptions())},
			entry:    sampleEntry("a", liveOptions()),
			wantUsed: 32,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := New(tt.capacity)
			for _, e := range tt.preload {
				require.NoError(t, tbl.AddOrReplace(e))
			}

			err := tbl.AddOrReplace(tt.entry)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantUsed, tbl.UsedSize())
			assert.Equal(t, sumSizes(tbl), tbl.UsedSize())
			assert.LessOrEqual(t, tbl.UsedSize(), tbl.Capacity())
		})
	}
}

func TestTable_SizeAccounting(t *testing.T) {
	tbl := New(10_000)

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key-%d", i%7)
		records := make(map[string]Record)
		for j := 0; j <= i%4; j++ {
			records[fmt.Sprint(j)] = Record{"id": j, "name": fmt.Sprintf("item-%d", i)}
		}
		require.NoError(t, tbl.AddOrReplace(NewEntry(key, records, liveOptions())))
		assert.Equal(t, sumSizes(tbl), tbl.UsedSize())

		if i%5 == 0 {
			tbl.Destroy(fmt.Sprintf("key-%d", i%3))
			assert.Equal(t, sumSizes(tbl), tbl.UsedSize())
		}
	}

	for _, key := range tbl.Keys() {
		tbl.Destroy(key)
	}
	assert.Zero(t, tbl.UsedSize())
	assert.Zero(t, tbl.Len())
}

func TestTable_AccessRecord(t *testing.T) {
	clock := newFakeClock()
	tbl := New(1024, WithClock(clock.Now))
	require.NoError(t, tbl.AddOrReplace(sampleEntry("key1", liveOptions())))

	t.Run("hit", func(t *testing.T) {
		r, res := tbl.AccessRecord("key1", "1")
		assert.Equal(t, Hit, res)
		assert.Equal(t, "teste", r["value"])
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, res := tbl.AccessRecord("key1", "2")
		assert.Equal(t, Miss, res)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, res := tbl.AccessRecord("nope", "1")
		assert.Equal(t, Miss, res)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		r, _ := tbl.AccessRecord("key1", "1")
		r["value"] = "changed"
		again, _ := tbl.AccessRecord("key1", "1")
		assert.Equal(t, "teste", again["value"])
	})

	t.Run("access slides expiry", func(t *testing.T) {
		clock.Advance(59 * time.Minute)
		_, res := tbl.AccessRecord("key1", "1")
		require.Equal(t, Hit, res)
		clock.Advance(59 * time.Minute)
		_, res = tbl.AccessRecord("key1", "1")
		assert.Equal(t, Hit, res)
	})

	t.Run("expired entry is invalid and stays counted", func(t *testing.T) {
		used := tbl.UsedSize()
		clock.Advance(2 * time.Hour)
		_, res := tbl.AccessRecord("key1", "1")
		assert.Equal(t, Invalid, res)
		_, res = tbl.AccessRecord("key1", "1")
		assert.Equal(t, Invalid, res, "a failed access must not refresh the entry")
		assert.Equal(t, used, tbl.UsedSize())
		assert.True(t, tbl.Includes("key1"))
	})
}

func TestTable_GetAndGetRecord(t *testing.T) {
	tests := []struct {
		name       string
		get        func(tbl *Table) bool
		wantFound  bool
		wantMarked bool
	}{
		{
			name: "get hit marks used",
			get: func(tbl *Table) bool {
				e, ok := tbl.Get("key1")
				return ok && e.Key() == "key1"
			},
			wantFound:  true,
			wantMarked: true,
		},
		{
			name: "get miss has no side effect",
			get: func(tbl *Table) bool {
				_, ok := tbl.Get("nope")
				return ok
			},
		},
		{
			name: "get record hit marks used",
			get: func(tbl *Table) bool {
				r, ok := tbl.GetRecord("key1", "1")
				return ok && r["value"] == "teste"
			},
			wantFound:  true,
			wantMarked: true,
		},
		{
			name: "get record unknown identifier has no side effect",
			get: func(tbl *Table) bool {
				_, ok := tbl.GetRecord("key1", "2")
				return ok
			},
		},
		{
			name: "get record unknown key",
			get: func(tbl *Table) bool {
				_, ok := tbl.GetRecord("nope", "1")
				return ok
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			tbl := New(1024, WithClock(clock.Now))
			require.NoError(t, tbl.AddOrReplace(sampleEntry("key1", liveOptions())))
			e, ok := tbl.Get("key1")
			require.True(t, ok)
			inserted := e.State().LastUsed

			clock.Advance(30 * time.Minute)
			assert.Equal(t, tt.wantFound, tt.get(tbl))

			want := inserted
			if tt.wantMarked {
				want = clock.Now()
			}
			assert.Equal(t, want, e.State().LastUsed)
			assert.Equal(t, 1, tbl.Len())
			assert.Equal(t, sumSizes(tbl), tbl.UsedSize())
		})
	}
}

func TestTable_GetRecordReturnsCopy(t *testing.T) {
	tbl := New(1024)
	require.NoError(t, tbl.AddOrReplace(sampleEntry("key1", liveOptions())))

	r, ok := tbl.GetRecord("key1", "1")
	require.True(t, ok)
	r["value"] = "changed"

	again, ok := tbl.GetRecord("key1", "1")
	require.True(t, ok)
	assert.Equal(t, "teste", again["value"])
}

func TestTable_AccessAll(t *testing.T) {
	tbl := New(1024)
	require.NoError(t, tbl.AddOrReplace(NewEntry("k", map[string]Record{
		"b": {"id": "b"},
		"a": {"id": "a"},
	}, liveOptions())))

	records, res := tbl.AccessAll("k")
	require.Equal(t, Hit, res)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0]["id"])

	require.True(t, tbl.SetStale("k"))
	_, res = tbl.AccessAll("k")
	assert.Equal(t, Invalid, res)

	_, res = tbl.AccessAll("missing")
	assert.Equal(t, Miss, res)
}

func TestTable_IsExpiredOrStale(t *testing.T) {
	clock := newFakeClock()
	tbl := New(1024, WithClock(clock.Now))

	require.NoError(t, tbl.AddOrReplace(sampleEntry("ttl", liveOptions())))
	require.NoError(t, tbl.AddOrReplace(sampleEntry("zero", EntryOptions{TTLHours: 0, Expirable: true})))
	require.NoError(t, tbl.AddOrReplace(sampleEntry("forever", EntryOptions{TTLHours: 0, Expirable: false})))

	assert.False(t, tbl.IsExpiredOrStale("ttl"))
	assert.True(t, tbl.IsExpiredOrStale("zero"))
	assert.False(t, tbl.IsExpiredOrStale("forever"))
	assert.False(t, tbl.IsExpiredOrStale("absent"))

	clock.Advance(time.Hour)
	assert.True(t, tbl.IsExpiredOrStale("ttl"))

	require.True(t, tbl.SetStale("forever"))
	assert.True(t, tbl.IsExpiredOrStale("forever"))

	require.True(t, tbl.SetExpirable("ttl", false))
	assert.False(t, tbl.IsExpiredOrStale("ttl"))
}

func TestTable_SetCapacity(t *testing.T) {
	tbl := New(100)
	require.NoError(t, tbl.AddOrReplace(sampleEntry("a", liveOptions())))

	assert.False(t, tbl.SetCapacity(31))
	assert.Equal(t, int64(100), tbl.Capacity())

	assert.True(t, tbl.SetCapacity(32))
	assert.Equal(t, int64(32), tbl.Capacity())

	assert.True(t, tbl.SetCapacity(1<<20))
}

func TestTable_Mutators(t *testing.T) {
	tbl := New(1024)
	require.NoError(t, tbl.AddOrReplace(sampleEntry("a", liveOptions())))

	assert.False(t, tbl.SetStale("x"))
	assert.False(t, tbl.SetExpirable("x", true))
	assert.False(t, tbl.SetPinned("x", true))
	assert.False(t, tbl.Adjust("x", 5, true))

	assert.True(t, tbl.SetPinned("a", true))
	assert.True(t, tbl.Adjust("a", 5, false))

	views := tbl.Snapshot()
	require.Len(t, views, 1)
	assert.True(t, views[0].Pinned)
	assert.Equal(t, 5, views[0].TTLHours)
	assert.False(t, views[0].Expirable)
	assert.Equal(t, 1, views[0].Records)
}

func TestTable_SweepExpiredOrStale(t *testing.T) {
	clock := newFakeClock()
	tbl := New(1024, WithClock(clock.Now))

	require.NoError(t, tbl.AddOrReplace(sampleEntry("b-stale", liveOptions())))
	require.NoError(t, tbl.AddOrReplace(sampleEntry("a-expired", EntryOptions{TTLHours: 1, Expirable: true})))
	require.NoError(t, tbl.AddOrReplace(sampleEntry("c-pinned", EntryOptions{TTLHours: 1, Expirable: false, Pinned: true})))
	require.True(t, tbl.SetStale("b-stale"))

	clock.Advance(90 * time.Minute)

	removed, freed := tbl.SweepExpiredOrStale()
	assert.Equal(t, []string{"a-expired", "b-stale"}, removed)
	assert.Equal(t, int64(64), freed)
	assert.Equal(t, []string{"c-pinned"}, tbl.Keys())
	assert.Equal(t, sumSizes(tbl), tbl.UsedSize())

	removed, freed = tbl.SweepExpiredOrStale()
	assert.Empty(t, removed)
	assert.Zero(t, freed)
}

func TestTable_Destroy(t *testing.T) {
	tbl := New(1024)
	require.NoError(t, tbl.AddOrReplace(sampleEntry("a", liveOptions())))

	freed, ok := tbl.Destroy("a")
	assert.True(t, ok)
	assert.Equal(t, int64(32), freed)

	freed, ok = tbl.Destroy("a")
	assert.False(t, ok)
	assert.Zero(t, freed)
	assert.Zero(t, tbl.UsedSize())
}

func TestTable_ConcurrentAccounting(t *testing.T) {
	tbl := New(2_000)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (worker*i)%25)
				switch i % 3 {
				case 0:
					_ = tbl.AddOrReplace(sampleEntry(key, liveOptions()))
				case 1:
					tbl.AccessRecord(key, "1")
				default:
					tbl.Destroy(key)
				}
				assert.LessOrEqual(t, tbl.UsedSize(), tbl.Capacity())
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, sumSizes(tbl), tbl.UsedSize())
}
