package gc_test

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/gcmodel/internal/gc"
)

func pauseEvent(ts, pause float64) *gc.Event {
	return &gc.Event{Type: gc.TypeGC, Timestamp: ts, Pause: pause, GCID: -1}
}

func TestStore_AppendOnlyPreservesOrder(t *testing.T) {
	t.Parallel()

	store := gc.NewStore()
	assert.True(t, store.IsEmpty())
	assert.True(t, store.HasAccurateTimestamp())

	var appended []*gc.Event
	for i := range 5 {
		ev := pauseEvent(float64(i), 0.01)
		store.Append(ev)
		appended = append(appended, ev)
		assert.Equal(t, i+1, store.Size())
	}

	assert.Equal(t, appended, slices.Collect(store.Events()))
	// restartable
	assert.Equal(t, appended, slices.Collect(store.Events()))
}

func TestStore_EventsSeesPrefixAtCallTime(t *testing.T) {
	t.Parallel()

	store := gc.NewStore()
	store.Append(pauseEvent(1, 0.01))
	store.Append(pauseEvent(2, 0.01))

	seq := store.Events()
	store.Append(pauseEvent(3, 0.01))

	assert.Len(t, slices.Collect(seq), 2)
	assert.Equal(t, 3, store.Size())
}

func TestStore_CountsOrderingAnomalies(t *testing.T) {
	t.Parallel()

	store := gc.NewStore()
	store.Append(pauseEvent(5, 0.01))
	store.Append(pauseEvent(3, 0.01))
	store.Append(pauseEvent(6, 0.01))

	assert.Equal(t, 3, store.Size())
	assert.Equal(t, 1, store.Diagnostics().OrderingAnomalies)

	first, last := store.TimeRange()
	assert.InDelta(t, 3.0, first, 1e-12)
	assert.InDelta(t, 6.0, last, 1e-12)
}

func TestStore_InferredTimestampClearsAccuracy(t *testing.T) {
	t.Parallel()

	store := gc.NewStore()
	store.Append(pauseEvent(1, 0.01))
	assert.True(t, store.HasAccurateTimestamp())

	ev := pauseEvent(2, 0.01)
	ev.InferredTimestamp = true
	store.Append(ev)
	assert.False(t, store.HasAccurateTimestamp())
}

func TestStore_ChildrenFeedGenerationStatistics(t *testing.T) {
	t.Parallel()

	root := &gc.Event{
		Type:         gc.TypeFullGC,
		Timestamp:    10,
		Pause:        0.5,
		HasMemory:    true,
		MemoryBefore: 9000,
		MemoryAfter:  3000,
		MemoryTotal:  16000,
		Children: []*gc.Event{
			{Type: gc.TypePSYoungGen, Pause: 0, HasMemory: true, MemoryBefore: 4000, MemoryAfter: 0, MemoryTotal: 5000},
			{Type: gc.TypeParOldGen, HasMemory: true, MemoryBefore: 5000, MemoryAfter: 3000, MemoryTotal: 11000},
			{Type: gc.TypeMetaspace, HasMemory: true, MemoryBefore: 2700, MemoryAfter: 2700, MemoryTotal: 1056768},
		},
	}

	store := gc.NewStore()
	store.Append(root)

	assert.Equal(t, int64(1), store.FullGCPause().N())
	assert.Equal(t, int64(3000), store.FullGCFootprint().Max())
	assert.Equal(t, int64(5000), store.GenerationMemory(gc.GenerationYoung).Total.Max())
	assert.Equal(t, int64(3000), store.GenerationMemory(gc.GenerationTenured).After.Max())
	assert.Equal(t, int64(2700), store.GenerationMemory(gc.GenerationPerm).Before.Max())
	assert.Zero(t, store.GenerationPause(gc.GenerationYoung).N())
	assert.Equal(t, int64(6000), store.Freed())
}

func TestStore_CountsFailuresInChildren(t *testing.T) {
	t.Parallel()

	store := gc.NewStore()
	store.Append(&gc.Event{
		Type:      gc.TypeGC,
		Timestamp: 1,
		Pause:     0.2,
		Children: []*gc.Event{
			{Type: gc.TypeParNew, Failure: true},
			{Type: gc.TypeCMS},
		},
	})
	store.Append(pauseEvent(2, 0.1))

	assert.Equal(t, int64(1), store.Failures())
	assert.Equal(t, int64(2), store.TypePause(gc.TypeGC).N())
	assert.Zero(t, store.TypePause(gc.TypeParNew).N())
	assert.Zero(t, store.TypePause(gc.Type(-1)).N())
}

func TestStore_ConcurrentReadersDuringAppend(t *testing.T) {
	t.Parallel()

	store := gc.NewStore()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			store.Append(pauseEvent(float64(i), 0.001*float64(i%7)))
		}
	}()
	for range 2 {
		go func() {
			defer wg.Done()
			for range 200 {
				n := 0
				for range store.Events() {
					n++
				}
				sum := gc.Summarize(store, []float64{100})
				assert.Equal(t, int64(sum.Events), sum.Pauses)
				if len(sum.Percentiles) > 0 {
					assert.InDelta(t, sum.MaxPause, sum.Percentiles[0].Value, 0)
				}
				_, _ = store.PausePercentile(90)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1000, store.Size())
	assert.Equal(t, int64(1000), store.Pause().N())
}

func TestStore_SnapshotIgnoresLaterAppends(t *testing.T) {
	t.Parallel()

	store := gc.NewStore()
	store.Append(pauseEvent(1, 0.01))
	store.Append(pauseEvent(2, 0.03))

	snap := store.Snapshot()
	store.Append(pauseEvent(3, 0.5))
	store.RecordFailure(gc.ParseError{LineNum: 4, Err: gc.ErrUnrecognized})

	assert.Equal(t, 2, snap.Size())
	assert.Equal(t, int64(2), snap.Pause().N())
	p100, err := snap.PausePercentile(100)
	require.NoError(t, err)
	assert.InDelta(t, 0.03, p100, 1e-12)
	assert.Zero(t, snap.Diagnostics().ErrorCount())
	first, last := snap.TimeRange()
	assert.InDelta(t, 1.0, first, 0)
	assert.InDelta(t, 2.0, last, 0)

	assert.Equal(t, 3, store.Size())
	assert.Equal(t, 1, store.Diagnostics().ErrorCount())
}
