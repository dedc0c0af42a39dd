package gc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mabhi256/gcmodel/internal/gc"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw       string
		wantType  gc.Type
		wantCause string
	}{
		{"GC", gc.TypeGC, ""},
		{"GC (Allocation Failure)", gc.TypeGC, "Allocation Failure"},
		{"Full GC (System.gc())", gc.TypeFullGC, "System.gc()"},
		{"Full GC (Metadata GC Threshold)", gc.TypeFullGC, "Metadata GC Threshold"},
		{"ParNew", gc.TypeParNew, ""},
		{"ParNew (promotion failed)", gc.TypeParNew, "promotion failed"},
		{"1 CMS-initial-mark", gc.TypeCMSInitialMark, ""},
		{"Rescan (parallel)", gc.TypeCMSRescan, "parallel"},
		{"CMS-concurrent-mark-start", gc.TypeCMSConcurrentMarkStart, ""},
		{"PSYoungGen", gc.TypePSYoungGen, ""},
		{"GC pause (young)", gc.TypeG1Young, ""},
		{"GC pause (G1 Evacuation Pause) (young)", gc.TypeG1Young, "G1 Evacuation Pause"},
		{"GC pause (G1 Humongous Allocation) (young) (initial-mark)", gc.TypeG1YoungInitialMark, "G1 Humongous Allocation"},
		{"GC pause (G1 Evacuation Pause) (mixed)", gc.TypeG1Mixed, "G1 Evacuation Pause"},
		{"Pause Young (Normal) (G1 Evacuation Pause)", gc.TypePauseYoung, "G1 Evacuation Pause"},
		{"Pause Young (Mixed) (G1 Evacuation Pause)", gc.TypePauseMixed, "G1 Evacuation Pause"},
		{"Pause Young (Concurrent Start) (G1 Humongous Allocation)", gc.TypePauseYoungConcurrentStart, "G1 Humongous Allocation"},
		{"Pause Full (System.gc())", gc.TypePauseFull, "System.gc()"},
		{"Concurrent Mark Cycle", gc.TypeConcurrentCycle, ""},
		{"Concurrent Mark (0.200s, 0.456s)", gc.TypeConcurrentMark, ""},
		{"Concurrent Rebuild Remembered Sets", gc.TypeConcurrentPhase, ""},
		{"Garbage Collection (Warmup)", gc.TypeGarbageCollection, "Warmup"},
		{"Frobnicate", gc.TypeUnknown, ""},
		{"", gc.TypeUnknown, ""},
	}

	for _, tt := range tests {
		got := gc.Classify(tt.raw)
		assert.Equal(t, tt.wantType, got.Type, "raw %q", tt.raw)
		assert.Equal(t, tt.wantCause, got.Cause, "raw %q", tt.raw)
	}
}

func TestType_Metadata(t *testing.T) {
	t.Parallel()

	assert.Equal(t, gc.GenerationYoung, gc.TypeParNew.Generation())
	assert.Equal(t, gc.GenerationTenured, gc.TypeCMS.Generation())
	assert.Equal(t, gc.GenerationPerm, gc.TypeMetaspace.Generation())
	assert.Equal(t, gc.GenerationAll, gc.TypeFullGC.Generation())

	assert.True(t, gc.TypeFullGC.IsFull())
	assert.True(t, gc.TypePauseFull.IsFull())
	assert.False(t, gc.TypeGC.IsFull())

	assert.Equal(t, gc.ConcurrentStart, gc.TypeCMSConcurrentSweepStart.Concurrency())
	assert.Equal(t, gc.ConcurrentEnd, gc.TypeCMSConcurrentSweep.Concurrency())
	assert.Equal(t, gc.TypeCMSConcurrentSweepStart.Phase(), gc.TypeCMSConcurrentSweep.Phase())
	assert.Equal(t, gc.TypeG1ConcurrentMarkStart.Phase(), gc.TypeG1ConcurrentMarkAbort.Phase())
	assert.False(t, gc.TypeParNew.IsConcurrent())

	assert.Equal(t, "ParNew", gc.TypeParNew.String())
	assert.Equal(t, "unknown", gc.Type(-1).String())
}

func TestClassify_Failure(t *testing.T) {
	t.Parallel()

	failed := []string{
		"GC--",
		"ParNew (promotion failed)",
		"GC pause (G1 Evacuation Pause) (young) (to-space exhausted)",
		"GC pause (G1 Evacuation Pause) (mixed) (to-space overflow)",
		"Pause Young (Normal) (G1 Evacuation Pause) (Evacuation Failure)",
	}
	for _, raw := range failed {
		assert.True(t, gc.Classify(raw).Failure, "raw %q", raw)
	}

	assert.Equal(t, gc.TypeG1Young, gc.Classify(failed[2]).Type)
	assert.Equal(t, "G1 Evacuation Pause", gc.Classify(failed[2]).Cause)

	for _, raw := range []string{"GC (Allocation Failure)", "Full GC (Ergonomics)", "Pause Young (Normal) (G1 Evacuation Pause)"} {
		assert.False(t, gc.Classify(raw).Failure, "raw %q", raw)
	}
}
