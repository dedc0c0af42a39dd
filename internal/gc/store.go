package gc

import (
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/mabhi256/gcmodel/internal/stats"
)

// Store is the append-only, time-ordered sequence of root events of one
// GC log, together with accumulators that mirror its contents. A single
// writer appends while any number of readers query.
type Store struct {
	mu sync.RWMutex

	events []*Event
	header Header
	diag   Diagnostics

	pause       stats.DoubleData
	percentiles *stats.Percentile
	fullGCPause stats.DoubleData

	genPause  [numGenerations]stats.DoubleData
	genMemory [numGenerations]MemoryStats
	heap      MemoryStats

	fullGCFootprint           stats.IntData
	footprint                 stats.Regression
	fullGCFootprintRegression stats.Regression

	concurrent    stats.DoubleData
	pauseInterval stats.DoubleData
	freed         int64

	byType   [numTypes]stats.DoubleData
	failures int64

	firstTimestamp  float64
	lastTimestamp   float64
	lastPauseStart  float64
	lastPause       float64
	firstPauseStart float64
	havePause       bool
	firstDateStamp  time.Time
	accurate        bool
}

// MemoryStats accumulates memory figures in KB.
type MemoryStats struct {
	Before stats.IntData
	After  stats.IntData
	Total  stats.IntData
}

func (m *MemoryStats) add(ev *Event) {
	if !ev.HasMemory {
		return
	}
	m.Before.Add(ev.MemoryBefore)
	m.After.Add(ev.MemoryAfter)
	if ev.MemoryTotal > 0 {
		m.Total.Add(ev.MemoryTotal)
	}
}

func NewStore() *Store {
	return &Store{
		percentiles: stats.NewPercentile(),
		accurate:    true,
	}
}

// Append publishes a fully built root event and folds it into every
// accumulator. The event must not be modified afterwards.
func (s *Store) Append(ev *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		s.firstTimestamp = ev.Timestamp
		s.lastTimestamp = ev.Timestamp
	}
	s.events = append(s.events, ev)
	s.firstTimestamp = min(s.firstTimestamp, ev.Timestamp)
	s.lastTimestamp = max(s.lastTimestamp, ev.Timestamp)

	if ev.InferredTimestamp {
		s.accurate = false
	}
	if s.firstDateStamp.IsZero() && !ev.DateStamp.IsZero() {
		s.firstDateStamp = ev.DateStamp
	}

	if ev.HasMemory {
		s.heap.add(ev)
		s.footprint.Add(ev.Timestamp, float64(ev.MemoryAfter))
		s.freed += ev.Freed()
	}

	if ev.Type >= 0 && ev.Type < numTypes {
		s.byType[ev.Type].Add(ev.Pause)
	}
	if ev.hasFailure() {
		s.failures++
	}

	if !ev.IsStopTheWorld() {
		if ev.Concurrency == Concurrent || ev.Pause > 0 {
			s.concurrent.Add(ev.Pause)
		}
		return
	}

	s.pause.Add(ev.Pause)
	s.percentiles.Add(ev.Pause)

	// Concurrent phases carry their start time but are published at their
	// end, so only stop-the-world roots are checked for order.
	if s.havePause {
		if ev.Timestamp < s.lastPauseStart {
			s.diag.OrderingAnomalies++
		}
		s.pauseInterval.Add(ev.Timestamp - s.lastPauseStart)
	} else {
		s.firstPauseStart = ev.Timestamp
		s.havePause = true
	}
	s.lastPauseStart = ev.Timestamp
	s.lastPause = ev.Pause

	if ev.IsFull() {
		s.fullGCPause.Add(ev.Pause)
		if ev.HasMemory {
			s.fullGCFootprint.Add(ev.MemoryAfter)
			s.fullGCFootprintRegression.Add(ev.Timestamp, float64(ev.MemoryAfter))
		}
	}

	for _, child := range ev.Children {
		child.Walk(func(_ int, sub *Event) {
			gen := sub.Type.Generation()
			if gen == GenerationNone || gen == GenerationAll {
				return
			}
			if sub.Pause > 0 {
				s.genPause[gen].Add(sub.Pause)
			}
			s.genMemory[gen].add(sub)
		})
	}
}

// RecordFailure adds a line that could not be parsed to the diagnostics.
func (s *Store) RecordFailure(err ParseError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diag.ParseFailures = append(s.diag.ParseFailures, err)
}

func (s *Store) RecordDangling(phases ...DanglingPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diag.Dangling = append(s.diag.Dangling, phases...)
}

func (s *Store) RecordIgnored() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diag.IgnoredLines++
}

func (s *Store) MergeHeader(h Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header.merge(h)
}

func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *Store) IsEmpty() bool {
	return s.Size() == 0
}

// Events iterates in insertion order over the events present when Events
// was called. Events appended later are not seen; the sequence can be
// ranged over again.
func (s *Store) Events() iter.Seq[*Event] {
	s.mu.RLock()
	snapshot := s.events[:len(s.events):len(s.events)]
	s.mu.RUnlock()

	return func(yield func(*Event) bool) {
		for _, ev := range snapshot {
			if !yield(ev) {
				return
			}
		}
	}
}

// At returns the i-th event in insertion order.
func (s *Store) At(i int) *Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events[i]
}

// HasAccurateTimestamp reports whether every event so far had an
// elapsed-time field. An empty store is accurate.
func (s *Store) HasAccurateTimestamp() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accurate
}

// FirstDateStamp returns the first absolute date-stamp seen, if any.
func (s *Store) FirstDateStamp() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstDateStamp, !s.firstDateStamp.IsZero()
}

// Pause returns statistics over stop-the-world root pauses in seconds.
func (s *Store) Pause() stats.DoubleData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pause
}

// PausePercentile returns the p-th percentile of the samples in Pause.
func (s *Store) PausePercentile(p float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.percentiles.Value(p)
}

func (s *Store) FullGCPause() stats.DoubleData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullGCPause
}

// GenerationPause returns pause statistics of sub-events that collected gen.
func (s *Store) GenerationPause(gen Generation) stats.DoubleData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if gen < 0 || int(gen) >= numGenerations {
		return stats.DoubleData{}
	}
	return s.genPause[gen]
}

func (s *Store) GenerationMemory(gen Generation) MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if gen < 0 || int(gen) >= numGenerations {
		return MemoryStats{}
	}
	return s.genMemory[gen]
}

// HeapMemory returns whole-heap figures reported by root events.
func (s *Store) HeapMemory() MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heap
}

// FullGCFootprint returns heap occupancy after full collections.
func (s *Store) FullGCFootprint() stats.IntData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullGCFootprint
}

// FootprintRegression fits heap occupancy after collection against time.
func (s *Store) FootprintRegression() stats.Regression {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.footprint
}

func (s *Store) FullGCFootprintRegression() stats.Regression {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullGCFootprintRegression
}

// ConcurrentDuration returns durations of finished concurrent phases.
func (s *Store) ConcurrentDuration() stats.DoubleData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.concurrent
}

// PauseInterval returns the time between consecutive pause starts.
func (s *Store) PauseInterval() stats.DoubleData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pauseInterval
}

// TypePause returns the pause (or duration, for concurrent phases) of root
// events of type t.
func (s *Store) TypePause(t Type) stats.DoubleData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t < 0 || t >= numTypes {
		return stats.DoubleData{}
	}
	return s.byType[t]
}

// Failures counts root events in which any collection failed to move
// all live objects.
func (s *Store) Failures() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures
}

// Freed is the total memory released by root events in KB.
func (s *Store) Freed() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freed
}

// TimeRange returns the earliest and latest timestamps seen.
func (s *Store) TimeRange() (first, last float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstTimestamp, s.lastTimestamp
}

// PauseRuntime is the time from the first pause start to the end of the
// last pause, or 0 without pauses.
func (s *Store) PauseRuntime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.havePause {
		return 0
	}
	return s.lastPauseStart + s.lastPause - s.firstPauseStart
}

func (s *Store) Header() Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header
}

// Snapshot returns a copy of the store as of now. Appends to s are not
// seen by the copy, so its accessors agree with each other while ingestion
// goes on.
func (s *Store) Snapshot() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Store{
		events: s.events[:len(s.events):len(s.events)],
		header: s.header,
		diag: Diagnostics{
			ParseFailures:     slices.Clone(s.diag.ParseFailures),
			Dangling:          slices.Clone(s.diag.Dangling),
			IgnoredLines:      s.diag.IgnoredLines,
			OrderingAnomalies: s.diag.OrderingAnomalies,
		},

		pause:       s.pause,
		percentiles: s.percentiles.Clone(),
		fullGCPause: s.fullGCPause,

		genPause:  s.genPause,
		genMemory: s.genMemory,
		heap:      s.heap,

		fullGCFootprint:           s.fullGCFootprint,
		footprint:                 s.footprint,
		fullGCFootprintRegression: s.fullGCFootprintRegression,

		concurrent:    s.concurrent,
		pauseInterval: s.pauseInterval,
		freed:         s.freed,

		byType:   s.byType,
		failures: s.failures,

		firstTimestamp:  s.firstTimestamp,
		lastTimestamp:   s.lastTimestamp,
		lastPauseStart:  s.lastPauseStart,
		lastPause:       s.lastPause,
		firstPauseStart: s.firstPauseStart,
		havePause:       s.havePause,
		firstDateStamp:  s.firstDateStamp,
		accurate:        s.accurate,
	}
}

// Diagnostics returns a copy of the problems recorded so far.
func (s *Store) Diagnostics() Diagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := s.diag
	d.ParseFailures = append([]ParseError(nil), s.diag.ParseFailures...)
	d.Dangling = append([]DanglingPhase(nil), s.diag.Dangling...)
	return d
}
