package gc

import (
	"cmp"
	"slices"
	"time"

	"github.com/mabhi256/gcmodel/internal/stats"
	"github.com/mabhi256/gcmodel/utils"
)

// DefaultPercentiles are reported when the caller asks for none.
var DefaultPercentiles = []float64{50, 75, 90, 95, 99}

type PercentileValue struct {
	Percentile float64 `json:"percentile" yaml:"percentile"`
	Value      float64 `json:"value" yaml:"value"`
}

type GenerationSummary struct {
	Generation  Generation       `json:"generation" yaml:"generation"`
	Pauses      int64            `json:"pauses" yaml:"pauses"`
	TotalPause  float64          `json:"total_pause" yaml:"total_pause"`
	AvgPause    float64          `json:"avg_pause" yaml:"avg_pause"`
	AvgBefore   utils.MemorySize `json:"avg_before" yaml:"avg_before"`
	AvgAfter    utils.MemorySize `json:"avg_after" yaml:"avg_after"`
	MaxAfter    utils.MemorySize `json:"max_after" yaml:"max_after"`
	MaxCapacity utils.MemorySize `json:"max_capacity" yaml:"max_capacity"`
}

// CollectionSummary aggregates root events of one type.
type CollectionSummary struct {
	Type       Type    `json:"type" yaml:"type"`
	Count      int64   `json:"count" yaml:"count"`
	TotalPause float64 `json:"total_pause" yaml:"total_pause"`
	AvgPause   float64 `json:"avg_pause" yaml:"avg_pause"`
	MaxPause   float64 `json:"max_pause" yaml:"max_pause"`
}

// Summary is a point-in-time view of the derived figures of a Store. Times
// are in seconds; figures that cannot be computed are left at zero.
type Summary struct {
	Header Header `json:"header" yaml:"header"`

	Events          int   `json:"events" yaml:"events"`
	Pauses          int64 `json:"pauses" yaml:"pauses"`
	FullGCs         int64 `json:"full_gcs" yaml:"full_gcs"`
	ConcurrentCount int64 `json:"concurrent_phases" yaml:"concurrent_phases"`

	Runtime    float64 `json:"runtime" yaml:"runtime"`
	Throughput float64 `json:"throughput" yaml:"throughput"`

	TotalPause    float64           `json:"total_pause" yaml:"total_pause"`
	AvgPause      float64           `json:"avg_pause" yaml:"avg_pause"`
	PauseStdDev   float64           `json:"pause_stddev" yaml:"pause_stddev"`
	MinPause      float64           `json:"min_pause" yaml:"min_pause"`
	MaxPause      float64           `json:"max_pause" yaml:"max_pause"`
	Percentiles   []PercentileValue `json:"percentiles,omitempty" yaml:"percentiles,omitempty"`
	AvgInterval   float64           `json:"avg_pause_interval" yaml:"avg_pause_interval"`
	FullGCPause   float64           `json:"full_gc_pause" yaml:"full_gc_pause"`
	AvgFullGCTime float64           `json:"avg_full_gc_pause" yaml:"avg_full_gc_pause"`

	TotalConcurrent float64 `json:"total_concurrent" yaml:"total_concurrent"`
	AvgConcurrent   float64 `json:"avg_concurrent" yaml:"avg_concurrent"`

	MaxHeapCapacity utils.MemorySize `json:"max_heap_capacity" yaml:"max_heap_capacity"`
	MaxHeapUsed     utils.MemorySize `json:"max_heap_used" yaml:"max_heap_used"`
	AvgHeapAfter    utils.MemorySize `json:"avg_heap_after" yaml:"avg_heap_after"`
	Freed           utils.MemorySize `json:"freed" yaml:"freed"`
	FreedPerMinute  utils.MemorySize `json:"freed_per_minute" yaml:"freed_per_minute"`

	AvgFootprintAfterFullGC    utils.MemorySize `json:"avg_footprint_after_full_gc" yaml:"avg_footprint_after_full_gc"`
	FootprintAfterFullGCStdDev utils.MemorySize `json:"footprint_after_full_gc_stddev" yaml:"footprint_after_full_gc_stddev"`

	// Slopes are in KB per second.
	HeapGrowthSlope         float64 `json:"heap_growth_slope" yaml:"heap_growth_slope"`
	HeapGrowthCorrelation   float64 `json:"heap_growth_correlation" yaml:"heap_growth_correlation"`
	HasHeapGrowthSlope      bool    `json:"has_heap_growth_slope" yaml:"has_heap_growth_slope"`
	FullGCFootprintSlope    float64 `json:"full_gc_footprint_slope" yaml:"full_gc_footprint_slope"`
	HasFullGCFootprintSlope bool    `json:"has_full_gc_footprint_slope" yaml:"has_full_gc_footprint_slope"`

	Generations []GenerationSummary `json:"generations,omitempty" yaml:"generations,omitempty"`
	// Collections is ordered by count, most frequent first.
	Collections []CollectionSummary `json:"collections,omitempty" yaml:"collections,omitempty"`

	Failures    int64   `json:"failures" yaml:"failures"`
	FailureRate float64 `json:"failure_rate" yaml:"failure_rate"`

	AccurateTimestamps bool       `json:"accurate_timestamps" yaml:"accurate_timestamps"`
	FirstDateStamp     *time.Time `json:"first_date_stamp,omitempty" yaml:"first_date_stamp,omitempty"`

	ParseFailures     int `json:"parse_failures" yaml:"parse_failures"`
	DanglingPhases    int `json:"dangling_phases" yaml:"dangling_phases"`
	OrderingAnomalies int `json:"ordering_anomalies" yaml:"ordering_anomalies"`
}

// Summarize composes the accumulators of s into a Summary. It only reads
// the store and may run while ingestion is still appending; the figures
// come from a single Snapshot.
func Summarize(s *Store, percentiles []float64) Summary {
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}
	s = s.Snapshot()

	sum := Summary{
		Header:             s.Header(),
		Events:             s.Size(),
		AccurateTimestamps: s.HasAccurateTimestamp(),
	}

	if date, ok := s.FirstDateStamp(); ok {
		sum.FirstDateStamp = &date
	}

	pause := s.Pause()
	sum.Pauses = pause.N()
	sum.TotalPause = pause.Sum()
	sum.MinPause = pause.Min()
	sum.MaxPause = pause.Max()
	sum.AvgPause = stats.OrZero(pause.Average())
	sum.PauseStdDev = stats.OrZero(pause.StandardDeviation())

	for _, p := range percentiles {
		v, err := s.PausePercentile(p)
		if err != nil {
			break
		}
		sum.Percentiles = append(sum.Percentiles, PercentileValue{Percentile: p, Value: v})
	}

	sum.AvgInterval = stats.OrZero(s.PauseInterval().Average())

	full := s.FullGCPause()
	sum.FullGCs = full.N()
	sum.FullGCPause = full.Sum()
	sum.AvgFullGCTime = stats.OrZero(full.Average())

	concurrent := s.ConcurrentDuration()
	sum.ConcurrentCount = concurrent.N()
	sum.TotalConcurrent = concurrent.Sum()
	sum.AvgConcurrent = stats.OrZero(concurrent.Average())

	sum.Runtime = s.PauseRuntime()
	if sum.Runtime > 0 {
		sum.Throughput = 100 * (sum.Runtime - sum.TotalPause) / sum.Runtime
	}

	heap := s.HeapMemory()
	sum.MaxHeapCapacity = utils.FromKB(heap.Total.Max())
	sum.MaxHeapUsed = utils.FromKB(heap.Before.Max())
	sum.AvgHeapAfter = utils.FromKB(int64(stats.OrZero(heap.After.Average())))
	sum.Freed = utils.FromKB(s.Freed())

	first, last := s.TimeRange()
	if minutes := (last - first) / 60; minutes > 0 {
		sum.FreedPerMinute = utils.MemorySize(float64(sum.Freed) / minutes)
	}

	footprint := s.FullGCFootprint()
	sum.AvgFootprintAfterFullGC = utils.FromKB(int64(stats.OrZero(footprint.Average())))
	sum.FootprintAfterFullGCStdDev = utils.FromKB(int64(stats.OrZero(footprint.StandardDeviation())))

	growth := s.FootprintRegression()
	if slope, err := growth.Slope(); err == nil {
		sum.HeapGrowthSlope = slope
		sum.HasHeapGrowthSlope = true
		sum.HeapGrowthCorrelation = stats.OrZero(growth.Correlation())
	}

	fullGrowth := s.FullGCFootprintRegression()
	if slope, err := fullGrowth.Slope(); err == nil {
		sum.FullGCFootprintSlope = slope
		sum.HasFullGCFootprintSlope = true
	}

	for _, gen := range Generations {
		genPause := s.GenerationPause(gen)
		mem := s.GenerationMemory(gen)
		if genPause.N() == 0 && mem.After.N() == 0 {
			continue
		}
		sum.Generations = append(sum.Generations, GenerationSummary{
			Generation:  gen,
			Pauses:      genPause.N(),
			TotalPause:  genPause.Sum(),
			AvgPause:    stats.OrZero(genPause.Average()),
			AvgBefore:   utils.FromKB(int64(stats.OrZero(mem.Before.Average()))),
			AvgAfter:    utils.FromKB(int64(stats.OrZero(mem.After.Average()))),
			MaxAfter:    utils.FromKB(mem.After.Max()),
			MaxCapacity: utils.FromKB(mem.Total.Max()),
		})
	}

	for t := Type(0); t < numTypes; t++ {
		d := s.TypePause(t)
		if d.N() == 0 {
			continue
		}
		sum.Collections = append(sum.Collections, CollectionSummary{
			Type:       t,
			Count:      d.N(),
			TotalPause: d.Sum(),
			AvgPause:   stats.OrZero(d.Average()),
			MaxPause:   d.Max(),
		})
	}
	slices.SortStableFunc(sum.Collections, func(a, b CollectionSummary) int {
		return cmp.Compare(b.Count, a.Count)
	})

	sum.Failures = s.Failures()
	if sum.Events > 0 {
		sum.FailureRate = float64(sum.Failures) / float64(sum.Events)
	}

	diag := s.Diagnostics()
	sum.ParseFailures = diag.ErrorCount()
	sum.DanglingPhases = len(diag.Dangling)
	sum.OrderingAnomalies = diag.OrderingAnomalies

	return sum
}

// HeapGrowthMBPerHour converts the heap growth slope for reporting.
func (s Summary) HeapGrowthMBPerHour() float64 {
	return s.HeapGrowthSlope * 3600 / 1024
}
