package gc

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/mabhi256/gcmodel/utils"
)

// Constants for analysis thresholds
const (
	// Performance targets
	ThroughputExcellent = 99.0
	ThroughputGood      = 95.0
	ThroughputPoor      = 90.0
	ThroughputCritical  = 80.0

	// Pause time targets
	PauseExcellent  = 10 * time.Millisecond
	PauseGood       = 50 * time.Millisecond
	PauseAcceptable = 100 * time.Millisecond
	PausePoor       = 200 * time.Millisecond
	PauseCritical   = 500 * time.Millisecond

	// Leak detection, MB per hour
	LeakGrowthCritical      = 5.0
	LeakGrowthWarning       = 1.0
	LeakConfidenceThreshold = 0.7
	MinEventsForTrend       = 20

	ConcurrentCycleWarning = 20 * time.Second

	// Share of events with a failed evacuation or promotion
	FailureRateCritical = 0.05
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

type PerformanceIssue struct {
	Type           string   `json:"type" yaml:"type"`
	Severity       string   `json:"severity" yaml:"severity"`
	Description    string   `json:"description" yaml:"description"`
	Recommendation []string `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
}

func severityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	}
	return 2
}

// DetectIssues applies threshold checks to a Summary. Issues come back
// ordered critical first.
func DetectIssues(sum Summary) []PerformanceIssue {
	var issues []PerformanceIssue

	if issue, ok := throughputIssue(sum); ok {
		issues = append(issues, issue)
	}
	if issue, ok := pauseIssue(sum); ok {
		issues = append(issues, issue)
	}
	if issue, ok := fullGCIssue(sum); ok {
		issues = append(issues, issue)
	}
	if issue, ok := failureIssue(sum); ok {
		issues = append(issues, issue)
	}
	if issue, ok := heapGrowthIssue(sum); ok {
		issues = append(issues, issue)
	}
	if issue, ok := concurrentIssue(sum); ok {
		issues = append(issues, issue)
	}
	if issue, ok := logQualityIssue(sum); ok {
		issues = append(issues, issue)
	}

	slices.SortStableFunc(issues, func(a, b PerformanceIssue) int {
		return cmp.Compare(severityRank(a.Severity), severityRank(b.Severity))
	})
	return issues
}

func throughputIssue(sum Summary) (PerformanceIssue, bool) {
	if sum.Runtime <= 0 || sum.Throughput >= ThroughputGood {
		return PerformanceIssue{}, false
	}

	severity := SeverityWarning
	if sum.Throughput < ThroughputCritical {
		severity = SeverityCritical
	}

	recommendations := []string{
		fmt.Sprintf("Application throughput %.1f%% is below target (>%.0f%%)", sum.Throughput, ThroughputGood),
		"Increase heap size to reduce GC frequency",
		"Profile application for allocation hotspots",
	}
	if sum.FullGCs > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d Full GCs detected - heap size may be insufficient", sum.FullGCs))
	}

	return PerformanceIssue{
		Type:           "Throughput",
		Severity:       severity,
		Description:    fmt.Sprintf("Throughput %.1f%% over %s", sum.Throughput, utils.FormatSeconds(sum.Runtime)),
		Recommendation: recommendations,
	}, true
}

func pauseIssue(sum Summary) (PerformanceIssue, bool) {
	maxPause := utils.Seconds(sum.MaxPause)
	if sum.Pauses == 0 || maxPause <= PausePoor {
		return PerformanceIssue{}, false
	}

	severity := SeverityWarning
	if maxPause > PauseCritical {
		severity = SeverityCritical
	}

	return PerformanceIssue{
		Type:        "Pause Time",
		Severity:    severity,
		Description: fmt.Sprintf("Maximum pause %s exceeds %v", utils.FormatDuration(maxPause), PausePoor),
		Recommendation: []string{
			fmt.Sprintf("Set pause target: -XX:MaxGCPauseMillis=%d", PauseAcceptable.Milliseconds()),
			"Increase heap size to reduce memory pressure",
			"Consider low-latency collectors: ZGC (-XX:+UseZGC) or Shenandoah",
		},
	}, true
}

func fullGCIssue(sum Summary) (PerformanceIssue, bool) {
	if sum.FullGCs == 0 {
		return PerformanceIssue{}, false
	}

	severity := SeverityWarning
	if sum.FullGCs > 1 {
		severity = SeverityCritical
	}

	return PerformanceIssue{
		Type:     "Full GC Events",
		Severity: severity,
		Description: fmt.Sprintf("%d Full GCs took %s (avg %s)",
			sum.FullGCs, utils.FormatSeconds(sum.FullGCPause), utils.FormatSeconds(sum.AvgFullGCTime)),
		Recommendation: []string{
			"Full GCs stop the whole application while the entire heap is collected",
			"Increase heap size or start concurrent cycles earlier",
			"Check for explicit System.gc() calls: -XX:+DisableExplicitGC",
		},
	}, true
}

func failureIssue(sum Summary) (PerformanceIssue, bool) {
	if sum.Failures == 0 {
		return PerformanceIssue{}, false
	}

	description := fmt.Sprintf("%d collections (%.1f%% of events) failed to evacuate or promote live objects",
		sum.Failures, sum.FailureRate*100)

	if sum.FailureRate > FailureRateCritical {
		return PerformanceIssue{
			Type:        "Critical Evacuation Failures",
			Severity:    SeverityCritical,
			Description: description,
			Recommendation: []string{
				"Increase heap size: -Xmx<larger_value>",
				"Increase reserve space: -XX:G1ReservePercent=20",
				"Start concurrent cycles earlier: -XX:InitiatingHeapOccupancyPercent=35",
				"Check for humongous objects filling old regions",
			},
		}, true
	}

	return PerformanceIssue{
		Type:        "Evacuation Failures",
		Severity:    SeverityWarning,
		Description: description,
		Recommendation: []string{
			"Increase reserve space: -XX:G1ReservePercent=15",
			"Monitor promotion rate and old generation occupancy",
		},
	}, true
}

func heapGrowthIssue(sum Summary) (PerformanceIssue, bool) {
	if !sum.HasHeapGrowthSlope || sum.Events < MinEventsForTrend || sum.HeapGrowthCorrelation < LeakConfidenceThreshold {
		return PerformanceIssue{}, false
	}

	growth := sum.HeapGrowthMBPerHour()
	if growth < LeakGrowthWarning {
		return PerformanceIssue{}, false
	}

	severity := SeverityWarning
	if growth >= LeakGrowthCritical {
		severity = SeverityCritical
	}

	return PerformanceIssue{
		Type:     "Heap Growth",
		Severity: severity,
		Description: fmt.Sprintf("Heap after collection grows %.2f MB/hour (r=%.2f)",
			growth, sum.HeapGrowthCorrelation),
		Recommendation: []string{
			"Take heap dump: jcmd <pid> GC.heap_dump growth.hprof",
			"Enable OOM dumps: -XX:+HeapDumpOnOutOfMemoryError",
			"Look for: unclosed resources, static collections, event listeners, caches",
		},
	}, true
}

func concurrentIssue(sum Summary) (PerformanceIssue, bool) {
	if sum.ConcurrentCount == 0 || utils.Seconds(sum.AvgConcurrent) < ConcurrentCycleWarning {
		return PerformanceIssue{}, false
	}

	return PerformanceIssue{
		Type:        "Long Concurrent Phases",
		Severity:    SeverityWarning,
		Description: fmt.Sprintf("Concurrent phases average %s", utils.FormatSeconds(sum.AvgConcurrent)),
		Recommendation: []string{
			"Increase concurrent GC threads: -XX:ConcGCThreads=<n>",
			"Start marking earlier: -XX:InitiatingHeapOccupancyPercent=35",
		},
	}, true
}

func logQualityIssue(sum Summary) (PerformanceIssue, bool) {
	if sum.ParseFailures == 0 && sum.DanglingPhases == 0 && sum.OrderingAnomalies == 0 {
		return PerformanceIssue{}, false
	}

	return PerformanceIssue{
		Type:     "Log Quality",
		Severity: SeverityInfo,
		Description: fmt.Sprintf("%d unparsed lines, %d unfinished concurrent phases, %d out-of-order events",
			sum.ParseFailures, sum.DanglingPhases, sum.OrderingAnomalies),
		Recommendation: []string{
			"Run 'gcmodel gc validate' to list the affected lines",
		},
	}, true
}
