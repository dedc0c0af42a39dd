package gc

import (
	"time"

	"github.com/mabhi256/gcmodel/utils"
)

// Generation is the heap area an event collected.
type Generation int

const (
	GenerationNone Generation = iota
	GenerationYoung
	GenerationTenured
	GenerationPerm // permanent generation or metaspace
	GenerationAll  // whole heap

	numGenerations = int(GenerationAll) + 1
)

var generationNames = [...]string{
	GenerationNone:    "none",
	GenerationYoung:   "young",
	GenerationTenured: "tenured",
	GenerationPerm:    "perm",
	GenerationAll:     "all",
}

func (g Generation) String() string {
	if g < 0 || int(g) >= len(generationNames) {
		return "unknown"
	}
	return generationNames[g]
}

func (g Generation) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Generations lists the generations that carry per-generation statistics.
var Generations = []Generation{GenerationYoung, GenerationTenured, GenerationPerm}

// Concurrency tells stop-the-world pauses apart from concurrent phases.
type Concurrency int

const (
	StopTheWorld Concurrency = iota
	// ConcurrentStart opens a phase that a later ConcurrentEnd closes.
	ConcurrentStart
	// ConcurrentEnd closes a phase. Published events with this marker had
	// no matching start.
	ConcurrentEnd
	// Concurrent is a finished concurrent phase with a known duration.
	Concurrent
)

func (c Concurrency) String() string {
	switch c {
	case StopTheWorld:
		return "stw"
	case ConcurrentStart:
		return "concurrent-start"
	case ConcurrentEnd:
		return "concurrent-end"
	case Concurrent:
		return "concurrent"
	}
	return "unknown"
}

func (c Concurrency) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Event is one classified occurrence in a GC log. Once appended to a Store
// an event must not be modified.
//
// Pause and memory figures describe only the event's own contribution;
// Children carry their own figures. For concurrent events Pause holds the
// phase duration.
type Event struct {
	Timestamp float64 // seconds since JVM start
	DateStamp time.Time
	// InferredTimestamp is set when the log line carried no elapsed-time
	// field and Timestamp was derived from a date-stamp or a previous line.
	InferredTimestamp bool

	Type        Type
	Cause       string
	Concurrency Concurrency
	GCID        int // unified logging GC(n) id, -1 when absent
	Failure     bool

	Pause float64 // seconds

	HasMemory    bool
	MemoryBefore int64 // KB
	MemoryAfter  int64 // KB
	MemoryTotal  int64 // KB

	Children []*Event

	LineNum int
}

func (e *Event) IsFull() bool {
	return e.Type.IsFull()
}

func (e *Event) IsStopTheWorld() bool {
	return e.Concurrency == StopTheWorld
}

// Freed returns the memory released by the event in KB.
func (e *Event) Freed() int64 {
	if !e.HasMemory {
		return 0
	}
	return e.MemoryBefore - e.MemoryAfter
}

func (e *Event) hasFailure() bool {
	failed := false
	e.Walk(func(_ int, ev *Event) {
		failed = failed || ev.Failure
	})
	return failed
}

// Walk visits e and every descendant depth-first in source order.
func (e *Event) Walk(fn func(depth int, ev *Event)) {
	e.walk(0, fn)
}

func (e *Event) walk(depth int, fn func(int, *Event)) {
	fn(depth, e)
	for _, child := range e.Children {
		child.walk(depth+1, fn)
	}
}

func (e *Event) setMemory(before, after, total int64, hasBefore bool) {
	e.HasMemory = true
	e.MemoryAfter = after
	e.MemoryTotal = total
	if hasBefore {
		e.MemoryBefore = before
	} else {
		e.MemoryBefore = after
	}
}

// Header holds JVM facts discovered in informational log lines.
type Header struct {
	JVMVersion     string           `json:"jvm_version,omitempty" yaml:"jvm_version,omitempty"`
	CommandLine    string           `json:"command_line,omitempty" yaml:"command_line,omitempty"`
	HeapRegionSize utils.MemorySize `json:"heap_region_size,omitempty" yaml:"heap_region_size,omitempty"`
	HeapMax        utils.MemorySize `json:"heap_max,omitempty" yaml:"heap_max,omitempty"`
}

func (h *Header) merge(other Header) {
	if other.JVMVersion != "" {
		h.JVMVersion = other.JVMVersion
	}
	if other.CommandLine != "" {
		h.CommandLine = other.CommandLine
	}
	if other.HeapRegionSize > 0 {
		h.HeapRegionSize = other.HeapRegionSize
	}
	if other.HeapMax > 0 {
		h.HeapMax = other.HeapMax
	}
}

// DanglingPhase is a concurrent phase start that never saw its end.
type DanglingPhase struct {
	Type      Type
	GCID      int
	Timestamp float64
	LineNum   int
}

// Diagnostics collects non-fatal problems found while ingesting a log.
type Diagnostics struct {
	ParseFailures     []ParseError
	Dangling          []DanglingPhase
	OrderingAnomalies int
	IgnoredLines      int
}

// ErrorCount is the number of lines that could not be parsed.
func (d Diagnostics) ErrorCount() int {
	return len(d.ParseFailures)
}
