package gc

import (
	"strings"
)

// Type is the closed set of event kinds recognized across collector dialects.
type Type int

const (
	TypeUnknown Type = iota

	// Classic roots
	TypeGC
	TypeFullGC
	TypeGCPromotionFailed // "GC--"

	// Serial
	TypeDefNew
	TypeTenured
	TypePerm
	TypeMetaspace

	// ParNew / CMS
	TypeParNew
	TypeASParNew
	TypeCMS
	TypeCMSPerm
	TypeCMSInitialMark
	TypeCMSRemark
	TypeCMSYGOccupancy
	TypeCMSRescan
	TypeCMSWeakRefs
	TypeCMSClassUnloading
	TypeCMSScrubSymbolTable
	TypeCMSScrubStringTable
	TypeCMSConcurrentMarkStart
	TypeCMSConcurrentMark
	TypeCMSConcurrentPrecleanStart
	TypeCMSConcurrentPreclean
	TypeCMSConcurrentAbortablePrecleanStart
	TypeCMSConcurrentAbortablePreclean
	TypeCMSConcurrentSweepStart
	TypeCMSConcurrentSweep
	TypeCMSConcurrentResetStart
	TypeCMSConcurrentReset

	// Parallel
	TypePSYoungGen
	TypePSOldGen
	TypeParOldGen
	TypePSPermGen

	// G1 classic
	TypeG1Young
	TypeG1Mixed
	TypeG1YoungInitialMark
	TypeG1MixedInitialMark
	TypeG1Remark
	TypeG1RefProc
	TypeG1Cleanup
	TypeG1ConcurrentRootRegionScanStart
	TypeG1ConcurrentRootRegionScanEnd
	TypeG1ConcurrentMarkStart
	TypeG1ConcurrentMarkEnd
	TypeG1ConcurrentMarkAbort
	TypeG1ConcurrentCleanupStart
	TypeG1ConcurrentCleanupEnd

	// Unified logging
	TypePauseYoung
	TypePauseMixed
	TypePauseYoungConcurrentStart
	TypePauseYoungPrepareMixed
	TypePauseFull
	TypePauseRemark
	TypePauseCleanup
	TypePauseInitMark
	TypePauseFinalMark
	TypePauseInitUpdateRefs
	TypePauseFinalUpdateRefs
	TypePauseMarkStart
	TypePauseMarkEnd
	TypePauseRelocateStart
	TypeConcurrentCycle
	TypeConcurrentMark
	TypeConcurrentMarkAbort
	TypeConcurrentPhase // any other "Concurrent ..." phase
	TypeGarbageCollection

	numTypes
)

type typeInfo struct {
	name        string
	generation  Generation
	concurrency Concurrency
	full        bool
	// phase pairs concurrent starts with their ends.
	phase string
}

var typeTable = [numTypes]typeInfo{
	TypeUnknown: {name: "unknown"},

	TypeGC:                {name: "GC", generation: GenerationAll},
	TypeFullGC:            {name: "Full GC", generation: GenerationAll, full: true},
	TypeGCPromotionFailed: {name: "GC--", generation: GenerationAll},

	TypeDefNew:    {name: "DefNew", generation: GenerationYoung},
	TypeTenured:   {name: "Tenured", generation: GenerationTenured},
	TypePerm:      {name: "Perm", generation: GenerationPerm},
	TypeMetaspace: {name: "Metaspace", generation: GenerationPerm},

	TypeParNew:              {name: "ParNew", generation: GenerationYoung},
	TypeASParNew:            {name: "ASParNew", generation: GenerationYoung},
	TypeCMS:                 {name: "CMS", generation: GenerationTenured},
	TypeCMSPerm:             {name: "CMS Perm", generation: GenerationPerm},
	TypeCMSInitialMark:      {name: "CMS-initial-mark", generation: GenerationTenured},
	TypeCMSRemark:           {name: "CMS-remark", generation: GenerationTenured},
	TypeCMSYGOccupancy:      {name: "YG occupancy"},
	TypeCMSRescan:           {name: "Rescan"},
	TypeCMSWeakRefs:         {name: "weak refs processing"},
	TypeCMSClassUnloading:   {name: "class unloading"},
	TypeCMSScrubSymbolTable: {name: "scrub symbol table"},
	TypeCMSScrubStringTable: {name: "scrub string table"},

	TypeCMSConcurrentMarkStart:              {name: "CMS-concurrent-mark-start", concurrency: ConcurrentStart, phase: "cms-mark"},
	TypeCMSConcurrentMark:                   {name: "CMS-concurrent-mark", concurrency: ConcurrentEnd, phase: "cms-mark"},
	TypeCMSConcurrentPrecleanStart:          {name: "CMS-concurrent-preclean-start", concurrency: ConcurrentStart, phase: "cms-preclean"},
	TypeCMSConcurrentPreclean:               {name: "CMS-concurrent-preclean", concurrency: ConcurrentEnd, phase: "cms-preclean"},
	TypeCMSConcurrentAbortablePrecleanStart: {name: "CMS-concurrent-abortable-preclean-start", concurrency: ConcurrentStart, phase: "cms-abortable-preclean"},
	TypeCMSConcurrentAbortablePreclean:      {name: "CMS-concurrent-abortable-preclean", concurrency: ConcurrentEnd, phase: "cms-abortable-preclean"},
	TypeCMSConcurrentSweepStart:             {name: "CMS-concurrent-sweep-start", concurrency: ConcurrentStart, phase: "cms-sweep"},
	TypeCMSConcurrentSweep:                  {name: "CMS-concurrent-sweep", concurrency: ConcurrentEnd, phase: "cms-sweep"},
	TypeCMSConcurrentResetStart:             {name: "CMS-concurrent-reset-start", concurrency: ConcurrentStart, phase: "cms-reset"},
	TypeCMSConcurrentReset:                  {name: "CMS-concurrent-reset", concurrency: ConcurrentEnd, phase: "cms-reset"},

	TypePSYoungGen: {name: "PSYoungGen", generation: GenerationYoung},
	TypePSOldGen:   {name: "PSOldGen", generation: GenerationTenured},
	TypeParOldGen:  {name: "ParOldGen", generation: GenerationTenured},
	TypePSPermGen:  {name: "PSPermGen", generation: GenerationPerm},

	TypeG1Young:            {name: "GC pause (young)", generation: GenerationAll},
	TypeG1Mixed:            {name: "GC pause (mixed)", generation: GenerationAll},
	TypeG1YoungInitialMark: {name: "GC pause (young) (initial-mark)", generation: GenerationAll},
	TypeG1MixedInitialMark: {name: "GC pause (mixed) (initial-mark)", generation: GenerationAll},
	TypeG1Remark:           {name: "GC remark", generation: GenerationAll},
	TypeG1RefProc:          {name: "GC ref-proc"},
	TypeG1Cleanup:          {name: "GC cleanup", generation: GenerationAll},

	TypeG1ConcurrentRootRegionScanStart: {name: "GC concurrent-root-region-scan-start", concurrency: ConcurrentStart, phase: "g1-root-region-scan"},
	TypeG1ConcurrentRootRegionScanEnd:   {name: "GC concurrent-root-region-scan-end", concurrency: ConcurrentEnd, phase: "g1-root-region-scan"},
	TypeG1ConcurrentMarkStart:           {name: "GC concurrent-mark-start", concurrency: ConcurrentStart, phase: "g1-mark"},
	TypeG1ConcurrentMarkEnd:             {name: "GC concurrent-mark-end", concurrency: ConcurrentEnd, phase: "g1-mark"},
	TypeG1ConcurrentMarkAbort:           {name: "GC concurrent-mark-abort", concurrency: ConcurrentEnd, phase: "g1-mark"},
	TypeG1ConcurrentCleanupStart:        {name: "GC concurrent-cleanup-start", concurrency: ConcurrentStart, phase: "g1-cleanup"},
	TypeG1ConcurrentCleanupEnd:          {name: "GC concurrent-cleanup-end", concurrency: ConcurrentEnd, phase: "g1-cleanup"},

	TypePauseYoung:                {name: "Pause Young", generation: GenerationAll},
	TypePauseMixed:                {name: "Pause Young (Mixed)", generation: GenerationAll},
	TypePauseYoungConcurrentStart: {name: "Pause Young (Concurrent Start)", generation: GenerationAll},
	TypePauseYoungPrepareMixed:    {name: "Pause Young (Prepare Mixed)", generation: GenerationAll},
	TypePauseFull:                 {name: "Pause Full", generation: GenerationAll, full: true},
	TypePauseRemark:               {name: "Pause Remark", generation: GenerationAll},
	TypePauseCleanup:              {name: "Pause Cleanup", generation: GenerationAll},
	TypePauseInitMark:             {name: "Pause Init Mark", generation: GenerationAll},
	TypePauseFinalMark:            {name: "Pause Final Mark", generation: GenerationAll},
	TypePauseInitUpdateRefs:       {name: "Pause Init Update Refs", generation: GenerationAll},
	TypePauseFinalUpdateRefs:      {name: "Pause Final Update Refs", generation: GenerationAll},
	TypePauseMarkStart:            {name: "Pause Mark Start", generation: GenerationAll},
	TypePauseMarkEnd:              {name: "Pause Mark End", generation: GenerationAll},
	TypePauseRelocateStart:        {name: "Pause Relocate Start", generation: GenerationAll},

	// Unified concurrent phases print a start line without a duration and
	// an end line with one; the builder pairs them by phase and GC id.
	TypeConcurrentCycle:     {name: "Concurrent Cycle", concurrency: Concurrent, phase: "cycle"},
	TypeConcurrentMark:      {name: "Concurrent Mark", concurrency: Concurrent, phase: "mark"},
	TypeConcurrentMarkAbort: {name: "Concurrent Mark Abort", concurrency: ConcurrentEnd, phase: "mark"},
	TypeConcurrentPhase:     {name: "Concurrent", concurrency: Concurrent, phase: "concurrent"},
	TypeGarbageCollection:   {name: "Garbage Collection", generation: GenerationAll, concurrency: Concurrent, phase: "zgc"},
}

// typeNames maps every spelling seen in logs to its Type.
var typeNames = map[string]Type{
	"GC":        TypeGC,
	"Full GC":   TypeFullGC,
	"GC--":      TypeGCPromotionFailed,
	"Full GC--": TypeFullGC,

	"DefNew":    TypeDefNew,
	"Tenured":   TypeTenured,
	"Perm":      TypePerm,
	"Metaspace": TypeMetaspace,

	"ParNew":               TypeParNew,
	"ASParNew":             TypeASParNew,
	"CMS":                  TypeCMS,
	"CMS Perm":             TypeCMSPerm,
	"CMS-initial-mark":     TypeCMSInitialMark,
	"1 CMS-initial-mark":   TypeCMSInitialMark,
	"CMS-remark":           TypeCMSRemark,
	"1 CMS-remark":         TypeCMSRemark,
	"YG occupancy":         TypeCMSYGOccupancy,
	"Rescan":               TypeCMSRescan,
	"weak refs processing": TypeCMSWeakRefs,
	"class unloading":      TypeCMSClassUnloading,
	"scrub symbol table":   TypeCMSScrubSymbolTable,
	"scrub string table":   TypeCMSScrubStringTable,

	"CMS-concurrent-mark-start":               TypeCMSConcurrentMarkStart,
	"CMS-concurrent-mark":                     TypeCMSConcurrentMark,
	"CMS-concurrent-preclean-start":           TypeCMSConcurrentPrecleanStart,
	"CMS-concurrent-preclean":                 TypeCMSConcurrentPreclean,
	"CMS-concurrent-abortable-preclean-start": TypeCMSConcurrentAbortablePrecleanStart,
	"CMS-concurrent-abortable-preclean":       TypeCMSConcurrentAbortablePreclean,
	"CMS-concurrent-sweep-start":              TypeCMSConcurrentSweepStart,
	"CMS-concurrent-sweep":                    TypeCMSConcurrentSweep,
	"CMS-concurrent-reset-start":              TypeCMSConcurrentResetStart,
	"CMS-concurrent-reset":                    TypeCMSConcurrentReset,

	"PSYoungGen": TypePSYoungGen,
	"PSOldGen":   TypePSOldGen,
	"ParOldGen":  TypeParOldGen,
	"PSPermGen":  TypePSPermGen,

	"GC pause (young)":                TypeG1Young,
	"GC pause (mixed)":                TypeG1Mixed,
	"GC pause (young) (initial-mark)": TypeG1YoungInitialMark,
	"GC pause (mixed) (initial-mark)": TypeG1MixedInitialMark,
	"GC remark":                       TypeG1Remark,
	"GC ref-proc":                     TypeG1RefProc,
	"GC cleanup":                      TypeG1Cleanup,

	"GC concurrent-root-region-scan-start": TypeG1ConcurrentRootRegionScanStart,
	"GC concurrent-root-region-scan-end":   TypeG1ConcurrentRootRegionScanEnd,
	"GC concurrent-mark-start":             TypeG1ConcurrentMarkStart,
	"GC concurrent-mark-end":               TypeG1ConcurrentMarkEnd,
	"GC concurrent-mark-abort":             TypeG1ConcurrentMarkAbort,
	"GC concurrent-cleanup-start":          TypeG1ConcurrentCleanupStart,
	"GC concurrent-cleanup-end":            TypeG1ConcurrentCleanupEnd,

	"Pause Young":                    TypePauseYoung,
	"Pause Young (Mixed)":            TypePauseMixed,
	"Pause Young (Concurrent Start)": TypePauseYoungConcurrentStart,
	"Pause Young (Prepare Mixed)":    TypePauseYoungPrepareMixed,
	"Pause Mixed":                    TypePauseMixed,
	"Pause Initial Mark":             TypePauseYoungConcurrentStart,
	"Pause Full":                     TypePauseFull,
	"Pause Remark":                   TypePauseRemark,
	"Pause Cleanup":                  TypePauseCleanup,
	"Pause Init Mark":                TypePauseInitMark,
	"Pause Final Mark":               TypePauseFinalMark,
	"Pause Init Update Refs":         TypePauseInitUpdateRefs,
	"Pause Final Update Refs":        TypePauseFinalUpdateRefs,
	"Pause Mark Start":               TypePauseMarkStart,
	"Pause Mark End":                 TypePauseMarkEnd,
	"Pause Relocate Start":           TypePauseRelocateStart,
	"Concurrent Cycle":               TypeConcurrentCycle,
	"Concurrent Mark Cycle":          TypeConcurrentCycle,
	"Concurrent Mark":                TypeConcurrentMark,
	"Concurrent Mark Abort":          TypeConcurrentMarkAbort,
	"Garbage Collection":             TypeGarbageCollection,
}

// qualifiers are parentheticals that belong to an event's identity rather
// than its cause.
var qualifiers = map[string]bool{
	"young":            true,
	"mixed":            true,
	"initial-mark":     true,
	"concurrent start": true,
	"prepare mixed":    true,
}

var causePatterns = []string{"Allocation", "Pause", "System", "Compaction", "Periodic Collection", "Ergonomics", "GCLocker", "Threshold", "Humongous", "JvmtiEnv", "Heap Dump", "Warmup", "Proactive", "Promotion", "Timer"}

var failurePatterns = []string{"promotion failed", "to-space exhausted", "to-space overflow", "Evacuation Failure", "concurrent mode failure"}

func (t Type) info() typeInfo {
	if t < 0 || t >= numTypes {
		return typeTable[TypeUnknown]
	}
	return typeTable[t]
}

func (t Type) String() string {
	return t.info().name
}

func (t Type) Generation() Generation {
	return t.info().generation
}

func (t Type) Concurrency() Concurrency {
	return t.info().concurrency
}

func (t Type) IsFull() bool {
	return t.info().full
}

func (t Type) IsConcurrent() bool {
	return t.info().concurrency != StopTheWorld
}

// Phase is the key that pairs a concurrent start with its end.
func (t Type) Phase() string {
	return t.info().phase
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Classification is the result of classifying a raw type token.
type Classification struct {
	Type  Type
	Cause string
	// Name is the token with causes stripped.
	Name string
	// Failure marks a collection that failed to evacuate or promote live
	// objects.
	Failure bool
}

// Classify maps a raw type token such as
// "GC pause (G1 Evacuation Pause) (young) (initial-mark)" to its Type and
// cause. Unknown tokens yield TypeUnknown.
func Classify(raw string) Classification {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Classification{Type: TypeUnknown}
	}
	if t, ok := typeNames[raw]; ok {
		return Classification{Type: t, Name: raw, Failure: t == TypeGCPromotionFailed}
	}

	base, parentheticals := splitParentheses(raw)

	var quals []string
	var causes []string
	for _, paren := range parentheticals {
		switch {
		case qualifiers[strings.ToLower(paren)]:
			quals = append(quals, paren)
		case paren == "" || (paren[0] >= '0' && paren[0] <= '9'):
			// elapsed times such as "(0.200s, 0.456s)"
		default:
			causes = append(causes, paren)
		}
	}

	c := Classification{
		Type:  lookupQualified(base, quals),
		Cause: pickCause(causes),
		Name:  base,
	}
	c.Failure = c.Type == TypeGCPromotionFailed || strings.HasSuffix(base, "--")
	for _, cause := range causes {
		if containsAny(cause, failurePatterns) {
			c.Failure = true
		}
	}

	if c.Type == TypeUnknown {
		switch {
		case strings.HasPrefix(base, "Concurrent "):
			c.Type = TypeConcurrentPhase
		case strings.HasPrefix(base, "Full GC"):
			c.Type = TypeFullGC
		}
	}

	return c
}

func lookupQualified(base string, quals []string) Type {
	if len(quals) > 0 {
		key := base
		for _, q := range quals {
			key += " (" + strings.ToLower(q) + ")"
		}
		if t, ok := typeNames[key]; ok {
			return t
		}
		// unified logging keeps the original capitalisation
		key = base
		for _, q := range quals {
			key += " (" + q + ")"
		}
		if t, ok := typeNames[key]; ok {
			return t
		}
		for _, q := range quals {
			if t, ok := typeNames[base+" ("+q+")"]; ok {
				return t
			}
		}
	}
	if t, ok := typeNames[base]; ok {
		return t
	}
	return TypeUnknown
}

// splitParentheses returns text outside top-level parentheses, with spaces
// collapsed, and the contents of each top-level parenthetical.
func splitParentheses(text string) (string, []string) {
	var results []string
	var base strings.Builder
	depth := 0
	start := -1

	for i, char := range text {
		switch {
		case char == '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case char == ')' && depth > 0:
			depth--
			if depth == 0 && start != -1 {
				results = append(results, text[start:i])
				start = -1
			}
		case depth == 0:
			base.WriteRune(char)
		}
	}

	return strings.Join(strings.Fields(base.String()), " "), results
}

func pickCause(parentheticals []string) string {
	for _, paren := range parentheticals {
		if containsAny(paren, causePatterns) {
			return paren
		}
	}
	if len(parentheticals) > 0 {
		return parentheticals[len(parentheticals)-1]
	}
	return ""
}

func containsAny(s string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
