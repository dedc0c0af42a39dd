package gc

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

type phaseKey struct {
	phase string
	gcID  int
}

// Builder assembles tokens into composite events and pairs concurrent
// phase starts with their ends across lines. A Builder serves a single
// ingestion pass and is not safe for concurrent use.
type Builder struct {
	logger *slog.Logger

	pending  map[phaseKey]*Event
	dangling []DanglingPhase

	lastTimestamp float64

	// first date-stamp seen and the elapsed time it corresponds to
	anchorDate      time.Time
	anchorTimestamp float64
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		logger:  logger,
		pending: make(map[phaseKey]*Event),
	}
}

// Build turns the tokens of one record into finished root events ready to
// be appended to a Store. Concurrent phase starts are held back until their
// end arrives. A record whose clauses are not all closed fails and yields
// nothing.
func (b *Builder) Build(rec Record) ([]*Event, error) {
	var stack []*Event
	var roots []*Event
	var last *Event
	withPause := make(map[*Event]bool)
	names := make(map[*Event]string)

	target := func() *Event {
		if len(stack) > 0 {
			return stack[len(stack)-1]
		}
		return last
	}

	for _, tok := range rec.Tokens {
		switch tok.Kind {
		case TokenOpen:
			var parent *Event
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}

			cls := Classify(tok.Name)
			ev := &Event{
				Type:        cls.Type,
				Cause:       cls.Cause,
				Concurrency: cls.Type.Concurrency(),
				GCID:        tok.GCID,
				Failure:     cls.Failure,
				DateStamp:   tok.DateStamp,
				LineNum:     rec.LineNum,
			}
			b.stamp(ev, tok, parent)
			names[ev] = cls.Name

			if parent != nil {
				parent.Children = append(parent.Children, ev)
			}
			stack = append(stack, ev)

		case TokenClose:
			if len(stack) == 0 {
				return nil, fmt.Errorf("close without open: %w", ErrUnbalanced)
			}
			ev := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				roots = append(roots, ev)
				last = ev
				continue
			}
			// a concurrent phase marker printed inside a collection, as in
			// "[ParNew1.05: [CMS-concurrent-abortable-preclean: ...]: ...]",
			// belongs to its own phase rather than to the collection
			if c := ev.Type.Concurrency(); c == ConcurrentStart || c == ConcurrentEnd {
				parent := stack[len(stack)-1]
				parent.Children = slices.DeleteFunc(parent.Children, func(child *Event) bool {
					return child == ev
				})
				roots = append(roots, ev)
			}

		case TokenMemory:
			ev := target()
			if ev == nil {
				return nil, fmt.Errorf("memory figure outside any clause: %w", ErrUnrecognized)
			}
			if tok.Detail && ev.HasMemory {
				continue
			}
			ev.setMemory(tok.Before, tok.After, tok.Total, tok.HasBefore)

		case TokenPause:
			ev := target()
			if ev == nil {
				return nil, fmt.Errorf("pause outside any clause: %w", ErrUnrecognized)
			}
			ev.Pause = tok.Pause
			withPause[ev] = true

		case TokenFailure:
			if ev := target(); ev != nil {
				ev.Failure = true
			}
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%d clause(s) left open: %w", len(stack), ErrUnbalanced)
	}

	var out []*Event
	for _, root := range roots {
		b.lastTimestamp = root.Timestamp
		if ev := b.resolve(root, names[root], withPause[root]); ev != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

// stamp fills in the event's timestamp. Without an elapsed-time field the
// timestamp comes from the parent clause, from the date-stamp relative to
// the first one seen, or from the previous root.
func (b *Builder) stamp(ev *Event, tok Token, parent *Event) {
	if !tok.DateStamp.IsZero() && b.anchorDate.IsZero() {
		b.anchorDate = tok.DateStamp
		if tok.HasTimestamp {
			b.anchorTimestamp = tok.Timestamp
		}
	}

	switch {
	case tok.HasTimestamp:
		ev.Timestamp = tok.Timestamp
	case parent != nil:
		ev.Timestamp = parent.Timestamp
		ev.InferredTimestamp = parent.InferredTimestamp
		if ev.DateStamp.IsZero() {
			ev.DateStamp = parent.DateStamp
		}
	case !tok.DateStamp.IsZero():
		ev.Timestamp = b.anchorTimestamp + tok.DateStamp.Sub(b.anchorDate).Seconds()
		ev.InferredTimestamp = true
	default:
		ev.Timestamp = b.lastTimestamp
		ev.InferredTimestamp = true
	}
}

func (b *Builder) key(ev *Event, name string) phaseKey {
	phase := ev.Type.Phase()
	if ev.Type == TypeConcurrentPhase {
		phase += ":" + name
	}
	return phaseKey{phase: phase, gcID: ev.GCID}
}

// resolve decides what a finished root turns into. It returns nil when the
// root opened a concurrent phase.
func (b *Builder) resolve(root *Event, name string, hasPause bool) *Event {
	switch root.Type.Concurrency() {
	case ConcurrentStart:
		b.open(b.key(root, name), root)
		return nil

	case ConcurrentEnd:
		if start, ok := b.take(b.key(root, name)); ok {
			return closePhase(start, root)
		}
		root.Concurrency = ConcurrentEnd
		return root

	case Concurrent:
		// unified logging announces a phase with a bare line and reports it
		// again with its duration when it ends
		if !hasPause && !root.HasMemory {
			root.Concurrency = ConcurrentStart
			b.open(b.key(root, name), root)
			return nil
		}
		if start, ok := b.take(b.key(root, name)); ok {
			return closePhase(start, root)
		}
		root.Concurrency = Concurrent
		return root
	}

	return root
}

func (b *Builder) open(key phaseKey, start *Event) {
	if prev, ok := b.pending[key]; ok {
		b.markDangling(prev)
	}
	b.pending[key] = start
}

func (b *Builder) take(key phaseKey) (*Event, bool) {
	start, ok := b.pending[key]
	if ok {
		delete(b.pending, key)
	}
	return start, ok
}

// closePhase produces the finished concurrent event. Its duration is the
// time between the start and end markers.
func closePhase(start, end *Event) *Event {
	end.Pause = max(0, end.Timestamp-start.Timestamp)
	end.Timestamp = start.Timestamp
	end.InferredTimestamp = start.InferredTimestamp
	if !start.DateStamp.IsZero() {
		end.DateStamp = start.DateStamp
	}
	end.Concurrency = Concurrent
	return end
}

func (b *Builder) markDangling(start *Event) {
	b.logger.Warn("concurrent phase never ended",
		"phase", start.Type.String(),
		"start", start.Timestamp,
		"line", start.LineNum,
	)
	b.dangling = append(b.dangling, DanglingPhase{
		Type:      start.Type,
		GCID:      start.GCID,
		Timestamp: start.Timestamp,
		LineNum:   start.LineNum,
	})
}

// Finish is called at end of input. Starts still pending become dangling;
// they are returned, in source order, together with starts that were
// superseded during the pass.
func (b *Builder) Finish() []DanglingPhase {
	open := make([]*Event, 0, len(b.pending))
	for _, start := range b.pending {
		open = append(open, start)
	}
	slices.SortFunc(open, func(x, y *Event) int {
		return cmp.Compare(x.LineNum, y.LineNum)
	})
	for _, start := range open {
		b.markDangling(start)
	}
	clear(b.pending)

	dangling := b.dangling
	b.dangling = nil
	return dangling
}

// Pending is the number of concurrent phases currently open.
func (b *Builder) Pending() int {
	return len(b.pending)
}
