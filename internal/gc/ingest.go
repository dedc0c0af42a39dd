package gc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxLineSize = 4 * 1024 * 1024

	// DefaultFailureLogRate caps per-line failure logs per second.
	DefaultFailureLogRate = 10
)

// Result reports what an ingestion pass did.
type Result struct {
	LinesRead      int
	LinesProcessed int
	Events         int
	ParseFailures  int
	Dangling       int
	Duration       time.Duration
}

// Ingester reads a GC log line by line and feeds the events it finds into a
// Store.
type Ingester struct {
	cfg     ParseConfig
	logger  *slog.Logger
	metrics *IngestMetrics

	failureLogRate int
	failureLog     *rate.Limiter
	suppressed     int

	linesRead atomic.Int64
}

type Option func(*Ingester)

func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingester) {
		in.logger = logger
	}
}

func WithMetrics(metrics *IngestMetrics) Option {
	return func(in *Ingester) {
		in.metrics = metrics
	}
}

// WithFailureLogRate limits how many unparsed lines are logged per second.
// Zero or less logs every one.
func WithFailureLogRate(perSecond int) Option {
	return func(in *Ingester) {
		in.failureLogRate = perSecond
	}
}

func NewIngester(cfg ParseConfig, opts ...Option) *Ingester {
	in := &Ingester{cfg: cfg, failureLogRate: DefaultFailureLogRate}
	for _, opt := range opts {
		opt(in)
	}
	if in.logger == nil {
		in.logger = slog.New(slog.DiscardHandler)
	}
	return in
}

// LinesRead is safe to call while Ingest runs.
func (in *Ingester) LinesRead() int64 {
	return in.linesRead.Load()
}

// Ingest reads r to the end. Lines that cannot be parsed are recorded in the
// store's diagnostics and skipped. Cancellation is checked before each line;
// a cancelled pass leaves the store holding every event published so far
// and Result.LinesProcessed tells how far it got.
func (in *Ingester) Ingest(ctx context.Context, r io.Reader, store *Store) (res Result, err error) {
	start := time.Now()
	tok := NewTokenizer(in.cfg)
	builder := NewBuilder(in.logger)

	in.suppressed = 0
	if in.failureLogRate > 0 {
		in.failureLog = rate.NewLimiter(rate.Limit(in.failureLogRate), in.failureLogRate)
	} else {
		in.failureLog = rate.NewLimiter(rate.Inf, 0)
	}

	defer func() {
		res.Duration = time.Since(start)
		if in.metrics != nil {
			in.metrics.Duration.Observe(res.Duration.Seconds())
		}
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var block strings.Builder
	blockStart, blockLines := 0, 0
	lineNum := 0

	flush := func() {
		if blockLines == 0 {
			return
		}
		in.process(tok, builder, store, blockStart, block.String(), &res)
		res.LinesProcessed += blockLines
		block.Reset()
		blockLines = 0
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			in.logger.Info("gc log ingestion canceled", "lines_processed", res.LinesProcessed)
			return res, fmt.Errorf("ingest canceled after %d lines: %w", res.LinesProcessed, ctxErr)
		}
		if !scanner.Scan() {
			break
		}

		lineNum++
		res.LinesRead++
		in.linesRead.Add(1)
		if in.metrics != nil {
			in.metrics.Lines.Inc()
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if in.cfg.JoinContinuationLines && blockLines > 0 && isContinuation(line) {
			block.WriteByte(' ')
			block.WriteString(strings.TrimSpace(line))
			blockLines++
			continue
		}

		flush()
		block.WriteString(line)
		blockStart = lineNum
		blockLines = 1
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return res, fmt.Errorf("read gc log: %w", scanErr)
	}
	flush()

	dangling := builder.Finish()
	store.RecordDangling(dangling...)
	res.Dangling = len(dangling)
	if in.metrics != nil {
		in.metrics.Dangling.Add(float64(len(dangling)))
	}

	if in.suppressed > 0 {
		in.logger.Debug("unparsed gc log lines not logged", "count", in.suppressed)
	}
	in.logger.Info("gc log ingested",
		"lines", res.LinesRead,
		"events", res.Events,
		"parse_failures", res.ParseFailures,
		"dangling_phases", res.Dangling,
		"duration", time.Since(start),
	)
	return res, nil
}

func (in *Ingester) process(tok *Tokenizer, builder *Builder, store *Store, lineNum int, line string, res *Result) {
	rec, err := tok.Tokenize(lineNum, line)
	if err != nil {
		in.fail(store, lineNum, line, err, res)
		return
	}

	if rec.Header != (Header{}) {
		store.MergeHeader(rec.Header)
	}
	if rec.Informational {
		store.RecordIgnored()
		return
	}

	events, err := builder.Build(rec)
	if err != nil {
		in.fail(store, lineNum, line, err, res)
		return
	}

	for _, ev := range events {
		store.Append(ev)
		res.Events++
		if in.metrics != nil {
			in.metrics.Events.WithLabelValues(ev.Concurrency.String()).Inc()
		}
	}
}

func (in *Ingester) fail(store *Store, lineNum int, line string, err error, res *Result) {
	var pe ParseError
	if !errors.As(err, &pe) {
		pe = ParseError{Line: line, LineNum: lineNum, Err: err}
	}

	if in.failureLog.Allow() {
		in.logger.Debug("skipping unparsed gc log line", "line", lineNum, "error", pe.Err)
	} else {
		in.suppressed++
	}
	store.RecordFailure(pe)
	res.ParseFailures++
	if in.metrics != nil {
		in.metrics.ParseFailures.Inc()
	}
}

func isContinuation(line string) bool {
	if line == "" || (line[0] != ' ' && line[0] != '\t') {
		return false
	}
	return strings.TrimSpace(line) != ""
}
