package gc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mabhi256/gcmodel/utils"
)

const DateStampLayout = "2006-01-02T15:04:05.000-0700"

var (
	ErrUnrecognized = errors.New("unrecognized line")
	ErrUnbalanced   = errors.New("unbalanced brackets")
)

type ParseError struct {
	Line    string
	LineNum int
	Err     error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v", e.LineNum, e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig controls how a single load reads numbers and lines. It is
// resolved once per load and never read from process state.
type ParseConfig struct {
	DecimalSeparator      byte
	JoinContinuationLines bool
}

func DefaultParseConfig() ParseConfig {
	return ParseConfig{
		DecimalSeparator:      '.',
		JoinContinuationLines: true,
	}
}

type TokenKind int

const (
	TokenOpen TokenKind = iota
	TokenClose
	TokenMemory
	TokenPause
	// TokenFailure marks the enclosing clause as a failed collection, as in
	// "[CMS1.02: [CMS-concurrent-sweep: ...] (concurrent mode failure): ...]".
	TokenFailure
)

func (k TokenKind) String() string {
	switch k {
	case TokenOpen:
		return "open"
	case TokenClose:
		return "close"
	case TokenMemory:
		return "memory"
	case TokenPause:
		return "pause"
	case TokenFailure:
		return "failure"
	}
	return "unknown"
}

// Token is one lexical element of a log line.
type Token struct {
	Kind TokenKind

	// TokenOpen
	Name         string
	Timestamp    float64
	HasTimestamp bool
	DateStamp    time.Time
	GCID         int

	// TokenMemory, in KB. HasBefore is false for CMS style "12345K(65536K)".
	Before    int64
	After     int64
	Total     int64
	HasBefore bool
	// Detail marks heap figures taken from a G1 "[Eden: ... Heap: ...]"
	// clause following the root.
	Detail bool

	// TokenPause, in seconds
	Pause float64
}

// Record is the tokenized form of one logical log line.
type Record struct {
	LineNum int
	Line    string
	Tokens  []Token
	// Header carries JVM facts from informational lines.
	Header Header
	// Informational lines are recognized but produce no events.
	Informational bool
}

var (
	// ==== Informational patterns ====

	// Java HotSpot(TM) 64-Bit Server VM (25.181-b13) for linux-amd64 JRE (1.8.0_181-b13), built on Jun 26 2018
	// OpenJDK 64-Bit Server VM (25.252-b09) for linux-amd64 JRE (1.8.0_252-b09), built on Apr 22 2020
	vmBannerPattern = regexp.MustCompile(`^(?:Java HotSpot\(TM\)|OpenJDK) .*?\(([^)]+)\) for .*?JRE \(([^)]+)\)`)

	// Memory: 4k page, physical 16318412k(4562032k free)
	memoryBannerPattern = regexp.MustCompile(`^Memory: \d+k page`)

	// CommandLine flags: -XX:InitialHeapSize=262144000 -XX:+PrintGC
	commandLinePattern = regexp.MustCompile(`^CommandLine flags: (.*)$`)

	// {Heap before GC invocations=1 (full 0):
	// Heap
	heapDumpPattern = regexp.MustCompile(`^(?:\{?Heap(?: |$)|\}$)`)

	// ==== Unified logging ====

	// [2025-07-27T06:54:55.176-0400][0.123s][info][gc,heap]
	decorationsPattern = regexp.MustCompile(`^((?:\[[^\]]*\])+)\s*(.*)$`)
	decorationPattern  = regexp.MustCompile(`\[([^\]]*)\]`)
	tagsPattern        = regexp.MustCompile(`^(?:gc|safepoint)(?:,\w+)*$`)
	gcIDPattern        = regexp.MustCompile(`^GC\((\d+)\)\s+(.*)$`)

	// Version: 21.0.8+9-Ubuntu-0ubuntu124.04.1 (release)
	versionPattern = regexp.MustCompile(`^Version:\s+([^\s(]+)`)

	// Heap Region Size: 1M
	heapRegionPattern = regexp.MustCompile(`^Heap Region Size:\s+(\d+[KMGT])`)

	// Heap Max Capacity: 256M
	heapMaxPattern = regexp.MustCompile(`^Heap Max Capacity:\s+(\d+[KMGT])`)

	// 2012-04-26T23:59:50.123+0200
	dateStampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[.,]\d{3}[+-]\d{4}$`)
)

// Tokenizer splits log lines into tokens. Patterns that involve decimals
// are built for the configured separator.
type Tokenizer struct {
	sep byte

	// 2012-04-26T23:59:50.123+0200:
	date *regexp.Regexp
	// 0.751:
	timestamp *regexp.Regexp
	// 3968K->448K(4032K)
	// 24.0M->3456.0K(256.0M)
	memory *regexp.Regexp
	// 12345K(65536K)
	memoryAfter *regexp.Regexp
	// , 0.0055780 secs
	pause *regexp.Regexp
	// 0.035/0.035 secs
	cmsPause *regexp.Regexp
	// Heap: 24.0M(256.0M)->3456.0K(256.0M)
	heapDetail *regexp.Regexp

	// Pause Young (Normal) (G1 Evacuation Pause) 9M->2M(16M) 5.326ms
	// Garbage Collection (Warmup) 20M(10%)->8M(4%)
	unifiedEvent *regexp.Regexp
}

func NewTokenizer(cfg ParseConfig) *Tokenizer {
	sep := cfg.DecimalSeparator
	if sep == 0 {
		sep = '.'
	}
	dec := regexp.QuoteMeta(string(sep))
	number := `\d+` + dec + `\d+`
	size := `\d+(?:` + dec + `\d+)?[KMGTB]?`
	unitSize := `\d+(?:` + dec + `\d+)?[KMGTB]`

	return &Tokenizer{
		sep:          sep,
		date:         regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[.,]\d{3}[+-]\d{4}):\s*`),
		timestamp:    regexp.MustCompile(`^(` + number + `):\s*`),
		memory:       regexp.MustCompile(`^(` + size + `)->(` + size + `)\((` + size + `)\)`),
		memoryAfter:  regexp.MustCompile(`^(` + unitSize + `)\((` + unitSize + `)\)`),
		pause:        regexp.MustCompile(`^,?\s*(` + number + `)\s*secs`),
		cmsPause:     regexp.MustCompile(`^(` + number + `)/(` + number + `)\s*secs`),
		heapDetail:   regexp.MustCompile(`Heap:\s*(` + size + `)\((` + size + `)\)->(` + size + `)\((` + size + `)\)`),
		unifiedEvent: regexp.MustCompile(`^(.+?)(?:\s+(` + size + `)(?:\(\d+%\))?->(` + size + `)(?:\(\d+%\))?(?:\((` + size + `)\))?)?(?:\s+(` + number + `)ms)?$`),
	}
}

// Tokenize turns one logical line into a Record. Lines that are recognized
// but carry no event come back Informational; lines that match no known
// shape fail with a ParseError.
func (t *Tokenizer) Tokenize(lineNum int, line string) (Record, error) {
	rec := Record{LineNum: lineNum, Line: line}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		rec.Informational = true
		return rec, nil
	}

	if header, ok := classicBanner(trimmed); ok {
		rec.Header = header
		rec.Informational = true
		return rec, nil
	}

	if m := decorationsPattern.FindStringSubmatch(trimmed); m != nil && isUnified(m[1]) {
		if err := t.tokenizeUnified(&rec, m[1], m[2]); err != nil {
			return rec, ParseError{Line: line, LineNum: lineNum, Err: err}
		}
		return rec, nil
	}

	sc := classicScanner{t: t, line: trimmed}
	if err := sc.scan(); err != nil {
		return rec, ParseError{Line: line, LineNum: lineNum, Err: err}
	}
	if len(sc.tokens) == 0 || !recognized(sc.tokens) {
		return rec, ParseError{Line: line, LineNum: lineNum, Err: ErrUnrecognized}
	}
	rec.Tokens = sc.tokens
	return rec, nil
}

func classicBanner(line string) (Header, bool) {
	if m := vmBannerPattern.FindStringSubmatch(line); m != nil {
		return Header{JVMVersion: m[2]}, true
	}
	if m := commandLinePattern.FindStringSubmatch(line); m != nil {
		return Header{CommandLine: strings.TrimSpace(m[1])}, true
	}
	if memoryBannerPattern.MatchString(line) || heapDumpPattern.MatchString(line) {
		return Header{}, true
	}
	return Header{}, false
}

func isUnified(decorations string) bool {
	for _, d := range decorationPattern.FindAllStringSubmatch(decorations, -1) {
		if tagsPattern.MatchString(strings.TrimSpace(d[1])) {
			return true
		}
	}
	return false
}

func (t *Tokenizer) tokenizeUnified(rec *Record, decorations, body string) error {
	open := Token{Kind: TokenOpen, GCID: -1}
	// only events logged under the bare "gc" tag may be of unknown type
	mainTag := false

	for _, d := range decorationPattern.FindAllStringSubmatch(decorations, -1) {
		value := strings.TrimSpace(d[1])
		switch {
		case tagsPattern.MatchString(value):
			mainTag = value == "gc"
		case dateStampPattern.MatchString(value):
			date, err := parseDateStamp(value)
			if err != nil {
				return err
			}
			open.DateStamp = date
		case strings.HasSuffix(value, "ms"):
			if ms, err := utils.ParseLongString(value[:len(value)-2]); err == nil {
				open.Timestamp = float64(ms) / 1000
				open.HasTimestamp = true
			}
		case strings.HasSuffix(value, "s"):
			if secs, err := utils.ParseFixed(value[:len(value)-1], t.sep); err == nil {
				open.Timestamp = secs
				open.HasTimestamp = true
			}
		}
	}

	if header, ok := unifiedInit(body); ok {
		rec.Header = header
		rec.Informational = true
		return nil
	}

	if m := gcIDPattern.FindStringSubmatch(body); m != nil {
		id, err := utils.ParseIntString(m[1])
		if err != nil {
			return fmt.Errorf("invalid gc id %q: %w", m[1], err)
		}
		open.GCID = int(id)
		body = m[2]
	}

	m := t.unifiedEvent.FindStringSubmatch(body)
	if m == nil {
		rec.Informational = true
		return nil
	}

	open.Name = m[1]
	cls := Classify(open.Name)
	hasMemory := m[2] != ""
	hasPause := m[5] != ""

	// Bare lines such as "Using G1" or the "[gc,start]" announcement of a
	// pause are informational, as are detail lines under other tags.
	switch {
	case !cls.Type.IsConcurrent() && !hasMemory && !hasPause:
		rec.Informational = true
		return nil
	case cls.Type == TypeUnknown && !mainTag:
		rec.Informational = true
		return nil
	}

	tokens := []Token{open}
	if hasMemory {
		mem, err := t.memoryToken(m[2], m[3], m[4])
		if err != nil {
			return err
		}
		tokens = append(tokens, mem)
	}
	if hasPause {
		ms, err := utils.ParseFixed(m[5], t.sep)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", m[5], err)
		}
		tokens = append(tokens, Token{Kind: TokenPause, Pause: ms / 1000})
	}
	rec.Tokens = append(tokens, Token{Kind: TokenClose})
	return nil
}

func unifiedInit(body string) (Header, bool) {
	if m := versionPattern.FindStringSubmatch(body); m != nil {
		return Header{JVMVersion: m[1]}, true
	}
	if m := heapRegionPattern.FindStringSubmatch(body); m != nil {
		if size, err := utils.ParseMemorySize(m[1]); err == nil {
			return Header{HeapRegionSize: size}, true
		}
	}
	if m := heapMaxPattern.FindStringSubmatch(body); m != nil {
		if size, err := utils.ParseMemorySize(m[1]); err == nil {
			return Header{HeapMax: size}, true
		}
	}
	return Header{}, false
}

// memoryToken builds a TokenMemory from before, after and total figures.
// An empty before means the log only reported occupancy after collection;
// an empty total is left at zero.
func (t *Tokenizer) memoryToken(before, after, total string) (Token, error) {
	tok := Token{Kind: TokenMemory}
	var err error

	if before != "" {
		if tok.Before, err = t.kilobytes(before); err != nil {
			return tok, err
		}
		tok.HasBefore = true
	}
	if tok.After, err = t.kilobytes(after); err != nil {
		return tok, err
	}
	if total != "" {
		if tok.Total, err = t.kilobytes(total); err != nil {
			return tok, err
		}
	}
	return tok, nil
}

// kilobytes parses a memory figure. Figures without a unit are kilobytes.
func (t *Tokenizer) kilobytes(s string) (int64, error) {
	if last := s[len(s)-1]; last >= '0' && last <= '9' {
		s += "K"
	}
	size, err := utils.ParseMemorySizeSep(s, t.sep)
	if err != nil {
		return 0, err
	}
	return size.KBytes(), nil
}

func parseDateStamp(s string) (time.Time, error) {
	date, err := time.Parse(DateStampLayout, strings.Replace(s, ",", ".", 1))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date stamp %q: %w", s, err)
	}
	return date, nil
}

// classicScanner walks a -XX:+PrintGCDetails style line. Clauses are
// delimited by brackets and may nest:
//
//	0.000: [GC 0.000: [ParNew: 3968K->448K(4032K), 0.0299506 secs] 3968K->1475K(20160K), 0.0300629 secs]
type classicScanner struct {
	t    *Tokenizer
	line string
	pos  int

	depth    int
	rootDone bool

	pendingTimestamp float64
	hasTimestamp     bool
	pendingDate      time.Time

	tokens []Token
}

func (sc *classicScanner) scan() error {
	for sc.pos < len(sc.line) {
		switch c := sc.line[sc.pos]; c {
		case ' ', '\t':
			sc.pos++
		case '[':
			if sc.depth == 0 && sc.rootDone && !sc.hasPrefix() {
				if err := sc.detail(); err != nil {
					return err
				}
				continue
			}
			sc.pos++
			name := sc.readName()
			if name == "" {
				return fmt.Errorf("missing type name at column %d: %w", sc.pos, ErrUnrecognized)
			}
			if strings.HasPrefix(name, "Times") {
				sc.skipClause(1)
				continue
			}
			sc.open(name)
		case '(':
			sc.parenthetical()
		case ']':
			if sc.depth == 0 {
				return fmt.Errorf("unexpected ']' at column %d: %w", sc.pos, ErrUnbalanced)
			}
			sc.tokens = append(sc.tokens, Token{Kind: TokenClose})
			sc.depth--
			sc.pos++
			if sc.depth == 0 {
				sc.rootDone = true
			}
		default:
			if err := sc.value(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (sc *classicScanner) hasPrefix() bool {
	return sc.hasTimestamp || !sc.pendingDate.IsZero()
}

func (sc *classicScanner) open(name string) {
	sc.tokens = append(sc.tokens, Token{
		Kind:         TokenOpen,
		Name:         name,
		Timestamp:    sc.pendingTimestamp,
		HasTimestamp: sc.hasTimestamp,
		DateStamp:    sc.pendingDate,
		GCID:         -1,
	})
	sc.pendingTimestamp = 0
	sc.hasTimestamp = false
	sc.pendingDate = time.Time{}
	sc.depth++
}

// readName consumes a type name. Names end at ':' ',' '[' ']' or where a
// timestamp or memory figure begins. A timestamp may follow the name without
// a space, as in "[ParNew1.05: ...". Parenthesised text is part of the name.
func (sc *classicScanner) readName() string {
	start := sc.pos
	parens := 0

	for sc.pos < len(sc.line) {
		c := sc.line[sc.pos]
		switch {
		case c == '(':
			parens++
		case c == ')':
			if parens > 0 {
				parens--
			}
		case parens > 0:
		case c == ':':
			name := sc.line[start:sc.pos]
			sc.pos++
			return strings.TrimSpace(name)
		case c == ',' || c == '[' || c == ']':
			return strings.TrimSpace(sc.line[start:sc.pos])
		case isDigit(c) && sc.pos > start && sc.startsTimestamp():
			return strings.TrimSpace(sc.line[start:sc.pos])
		case isDigit(c) && sc.pos > start && sc.line[sc.pos-1] == ' ' && sc.startsValue():
			return strings.TrimSpace(sc.line[start:sc.pos])
		}
		sc.pos++
	}
	return strings.TrimSpace(sc.line[start:sc.pos])
}

func (sc *classicScanner) startsTimestamp() bool {
	rest := sc.line[sc.pos:]
	return sc.t.timestamp.MatchString(rest) || sc.t.date.MatchString(rest)
}

func (sc *classicScanner) startsValue() bool {
	rest := sc.line[sc.pos:]
	return sc.t.timestamp.MatchString(rest) ||
		sc.t.date.MatchString(rest) ||
		sc.t.memory.MatchString(rest) ||
		sc.t.memoryAfter.MatchString(rest)
}

func (sc *classicScanner) value() error {
	rest := sc.line[sc.pos:]

	if m := sc.t.date.FindStringSubmatch(rest); m != nil {
		date, err := parseDateStamp(m[1])
		if err != nil {
			return err
		}
		sc.pendingDate = date
		sc.pos += len(m[0])
		return nil
	}

	if m := sc.t.timestamp.FindStringSubmatch(rest); m != nil {
		ts, err := utils.ParseFixed(m[1], sc.t.sep)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", m[1], err)
		}
		sc.pendingTimestamp = ts
		sc.hasTimestamp = true
		sc.pos += len(m[0])
		return nil
	}

	if m := sc.t.memory.FindStringSubmatch(rest); m != nil {
		tok, err := sc.t.memoryToken(m[1], m[2], m[3])
		if err != nil {
			return err
		}
		sc.tokens = append(sc.tokens, tok)
		sc.pos += len(m[0])
		return nil
	}

	if m := sc.t.memoryAfter.FindStringSubmatch(rest); m != nil {
		tok, err := sc.t.memoryToken("", m[1], m[2])
		if err != nil {
			return err
		}
		sc.tokens = append(sc.tokens, tok)
		sc.pos += len(m[0])
		return nil
	}

	if m := sc.t.cmsPause.FindStringSubmatch(rest); m != nil {
		return sc.addPause(m[1], len(m[0]))
	}

	if m := sc.t.pause.FindStringSubmatch(rest); m != nil {
		return sc.addPause(m[1], len(m[0]))
	}

	// noise such as "icms_dc=0" or "YG occupancy: 1234 K (19136 K)"
	sc.pos++
	return nil
}

// parenthetical skips text in parentheses outside a name and reports a
// failure it describes, such as "(concurrent mode failure)" or
// "(promotion failed)".
func (sc *classicScanner) parenthetical() {
	end := strings.IndexByte(sc.line[sc.pos:], ')')
	if end < 0 {
		sc.pos++
		return
	}
	text := sc.line[sc.pos+1 : sc.pos+end]
	if strings.ContainsAny(text, "[]") {
		sc.pos++
		return
	}
	if containsAny(text, failurePatterns) {
		sc.tokens = append(sc.tokens, Token{Kind: TokenFailure})
	}
	sc.pos += end + 1
}

// recognized reports whether every root clause looks like a collection: it
// has an elapsed-time or date prefix, a known type somewhere inside, or a
// memory or pause figure. Other bracketed text, such as
// "Exception in thread [main] ...", is not a gc line.
func recognized(tokens []Token) bool {
	depth := 0
	ok := false
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenOpen:
			if depth == 0 {
				ok = tok.HasTimestamp || !tok.DateStamp.IsZero()
			}
			if Classify(tok.Name).Type != TypeUnknown {
				ok = true
			}
			depth++
		case TokenClose:
			depth--
			if depth == 0 && !ok {
				return false
			}
		case TokenMemory, TokenPause:
			if depth > 0 {
				ok = true
			}
		}
	}
	return true
}

func (sc *classicScanner) addPause(s string, consumed int) error {
	secs, err := utils.ParseFixed(s, sc.t.sep)
	if err != nil {
		return fmt.Errorf("invalid pause %q: %w", s, err)
	}
	sc.tokens = append(sc.tokens, Token{Kind: TokenPause, Pause: secs})
	sc.pos += consumed
	return nil
}

// detail handles a top-level clause following a finished root, such as the
// G1 "[Eden: ... Heap: 24.0M(256.0M)->3456.0K(256.0M)]" summary. Only the
// heap figures are kept.
func (sc *classicScanner) detail() error {
	start := sc.pos
	sc.pos++
	sc.skipClause(1)
	clause := sc.line[start:sc.pos]

	if m := sc.t.heapDetail.FindStringSubmatch(clause); m != nil {
		tok, err := sc.t.memoryToken(m[1], m[3], m[4])
		if err != nil {
			return err
		}
		tok.Detail = true
		sc.tokens = append(sc.tokens, tok)
	}
	return nil
}

// skipClause advances past the ']' that closes a clause opened depth
// levels above the cursor.
func (sc *classicScanner) skipClause(depth int) {
	for sc.pos < len(sc.line) && depth > 0 {
		switch sc.line[sc.pos] {
		case '[':
			depth++
		case ']':
			depth--
		}
		sc.pos++
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
