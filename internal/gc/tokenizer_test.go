package gc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/gcmodel/internal/gc"
	"github.com/mabhi256/gcmodel/utils"
)

func kinds(tokens []gc.Token) []gc.TokenKind {
	out := make([]gc.TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenize_NestedParNew(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())
	rec, err := tok.Tokenize(1, "0.000: [GC 0.000: [ParNew: 3968K->448K(4032K), 0.0299506 secs] 3968K->1475K(20160K), 0.0300629 secs]")
	require.NoError(t, err)

	assert.Equal(t, []gc.TokenKind{
		gc.TokenOpen, gc.TokenOpen, gc.TokenMemory, gc.TokenPause, gc.TokenClose,
		gc.TokenMemory, gc.TokenPause, gc.TokenClose,
	}, kinds(rec.Tokens))

	assert.Equal(t, "GC", rec.Tokens[0].Name)
	assert.True(t, rec.Tokens[0].HasTimestamp)
	assert.Equal(t, "ParNew", rec.Tokens[1].Name)

	mem := rec.Tokens[2]
	assert.Equal(t, int64(3968), mem.Before)
	assert.Equal(t, int64(448), mem.After)
	assert.Equal(t, int64(4032), mem.Total)
	assert.InDelta(t, 0.0299506, rec.Tokens[3].Pause, 1e-12)
	assert.InDelta(t, 0.0300629, rec.Tokens[6].Pause, 1e-12)
}

func TestTokenize_CMSShapes(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())

	rec, err := tok.Tokenize(1, "0.762: [CMS-concurrent-mark: 0.054/0.054 secs] [Times: user=0.05 sys=0.00, real=0.05 secs]")
	require.NoError(t, err)
	assert.Equal(t, []gc.TokenKind{gc.TokenOpen, gc.TokenPause, gc.TokenClose}, kinds(rec.Tokens))
	assert.InDelta(t, 0.054, rec.Tokens[1].Pause, 1e-12)

	rec, err = tok.Tokenize(2, "1.5: [GC [1 CMS-initial-mark: 12345K(65536K)] 23456K(98304K), 0.0012 secs]")
	require.NoError(t, err)
	require.Len(t, rec.Tokens, 7)
	assert.Equal(t, "1 CMS-initial-mark", rec.Tokens[1].Name)
	assert.False(t, rec.Tokens[2].HasBefore)
	assert.Equal(t, int64(12345), rec.Tokens[2].After)
	assert.Equal(t, int64(65536), rec.Tokens[2].Total)
}

func TestTokenize_G1DetailBlock(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())
	rec, err := tok.Tokenize(1, "0.247: [GC pause (G1 Evacuation Pause) (young), 0.0054900 secs] "+
		"[Parallel Time: 5.0 ms, GC Workers: 8] "+
		"[Eden: 24.0M(24.0M)->0.0B(21.0M) Survivors: 0.0B->3072.0K Heap: 24.0M(256.0M)->3456.0K(256.0M)] "+
		"[Times: user=0.02 sys=0.00, real=0.01 secs]")
	require.NoError(t, err)

	assert.Equal(t, []gc.TokenKind{gc.TokenOpen, gc.TokenPause, gc.TokenClose, gc.TokenMemory}, kinds(rec.Tokens))
	assert.Equal(t, "GC pause (G1 Evacuation Pause) (young)", rec.Tokens[0].Name)

	heap := rec.Tokens[3]
	assert.True(t, heap.Detail)
	assert.Equal(t, int64(24*1024), heap.Before)
	assert.Equal(t, int64(3456), heap.After)
	assert.Equal(t, int64(256*1024), heap.Total)
}

func TestTokenize_DecimalComma(t *testing.T) {
	t.Parallel()

	cfg := gc.DefaultParseConfig()
	cfg.DecimalSeparator = ','
	tok := gc.NewTokenizer(cfg)

	rec, err := tok.Tokenize(1, "1,250: [GC 3968K->448K(4032K), 0,0055780 secs]")
	require.NoError(t, err)
	require.Len(t, rec.Tokens, 4)
	assert.InDelta(t, 1.25, rec.Tokens[0].Timestamp, 1e-12)
	assert.InDelta(t, 0.005578, rec.Tokens[2].Pause, 1e-12)
}

func TestTokenize_DateStampOnly(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())
	rec, err := tok.Tokenize(1, "2012-04-26T23:59:50.123+0200: [GC 3968K->448K(4032K), 0.0055780 secs]")
	require.NoError(t, err)

	open := rec.Tokens[0]
	assert.False(t, open.HasTimestamp)
	assert.Equal(t, 2012, open.DateStamp.Year())
	assert.Equal(t, 123000000, open.DateStamp.Nanosecond())
}

func TestTokenize_Unified(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())

	rec, err := tok.Tokenize(1, "[0.105s][info][gc] GC(0) Pause Young (Normal) (G1 Evacuation Pause) 9M->2M(16M) 5.326ms")
	require.NoError(t, err)
	require.Equal(t, []gc.TokenKind{gc.TokenOpen, gc.TokenMemory, gc.TokenPause, gc.TokenClose}, kinds(rec.Tokens))
	assert.Equal(t, "Pause Young (Normal) (G1 Evacuation Pause)", rec.Tokens[0].Name)
	assert.Equal(t, 0, rec.Tokens[0].GCID)
	assert.InDelta(t, 0.105, rec.Tokens[0].Timestamp, 1e-12)
	assert.Equal(t, int64(9*1024), rec.Tokens[1].Before)
	assert.InDelta(t, 0.005326, rec.Tokens[2].Pause, 1e-12)

	rec, err = tok.Tokenize(2, "[0.100s][info][gc,start    ] GC(0) Pause Young (Normal) (G1 Evacuation Pause)")
	require.NoError(t, err)
	assert.True(t, rec.Informational)

	rec, err = tok.Tokenize(3, "[0.100s][info][gc,heap] GC(0) Eden regions: 1->0(8)")
	require.NoError(t, err)
	assert.True(t, rec.Informational)

	rec, err = tok.Tokenize(4, "[0.010s][info][gc,init] Heap Max Capacity: 256M")
	require.NoError(t, err)
	assert.True(t, rec.Informational)
	assert.Equal(t, 256*utils.MB, rec.Header.HeapMax)
}

func TestTokenize_Banners(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())

	rec, err := tok.Tokenize(1, "Java HotSpot(TM) 64-Bit Server VM (25.181-b13) for linux-amd64 JRE (1.8.0_181-b13), built on Jun 26 2018 19:20:40")
	require.NoError(t, err)
	assert.True(t, rec.Informational)
	assert.Equal(t, "1.8.0_181-b13", rec.Header.JVMVersion)

	rec, err = tok.Tokenize(2, "CommandLine flags: -XX:+PrintGCDetails -XX:+UseConcMarkSweepGC")
	require.NoError(t, err)
	assert.Equal(t, "-XX:+PrintGCDetails -XX:+UseConcMarkSweepGC", rec.Header.CommandLine)
}

func TestTokenize_Failures(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())

	_, err := tok.Tokenize(7, "this is not a gc line")
	require.ErrorIs(t, err, gc.ErrUnrecognized)

	var pe gc.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 7, pe.LineNum)
	assert.Equal(t, "this is not a gc line", pe.Line)

	_, err = tok.Tokenize(8, "0.1: [GC 3968K->448K(4032K), 0.001 secs]]")
	require.ErrorIs(t, err, gc.ErrUnbalanced)

	_, err = tok.Tokenize(9, "0.1: [GC 99999999999999999999K->448K(4032K), 0.001 secs]")
	require.ErrorIs(t, err, utils.ErrOverflow)
}

func TestTokenize_TimestampGluedToName(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())

	rec, err := tok.Tokenize(1, "1.0: [GC 1.0: [ParNew1.05: [CMS-concurrent-abortable-preclean: 0.1/0.2 secs]: 100K->10K(200K), 0.01 secs] 300K->210K(900K), 0.011 secs]")
	require.NoError(t, err)
	require.Len(t, rec.Tokens, 11)
	assert.Equal(t, "ParNew", rec.Tokens[1].Name)
	assert.Equal(t, "CMS-concurrent-abortable-preclean", rec.Tokens[2].Name)
	assert.True(t, rec.Tokens[2].HasTimestamp)
	assert.InDelta(t, 1.05, rec.Tokens[2].Timestamp, 1e-12)
}

func TestTokenize_ParenthesisedFailure(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())

	rec, err := tok.Tokenize(1, "1.000: [Full GC 1.000: [CMS1.020: [CMS-concurrent-sweep: 0.010/0.020 secs] (concurrent mode failure): 1652K->900K(16128K), 0.3000000 secs] 6068K->900K(20160K), [CMS Perm : 2700K->2700K(21248K)], 0.3100000 secs]")
	require.NoError(t, err)
	assert.Equal(t, []gc.TokenKind{
		gc.TokenOpen, gc.TokenOpen, gc.TokenOpen, gc.TokenPause, gc.TokenClose,
		gc.TokenFailure, gc.TokenMemory, gc.TokenPause, gc.TokenClose,
		gc.TokenMemory, gc.TokenOpen, gc.TokenMemory, gc.TokenClose,
		gc.TokenPause, gc.TokenClose,
	}, kinds(rec.Tokens))
	assert.Equal(t, "CMS", rec.Tokens[1].Name)

	// parenthesised text that names no failure is noise
	rec, err = tok.Tokenize(2, "2.0: [GC (CMS Final Remark) [YG occupancy: 1234 K (19136 K)]2.0: [Rescan (parallel) , 0.0010000 secs], 0.0020000 secs]")
	require.NoError(t, err)
	assert.NotContains(t, kinds(rec.Tokens), gc.TokenFailure)
}

func TestTokenize_BracketedTextIsNotAnEvent(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())

	_, err := tok.Tokenize(5, "Exception in thread [main] java.lang.OutOfMemoryError: Java heap space")
	require.ErrorIs(t, err, gc.ErrUnrecognized)

	// a bare clause still counts when it carries figures or a known type
	_, err = tok.Tokenize(6, "[GC 3968K->448K(4032K), 0.0055780 secs]")
	require.NoError(t, err)
	_, err = tok.Tokenize(7, "[Odd 3968K->448K(4032K), 0.0055780 secs]")
	require.NoError(t, err)
}

func TestTokenize_UnifiedUnknownType(t *testing.T) {
	t.Parallel()

	tok := gc.NewTokenizer(gc.DefaultParseConfig())

	rec, err := tok.Tokenize(1, "[12.0s][info][gc] GC(8) Pause Weird Thing 20M->10M(64M) 2.5ms")
	require.NoError(t, err)
	require.False(t, rec.Informational)
	require.Equal(t, []gc.TokenKind{gc.TokenOpen, gc.TokenMemory, gc.TokenPause, gc.TokenClose}, kinds(rec.Tokens))
	assert.Equal(t, "Pause Weird Thing", rec.Tokens[0].Name)

	rec, err = tok.Tokenize(2, "[12.0s][info][gc] GC(8) Something Else")
	require.NoError(t, err)
	assert.True(t, rec.Informational)

	rec, err = tok.Tokenize(3, "[12.0s][info][gc,phases] GC(8)   Other: 0.5ms")
	require.NoError(t, err)
	assert.True(t, rec.Informational)
}
