package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/gcmodel/internal/config"
	"github.com/mabhi256/gcmodel/internal/gc"
	"github.com/mabhi256/gcmodel/internal/logging"
	"github.com/mabhi256/gcmodel/internal/observability"
	"github.com/mabhi256/gcmodel/internal/report"
	"github.com/mabhi256/gcmodel/internal/source"
	"github.com/mabhi256/gcmodel/utils"
)

var (
	outputFormat string
	configPath   string
	metricsAddr  string
	showLimit    int
)

var errValidationFailed = errors.New("gc log has problems")

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Analyze GC logs",
}

var gcValidateCmd = &cobra.Command{
	Use:               "validate [gc-log-file]",
	Short:             "Report lines and phases that could not be modeled",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeGCLogFiles,
	PreRunE:           checkLogFile,
	RunE:              runValidate,
}

var gcAnalyzeCmd = &cobra.Command{
	Use:               "analyze [gc-log-file]",
	Short:             "Analyze GC log file",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeGCLogFiles,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := report.ParseFormat(outputFormat); err != nil {
			return err
		}
		return checkLogFile(cmd, args)
	},
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(gcCmd)

	gcCmd.AddCommand(gcValidateCmd)
	gcCmd.AddCommand(gcAnalyzeCmd)

	gcCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./gcmodel.yaml)")

	gcAnalyzeCmd.Flags().StringVarP(&outputFormat, "output", "o", string(report.FormatCLI), "Output format")
	gcAnalyzeCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while analyzing")

	gcValidateCmd.Flags().IntVarP(&showLimit, "limit", "n", 20, "Maximum number of problems to list (0 for all)")

	// When user types: gcmodel gc analyze file.log -o <TAB>
	gcAnalyzeCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		formats := make([]string, len(report.Formats))
		for i, f := range report.Formats {
			formats[i] = string(f)
		}
		return formats, cobra.ShellCompDirectiveNoFileComp
	})
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("metrics-addr"); f != nil && f.Changed {
		cfg.Metrics.Addr = metricsAddr
	}
	return cfg, nil
}

func completeGCLogFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}
	return utils.CompleteFiles(cfg.Matcher().Match)(cmd, args, toComplete)
}

func checkLogFile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logFile := args[0]
	if !cfg.Matcher().Match(logFile) {
		return fmt.Errorf("invalid GC log file: %s (expected one of %v)", logFile, cfg.Matcher().Patterns())
	}

	info, err := os.Stat(logFile)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", logFile)
	}
	if err == nil && info.IsDir() {
		return fmt.Errorf("not a file: %s", logFile)
	}
	return nil
}

// session holds what one command needs to ingest a single GC log.
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	ingester *gc.Ingester
	store    *gc.Store
	src      *source.Reader
}

func openSession(cmd *cobra.Command, path string) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Logging, cfg.LogLevel())

	registry := prometheus.NewRegistry()
	metrics, err := gc.NewIngestMetrics(registry)
	if err != nil {
		logger.Close()
		return nil, err
	}

	src, err := source.Open(path)
	if err != nil {
		logger.Close()
		return nil, err
	}
	logger.Debug("gc log opened", "path", path, "compression", src.Compression.String(), "size", src.Size())

	ingester := gc.NewIngester(cfg.GCParseConfig(),
		gc.WithLogger(logger.Logger),
		gc.WithMetrics(metrics),
		gc.WithFailureLogRate(cfg.Logging.FailureRate),
	)

	return &session{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		ingester: ingester,
		store:    gc.NewStore(),
		src:      src,
	}, nil
}

func (s *session) Close() error {
	return errors.Join(s.src.Close(), s.logger.Close())
}

// ingest runs ingestion next to a progress reporter and, when configured,
// the diagnostics server. An interrupt cancels the pass.
func (s *session) ingest(ctx context.Context, progress io.Writer) (gc.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var finished atomic.Bool

	if s.cfg.Metrics.Addr != "" {
		srv, err := observability.NewDiagnosticsServer(s.cfg.Metrics.Addr, s.registry, s.logger.Logger,
			func(context.Context) error {
				if !finished.Load() {
					return errors.New("ingestion in progress")
				}
				return nil
			})
		if err != nil {
			return gc.Result{}, err
		}
		s.logger.Info("serving metrics", "addr", srv.Addr())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Close(shutdownCtx); err != nil {
				s.logger.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var res gc.Result
	g.Go(func() error {
		defer close(done)

		var err error
		res, err = s.ingester.Ingest(gctx, s.src, s.store)
		finished.Store(true)
		return err
	})

	g.Go(func() error {
		s.reportProgress(gctx, done, progress)
		return nil
	})

	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("ingest gc log: %w", err)
	}
	return res, nil
}

// reportProgress redraws a one-line progress bar until done is closed. It
// stays silent when w is not a terminal.
func (s *session) reportProgress(ctx context.Context, done <-chan struct{}, w io.Writer) {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return
	}

	ticker := time.NewTicker(s.cfg.Report.ProgressInterval)
	defer ticker.Stop()

	draw := func() {
		fraction := 0.0
		if size := s.src.Size(); size > 0 {
			fraction = float64(s.src.Offset()) / float64(size)
		}
		fmt.Fprintf(w, "\r%s %3.0f%%  %d lines",
			utils.CreateProgressBar(fraction, 24, utils.InfoColor), fraction*100, s.ingester.LinesRead())
	}

	for {
		select {
		case <-done:
			fmt.Fprint(w, "\r\033[K")
			return
		case <-ctx.Done():
			fmt.Fprint(w, "\r\033[K")
			return
		case <-ticker.C:
			draw()
		}
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.ingest(cmd.Context(), cmd.ErrOrStderr()); err != nil {
		return err
	}

	rep := report.New(filepath.Base(args[0]), s.store, s.cfg.Report.Percentiles)
	return report.Write(cmd.OutOrStdout(), format, rep)
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.ingest(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	diag := s.store.Diagnostics()
	name := filepath.Base(args[0])

	if diag.ErrorCount() == 0 && len(diag.Dangling) == 0 && diag.OrderingAnomalies == 0 {
		color.New(color.FgGreen).Fprintf(out, "GC log is valid (%s)\n", name)
		color.New(color.FgGreen).Fprintf(out, "  %d lines, %d events, %d informational lines\n",
			res.LinesRead, res.Events, diag.IgnoredLines)
		return nil
	}

	color.New(color.FgRed).Fprintf(out, "GC log has problems (%s)\n", name)
	fmt.Fprintf(out, "  %d lines, %d events, %d informational lines\n", res.LinesRead, res.Events, diag.IgnoredLines)

	if n := diag.ErrorCount(); n > 0 {
		color.New(color.FgRed).Fprintf(out, "\n%d unparsed lines:\n", n)
		for i, pe := range diag.ParseFailures {
			if showLimit > 0 && i == showLimit {
				fmt.Fprintf(out, "  ... %d more\n", n-i)
				break
			}
			color.New(color.FgRed).Fprintf(out, "  - line %d: %v\n", pe.LineNum, pe.Err)
			fmt.Fprintf(out, "      %s\n", utils.TruncateString(pe.Line, 120))
		}
	}

	if n := len(diag.Dangling); n > 0 {
		color.New(color.FgYellow).Fprintf(out, "\n%d concurrent phases never ended:\n", n)
		for i, d := range diag.Dangling {
			if showLimit > 0 && i == showLimit {
				fmt.Fprintf(out, "  ... %d more\n", n-i)
				break
			}
			color.New(color.FgYellow).Fprintf(out, "  - line %d: %s at %.3fs\n", d.LineNum, d.Type, d.Timestamp)
		}
	}

	if diag.OrderingAnomalies > 0 {
		color.New(color.FgYellow).Fprintf(out, "\n%d events are earlier than the event before them\n", diag.OrderingAnomalies)
	}

	color.New(color.FgCyan).Fprintln(out, "\nRecommendations:")
	if diag.ErrorCount() > 0 {
		color.New(color.FgCyan).Fprintln(out, "  - Check parse.decimal_separator if pauses use ',' as decimal mark")
		color.New(color.FgCyan).Fprintln(out, "  - Log with -XX:+PrintGCDetails -XX:+PrintGCTimeStamps or -Xlog:gc*")
	}
	if len(diag.Dangling) > 0 {
		color.New(color.FgCyan).Fprintln(out, "  - The log may be truncated or rotated in the middle of a cycle")
	}
	if diag.OrderingAnomalies > 0 {
		color.New(color.FgCyan).Fprintln(out, "  - Rotated files may have been concatenated out of order")
	}

	return errValidationFailed
}
