package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kbukum/powermap"
	"github.com/kbukum/powermap/compose"
	"github.com/kbukum/powermap/config"
	"github.com/kbukum/powermap/drain"
	"github.com/kbukum/powermap/logger"
	"github.com/kbukum/powermap/ops"
	"github.com/kbukum/powermap/pull"
	"github.com/kbukum/powermap/validation"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Input       string
	Grep        string
	Upper       bool
	Split       bool
	Distinct    bool
	Skip        int
	Take        int
	Batch       int
	Async       bool
	Concurrency int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run lines through a pipeline",
		Long: `Read lines from --input (or stdin) and pass them through the steps
selected by the flags, in this order:

  grep, upper, split, distinct, skip, take, batch

Example:
  powermap run --input words.txt --split --distinct --take 10
  cat log.txt | powermap run --grep ERROR --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input file (default: stdin)")
	cmd.Flags().StringVar(&opts.Grep, "grep", "", "keep lines containing this text")
	cmd.Flags().BoolVar(&opts.Upper, "upper", false, "upper-case every value")
	cmd.Flags().BoolVar(&opts.Split, "split", false, "split lines into whitespace-separated words")
	cmd.Flags().BoolVar(&opts.Distinct, "distinct", false, "drop repeated values")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "drop the first N values")
	cmd.Flags().IntVar(&opts.Take, "take", 0, "stop after N values (0: no limit)")
	cmd.Flags().IntVar(&opts.Batch, "batch", 0, "join every N values with a space")
	cmd.Flags().BoolVar(&opts.Async, "async", false, "read the input on a background goroutine")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "output writers in flight (default: config drain.concurrency)")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	concurrency := cfg.Drain.Concurrency
	if opts.Concurrency != 0 {
		concurrency = opts.Concurrency
	}
	if err := validation.New().
		Range("concurrency", concurrency, 1, drain.MaxConcurrency).
		Min("skip", opts.Skip, 0).
		Min("take", opts.Take, 0).
		Min("batch", opts.Batch, 0).
		Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)

	metrics, shutdown, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start telemetry", err)
	}
	defer shutdown(context.WithoutCancel(ctx))

	src, err := openLines(opts.Input, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input", err)
	}
	defer pull.Close(context.WithoutCancel(ctx), src)
	if opts.Async {
		src = pull.Async(src)
	}

	stepOpts := []powermap.Option{powermap.WithLogger(log), powermap.WithMetrics(metrics)}
	out := compose.Apply(src, buildSteps(opts, stepOpts))
	if opts.Batch > 0 {
		batches := compose.Apply(out, ops.Batch[string](opts.Batch, stepOpts...))
		out = compose.Apply(batches, ops.Map(joinWords, stepOpts...))
	}

	drainOpts := append(cfg.DrainOptions(),
		drain.WithConcurrency(concurrency),
		drain.WithLogger(log),
		drain.WithMetrics(metrics),
	)

	log.Debug("pipeline starting", logger.Fields(logger.FieldConcurrency, concurrency, "format", opts.Format))
	switch opts.Format {
	case "json":
		err = writeJSON(ctx, cmd.OutOrStdout(), out, drainOpts)
	default:
		err = writeText(ctx, cmd.OutOrStdout(), out, cfg.Drain.Separator, concurrency, drainOpts)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "pipeline failed", err)
	}
	return nil
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	var loaderOpts []config.LoaderOption
	if opts.ConfigFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.ConfigFile))
	}
	cfg, err := config.Load(loaderOpts...)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// buildSteps chains the string-to-string steps selected by the flags.
func buildSteps(opts *RunOptions, stepOpts []powermap.Option) pull.Step[string, string] {
	var steps []pull.Step[string, string]
	if opts.Grep != "" {
		grep := opts.Grep
		steps = append(steps, ops.Filter(func(s string) bool { return strings.Contains(s, grep) }, stepOpts...))
	}
	if opts.Upper {
		steps = append(steps, ops.Map(func(_ context.Context, s string) (string, error) {
			return strings.ToUpper(s), nil
		}, stepOpts...))
	}
	if opts.Split {
		steps = append(steps, ops.FlatMap(func(_ context.Context, s string) ([]string, error) {
			return strings.Fields(s), nil
		}, stepOpts...))
	}
	if opts.Distinct {
		steps = append(steps, ops.Distinct(func(s string) string { return s }, stepOpts...))
	}
	if opts.Skip > 0 {
		steps = append(steps, ops.Skip[string](opts.Skip, stepOpts...))
	}
	if opts.Take > 0 {
		steps = append(steps, ops.Take[string](opts.Take, stepOpts...))
	}
	return compose.Chain(steps...)
}

func joinWords(_ context.Context, words []string) (string, error) {
	return strings.Join(words, " "), nil
}

// writeText writes every value followed by sep. With more than one writer
// in flight, lines may come out in any order.
func writeText(ctx context.Context, w io.Writer, p pull.Puller[string], sep string, concurrency int, opts []drain.Option) error {
	var mu sync.Mutex
	write := func(_ context.Context, s string) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprint(w, s, sep)
		return err
	}
	handler := drain.Inline(write)
	if concurrency > 1 {
		handler = drain.Blocking(write)
	}
	_, err := drain.ForEach(ctx, p, handler, opts...).Await(ctx)
	return err
}

// writeJSON collects every value and writes them as one JSON array.
func writeJSON(ctx context.Context, w io.Writer, p pull.Puller[string], opts []drain.Option) error {
	values, err := drain.Collect(ctx, p, opts...).Await(ctx)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(values)
}
