package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/OperaLab/internal/app"
	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/infrastructure/inbox"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/storage"
	"github.com/turtacn/OperaLab/pkg/errors"
)

type watchOptions struct {
	dir        string
	out        string
	regulation string
	existing   bool
}

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Evaluate every batch file dropped into a directory",
		Long: "Watches --dir and, once a matching file stops changing, evaluates it\n" +
			"and writes its result tables below --out (or the configured sink).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(cc *CLIContext, a *app.App) error {
				return runWatch(cmd, a, opts)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.dir, "dir", "", "inbox directory (default: watch.dir)")
	f.StringVar(&opts.out, "out", "", "export directory (default: the configured export sink)")
	f.StringVarP(&opts.regulation, "regulation", "r", "", "regulation to check every batch against")
	f.BoolVar(&opts.existing, "existing", false, "also evaluate files already in the inbox")
	return cmd
}

func runWatch(cmd *cobra.Command, a *app.App, opts *watchOptions) error {
	dir := opts.dir
	if dir == "" {
		dir = a.Config.Watch.Dir
	}
	if dir == "" {
		return errors.InvalidParam("an inbox directory is required (--dir or watch.dir)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := a.ExportSink(ctx, opts.out)
	if err != nil {
		return err
	}
	w, err := inbox.New(inbox.Config{
		Dir:          dir,
		Pattern:      a.Config.Watch.Pattern,
		Debounce:     a.Config.Watch.Debounce,
		ScanExisting: opts.existing,
	}, EvaluateFileHandler(a, sink, opts.regulation), a.Logger, a.Metrics)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// EvaluateFileHandler returns an inbox handler that evaluates a file and
// exports its tables to sink.
func EvaluateFileHandler(a *app.App, sink storage.Sink, regulation string) inbox.Handler {
	return func(ctx context.Context, path string) error {
		records, err := a.Reader.ReadFile(path)
		if err != nil {
			return err
		}
		report, err := a.Reports.Evaluate(ctx, records, validation.EvaluationRequest{
			Regulation: regulation,
			Source:     filepath.Base(path),
		})
		if err != nil {
			return err
		}
		tables, err := a.Reports.Export(ctx, report, sink)
		if err != nil {
			return err
		}
		a.Logger.Info("batch evaluated",
			logging.String("file", filepath.Base(path)),
			logging.String("report_id", report.ID),
			logging.String("batch", report.Batch.String()),
			logging.Int("tables", len(tables)))
		return nil
	}
}
