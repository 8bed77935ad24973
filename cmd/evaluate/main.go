package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/app"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/evaluation"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/export"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/storage"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := common.LoadConfig()
	var (
		out         = flag.String("out", cfg.Eval.OutputPath, "path of the JSON report")
		xlsxOut     = flag.String("xlsx", "", "also write the report as an XLSX workbook to this path")
		preference  = flag.String("prefer", cfg.Eval.Preference, "scored extraction: text | vision | text_then_vision")
		concurrency = flag.Int("concurrency", cfg.Eval.Concurrency, "documents evaluated in parallel")
	)
	flag.Usage = func() {
		printError("usage: evaluate [flags] <ground_truth.(json|yaml)> <documents_dir>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		return 2
	}
	gtPath, docsDir := flag.Arg(0), flag.Arg(1)
	cfg.Eval.Preference = *preference
	cfg.Eval.Concurrency = *concurrency

	logger := app.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = common.WithRequestID(ctx, uuid.NewString())

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return app.ExitCode(err)
	}
	defer a.Close()

	schema := a.Extractor.Schema()
	gt, err := evaluation.LoadGroundTruth(gtPath, schema)
	if err != nil {
		logger.Error("failed to load ground truth", "path", gtPath, "error", err)
		return app.ExitCode(err)
	}

	var runs evaluation.RunRecorder
	if a.Runs != nil {
		runs = a.Runs
	}
	evaluator := evaluation.NewEvaluator(a.Processor, schema.FieldNames(), evaluation.Config{
		Preference:      evaluation.Preference(cfg.Eval.Preference),
		Concurrency:     cfg.Eval.Concurrency,
		GroundTruthPath: gtPath,
	}, runs, logger)

	report, runErr := evaluator.Run(ctx, gt, docsDir)
	if runErr != nil {
		logger.Error("evaluation stopped early", "error", runErr)
	}

	if err := report.WriteText(os.Stdout); err != nil {
		logger.Error("failed to print report", "error", err)
	}
	body, err := report.JSON()
	if err != nil {
		logger.Error("failed to encode report", "error", err)
		return 1
	}
	if err := os.WriteFile(*out, body, 0o644); err != nil {
		logger.Error("failed to write report", "path", *out, "error", err)
		return 1
	}
	fmt.Printf("\nDetailed results saved to %s\n", *out)

	var workbook []byte
	if *xlsxOut != "" || cfg.Storage.ReportDir != "" || cfg.Storage.ReportBucket != "" {
		workbook, err = export.NewService(logger).ReportXLSX(report)
		if err != nil {
			logger.Error("failed to render workbook", "error", err)
			return 1
		}
	}
	if *xlsxOut != "" {
		if err := os.WriteFile(*xlsxOut, workbook, 0o644); err != nil {
			logger.Error("failed to write workbook", "path", *xlsxOut, "error", err)
			return 1
		}
	}

	if err := publish(context.WithoutCancel(ctx), cfg.Storage, body, workbook, logger); err != nil {
		logger.Error("failed to publish report", "error", err)
		return 1
	}
	return app.ExitCode(runErr)
}

// publish copies the report artifacts to the configured sinks under a timestamped prefix.
func publish(ctx context.Context, cfg common.StorageConfig, report, workbook []byte, logger *slog.Logger) error {
	sink, err := storage.FromConfig(ctx, cfg, logger)
	if err != nil || sink == nil {
		return err
	}
	prefix := time.Now().UTC().Format("20060102T150405Z")
	loc, err := sink.Put(ctx, filepath.ToSlash(filepath.Join(prefix, "evaluation_results.json")), report, "application/json")
	if err != nil {
		return err
	}
	logger.Info("report published", "location", loc)
	if len(workbook) > 0 {
		loc, err := sink.Put(ctx, filepath.ToSlash(filepath.Join(prefix, "evaluation_results.xlsx")), workbook, export.ContentTypeXLSX)
		if err != nil {
			return err
		}
		logger.Info("workbook published", "location", loc)
	}
	return nil
}
