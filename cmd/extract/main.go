package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs-extractor/internal/app"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/common"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/ingest"
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
	var (
		out        = flag.String("out", "", "write the merged extraction JSON to this file instead of stdout")
		skipHidden = flag.Bool("skip-hidden", true, "skip hidden files when walking directories")
	)
	flag.Usage = func() {
		printError("usage: extract [flags] <file-or-dir>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	cfg := common.LoadConfig()
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

	batch, err := ingest.NewLoader(*skipHidden, logger).LoadPaths(ctx, flag.Args())
	if err != nil {
		logger.Error("failed to load documents", "error", err)
		return app.ExitCode(err)
	}
	for _, r := range batch.Results {
		if r.Err != "" {
			printError("skipping %s: %s\n", r.Path, r.Err)
		}
	}
	if len(batch.Documents) == 0 {
		printError("Error: no documents to process\n")
		return 2
	}

	merged, err := a.Processor.Process(ctx, batch.Documents)
	if err != nil {
		logger.Error("extraction failed", "error", err)
		return app.ExitCode(err)
	}

	body, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", "error", err)
		return 1
	}
	body = append(body, '\n')
	if *out == "" {
		_, err = os.Stdout.Write(body)
	} else {
		err = os.WriteFile(*out, body, 0o644)
	}
	if err != nil {
		logger.Error("failed to write result", "error", err)
		return 1
	}
	if merged.Err != nil {
		return 1
	}
	return 0
}
