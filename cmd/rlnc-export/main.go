package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/signalsfoundry/rlnc-dashboard/export"
	"github.com/signalsfoundry/rlnc-dashboard/internal/config"
	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/kb"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		config.Exitf("rlnc-export: %v", err)
	}
}

// run writes one export document for the dataset named in args, either into
// a directory or to stdout.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("rlnc-export", flag.ContinueOnError)
	fs.SetOutput(stdout)
	dataset := fs.String("dataset", cfg.Dataset, "JSON or YAML dataset file; empty uses the built-in dataset")
	outDir := fs.String("out", cfg.ExportDir, "directory receiving rlnc-simulation-<date>.json")
	toStdout := fs.Bool("stdout", false, "write the document to stdout instead of a file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	var store *kb.KnowledgeBase
	if *dataset == "" {
		store, err = kb.Default()
	} else {
		store, err = kb.LoadFile(*dataset)
	}
	if err != nil {
		return err
	}

	exp := export.NewExporter(store, export.WithLogger(log))
	if *toStdout {
		_, data, err := exp.Export(ctx)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	path, err := exp.WriteFile(ctx, *outDir)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
	return nil
}
