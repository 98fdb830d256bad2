package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/stijn577/pdft/config"
	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/merge"
	"github.com/stijn577/pdft/observability"
	"github.com/stijn577/pdft/optimize"
	"github.com/stijn577/pdft/parser"
	"github.com/stijn577/pdft/writer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "merge":
		err = runMerge(os.Args[2:])
	case "compress":
		err = runCompress(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "pdft: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdft: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  pdft merge [-o output.pdf] [-config file] [-v] <input>...
      Merge multiple PDFs into a single output PDF.
  pdft compress [-config file] [-v] <input>...
      Compress PDFs to save disk space; writes <name>_compressed.pdf.
`)
}

func newLogger(verbose bool) observability.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return observability.NewSlog(slog.New(h))
}

// withPDFExt appends the .pdf extension when missing.
func withPDFExt(path string) string {
	if strings.HasSuffix(path, ".pdf") {
		return path
	}
	return path + ".pdf"
}

func loadAll(ctx context.Context, paths []string, log observability.Logger) ([]*raw.Document, error) {
	p := parser.NewDocumentParser(parser.Config{Logger: log})
	docs := make([]*raw.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := p.Load(ctx, withPDFExt(path))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	output := fs.String("o", "", "output PDF path (default output.pdf)")
	configPath := fs.String("config", "", "optional YAML config file")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := newLogger(*verbose || cfg.Verbose)

	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("no PDFs found to merge")
	}
	out := *output
	if out == "" {
		out = cfg.DefaultOutput
	}
	out = withPDFExt(out)

	ctx := context.Background()
	log.Info("loading inputs", observability.Int("count", len(inputs)))
	docs, err := loadAll(ctx, inputs, log)
	if err != nil {
		return err
	}

	log.Info("merging", observability.Int("documents", len(docs)), observability.String("output", out))
	m := merge.NewMerger(merge.Config{
		BookmarkColor: cfg.BookmarkColor,
		Logger:        log,
	})
	doc, err := m.Merge(ctx, docs)
	if err != nil {
		if errors.Is(err, merge.ErrNoPagesRoot) || errors.Is(err, merge.ErrNoCatalog) {
			// Terminal but well-formed condition: report, write nothing.
			return fmt.Errorf("nothing to merge: %w", err)
		}
		return err
	}

	opt := optimize.New(optimize.Config{
		CompressStreams:         true,
		CompressionLevel:        cfg.CompressionLevel,
		CombineIdenticalObjects: true,
		Logger:                  log,
	})
	if err := opt.Optimize(ctx, doc); err != nil {
		return err
	}

	log.Info("writing output", observability.String("path", out))
	return writer.Save(ctx, doc, out, writer.Config{Logger: log})
}

func runCompress(args []string) error {
	fs := flag.NewFlagSet("compress", flag.ExitOnError)
	configPath := fs.String("config", "", "optional YAML config file")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := newLogger(*verbose || cfg.Verbose)

	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("no PDFs found to compress")
	}

	ctx := context.Background()
	p := parser.NewDocumentParser(parser.Config{Logger: log})
	opt := optimize.New(optimize.Config{
		CompressStreams:         true,
		CompressionLevel:        cfg.CompressionLevel,
		CombineIdenticalObjects: true,
		Logger:                  log,
	})
	for _, input := range inputs {
		in := withPDFExt(input)
		out := strings.TrimSuffix(in, ".pdf") + cfg.CompressedSuffix + ".pdf"

		doc, err := p.Load(ctx, in)
		if err != nil {
			return err
		}
		log.Info("compressing", observability.String("input", in), observability.String("output", out))
		if err := opt.Optimize(ctx, doc); err != nil {
			return err
		}
		if err := writer.Save(ctx, doc, out, writer.Config{Logger: log}); err != nil {
			return err
		}
	}
	return nil
}
