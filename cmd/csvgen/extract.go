package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/OFFIS-RIT/kgchat/internal/aiclient"
	"github.com/OFFIS-RIT/kgchat/internal/util"
	"github.com/OFFIS-RIT/kgchat/pkg/common"
	"github.com/OFFIS-RIT/kgchat/pkg/extract"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"
	csvloader "github.com/OFFIS-RIT/kgchat/pkg/loader/csv"
	"github.com/OFFIS-RIT/kgchat/pkg/loader/document"
	loaderio "github.com/OFFIS-RIT/kgchat/pkg/loader/io"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"

	"github.com/spf13/cobra"
)

type extractOptions struct {
	files     []string
	output    string
	maxTokens int
	parallel  int
}

func runExtractCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := aiclient.New()
	if err != nil {
		return err
	}
	counter, err := extract.NewTikTokenCounter("o200k_base")
	if err != nil {
		return err
	}

	parallel := opts.parallel
	if parallel < 1 {
		parallel = int(util.GetEnvNumeric("AI_PARALLEL_REQ", 4))
	}

	extractor := extract.NewExtractor(extract.NewExtractorParams{
		Client:   client,
		Counter:  counter,
		Parallel: parallel,
	})
	docs := document.NewDocumentGraphLoader(
		loaderio.NewIOGraphFileLoader(),
		&http.Client{Timeout: 30 * time.Second},
	)

	start := time.Now()
	triples, err := generate(ctx, extractor, docs, opts)
	if err != nil {
		return err
	}
	if err := writeOutput(opts.output, triples); err != nil {
		return err
	}

	logger.Info("Wrote knowledge graph",
		"output", opts.output,
		"triples", len(triples),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// generate extracts triples from every input in order. Triples already
// produced by an earlier input are not repeated.
func generate(ctx context.Context, extractor *extract.Extractor, docs loader.GraphFileLoader, o extractOptions) ([]common.Triple, error) {
	seen := make(map[common.Triple]struct{})
	out := []common.Triple{}

	for _, path := range o.files {
		file, err := loader.NewGraphDocumentFile(loader.NewGraphFileParams{
			ID:        path,
			FilePath:  path,
			MaxTokens: o.maxTokens,
			Loader:    docs,
		})
		if err != nil {
			return nil, err
		}

		triples, err := extractor.ExtractFile(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", path, err)
		}
		for _, t := range triples {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out, nil
}

// writeOutput replaces path only once the whole CSV has been written.
func writeOutput(path string, triples []common.Triple) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".csvgen-*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeTriples(tmp, triples); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func writeTriples(w io.Writer, triples []common.Triple) error {
	if err := csvloader.WriteTriples(w, triples); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
