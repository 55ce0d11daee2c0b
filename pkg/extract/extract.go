package extract

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/OFFIS-RIT/kgchat/internal/util"
	"github.com/OFFIS-RIT/kgchat/pkg/ai"
	"github.com/OFFIS-RIT/kgchat/pkg/common"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"

	"golang.org/x/sync/errgroup"
)

type extractTriple struct {
	Source   string `json:"source" jsonschema_description:"Name of the source entity as it appears in the text"`
	Target   string `json:"target" jsonschema_description:"Name of the target entity as it appears in the text"`
	Relation string `json:"relation" jsonschema_description:"Short verb phrase describing how the source relates to the target"`
}

type extractResponse struct {
	Triples []extractTriple `json:"triples" jsonschema_description:"Relationships identified in the text"`
}

// Extractor turns documents into relationship triples with a language model.
type Extractor struct {
	client   ai.GraphAIClient
	count    TokenCounter
	parallel int
}

// NewExtractorParams configures an Extractor. Parallel below one means
// one request at a time.
type NewExtractorParams struct {
	Client   ai.GraphAIClient
	Counter  TokenCounter
	Parallel int
}

func NewExtractor(params NewExtractorParams) *Extractor {
	parallel := params.Parallel
	if parallel < 1 {
		parallel = 1
	}
	return &Extractor{
		client:   params.Client,
		count:    params.Counter,
		parallel: parallel,
	}
}

// ExtractFile reads file, splits it into units and extracts triples from
// every unit. Triples keep unit order and exact duplicates are dropped.
// Units whose extraction fails are logged and skipped; the call only fails
// when the file cannot be read or every unit failed. Client metrics are
// reset per file, so files must not be extracted concurrently on one client.
func (e *Extractor) ExtractFile(ctx context.Context, file loader.GraphFile) ([]common.Triple, error) {
	text, err := file.GetText(ctx)
	if err != nil {
		return nil, err
	}

	units, err := SplitIntoUnits(string(text), file.ID, file.MaxTokens, e.count)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return []common.Triple{}, nil
	}

	logger.Info("[Extract] Processing file", "file", file.ID, "units", len(units))
	e.client.ResetMetrics()

	results := make([][]common.Triple, len(units))
	var failed atomic.Int32
	var lastErr atomic.Value

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for i, unit := range units {
		g.Go(func() error {
			triples, err := e.ExtractUnit(gCtx, unit)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				logger.Warn("[Extract] Unit failed", "file", file.ID, "unit", unit.ID, "err", err)
				failed.Add(1)
				lastErr.Store(err)
				return nil
			}
			results[i] = triples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if int(failed.Load()) == len(units) {
		return nil, fmt.Errorf("extraction failed for all %d units of %s: %w", len(units), file.ID, lastErr.Load().(error))
	}

	seen := make(map[common.Triple]struct{})
	out := []common.Triple{}
	for _, triples := range results {
		for _, t := range triples {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}

	m := e.client.GetMetrics()
	logger.Info("[Extract] Finished file",
		"file", file.ID,
		"triples", len(out),
		"failed_units", failed.Load(),
		"tokens", m.TotalTokens,
	)
	return out, nil
}

// ExtractUnit asks the model for the triples in a single unit. Triples with
// an empty field after cleaning are dropped.
func (e *Extractor) ExtractUnit(ctx context.Context, unit Unit) ([]common.Triple, error) {
	var res extractResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"extract_triples",
		"Extract relationship triples from a provided text.",
		fmt.Sprintf(ai.TripleExtractionPrompt, unit.Text),
		&res,
		ai.WithSystemPrompts(ai.TripleExtractionSystemPrompt),
	)
	if err != nil {
		return nil, err
	}

	triples := make([]common.Triple, 0, len(res.Triples))
	for _, t := range res.Triples {
		triple := common.Triple{
			Source:   util.CleanLabel(t.Source),
			Target:   util.CleanLabel(t.Target),
			Relation: util.CleanLabel(t.Relation),
		}
		if triple.Source == "" || triple.Target == "" || triple.Relation == "" {
			continue
		}
		triples = append(triples, triple)
	}
	return triples, nil
}
