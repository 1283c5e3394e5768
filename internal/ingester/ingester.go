package ingester

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xapikatchu/xapikatchu/internal/parser"
	"github.com/xapikatchu/xapikatchu/internal/storage"
	"github.com/xapikatchu/xapikatchu/pkg/types"
)

// Ingester coordinates the ingestion pipeline: parse -> resolve -> store
type Ingester struct {
	parser  *parser.Parser
	storage storage.Storage
	log     *zap.Logger

	opts Options
}

// Options contains policy options for the ingester
type Options struct {
	// StoreCompleteXAPI keeps the raw payload on the fact row. When unset
	// the xapi column is always NULL.
	StoreCompleteXAPI bool
	// Workers bounds batch ingestion concurrency (default: runtime.NumCPU())
	Workers int
}

// Stats summarizes a batch ingestion run
type Stats struct {
	Ingested      int
	Failed        int
	ErrorMessages []string
}

// New creates a new Ingester instance
func New(p *parser.Parser, store storage.Storage, log *zap.Logger, opts Options) *Ingester {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingester{
		parser:  p,
		storage: store,
		log:     log,
		opts:    opts,
	}
}

// Ingest parses one raw xAPI statement and persists it. Parsing happens
// before any transaction starts, so malformed input writes nothing. All four
// dimension resolutions and the fact insert share one transaction; any
// resolution failure rolls the whole ingestion back.
func (ing *Ingester) Ingest(ctx context.Context, raw []byte) error {
	return ing.IngestLocale(ctx, raw, "")
}

// IngestLocale is Ingest with a per-statement locale override for language-map
// resolution. An empty locale uses the configured default.
func (ing *Ingester) IngestLocale(ctx context.Context, raw []byte, locale string) error {
	rec, err := ing.parser.WithLocale(locale).Parse(raw)
	if err != nil {
		ing.log.Warn("statement rejected", zap.Error(err))
		return err
	}

	tx, err := ing.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Covers early returns and client disconnects; a no-op after Commit
	defer func() { _ = tx.Rollback() }()

	// All four resolutions always run; failures are collected rather than
	// short-circuited so the log names every broken dimension before rollback
	var failures []error

	actorID, err := tx.ResolveActor(ctx, &rec.Actor)
	if err != nil {
		failures = append(failures, fmt.Errorf("actor: %w", err))
	}
	verbID, err := tx.ResolveVerb(ctx, &rec.Verb)
	if err != nil {
		failures = append(failures, fmt.Errorf("verb: %w", err))
	}
	objectID, err := tx.ResolveObject(ctx, &rec.Object)
	if err != nil {
		failures = append(failures, fmt.Errorf("object: %w", err))
	}
	resultID, err := tx.ResolveResult(ctx, &rec.Result)
	if err != nil {
		failures = append(failures, fmt.Errorf("result: %w", err))
	}

	if len(failures) > 0 {
		ing.log.Error("statement resolution failed",
			zap.Int("failed_dimensions", len(failures)),
			zap.Errors("failures", failures))
		return fmt.Errorf("%w: %v", types.ErrResolutionFailed, errors.Join(failures...))
	}

	st := &storage.Statement{
		ActorID:  actorID,
		VerbID:   verbID,
		ObjectID: objectID,
		ResultID: resultID,
	}
	if ing.opts.StoreCompleteXAPI {
		payload := rec.Raw
		st.XAPI = &payload
	}

	if err := tx.InsertStatement(ctx, st); err != nil {
		ing.log.Error("statement write failed", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", types.ErrWriteFailed, err)
	}

	ing.log.Debug("statement ingested",
		zap.Int64("statement_id", st.ID),
		zap.Int64("actor_id", actorID),
		zap.Int64("verb_id", verbID))
	return nil
}

// IngestBatch ingests a slice of raw statements with bounded concurrency.
// Per-statement failures are collected in the returned Stats instead of
// cancelling siblings; only context cancellation aborts the batch.
func (ing *Ingester) IngestBatch(ctx context.Context, statements [][]byte) (*Stats, error) {
	workers := ing.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex // Protects stats
	stats := &Stats{ErrorMessages: make([]string, 0)}

	for _, raw := range statements {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := ing.Ingest(gctx, raw)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				stats.ErrorMessages = append(stats.ErrorMessages, err.Error())
				return nil
			}
			stats.Ingested++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}
