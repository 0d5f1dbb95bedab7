package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clausewise/contract-analyzer/internal/aggregator"
	"github.com/clausewise/contract-analyzer/internal/classifier"
	"github.com/clausewise/contract-analyzer/internal/embeddings"
	"github.com/clausewise/contract-analyzer/internal/segmenter"
	"github.com/clausewise/contract-analyzer/internal/similarity"
	"github.com/clausewise/contract-analyzer/pkg/models"
)

var (
	// ErrCancelled is returned when the document run was cancelled before
	// completion
	ErrCancelled = errors.New("analysis cancelled")

	// ErrUpstreamTimeout marks a capability call that kept timing out
	// after retry exhaustion
	ErrUpstreamTimeout = errors.New("upstream call timed out")
)

// State is a lifecycle state of one document run
type State string

const (
	StateReceived    State = "received"
	StateSegmented   State = "segmented"
	StateClassifying State = "classifying"
	StateEmbedding   State = "embedding"
	StateAggregating State = "aggregating"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// StatusReporter is notified of state transitions so contract records can
// track pending/processing/completed/failed. The pipeline reports into the
// store but does not own its schema.
type StatusReporter interface {
	ReportState(ctx context.Context, contractID uuid.UUID, state State)
}

// Config holds pipeline tuning
type Config struct {
	// Concurrency bounds parallel per-clause classification calls
	Concurrency int

	// CallTimeout applies to each external capability call attempt
	CallTimeout time.Duration

	// MaxRetries is the number of retries after a failed capability call
	MaxRetries int

	// RetryBackoff is the initial backoff between retries, doubling each
	// attempt
	RetryBackoff time.Duration

	// Strict aborts the whole document on the first per-clause failure
	// instead of degrading
	Strict bool

	// SimilarityContext is the number of corpus precedents looked up per
	// clause; 0 skips the embedding stage entirely
	SimilarityContext int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Concurrency:       4,
		CallTimeout:       30 * time.Second,
		MaxRetries:        2,
		RetryBackoff:      500 * time.Millisecond,
		SimilarityContext: 3,
	}
}

// ClauseFailure records a clause whose classification terminally failed
type ClauseFailure struct {
	Position   int    `json:"position"`
	ClauseText string `json:"clause_text"`
	Err        error  `json:"-"`
	Reason     string `json:"reason"`
}

// Request is one contract analysis job
type Request struct {
	ContractID uuid.UUID
	Text       string
	TypeHint   models.ContractType
	Filename   string
}

// Result is the outcome of one document run. A non-empty ClauseFailures
// means the run completed in degraded mode: the analysis is valid but
// some clauses could not be judged.
type Result struct {
	ContractID     uuid.UUID
	Analysis       *models.ContractAnalysis
	ClauseFailures []ClauseFailure

	// Precedents maps clause position to similar corpus clauses, advisory
	// context for the caller. Empty when the embedding stage is disabled
	// or failed.
	Precedents map[int][]models.SimilarClause

	// PrecedentErr records a failed precedent lookup. Never fatal:
	// similarity context is advisory.
	PrecedentErr error
}

// Pipeline sequences segmentation, classification, optional similarity
// lookup, and aggregation for one document at a time
type Pipeline struct {
	classifier *classifier.Classifier
	aggregator *aggregator.Aggregator
	provider   embeddings.Provider
	index      *similarity.Index
	reporter   StatusReporter
	config     Config
}

// Option configures the Pipeline
type Option func(*Pipeline)

// WithConfig replaces the default pipeline config
func WithConfig(config Config) Option {
	return func(p *Pipeline) {
		p.config = config
	}
}

// WithSimilarity enables the embedding stage against the given provider
// and corpus index
func WithSimilarity(provider embeddings.Provider, index *similarity.Index) Option {
	return func(p *Pipeline) {
		p.provider = provider
		p.index = index
	}
}

// WithReporter wires document status reporting
func WithReporter(reporter StatusReporter) Option {
	return func(p *Pipeline) {
		p.reporter = reporter
	}
}

// New creates a Pipeline around the given classifier and aggregator
func New(c *classifier.Classifier, agg *aggregator.Aggregator, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: c,
		aggregator: agg,
		config:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.config.Concurrency <= 0 {
		p.config.Concurrency = DefaultConfig().Concurrency
	}
	return p
}

// Analyze runs the full pipeline for one document and returns the
// aggregated analysis. Per-clause failures degrade the result unless the
// pipeline is strict; document-level failures (empty document,
// cancellation) abort the run.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.ContractID == uuid.Nil {
		req.ContractID = uuid.New()
	}

	p.report(ctx, req.ContractID, StateReceived)

	clauses, err := segmenter.Segment(req.Text)
	if err != nil {
		return nil, p.fail(ctx, req.ContractID, err)
	}
	p.report(ctx, req.ContractID, StateSegmented)

	contractType := req.TypeHint
	if contractType == "" {
		contractType = p.detectType(ctx, req.Text)
	}

	p.report(ctx, req.ContractID, StateClassifying)

	// Precedent lookup derives from the same clause texts and runs
	// alongside classification; it is advisory output, not aggregation
	// input
	var (
		precedents   map[int][]models.SimilarClause
		precedentErr error
		precedentWg  sync.WaitGroup
	)
	if p.embeddingEnabled() {
		p.report(ctx, req.ContractID, StateEmbedding)
		precedentWg.Add(1)
		go func() {
			defer precedentWg.Done()
			precedents, precedentErr = p.lookupPrecedents(ctx, clauses)
		}()
	}

	docCtx := classifier.Context{
		ContractType: contractType,
		Filename:     req.Filename,
	}
	outcomes, strictErr := p.classifyAll(ctx, clauses, docCtx)

	precedentWg.Wait()

	if ctx.Err() != nil {
		return nil, p.fail(ctx, req.ContractID, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err()))
	}
	if strictErr != nil {
		return nil, p.fail(ctx, req.ContractID, strictErr)
	}

	var (
		flagged   []models.FlaggedClause
		positives []string
		failures  []ClauseFailure
	)
	for i, outcome := range outcomes {
		if outcome.err != nil {
			failures = append(failures, ClauseFailure{
				Position:   clauses[i].Position,
				ClauseText: clauses[i].Text,
				Err:        outcome.err,
				Reason:     outcome.err.Error(),
			})
			continue
		}
		if outcome.result.Flagged != nil {
			flagged = append(flagged, *outcome.result.Flagged)
		}
		if outcome.result.Positive != "" {
			positives = append(positives, outcome.result.Positive)
		}
	}

	p.report(ctx, req.ContractID, StateAggregating)

	analysis, err := p.aggregator.Aggregate(contractType, len(clauses), flagged, positives)
	if err != nil {
		return nil, p.fail(ctx, req.ContractID, err)
	}

	p.report(ctx, req.ContractID, StateCompleted)

	return &Result{
		ContractID:     req.ContractID,
		Analysis:       analysis,
		ClauseFailures: failures,
		Precedents:     precedents,
		PrecedentErr:   precedentErr,
	}, nil
}

type clauseOutcome struct {
	result classifier.Result
	err    error
}

// classifyAll fans classification out over a bounded worker pool and
// joins before returning. Outcomes are indexed by clause order, so
// completion order never leaks to callers. In strict mode the returned
// error is the failure that triggered the abort; outcomes cancelled in
// its wake are never promoted to the document-level error.
func (p *Pipeline) classifyAll(ctx context.Context, clauses []models.Clause, docCtx classifier.Context) ([]clauseOutcome, error) {
	outcomes := make([]clauseOutcome, len(clauses))

	// In strict mode the first failure stops the remaining work
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var strictMu sync.Mutex
	var strictErr error

	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup

	for i, clause := range clauses {
		wg.Add(1)
		go func(i int, clause models.Clause) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			// Cancellation stops issuing new calls; results of aborted
			// clauses are recorded as cancelled
			if runCtx.Err() != nil {
				outcomes[i] = clauseOutcome{err: fmt.Errorf("%w: %v", ErrCancelled, runCtx.Err())}
				return
			}

			var result classifier.Result
			err := p.callWithRetry(runCtx, func(callCtx context.Context) error {
				var cerr error
				result, cerr = p.classifier.Classify(callCtx, clause, docCtx)
				return cerr
			})

			outcomes[i] = clauseOutcome{result: result, err: err}
			if err != nil && p.config.Strict && !errors.Is(err, ErrCancelled) {
				strictMu.Lock()
				if strictErr == nil {
					strictErr = fmt.Errorf("clause at position %d: %w", clause.Position, err)
					cancel()
				}
				strictMu.Unlock()
			}
		}(i, clause)
	}

	wg.Wait()
	return outcomes, strictErr
}

// lookupPrecedents embeds all clause texts in one batch and queries the
// corpus index per clause
func (p *Pipeline) lookupPrecedents(ctx context.Context, clauses []models.Clause) (map[int][]models.SimilarClause, error) {
	texts := make([]string, len(clauses))
	for i, clause := range clauses {
		texts[i] = clause.Text
	}

	var vectors [][]float32
	err := p.callWithRetry(ctx, func(callCtx context.Context) error {
		var eerr error
		vectors, eerr = p.provider.EmbedBatch(callCtx, texts)
		return eerr
	})
	if err != nil {
		return nil, err
	}

	precedents := make(map[int][]models.SimilarClause, len(clauses))
	for i, clause := range clauses {
		similar, err := p.index.Query(vectors[i], p.config.SimilarityContext)
		if err != nil {
			return nil, err
		}
		if len(similar) > 0 {
			precedents[clause.Position] = similar
		}
	}
	return precedents, nil
}

// detectType asks the classifier for the contract type; detection is
// best-effort and falls back to Other
func (p *Pipeline) detectType(ctx context.Context, text string) models.ContractType {
	var detected models.ContractType
	err := p.callWithRetry(ctx, func(callCtx context.Context) error {
		var derr error
		detected, derr = p.classifier.DetectContractType(callCtx, text)
		return derr
	})
	if err != nil {
		return models.ContractTypeOther
	}
	return detected
}

func (p *Pipeline) embeddingEnabled() bool {
	return p.provider != nil && p.index != nil && p.config.SimilarityContext > 0
}

func (p *Pipeline) report(ctx context.Context, contractID uuid.UUID, state State) {
	if p.reporter != nil {
		p.reporter.ReportState(ctx, contractID, state)
	}
}

func (p *Pipeline) fail(ctx context.Context, contractID uuid.UUID, err error) error {
	p.report(ctx, contractID, StateFailed)
	return err
}
