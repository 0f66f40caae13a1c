package reports

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/marketdata"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/research"
	"github.com/ternarybob/aestimo/internal/services/synthesis"
)

// MarketData fetches a market snapshot for a ticker.
type MarketData interface {
	Fetch(ctx context.Context, ticker string) (*marketdata.Snapshot, error)
}

// Research gathers web findings for a ticker.
type Research interface {
	Search(ctx context.Context, ticker string) ([]research.Finding, error)
}

// Synthesizer turns the fetched inputs into a markdown memo.
type Synthesizer interface {
	Synthesize(ctx context.Context, request *synthesis.Request) (string, error)
}

// Orchestrator runs the analyze pipeline: validate, fetch concurrently,
// synthesize, store.
type Orchestrator struct {
	config      *common.Config
	store       *Store
	marketData  MarketData
	research    Research
	synthesizer Synthesizer
	logger      arbor.ILogger
}

// NewOrchestrator creates an analyze pipeline over the given adapters.
func NewOrchestrator(
	config *common.Config,
	store *Store,
	marketData MarketData,
	research Research,
	synthesizer Synthesizer,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		config:      config,
		store:       store,
		marketData:  marketData,
		research:    research,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Analyze validates the inputs, fetches market data and web findings in
// parallel, synthesizes a memo and stores it. Validation failures return
// before any adapter is called. Nothing is stored unless every stage
// succeeds.
func (o *Orchestrator) Analyze(ctx context.Context, rawTicker, model string) (*models.Report, error) {
	ticker, ok := common.NormalizeTicker(rawTicker)
	if !ok {
		return nil, models.NewValidationError("ticker", "must be a non-empty symbol of letters, digits, '.', '-' or '_'")
	}
	if model == "" || !o.config.IsSupportedModel(model) {
		return nil, models.NewValidationError("model", "unsupported model")
	}

	startTime := time.Now()
	o.logger.Info().
		Str("ticker", ticker).
		Str("model", model).
		Msg("Starting analysis")

	snapshot, findings, err := o.fetchInputs(ctx, ticker)
	if err != nil {
		return nil, err
	}

	markdown, err := o.synthesizer.Synthesize(ctx, &synthesis.Request{
		Ticker:   ticker,
		Model:    model,
		Snapshot: snapshot,
		Findings: findings,
	})
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Ticker:    ticker,
		Model:     model,
		Markdown:  markdown,
		CreatedAt: time.Now().UTC(),
	}
	o.store.Put(report)

	o.logger.Info().
		Str("ticker", ticker).
		Str("report_id", report.ID).
		Dur("duration", time.Since(startTime)).
		Msg("Analysis complete")

	return report, nil
}

// fetchInputs runs the market data and research adapters concurrently.
// The first failure cancels the other fetch; rate limit errors win over
// other failures so callers can back off.
func (o *Orchestrator) fetchInputs(ctx context.Context, ticker string) (*marketdata.Snapshot, []research.Finding, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg          sync.WaitGroup
		snapshot    *marketdata.Snapshot
		findings    []research.Finding
		marketErr   error
		researchErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		snapshot, marketErr = o.marketData.Fetch(fetchCtx, ticker)
		if marketErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		findings, researchErr = o.research.Search(fetchCtx, ticker)
		if researchErr != nil {
			cancel()
		}
	}()
	wg.Wait()

	if marketErr == nil && researchErr == nil {
		return snapshot, findings, nil
	}

	// Prefer the rate limit signal, otherwise the market data error
	if models.IsRateLimitError(marketErr) {
		return nil, nil, marketErr
	}
	if models.IsRateLimitError(researchErr) {
		return nil, nil, researchErr
	}
	if marketErr != nil {
		return nil, nil, marketErr
	}
	return nil, nil, researchErr
}

// Get returns a stored report by identifier.
func (o *Orchestrator) Get(id string) (*models.Report, error) {
	return o.store.Get(id)
}
