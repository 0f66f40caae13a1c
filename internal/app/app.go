package app

import (
	"time"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/handlers"
	"github.com/ternarybob/aestimo/internal/marketdata"
	"github.com/ternarybob/aestimo/internal/research"
	"github.com/ternarybob/aestimo/internal/services/pdf"
	"github.com/ternarybob/aestimo/internal/services/reports"
	"github.com/ternarybob/aestimo/internal/services/synthesis"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Upstream clients
	MarketClient   *marketdata.Client
	ResearchClient *research.Client

	// Core services
	SynthesisService *synthesis.Service
	ReportStore      *reports.Store
	Orchestrator     *reports.Orchestrator
	Janitor          *reports.Janitor
	PDFService       *pdf.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	ReportHandler *handlers.ReportHandler
}

// New creates and wires all application components
func New(config *common.Config) (*App, error) {
	logger := common.GetLogger()

	a := &App{
		Config: config,
		Logger: logger,
	}

	a.MarketClient = marketdata.NewClient(config.Market.APIKey,
		marketdata.WithBaseURL(config.Market.BaseURL),
		marketdata.WithLogger(logger),
		marketdata.WithTimeout(config.Market.Timeout),
		marketdata.WithRateLimit(config.Market.RateLimit),
	)

	a.ResearchClient = research.NewClient(
		research.WithBaseURL(config.Research.BaseURL),
		research.WithLogger(logger),
		research.WithTimeout(config.Research.Timeout),
		research.WithMaxResults(config.Research.MaxResults),
		research.WithUserAgent(config.Research.UserAgent),
		research.WithRateLimit(config.Research.RateLimit),
	)

	a.SynthesisService = synthesis.NewService(config, logger)
	a.ReportStore = reports.NewStore(config.Reports.Capacity, logger)
	a.Orchestrator = reports.NewOrchestrator(config, a.ReportStore, a.MarketClient, a.ResearchClient, a.SynthesisService, logger)
	a.Janitor = reports.NewJanitor(a.ReportStore, &config.Reports, logger)
	a.PDFService = pdf.NewService(logger)

	a.APIHandler = handlers.NewAPIHandler()
	a.ReportHandler = handlers.NewReportHandler(a.Orchestrator, a.ReportStore, a.PDFService)

	if err := a.Janitor.Start(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("environment", config.Environment).
		Int("report_capacity", config.Reports.Capacity).
		Dur("report_ttl", config.Reports.TTL).
		Msg("Application initialized")

	return a, nil
}

// Close releases application resources
func (a *App) Close() {
	start := time.Now()

	a.Janitor.Stop()
	a.SynthesisService.Close()

	a.Logger.Info().
		Dur("duration", time.Since(start)).
		Msg("Application closed")
}
