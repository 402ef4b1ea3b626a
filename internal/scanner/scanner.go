// Package scanner drives the poll, detect and sleep cycle.
package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"liqwatch/internal/metrics"
	"liqwatch/internal/model"
	"liqwatch/internal/reader/coinalyze"
	"liqwatch/logger"
)

const component = "scanner"

// Client is the subset of the API client the scanner needs.
type Client interface {
	FetchLiquidationHistory(ctx context.Context, endpoint string, req coinalyze.HistoryRequest) ([]model.LiquidationCandle, error)
	FetchOpenInterestHistory(ctx context.Context, endpoint string, req coinalyze.HistoryRequest) ([]model.OpenInterestCandle, error)
	DiscoverSymbols(ctx context.Context, endpoint, prefix string) (string, error)
}

// Detector consumes one batch per poll.
type Detector interface {
	ProcessLiquidations(ctx context.Context, symbol string, candles []model.LiquidationCandle) []model.Event
	ProcessOpenInterest(ctx context.Context, symbol string, candles []model.OpenInterestCandle) []model.Event
}

// StatusPrinter shows the time of the current cycle.
type StatusPrinter interface {
	StatusLine(now time.Time)
}

type Config struct {
	LiquidationURL    string
	OpenInterestURL   string
	MarketsURL        string
	Liquidations      bool
	OpenInterest      bool
	Symbols           []string
	DiscoveryPrefix   string
	Lookback          time.Duration
	Interval          string
	LiquidationSleep  time.Duration
	OpenInterestSleep time.Duration
	// ReportInterval is how often the reporter runs. Zero disables it.
	ReportInterval time.Duration
}

type endpoint struct {
	name  string
	sleep time.Duration
	poll  func(ctx context.Context, req coinalyze.HistoryRequest) (int, error)
}

type Scanner struct {
	cfg      Config
	client   Client
	detector Detector
	status   StatusPrinter
	reporter func()
	now      func() time.Time
	log      *logger.Log

	symbols    string
	endpoints  []endpoint
	lastReport time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock replaces the wall clock used for request windows.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// WithReporter registers fn to run every Config.ReportInterval.
func WithReporter(fn func()) Option {
	return func(s *Scanner) {
		s.reporter = fn
	}
}

// New builds a scanner. status may be nil.
func New(cfg Config, client Client, detector Detector, status StatusPrinter, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:      cfg,
		client:   client,
		detector: detector,
		status:   status,
		now:      time.Now,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Liquidations {
		s.endpoints = append(s.endpoints, endpoint{
			name:  string(model.KindLiquidation),
			sleep: cfg.LiquidationSleep,
			poll:  s.pollLiquidations,
		})
	}
	if cfg.OpenInterest {
		s.endpoints = append(s.endpoints, endpoint{
			name:  string(model.KindOpenInterest),
			sleep: cfg.OpenInterestSleep,
			poll:  s.pollOpenInterest,
		})
	}
	return s
}

// Symbols returns the symbol list used for requests, empty before Init.
func (s *Scanner) Symbols() string {
	return s.symbols
}

// Init resolves the symbol list. With a discovery prefix the markets
// endpoint is queried until it succeeds or ctx is cancelled.
func (s *Scanner) Init(ctx context.Context) error {
	if s.cfg.DiscoveryPrefix == "" {
		s.symbols = strings.Join(s.cfg.Symbols, ",")
		if s.symbols == "" {
			return fmt.Errorf("no symbols configured")
		}
		return nil
	}

	log := s.log.WithComponent(component).WithFields(logger.Fields{"prefix": s.cfg.DiscoveryPrefix})
	for attempt := 1; ; attempt++ {
		symbols, err := s.client.DiscoverSymbols(ctx, s.cfg.MarketsURL, s.cfg.DiscoveryPrefix)
		if err == nil {
			s.symbols = symbols
			log.WithFields(logger.Fields{"symbols": symbols}).Info("symbol discovery complete")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.WithFields(logger.Fields{"attempt": attempt}).WithError(err).Warn("symbol discovery failed, retrying")
		metrics.EmitMetric(s.log, component, "poll_errors", 1, "counter", logger.Fields{"endpoint": "markets"})

		if err := sleep(ctx, s.cfg.LiquidationSleep); err != nil {
			return err
		}
	}
}

// Run polls every enabled endpoint in turn until ctx is cancelled. Poll
// failures never stop the loop.
func (s *Scanner) Run(ctx context.Context) error {
	if s.symbols == "" {
		if err := s.Init(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	if len(s.endpoints) == 0 {
		return fmt.Errorf("no endpoints enabled")
	}

	s.log.WithComponent(component).WithFields(logger.Fields{
		"symbols":   s.symbols,
		"endpoints": len(s.endpoints),
		"interval":  s.cfg.Interval,
		"lookback":  s.cfg.Lookback.String(),
	}).Info("scanner started")

	s.lastReport = s.now()
	for {
		for _, ep := range s.endpoints {
			s.cycle(ctx, ep)
			if err := sleep(ctx, ep.sleep); err != nil {
				s.log.WithComponent(component).Info("scanner stopped")
				return nil
			}
		}
	}
}

func (s *Scanner) cycle(ctx context.Context, ep endpoint) {
	now := s.now()
	if s.status != nil {
		s.status.StatusLine(now)
	}

	req := coinalyze.HistoryRequest{
		Symbols:  s.symbols,
		Window:   model.NewWindow(now, s.cfg.Lookback),
		Interval: s.cfg.Interval,
	}
	if _, err := ep.poll(ctx, req); err != nil && ctx.Err() == nil {
		s.log.WithComponent(component).WithFields(logger.Fields{
			"endpoint": ep.name,
			"symbols":  s.symbols,
		}).WithError(err).Warn("poll failed, treating as empty batch")
		metrics.EmitMetric(s.log, component, "poll_errors", 1, "counter", logger.Fields{"endpoint": ep.name})
	}

	if s.reporter != nil && s.cfg.ReportInterval > 0 && now.Sub(s.lastReport) >= s.cfg.ReportInterval {
		s.reporter()
		s.lastReport = now
	}
}

func (s *Scanner) pollLiquidations(ctx context.Context, req coinalyze.HistoryRequest) (int, error) {
	candles, err := s.client.FetchLiquidationHistory(ctx, s.cfg.LiquidationURL, req)
	if err != nil {
		candles = nil
	}
	s.recordCandles(model.KindLiquidation, len(candles))
	return len(s.detector.ProcessLiquidations(ctx, s.symbols, candles)), err
}

func (s *Scanner) pollOpenInterest(ctx context.Context, req coinalyze.HistoryRequest) (int, error) {
	candles, err := s.client.FetchOpenInterestHistory(ctx, s.cfg.OpenInterestURL, req)
	if err != nil {
		candles = nil
	}
	s.recordCandles(model.KindOpenInterest, len(candles))
	return len(s.detector.ProcessOpenInterest(ctx, s.symbols, candles)), err
}

func (s *Scanner) recordCandles(kind model.Kind, n int) {
	metrics.EmitMetric(s.log, component, "poll_candles", n, "gauge", logger.Fields{"endpoint": string(kind)})
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
