package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"liqwatch/config"
	"liqwatch/internal/channel/announce"
	"liqwatch/internal/dashboard"
	"liqwatch/internal/dedup"
	"liqwatch/internal/metrics"
	"liqwatch/internal/notifier"
	"liqwatch/internal/processor"
	"liqwatch/internal/reader/coinalyze"
	"liqwatch/internal/scanner"
	"liqwatch/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolvePath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
		"env":     config.AppEnvironment(),
	}).Info("starting liqwatch")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		metrics.InitCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	console := notifier.NewConsole(os.Stdout, cfg.Console.StatusRow, cfg.Console.StatusCol)

	var (
		queue  *announce.Channels
		worker *notifier.Worker
		wg     sync.WaitGroup
	)
	if cfg.Speech.Mode != config.SpeechModeOff {
		queue = announce.NewChannels(cfg.Speech.QueueSize)
		speaker := notifier.NewSpeaker(
			notifier.NewHTTPSynthesizer(cfg.Speech.TTSURL, cfg.Speech.Language, cfg.Speech.Timeout),
			notifier.ExecPlayer{Command: cfg.Speech.Player, Args: cfg.Speech.PlayerArgs},
			cfg.Speech.TempDir,
		)
		worker = notifier.NewWorker(queue, cfg.Speech.Mode, speaker, console)

		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	store := dedup.NewStore(cfg.Detector.SeenRetention)
	detector := processor.NewDetector(processor.Thresholds{
		MinimalLiquidation:  cfg.Detector.Liquidation.Minimal,
		MinimalOpenInterest: cfg.Detector.OpenInterest.Minimal,
		RoundingExponent:    cfg.Detector.OpenInterest.RoundingExponent,
	}, store, notifier.New(console, queue))

	client := coinalyze.NewClient(cfg.API.Key,
		coinalyze.WithTimeout(cfg.API.Timeout),
		coinalyze.WithUserAgent(cfg.API.UserAgent),
		coinalyze.WithRateLimit(cfg.API.RateLimit.RequestsPerMinute, cfg.API.RateLimit.BurstSize),
		coinalyze.WithLogger(log),
	)

	collectStats := func() metrics.DetectorStats {
		ds := detector.Stats()
		stats := metrics.DetectorStats{
			Candles:        ds.Candles,
			Announced:      ds.Announced,
			Duplicates:     ds.Duplicates,
			BelowThreshold: ds.BelowThreshold,
			SeenKeys:       ds.SeenKeys,
			EvictedKeys:    store.Evicted(),
		}
		if queue != nil {
			qs := queue.GetStats()
			stats.QueueSent, stats.QueueDropped = qs.Sent, qs.Dropped
		}
		if worker != nil {
			stats.SpeechFailures = worker.Failures()
		}
		return stats
	}
	report := func() {
		metrics.ReportDetector(log, "detector", collectStats())
	}

	if dash := dashboard.NewServer(cfg.Dashboard, log, collectStats); dash != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dash.Run(ctx); err != nil {
				log.WithError(err).Warn("dashboard stopped")
			}
		}()
	}

	var status scanner.StatusPrinter
	if cfg.Console.StatusLine {
		status = console
	}

	scan := scanner.New(scanner.Config{
		LiquidationURL:    cfg.API.LiquidationURL,
		OpenInterestURL:   cfg.API.OpenInterestURL,
		MarketsURL:        cfg.API.MarketsURL,
		Liquidations:      cfg.Detector.Liquidation.Enabled,
		OpenInterest:      cfg.Detector.OpenInterest.Enabled,
		Symbols:           cfg.Symbols.List,
		DiscoveryPrefix:   cfg.Symbols.DiscoveryPrefix,
		Lookback:          cfg.Poll.Lookback(),
		Interval:          cfg.Poll.Interval,
		LiquidationSleep:  cfg.Poll.LiquidationSleep,
		OpenInterestSleep: cfg.Poll.OpenInterestSleep,
		ReportInterval:    cfg.Poll.ReportInterval,
	}, client, detector, status, scanner.WithReporter(report))

	if err := scan.Init(ctx); err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("symbol initialisation failed")
			os.Exit(1)
		}
	} else {
		os.Stdout.WriteString("Starting the liquidation detector\n")
		if err := scan.Run(ctx); err != nil {
			log.WithError(err).Error("scanner stopped with error")
		}
	}

	log.Info("starting graceful shutdown")
	cancel()
	if queue != nil {
		queue.Close()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(10 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	report()
	log.Info("liqwatch stopped")
}
