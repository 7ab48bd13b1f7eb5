package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/link-oracle/internal/config"
	"github.com/alvmarrod/link-oracle/internal/crawler"
	"github.com/alvmarrod/link-oracle/internal/domain"
	"github.com/alvmarrod/link-oracle/internal/fetch"
	"github.com/alvmarrod/link-oracle/internal/frontier"
	"github.com/alvmarrod/link-oracle/internal/linkscore"
	"github.com/alvmarrod/link-oracle/internal/memory"
	"github.com/alvmarrod/link-oracle/internal/metrics"
	"github.com/alvmarrod/link-oracle/internal/pagescore"
	"github.com/alvmarrod/link-oracle/internal/storage"
	"github.com/alvmarrod/link-oracle/internal/version"
)

func main() {
	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Link Oracle v%s starting...", version.Version)

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logrus.Infof("Configuration loaded: seeds=%d, depth=%d, workers=%d, replay_n=%d",
		len(cfg.SeedURLs), cfg.MaxDepth, cfg.ConcurrentWorkers, cfg.ReplayN)

	// Initialize checkpoint store
	store, err := storage.NewCheckpointStore(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("Failed to initialize checkpoint store: %v", err)
	}
	defer store.Close()

	logrus.Infof("Database initialized: %s", cfg.DBPath)

	// Initialize metrics tracker
	tracker := metrics.NewTracker()

	// Build the prioritization core
	pages := pagescore.NewScorer()
	scorer := linkscore.NewScorer(pages.Categories(), linkscore.Options{
		FitDomainIntercept: cfg.FitDomainIntercept,
		Converge:           cfg.Converge,
		PositiveWeight:     cfg.PositiveWeight,
	})
	tree := memory.NewCrawlTree()

	// Frontier: priority queue with scope policy; drop notifications flow
	// back into the controller so the tree stays consistent.
	var ctrl *crawler.Controller
	scope := frontier.NewScope(cfg.MaxDepth, tree.Depth)
	queue := frontier.NewQueue(frontier.Options{
		Epsilon:    cfg.Epsilon,
		Seed:       time.Now().UnixNano(),
		Accept:     scope.Accept,
		OnDrop:     func(nodeID int64, reason string) { ctrl.HandleDrop(nodeID, reason) },
		PriorityOf: tree.PredictedScore,
	})
	ctrl = crawler.NewController(cfg, tree, scorer, pages, queue, store, tracker)

	// Initialize fetcher
	fetcher := fetch.NewFetcher(cfg, queue, ctrl.HandleVisit)

	// Seed the crawl
	for _, seedURL := range cfg.SeedURLs {
		host, err := domain.Extract(seedURL)
		if err != nil || host == "" {
			logrus.Fatalf("Invalid seed URL %s: %v", seedURL, err)
		}
		scope.AddRoot(host)

		nodeID := ctrl.RegisterSeed(seedURL)
		queue.Submit(seedURL, nodeID, 0)
		logrus.Infof("Seed enqueued: %s (node %d)", seedURL, nodeID)
	}

	// Start the orchestration loop and the fetch workers
	runDone := make(chan error, 1)
	go func() {
		runDone <- ctrl.Run()
	}()
	fetcher.Start()

	// Setup signal handler for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Handle force quit on second signal
	forceQuitChan := make(chan os.Signal, 1)
	signal.Notify(forceQuitChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-forceQuitChan        // First signal (consumed by main handler)
		sig := <-forceQuitChan // Second signal = force quit
		logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)

		if err := tracker.WriteToFile(cfg.MetricsPath, "forced_exit"); err != nil {
			logrus.Errorf("Emergency metrics save failed: %v", err)
		}
		os.Exit(1)
	}()

	// Monitor the frontier for natural termination
	idleDone := make(chan struct{})
	go func() {
		fetcher.WaitUntilIdle()
		close(idleDone)
	}()

	// Wait for a signal or natural completion
	terminationReason := "queue_empty"
	select {
	case sig := <-sigChan:
		logrus.Infof("Received signal: %v", sig)
		terminationReason = "signal"
	case <-idleDone:
		logrus.Info("Crawl completed naturally")
	case err := <-runDone:
		logrus.Errorf("Orchestrator stopped early: %v", err)
		terminationReason = "contract_violation"
		runDone <- err
	}

	logrus.Info("Initiating graceful shutdown...")
	logrus.Info("Step 1/4: Stopping fetcher...")

	// Stop fetcher (with timeouts built-in)
	fetcher.Stop()

	logrus.Info("Step 2/4: Stopping orchestrator and writing final checkpoint...")

	ctrl.Stop()
	runErr := <-runDone

	logrus.Info("Step 3/4: Writing final metrics...")

	logrus.Info("Final stats: " + tracker.LogProgress())
	if err := tracker.WriteToFile(cfg.MetricsPath, terminationReason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", cfg.MetricsPath)
	}

	logrus.Info("Step 4/4: Closing database connection...")

	// Database is closed via defer store.Close()

	if runErr != nil {
		logrus.Errorf("Shutdown finished with error: %v", runErr)
		store.Close()
		os.Exit(1)
	}

	logrus.Info("Graceful shutdown complete. Goodbye!")
}
