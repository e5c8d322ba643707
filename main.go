package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"ConsentCrawl/internal/blocklist"
	"ConsentCrawl/internal/config"
	"ConsentCrawl/internal/crawl"
	"ConsentCrawl/internal/http"
	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/ratelimit"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// crawlFlags mirrors the run options that can be overridden on the command line
type crawlFlags struct {
	batchSize   int
	headless    string
	screenshot  string
	bootstrap   bool
	showOutput  bool
	resultsFile string
	blocklists  string
	rules       string
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "consentcrawl",
		Short:        "Crawl websites and compare tracking before and after cookie consent",
		SilenceUsage: true,
	}

	root.AddCommand(newCrawlCommand(), newServeCommand(), newBlocklistsCommand())
	return root
}

func newCrawlCommand() *cobra.Command {
	flags := &crawlFlags{}

	cmd := &cobra.Command{
		Use:   "crawl <url[,url...]|file.txt>",
		Short: "Visit every target and store one record per site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			return runCrawl(cmd.Context(), cfg, args[0], flags)
		},
	}

	cmd.Flags().IntVarP(&flags.batchSize, "batch-size", "b", 15, "number of sites probed concurrently")
	cmd.Flags().StringVar(&flags.headless, "headless", "yes", "run the browser headless (yes/no)")
	cmd.Flags().StringVar(&flags.screenshot, "screenshot", "no", "store a screenshot before and after consent (yes/no)")
	cmd.Flags().BoolVar(&flags.bootstrap, "bootstrap", false, "force a rebuild of the blocklist index")
	cmd.Flags().BoolVarP(&flags.showOutput, "show-output", "o", false, "print every record to stdout")
	cmd.Flags().StringVar(&flags.resultsFile, "results-file", "", "JSONL file the records are appended to")
	cmd.Flags().StringVar(&flags.blocklists, "blocklists", "", "YAML file with the blocklist sources")
	cmd.Flags().StringVar(&flags.rules, "rules", "", "YAML file with the consent-manager rules")

	return cmd
}

// apply overrides cfg with the flags that were set explicitly
func (f *crawlFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if changed("headless") {
		value, ok := config.ParseBool(f.headless)
		if !ok {
			return fmt.Errorf("%w: --headless expects yes or no, got %q", models.ErrConfig, f.headless)
		}
		cfg.Headless = value
	}
	if changed("screenshot") {
		value, ok := config.ParseBool(f.screenshot)
		if !ok {
			return fmt.Errorf("%w: --screenshot expects yes or no, got %q", models.ErrConfig, f.screenshot)
		}
		cfg.Screenshot = value
	}
	if changed("bootstrap") {
		cfg.ForceBlocklistRefresh = f.bootstrap
	}
	if changed("results-file") {
		cfg.ResultsFile = f.resultsFile
	}
	if changed("blocklists") {
		cfg.BlocklistsFile = f.blocklists
	}
	if changed("rules") {
		cfg.ConsentRulesFile = f.rules
	}

	return cfg.Validate()
}

func runCrawl(ctx context.Context, cfg *config.Config, target string, flags *crawlFlags) error {
	urls, err := crawl.ParseTargets(target)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx = logger.WithLogEvent(ctx, logger.NewInternalLogEvent())

	if _, err := a.loadBlocklists(ctx, false); err != nil {
		return err
	}

	prober, err := a.newProber(ctx)
	if err != nil {
		return err
	}

	out, err := a.newSink(ctx, flags.showOutput)
	if err != nil {
		a.logger.LogError(ctx, logger.OpSinkWrite, cfg.ResultsFile, "Failed to open results sink", err, models.LogSeverityHigh, nil)
		return err
	}
	defer out.Close()

	summary, err := a.newRunner(prober).Run(ctx, urls, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Crawled %d sites in %d windows: %d succeeded, %d failed\n",
		summary.Total, summary.Windows, summary.Succeeded, summary.Failed)
	return nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose the crawler over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), config.Load())
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	startupCtx := logger.WithLogEvent(context.Background(), logger.NewInternalLogEvent())

	a.logger.LogInfo(startupCtx, logger.OpServerStart, "Starting ConsentCrawl API", map[string]interface{}{
		"version": "1.0.0",
		"config": map[string]interface{}{
			"port":       cfg.Port,
			"cache_type": cfg.CacheType,
			"batch_size": cfg.BatchSize,
		},
	})

	index, err := a.loadBlocklists(startupCtx, false)
	if err != nil {
		return err
	}
	a.logger.LogInfo(startupCtx, logger.OpBlocklistLoad, fmt.Sprintf("Loaded %d domains from blocklists", index.Len()), nil)

	prober, err := a.newProber(startupCtx)
	if err != nil {
		return err
	}

	rateLimiter := ratelimit.NewTwoTierRateLimiter(
		cfg.RateLimitPerSec*4,
		cfg.RateLimitBurst*4,
		cfg.RateLimitPerSec,
		cfg.RateLimitBurst,
	)
	defer rateLimiter.Close()

	handler := http.NewHandler(prober, a.newRunner(prober), a.logger)

	addr := ":" + cfg.Port
	server := http.NewServer(
		addr,
		handler,
		a.logger,
		rateLimiter,
		a.metrics,
		a.registry,
		cfg.ServerReadTimeout,
		cfg.ServerWriteTimeout,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			a.logger.LogError(startupCtx, logger.OpServerStart, "", "Server failed to start", err, models.LogSeverityHigh, map[string]interface{}{"addr": addr})
			errCh <- err
		}
	}()

	fmt.Printf("🚀 ConsentCrawl API server started on %s\n", addr)
	fmt.Println("📋 Available endpoints:")
	fmt.Println("  GET  /health            - Health check")
	fmt.Println("  GET  /metrics           - Prometheus metrics")
	fmt.Println("  POST /api/crawl         - Crawl a single site")
	fmt.Println("  POST /api/batch-crawl   - Crawl multiple sites")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Println("\n🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.LogError(shutdownCtx, logger.OpServerShutdown, "", "Server shutdown error", err, models.LogSeverityMedium, nil)
		log.Printf("Server shutdown error: %v", err)
		return err
	}

	a.logger.LogInfo(shutdownCtx, logger.OpServerShutdown, "Server shutdown completed successfully", nil)
	fmt.Println("✅ Server shutdown completed")
	return nil
}

func newBlocklistsCommand() *cobra.Command {
	var sourcesFile string

	cmd := &cobra.Command{
		Use:   "blocklists",
		Short: "Manage the tracking-domain index",
	}
	cmd.PersistentFlags().StringVar(&sourcesFile, "blocklists", "", "YAML file with the blocklist sources")

	load := func(cmd *cobra.Command, force bool) (*app, *blocklist.Index, error) {
		cfg := config.Load()
		if cmd.Flags().Changed("blocklists") {
			cfg.BlocklistsFile = sourcesFile
		}

		a, err := newApp(cfg)
		if err != nil {
			return nil, nil, err
		}

		ctx := logger.WithLogEvent(cmd.Context(), logger.NewInternalLogEvent())
		index, err := a.loadBlocklists(ctx, force)
		if err != nil {
			a.close()
			return nil, nil, err
		}
		return a, index, nil
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch every source and rebuild the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, index, err := load(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d domains\n", index.Len())
			return nil
		},
	}

	lookup := &cobra.Command{
		Use:   "lookup <domain>",
		Short: "Print the sources that list a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := load(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			sources := a.store.SourcesFor(args[0])
			if len(sources) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not listed\n", args[0])
				return nil
			}
			for _, id := range sources {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.AddCommand(refresh, lookup)
	return cmd
}
