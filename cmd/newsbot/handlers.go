package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/al-batol/news-bot/internal/config"
	"github.com/al-batol/news-bot/internal/health"
	"github.com/al-batol/news-bot/internal/logger"
	"github.com/al-batol/news-bot/internal/scheduler"
	"github.com/al-batol/news-bot/internal/store"
	"github.com/al-batol/news-bot/pkg/deliver"
	"github.com/al-batol/news-bot/pkg/server"
	"github.com/al-batol/news-bot/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildTarget(cfg *config.Config) (deliver.Target, string) {
	if cfg.Telegram.Enabled {
		return deliver.NewTelegram(cfg.Telegram.BotToken), cfg.Telegram.ChannelID
	}
	return deliver.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Secret), cfg.Webhook.URL
}

func buildTranslator(cfg *config.Config) deliver.Translator {
	if cfg.Translate.Enabled && cfg.Translate.APIKey != "" {
		return deliver.NewChatTranslator(cfg.Translate.BaseURL, cfg.Translate.Model, cfg.Translate.APIKey)
	}
	return deliver.NoopTranslator{}
}

func buildScheduler(cfg *config.Config, archive *store.Archive, monitor *health.Monitor) (*scheduler.Scheduler, *store.DedupStore, error) {
	groups, err := scheduler.GroupsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	dedup := store.NewDedupStore(cfg.Dedup.Path, cfg.Dedup.MaxEntries)
	filter := source.NewFilter(cfg.Filter.ExtraKeywords, cfg.Filter.ExcludeKeywords)

	target, destination := buildTarget(cfg)
	breaker := deliver.NewBreaker(cfg.Delivery.BreakerThreshold, cfg.Delivery.ParseBreakerCooldown())
	worker := deliver.NewWorker(target, destination, breaker,
		deliver.WithRetries(cfg.Delivery.MaxRetries, cfg.Delivery.ParseBackoffBase(), 2),
		deliver.WithThrottle(cfg.Delivery.ParseThrottleInterval()),
		deliver.WithHealth(monitor))

	formatter := deliver.Formatter{
		FollowTag: cfg.Telegram.FollowTag,
		Arabic:    cfg.Translate.Enabled,
	}

	sched := scheduler.New(groups, filter, dedup, archive,
		worker, buildTranslator(cfg), formatter, monitor)
	return sched, dedup, nil
}

func runDaemon(port int) error {
	logger.Init()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	archive, err := store.NewArchive(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	monitor := health.NewMonitor(0)
	sched, dedup, err := buildScheduler(cfg, archive, monitor)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sched.Announce(ctx, "🤖 News bot started, watching the markets."); err != nil {
		logger.Log.WithError(err).Warn("startup announcement failed")
	}

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("scheduler error")
		}
	}()

	srv := server.New(monitor, dedup, archive, port)
	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down")
	}()

	return srv.ListenAndServe()
}

func runFetch(jsonOutput bool) error {
	logger.Init()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	monitor := health.NewMonitor(0)
	sched, _, err := buildScheduler(cfg, nil, monitor)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	preview := sched.Preview(context.Background())

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(preview)
	}

	total := 0
	for group, articles := range preview {
		fmt.Printf("%s: %d new articles\n", group, len(articles))
		for _, a := range articles {
			fmt.Printf("  [%s] %s\n    %s\n", a.Section, a.Title, a.Link)
		}
		total += len(articles)
	}
	fmt.Printf("\ntotal: %d articles would be delivered\n", total)
	return nil
}

func runRecent(jsonOutput bool, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	archive, err := store.NewArchive(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	articles, err := archive.Recent(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("list recent: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(articles)
	}

	if len(articles) == 0 {
		fmt.Println("no delivered articles yet (try: newsbot run)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DELIVERED\tSECTION\tSOURCE\tTITLE")
	for _, a := range articles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			a.DeliveredAt.Format(time.RFC3339), a.Section, a.Source, a.Title)
	}
	return w.Flush()
}

func runSeen(limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dedup := store.NewDedupStore(cfg.Dedup.Path, cfg.Dedup.MaxEntries)
	records := dedup.Records()

	fmt.Printf("dedup store: %d records (max %d)\n\n", len(records), cfg.Dedup.MaxEntries)
	if len(records) == 0 {
		return nil
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIRST SEEN\tID\tTITLE")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			rec.FirstSeenAt.Format(time.RFC3339), rec.ID, rec.Title)
	}
	return w.Flush()
}
