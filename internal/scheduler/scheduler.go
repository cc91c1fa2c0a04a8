package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/al-batol/news-bot/internal/config"
	"github.com/al-batol/news-bot/internal/health"
	"github.com/al-batol/news-bot/internal/logger"
	"github.com/al-batol/news-bot/internal/store"
	"github.com/al-batol/news-bot/pkg/deliver"
	"github.com/al-batol/news-bot/pkg/fetch"
	"github.com/al-batol/news-bot/pkg/source"
)

const defaultGracePeriod = 30 * time.Second

// Endpoint is one fetchable URL with the adapter that parses its payload.
type Endpoint struct {
	Name    string
	URL     string
	Adapter source.Adapter
}

// Group is an independently-scheduled set of endpoints sharing a poll
// interval, freshness policy and fetch chain.
type Group struct {
	Name        string
	Interval    time.Duration
	MaxPerCycle int
	Policy      source.FreshnessPolicy
	Endpoints   []Endpoint
	Chain       *fetch.Chain
}

// GroupsFromConfig builds the runtime groups from configuration.
func GroupsFromConfig(cfg *config.Config) ([]Group, error) {
	policyBase := source.FreshnessPolicy{
		Default:    cfg.Filter.ParseDefaultTolerance(),
		PerSection: cfg.Filter.ParseTolerances(),
		FutureSkew: cfg.Filter.ParseFutureSkew(),
	}

	groups := make([]Group, 0, len(cfg.Groups))
	for _, gc := range cfg.Groups {
		g := Group{
			Name:        gc.Name,
			Interval:    gc.ParseInterval(),
			MaxPerCycle: gc.MaxPerCycle,
			Policy:      policyBase,
		}
		g.Policy.Enforce = gc.EnforceFreshness

		switch gc.Kind {
		case "rss":
			g.Chain = fetch.NewChain(fetch.DefaultRSSStrategies())
			for _, feed := range gc.Feeds {
				g.Endpoints = append(g.Endpoints, Endpoint{
					Name:    feed.Name,
					URL:     feed.URL,
					Adapter: source.NewRSSAdapter(feed.Name, gc.Section),
				})
			}
		case "html":
			g.Chain = fetch.NewChain(fetch.DefaultHTMLStrategies())
			adapter, err := source.NewHTMLAdapter(gc.Name, gc.Section, gc.URL, gc.Selectors)
			if err != nil {
				return nil, fmt.Errorf("group %q: %w", gc.Name, err)
			}
			g.Endpoints = append(g.Endpoints, Endpoint{
				Name:    gc.Name,
				URL:     gc.URL,
				Adapter: adapter,
			})
		default:
			return nil, fmt.Errorf("group %q: unknown kind %q", gc.Name, gc.Kind)
		}

		groups = append(groups, g)
	}
	return groups, nil
}

// Scheduler runs one poll loop per group, feeding the shared delivery
// worker. The dedup store, breaker and health monitor are shared across
// loops.
type Scheduler struct {
	groups     []Group
	filter     *source.Filter
	dedup      *store.DedupStore
	archive    *store.Archive
	worker     *deliver.Worker
	translator deliver.Translator
	formatter  deliver.Formatter
	health     *health.Monitor
	grace      time.Duration
}

// New creates a scheduler. archive may be nil to skip history recording;
// translator may be nil for no translation.
func New(
	groups []Group,
	filter *source.Filter,
	dedup *store.DedupStore,
	archive *store.Archive,
	worker *deliver.Worker,
	translator deliver.Translator,
	formatter deliver.Formatter,
	monitor *health.Monitor,
) *Scheduler {
	if translator == nil {
		translator = deliver.NoopTranslator{}
	}
	return &Scheduler{
		groups:     groups,
		filter:     filter,
		dedup:      dedup,
		archive:    archive,
		worker:     worker,
		translator: translator,
		formatter:  formatter,
		health:     monitor,
		grace:      defaultGracePeriod,
	}
}

// Run starts all poll loops and blocks until ctx is cancelled. In-flight
// batches get a grace period to finish, then the dedup snapshot is persisted
// one final time.
func (s *Scheduler) Run(ctx context.Context) error {
	// Batches run on a context that outlives ctx by the grace period, so
	// shutdown lets in-flight deliveries finish instead of dropping them.
	batchCtx, cancelBatch := context.WithCancel(context.Background())
	go func() {
		<-ctx.Done()
		timer := time.NewTimer(s.grace)
		defer timer.Stop()
		<-timer.C
		cancelBatch()
	}()

	var wg sync.WaitGroup
	for i := range s.groups {
		g := &s.groups[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runGroup(ctx, batchCtx, g)
		}()
	}
	wg.Wait()
	cancelBatch()

	if err := s.dedup.Flush(); err != nil {
		logger.Log.WithError(err).Error("final dedup snapshot failed")
	}
	logger.Log.Info("scheduler stopped")
	return ctx.Err()
}

// runGroup is one group's poll loop: an immediate cycle, then ticks.
func (s *Scheduler) runGroup(ctx, batchCtx context.Context, g *Group) {
	log := logger.Log.WithField("group", g.Name)
	log.WithField("interval", g.Interval.String()).Info("poll loop started")

	s.runCycle(batchCtx, g)

	ticker := time.NewTicker(g.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("poll loop stopped")
			return
		case <-ticker.C:
			s.runCycle(batchCtx, g)
		}
	}
}

// runCycle fetches, parses, filters and delivers one batch for the group.
// Failures are isolated per endpoint and per article; a cycle never takes
// down its siblings.
func (s *Scheduler) runCycle(ctx context.Context, g *Group) {
	log := logger.Log.WithField("group", g.Name)

	articles := s.collect(ctx, g)
	if len(articles) == 0 {
		return
	}

	delivered := 0
	for _, a := range articles {
		if ctx.Err() != nil {
			return
		}
		if g.MaxPerCycle > 0 && delivered >= g.MaxPerCycle {
			log.WithField("cap", g.MaxPerCycle).Debug("per-cycle cap reached")
			break
		}
		if s.dedup.Seen(a.ID) {
			continue
		}

		if err := s.deliverOne(ctx, a); err != nil {
			// Not committed: the article comes back next cycle.
			log.WithFields(map[string]any{
				"article": a.ID,
				"title":   a.Title,
			}).WithError(err).Warn("delivery failed")
			continue
		}
		delivered++
	}

	if delivered > 0 {
		log.WithField("delivered", delivered).Info("cycle complete")
	}
}

// collect fetches and parses every endpoint in the group, returning the
// filtered articles in source order.
func (s *Scheduler) collect(ctx context.Context, g *Group) []source.Article {
	var out []source.Article
	for _, ep := range g.Endpoints {
		log := logger.Log.WithFields(map[string]any{
			"group":  g.Name,
			"source": ep.Name,
		})

		payload, strategy, err := g.Chain.Fetch(ctx, ep.URL)
		if err != nil {
			var fErr *fetch.Error
			kind := "error"
			if errors.As(err, &fErr) {
				kind = string(fErr.Class)
			}
			s.health.RecordFetchFailure(kind)
			log.WithError(err).Warn("fetch failed, skipping this cycle")
			continue
		}
		s.health.RecordFetchSuccess()

		articles, err := ep.Adapter.Parse(payload)
		if err != nil {
			log.WithError(err).Warn("parse failed")
			continue
		}
		log.WithFields(map[string]any{
			"strategy": strategy,
			"parsed":   len(articles),
		}).Debug("fetched")

		now := time.Now()
		for _, a := range articles {
			if !s.filter.Keep(a, g.Policy, now) {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

// deliverOne translates, formats and posts a single article, committing the
// dedup record only on success.
func (s *Scheduler) deliverOne(ctx context.Context, a source.Article) error {
	title := a.Title
	if translated, err := s.translator.Translate(ctx, a.Title, "financial news headline"); err == nil {
		title = translated
	} else {
		logger.Log.WithField("article", a.ID).WithError(err).
			Debug("translation failed, using original title")
	}

	text := s.formatter.Format(a, title)
	if err := s.worker.Deliver(ctx, text, a.ImageURL); err != nil {
		return err
	}

	s.dedup.Commit(a)
	if s.archive != nil {
		if err := s.archive.Insert(ctx, a); err != nil {
			logger.Log.WithField("article", a.ID).WithError(err).
				Warn("archive insert failed")
		}
	}
	return nil
}

// Announce posts a one-off service message through the delivery worker,
// used for the startup notice.
func (s *Scheduler) Announce(ctx context.Context, text string) error {
	return s.worker.Deliver(ctx, text, "")
}

// Preview runs the collect half of the pipeline for every group and returns
// the unseen articles that would be delivered, without posting anything.
func (s *Scheduler) Preview(ctx context.Context) map[string][]source.Article {
	out := make(map[string][]source.Article, len(s.groups))
	for i := range s.groups {
		g := &s.groups[i]
		var fresh []source.Article
		for _, a := range s.collect(ctx, g) {
			if !s.dedup.Seen(a.ID) {
				fresh = append(fresh, a)
			}
		}
		out[g.Name] = fresh
	}
	return out
}
