package ops

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/fetchnfeed/internal/config"
	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/feed"
)

// MinPollInterval is the shortest interval the poller will wait between cycles.
const MinPollInterval = 15 * time.Minute

// pollCycleTimeout bounds one refresh-and-cleanup cycle.
const pollCycleTimeout = 10 * time.Minute

// PollResult summarizes one poller cycle.
type PollResult struct {
	Refresh *RefreshAllOutput
	Cleanup *CleanupOutput
}

// Poller refreshes every enabled feed and sweeps old articles on the
// interval set by preferences.globalRefreshInterval (minutes).
type Poller struct {
	ds       *dataset.Dataset
	fetcher  feed.Fetcher
	cfg      *config.Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup

	// OnCycle, when set, is called after every cycle.
	OnCycle func(PollResult)
}

// NewPoller creates a background poller.
func NewPoller(ds *dataset.Dataset, fetcher feed.Fetcher, cfg *config.Config, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		ds:       ds,
		fetcher:  fetcher,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
	}
}

// Interval returns the wait between cycles from the current preferences.
func (p *Poller) Interval() time.Duration {
	interval := time.Duration(p.ds.Get().Preferences.GlobalRefreshInterval) * time.Minute
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	return interval
}

// RunOnce refreshes all enabled feeds, then runs the retention sweep.
func (p *Poller) RunOnce(ctx context.Context) PollResult {
	res := PollResult{Refresh: RefreshAllFeeds(ctx, p.ds, p.fetcher, p.cfg, RefreshAllInput{})}
	p.log.Info("poll refreshed feeds",
		"succeeded", res.Refresh.Succeeded,
		"failed", res.Refresh.Failed,
		"new_articles", res.Refresh.NewArticles)

	cleanup, err := CleanupOldArticles(ctx, p.ds)
	if err != nil {
		p.log.Warn("poll cleanup failed", "error", err)
	} else {
		res.Cleanup = cleanup
		if cleanup.Removed > 0 {
			p.log.Info("poll removed old articles", "removed", cleanup.Removed)
		}
	}
	return res
}

// Start begins the polling loop. The first cycle runs immediately.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			ctx, cancel := context.WithTimeout(context.Background(), pollCycleTimeout)
			go func() {
				select {
				case <-p.stopChan:
					cancel()
				case <-ctx.Done():
				}
			}()
			res := p.RunOnce(ctx)
			cancel()
			if p.OnCycle != nil {
				p.OnCycle(res)
			}

			interval := p.Interval()
			p.log.Debug("poller sleeping", "interval", interval)
			select {
			case <-p.stopChan:
				return
			case <-time.After(interval):
			}
		}
	}()
}

// Stop cancels any cycle in progress and waits for the loop to exit.
func (p *Poller) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}
