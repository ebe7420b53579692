package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ComicScout/internal/domain/models"
	drepo "ComicScout/internal/domain/repository"
	"ComicScout/pkg/logger"
)

// DealBroadcaster pushes a snapshot to connected clients.
type DealBroadcaster interface {
	Broadcast(snapshot models.DealsSnapshot)
}

// Locker keeps replicas from refreshing the feed at the same time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

const refreshLockKey = "deals:refresh"

// DealFeed periodically recomputes the default top deals and fans the
// result out to Kafka and websocket subscribers.
type DealFeed struct {
	uc       *TopDealsUseCase
	pub      drepo.DealPublisher
	hub      DealBroadcaster
	lock     Locker
	metrics  drepo.Metrics
	log      *logger.Logger
	interval time.Duration
	minScore float64
	terms    []string

	mu     sync.RWMutex
	latest *models.DealsSnapshot
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDealFeed builds a feed. pub, hub, lock and metrics may be nil. A negative
// minScore selects DefaultMinScore.
func NewDealFeed(uc *TopDealsUseCase, pub drepo.DealPublisher, hub DealBroadcaster, lock Locker, metrics drepo.Metrics, log *logger.Logger, interval time.Duration, minScore float64, terms []string) *DealFeed {
	if log == nil {
		log = logger.Nop()
	}
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	return &DealFeed{
		uc:       uc,
		pub:      pub,
		hub:      hub,
		lock:     lock,
		metrics:  metrics,
		log:      log,
		interval: interval,
		minScore: minScore,
		terms:    append([]string(nil), terms...),
	}
}

// Start runs one refresh right away and then one per interval until Stop.
// A non-positive interval disables the loop.
func (f *DealFeed) Start(ctx context.Context) error {
	if f.interval <= 0 {
		f.log.Info("deal feed disabled")
		return nil
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})

	go func() {
		defer close(f.done)
		f.refreshLogged(ctx)

		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.refreshLogged(ctx)
			}
		}
	}()
	f.log.Info("deal feed started", logger.Duration("interval_ms", f.interval))
	return nil
}

func (f *DealFeed) Shutdown(ctx context.Context) error {
	if f.cancel == nil {
		return nil
	}
	f.cancel()
	select {
	case <-f.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if f.pub != nil {
		return f.pub.Close()
	}
	return nil
}

// Latest returns the most recent snapshot, or nil before the first refresh.
func (f *DealFeed) Latest() *models.DealsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest
}

func (f *DealFeed) refreshLogged(ctx context.Context) {
	if _, err := f.Refresh(ctx); err != nil && ctx.Err() == nil {
		f.log.Error("deal feed refresh failed", logger.Error(err))
	}
}

// Refresh computes a snapshot and distributes it. It returns nil, nil when
// another replica holds the refresh lock.
func (f *DealFeed) Refresh(ctx context.Context) (*models.DealsSnapshot, error) {
	if f.lock != nil {
		ok, err := f.lock.TryLock(ctx, refreshLockKey, f.lockTTL())
		if err != nil {
			f.log.Warn("deal feed lock unavailable, refreshing anyway", logger.Error(err))
		} else if !ok {
			f.log.Debug("deal feed refresh skipped, lock held elsewhere")
			return nil, nil
		} else {
			defer func() { _ = f.lock.Unlock(context.Background(), refreshLockKey) }()
		}
	}

	minScore := f.minScore
	deals, err := f.uc.GetTopDeals(ctx, TopDealsParams{MinScore: &minScore, SearchTerms: f.terms})
	if err != nil {
		return nil, err
	}

	snap := models.DealsSnapshot{
		EventID:     uuid.NewString(),
		MinScore:    minScore,
		SearchTerms: f.searchTerms(),
		Deals:       deals,
		GeneratedAt: time.Now().UTC(),
	}

	f.mu.Lock()
	f.latest = &snap
	f.mu.Unlock()

	if f.hub != nil {
		f.hub.Broadcast(snap)
	}
	if f.pub != nil {
		if err := f.pub.PublishDeals(ctx, snap); err != nil {
			if f.metrics != nil {
				f.metrics.RecordError("publish_deals")
			}
			return &snap, err
		}
	}
	return &snap, nil
}

func (f *DealFeed) searchTerms() []string {
	if len(f.terms) == 0 {
		return DefaultSearchTerms
	}
	return f.terms
}

func (f *DealFeed) lockTTL() time.Duration {
	if f.interval > 0 {
		return f.interval
	}
	return time.Minute
}
