package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ComicScout/internal/domain/models"
)

type fakeListings struct {
	listings []models.Listing
	err      error
	terms    []string
}

func (f *fakeListings) FetchLiveListings(_ context.Context, terms []string) ([]models.Listing, error) {
	f.terms = terms
	return f.listings, f.err
}

// fakeValuer keys market values by issue id.
type fakeValuer struct {
	mu     sync.Mutex
	values map[string]*models.MarketValue
	errs   map[string]error
	panics map[string]bool
	calls  map[string]int
}

func newFakeValuer() *fakeValuer {
	return &fakeValuer{
		values: map[string]*models.MarketValue{},
		errs:   map[string]error{},
		panics: map[string]bool{},
		calls:  map[string]int{},
	}
}

func (f *fakeValuer) median(issue string, median float64) {
	f.values[issue] = &models.MarketValue{IssueID: issue, MedianGBP: median, MinGBP: median, MaxGBP: median, SampleCount: 6, WindowDays: 30}
}

func (f *fakeValuer) MarketValue(_ context.Context, issueID, _ string, _ int) (*models.MarketValue, error) {
	f.mu.Lock()
	f.calls[issueID]++
	f.mu.Unlock()
	if f.panics[issueID] {
		panic("valuer exploded")
	}
	if err := f.errs[issueID]; err != nil {
		return nil, err
	}
	return f.values[issueID], nil
}

type countingScorer struct {
	mu    sync.Mutex
	calls int
	next  func(models.Listing, models.MarketValue) (models.DealScoreInfo, error)
}

func (s *countingScorer) Score(l models.Listing, mv models.MarketValue) (models.DealScoreInfo, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.next(l, mv)
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	errors   map[string]int
	scores   []int
	sent     int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordListingOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *fakeMetrics) RecordDealScore(score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, score)
}

func (m *fakeMetrics) RecordMessageSent(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

type fakeSalesStore struct {
	mu    sync.Mutex
	sales []models.SoldListing
	err   error
}

func (s *fakeSalesStore) StoreSale(_ context.Context, sale models.SoldListing) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	return nil
}

func (s *fakeSalesStore) StoreSales(ctx context.Context, sales []models.SoldListing) error {
	for _, sale := range sales {
		if err := s.StoreSale(ctx, sale); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeSalesStore) Health(context.Context) error { return nil }

type fakeInvalidator struct {
	pairs []string
	err   error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, issueID, gradeID string) error {
	f.pairs = append(f.pairs, issueID+"/"+gradeID)
	return f.err
}

type fakePublisher struct {
	mu        sync.Mutex
	snapshots []models.DealsSnapshot
	err       error
	closed    bool
}

func (p *fakePublisher) PublishDeals(_ context.Context, s models.DealsSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

type fakeHub struct {
	mu   sync.Mutex
	seen []models.DealsSnapshot
}

func (h *fakeHub) Broadcast(s models.DealsSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, s)
}

func (h *fakeHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

type fakeLocker struct {
	held     bool
	err      error
	unlocked int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	return !l.held, nil
}

func (l *fakeLocker) Unlock(context.Context, string) error {
	l.unlocked++
	return nil
}

func listing(id, issue string, price float64) models.Listing {
	return models.Listing{
		ListingID:     id,
		IssueID:       issue,
		GradeID:       "cgc-9-8",
		Title:         fmt.Sprintf("Amazing Spider-Man #%s CGC 9.8", issue),
		TotalPriceGBP: price,
		Source:        "test",
	}
}

var errUpstream = errors.New("upstream unavailable")
