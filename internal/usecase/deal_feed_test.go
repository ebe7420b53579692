package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ComicScout/internal/domain/models"
)

func feedUseCase() *TopDealsUseCase {
	v := newFakeValuer()
	v.median("a", 100)
	v.median("b", 100)
	src := &fakeListings{listings: []models.Listing{listing("l-a", "a", 80), listing("l-b", "b", 30)}}
	return newTopDeals(src, v, newFakeMetrics())
}

func TestDealFeedRefreshPublishesAndBroadcasts(t *testing.T) {
	pub := &fakePublisher{}
	hub := &fakeHub{}
	feed := NewDealFeed(feedUseCase(), pub, hub, nil, nil, nil, time.Minute, -1, nil)

	assert.Nil(t, feed.Latest())
	snap, err := feed.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.NotEmpty(t, snap.EventID)
	assert.Equal(t, DefaultMinScore, snap.MinScore)
	assert.Equal(t, DefaultSearchTerms, snap.SearchTerms)
	require.Len(t, snap.Deals, 2)
	assert.Equal(t, "l-b", snap.Deals[0].Listing.ListingID)

	require.Len(t, pub.snapshots, 1)
	assert.Equal(t, snap.EventID, pub.snapshots[0].EventID)
	assert.Equal(t, 1, hub.count())
	assert.Equal(t, snap, feed.Latest())
}

func TestDealFeedEventIDsAreUnique(t *testing.T) {
	feed := NewDealFeed(feedUseCase(), nil, nil, nil, nil, nil, time.Minute, 10, []string{"Batman"})
	a, err := feed.Refresh(context.Background())
	require.NoError(t, err)
	b, err := feed.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, []string{"Batman"}, a.SearchTerms)
}

func TestDealFeedSkipsWhenLockHeld(t *testing.T) {
	pub := &fakePublisher{}
	lock := &fakeLocker{held: true}
	feed := NewDealFeed(feedUseCase(), pub, nil, lock, nil, nil, time.Minute, -1, nil)

	snap, err := feed.Refresh(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.Empty(t, pub.snapshots)
	assert.Equal(t, 0, lock.unlocked)

	lock.held = false
	snap, err = feed.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, 1, lock.unlocked)
}

func TestDealFeedReportsPublishFailure(t *testing.T) {
	m := newFakeMetrics()
	pub := &fakePublisher{err: errUpstream}
	hub := &fakeHub{}
	feed := NewDealFeed(feedUseCase(), pub, hub, nil, m, nil, time.Minute, -1, nil)

	snap, err := feed.Refresh(context.Background())
	assert.ErrorIs(t, err, errUpstream)
	assert.NotNil(t, snap)
	assert.Equal(t, 1, hub.count())
	assert.Equal(t, 1, m.errors["publish_deals"])
}

func TestDealFeedStartAndShutdown(t *testing.T) {
	hub := &fakeHub{}
	pub := &fakePublisher{}
	feed := NewDealFeed(feedUseCase(), pub, hub, nil, nil, nil, 10*time.Millisecond, -1, nil)

	require.NoError(t, feed.Start(context.Background()))
	require.Eventually(t, func() bool { return hub.count() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, feed.Shutdown(ctx))
	assert.True(t, pub.closed)
}

func TestDealFeedDisabledWithoutInterval(t *testing.T) {
	feed := NewDealFeed(feedUseCase(), nil, nil, nil, nil, nil, 0, -1, nil)
	require.NoError(t, feed.Start(context.Background()))
	require.NoError(t, feed.Shutdown(context.Background()))
	assert.Nil(t, feed.Latest())
}

func TestDealFeedKeepsZeroThreshold(t *testing.T) {
	feed := NewDealFeed(feedUseCase(), nil, nil, nil, nil, nil, time.Minute, 0, nil)
	snap, err := feed.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 0.0, snap.MinScore)
	assert.Len(t, snap.Deals, 2)
}
