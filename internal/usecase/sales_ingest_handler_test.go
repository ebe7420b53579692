package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const saleJSON = `{
	"listingId": "sold-1",
	"issueId": "asm-300",
	"gradeId": "cgc-9-8",
	"title": "Amazing Spider-Man #300 CGC 9.8",
	"totalPriceGBP": 1250.5,
	"source": "ebay",
	"soldAt": "2024-05-01T10:00:00Z"
}`

func TestSalesIngestStoresAndInvalidates(t *testing.T) {
	store := &fakeSalesStore{}
	inv := &fakeInvalidator{}
	m := newFakeMetrics()
	h := NewSalesIngestHandler("comic.sales", store, inv, m, nil)

	assert.Equal(t, "comic.sales", h.Topic())
	require.NoError(t, h.Handle(context.Background(), []byte(saleJSON)))

	require.Len(t, store.sales, 1)
	sale := store.sales[0]
	assert.Equal(t, "sold-1", sale.ListingID)
	assert.Equal(t, 1250.5, sale.TotalPriceGBP)
	require.NotNil(t, sale.EndTime)
	assert.Equal(t, 2024, sale.EndTime.Year())

	assert.Equal(t, []string{"asm-300/cgc-9-8"}, inv.pairs)
	assert.Equal(t, 1, m.sent)
}

func TestSalesIngestRejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing issue":  `{"listingId":"x","gradeId":"g","totalPriceGBP":1,"source":"s","soldAt":"2024-05-01T10:00:00Z"}`,
		"zero price":     `{"listingId":"x","issueId":"i","gradeId":"g","totalPriceGBP":0,"source":"s","soldAt":"2024-05-01T10:00:00Z"}`,
		"missing soldAt": `{"listingId":"x","issueId":"i","gradeId":"g","totalPriceGBP":3,"source":"s"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeSalesStore{}
			h := NewSalesIngestHandler("comic.sales", store, nil, newFakeMetrics(), nil)
			assert.Error(t, h.Handle(context.Background(), []byte(payload)))
			assert.Empty(t, store.sales)
		})
	}
}

func TestSalesIngestStoreFailureIsReturned(t *testing.T) {
	store := &fakeSalesStore{err: errUpstream}
	inv := &fakeInvalidator{}
	m := newFakeMetrics()
	h := NewSalesIngestHandler("comic.sales", store, inv, m, nil)

	err := h.Handle(context.Background(), []byte(saleJSON))
	assert.ErrorIs(t, err, errUpstream)
	assert.Empty(t, inv.pairs)
	assert.Equal(t, 1, m.errors["sale_store"])
}

func TestSalesIngestInvalidationFailureIsNotFatal(t *testing.T) {
	store := &fakeSalesStore{}
	inv := &fakeInvalidator{err: errUpstream}
	h := NewSalesIngestHandler("comic.sales", store, inv, nil, nil)

	require.NoError(t, h.Handle(context.Background(), []byte(saleJSON)))
	assert.Len(t, store.sales, 1)
}
