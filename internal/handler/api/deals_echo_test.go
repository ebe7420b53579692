package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ComicScout/internal/domain/models"
	"ComicScout/internal/services/normalizer"
	"ComicScout/internal/usecase"
)

type fakeDeals struct {
	got   usecase.TopDealsParams
	calls int
	deals []models.TopDeal
	err   error
}

func (f *fakeDeals) GetTopDeals(_ context.Context, p usecase.TopDealsParams) ([]models.TopDeal, error) {
	f.calls++
	f.got = p
	return f.deals, f.err
}

type fakeValues struct {
	mv     *models.MarketValue
	err    error
	window int
}

func (f *fakeValues) MarketValue(_ context.Context, _, _ string, windowDays int) (*models.MarketValue, error) {
	f.window = windowDays
	return f.mv, f.err
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *DealsEchoHandler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func newHandler(deals *fakeDeals, values *fakeValues) *DealsEchoHandler {
	return NewDealsEchoHandler(nil, deals, nil, values, nil, 10, []string{"Batman"})
}

func TestTopDealsDefaults(t *testing.T) {
	deals := &fakeDeals{deals: []models.TopDeal{{Listing: models.Listing{ListingID: "l1"}, DealScore: models.DealScoreInfo{Score: 40}}}}
	rec, env := serve(t, newHandler(deals, nil), http.MethodGet, "/api/deals", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, deals.got.MinScore)
	assert.Equal(t, 10.0, *deals.got.MinScore)
	assert.Equal(t, []string{"Batman"}, deals.got.SearchTerms)

	var resp models.TopDealsResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 1, resp.Meta.Count)
	assert.Equal(t, "l1", resp.Deals[0].Listing.ListingID)
	assert.Equal(t, []string{"Batman"}, resp.Meta.SearchTerms)
}

func TestTopDealsConfiguredZeroThreshold(t *testing.T) {
	deals := &fakeDeals{}
	h := NewDealsEchoHandler(nil, deals, nil, nil, nil, 0, []string{"Batman"})
	rec, _ := serve(t, h, http.MethodGet, "/api/deals", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, deals.got.MinScore)
	assert.Equal(t, 0.0, *deals.got.MinScore)
}

func TestTopDealsParsesQuery(t *testing.T) {
	deals := &fakeDeals{}
	rec, env := serve(t, newHandler(deals, nil), http.MethodGet, "/api/deals?minScore=0&searchTerms=%20x-men%20,,hulk", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, *deals.got.MinScore)
	assert.Equal(t, []string{"x-men", "hulk"}, deals.got.SearchTerms)

	var resp models.TopDealsResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotNil(t, resp.Deals)
	assert.Empty(t, resp.Deals)
}

func TestTopDealsValidation(t *testing.T) {
	cases := []string{
		"/api/deals?minScore=abc",
		"/api/deals?minScore=101",
		"/api/deals?minScore=-1",
		"/api/deals?minScore=NaN",
		"/api/deals?minScore=Inf",
		"/api/deals?searchTerms=%20,%20",
		"/api/deals?searchTerms=",
	}
	for _, target := range cases {
		deals := &fakeDeals{}
		rec, env := serve(t, newHandler(deals, nil), http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, http.StatusBadRequest, env.Status, target)
		assert.Zero(t, deals.calls, target)
	}
}

func TestTopDealsFetchError(t *testing.T) {
	deals := &fakeDeals{err: &usecase.FetchError{Err: errors.New("feed down")}}
	rec, env := serve(t, newHandler(deals, nil), http.MethodGet, "/api/deals", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, string(env.Data), "Failed to retrieve top deals: feed down")
}

func TestNormalize(t *testing.T) {
	rec, env := serve(t, newHandler(&fakeDeals{}, nil), http.MethodGet, "/api/normalize?title=Amazing%20Spider-Man%20%23300%20CGC%209.8", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.NormalizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "amazing-spider-man-1963", resp.Parsed.SeriesID)
	assert.Equal(t, "300", resp.Parsed.IssueNumber)
	assert.Equal(t, "cgc-9-8-nm-mt", resp.Parsed.Grade)
	assert.Equal(t, "asm", resp.Legacy.Series)
}

type countingTitles struct {
	calls int
	next  *normalizer.Normalizer
}

func (c *countingTitles) Normalize(title string) models.ParsedTitle {
	c.calls++
	return c.next.Normalize(title)
}

func TestNormalizeUsesInjectedNormalizerOnce(t *testing.T) {
	titles := &countingTitles{next: normalizer.New()}
	h := NewDealsEchoHandler(nil, &fakeDeals{}, titles, nil, nil, 10, nil)
	rec, env := serve(t, h, http.MethodGet, "/api/normalize?title=Batman%20%231a%20Newsstand", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.NormalizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 1, titles.calls)
	assert.Equal(t, "batman", resp.Legacy.Series)
	assert.Equal(t, "a", resp.Legacy.Variant)
}

func TestNormalizeEmptyTitleFallsBack(t *testing.T) {
	rec, env := serve(t, newHandler(&fakeDeals{}, nil), http.MethodGet, "/api/normalize", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.NormalizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "unknown", resp.Parsed.SeriesID)
}

func TestNormalizeBatch(t *testing.T) {
	body := `{"titles":["Batman #181 CGC 9.4","garbage","X-Men #1 CGC 9.6"]}`
	rec, env := serve(t, newHandler(&fakeDeals{}, nil), http.MethodPost, "/api/normalize/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []models.NormalizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp, 3)
	assert.Equal(t, "batman-1940", resp[0].Parsed.SeriesID)
	assert.Equal(t, "unknown", resp[1].Parsed.SeriesID)
	assert.Equal(t, "x-men-1963", resp[2].Parsed.SeriesID)
}

func TestNormalizeBatchRejectsEmpty(t *testing.T) {
	rec, _ := serve(t, newHandler(&fakeDeals{}, nil), http.MethodPost, "/api/normalize/batch", `{"titles":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketValue(t *testing.T) {
	values := &fakeValues{mv: &models.MarketValue{MarketValueID: "calculated-asm-300-cgc-30d", SampleCount: 4, MedianGBP: 100}}
	rec, env := serve(t, newHandler(&fakeDeals{}, values), http.MethodGet, "/api/market-value?issueId=asm-300&gradeId=cgc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, values.window)

	var mv models.MarketValue
	require.NoError(t, json.Unmarshal(env.Data, &mv))
	assert.Equal(t, 100.0, mv.MedianGBP)
}

func TestMarketValueNotFound(t *testing.T) {
	rec, _ := serve(t, newHandler(&fakeDeals{}, &fakeValues{}), http.MethodGet, "/api/market-value?issueId=a&gradeId=b&windowDays=7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketValueRequiresIDs(t *testing.T) {
	rec, _ := serve(t, newHandler(&fakeDeals{}, &fakeValues{}), http.MethodGet, "/api/market-value?issueId=a", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
