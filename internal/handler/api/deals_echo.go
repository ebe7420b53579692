package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ComicScout/internal/domain/models"
	domsvc "ComicScout/internal/domain/service"
	"ComicScout/internal/service/metrics"
	"ComicScout/internal/service/ratelimit"
	"ComicScout/internal/services/normalizer"
	"ComicScout/internal/usecase"
	xhttp "ComicScout/pkg/http"
	xlogger "ComicScout/pkg/logger"
	"ComicScout/pkg/util"
)

// TopDealsService is the part of the top-deals use case the handler needs.
type TopDealsService interface {
	GetTopDeals(ctx context.Context, p usecase.TopDealsParams) ([]models.TopDeal, error)
}

// DealsEchoHandler serves the deals, normalizer and market value endpoints.
type DealsEchoHandler struct {
	logger   *xlogger.Logger
	deals    TopDealsService
	titles   domsvc.TitleNormalizer
	values   domsvc.MarketValuer
	limiter  *ratelimit.Limiter
	minScore float64
	terms    []string
	now      func() time.Time
}

func NewDealsEchoHandler(
	logger *xlogger.Logger,
	deals TopDealsService,
	titles domsvc.TitleNormalizer,
	values domsvc.MarketValuer,
	limiter *ratelimit.Limiter,
	minScore float64,
	terms []string,
) *DealsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if titles == nil {
		titles = normalizer.New()
	}
	if minScore < 0 {
		minScore = usecase.DefaultMinScore
	}
	metrics.Register()
	return &DealsEchoHandler{
		logger:   logger,
		deals:    deals,
		titles:   titles,
		values:   values,
		limiter:  limiter,
		minScore: minScore,
		terms:    terms,
		now:      time.Now,
	}
}

func (h *DealsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/deals", h.TopDeals, h.limiter.Middleware())
	g.GET("/normalize", h.Normalize)
	g.POST("/normalize/batch", h.NormalizeBatch)
	g.GET("/market-value", h.MarketValue)
}

// TopDeals handles GET /api/deals?minScore=&searchTerms=a,b.
func (h *DealsEchoHandler) TopDeals(c echo.Context) error {
	const endpoint = "deals"
	defer metrics.Observe(endpoint, time.Now())

	req := &models.TopDealsRequest{MinScore: h.minScore}
	if err := echo.QueryParamsBinder(c).
		Float64("minScore", &req.MinScore).
		String("searchTerms", &req.SearchTerms).
		BindError(); err != nil {
		metrics.Fail(endpoint, "validation")
		return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_NUMBER", "minScore", "minScore must be a number"))
	}
	if math.IsNaN(req.MinScore) || math.IsInf(req.MinScore, 0) {
		metrics.Fail(endpoint, "validation")
		return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_FINITE", "minScore", "minScore must be a finite number"))
	}
	if verr := xhttp.ValidateStruct(c.Request().Context(), req); verr != nil {
		metrics.Fail(endpoint, "validation")
		return xhttp.BadRequestResponse(c, verr)
	}

	terms := h.terms
	if c.QueryParams().Has("searchTerms") {
		terms = util.SplitAndTrim(req.SearchTerms, ",")
		if len(terms) == 0 {
			metrics.Fail(endpoint, "validation")
			return xhttp.AppErrorResponse(c, xhttp.FieldError("ERR_REQUIRED", "searchTerms", "searchTerms must contain at least one term"))
		}
	}

	minScore := req.MinScore
	deals, err := h.deals.GetTopDeals(c.Request().Context(), usecase.TopDealsParams{MinScore: &minScore, SearchTerms: terms})
	if err != nil {
		metrics.Fail(endpoint, "usecase")
		h.logger.Error("top deals usecase error", xlogger.Error(err))
		var fe *usecase.FetchError
		if errors.As(err, &fe) {
			return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(fe.Error()))
		}
		return xhttp.AppErrorResponse(c, xhttp.InternalError("Failed to retrieve top deals").WithError(err))
	}
	if deals == nil {
		deals = []models.TopDeal{}
	}
	if len(terms) == 0 {
		terms = usecase.DefaultSearchTerms
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, models.TopDealsResponse{
		Deals: deals,
		Meta: models.TopDealsMeta{
			Count:       len(deals),
			MinScore:    minScore,
			SearchTerms: terms,
			Timestamp:   h.now().UTC(),
		},
	})
}

// Normalize handles GET /api/normalize?title=.
func (h *DealsEchoHandler) Normalize(c echo.Context) error {
	defer metrics.Observe("normalize", time.Now())

	req := &models.NormalizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.Fail("normalize", "validation")
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.normalize(req.Title))
}

// NormalizeBatch handles POST /api/normalize/batch. Results keep input order.
func (h *DealsEchoHandler) NormalizeBatch(c echo.Context) error {
	defer metrics.Observe("normalize_batch", time.Now())

	req := &models.NormalizeBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.Fail("normalize_batch", "validation")
		return xhttp.BadRequestResponse(c, verr)
	}
	out := make([]models.NormalizeResponse, len(req.Titles))
	for i, title := range req.Titles {
		out[i] = h.normalize(title)
	}
	return xhttp.SuccessResponse(c, out)
}

// MarketValue handles GET /api/market-value?issueId=&gradeId=&windowDays=.
func (h *DealsEchoHandler) MarketValue(c echo.Context) error {
	const endpoint = "market_value"
	defer metrics.Observe(endpoint, time.Now())

	req := &models.MarketValueRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.Fail(endpoint, "validation")
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.values == nil {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_UNAVAILABLE", "", "market values are not configured", http.StatusServiceUnavailable))
	}

	mv, err := h.values.MarketValue(c.Request().Context(), req.IssueID, req.GradeID, req.WindowDays)
	if err != nil {
		metrics.Fail(endpoint, "valuer")
		h.logger.Error("market value lookup failed",
			xlogger.String("issue_id", req.IssueID),
			xlogger.String("grade_id", req.GradeID),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("market value lookup failed"))
	}
	if mv == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no comparable sales for %s/%s in %d days", req.IssueID, req.GradeID, req.WindowDays))
	}
	return xhttp.SuccessResponse(c, mv)
}

func (h *DealsEchoHandler) normalize(title string) models.NormalizeResponse {
	parsed := h.titles.Normalize(title)
	return models.NormalizeResponse{
		Title:  title,
		Parsed: parsed,
		Legacy: models.LegacyTitle{
			Series:      normalizer.LegacySeriesAlias(parsed.SeriesID),
			IssueNumber: parsed.IssueNumber,
			Variant:     normalizer.Variant(title),
		},
	}
}
