package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"ComicScout/internal/domain/models"
	domrepo "ComicScout/internal/domain/repository"
	pkgkafka "ComicScout/pkg/kafka"
	"ComicScout/pkg/logger"
)

// ValueInvalidator drops memoized market values for an issue/grade pair.
type ValueInvalidator interface {
	Invalidate(ctx context.Context, issueID, gradeID string) error
}

// SalesIngestHandler consumes completed-sale events into the sales store.
type SalesIngestHandler struct {
	topic    string
	store    domrepo.SalesStore
	values   ValueInvalidator
	metrics  domrepo.Metrics
	log      *logger.Logger
	validate *validator.Validate
}

// NewSalesIngestHandler builds the handler; values and metrics may be nil.
func NewSalesIngestHandler(topic string, store domrepo.SalesStore, values ValueInvalidator, metrics domrepo.Metrics, log *logger.Logger) *SalesIngestHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SalesIngestHandler{
		topic:    topic,
		store:    store,
		values:   values,
		metrics:  metrics,
		log:      log,
		validate: validator.New(),
	}
}

func (h *SalesIngestHandler) Topic() string { return h.topic }

// Handle stores one sale. Malformed payloads are rejected with an error so
// the consumer can park them on the DLQ.
func (h *SalesIngestHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.SaleEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.recordError("sale_unmarshal")
		return fmt.Errorf("decode sale event: %w", err)
	}
	if err := h.validate.Struct(ev); err != nil {
		h.recordError("sale_invalid")
		return fmt.Errorf("invalid sale event %q: %w", ev.ListingID, err)
	}

	start := time.Now()
	err := h.store.StoreSale(ctx, ev.Sold())
	if h.metrics != nil {
		h.metrics.RecordLatency("sale_store", time.Since(start).Seconds())
	}
	if err != nil {
		h.recordError("sale_store")
		return fmt.Errorf("store sale %s: %w", ev.ListingID, err)
	}
	if h.metrics != nil {
		h.metrics.RecordMessageSent("clickhouse", h.topic)
	}

	if h.values != nil {
		if err := h.values.Invalidate(ctx, ev.IssueID, ev.GradeID); err != nil {
			// Stale entries still expire by TTL.
			h.log.Warn("market value invalidation failed",
				logger.String("issue_id", ev.IssueID),
				logger.String("grade_id", ev.GradeID),
				logger.Error(err))
		}
	}
	return nil
}

func (h *SalesIngestHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*SalesIngestHandler)(nil)
