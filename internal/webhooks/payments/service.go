package paymentwebhook

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/stitchfield/stitchfield-backend/internal/orders"
	pkgerrors "github.com/stitchfield/stitchfield-backend/pkg/errors"
	"github.com/stitchfield/stitchfield-backend/pkg/logger"
	"github.com/stitchfield/stitchfield-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderMaterializer interface {
	MaterializeTx(ctx context.Context, tx *gorm.DB, input orders.MaterializeInput) (*orders.MaterializeResult, error)
}

type refundRecorder interface {
	WithTx(tx *gorm.DB) orders.Repository
}

type ServiceParams struct {
	TransactionRunner txRunner
	EventRepo         ProcessedEventRepository
	Orders            orderMaterializer
	OrdersRepo        refundRecorder
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service turns verified gateway events into domain effects, at most once
// per event id.
type Service struct {
	txRunner   txRunner
	eventRepo  ProcessedEventRepository
	orders     orderMaterializer
	ordersRepo refundRecorder
	metrics    *metrics.WebhookMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.EventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Metrics == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook metrics required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		txRunner:   params.TransactionRunner,
		eventRepo:  params.EventRepo,
		orders:     params.Orders,
		ordersRepo: params.OrdersRepo,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// HandleEvent processes a signature-verified payment event. The event id
// is claimed in the same transaction as the effect, so a redelivered event
// whose first attempt committed is a clean no-op, while one whose first
// attempt rolled back gets a full retry.
func (s *Service) HandleEvent(ctx context.Context, event *PaymentEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment event required")
	}
	eventID := strings.TrimSpace(event.EventID)
	if eventID == "" {
		eventID = event.Data.ID
	}
	if eventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id missing")
	}

	eventType := strings.ToLower(event.Type)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":   eventID,
		"event_type": eventType,
	})

	started := time.Now()
	err := s.dispatch(ctx, eventID, eventType, event)
	s.metrics.ObserveDuration(eventType, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(eventType)
		return err
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, eventID, eventType string, event *PaymentEvent) error {
	switch eventType {
	case "payment.succeeded":
		if event.Data.Object.Payment == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
		}
		return s.materializeOrder(ctx, eventID, eventType, event.Data.Object.Payment)
	case "payment.refunded":
		if event.Data.Object.Refund == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund payload missing")
		}
		return s.recordProviderRefund(ctx, eventID, eventType, event.Data.Object.Refund)
	default:
		// Unrecognized types are acknowledged without recording, so a
		// later release that handles them can still process redeliveries.
		s.logg.Info(ctx, "ignoring unhandled event type")
		return nil
	}
}

func (s *Service) materializeOrder(ctx context.Context, eventID, eventType string, payload *PaymentPayload) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		recorded, err := s.eventRepo.WithTx(tx).Record(ctx, eventID, eventType)
		if err != nil {
			return err
		}
		if !recorded {
			s.metrics.IncDuplicate(eventType)
			s.logg.Info(ctx, "event already processed, skipping")
			return nil
		}

		result, err := s.orders.MaterializeTx(ctx, tx, payload.toMaterializeInput())
		if err != nil {
			return err
		}
		if result.Created {
			s.metrics.IncProcessed(eventType)
			s.logg.Info(ctx, "order materialized from payment event")
		}
		return nil
	})
}

// recordProviderRefund books a refund the provider executed on its own
// onto the order's running totals. Inventory and loyalty are untouched:
// those reversals belong to the return workflow.
func (s *Service) recordProviderRefund(ctx context.Context, eventID, eventType string, payload *RefundPayload) error {
	if payload.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund session id missing")
	}
	if payload.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		recorded, err := s.eventRepo.WithTx(tx).Record(ctx, eventID, eventType)
		if err != nil {
			return err
		}
		if !recorded {
			s.metrics.IncDuplicate(eventType)
			s.logg.Info(ctx, "event already processed, skipping")
			return nil
		}

		if err := s.ordersRepo.WithTx(tx).ApplyRefund(ctx, payload.SessionID, payload.AmountCents); err != nil {
			return err
		}
		s.metrics.IncProcessed(eventType)
		s.logg.Info(ctx, "provider refund recorded on order")
		return nil
	})
}
