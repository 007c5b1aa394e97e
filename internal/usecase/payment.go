package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentGateway is the external payment collaborator. Authorize is called
// exactly once per confirmation attempt; Refund is fire-and-forget from
// the booking's point of view.
type PaymentGateway interface {
	Authorize(ctx context.Context, bookingID uuid.UUID, amount float64, paymentRef string) error
	Refund(ctx context.Context, bookingID uuid.UUID, amount float64, paymentRef string) error
}

type stubGateway struct {
	log *zap.Logger
}

// NewStubGateway returns a simulated gateway that approves everything
// except references carrying a DECLINE marker. Useful for local runs and
// load tests where a real processor is not wired.
func NewStubGateway(log *zap.Logger) PaymentGateway {
	return &stubGateway{log: log.With(zap.String("gateway", "stub"))}
}

func (g *stubGateway) Authorize(ctx context.Context, bookingID uuid.UUID, amount float64, paymentRef string) error {
	if strings.Contains(strings.ToUpper(paymentRef), "DECLINE") {
		g.log.Info("payment declined", zap.String("booking_id", bookingID.String()), zap.Float64("amount", amount))
		return fmt.Errorf("authorize %s: %w", paymentRef, ErrPaymentRejected)
	}

	g.log.Info("payment authorized", zap.String("booking_id", bookingID.String()), zap.Float64("amount", amount))
	return nil
}

func (g *stubGateway) Refund(ctx context.Context, bookingID uuid.UUID, amount float64, paymentRef string) error {
	g.log.Info("refund issued", zap.String("booking_id", bookingID.String()), zap.Float64("amount", amount))
	return nil
}
