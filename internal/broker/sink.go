package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"odta/internal/decision"
	"odta/internal/ledger"
	"odta/internal/logger"

	"github.com/google/uuid"
)

// OrderResult acknowledges an accepted submission.
type OrderResult struct {
	OrderID     string  `json:"order_id"`
	Status      string  `json:"status"`
	FilledPrice float64 `json:"filled_price,omitempty"`
}

// Sink receives actions that already passed the guardrail evaluator.
type Sink interface {
	Submit(ctx context.Context, tradeDate string, action decision.ActionRequest) (OrderResult, error)
}

// PaperSink simulates execution: accepted orders fill immediately at the
// requested price and land in the paper ledger. No capital at risk.
type PaperSink struct {
	ledger *ledger.Ledger
}

func NewPaperSink(l *ledger.Ledger) *PaperSink {
	return &PaperSink{ledger: l}
}

var _ Sink = (*PaperSink)(nil)

func (s *PaperSink) Submit(ctx context.Context, tradeDate string, action decision.ActionRequest) (OrderResult, error) {
	orderID := uuid.NewString()
	switch action.Kind {
	case decision.ActionPlace:
		order := action.Order
		fill := ledger.Fill{
			TradeDate:  tradeDate,
			Symbol:     order.Symbol,
			ContractID: order.ContractID,
			Side:       ledger.Side(order.Side),
			Quantity:   order.Quantity,
			Price:      order.Price,
			At:         time.Now(),
		}
		if order.Intent == decision.IntentExit {
			fill.Action = ledger.ActionExit
		} else {
			fill.Action = ledger.ActionEntry
		}
		if err := s.ledger.RecordFill(ctx, fill); err != nil {
			if errors.Is(err, ledger.ErrNoOpenPosition) {
				logger.Warnf("PaperSink: exit for %s matched no open position", order.ContractID)
				return OrderResult{OrderID: orderID, Status: "NO_POSITION"}, nil
			}
			return OrderResult{}, err
		}
		return OrderResult{OrderID: orderID, Status: "FILLED", FilledPrice: order.Price}, nil
	case decision.ActionModify, decision.ActionCancel:
		// Paper orders fill instantly, so there is nothing resting to
		// modify or cancel; acknowledge and move on.
		return OrderResult{OrderID: orderID, Status: "ACKNOWLEDGED"}, nil
	default:
		return OrderResult{}, fmt.Errorf("paper sink: unsupported action kind %q", action.Kind)
	}
}

// LiveSink is the placeholder for real broker connectivity, which lives
// outside this core. Submissions fail loudly rather than pretending.
type LiveSink struct{}

var _ Sink = LiveSink{}

func (LiveSink) Submit(ctx context.Context, tradeDate string, action decision.ActionRequest) (OrderResult, error) {
	return OrderResult{}, fmt.Errorf("live order submission is not wired: configure paper mode")
}
