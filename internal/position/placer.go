package position

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/exchange"
)

// OrderPlacer는 TP/SL을 포함한 시장가 진입 주문을 전송합니다
type OrderPlacer struct {
	exchange exchange.Exchange
	mode     domain.PositionMode
	logger   *zap.Logger
}

// NewOrderPlacer는 새 OrderPlacer를 생성합니다
func NewOrderPlacer(ex exchange.Exchange, mode domain.PositionMode, logger *zap.Logger) *OrderPlacer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderPlacer{exchange: ex, mode: mode, logger: logger}
}

// BuildEntryOrder는 진입 주문 요청을 구성합니다
func (p *OrderPlacer) BuildEntryOrder(symbol string, side domain.OrderSide, qty decimal.Decimal, bracket Bracket) domain.OrderRequest {
	tp := bracket.TakeProfit
	sl := bracket.StopLoss
	return domain.OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Type:        domain.Market,
		Quantity:    qty,
		TakeProfit:  &tp,
		StopLoss:    &sl,
		ReduceOnly:  false,
		PositionIdx: p.mode.PositionIdx(side),
		TimeInForce: domain.GTC,
		OrderLinkID: uuid.NewString(),
	}
}

// Place는 주문을 한 번 전송합니다. 거부되면 재시도하지 않고 ErrOrderRejected를 반환합니다
func (p *OrderPlacer) Place(ctx context.Context, order domain.OrderRequest) (*domain.OrderAck, error) {
	ack, err := p.exchange.PlaceOrder(ctx, order)
	if err != nil {
		p.logger.Error("진입 주문 실패",
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.String("qty", order.Quantity.String()),
			zap.Error(err))
		if ack != nil && !errors.Is(err, domain.ErrOrderRejected) {
			err = fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
		}
		return ack, NewPositionError(order.Symbol, "place", err)
	}

	p.logger.Info("진입 주문 완료",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("qty", order.Quantity.String()),
		zap.String("order_id", ack.OrderID))
	return ack, nil
}
