package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// OrderRequest는 주문 요청 정보를 표현합니다.
// 진입 주문은 TakeProfit/StopLoss를 함께 실어 하나의 요청으로 전송합니다
type OrderRequest struct {
	Symbol      string           // 심볼 (예: ETHUSDT)
	Side        OrderSide        // 매수/매도
	Type        OrderType        // 주문 유형
	Quantity    decimal.Decimal  // 수량
	TakeProfit  *decimal.Decimal // 익절가 (nil이면 미설정)
	StopLoss    *decimal.Decimal // 손절가 (nil이면 미설정)
	ReduceOnly  bool             // 포지션 축소 전용 여부
	PositionIdx int              // 0: 단방향, 1: 헤지 롱, 2: 헤지 숏
	TimeInForce TimeInForce      // GTC, IOC
	OrderLinkID string           // 클라이언트 측 주문 ID
}

// OrderAck는 거래소의 주문 생성 응답을 표현합니다
type OrderAck struct {
	OrderID     string          // 거래소 주문 ID
	OrderLinkID string          // 클라이언트 측 주문 ID
	RetCode     int             // 응답 코드 (0: 성공)
	RetMsg      string          // 응답 메시지
	Raw         json.RawMessage // 원본 응답
}

// OpenOrder는 미체결 주문 정보를 표현합니다
type OpenOrder struct {
	OrderID     string
	OrderLinkID string
	Symbol      string
	Side        OrderSide
	OrderType   OrderType
	Quantity    decimal.Decimal
	ReduceOnly  bool
}

// Position은 포지션 정보를 표현합니다
type Position struct {
	Symbol      string          // 심볼
	Side        OrderSide       // Buy: 롱, Sell: 숏
	Size        decimal.Decimal // 포지션 수량 (항상 양수)
	PositionIdx int             // 포지션 인덱스
	AvgPrice    decimal.Decimal // 평균 진입가
}

// IsActive는 수량이 남아있는 포지션인지 확인합니다
func (p *Position) IsActive() bool {
	return p != nil && p.Size.IsPositive()
}

// InstrumentLimits는 심볼의 주문 제약 조건입니다
type InstrumentLimits struct {
	MinQty      decimal.Decimal `yaml:"min_qty"`      // 최소 주문 수량
	MaxQty      decimal.Decimal `yaml:"max_qty"`      // 최대 주문 수량
	MinNotional decimal.Decimal `yaml:"min_notional"` // 최소 주문 가치 (USDT)
	QtyStep     decimal.Decimal `yaml:"qty_step"`     // 수량 최소 단위
	PriceTick   decimal.Decimal `yaml:"price_tick"`   // 가격 최소 단위
}

// Merge는 비어있는 필드를 fallback 값으로 채운 복사본을 반환합니다
func (l InstrumentLimits) Merge(fallback InstrumentLimits) InstrumentLimits {
	pick := func(v, f decimal.Decimal) decimal.Decimal {
		if v.IsZero() {
			return f
		}
		return v
	}
	return InstrumentLimits{
		MinQty:      pick(l.MinQty, fallback.MinQty),
		MaxQty:      pick(l.MaxQty, fallback.MaxQty),
		MinNotional: pick(l.MinNotional, fallback.MinNotional),
		QtyStep:     pick(l.QtyStep, fallback.QtyStep),
		PriceTick:   pick(l.PriceTick, fallback.PriceTick),
	}
}
