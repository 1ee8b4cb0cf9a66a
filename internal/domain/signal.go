package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSignal은 인증을 통과한 외부 매매 시그널입니다.
// 생성 후에는 변경하지 않습니다
type TradeSignal struct {
	Event          string           // 원본 이벤트 문자열 (예: "ETH LONG ENTRY")
	Direction      Direction        // 매매 방향
	Symbol         string           // 정규화된 심볼 (예: ETHUSDT)
	ReferencePrice decimal.Decimal  // 기준 가격
	Leverage       int              // 요청 레버리지 (0이면 기본값 사용)
	TakeProfit     *decimal.Decimal // 명시적 익절가 (선택)
	StopLoss       *decimal.Decimal // 명시적 손절가 (선택)
	ReceivedAt     time.Time        // 수신 시각
}

// SignalInput은 경계 레이어가 파싱한 원시 입력값입니다
type SignalInput struct {
	Event      string
	Symbol     string
	Price      decimal.NullDecimal
	Leverage   decimal.NullDecimal
	TakeProfit decimal.NullDecimal
	StopLoss   decimal.NullDecimal
}

// ParseDirection은 이벤트 문자열에서 매매 방향을 추출합니다.
// "LONG"이 포함되면 롱, "SHORT"가 포함되면 숏입니다
func ParseDirection(event string) (Direction, error) {
	upper := strings.ToUpper(event)
	switch {
	case strings.Contains(upper, "LONG"):
		return Long, nil
	case strings.Contains(upper, "SHORT"):
		return Short, nil
	default:
		return NoDirection, fmt.Errorf("%w: 알 수 없는 이벤트 %q", ErrInvalidSignal, event)
	}
}

// NormalizeSymbol은 TradingView 심볼을 거래소 심볼로 변환합니다 (".P", "PERP" 제거)
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.Replace(s, ".P", "", 1)
	return strings.Replace(s, "PERP", "", 1)
}

// NewTradeSignal은 입력값을 검증하고 TradeSignal을 생성합니다.
// maxLeverage가 0보다 크면 요청 레버리지의 상한으로 사용합니다
func NewTradeSignal(in SignalInput, maxLeverage int, now time.Time) (TradeSignal, error) {
	if strings.TrimSpace(in.Event) == "" || strings.TrimSpace(in.Symbol) == "" || !in.Price.Valid {
		return TradeSignal{}, fmt.Errorf("%w: 필수 필드 누락 (event, symbol, price)", ErrInvalidSignal)
	}

	direction, err := ParseDirection(in.Event)
	if err != nil {
		return TradeSignal{}, err
	}

	symbol := NormalizeSymbol(in.Symbol)
	if symbol == "" {
		return TradeSignal{}, fmt.Errorf("%w: 심볼이 비어있습니다", ErrInvalidSignal)
	}

	if !in.Price.Decimal.IsPositive() {
		return TradeSignal{}, fmt.Errorf("%w: 가격은 0보다 커야 합니다 (%s)", ErrInvalidSignal, in.Price.Decimal)
	}

	leverage := 0
	if in.Leverage.Valid && in.Leverage.Decimal.IsPositive() {
		leverage = int(in.Leverage.Decimal.IntPart())
		if leverage < 1 {
			return TradeSignal{}, fmt.Errorf("%w: 레버리지는 1 이상이어야 합니다 (%s)", ErrInvalidSignal, in.Leverage.Decimal)
		}
		if maxLeverage > 0 && leverage > maxLeverage {
			return TradeSignal{}, fmt.Errorf("%w: 레버리지 %d가 최대값 %d를 초과합니다", ErrInvalidSignal, leverage, maxLeverage)
		}
	}

	signal := TradeSignal{
		Event:          in.Event,
		Direction:      direction,
		Symbol:         symbol,
		ReferencePrice: in.Price.Decimal,
		Leverage:       leverage,
		ReceivedAt:     now,
	}

	if in.TakeProfit.Valid {
		if !in.TakeProfit.Decimal.IsPositive() {
			return TradeSignal{}, fmt.Errorf("%w: 익절가는 0보다 커야 합니다", ErrInvalidSignal)
		}
		tp := in.TakeProfit.Decimal
		signal.TakeProfit = &tp
	}
	if in.StopLoss.Valid {
		if !in.StopLoss.Decimal.IsPositive() {
			return TradeSignal{}, fmt.Errorf("%w: 손절가는 0보다 커야 합니다", ErrInvalidSignal)
		}
		sl := in.StopLoss.Decimal
		signal.StopLoss = &sl
	}

	return signal, nil
}

// Side는 시그널의 진입 주문 사이드를 반환합니다
func (s TradeSignal) Side() OrderSide {
	return s.Direction.EntrySide()
}
