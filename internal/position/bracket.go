package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/assist-by/relay/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// BracketConfig는 TP/SL이 시그널에 없을 때 사용할 기준가 대비 퍼센트입니다
type BracketConfig struct {
	TakeProfitPct decimal.Decimal // 예: 2.72 (%)
	StopLossPct   decimal.Decimal // 예: 9.0 (%)
}

// Bracket은 진입 주문에 함께 실을 익절/손절 가격입니다
type Bracket struct {
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

// ComputeBracket은 익절/손절 가격을 계산합니다.
// 시그널에 명시된 값이 우선이고, 없으면 퍼센트 오프셋을 적용한 뒤 tick 단위로 반올림합니다.
// 롱은 tp > 기준가 > sl, 숏은 그 반대여야 합니다
func ComputeBracket(direction domain.Direction, ref decimal.Decimal, explicitTP, explicitSL *decimal.Decimal, cfg BracketConfig, tick decimal.Decimal) (Bracket, error) {
	if !ref.IsPositive() {
		return Bracket{}, fmt.Errorf("%w: 기준가는 0보다 커야 합니다", domain.ErrInvalidSignal)
	}

	var tpFactor, slFactor decimal.Decimal
	one := decimal.NewFromInt(1)
	switch direction {
	case domain.Long:
		tpFactor = one.Add(cfg.TakeProfitPct.Div(hundred))
		slFactor = one.Sub(cfg.StopLossPct.Div(hundred))
	case domain.Short:
		tpFactor = one.Sub(cfg.TakeProfitPct.Div(hundred))
		slFactor = one.Add(cfg.StopLossPct.Div(hundred))
	default:
		return Bracket{}, fmt.Errorf("%w: 방향이 없습니다", domain.ErrInvalidSignal)
	}

	var b Bracket
	if explicitTP != nil {
		b.TakeProfit = *explicitTP
	} else {
		b.TakeProfit = RoundToTick(ref.Mul(tpFactor), tick)
	}
	if explicitSL != nil {
		b.StopLoss = *explicitSL
	} else {
		b.StopLoss = RoundToTick(ref.Mul(slFactor), tick)
	}

	if err := b.validate(direction, ref); err != nil {
		return Bracket{}, err
	}
	return b, nil
}

func (b Bracket) validate(direction domain.Direction, ref decimal.Decimal) error {
	ok := false
	if direction == domain.Long {
		ok = b.TakeProfit.GreaterThan(ref) && ref.GreaterThan(b.StopLoss)
	} else {
		ok = b.TakeProfit.LessThan(ref) && ref.LessThan(b.StopLoss)
	}
	if !ok || !b.StopLoss.IsPositive() || !b.TakeProfit.IsPositive() {
		return fmt.Errorf("%w: %s 방향에 맞지 않는 TP/SL (tp %s, 기준가 %s, sl %s)",
			domain.ErrInvalidSignal, direction, b.TakeProfit, ref, b.StopLoss)
	}
	return nil
}
