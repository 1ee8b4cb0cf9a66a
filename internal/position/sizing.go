package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/assist-by/relay/internal/domain"
)

// RoundingMode는 수량을 단위(step)에 맞출 때의 반올림 방향입니다
type RoundingMode string

const (
	RoundDown RoundingMode = "down" // 기본값
	RoundUp   RoundingMode = "up"
)

// SizingConfig는 포지션 사이즈 계산을 위한 설정을 정의합니다
type SizingConfig struct {
	MarginFraction decimal.Decimal         // 잔고 중 증거금으로 사용할 비율 (0, 1]
	Limits         domain.InstrumentLimits // 심볼 주문 제약
	Rounding       RoundingMode            // 수량 반올림 방향
}

// SizingResult는 포지션 계산 결과를 담는 구조체입니다
type SizingResult struct {
	Quantity           decimal.Decimal // 주문 수량 (코인)
	MarginUsed         decimal.Decimal // 사용 증거금 (USDT)
	PositionValue      decimal.Decimal // 레버리지 적용 포지션 가치 (USDT)
	Notional           decimal.Decimal // 최종 수량 × 가격
	MinNotionalApplied bool            // 최소 주문 가치로 재계산되었는지 여부
}

// CalculatePositionSize는 잔고, 레버리지, 가격으로 주문 수량을 계산합니다.
//
// 순서: 원시 수량 계산 → [minQty, maxQty] 범위 제한 → step 반올림 → 범위 재확인(불가능하면 에러) →
// 최소 주문 가치 미달이면 minNotional/price를 step 올림. 이 값이 maxQty를 넘으면 에러입니다
func CalculatePositionSize(balance decimal.Decimal, leverage int, price decimal.Decimal, cfg SizingConfig) (SizingResult, error) {
	if err := validateSizingInput(balance, leverage, price, cfg); err != nil {
		return SizingResult{}, err
	}

	limits := cfg.Limits
	step := limits.QtyStep

	// 1. 증거금, 포지션 가치, 원시 수량
	marginUsed := balance.Mul(cfg.MarginFraction)
	positionValue := marginUsed.Mul(decimal.NewFromInt(int64(leverage)))
	qty := positionValue.Div(price)

	// 2. 범위 제한
	qty = decimal.Min(decimal.Max(qty, limits.MinQty), limits.MaxQty)

	// 3. step 반올림
	if cfg.Rounding == RoundUp {
		qty = ceilStep(qty, step)
	} else {
		qty = floorStep(qty, step)
	}

	// 4. 반올림 후 범위 재확인
	if qty.LessThan(limits.MinQty) {
		qty = ceilStep(limits.MinQty, step)
	}
	if qty.GreaterThan(limits.MaxQty) {
		qty = floorStep(limits.MaxQty, step)
	}
	if qty.LessThan(limits.MinQty) || qty.GreaterThan(limits.MaxQty) {
		return SizingResult{}, fmt.Errorf("%w: [%s, %s] 범위 안에 수량 단위 %s의 배수가 없습니다",
			domain.ErrSizing, limits.MinQty, limits.MaxQty, step)
	}

	result := SizingResult{
		Quantity:      qty,
		MarginUsed:    marginUsed,
		PositionValue: positionValue,
		Notional:      qty.Mul(price),
	}

	// 5. 최소 주문 가치
	if limits.MinNotional.IsPositive() && result.Notional.LessThan(limits.MinNotional) {
		qty = ceilStep(limits.MinNotional.Div(price), step)
		if qty.GreaterThan(limits.MaxQty) {
			return SizingResult{}, fmt.Errorf("%w: 최소 주문 가치(%s)를 맞추는 수량 %s가 최대 수량 %s를 초과합니다",
				domain.ErrSizing, limits.MinNotional, qty, limits.MaxQty)
		}
		result.Quantity = qty
		result.Notional = qty.Mul(price)
		result.MinNotionalApplied = true
	}

	if !result.Quantity.IsPositive() {
		return SizingResult{}, fmt.Errorf("%w: 계산된 수량이 0입니다", domain.ErrSizing)
	}

	return result, nil
}

func validateSizingInput(balance decimal.Decimal, leverage int, price decimal.Decimal, cfg SizingConfig) error {
	one := decimal.NewFromInt(1)
	l := cfg.Limits

	switch {
	case !balance.IsPositive():
		return fmt.Errorf("%w: 잔고는 0보다 커야 합니다 (%s)", domain.ErrSizing, balance)
	case !cfg.MarginFraction.IsPositive() || cfg.MarginFraction.GreaterThan(one):
		return fmt.Errorf("%w: 증거금 비율은 (0, 1] 범위여야 합니다 (%s)", domain.ErrSizing, cfg.MarginFraction)
	case leverage < 1:
		return fmt.Errorf("%w: 레버리지는 1 이상이어야 합니다 (%d)", domain.ErrSizing, leverage)
	case !price.IsPositive():
		return fmt.Errorf("%w: 가격은 0보다 커야 합니다 (%s)", domain.ErrSizing, price)
	case !l.MinQty.IsPositive() || l.MinQty.GreaterThan(l.MaxQty):
		return fmt.Errorf("%w: 수량 범위가 잘못되었습니다 (min %s, max %s)", domain.ErrSizing, l.MinQty, l.MaxQty)
	case !l.QtyStep.IsPositive():
		return fmt.Errorf("%w: 수량 단위는 0보다 커야 합니다 (%s)", domain.ErrSizing, l.QtyStep)
	case l.MinNotional.IsNegative():
		return fmt.Errorf("%w: 최소 주문 가치는 음수일 수 없습니다 (%s)", domain.ErrSizing, l.MinNotional)
	}
	return nil
}

// floorStep은 값을 step의 배수로 내림합니다
func floorStep(v, step decimal.Decimal) decimal.Decimal {
	return v.Div(step).Floor().Mul(step)
}

// ceilStep은 값을 step의 배수로 올림합니다
func ceilStep(v, step decimal.Decimal) decimal.Decimal {
	return v.Div(step).Ceil().Mul(step)
}

// RoundToTick은 가격을 tick의 배수로 반올림합니다. tick이 0 이하이면 소수점 2자리로 반올림합니다
func RoundToTick(price, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return price.Round(2)
	}
	return price.Div(tick).Round(0).Mul(tick)
}
