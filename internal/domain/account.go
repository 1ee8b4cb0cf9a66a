package domain

import "github.com/shopspring/decimal"

// AccountBalance는 주문에 사용할 수 있는 자산 잔고를 표현합니다
type AccountBalance struct {
	Asset     string          // 자산 심볼 (예: USDT)
	Available decimal.Decimal // 사용 가능한 잔고
	Source    string          // 값을 가져온 필드 (availableToWithdraw, walletBalance, equity)
}

// IsUsable은 주문에 쓸 수 있는 잔고인지 확인합니다
func (b *AccountBalance) IsUsable() bool {
	return b != nil && b.Available.IsPositive()
}
