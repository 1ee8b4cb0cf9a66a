package position

import (
	"github.com/assist-by/relay/internal/domain"
)

// GetOrderSideForExit는 포지션 청산을 위한 주문 사이드를 반환합니다
func GetOrderSideForExit(pos *domain.Position) domain.OrderSide {
	return pos.Side.Opposite()
}

// IsOppositePosition은 포지션이 진입하려는 사이드와 반대 방향인지 확인합니다
func IsOppositePosition(pos *domain.Position, entrySide domain.OrderSide) bool {
	return pos.IsActive() && pos.Side != entrySide
}
