// internal/exchange/exchange.go
package exchange

import (
	"context"
	"time"

	"github.com/assist-by/relay/internal/domain"
)

// Exchange는 거래소와의 상호작용을 위한 인터페이스입니다.
// 시그널 처리에 필요한 요청만 포함합니다
type Exchange interface {
	// 계정 데이터 조회
	GetBalance(ctx context.Context, accountType domain.AccountType, asset string) (*domain.AccountBalance, error)
	GetPosition(ctx context.Context, symbol string) (*domain.Position, error) // nil이면 포지션 없음
	GetOpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error)

	// 거래 기능
	PlaceOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderAck, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// 설정 기능
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetPositionMode(ctx context.Context, symbol string, mode domain.PositionMode) error

	// 시간 동기화
	GetServerTime(ctx context.Context) (time.Time, error)
	SyncTime(ctx context.Context) error
}
