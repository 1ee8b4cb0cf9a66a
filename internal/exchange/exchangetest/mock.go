// Package exchangetest는 테스트용 거래소 목(mock)을 제공합니다
package exchangetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/exchange"
)

var _ exchange.Exchange = (*MockExchange)(nil)

// MockExchange는 testify mock 기반의 exchange.Exchange 구현입니다
type MockExchange struct {
	mock.Mock
}

func (m *MockExchange) GetBalance(ctx context.Context, accountType domain.AccountType, asset string) (*domain.AccountBalance, error) {
	args := m.Called(ctx, accountType, asset)
	bal, _ := args.Get(0).(*domain.AccountBalance)
	return bal, args.Error(1)
}

func (m *MockExchange) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	args := m.Called(ctx, symbol)
	pos, _ := args.Get(0).(*domain.Position)
	return pos, args.Error(1)
}

func (m *MockExchange) GetOpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error) {
	args := m.Called(ctx, symbol)
	orders, _ := args.Get(0).([]domain.OpenOrder)
	return orders, args.Error(1)
}

func (m *MockExchange) PlaceOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderAck, error) {
	args := m.Called(ctx, order)
	ack, _ := args.Get(0).(*domain.OrderAck)
	return ack, args.Error(1)
}

func (m *MockExchange) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return m.Called(ctx, symbol, orderID).Error(0)
}

func (m *MockExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return m.Called(ctx, symbol, leverage).Error(0)
}

func (m *MockExchange) SetPositionMode(ctx context.Context, symbol string, mode domain.PositionMode) error {
	return m.Called(ctx, symbol, mode).Error(0)
}

func (m *MockExchange) GetServerTime(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	ts, _ := args.Get(0).(time.Time)
	return ts, args.Error(1)
}

func (m *MockExchange) SyncTime(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
