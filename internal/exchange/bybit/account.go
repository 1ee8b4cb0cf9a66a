package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/assist-by/relay/internal/domain"
)

// 잔고 필드 우선순위
var balanceFields = []string{"availableToWithdraw", "walletBalance", "equity"}

type walletCoin struct {
	Coin                string `json:"coin"`
	AvailableToWithdraw string `json:"availableToWithdraw"`
	WalletBalance       string `json:"walletBalance"`
	Equity              string `json:"equity"`
}

func (w walletCoin) field(name string) string {
	switch name {
	case "availableToWithdraw":
		return w.AvailableToWithdraw
	case "walletBalance":
		return w.WalletBalance
	case "equity":
		return w.Equity
	}
	return ""
}

// GetBalance는 계정의 사용 가능한 잔고를 조회합니다.
// availableToWithdraw, walletBalance, equity 순으로 0보다 큰 첫 값을 사용합니다
func (c *Client) GetBalance(ctx context.Context, accountType domain.AccountType, asset string) (*domain.AccountBalance, error) {
	params := url.Values{}
	params.Set("accountType", string(accountType))
	params.Set("coin", asset)

	resp, err := c.Send(ctx, http.MethodGet, "/v5/account/wallet-balance", params, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBalance, err)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBalance, err)
	}

	var result struct {
		List []struct {
			AccountType string       `json:"accountType"`
			Coin        []walletCoin `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: %w: 잔고 응답 파싱 실패: %w", domain.ErrBalance, domain.ErrProtocol, err)
	}
	if len(result.List) == 0 {
		return nil, fmt.Errorf("%w: 계정 정보가 비어있습니다 (%s)", domain.ErrBalance, accountType)
	}

	for _, coin := range result.List[0].Coin {
		if coin.Coin != asset {
			continue
		}
		for _, name := range balanceFields {
			value := parseDecimal(coin.field(name))
			if value.IsPositive() {
				return &domain.AccountBalance{
					Asset:     asset,
					Available: value,
					Source:    name,
				}, nil
			}
		}
		return nil, fmt.Errorf("%w: %s 사용 가능 잔고가 없습니다", domain.ErrBalance, asset)
	}

	return nil, fmt.Errorf("%w: %s 자산을 찾을 수 없습니다", domain.ErrBalance, asset)
}

// GetPosition은 심볼의 현재 포지션을 조회합니다. 포지션이 없으면 nil을 반환합니다
func (c *Client) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("symbol", symbol)

	resp, err := c.Send(ctx, http.MethodGet, "/v5/position/list", params, nil)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("포지션 조회 실패: %w", err)
	}

	var result struct {
		List []struct {
			Symbol      string `json:"symbol"`
			Side        string `json:"side"`
			Size        string `json:"size"`
			PositionIdx int    `json:"positionIdx"`
			AvgPrice    string `json:"avgPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: 포지션 응답 파싱 실패: %w", domain.ErrProtocol, err)
	}

	for _, p := range result.List {
		// 크기를 읽을 수 없으면 청산된 것으로 보지 않습니다
		size := decimal.Zero
		if p.Size != "" {
			parsed, err := decimal.NewFromString(p.Size)
			if err != nil {
				return nil, fmt.Errorf("%w: 포지션 크기 파싱 실패 %q: %w", domain.ErrProtocol, p.Size, err)
			}
			size = parsed
		}
		if !size.IsPositive() {
			continue
		}
		return &domain.Position{
			Symbol:      p.Symbol,
			Side:        domain.OrderSide(p.Side),
			Size:        size,
			PositionIdx: p.PositionIdx,
			AvgPrice:    parseDecimal(p.AvgPrice),
		}, nil
	}
	return nil, nil
}

// GetOpenOrders는 심볼의 미체결 주문을 모두 조회합니다
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error) {
	var orders []domain.OpenOrder
	cursor := ""

	for {
		params := url.Values{}
		params.Set("category", c.category)
		params.Set("symbol", symbol)
		params.Set("openOnly", "0")
		params.Set("limit", "50")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := c.Send(ctx, http.MethodGet, "/v5/order/realtime", params, nil)
		if err != nil {
			return nil, err
		}
		if err := resp.Err(); err != nil {
			return nil, fmt.Errorf("미체결 주문 조회 실패: %w", err)
		}

		var result struct {
			List []struct {
				OrderID     string `json:"orderId"`
				OrderLinkID string `json:"orderLinkId"`
				Symbol      string `json:"symbol"`
				Side        string `json:"side"`
				OrderType   string `json:"orderType"`
				Qty         string `json:"qty"`
				ReduceOnly  bool   `json:"reduceOnly"`
			} `json:"list"`
			NextPageCursor string `json:"nextPageCursor"`
		}
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, fmt.Errorf("%w: 주문 응답 파싱 실패: %w", domain.ErrProtocol, err)
		}

		for _, o := range result.List {
			orders = append(orders, domain.OpenOrder{
				OrderID:     o.OrderID,
				OrderLinkID: o.OrderLinkID,
				Symbol:      o.Symbol,
				Side:        domain.OrderSide(o.Side),
				OrderType:   domain.OrderType(o.OrderType),
				Quantity:    parseDecimal(o.Qty),
				ReduceOnly:  o.ReduceOnly,
			})
		}

		if result.NextPageCursor == "" || result.NextPageCursor == cursor || len(result.List) == 0 {
			break
		}
		cursor = result.NextPageCursor
	}

	c.logger.Debug("미체결 주문 조회", zap.String("symbol", symbol), zap.Int("count", len(orders)))
	return orders, nil
}

// parseDecimal은 빈 문자열이나 잘못된 값을 0으로 처리합니다
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
