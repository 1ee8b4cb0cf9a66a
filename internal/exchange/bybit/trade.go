package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assist-by/relay/internal/domain"
)

type createOrderBody struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	TimeInForce string `json:"timeInForce,omitempty"`
	TakeProfit  string `json:"takeProfit,omitempty"`
	StopLoss    string `json:"stopLoss,omitempty"`
	TpslMode    string `json:"tpslMode,omitempty"`
	PositionIdx int    `json:"positionIdx"`
	ReduceOnly  bool   `json:"reduceOnly"`
	OrderLinkID string `json:"orderLinkId,omitempty"`
}

// PlaceOrder는 주문을 생성합니다.
// TakeProfit/StopLoss가 있으면 같은 요청에 전체 포지션 기준(Full)으로 함께 설정합니다.
// 거래소가 거부하면 응답 정보를 담은 OrderAck와 ErrOrderRejected를 함께 반환합니다
func (c *Client) PlaceOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderAck, error) {
	linkID := order.OrderLinkID
	if linkID == "" {
		linkID = uuid.NewString()
	}

	body := createOrderBody{
		Category:    c.category,
		Symbol:      order.Symbol,
		Side:        string(order.Side),
		OrderType:   string(order.Type),
		Qty:         order.Quantity.String(),
		TimeInForce: string(order.TimeInForce),
		PositionIdx: order.PositionIdx,
		ReduceOnly:  order.ReduceOnly,
		OrderLinkID: linkID,
	}
	if order.TakeProfit != nil {
		body.TakeProfit = order.TakeProfit.String()
	}
	if order.StopLoss != nil {
		body.StopLoss = order.StopLoss.String()
	}
	if body.TakeProfit != "" || body.StopLoss != "" {
		body.TpslMode = "Full"
	}

	resp, err := c.Send(ctx, http.MethodPost, "/v5/order/create", nil, body)
	if err != nil {
		return nil, err
	}

	ack := &domain.OrderAck{
		OrderLinkID: linkID,
		RetCode:     resp.RetCode,
		RetMsg:      resp.RetMsg,
		Raw:         resp.Raw,
	}

	if apiErr := resp.Err(); apiErr != nil {
		return ack, fmt.Errorf("%w: %w", domain.ErrOrderRejected, apiErr)
	}

	var result struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return ack, fmt.Errorf("%w: 주문 응답 파싱 실패: %w", domain.ErrProtocol, err)
	}
	ack.OrderID = result.OrderID
	if result.OrderLinkID != "" {
		ack.OrderLinkID = result.OrderLinkID
	}

	c.logger.Info("주문 생성",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("qty", body.Qty),
		zap.Bool("reduce_only", order.ReduceOnly),
		zap.String("order_id", ack.OrderID))

	return ack, nil
}

// CancelOrder는 주문을 취소합니다
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	body := map[string]string{
		"category": c.category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	resp, err := c.Send(ctx, http.MethodPost, "/v5/order/cancel", nil, body)
	if err != nil {
		return err
	}
	if apiErr := resp.Err(); apiErr != nil {
		return fmt.Errorf("%w: 주문 취소 실패 (%s): %w", domain.ErrOrderRejected, orderID, apiErr)
	}
	return nil
}

// SetLeverage는 매수/매도 레버리지를 같은 값으로 설정합니다.
// 이미 같은 값이면 성공으로 처리합니다
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	lv := strconv.Itoa(leverage)
	body := map[string]string{
		"category":     c.category,
		"symbol":       symbol,
		"buyLeverage":  lv,
		"sellLeverage": lv,
	}

	resp, err := c.Send(ctx, http.MethodPost, "/v5/position/set-leverage", nil, body)
	if err != nil {
		return err
	}
	if resp.RetCode == retCodeLeverageNotModified {
		return nil
	}
	if apiErr := resp.Err(); apiErr != nil {
		return fmt.Errorf("레버리지 설정 실패: %w", apiErr)
	}
	return nil
}

// SetPositionMode는 포지션 모드를 변경합니다 (0: 단방향, 3: 헤지).
// 이미 같은 모드면 성공으로 처리합니다
func (c *Client) SetPositionMode(ctx context.Context, symbol string, mode domain.PositionMode) error {
	var code int
	switch mode {
	case domain.PositionModeOneWay:
		code = 0
	case domain.PositionModeHedge:
		code = 3
	default:
		return fmt.Errorf("지원하지 않는 포지션 모드: %q", mode)
	}

	body := struct {
		Category string `json:"category"`
		Symbol   string `json:"symbol"`
		Mode     int    `json:"mode"`
	}{c.category, symbol, code}

	resp, err := c.Send(ctx, http.MethodPost, "/v5/position/switch-mode", nil, body)
	if err != nil {
		return err
	}
	if resp.RetCode == retCodeModeNotModified {
		return nil
	}
	if apiErr := resp.Err(); apiErr != nil {
		return fmt.Errorf("포지션 모드 변경 실패: %w", apiErr)
	}
	return nil
}
