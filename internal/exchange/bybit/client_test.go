package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/relay/internal/domain"
)

const (
	testKey    = "test-key"
	testSecret = "test-secret"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testKey, testSecret, WithBaseURL(srv.URL))
}

func TestWithTestnet(t *testing.T) {
	c := NewClient(testKey, testSecret, WithBaseURL("https://example.invalid"), WithTestnet(true))
	assert.Equal(t, TestnetURL, c.baseURL)

	c = NewClient(testKey, testSecret, WithTestnet(false))
	assert.Equal(t, MainnetURL, c.baseURL)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func expectedSign(ts, recv, payload string) string {
	h := hmac.New(sha256.New, []byte(testSecret))
	h.Write([]byte(ts + testKey + recv + payload))
	return hex.EncodeToString(h.Sum(nil))
}

func TestSendSignsQueryString(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testKey, r.Header.Get("X-BAPI-API-KEY"))
		assert.Equal(t, "5000", r.Header.Get("X-BAPI-RECV-WINDOW"))
		assert.Equal(t, "2", r.Header.Get("X-BAPI-SIGN-TYPE"))
		ts := r.Header.Get("X-BAPI-TIMESTAMP")
		assert.Equal(t, expectedSign(ts, "5000", r.URL.RawQuery), r.Header.Get("X-BAPI-SIGN"))
		writeJSON(w, `{"retCode":0,"retMsg":"OK","result":{},"time":1}`)
	})

	resp, err := c.Send(context.Background(), http.MethodGet, "/v5/position/list",
		map[string][]string{"symbol": {"ETHUSDT"}, "category": {"linear"}}, nil)
	require.NoError(t, err)
	assert.NoError(t, resp.Err())
}

func TestSendSignsExactBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		ts := r.Header.Get("X-BAPI-TIMESTAMP")
		assert.Equal(t, expectedSign(ts, "5000", string(body)), r.Header.Get("X-BAPI-SIGN"))
		writeJSON(w, `{"retCode":10001,"retMsg":"params error","result":{}}`)
	})

	resp, err := c.Send(context.Background(), http.MethodPost, "/v5/order/cancel", nil, map[string]string{"orderId": "1"})
	require.NoError(t, err)

	var apiErr *APIError
	require.True(t, errors.As(resp.Err(), &apiErr))
	assert.Equal(t, 10001, apiErr.Code)
}

func TestSendProtocolError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := c.Send(context.Background(), http.MethodGet, "/v5/position/list", nil, nil)
	assert.ErrorIs(t, err, domain.ErrProtocol)
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(testKey, testSecret, WithBaseURL(srv.URL))

	_, err := c.Send(context.Background(), http.MethodGet, "/v5/position/list", nil, nil)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestGetBalance(t *testing.T) {
	testCases := []struct {
		name   string
		coin   string
		want   string
		source string
		fail   bool
	}{
		{
			name:   "출금 가능액 우선",
			coin:   `{"coin":"USDT","availableToWithdraw":"120.5","walletBalance":"200","equity":"210"}`,
			want:   "120.5",
			source: "availableToWithdraw",
		},
		{
			name:   "빈 값이면 지갑 잔고",
			coin:   `{"coin":"USDT","availableToWithdraw":"","walletBalance":"200","equity":"210"}`,
			want:   "200",
			source: "walletBalance",
		},
		{
			name:   "마지막으로 equity",
			coin:   `{"coin":"USDT","availableToWithdraw":"0","walletBalance":"","equity":"15"}`,
			want:   "15",
			source: "equity",
		},
		{
			name: "사용 가능 잔고 없음",
			coin: `{"coin":"USDT","availableToWithdraw":"","walletBalance":"0","equity":""}`,
			fail: true,
		},
		{
			name: "자산 없음",
			coin: `{"coin":"BTC","walletBalance":"1"}`,
			fail: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v5/account/wallet-balance", r.URL.Path)
				assert.Equal(t, "UNIFIED", r.URL.Query().Get("accountType"))
				writeJSON(w, `{"retCode":0,"retMsg":"OK","result":{"list":[{"accountType":"UNIFIED","coin":[`+tc.coin+`]}]}}`)
			})

			bal, err := c.GetBalance(context.Background(), domain.AccountUnified, "USDT")
			if tc.fail {
				assert.ErrorIs(t, err, domain.ErrBalance)
				return
			}
			require.NoError(t, err)
			assert.True(t, bal.Available.Equal(decimal.RequireFromString(tc.want)))
			assert.Equal(t, tc.source, bal.Source)
		})
	}
}

func TestGetBalanceRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"retCode":10003,"retMsg":"API key is invalid.","result":{}}`)
	})

	_, err := c.GetBalance(context.Background(), domain.AccountUnified, "USDT")
	assert.ErrorIs(t, err, domain.ErrBalance)
}

func TestGetPosition(t *testing.T) {
	t.Run("첫 번째 활성 포지션", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "linear", r.URL.Query().Get("category"))
			writeJSON(w, `{"retCode":0,"retMsg":"OK","result":{"list":[
				{"symbol":"ETHUSDT","side":"","size":"0","positionIdx":1},
				{"symbol":"ETHUSDT","side":"Sell","size":"0.5","positionIdx":2,"avgPrice":"2510"}]}}`)
		})

		pos, err := c.GetPosition(context.Background(), "ETHUSDT")
		require.NoError(t, err)
		require.NotNil(t, pos)
		assert.Equal(t, domain.Sell, pos.Side)
		assert.Equal(t, 2, pos.PositionIdx)
		assert.True(t, pos.Size.Equal(decimal.RequireFromString("0.5")))
	})

	t.Run("포지션 없음", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"ETHUSDT","side":"","size":"0"}]}}`)
		})

		pos, err := c.GetPosition(context.Background(), "ETHUSDT")
		require.NoError(t, err)
		assert.Nil(t, pos)
	})

	t.Run("크기 파싱 실패는 ProtocolError", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"ETHUSDT","side":"Sell","size":"1,5"}]}}`)
		})

		pos, err := c.GetPosition(context.Background(), "ETHUSDT")
		assert.ErrorIs(t, err, domain.ErrProtocol)
		assert.Nil(t, pos)
	})
}

func TestGetOpenOrdersFollowsCursor(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "0", r.URL.Query().Get("openOnly"))
		if r.URL.Query().Get("cursor") == "" {
			writeJSON(w, `{"retCode":0,"result":{"list":[{"orderId":"a","symbol":"ETHUSDT","side":"Buy","orderType":"Limit","qty":"1"}],"nextPageCursor":"next"}}`)
			return
		}
		writeJSON(w, `{"retCode":0,"result":{"list":[{"orderId":"b","symbol":"ETHUSDT","side":"Sell","orderType":"Market","qty":"2","reduceOnly":true}],"nextPageCursor":""}}`)
	})

	orders, err := c.GetOpenOrders(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "a", orders[0].OrderID)
	assert.True(t, orders[1].ReduceOnly)
}

func TestPlaceOrder(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/order/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, `{"retCode":0,"retMsg":"OK","result":{"orderId":"ord-1","orderLinkId":"link-1"}}`)
	})

	tp := decimal.RequireFromString("2568")
	sl := decimal.RequireFromString("2275")
	ack, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:      "ETHUSDT",
		Side:        domain.Buy,
		Type:        domain.Market,
		Quantity:    decimal.RequireFromString("1.14"),
		TakeProfit:  &tp,
		StopLoss:    &sl,
		TimeInForce: domain.GTC,
		OrderLinkID: "link-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", ack.OrderID)
	assert.Equal(t, "link-1", ack.OrderLinkID)

	assert.Equal(t, "linear", got["category"])
	assert.Equal(t, "1.14", got["qty"])
	assert.Equal(t, "2568", got["takeProfit"])
	assert.Equal(t, "2275", got["stopLoss"])
	assert.Equal(t, "Full", got["tpslMode"])
	assert.Equal(t, "GTC", got["timeInForce"])
	assert.Equal(t, false, got["reduceOnly"])
	assert.EqualValues(t, 0, got["positionIdx"])
}

func TestPlaceOrderRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"retCode":110007,"retMsg":"ab not enough for new order","result":{}}`)
	})

	ack, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol: "ETHUSDT", Side: domain.Sell, Type: domain.Market, Quantity: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
	require.NotNil(t, ack)
	assert.Equal(t, 110007, ack.RetCode)
	assert.NotEmpty(t, ack.OrderLinkID)
}

func TestSetLeverageNotModified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "5", body["buyLeverage"])
		assert.Equal(t, "5", body["sellLeverage"])
		writeJSON(w, `{"retCode":110043,"retMsg":"leverage not modified","result":{}}`)
	})

	assert.NoError(t, c.SetLeverage(context.Background(), "ETHUSDT", 5))
}

func TestSetPositionMode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 3, body["mode"])
		writeJSON(w, `{"retCode":110025,"retMsg":"Position mode is not modified","result":{}}`)
	})

	assert.NoError(t, c.SetPositionMode(context.Background(), "ETHUSDT", domain.PositionModeHedge))
	assert.Error(t, c.SetPositionMode(context.Background(), "ETHUSDT", domain.PositionModeNone))
}

func TestSyncTimeAppliesOffset(t *testing.T) {
	local := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	server := local.Add(2 * time.Second)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-BAPI-SIGN"))
		writeJSON(w, `{"retCode":0,"retMsg":"OK","result":{"timeSecond":"0","timeNano":"`+
			decimal.NewFromInt(server.UnixNano()).String()+`"},"time":0}`)
	})
	c.now = func() time.Time { return local }

	require.NoError(t, c.SyncTime(context.Background()))
	assert.Equal(t, server.UnixMilli(), c.timestamp())
}
