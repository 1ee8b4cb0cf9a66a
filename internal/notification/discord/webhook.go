package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/assist-by/relay/internal/domain"
	"github.com/assist-by/relay/internal/notification"
)

// SendSignal은 수신한 시그널 알림을 전송합니다
func (c *Client) SendSignal(signal domain.TradeSignal) error {
	emoji := "🚀"
	color := notification.ColorSuccess
	if signal.Direction == domain.Short {
		emoji = "🔻"
		color = notification.ColorError
	}

	embed := NewEmbed().
		SetTitle(fmt.Sprintf("%s 시그널 수신: %s %s", emoji, strings.ToUpper(signal.Direction.String()), signal.Symbol)).
		SetDescription(fmt.Sprintf("**이벤트**: %s\n**기준가**: %s", signal.Event, signal.ReferencePrice)).
		SetColor(color).
		SetTimestamp(signal.ReceivedAt)

	if signal.Leverage > 0 {
		embed.AddField("레버리지", fmt.Sprintf("%dx", signal.Leverage), true)
	}
	if signal.TakeProfit != nil {
		embed.AddField("익절가", signal.TakeProfit.String(), true)
	}
	if signal.StopLoss != nil {
		embed.AddField("손절가", signal.StopLoss.String(), true)
	}

	return c.sendToWebhook(c.signalWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError)

	if kind := domain.ErrorKind(err); kind != "" {
		embed.AddField("분류", kind, true)
	}
	if errors.Is(err, domain.ErrFlipTimeout) {
		embed.AddField("조치", "반대 포지션 청산 여부를 거래소에서 직접 확인하세요", false)
	}

	return c.sendToWebhook(c.errorWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(notification.ColorInfo)

	return c.sendToWebhook(c.tradeWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}

// SendTradeInfo는 거래 실행 정보를 전송합니다
func (c *Client) SendTradeInfo(info notification.TradeInfo) error {
	title := fmt.Sprintf("거래 실행: %s %s", info.PositionType, info.Symbol)
	if info.Flipped {
		title += " (반대 포지션 청산 후 진입)"
	}

	embed := NewEmbed().
		SetTitle(title).
		SetDescription(fmt.Sprintf(
			"**수량**: %s\n**기준가**: %s\n**손절가**: %s\n**목표가**: %s",
			info.Quantity, info.EntryPrice, info.StopLoss, info.TakeProfit,
		)).
		SetColor(notification.GetColorForPosition(info.PositionType)).
		AddField("레버리지", fmt.Sprintf("%dx", info.Leverage), true).
		AddField("포지션 가치", info.PositionValue.StringFixed(2)+" USDT", true).
		AddField("잔고", info.Balance.StringFixed(2)+" USDT", true).
		AddField("주문 ID", info.OrderID, false)

	if len(info.Warnings) > 0 {
		embed.SetColor(notification.ColorWarning).
			AddField("경고", strings.Join(info.Warnings, "\n"), false)
	}

	return c.sendToWebhook(c.tradeWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}
