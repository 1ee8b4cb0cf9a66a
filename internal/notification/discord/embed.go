package discord

import (
	"time"
	"unicode/utf8"
)

// WebhookMessage는 Discord 웹훅 메시지를 정의합니다
type WebhookMessage struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

// Embed는 Discord 메시지 임베드를 정의합니다
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField는 임베드 필드를 정의합니다
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter는 임베드 푸터를 정의합니다
type EmbedFooter struct {
	Text string `json:"text"`
}

// Discord 제한 값
const (
	maxDescriptionLen = 4096
	maxFieldValueLen  = 1024
	maxFields         = 25
)

const footerText = "Assist by Signal Relay 🤖"

// NewEmbed는 공통 푸터와 현재 시각이 설정된 임베드를 생성합니다
func NewEmbed() *Embed {
	return (&Embed{}).SetFooter(footerText).SetTimestamp(time.Now())
}

// SetTitle은 임베드 제목을 설정합니다
func (e *Embed) SetTitle(title string) *Embed {
	e.Title = title
	return e
}

// SetDescription은 임베드 설명을 설정합니다. 길이 제한을 넘으면 잘라냅니다
func (e *Embed) SetDescription(desc string) *Embed {
	e.Description = clip(desc, maxDescriptionLen)
	return e
}

// SetColor는 임베드 색상을 설정합니다
func (e *Embed) SetColor(color int) *Embed {
	e.Color = color
	return e
}

// AddField는 임베드에 필드를 추가합니다. 빈 값과 25개 초과 필드는 무시합니다
func (e *Embed) AddField(name, value string, inline bool) *Embed {
	if value == "" || len(e.Fields) >= maxFields {
		return e
	}
	e.Fields = append(e.Fields, EmbedField{
		Name:   name,
		Value:  clip(value, maxFieldValueLen),
		Inline: inline,
	})
	return e
}

// SetFooter는 임베드 푸터를 설정합니다
func (e *Embed) SetFooter(text string) *Embed {
	e.Footer = &EmbedFooter{Text: text}
	return e
}

// SetTimestamp는 임베드 타임스탬프를 설정합니다
func (e *Embed) SetTimestamp(t time.Time) *Embed {
	e.Timestamp = t.Format(time.RFC3339)
	return e
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
