package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"AuctionHarvester/internal/infrastructure/httpclient"
	"AuctionHarvester/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Requester is the subset of httpclient.Client the notifier needs.
type Requester interface {
	Execute(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Notifier sends run summaries to a Telegram chat via bot API.
type Notifier struct {
	client   Requester
	apiBase  string
	botToken string
	chatID   string
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiBase
// uses the public Bot API.
func NewNotifier(client Requester, apiBase, botToken, chatID string) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		client:   client,
		apiBase:  strings.TrimSuffix(apiBase, "/"),
		botToken: botToken,
		chatID:   chatID,
	}
}

// PublishDigest posts a Markdown message to Telegram.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", digest)
	form.Set("parse_mode", "Markdown")

	_, err := n.client.Execute(ctx, httpclient.Request{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken),
		Form:    form,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	return nil
}
