// Package notify tells the shop owners about new orders over Telegram.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultAPIURL = "https://api.telegram.org"

// Sender delivers a text message to every configured recipient.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Telegram calls the Bot API sendMessage method once per chat.
type Telegram struct {
	APIURL  string
	Token   string
	ChatIDs []string
	HTTP    *http.Client
	Log     *zap.Logger
}

func NewTelegram(apiURL, token string, chatIDs []string, log *zap.Logger) *Telegram {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{
		APIURL:  strings.TrimRight(apiURL, "/"),
		Token:   token,
		ChatIDs: chatIDs,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Log:     log.Named("telegram"),
	}
}

// Enabled reports whether there is a bot token and at least one chat.
func (t *Telegram) Enabled() bool { return t.Token != "" && len(t.ChatIDs) > 0 }

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send tries every chat even when some fail, and returns the joined failures.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		t.Log.Debug("telegram disabled, message dropped")
		return nil
	}
	var errs []error
	for _, chat := range t.ChatIDs {
		if err := t.send(ctx, chat, text); err != nil {
			t.Log.Warn("send message", zap.String("chat_id", chat), zap.Error(err))
			errs = append(errs, fmt.Errorf("chat %s: %w", chat, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) send(ctx context.Context, chat, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chat, Text: text, ParseMode: "HTML", DisableWebPagePreview: true})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.APIURL, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.HTTP.Do(req)
	if err != nil {
		// *url.Error quotes the url, which embeds the bot token
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("post sendMessage: %w", uerr.Err)
		}
		return err
	}
	defer resp.Body.Close()

	var out apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, out.Description)
	}
	return nil
}
