package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier posts messages to a chat through the Bot API.
type TelegramNotifier struct {
	apiURL string
	token  string
	chatID string
	http   *retryablehttp.Client
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewTelegramNotifier(apiURL, token, chatID string, retryMax int) *TelegramNotifier {
	if apiURL == "" {
		apiURL = DefaultTelegramAPI
	}

	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.RetryMax = retryMax
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = &redactingLogger{secret: token}

	return &TelegramNotifier{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		chatID: chatID,
		http:   rc,
	}
}

func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.token)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		// The error text embeds the URL and with it the token.
		return fmt.Errorf("failed to send message: %s", strings.ReplaceAll(err.Error(), n.token, "***"))
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !result.OK {
		return fmt.Errorf("telegram error %d: %s", resp.StatusCode, result.Description)
	}

	return nil
}

// redactingLogger forwards retryablehttp logs to slog with the bot token
// masked; the library logs the full request URL, which carries the token.
type redactingLogger struct {
	secret string
}

func (l *redactingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log(slog.LevelError, msg, keysAndValues)
}

func (l *redactingLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(slog.LevelWarn, msg, keysAndValues)
}

func (l *redactingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log(slog.LevelInfo, msg, keysAndValues)
}

func (l *redactingLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(slog.LevelDebug, msg, keysAndValues)
}

func (l *redactingLogger) log(level slog.Level, msg string, keysAndValues []interface{}) {
	args := make([]any, len(keysAndValues))
	for i, v := range keysAndValues {
		args[i] = l.redact(v)
	}
	slog.Default().Log(context.Background(), level, l.redact(msg).(string), args...)
}

func (l *redactingLogger) redact(v any) any {
	if l.secret == "" {
		return v
	}
	text := fmt.Sprint(v)
	if !strings.Contains(text, l.secret) {
		return v
	}
	return strings.ReplaceAll(text, l.secret, "***")
}

var _ retryablehttp.LeveledLogger = (*redactingLogger)(nil)

// LogNotifier writes messages to the log instead of a chat.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, text string) error {
	slog.Info("Notification", "text", text)
	return nil
}
