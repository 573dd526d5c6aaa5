package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"duetmenu/internal/config"
	"duetmenu/internal/models"

	"github.com/rs/zerolog"
)

// ServerChanSender pushes order summaries to WeChat through the Server酱
// relay: one form-encoded POST per order, no retry, no queue. The caller
// treats any returned error as non-fatal.
type ServerChanSender struct {
	sendKey string
	baseURL string
	client  *http.Client
	logger  *zerolog.Logger
}

// serverChanResponse is the relay's reply envelope; code 0 means delivered.
type serverChanResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewServerChanSender(cfg config.ServerChanConfig, client *http.Client, logger *zerolog.Logger) *ServerChanSender {
	if client == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ServerChanSender{
		sendKey: cfg.SendKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

func (s *ServerChanSender) Send(ctx context.Context, record *models.OrderRecord) error {
	form := url.Values{}
	form.Set("title", Title(record))
	form.Set("desp", Summary(record))

	endpoint := fmt.Sprintf("%s/%s.send", s.baseURL, s.sendKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}

	var result serverChanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("push rejected: code=%d message=%s", result.Code, result.Message)
	}

	s.logger.Info().Str("order_id", record.ID).Msg("order pushed to WeChat")
	return nil
}
