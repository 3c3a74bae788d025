package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

const telegramAPI = "https://api.telegram.org"

// TelegramSender delivers admin notifications through the Bot API
// sendMessage method.
type TelegramSender struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

func NewTelegramSender(token string, httpClient *http.Client, logger *zap.Logger) *TelegramSender {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TelegramSender{
		baseURL: telegramAPI,
		token:   token,
		http:    httpClient,
		logger:  logger,
	}
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode sendMessage response: %w", err)
	}
	if !out.OK {
		s.logger.Warn("telegram rejected message",
			zap.Int64("chat_id", chatID),
			zap.Int("status", resp.StatusCode),
			zap.String("description", out.Description),
		)
		return fmt.Errorf("telegram sendMessage: %s", out.Description)
	}
	return nil
}
