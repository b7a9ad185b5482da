package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const expoPushURL = "https://exp.host/--/api/v2/push/send"

// ExpoSender отправляет уведомления через сервис Expo push. В отличие от FCM,
// access token не требуется, а статус доставки сервисом не проверяется:
// Delivered в отчёте равен Attempted.
type ExpoSender struct {
	// Адрес вынесен в поле для подмены в тестах.
	pushURL string

	httpClient *http.Client
	logger     *zap.Logger
}

// NewExpoSender создаёт отправителя уведомлений Expo.
func NewExpoSender(logger *zap.Logger) *ExpoSender {
	return &ExpoSender{
		pushURL: expoPushURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type expoMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Push рассылает уведомление по токенам с ограниченным веером.
func (s *ExpoSender) Push(ctx context.Context, tokens []string, msg Message) (Report, error) {
	if len(tokens) == 0 {
		return Report{}, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for _, token := range tokens {
		token := token
		g.Go(func() error {
			if err := s.send(ctx, token, msg); err != nil {
				s.logger.Warn("expo delivery failed", zap.Error(err))
			}
			return nil
		})
	}

	_ = g.Wait()

	return Report{
		Attempted: len(tokens),
		Delivered: len(tokens),
	}, nil
}

func (s *ExpoSender) send(ctx context.Context, token string, msg Message) error {
	body, err := json.Marshal(expoMessage{
		To:    token,
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Статус ответа Expo не анализируется: подтверждение доставки не ведётся.
	return nil
}
