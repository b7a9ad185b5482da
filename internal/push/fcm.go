package push

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	googleTokenURL = "https://oauth2.googleapis.com/token"
	fcmScope       = "https://www.googleapis.com/auth/firebase.messaging"
	fcmSendURL     = "https://fcm.googleapis.com/v1/projects/%s/messages:send"

	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// FCMSender отправляет уведомления через FCM HTTP v1 API от имени
// сервисного аккаунта Firebase.
type FCMSender struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
	projectID   string

	// Адреса вынесены в поля, чтобы тесты могли подменить их на httptest-серверы.
	tokenURL string
	sendURL  string

	httpClient *http.Client
	logger     *zap.Logger
}

// NewFCMSender создаёт отправителя для проекта projectID. privateKeyPEM —
// PEM-ключ сервисного аккаунта (PKCS8), clientEmail — его email.
func NewFCMSender(clientEmail, privateKeyPEM, projectID string, logger *zap.Logger) (*FCMSender, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	return &FCMSender{
		clientEmail: clientEmail,
		privateKey:  key,
		projectID:   projectID,
		tokenURL:    googleTokenURL,
		sendURL:     fmt.Sprintf(fcmSendURL, projectID),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// mintAccessToken подписывает JWT-утверждение ключом сервисного аккаунта и
// обменивает его на bearer-токен по гранту jwt-bearer. Токен живёт один
// вызов Push и нигде не кешируется.
func (s *FCMSender) mintAccessToken(ctx context.Context) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.clientEmail,
		"scope": fcmScope,
		"aud":   s.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange assertion: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, body)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access_token")
	}

	return tokenResp.AccessToken, nil
}

type fcmMessage struct {
	Message struct {
		Token        string `json:"token"`
		Notification struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"notification"`
		Data map[string]string `json:"data,omitempty"`
	} `json:"message"`
}

// Push получает свежий access token и рассылает уведомление по токенам с
// ограниченным веером. Неудачная доставка на токен логируется и учитывается
// только в счётчиках; токены из реестра при этом не удаляются.
func (s *FCMSender) Push(ctx context.Context, tokens []string, msg Message) (Report, error) {
	if len(tokens) == 0 {
		return Report{}, nil
	}

	accessToken, err := s.mintAccessToken(ctx)
	if err != nil {
		return Report{}, err
	}

	var delivered atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for _, token := range tokens {
		token := token
		g.Go(func() error {
			if err := s.send(ctx, accessToken, token, msg); err != nil {
				s.logger.Warn("fcm delivery failed", zap.Error(err))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	return Report{
		Attempted: len(tokens),
		Delivered: int(delivered.Load()),
	}, nil
}

func (s *FCMSender) send(ctx context.Context, accessToken, deviceToken string, msg Message) error {
	var payload fcmMessage
	payload.Message.Token = deviceToken
	payload.Message.Notification.Title = msg.Title
	payload.Message.Notification.Body = msg.Body
	payload.Message.Data = msg.Data

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fcm status %d", resp.StatusCode)
	}

	return nil
}
