// Package woo предоставляет клиент REST API WooCommerce.
package woo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const apiPrefix = "/wp-json/wc/v3/"

// UpstreamError описывает неуспешный ответ WooCommerce: статус и сырое тело.
// Обработчики маршрутов оборачивают его в JSON-ответ вместо HTTP-ошибки,
// поэтому тело сохраняется дословно.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("woocommerce status %d: %s", e.Status, e.Message)
}

// Client инкапсулирует HTTP-взаимодействие с магазином WooCommerce.
// Аутентификация — пара consumer key/secret в query-параметрах запроса.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
}

// New создаёт клиент для магазина по адресу baseURL с указанной парой ключей.
func New(baseURL, consumerKey, consumerSecret string) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		// Собственный таймаут не задаём: запрос живёт, пока жив контекст вызова.
		httpClient: &http.Client{},
	}
}

// BuildURL собирает адрес запроса к API магазина, добавляя ключи в query.
// Разделитель выбирается по наличию '?' в переданном фрагменте.
func (c *Client) BuildURL(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return c.baseURL + apiPrefix + endpoint +
		sep + "consumer_key=" + c.consumerKey + "&consumer_secret=" + c.consumerSecret
}

// Get выполняет один GET-запрос к API магазина. Ответ с кодом вне 2xx
// возвращается как *UpstreamError, без повторов и без паники.
func (c *Client) Get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BuildURL(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: string(body)}
	}

	return json.RawMessage(body), nil
}

// Update выполняет один PUT-запрос с JSON-телом. Текст ответа разбирается как
// JSON; если разбор не удался, возвращается *UpstreamError с сырым текстом.
func (c *Client) Update(ctx context.Context, endpoint string, body json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BuildURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if !json.Valid(text) {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: string(text)}
	}

	return json.RawMessage(text), nil
}
