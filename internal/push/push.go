// Package push реализует доставку push-уведомлений через FCM и Expo.
package push

import "context"

// Message описывает содержимое уведомления.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Report содержит итоги рассылки. Attempted — число попыток отправки
// (по одной на токен), Delivered — число подтверждённых доставок.
// Счётчики намеренно раздельные: разные маршруты отчитываются разными числами.
type Report struct {
	Attempted int
	Delivered int
}

// Sender рассылает уведомление по списку токенов устройств.
// Ошибка доставки на отдельный токен не прерывает рассылку и не
// возвращается вызывающему; ошибка самого Sender (например, невозможность
// получить access token) — возвращается.
type Sender interface {
	Push(ctx context.Context, tokens []string, msg Message) (Report, error)
}

// Предел одновременных отправок при рассылке: список токенов не ограничен,
// поэтому веер держится фиксированным.
const fanOutLimit = 8
