// Package customer реализует агрегацию покупателей по истории заказов.
package customer

import (
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/wooadmin-system/internal/model"
)

// Форматы дат, которые отдаёт WooCommerce: с зоной и без.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Aggregate сворачивает список заказов в список покупателей за один проход.
// Ключ покупателя — телефон из платёжных реквизитов, при его отсутствии — email;
// заказы без того и другого молча пропускаются. Порядок результата — порядок
// первого появления ключа. Значения ключей не нормализуются: различие в регистре
// или пробелах даёт отдельные записи.
func Aggregate(orders []model.Order) []model.Customer {
	byKey := make(map[string]*model.Customer, len(orders))
	keys := make([]string, 0, len(orders))

	for _, o := range orders {
		b := o.Billing
		key := b.Phone
		if key == "" {
			key = b.Email
		}
		if key == "" {
			continue
		}

		c, ok := byKey[key]
		if !ok {
			byKey[key] = &model.Customer{
				ID:            key,
				Name:          strings.TrimSpace(b.FirstName + " " + b.LastName),
				Email:         b.Email,
				Phone:         b.Phone,
				City:          b.City,
				State:         b.State,
				TotalOrders:   1,
				TotalSpent:    amountOrZero(string(o.Total)),
				LastOrderDate: o.DateCreated,
			}
			keys = append(keys, key)
			continue
		}

		c.TotalOrders++
		c.TotalSpent += amountOrZero(string(o.Total))
		if laterThan(o.DateCreated, c.LastOrderDate) {
			c.LastOrderDate = o.DateCreated
		}
	}

	res := make([]model.Customer, 0, len(keys))
	for _, key := range keys {
		res = append(res, *byKey[key])
	}
	return res
}

// FilterByIdentifier возвращает заказы, чей email или телефон совпадает с
// идентификатором. Идентификатор должен быть заранее нормализован вызывающей
// стороной (обрезан и приведён к нижнему регистру); сравнение строгое, без
// частичных совпадений. Порядок заказов сохраняется, ограничения на размер нет.
func FilterByIdentifier(orders []model.Order, identifier string) []model.Order {
	res := make([]model.Order, 0)
	for _, o := range orders {
		email := strings.ToLower(strings.TrimSpace(o.Billing.Email))
		phone := strings.ToLower(strings.TrimSpace(o.Billing.Phone))
		if email == identifier || phone == identifier {
			res = append(res, o)
		}
	}
	return res
}

// amountOrZero разбирает сумму заказа по правилу «число или ноль»:
// пустая или нечисловая строка даёт 0, а не ошибку.
func amountOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// laterThan сообщает, что кандидат строго позже сохранённой даты.
// Неразбираемая дата никогда не считается более поздней, поэтому при
// повреждённых датах остаётся дата первого заказа.
func laterThan(candidate, stored string) bool {
	ct, ok := parseDate(candidate)
	if !ok {
		return false
	}
	st, ok := parseDate(stored)
	if !ok {
		return false
	}
	return ct.After(st)
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
