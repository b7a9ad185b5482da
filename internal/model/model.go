// Package model содержит доменные сущности сервиса wooadmin.
package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Tenant представляет аккаунт администратора магазина с его ключами WooCommerce.
type Tenant struct {
	ID           int64
	Email        string
	PasswordHash []byte
	WooURL       string
	WooKey       string
	WooSecret    string
	CreatedAt    time.Time
}

// LooseString принимает из JSON как строку, так и число.
// WooCommerce отдаёт total строкой, а вебхуки магазинов — иногда числом.
type LooseString string

// UnmarshalJSON реализует десериализацию строки или числа в строковое значение.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	}
	*s = LooseString(data)
	return nil
}

// MarshalJSON сериализует значение обратно строкой.
func (s LooseString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// Billing содержит платёжные реквизиты заказа WooCommerce.
type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	State     string `json:"state"`
}

// Order описывает заказ WooCommerce. Запись внешняя и не изменяется сервисом.
type Order struct {
	ID          json.Number `json:"id"`
	Total       LooseString `json:"total"`
	DateCreated string      `json:"date_created"`
	Billing     Billing     `json:"billing"`
}

// Customer — агрегат покупателя, выведенный из истории заказов.
// Ключом служит телефон, а при его отсутствии — email.
type Customer struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	TotalOrders   int     `json:"totalOrders"`
	TotalSpent    float64 `json:"totalSpent"`
	LastOrderDate string  `json:"lastOrderDate"`
}
