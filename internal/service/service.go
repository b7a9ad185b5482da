// Package service реализует бизнес-логику сервиса wooadmin.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/wooadmin-system/internal/customer"
	"github.com/mmeshcher/wooadmin-system/internal/model"
	"github.com/mmeshcher/wooadmin-system/internal/push"
	"github.com/mmeshcher/wooadmin-system/internal/repository"
	"github.com/mmeshcher/wooadmin-system/internal/woo"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль или
// недействительной сессии.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginUnavailable возвращается в однопользовательском режиме, где хранилища арендаторов нет.
	ErrLoginUnavailable = errors.New("login unavailable without tenant store")
	// ErrPushDisabled возвращается, если рассылка уведомлений не сконфигурирована.
	ErrPushDisabled = errors.New("push notifications are not configured")
	// ErrNoTokens возвращается, если в реестре нет ни одного токена.
	ErrNoTokens = errors.New("no tokens stored")
)

// Repository описывает контракт хранилища арендаторов, используемый сервисом.
type Repository interface {
	Close() error
	GetTenantByEmail(ctx context.Context, email string) (*model.Tenant, error)
	GetTenantByID(ctx context.Context, id int64) (*model.Tenant, error)
}

// TokenRegistry описывает контракт реестра push-токенов.
type TokenRegistry interface {
	Put(ctx context.Context, token string) error
	List(ctx context.Context) ([]string, error)
}

// Credentials — тройка доступа к магазину WooCommerce для
// однопользовательского режима.
type Credentials struct {
	URL    string
	Key    string
	Secret string
}

// Service содержит бизнес-логику сервиса wooadmin. При непустом repo сервис
// многопользовательский: ключи магазина берутся из строки арендатора. Иначе
// используется фиксированная тройка creds.
type Service struct {
	repo     Repository
	registry TokenRegistry
	sender   push.Sender
	creds    Credentials
	logger   *zap.Logger
}

// NewService создаёт сервис. repo, registry и sender могут быть nil —
// соответствующие операции тогда отвечают ошибкой конфигурации.
func NewService(repo Repository, registry TokenRegistry, sender push.Sender, creds Credentials, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		sender:   sender,
		creds:    creds,
		logger:   logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Login проверяет пару email/пароль по bcrypt-хешу арендатора.
func (s *Service) Login(ctx context.Context, email, password string) (int64, error) {
	if s.repo == nil {
		return 0, ErrLoginUnavailable
	}

	t, err := s.repo.GetTenantByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword(t.PasswordHash, []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}

	return t.ID, nil
}

// clientFor разрешает ключи магазина для арендатора и строит клиент WooCommerce.
func (s *Service) clientFor(ctx context.Context, tenantID int64) (*woo.Client, error) {
	if s.repo == nil {
		return woo.New(s.creds.URL, s.creds.Key, s.creds.Secret), nil
	}

	t, err := s.repo.GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return woo.New(t.WooURL, t.WooKey, t.WooSecret), nil
}

// Products возвращает список товаров магазина арендатора.
func (s *Service) Products(ctx context.Context, tenantID int64) (json.RawMessage, error) {
	c, err := s.clientFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, "products?per_page=100")
}

// UpdateProduct обновляет товар переданным JSON-телом.
func (s *Service) UpdateProduct(ctx context.Context, tenantID int64, productID string, body json.RawMessage) (json.RawMessage, error) {
	c, err := s.clientFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.Update(ctx, "products/"+productID, body)
}

// Orders возвращает список заказов магазина арендатора.
func (s *Service) Orders(ctx context.Context, tenantID int64) (json.RawMessage, error) {
	c, err := s.clientFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, "orders?per_page=100&status=any")
}

// Order возвращает один заказ по идентификатору.
func (s *Service) Order(ctx context.Context, tenantID int64, orderID string) (json.RawMessage, error) {
	c, err := s.clientFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, "orders/"+orderID)
}

// Customers строит агрегаты покупателей по полному списку заказов арендатора.
func (s *Service) Customers(ctx context.Context, tenantID int64) ([]model.Customer, error) {
	orders, err := s.fetchOrders(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return customer.Aggregate(orders), nil
}

// CustomerOrders возвращает заказы покупателя с указанным email или телефоном.
// Идентификатор нормализуется (обрезка, нижний регистр) перед сравнением.
func (s *Service) CustomerOrders(ctx context.Context, tenantID int64, identifier string) ([]model.Order, error) {
	orders, err := s.fetchOrders(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	return customer.FilterByIdentifier(orders, identifier), nil
}

func (s *Service) fetchOrders(ctx context.Context, tenantID int64) ([]model.Order, error) {
	raw, err := s.Orders(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var orders []model.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

// SaveToken регистрирует push-токен устройства.
func (s *Service) SaveToken(ctx context.Context, token string) error {
	if s.registry == nil {
		return ErrPushDisabled
	}
	return s.registry.Put(ctx, token)
}

// NotifyOrderCreated рассылает уведомление о новом заказе по всем токенам.
// Отчёт считает попытки: так ведёт себя маршрут order-created.
func (s *Service) NotifyOrderCreated(ctx context.Context, order model.Order) (push.Report, error) {
	first := order.Billing.FirstName
	if first == "" {
		first = "Customer"
	}
	total := string(order.Total)
	if total == "" {
		total = "0"
	}
	orderID := order.ID.String()

	return s.notifyAll(ctx, push.Message{
		Title: "New Order #" + orderID,
		Body:  "₹" + total + " from " + first,
		Data:  map[string]string{"orderId": orderID},
	})
}

// SendTestNotification рассылает проверочное уведомление. Возвращает отчёт и
// общее число токенов; при пустом реестре — ErrNoTokens.
func (s *Service) SendTestNotification(ctx context.Context) (push.Report, int, error) {
	if s.registry == nil || s.sender == nil {
		return push.Report{}, 0, ErrPushDisabled
	}

	tokens, err := s.registry.List(ctx)
	if err != nil {
		return push.Report{}, 0, err
	}
	if len(tokens) == 0 {
		return push.Report{}, 0, ErrNoTokens
	}

	report, err := s.sender.Push(ctx, tokens, push.Message{
		Title: "Test Notification",
		Body:  "Your FCM setup is working! 🎉",
		Data:  map[string]string{"type": "test"},
	})
	if err != nil {
		return push.Report{}, len(tokens), err
	}

	return report, len(tokens), nil
}

func (s *Service) notifyAll(ctx context.Context, msg push.Message) (push.Report, error) {
	if s.registry == nil || s.sender == nil {
		return push.Report{}, ErrPushDisabled
	}

	tokens, err := s.registry.List(ctx)
	if err != nil {
		return push.Report{}, err
	}
	if len(tokens) == 0 {
		return push.Report{}, nil
	}

	return s.sender.Push(ctx, tokens, msg)
}
