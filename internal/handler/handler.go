// Package handler содержит HTTP-обработчики API сервиса wooadmin.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/wooadmin-system/internal/middleware"
	"github.com/mmeshcher/wooadmin-system/internal/model"
	"github.com/mmeshcher/wooadmin-system/internal/push"
	"github.com/mmeshcher/wooadmin-system/internal/service"
	"github.com/mmeshcher/wooadmin-system/internal/woo"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Login(ctx context.Context, email, password string) (int64, error)
	Products(ctx context.Context, tenantID int64) (json.RawMessage, error)
	UpdateProduct(ctx context.Context, tenantID int64, productID string, body json.RawMessage) (json.RawMessage, error)
	Orders(ctx context.Context, tenantID int64) (json.RawMessage, error)
	Order(ctx context.Context, tenantID int64, orderID string) (json.RawMessage, error)
	Customers(ctx context.Context, tenantID int64) ([]model.Customer, error)
	CustomerOrders(ctx context.Context, tenantID int64, identifier string) ([]model.Order, error)
	SaveToken(ctx context.Context, token string) error
	NotifyOrderCreated(ctx context.Context, order model.Order) (push.Report, error)
	SendTestNotification(ctx context.Context) (push.Report, int, error)
}

// Handler реализует HTTP-обработчики API сервиса wooadmin.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// authMiddleware равен nil в однопользовательском режиме: тогда маршруты
// магазина открыты, а /login отвечает 503.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeProxy отвечает данными магазина или ошибкой. Неуспех WooCommerce
// заворачивается в тело ответа со статусом 200: клиент смотрит на поле error.
func (h *Handler) writeProxy(w http.ResponseWriter, r *http.Request, data json.RawMessage, err error) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, werr := w.Write(data); werr != nil {
			h.logger.Error("write response", zap.Error(werr))
		}
		return
	}

	var ue *woo.UpstreamError
	if errors.As(err, &ue) {
		h.writeJSON(w, http.StatusOK, map[string]any{
			"error":   true,
			"status":  ue.Status,
			"message": ue.Message,
		})
		return
	}

	if errors.Is(err, service.ErrInvalidCredentials) {
		h.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.logger.Error("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, err.Error())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию арендатора и выдаёт подписанный токен сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Email & password required")
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "Email & password required")
		return
	}

	tenantID, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrLoginUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, "Login is not available")
		default:
			h.logger.Error("login error", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := map[string]any{
		"success": true,
		"userId":  tenantID,
	}
	if h.authMiddleware != nil {
		h.authMiddleware.SetAuthCookie(w, tenantID)
		resp["token"] = h.authMiddleware.Token(tenantID)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Products возвращает список товаров магазина.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantIDFromContext(r.Context())
	data, err := h.service.Products(r.Context(), tenantID)
	h.writeProxy(w, r, data, err)
}

// UpdateProduct обновляет товар JSON-телом запроса.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantIDFromContext(r.Context())

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		h.writeError(w, http.StatusBadRequest, "JSON body required")
		return
	}

	data, err := h.service.UpdateProduct(r.Context(), tenantID, chi.URLParam(r, "id"), body)
	h.writeProxy(w, r, data, err)
}

// Orders возвращает список заказов магазина.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantIDFromContext(r.Context())
	data, err := h.service.Orders(r.Context(), tenantID)
	h.writeProxy(w, r, data, err)
}

// Order возвращает один заказ по идентификатору.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantIDFromContext(r.Context())
	data, err := h.service.Order(r.Context(), tenantID, chi.URLParam(r, "id"))
	h.writeProxy(w, r, data, err)
}

// Customers возвращает агрегаты покупателей, выведенные из истории заказов.
func (h *Handler) Customers(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantIDFromContext(r.Context())

	customers, err := h.service.Customers(r.Context(), tenantID)
	if err != nil {
		h.writeProxy(w, r, nil, err)
		return
	}

	h.writeJSON(w, http.StatusOK, customers)
}

// CustomerOrders возвращает заказы покупателя по его email или телефону.
func (h *Handler) CustomerOrders(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantIDFromContext(r.Context())

	orders, err := h.service.CustomerOrders(r.Context(), tenantID, chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeProxy(w, r, nil, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

type saveTokenRequest struct {
	FCMToken      string `json:"fcmToken"`
	ExpoPushToken string `json:"expoPushToken"`
}

// SaveToken регистрирует push-токен устройства.
func (h *Handler) SaveToken(w http.ResponseWriter, r *http.Request) {
	var req saveTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "fcmToken or expoPushToken is required")
		return
	}

	token := req.FCMToken
	if token == "" {
		token = req.ExpoPushToken
	}
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "fcmToken or expoPushToken is required")
		return
	}

	if err := h.service.SaveToken(r.Context(), token); err != nil {
		if errors.Is(err, service.ErrPushDisabled) {
			h.writeError(w, http.StatusServiceUnavailable, "Push notifications are not configured")
			return
		}
		h.logger.Error("save token error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// OrderCreated принимает вебхук нового заказа и рассылает уведомление по всем
// токенам. В ответе sent — число попыток отправки.
func (h *Handler) OrderCreated(w http.ResponseWriter, r *http.Request) {
	var order model.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		h.writeError(w, http.StatusBadRequest, "order payload required")
		return
	}

	report, err := h.service.NotifyOrderCreated(r.Context(), order)
	if err != nil {
		if errors.Is(err, service.ErrPushDisabled) {
			h.writeError(w, http.StatusServiceUnavailable, "Push notifications are not configured")
			return
		}
		h.logger.Error("order notification error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sent":    report.Attempted,
	})
}

// TestNotification рассылает проверочное уведомление по всем токенам.
// В ответе sent — число подтверждённых доставок, total — размер реестра.
func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	report, total, err := h.service.SendTestNotification(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoTokens):
			h.writeError(w, http.StatusNotFound, "No tokens stored")
		case errors.Is(err, service.ErrPushDisabled):
			h.writeError(w, http.StatusServiceUnavailable, "Push notifications are not configured")
		default:
			h.logger.Error("test notification error", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sent":    report.Delivered,
		"total":   total,
	})
}
