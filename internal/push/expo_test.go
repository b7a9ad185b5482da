package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestExpoSender_Push(t *testing.T) {
	var mu sync.Mutex
	var received []expoMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg expoMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer srv.Close()

	s := NewExpoSender(zap.NewNop())
	s.pushURL = srv.URL

	report, err := s.Push(context.Background(), []string{"ExponentPushToken[a]", "ExponentPushToken[b]"}, Message{
		Title: "New Order #5",
		Body:  "₹100 from Customer",
		Data:  map[string]string{"orderId": "5"},
	})
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if report.Attempted != 2 || report.Delivered != 2 {
		t.Fatalf("report = %+v, want 2/2", report)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d messages, want 2", len(received))
	}
	if received[0].Title != "New Order #5" {
		t.Fatalf("title = %q", received[0].Title)
	}
}

func TestExpoSender_CountsFailedDeliveries(t *testing.T) {
	// Expo-вариант не проверяет статус доставки: счётчики равны числу токенов
	// даже при ошибочных ответах сервиса.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewExpoSender(zap.NewNop())
	s.pushURL = srv.URL

	report, err := s.Push(context.Background(), []string{"tok"}, Message{Title: "t"})
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if report.Attempted != 1 || report.Delivered != 1 {
		t.Fatalf("report = %+v, want 1/1", report)
	}
}
