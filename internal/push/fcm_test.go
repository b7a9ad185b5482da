package push

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testKeyPEM(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func newTestFCMSender(t *testing.T, tokenURL, sendURL string) *FCMSender {
	t.Helper()

	s, err := NewFCMSender("svc@project.iam.gserviceaccount.com", testKeyPEM(t), "project", zap.NewNop())
	if err != nil {
		t.Fatalf("NewFCMSender: %v", err)
	}
	s.tokenURL = tokenURL
	s.sendURL = sendURL
	return s
}

func TestFCMSender_MintsAssertionAndDelivers(t *testing.T) {
	var assertion string

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != jwtBearerGrant {
			t.Fatalf("grant_type = %q", got)
		}
		assertion = r.PostForm.Get("assertion")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	var mu sync.Mutex
	var sentTokens []string

	fcmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer at-123" {
			t.Fatalf("authorization = %q", auth)
		}

		var payload fcmMessage
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if payload.Message.Notification.Title != "Test Notification" {
			t.Fatalf("title = %q", payload.Message.Notification.Title)
		}

		mu.Lock()
		sentTokens = append(sentTokens, payload.Message.Token)
		mu.Unlock()

		_, _ = w.Write([]byte(`{"name":"projects/project/messages/1"}`))
	}))
	defer fcmSrv.Close()

	s := newTestFCMSender(t, tokenSrv.URL, fcmSrv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report, err := s.Push(ctx, []string{"tok-a", "tok-b"}, Message{
		Title: "Test Notification",
		Body:  "Your FCM setup is working! 🎉",
		Data:  map[string]string{"type": "test"},
	})
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if report.Attempted != 2 || report.Delivered != 2 {
		t.Fatalf("report = %+v, want 2/2", report)
	}

	mu.Lock()
	got := len(sentTokens)
	mu.Unlock()
	if got != 2 {
		t.Fatalf("sent %d messages, want 2", got)
	}

	// Утверждение — JWT из трёх сегментов с заголовком {alg:RS256, typ:JWT}.
	segments := strings.Split(assertion, ".")
	if len(segments) != 3 {
		t.Fatalf("assertion has %d segments, want 3", len(segments))
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(segments[0])
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	var header struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if header.Alg != "RS256" || header.Typ != "JWT" {
		t.Fatalf("header = %+v", header)
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	var claims struct {
		Iss   string `json:"iss"`
		Scope string `json:"scope"`
		Aud   string `json:"aud"`
	}
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		t.Fatalf("unmarshal claims: %v", err)
	}
	if claims.Iss != "svc@project.iam.gserviceaccount.com" {
		t.Fatalf("iss = %q", claims.Iss)
	}
	if claims.Scope != fcmScope {
		t.Fatalf("scope = %q", claims.Scope)
	}
	if claims.Aud != tokenSrv.URL {
		t.Fatalf("aud = %q, want %q", claims.Aud, tokenSrv.URL)
	}
}

func TestFCMSender_PerTokenFailureDoesNotAbort(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"at"}`))
	}))
	defer tokenSrv.Close()

	fcmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload fcmMessage
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if payload.Message.Token == "dead" {
			http.Error(w, "UNREGISTERED", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer fcmSrv.Close()

	s := newTestFCMSender(t, tokenSrv.URL, fcmSrv.URL)

	report, err := s.Push(context.Background(), []string{"dead", "alive", "alive-2"}, Message{Title: "t"})
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if report.Attempted != 3 {
		t.Fatalf("Attempted = %d, want 3", report.Attempted)
	}
	if report.Delivered != 2 {
		t.Fatalf("Delivered = %d, want 2", report.Delivered)
	}
}

func TestFCMSender_TokenExchangeFailurePropagates(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer tokenSrv.Close()

	s := newTestFCMSender(t, tokenSrv.URL, "http://unused.invalid")

	_, err := s.Push(context.Background(), []string{"tok"}, Message{Title: "t"})
	if err == nil {
		t.Fatalf("expected error from token exchange")
	}
	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Fatalf("err = %v", err)
	}
}

func TestFCMSender_EmptyTokenList(t *testing.T) {
	// Пустой список не должен ходить ни за токеном, ни в FCM.
	s := newTestFCMSender(t, "http://unused.invalid", "http://unused.invalid")

	report, err := s.Push(context.Background(), nil, Message{Title: "t"})
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if report.Attempted != 0 || report.Delivered != 0 {
		t.Fatalf("report = %+v, want zero", report)
	}
}

func TestNewFCMSender_BadKey(t *testing.T) {
	_, err := NewFCMSender("svc@example.com", "not a pem", "project", zap.NewNop())
	if err == nil {
		t.Fatalf("expected error for invalid PEM")
	}
}
