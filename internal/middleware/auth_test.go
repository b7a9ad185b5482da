package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func authProbe(t *testing.T) (http.Handler, *int64) {
	t.Helper()

	var gotID int64 = -1
	a := NewAuthMiddleware("test-secret")
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetTenantIDFromContext(r.Context())
		if !ok {
			t.Fatalf("tenant id missing from context")
		}
		gotID = id
		w.WriteHeader(http.StatusOK)
	}))
	return h, &gotID
}

func TestAuthMiddleware_Cookie(t *testing.T) {
	a := NewAuthMiddleware("test-secret")
	h, gotID := authProbe(t)

	rec := httptest.NewRecorder()
	a.SetAuthCookie(rec, 42)
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.AddCookie(cookie)

	respRec := httptest.NewRecorder()
	h.ServeHTTP(respRec, req)

	if respRec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", respRec.Code)
	}
	if *gotID != 42 {
		t.Fatalf("tenant id = %d, want 42", *gotID)
	}
}

func TestAuthMiddleware_Header(t *testing.T) {
	a := NewAuthMiddleware("test-secret")
	h, gotID := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-Auth-Token", a.Token(7))

	respRec := httptest.NewRecorder()
	h.ServeHTTP(respRec, req)

	if respRec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", respRec.Code)
	}
	if *gotID != 7 {
		t.Fatalf("tenant id = %d, want 7", *gotID)
	}
}

func TestAuthMiddleware_RejectsUnsigned(t *testing.T) {
	h, _ := authProbe(t)

	tests := []struct {
		name  string
		value string
	}{
		{"нет токена", ""},
		{"голый идентификатор", "42"},
		{"подделанная подпись", "42.deadbeef"},
		{"не число", NewAuthMiddleware("test-secret").sign("abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			if tt.value != "" {
				req.Header.Set("X-Auth-Token", tt.value)
			}

			respRec := httptest.NewRecorder()
			h.ServeHTTP(respRec, req)

			if respRec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", respRec.Code)
			}
		})
	}
}

func TestAuthMiddleware_RejectsForeignSecret(t *testing.T) {
	other := NewAuthMiddleware("other-secret")
	h, _ := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-Auth-Token", other.Token(42))

	respRec := httptest.NewRecorder()
	h.ServeHTTP(respRec, req)

	if respRec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", respRec.Code)
	}
}

func TestToken_Format(t *testing.T) {
	a := NewAuthMiddleware("test-secret")
	token := a.Token(99)

	id, ok := a.parseToken(token)
	if !ok {
		t.Fatalf("own token must parse")
	}
	if id != 99 {
		t.Fatalf("id = %d, want 99", id)
	}
	if got := token[:len("99.")]; got != strconv.FormatInt(99, 10)+"." {
		t.Fatalf("token prefix = %q", got)
	}
}
