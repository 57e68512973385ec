package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfirmSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/confirm" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		user, _, ok := r.BasicAuth()
		if !ok || user != "sk_test_key" {
			t.Fatalf("expected basic auth with secret key, got %q", user)
		}
		var input ConfirmInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if input.Amount != 15000 {
			t.Fatalf("unexpected amount %d", input.Amount)
		}
		_ = json.NewEncoder(w).Encode(ConfirmResult{Status: "DONE", OrderID: input.OrderID})
	}))
	defer server.Close()

	client := New(server.URL, "sk_test_key")
	result, err := client.Confirm(context.Background(), ConfirmInput{
		PaymentKey: "pay-key",
		OrderID:    "order-1",
		Amount:     15000,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Status != "DONE" || result.OrderID != "order-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestConfirmProviderFailureSurfacedVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"INVALID_CARD","message":"card declined"}`))
	}))
	defer server.Close()

	client := New(server.URL, "sk_test_key")
	_, err := client.Confirm(context.Background(), ConfirmInput{PaymentKey: "k", OrderID: "o", Amount: 1})
	if err == nil {
		t.Fatal("expected provider failure")
	}
	if !strings.Contains(err.Error(), "INVALID_CARD") || !strings.Contains(err.Error(), "card declined") {
		t.Fatalf("provider error not surfaced verbatim: %v", err)
	}
}
