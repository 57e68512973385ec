package store

import (
	"testing"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/models"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		orderType string
		from      string
		to        string
		valid     bool
	}{
		{models.TypeStore, models.StatusReceived, models.StatusPreparing, true},
		{models.TypeStore, models.StatusPreparing, models.StatusDone, true},
		{models.TypeStore, models.StatusReceived, models.StatusCancelled, true},
		{models.TypeStore, models.StatusPreparing, models.StatusPaymentCancelled, true},
		{models.TypeStore, models.StatusReceived, models.StatusDone, false},
		{models.TypeStore, models.StatusDone, models.StatusPreparing, false},
		{models.TypeStore, models.StatusCancelled, models.StatusReceived, false},
		{models.TypeStore, models.StatusPreparing, models.StatusReceived, false},
		{models.TypeDelivery, models.StatusReceived, models.StatusPreparing, true},
		{models.TypeDelivery, models.StatusDone, models.StatusCancelled, false},
		{models.TypeReserve, models.StatusUnpaid, models.StatusReceived, true},
		{models.TypeReserve, models.StatusUnpaid, models.StatusCancelled, true},
		{models.TypeReserve, models.StatusUnpaid, models.StatusPreparing, false},
		{models.TypeReserve, models.StatusReceived, models.StatusPaymentCancelled, false},
		{models.TypeReserve, models.StatusPreparing, models.StatusDone, true},
		{models.TypeReserve, models.StatusDone, models.StatusReceived, false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.orderType, tt.from, tt.to); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q, %q)=%v, want %v", tt.orderType, tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestInitialStatus(t *testing.T) {
	if got := InitialStatus(models.TypeStore); got != models.StatusReceived {
		t.Fatalf("store initial status = %q", got)
	}
	if got := InitialStatus(models.TypeDelivery); got != models.StatusReceived {
		t.Fatalf("delivery initial status = %q", got)
	}
	if got := InitialStatus(models.TypeReserve); got != models.StatusUnpaid {
		t.Fatalf("reserve initial status = %q", got)
	}
}

func TestTerminalStatusesAreImmutable(t *testing.T) {
	terminals := []string{models.StatusDone, models.StatusCancelled, models.StatusPaymentCancelled}
	targets := []string{
		models.StatusUnpaid, models.StatusReceived, models.StatusPreparing,
		models.StatusDone, models.StatusCancelled, models.StatusPaymentCancelled,
	}
	for _, orderType := range []string{models.TypeStore, models.TypeDelivery, models.TypeReserve} {
		for _, terminal := range terminals {
			if !IsTerminal(orderType, terminal) {
				t.Fatalf("%s %q should be terminal", orderType, terminal)
			}
			for _, to := range targets {
				if ValidTransition(orderType, terminal, to) {
					t.Fatalf("%s allows %q -> %q", orderType, terminal, to)
				}
			}
		}
	}
}

func TestAllowedFrom(t *testing.T) {
	from := AllowedFrom(models.TypeStore, models.StatusCancelled)
	if len(from) != 2 {
		t.Fatalf("expected 2 source statuses for store cancellation, got %v", from)
	}
	from = AllowedFrom(models.TypeReserve, models.StatusReceived)
	if len(from) != 1 || from[0] != models.StatusUnpaid {
		t.Fatalf("reserve %q should only follow %q, got %v", models.StatusReceived, models.StatusUnpaid, from)
	}
	if from := AllowedFrom(models.TypeStore, models.StatusReceived); len(from) != 0 {
		t.Fatalf("nothing may regress to %q, got %v", models.StatusReceived, from)
	}
}
