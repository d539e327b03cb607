package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestOrderRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		quantity string
		filled   string
		want     string
	}{
		{"untouched", "10", "0", "10"},
		{"partially filled", "10", "4", "6"},
		{"fully filled", "10", "10", "0"},
	}

	for _, tt := range tests {
		o := &Order{
			Quantity: decimal.RequireFromString(tt.quantity),
			Filled:   decimal.RequireFromString(tt.filled),
		}
		if got := o.Remaining(); !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s: Remaining() = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestOrderIsResting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status OrderStatus
		filled string
		want   bool
	}{
		{"new with full remaining", New, "0", true},
		{"partially filled with remaining", PartiallyFilled, "5", true},
		{"filled leaves nothing resting", Filled, "10", false},
		{"canceled never rests", Canceled, "0", false},
		{"rejected never rests", Rejected, "0", false},
	}

	for _, tt := range tests {
		o := &Order{
			Status:   tt.status,
			Quantity: decimal.RequireFromString("10"),
			Filled:   decimal.RequireFromString(tt.filled),
		}
		if got := o.IsResting(); got != tt.want {
			t.Errorf("%s: IsResting() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOrderIsStop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind OrderKind
		want bool
	}{
		{Limit, false},
		{Market, false},
		{StopLoss, true},
		{TakeProfit, true},
	}

	for _, tt := range tests {
		o := &Order{Kind: tt.kind}
		if got := o.IsStop(); got != tt.want {
			t.Errorf("Order{Kind: %v}.IsStop() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestSideOpposite(t *testing.T) {
	t.Parallel()

	if Buy.Opposite() != Sell {
		t.Errorf("Buy.Opposite() = %v, want Sell", Buy.Opposite())
	}
	if Sell.Opposite() != Buy {
		t.Errorf("Sell.Opposite() = %v, want Buy", Sell.Opposite())
	}
}

func TestNewOrderDefaults(t *testing.T) {
	t.Parallel()

	o := NewOrder("BTCUSD", Buy, Limit, decimal.RequireFromString("50000"), decimal.RequireFromString("1"), "client-1")

	if o.ID == uuid.Nil {
		t.Fatal("NewOrder did not assign an ID")
	}
	if o.Status != New {
		t.Errorf("Status = %v, want New", o.Status)
	}
	if !o.Filled.IsZero() {
		t.Errorf("Filled = %s, want 0", o.Filled)
	}
	if !o.Remaining().Equal(o.Quantity) {
		t.Errorf("Remaining() = %s, want %s", o.Remaining(), o.Quantity)
	}
}
