package models

import (
	"errors"
	"testing"
)

func TestParseEventOrderStatus(t *testing.T) {
	raw := []byte(`{"type":"order_status","store_id":"s-1","order_id":"o-9","status":"delivered","driver_id":"d-2","delivered_at":"2026-04-01T12:00:00Z"}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ev.Type != "order_status" || ev.OrderID != "o-9" || ev.Status != "delivered" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.DeliveredAt == nil || ev.DeliveredAt.Time.IsZero() {
		t.Fatalf("delivered_at not parsed: %+v", ev.DeliveredAt)
	}
}

func TestParseEventEmbeddedOrder(t *testing.T) {
	raw := []byte(`{"type":"order_created","order":{"id":"o-10","store_id":"s-2","status":"pending","price":"12.00"}}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ev.Order == nil || ev.Order.ID != "o-10" {
		t.Fatalf("embedded order not parsed: %+v", ev.Order)
	}
	if got := ev.EffectiveStoreID(); got != "s-2" {
		t.Fatalf("effective store id should fall back to embedded order: %s", got)
	}
	if got := ev.EffectiveOrderID(); got != "o-10" {
		t.Fatalf("effective order id should fall back to embedded order: %s", got)
	}
}

func TestParseEventMalformed(t *testing.T) {
	for _, raw := range []string{`not json`, `{"status":"pending"}`, `{"type":"  "}`, `[1,2,3]`} {
		if _, err := ParseEvent([]byte(raw)); !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("ParseEvent(%s): expected ErrMalformedEvent, got %v", raw, err)
		}
	}
}

func TestSubscriptionKeyQuery(t *testing.T) {
	if got := StoreKey("s-1").Query().Encode(); got != "store_id=s-1" {
		t.Fatalf("store key query: %s", got)
	}
	if got := AdminKey("ac-9").Query().Encode(); got != "admin_code=ac-9" {
		t.Fatalf("admin key query: %s", got)
	}
	if !(SubscriptionKey{}).IsZero() {
		t.Fatalf("empty key should be zero")
	}
	if len((SubscriptionKey{}).Query()) != 0 {
		t.Fatalf("zero key should produce no query params")
	}
}
