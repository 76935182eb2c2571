package billing

import (
	"encoding/json"
	"testing"
	"time"
)

func mustEvent(t *testing.T, raw string) *Event {
	t.Helper()
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("Failed to unmarshal fixture: %v", err)
	}
	return &event
}

func TestParseSubscriptionUpdate_SubscriptionLifecycle(t *testing.T) {
	t.Parallel()

	event := mustEvent(t, `{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"status": "active",
			"current_period_start": 1700000000,
			"current_period_end": 1702592000,
			"metadata": {"user_id": "provider-1"},
			"items": {"data": [{"price": {"id": "price_pro"}}]}
		}}
	}`)

	update, err := ParseSubscriptionUpdate(event)
	if err != nil {
		t.Fatalf("ParseSubscriptionUpdate() error = %v", err)
	}
	if update == nil {
		t.Fatal("Expected an update")
	}
	if update.UserID != "provider-1" || update.SubscriptionID != "sub_1" {
		t.Errorf("Unexpected identity: %+v", update)
	}
	if update.Plan != "price_pro" {
		t.Errorf("Expected plan from the first line item price, got %q", update.Plan)
	}
	if update.Status != "active" {
		t.Errorf("Expected active status, got %q", update.Status)
	}
	if !update.CurrentPeriodStart.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Errorf("Unexpected period start: %v", update.CurrentPeriodStart)
	}
}

func TestParseSubscriptionUpdate_CheckoutCompleted(t *testing.T) {
	t.Parallel()

	event := mustEvent(t, `{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"client_reference_id": "provider-2",
			"subscription": "sub_9",
			"status": "complete"
		}}
	}`)

	update, err := ParseSubscriptionUpdate(event)
	if err != nil {
		t.Fatalf("ParseSubscriptionUpdate() error = %v", err)
	}
	if update == nil {
		t.Fatal("Expected an update")
	}
	if update.UserID != "provider-2" || update.SubscriptionID != "sub_9" {
		t.Errorf("Unexpected identity: %+v", update)
	}
	if update.Status != "active" {
		t.Errorf("Expected active status for a completed checkout, got %q", update.Status)
	}
}

func TestParseSubscriptionUpdate_CheckoutWithoutSubscriptionSkipped(t *testing.T) {
	t.Parallel()

	event := mustEvent(t, `{
		"id": "evt_3",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "client_reference_id": "provider-3", "status": "complete"}}
	}`)

	update, err := ParseSubscriptionUpdate(event)
	if err != nil {
		t.Fatalf("ParseSubscriptionUpdate() error = %v", err)
	}
	if update != nil {
		t.Errorf("Expected one-time checkouts to be skipped, got %+v", update)
	}
}

func TestParseSubscriptionUpdate_UntrackedType(t *testing.T) {
	t.Parallel()

	event := mustEvent(t, `{"id":"evt_4","type":"invoice.paid","data":{"object":{}}}`)

	update, err := ParseSubscriptionUpdate(event)
	if err != nil {
		t.Fatalf("ParseSubscriptionUpdate() error = %v", err)
	}
	if update != nil {
		t.Errorf("Expected nil for an untracked type, got %+v", update)
	}
}

func TestParseSubscriptionUpdate_MissingSubscriptionID(t *testing.T) {
	t.Parallel()

	event := mustEvent(t, `{
		"id": "evt_5",
		"type": "customer.subscription.created",
		"data": {"object": {"status": "active"}}
	}`)

	if _, err := ParseSubscriptionUpdate(event); err == nil {
		t.Error("Expected an error for a subscription event without an id")
	}
}
