package types

import "testing"

func TestBillingAddressScan(t *testing.T) {
	var addr BillingAddress
	if err := addr.Scan(`{"line1":"1 Main St","city":"Austin","country":"US"}`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if addr.City != "Austin" || addr.Country != "US" {
		t.Fatalf("unexpected address %+v", addr)
	}

	if err := addr.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if addr != (BillingAddress{}) {
		t.Fatalf("expected zero address after nil scan, got %+v", addr)
	}

	if err := addr.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestBillingAddressValueNil(t *testing.T) {
	var addr *BillingAddress
	v, err := addr.Value()
	if err != nil || v != nil {
		t.Fatalf("expected nil value, got %v %v", v, err)
	}
}
