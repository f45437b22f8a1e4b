package env

import "testing"

func TestGetAndFirst(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_A", "")
	t.Setenv("STOREFRONT_TEST_B", " console ")

	if got := Get("STOREFRONT_TEST_A", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := First("STOREFRONT_TEST_A", "STOREFRONT_TEST_B"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
	if got := First("STOREFRONT_TEST_MISSING"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
