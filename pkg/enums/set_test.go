package enums

import "testing"

func TestParseModes(t *testing.T) {
	role, err := ParseUserRole("  Merchant ")
	if err != nil || role != UserRoleMerchant {
		t.Fatalf("expected lenient role parse, got %q %v", role, err)
	}
	if _, err := ParseOutboxEventType("Seals_Applied"); err == nil {
		t.Fatal("stored event types must match exactly")
	}
	if kind, err := ParseSealTransactionKind("welcome"); err != nil || kind != SealKindWelcome {
		t.Fatalf("unexpected kind %q %v", kind, err)
	}
}

func TestParseErrorNamesTheEnum(t *testing.T) {
	_, err := ParseSealShape("triangle")
	if err == nil || err.Error() != `invalid seal shape "triangle"` {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestIsValid(t *testing.T) {
	if !EventLedgerDeactivated.IsValid() || OutboxEventType("order_created").IsValid() {
		t.Fatal("event type validity mismatch")
	}
	if !BusinessCategoryCafe.IsValid() || BusinessCategory("Cafe").IsValid() {
		t.Fatal("IsValid must be exact")
	}
}

func TestSealKindForDelta(t *testing.T) {
	if SealKindForDelta(2) != SealKindGrant || SealKindForDelta(-1) != SealKindRemoval {
		t.Fatal("unexpected kind for delta")
	}
}
