package enums

import "testing"

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("ADMIN")
	if err != nil || role != UserRoleAdmin {
		t.Fatalf("expected ADMIN, got %q err=%v", role, err)
	}
	if _, err := ParseUserRole("admin"); err == nil {
		t.Fatal("role parsing is case sensitive")
	}
	if UserRole("ROOT").IsValid() {
		t.Fatal("unexpected valid role")
	}
}

func TestHistoryActionKinds(t *testing.T) {
	for _, action := range validHistoryActions {
		parsed, err := ParseHistoryAction(string(action))
		if err != nil || parsed != action {
			t.Fatalf("round trip failed for %q", action)
		}
	}
	if !HistoryActionDeposited.IsUserAction() {
		t.Fatal("deposits belong to user history")
	}
	if HistoryActionPurchased.IsUserAction() {
		t.Fatal("purchases belong to item history")
	}
	if _, err := ParseHistoryAction("refunded"); err == nil {
		t.Fatal("expected unknown action to fail")
	}
}
