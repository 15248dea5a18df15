package enums

import "testing"

func TestParseOrderStatusAcceptsAliases(t *testing.T) {
	cases := map[string]OrderStatus{
		"pending":            OrderStatusPending,
		" In_Transit ":       OrderStatusInTransit,
		"assigned_to_driver": OrderStatusAssigned,
		"in_delivery_route":  OrderStatusInDelivery,
	}
	for raw, want := range cases {
		got, err := ParseOrderStatus(raw)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseOrderStatus(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}

func TestOrderStatusTerminalAndIntake(t *testing.T) {
	for _, status := range OrderStatuses() {
		terminal := status == OrderStatusDelivered || status == OrderStatusCancelled
		if status.IsTerminal() != terminal {
			t.Fatalf("unexpected IsTerminal for %s", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusCODPending, OrderStatusProcessing, OrderStatusConfirmed, OrderStatusCancelled} {
		if status.IntakeStarted() {
			t.Fatalf("%s should not count as intake started", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusReceivedAtWarehouse, OrderStatusClassified, OrderStatusAssigned, OrderStatusPickedUp, OrderStatusInDelivery, OrderStatusDelivered} {
		if !status.IntakeStarted() {
			t.Fatalf("%s should count as intake started", status)
		}
	}
}

func TestShipperTokenMappingIsTotal(t *testing.T) {
	for _, token := range ShipperStatusTokens() {
		status := token.OrderStatus()
		if !status.IsValid() {
			t.Fatalf("token %s mapped to invalid status %q", token, status)
		}
	}
	token, err := ParseShipperStatusToken(" delivering ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.OrderStatus() != OrderStatusInTransit {
		t.Fatalf("DELIVERING should map to in_transit, got %s", token.OrderStatus())
	}
	if _, err := ParseShipperStatusToken("TELEPORTED"); err == nil {
		t.Fatalf("expected unknown token to be rejected")
	}
}

func TestShipperTokenValidity(t *testing.T) {
	for _, token := range ShipperStatusTokens() {
		if !token.IsValid() {
			t.Fatalf("token %s should be valid", token)
		}
		if token.String() != string(token) {
			t.Fatalf("String should return the raw token, got %s", token.String())
		}
	}
	if ShipperStatusToken("delivered").IsValid() {
		t.Fatalf("lowercase tokens are only accepted through ParseShipperStatusToken")
	}
}

func TestTransactionStatusAgreement(t *testing.T) {
	cases := map[TransactionStatus]PaymentStatus{
		TransactionStatusPending:   PaymentStatusPending,
		TransactionStatusSucceeded: PaymentStatusPaid,
		TransactionStatusFailed:    PaymentStatusFailed,
		TransactionStatusCancelled: PaymentStatusCancelled,
		TransactionStatusExpired:   PaymentStatusExpired,
	}
	for tx, want := range cases {
		if got := tx.PaymentStatus(); got != want {
			t.Fatalf("%s.PaymentStatus() = %s, want %s", tx, got, want)
		}
	}
	if TransactionStatusPending.IsResolved() {
		t.Fatalf("pending is not resolved")
	}
	if !TransactionStatusExpired.IsResolved() {
		t.Fatalf("expired is resolved")
	}
}

func TestGatewayStatusMapping(t *testing.T) {
	status, err := ParseGatewayStatus("SUCCESS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.TransactionStatus() != TransactionStatusSucceeded {
		t.Fatalf("unexpected mapping %s", status.TransactionStatus())
	}
	if GatewayStatusCancelled.TransactionStatus() != TransactionStatusCancelled {
		t.Fatalf("cancelled should map to cancelled")
	}
	if _, err := ParseGatewayStatus("refunded"); err == nil {
		t.Fatalf("expected unknown gateway status to fail")
	}
}

func TestRoleHelpers(t *testing.T) {
	if !RoleAdmin.IsStaff() || !RoleIntakeStaff.IsStaff() {
		t.Fatalf("admin and intake staff are staff")
	}
	if RoleCustomer.IsStaff() || RoleShipper.IsStaff() {
		t.Fatalf("customer and shipper are not staff")
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatalf("expected invalid role")
	}
}
