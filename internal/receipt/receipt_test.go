package receipt

import (
	"strings"
	"testing"
	"time"

	"quickconnect/internal/models"
)

func paidFixtures() (*models.Session, *models.Transaction) {
	sess := &models.Session{
		ID:               10,
		ProfessionalName: "Dr. Achieng",
		Category:         "legal",
		Type:             models.TypeVideo,
		State:            "paid",
	}
	tx := &models.Transaction{
		ID:       "tx-1",
		Amount:   2000,
		Currency: "KES",
		Method:   models.MethodMpesa,
	}
	return sess, tx
}

func TestBuildDerivesDisplayFields(t *testing.T) {
	sess, tx := paidFixtures()
	issuedAt := time.Date(2026, 3, 1, 14, 30, 45, 0, time.UTC)

	rec := Build(sess, tx, "Jo Mwangi", issuedAt)
	if rec.Number != "RCP1772375445000" {
		t.Fatalf("receipt number: got %s", rec.Number)
	}
	if rec.Date != "2026-03-01" || rec.Time != "14:30:45" {
		t.Fatalf("timestamp fields: got %s %s", rec.Date, rec.Time)
	}
	if rec.Service != "video consultation (legal)" {
		t.Fatalf("service: got %s", rec.Service)
	}
	if rec.Amount != 2000 || rec.Currency != "KES" {
		t.Fatalf("amount fields: got %d %s", rec.Amount, rec.Currency)
	}
	if rec.TransactionID != "tx-1" || rec.Method != "mpesa" {
		t.Fatalf("transaction fields: got %s %s", rec.TransactionID, rec.Method)
	}
	if rec.ClientName != "Jo Mwangi" || rec.ProfessionalName != "Dr. Achieng" {
		t.Fatalf("name fields: got %s %s", rec.ClientName, rec.ProfessionalName)
	}
}

func TestReceiptNumbersAreUniquePerIssueTime(t *testing.T) {
	sess, tx := paidFixtures()
	first := Build(sess, tx, "Jo", time.UnixMilli(1000))
	second := Build(sess, tx, "Jo", time.UnixMilli(1001))
	if first.Number == second.Number {
		t.Fatalf("expected distinct numbers, both %s", first.Number)
	}
}

func TestRenderHTMLContainsAllFields(t *testing.T) {
	sess, tx := paidFixtures()
	rec := Build(sess, tx, "Jo Mwangi", time.Date(2026, 3, 1, 14, 30, 45, 0, time.UTC))

	html, err := rec.RenderHTML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{rec.Number, "Jo Mwangi", "Dr. Achieng", "video consultation (legal)", "KES 2000", "tx-1", "mpesa"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered receipt missing %q", want)
		}
	}
}
