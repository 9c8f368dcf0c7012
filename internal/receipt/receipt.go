// Package receipt builds the client-facing receipt projection once a session
// is paid. Receipts are derived and read-only; a failed export never rolls
// back payment state.
package receipt

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"quickconnect/internal/models"
)

// Receipt is the display projection of transaction + session + professional.
type Receipt struct {
	Number           string `json:"receipt_number"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	ClientName       string `json:"client_name"`
	ProfessionalName string `json:"professional_name"`
	Service          string `json:"service"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	TransactionID    string `json:"transaction_id"`
	Method           string `json:"payment_method"`
}

// Build derives a receipt from a paid session and its transaction.
func Build(sess *models.Session, tx *models.Transaction, clientName string, issuedAt time.Time) Receipt {
	return Receipt{
		Number:           fmt.Sprintf("RCP%d", issuedAt.UnixMilli()),
		Date:             issuedAt.Format("2006-01-02"),
		Time:             issuedAt.Format("15:04:05"),
		ClientName:       clientName,
		ProfessionalName: sess.ProfessionalName,
		Service:          fmt.Sprintf("%s consultation (%s)", sess.Type, sess.Category),
		Amount:           tx.Amount,
		Currency:         tx.Currency,
		TransactionID:    tx.ID,
		Method:           string(tx.Method),
	}
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Receipt {{.Number}}</title></head>
<body>
  <h1>PAYMENT RECEIPT</h1>
  <table>
    <tr><td>Receipt No.</td><td>{{.Number}}</td></tr>
    <tr><td>Date</td><td>{{.Date}}</td></tr>
    <tr><td>Time</td><td>{{.Time}}</td></tr>
    <tr><td>Transaction ID</td><td>{{.TransactionID}}</td></tr>
    <tr><td>Client</td><td>{{.ClientName}}</td></tr>
    <tr><td>Professional</td><td>{{.ProfessionalName}}</td></tr>
    <tr><td>Service</td><td>{{.Service}}</td></tr>
    <tr><td>Payment Method</td><td>{{.Method}}</td></tr>
  </table>
  <h2>{{.Currency}} {{.Amount}}</h2>
  <p>Thank you for your payment. This receipt confirms your transaction.</p>
  <p>This is a computer-generated receipt. No signature required.</p>
</body>
</html>
`))

// RenderHTML renders the printable receipt document.
func (r Receipt) RenderHTML() (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}
