package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medbill/backend/internal/domain/billing"
)

const invoiceDateLayout = "02-01-2006"

// invoiceTemplate is the printable invoice document. It is rendered to
// HTML first; PDF output runs the same HTML through a PDFRenderer.
const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.InvoiceNumber}}</title>
<style>
  body { font-family: Arial, Helvetica, sans-serif; font-size: 12px; color: #1a1a1a; margin: 0; }
  .header { text-align: center; border-bottom: 2px solid #1a1a1a; padding-bottom: 8px; }
  .header h1 { margin: 0; font-size: 20px; }
  .meta { width: 100%; margin-top: 12px; }
  .meta td { padding: 2px 0; }
  .meta .label { font-weight: bold; width: 140px; }
  table.items { width: 100%; border-collapse: collapse; margin-top: 16px; }
  table.items th, table.items td { border: 1px solid #666; padding: 4px 6px; }
  table.items th { background: #efefef; text-align: left; }
  td.num, th.num { text-align: right; }
  .totals { margin-top: 12px; width: 100%; }
  .totals td { padding: 2px 0; }
  .totals .label { font-weight: bold; }
  .words { margin-top: 12px; font-style: italic; }
  .footer { margin-top: 32px; font-size: 11px; color: #555; text-align: center; }
</style>
</head>
<body>
<div class="header">
  <h1>{{.CenterName}}</h1>
  <div>{{.CenterType}} Billing Statement</div>
</div>
<table class="meta">
  <tr><td class="label">Invoice Number</td><td>{{.InvoiceNumber}}</td></tr>
  <tr><td class="label">Bill Date</td><td>{{formatDate .BillDate}}</td></tr>
  <tr><td class="label">Billing Period</td><td>{{.MonthBucket}}</td></tr>
  <tr><td class="label">Total Tests</td><td>{{len .LineItems}}</td></tr>
</table>
<table class="items">
  <tr>
    <th>Sr. No.</th><th>Date</th><th>Patient Name</th><th>Visit Code</th>
    <th>Test Name</th><th class="num">MRP</th><th class="num">Rate</th><th class="num">Sharing</th>
  </tr>
  {{range $i, $item := .LineItems}}
  <tr>
    <td>{{add1 $i}}</td>
    <td>{{formatDate $item.RegisteredDate}}</td>
    <td>{{$item.PatientName}}</td>
    <td>{{$item.PatientVisitCode}}</td>
    <td>{{$item.TestName}}</td>
    <td class="num">{{inr $item.MRP}}</td>
    <td class="num">{{inr $item.Rate}}</td>
    <td class="num">{{inr $item.SharingAmount}}</td>
  </tr>
  {{end}}
</table>
<table class="totals">
  <tr><td class="label">Total MRP</td><td>{{inr .TotalMRP}}</td></tr>
  <tr><td class="label">Total Rate</td><td>{{inr .TotalRate}}</td></tr>
  <tr><td class="label">Total Sharing</td><td>{{inr .TotalSharing}}</td></tr>
</table>
<div class="words">Amount in Words: {{.AmountInWords}}</div>
<div class="footer">This is a computer generated invoice.</div>
</body>
</html>`

// InvoiceTemplate renders a bill into a printable HTML document
type InvoiceTemplate struct {
	tmpl *template.Template
}

// NewInvoiceTemplate parses the built-in invoice template
func NewInvoiceTemplate() (*InvoiceTemplate, error) {
	tmpl, err := template.New("invoice").Funcs(template.FuncMap{
		"formatDate": func(t time.Time) string { return t.Format(invoiceDateLayout) },
		"inr":        func(d decimal.Decimal) string { return "₹" + d.StringFixed(2) },
		"add1":       func(i int) int { return i + 1 },
	}).Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice template: %w", err)
	}
	return &InvoiceTemplate{tmpl: tmpl}, nil
}

// Render produces the invoice HTML for one bill
func (t *InvoiceTemplate) Render(bill *billing.Bill) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, bill); err != nil {
		return "", fmt.Errorf("failed to render invoice %s: %w", bill.InvoiceNumber, err)
	}
	return buf.String(), nil
}
